// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/propertyxchange/backend/internal/core"
	"github.com/propertyxchange/backend/internal/middleware"
	"github.com/propertyxchange/backend/internal/user"
)

type UserStats interface {
	Stats(ctx context.Context) (*user.StatsResponse, error)
}

type HandlerConfig struct {
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	DBPing     func(ctx context.Context) error
	RedisPing  func(ctx context.Context) error
	Users      UserStats
}

// Handler serves the dashboard summary: account counts plus the health of
// the pools behind them.
type Handler struct {
	cfg HandlerConfig
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/admin/stats", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(middleware.RequireAdmin)

		r.Get("/", h.GetSystemStats)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := SystemStatsResponse{
		Database: PoolStatus{Healthy: ping(ctx, h.cfg.DBPing)},
		Redis:    PoolStatus{Healthy: ping(ctx, h.cfg.RedisPing)},
		Runtime:  readRuntime(),
	}

	if h.cfg.DBStats != nil {
		s := h.cfg.DBStats()
		resp.Database.Stats = map[string]any{
			"max_open_connections": s.MaxOpenConnections,
			"open_connections":     s.OpenConnections,
			"in_use":               s.InUse,
			"idle":                 s.Idle,
			"wait_count":           s.WaitCount,
			"wait_duration":        s.WaitDuration.String(),
		}
	}

	if h.cfg.RedisStats != nil {
		if s := h.cfg.RedisStats(); s != nil {
			resp.Redis.Stats = map[string]any{
				"hits":        s.Hits,
				"misses":      s.Misses,
				"timeouts":    s.Timeouts,
				"total_conns": s.TotalConns,
				"idle_conns":  s.IdleConns,
			}
		}
	}

	if h.cfg.Users != nil {
		stats, err := h.cfg.Users.Stats(ctx)
		if err != nil {
			core.InternalServerError(w, err)
			return
		}
		resp.Users = stats
	}

	core.OK(w, resp)
}

func ping(ctx context.Context, fn func(context.Context) error) bool {
	if fn == nil {
		return false
	}
	return fn(ctx) == nil
}

func readRuntime() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     mem.Alloc,
		MemSys:       mem.Sys,
		NumGC:        mem.NumGC,
	}
}

type SystemStatsResponse struct {
	Users    *user.StatsResponse `json:"users,omitempty"`
	Database PoolStatus          `json:"database"`
	Redis    PoolStatus          `json:"redis"`
	Runtime  RuntimeStats        `json:"runtime"`
}

type PoolStatus struct {
	Healthy bool           `json:"healthy"`
	Stats   map[string]any `json:"stats,omitempty"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
