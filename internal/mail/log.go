// AngelaMos | 2026
// log.go

package mail

import (
	"context"
	"log/slog"
)

// LogTransport prints messages instead of sending them. Development only;
// config validation refuses it in production.
type LogTransport struct {
	logger *slog.Logger
}

func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Deliver(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.logger.InfoContext(ctx, "mail (log driver)",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}

func (t *LogTransport) Ping(context.Context) error {
	return nil
}
