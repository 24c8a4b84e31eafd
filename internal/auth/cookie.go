// AngelaMos | 2026
// cookie.go

package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/propertyxchange/backend/internal/config"
)

// CookieWriter replicates the session cookie across the domain variants a
// browser may be on. A host-only cookie is always written so localhost and
// bare IP access keep working; production adds one cookie per distinct
// Domain attribute derived from each configured apex.
type CookieWriter struct {
	name       string
	maxAge     time.Duration
	domains    []string
	production bool
}

func NewCookieWriter(cfg config.SessionConfig, production bool) *CookieWriter {
	name := cfg.CookieName
	if name == "" {
		name = "token"
	}

	return &CookieWriter{
		name:       name,
		maxAge:     cfg.TokenExpire,
		domains:    cookieDomains(cfg.CookieDomains),
		production: production,
	}
}

func (c *CookieWriter) Name() string {
	return c.name
}

func (c *CookieWriter) Write(w http.ResponseWriter, r *http.Request, token string) {
	secure := IsSecureRequest(r)
	for _, cookie := range c.cookies(token, secure, int(c.maxAge.Seconds())) {
		http.SetCookie(w, cookie)
	}
}

// Clear expires every variant Write could have produced.
func (c *CookieWriter) Clear(w http.ResponseWriter, r *http.Request) {
	secure := IsSecureRequest(r)
	for _, cookie := range c.cookies("", secure, -1) {
		cookie.Expires = time.Unix(0, 0)
		http.SetCookie(w, cookie)
	}
}

func (c *CookieWriter) cookies(value string, secure bool, maxAge int) []*http.Cookie {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}

	base := http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}

	out := []*http.Cookie{&base}
	if !c.production {
		return out
	}

	for _, domain := range c.domains {
		cookie := base
		cookie.Domain = domain
		out = append(out, &cookie)
	}

	return out
}

// IsSecureRequest checks TLS on the connection, then X-Forwarded-Proto,
// then the Origin header.
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}

	proto, _, _ := strings.Cut(r.Header.Get("X-Forwarded-Proto"), ",")
	if strings.EqualFold(strings.TrimSpace(proto), "https") {
		return true
	}

	return strings.HasPrefix(strings.ToLower(r.Header.Get("Origin")), "https://")
}

// cookieDomains expands each apex into its dotted, www and bare forms and
// drops any whose serialized Domain attribute repeats an earlier one.
// net/http strips a leading dot, so ".example.com" and "example.com" are
// the same cookie on the wire.
func cookieDomains(apexes []string) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(d string) {
		key := strings.TrimPrefix(d, ".")
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}

	for _, raw := range apexes {
		apex := strings.ToLower(strings.TrimSpace(raw))
		apex = strings.TrimPrefix(apex, ".")
		apex = strings.TrimPrefix(apex, "www.")
		if apex == "" || apex == "localhost" {
			continue
		}

		add("." + apex)
		add("www." + apex)
		add(apex)
	}

	return out
}
