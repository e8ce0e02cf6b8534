package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/inkstudio/internal/logging"
	"github.com/dmitrijs2005/inkstudio/internal/server/auth"
	"github.com/dmitrijs2005/inkstudio/internal/server/identity"
	"github.com/dmitrijs2005/inkstudio/internal/server/metrics"
)

const (
	adminPath      = "/admin"
	adminLoginPath = "/admin/login"
)

// Verifier resolves a session token to an authorized account.
type Verifier interface {
	Verify(ctx context.Context, token string) (*identity.Account, error)
}

type accountKey struct{}

// AccountFromContext returns the account the guard let through.
func AccountFromContext(ctx context.Context) (*identity.Account, bool) {
	acc, ok := ctx.Value(accountKey{}).(*identity.Account)
	return acc, ok
}

// Guard gates the admin dashboard. Access is granted only after the identity
// provider has confirmed the session token and the account email is on the
// allow-list; every other outcome, errors included, denies access.
type Guard struct {
	verifier Verifier
	metrics  *metrics.Metrics
	logger   logging.Logger
	secure   bool
}

func NewGuard(v Verifier, m *metrics.Metrics, logger logging.Logger, secure bool) *Guard {
	return &Guard{
		verifier: v,
		metrics:  m,
		logger:   logger.With("module", "guard"),
		secure:   secure,
	}
}

func isAdminPath(p string) bool {
	return p == adminPath || strings.HasPrefix(p, adminPath+"/")
}

// verify never panics; a panicking verifier counts as a failed verification.
func (g *Guard) verify(ctx context.Context, token string) (acc *identity.Account, err error) {
	defer func() {
		if p := recover(); p != nil {
			acc, err = nil, fmt.Errorf("verifier panic: %v", p)
		}
	}()
	return g.verifier.Verify(ctx, token)
}

// Pages protects the dashboard pages under /admin. Requests outside /admin
// pass through untouched.
//
//   - /admin/login with a valid session redirects to /admin; with an invalid
//     one the cookie is cleared and the login page is served.
//   - any other /admin path without a valid session redirects to
//     /admin/login, clearing a stale cookie.
func (g *Guard) Pages(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAdminPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		token := sessionToken(r)

		if r.URL.Path == adminLoginPath {
			if token != "" {
				if _, err := g.verify(ctx, token); err == nil {
					g.metrics.GuardDecisions.WithLabelValues(metrics.GuardRedirect).Inc()
					http.Redirect(w, r, adminPath, http.StatusTemporaryRedirect)
					return
				}
				clearSessionCookie(w, g.secure)
			}
			next.ServeHTTP(w, r)
			return
		}

		if token == "" {
			g.deny(w, r, "no session")
			return
		}

		acc, err := g.verify(ctx, token)
		if err != nil {
			g.logger.Warn(ctx, "session rejected", "path", r.URL.Path, "token_fp", auth.Fingerprint(token), "error", err)
			clearSessionCookie(w, g.secure)
			g.deny(w, r, "invalid session")
			return
		}

		g.metrics.GuardDecisions.WithLabelValues(metrics.GuardPass).Inc()
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, accountKey{}, acc)))
	})
}

func (g *Guard) deny(w http.ResponseWriter, r *http.Request, reason string) {
	g.logger.Debug(r.Context(), "redirecting to login", "path", r.URL.Path, "reason", reason)
	g.metrics.GuardDecisions.WithLabelValues(metrics.GuardRedirect).Inc()
	http.Redirect(w, r, adminLoginPath, http.StatusTemporaryRedirect)
}

// API protects admin API endpoints: same verification as Pages, but failures
// answer 401 JSON instead of redirecting.
func (g *Guard) API(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token := sessionToken(r)
		if token == "" {
			g.metrics.GuardDecisions.WithLabelValues(metrics.GuardReject).Inc()
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		acc, err := g.verify(ctx, token)
		if err != nil {
			g.logger.Warn(ctx, "api session rejected", "path", r.URL.Path, "token_fp", auth.Fingerprint(token), "error", err)
			g.metrics.GuardDecisions.WithLabelValues(metrics.GuardReject).Inc()
			clearSessionCookie(w, g.secure)
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		g.metrics.GuardDecisions.WithLabelValues(metrics.GuardPass).Inc()
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, accountKey{}, acc)))
	})
}
