package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bookshelf-cms/bookshelf/internal/shared"
)

// Checker answers authorization questions for the middleware. *Service
// satisfies it; tests substitute a stub.
type Checker interface {
	HasPermission(ctx context.Context, userID int64, permissionName string) (bool, error)
	HasRole(ctx context.Context, userID int64, roleName string) (bool, error)
}

// Middleware wires RBAC guards for HTTP routes. Guards run after the
// access gate, so an anonymous caller normally never reaches them; if
// one does, the answer is still a deny.
type Middleware struct {
	Checker Checker
	Logger  *slog.Logger
}

// RequirePermission ensures the caller holds at least one of the named
// permissions. Authenticated-but-unauthorized callers get a uniform 403,
// never a redirect to login.
func (m Middleware) RequirePermission(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			user := shared.UserFromContext(r.Context())
			if user == nil {
				m.deny(w)
				return
			}
			for _, perm := range normalized {
				ok, err := m.Checker.HasPermission(r.Context(), user.ID, perm)
				if err != nil {
					if m.Logger != nil {
						m.Logger.Error("permission check", slog.String("permission", perm), slog.Any("error", err))
					}
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				if ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.deny(w)
		})
	}
}

// RequireRole ensures the caller holds the named role.
func (m Middleware) RequireRole(roleName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := shared.UserFromContext(r.Context())
			if user == nil {
				m.deny(w)
				return
			}
			ok, err := m.Checker.HasRole(r.Context(), user.ID, roleName)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("role check", slog.String("role", roleName), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !ok {
				m.deny(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter) {
	http.Error(w, "insufficient permission", http.StatusForbidden)
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
