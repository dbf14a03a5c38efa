package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/bookshelf-cms/bookshelf/internal/shared"
)

// Identity resolves the session's claimed user into a live account once
// per request and stores it in the request context. Anything that does
// not resolve cleanly (no session, no user ID, unparseable ID, missing
// or deactivated row) leaves the request anonymous and, when the session
// carried a dangling reference, detaches it.
func Identity(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}
			raw := strings.TrimSpace(sess.User())
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				sess.ClearUser()
				next.ServeHTTP(w, r)
				return
			}
			user, err := service.Resolve(r.Context(), id)
			if err != nil {
				if logger != nil {
					logger.Debug("session user did not resolve", slog.Int64("user_id", id), slog.Any("error", err))
				}
				sess.ClearUser()
				next.ServeHTTP(w, r)
				return
			}
			ctx := shared.ContextWithUser(r.Context(), &shared.CurrentUser{
				ID:     user.ID,
				Handle: user.Handle,
				Email:  user.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
