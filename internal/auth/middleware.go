package auth

import (
	"log/slog"
	"net/http"

	"github.com/judgecore/judgecore/internal/apperr"
	"github.com/judgecore/judgecore/internal/httpserver"
)

// Authorizer resolves the session cookie on every request into a
// Principal, rejecting requests with no, expired, or corrupted sessions.
type Authorizer struct {
	store      *SessionStore
	users      UserExistenceChecker
	cookieName string
	logger     *slog.Logger
}

// NewAuthorizer builds an Authorizer middleware factory.
func NewAuthorizer(store *SessionStore, users UserExistenceChecker, cookieName string, logger *slog.Logger) *Authorizer {
	return &Authorizer{store: store, users: users, cookieName: cookieName, logger: logger}
}

// Middleware extracts the session cookie, resolves it against the
// SessionStore, re-validates the user still exists, and attaches the
// resulting Principal to the request context.
func (a *Authorizer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(a.cookieName)
		if err != nil || cookie.Value == "" {
			httpserver.RespondError(w, a.logger, apperr.New(apperr.KindUnauthorized, "not authenticated"))
			return
		}

		p, err := a.store.Get(r.Context(), cookie.Value)
		if err != nil {
			httpserver.RespondError(w, a.logger, err)
			return
		}

		exists, err := a.users.ExistsByUsername(r.Context(), p.Username)
		if err != nil {
			httpserver.RespondError(w, a.logger, err)
			return
		}
		if !exists {
			httpserver.RespondError(w, a.logger, apperr.New(apperr.KindUnauthorized, "not authenticated"))
			return
		}

		a.logger.Debug("authenticated request", "user_id", p.UserID, "username", p.Username, "admin_type", p.AdminType)

		ctx := WithPrincipal(r.Context(), p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
