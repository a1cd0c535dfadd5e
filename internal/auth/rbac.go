package auth

import (
	"log/slog"
	"net/http"

	"github.com/judgecore/judgecore/internal/apperr"
	"github.com/judgecore/judgecore/internal/httpserver"
)

// RequireRole builds middleware that rejects requests whose Principal's
// AdminType is not in allowed, unless it is SuperAdminRole, which always
// bypasses the gate.
func RequireRole(logger *slog.Logger, allowed ...string) func(http.Handler) http.Handler {
	allowSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowSet[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpserver.RespondError(w, logger, apperr.New(apperr.KindUnauthorized, "not authenticated"))
				return
			}

			if p.AdminType == SuperAdminRole {
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := allowSet[p.AdminType]; !ok {
				httpserver.RespondError(w, logger, apperr.New(apperr.KindForbidden, "Permission Error"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
