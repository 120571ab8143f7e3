package middleware

import (
	"net/http"

	"github.com/angelmondragon/hackbot/api/responses"
	"github.com/angelmondragon/hackbot/pkg/enums"
	pkgerrors "github.com/angelmondragon/hackbot/pkg/errors"
	"github.com/angelmondragon/hackbot/pkg/logger"
)

// RequireModerator rejects callers whose role may not review registrations.
func RequireModerator(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := enums.ParseStaffRole(RoleFromContext(r.Context()))
			if err != nil || !role.CanModerate() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "moderator role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
