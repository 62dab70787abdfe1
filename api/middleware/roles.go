package middleware

import (
	"net/http"
	"slices"

	"github.com/angelmondragon/easyshop-backend/api/responses"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
)

// RequireRole admits principals holding any of roles and answers 403 otherwise.
// It must run after Auth.
func RequireRole(logg *logger.Logger, roles ...enums.ActorRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(roles, RoleFromContext(r.Context())) {
				err := pkgerrors.New(pkgerrors.CodeForbidden, "role not allowed").WithDetails(map[string]any{"allowed": roles})
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
