package middleware

import (
	"net/http"
	"slices"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// RequireRole rejects callers whose role is not one of allowed.
func RequireRole(logg *logger.Logger, allowed ...enums.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, ok := PrincipalFrom(r.Context()); ok && slices.Contains(allowed, p.Role) {
				next.ServeHTTP(w, r)
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
		})
	}
}

// RequireStaff admits managers and admins.
func RequireStaff(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRole(logg, enums.UserRoleManager, enums.UserRoleAdmin)
}
