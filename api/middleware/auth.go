package middleware

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Auth admits requests carrying a valid bearer token whose session is still live.
// A nil sessions checker skips the revocation lookup.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := authenticate(r, cfg, sessions)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ctx := WithPrincipal(r.Context(), p)
			if logg != nil {
				ctx = logg.WithUserID(ctx, p.UserID.String())
				ctx = logg.WithActorRole(ctx, string(p.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, sessions session.AccessSessionChecker) (Principal, error) {
	token, ok := pkgAuth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if sessions != nil {
		live, err := sessions.HasSession(r.Context(), claims.ID)
		if err != nil {
			return Principal{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !live {
			return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}
	return Principal{UserID: claims.UserID, Role: claims.Role, AccessID: claims.ID}, nil
}
