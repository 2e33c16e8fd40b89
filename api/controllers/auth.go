package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func authCall(svc auth.Service, logg *logger.Logger, status int, call responses.Handler) http.HandlerFunc {
	return responses.Handle(logg, status, func(r *http.Request) (any, error) {
		if svc == nil {
			return nil, responses.Unavailable("auth service")
		}
		return call(r)
	})
}

// AuthRegister creates a user account and returns a fresh token pair.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authCall(svc, logg, http.StatusCreated, func(r *http.Request) (any, error) {
		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Register(r.Context(), body)
	})
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authCall(svc, logg, http.StatusOK, func(r *http.Request) (any, error) {
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Login(r.Context(), body)
	})
}

// AuthRefresh rotates the refresh token bound to the presented access token, expired or not.
func AuthRefresh(svc auth.Service, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return authCall(svc, logg, http.StatusOK, func(r *http.Request) (any, error) {
		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		accessID, err := sessionID(r, cfg)
		if err != nil {
			return nil, err
		}
		return svc.Refresh(r.Context(), accessID, body.RefreshToken)
	})
}

func AuthLogout(svc auth.Service, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return authCall(svc, logg, http.StatusOK, func(r *http.Request) (any, error) {
		accessID, err := sessionID(r, cfg)
		if err != nil {
			return nil, err
		}
		if err := svc.Logout(r.Context(), accessID); err != nil {
			return nil, err
		}
		return map[string]string{"status": "logged_out"}, nil
	})
}

// sessionID reads the jti of the bearer token without enforcing expiry.
func sessionID(r *http.Request, cfg config.JWTConfig) (string, error) {
	raw, ok := pkgAuth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims.ID, nil
}
