package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Principal is the authenticated caller attached by Auth.
type Principal struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	AccessID string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller, or false for anonymous requests.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != uuid.Nil
}

// Identity is PrincipalFrom for handlers that require a caller.
func Identity(ctx context.Context) (uuid.UUID, enums.UserRole, error) {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !p.Role.IsValid() {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid role")
	}
	return p.UserID, p.Role, nil
}
