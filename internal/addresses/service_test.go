package addresses

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn, _ := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected coded error, got %v", err)
	require.Equal(t, code, typed.Code())
}

var home = Input{
	Alias:   " home ",
	Address: types.ShippingAddress{Details: "12 Nile St ", City: "Cairo", PostalCode: "11511", Phone: "0100"},
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}

func TestAddIsIdempotentAndScopedToOwner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	book, err := svc.Add(ctx, owner, home)
	require.NoError(t, err)
	require.Len(t, book, 1)
	require.Equal(t, "home", book[0].Alias)
	require.Equal(t, "12 Nile St", book[0].Details)
	require.Equal(t, owner, book[0].UserID)

	book, err = svc.Add(ctx, owner, home)
	require.NoError(t, err)
	require.Len(t, book, 1)

	work := Input{Alias: "work", Address: types.ShippingAddress{Details: "1 Tahrir Sq", City: "Cairo", Phone: "0111"}}
	book, err = svc.Add(ctx, owner, work)
	require.NoError(t, err)
	require.Len(t, book, 2)
	require.Equal(t, "home", book[0].Alias)
	require.Equal(t, "work", book[1].Alias)

	others, err := svc.List(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, others)
}

func TestAddRequiresDeliveryFields(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Add(context.Background(), uuid.New(), Input{Alias: "home", Address: types.ShippingAddress{City: "Cairo"}})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Add(context.Background(), uuid.Nil, home)
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestRemoveOnlyTouchesOwnAddresses(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	book, err := svc.Add(ctx, owner, home)
	require.NoError(t, err)
	id := book[0].ID

	book, err = svc.Remove(ctx, uuid.New(), id)
	require.NoError(t, err)
	require.Empty(t, book)

	book, err = svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, book, 1)

	book, err = svc.Remove(ctx, owner, id)
	require.NoError(t, err)
	require.Empty(t, book)

	book, err = svc.Remove(ctx, owner, id)
	require.NoError(t, err)
	require.Empty(t, book)
}
