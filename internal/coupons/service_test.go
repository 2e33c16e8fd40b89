package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func newSQLiteService(t *testing.T) Service {
	t.Helper()
	conn, _ := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func TestCreateNormalizesName(t *testing.T) {
	svc := newSQLiteService(t)

	coupon, err := svc.Create(context.Background(), CouponInput{
		Name:      "  summer10 ",
		ExpiresAt: time.Now().Add(24 * time.Hour),
		Discount:  decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	require.Equal(t, "SUMMER10", coupon.Name)
	require.NotEqual(t, uuid.Nil, coupon.ID)
}

func TestCreateValidation(t *testing.T) {
	svc := newSQLiteService(t)
	future := time.Now().Add(time.Hour)

	cases := []CouponInput{
		{Name: " ", ExpiresAt: future, Discount: decimal.NewFromInt(5)},
		{Name: "X", Discount: decimal.NewFromInt(5)},
		{Name: "X", ExpiresAt: future, Discount: decimal.Zero},
		{Name: "X", ExpiresAt: future, Discount: decimal.NewFromInt(101)},
	}
	for _, input := range cases {
		_, err := svc.Create(context.Background(), input)
		requireCode(t, err, pkgerrors.CodeValidation)
	}
}

func TestCreateDuplicateNameConflicts(t *testing.T) {
	svc := newSQLiteService(t)
	input := CouponInput{Name: "DUP", ExpiresAt: time.Now().Add(time.Hour), Discount: decimal.NewFromInt(5)}

	_, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	input.Name = "dup"
	_, err = svc.Create(context.Background(), input)
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestFindActive(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := svc.Create(ctx, CouponInput{Name: "LIVE", ExpiresAt: now.Add(time.Hour), Discount: decimal.NewFromInt(20)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CouponInput{Name: "OLD", ExpiresAt: now.Add(-time.Hour), Discount: decimal.NewFromInt(20)})
	require.NoError(t, err)

	coupon, err := svc.FindActive(ctx, "live", now)
	require.NoError(t, err)
	require.True(t, coupon.Discount.Equal(decimal.NewFromInt(20)))

	_, err = svc.FindActive(ctx, "OLD", now)
	requireCode(t, err, pkgerrors.CodeInvalidCoupon)

	_, err = svc.FindActive(ctx, "MISSING", now)
	requireCode(t, err, pkgerrors.CodeInvalidCoupon)

	_, err = svc.FindActive(ctx, "", now)
	requireCode(t, err, pkgerrors.CodeInvalidCoupon)
}

func TestUpdateGetDelete(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	created, err := svc.Create(ctx, CouponInput{Name: "A", ExpiresAt: expires, Discount: decimal.NewFromInt(5)})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, CouponInput{Name: "b", ExpiresAt: expires, Discount: decimal.NewFromInt(15)})
	require.NoError(t, err)
	require.Equal(t, "B", updated.Name)

	fetched, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, fetched.Discount.Equal(decimal.NewFromInt(15)))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, created.ID))
	requireCode(t, svc.Delete(ctx, created.ID), pkgerrors.CodeNotFound)

	_, err = svc.Get(ctx, created.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.Update(ctx, uuid.New(), CouponInput{Name: "C", ExpiresAt: expires, Discount: decimal.NewFromInt(1)})
	requireCode(t, err, pkgerrors.CodeNotFound)
}
