package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type fixture struct {
	conn     *gorm.DB
	svc      Service
	repo     *Repository
	products *products.Repository
	coupons  coupons.Service
	userID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, client := dbtest.Open(t)

	productRepo := products.NewRepository(conn)
	couponSvc, err := coupons.NewService(coupons.NewRepository(conn))
	require.NoError(t, err)

	repo := NewRepository(conn)
	svc, err := NewService(repo, client, productRepo, couponSvc)
	require.NoError(t, err)

	return &fixture{conn: conn, svc: svc, repo: repo, products: productRepo, coupons: couponSvc, userID: uuid.New()}
}

func (f *fixture) product(t *testing.T, price string) *models.Product {
	t.Helper()
	p := &models.Product{Title: "Item", Price: decimal.RequireFromString(price), Quantity: 100}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s got %s", want, got)
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil)
	require.Error(t, err)
}

func TestAddItemCreatesCartAndIncrementsLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mug := f.product(t, "12.50")

	cart, err := f.svc.AddItem(ctx, f.userID, AddItemInput{ProductID: mug.ID, Color: "red"})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	requireMoney(t, "12.50", cart.TotalCartPrice)

	cart, err = f.svc.AddItem(ctx, f.userID, AddItemInput{ProductID: mug.ID, Color: "red"})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, 2, cart.Items[0].Quantity)
	requireMoney(t, "25", cart.TotalCartPrice)

	cart, err = f.svc.AddItem(ctx, f.userID, AddItemInput{ProductID: mug.ID, Color: "blue"})
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	requireMoney(t, "37.50", cart.TotalCartPrice)

	stored, err := f.svc.GetCart(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	requireMoney(t, "37.50", stored.TotalCartPrice)
}

func TestAddItemSnapshotsPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mug := f.product(t, "10")

	_, err := f.svc.AddItem(ctx, f.userID, AddItemInput{ProductID: mug.ID})
	require.NoError(t, err)

	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", mug.ID).Update("price", decimal.NewFromInt(99)).Error)

	cart, err := f.svc.AddItem(ctx, f.userID, AddItemInput{ProductID: mug.ID})
	require.NoError(t, err)
	requireMoney(t, "20", cart.TotalCartPrice)
}

func TestAddItemMissingProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddItem(context.Background(), f.userID, AddItemInput{ProductID: uuid.New()})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestGetCartNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetCart(context.Background(), f.userID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestRemoveItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "5")
	b := f.product(t, "7")

	_, err := f.svc.RemoveItem(ctx, f.userID, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.AddItem(ctx, f.userID, AddItemInput{ProductID: a.ID})
	require.NoError(t, err)
	cart, err := f.svc.AddItem(ctx, f.userID, AddItemInput{ProductID: b.ID})
	require.NoError(t, err)
	requireMoney(t, "12", cart.TotalCartPrice)

	unchanged, err := f.svc.RemoveItem(ctx, f.userID, uuid.New())
	require.NoError(t, err)
	require.Len(t, unchanged.Items, 2)

	cart, err = f.svc.RemoveItem(ctx, f.userID, cart.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	requireMoney(t, "7", cart.TotalCartPrice)
}

func TestUpdateItemQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "3.25")

	cart, err := f.svc.AddItem(ctx, f.userID, AddItemInput{ProductID: a.ID})
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	cart, err = f.svc.UpdateItemQuantity(ctx, f.userID, itemID, 4)
	require.NoError(t, err)
	require.Equal(t, 4, cart.Items[0].Quantity)
	requireMoney(t, "13", cart.TotalCartPrice)

	_, err = f.svc.UpdateItemQuantity(ctx, f.userID, itemID, 0)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.UpdateItemQuantity(ctx, f.userID, uuid.New(), 2)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestClearCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "1")

	requireCode(t, f.svc.ClearCart(ctx, f.userID), pkgerrors.CodeNotFound)

	_, err := f.svc.AddItem(ctx, f.userID, AddItemInput{ProductID: a.ID})
	require.NoError(t, err)
	require.NoError(t, f.svc.ClearCart(ctx, f.userID))

	_, err = f.svc.GetCart(ctx, f.userID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestApplyCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "200")

	_, err := f.coupons.Create(ctx, coupons.CouponInput{Name: "TEN", ExpiresAt: time.Now().Add(time.Hour), Discount: decimal.NewFromInt(10)})
	require.NoError(t, err)

	_, err = f.svc.ApplyCoupon(ctx, f.userID, "ten")
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.AddItem(ctx, f.userID, AddItemInput{ProductID: a.ID})
	require.NoError(t, err)

	_, err = f.svc.ApplyCoupon(ctx, f.userID, "nope")
	requireCode(t, err, pkgerrors.CodeInvalidCoupon)

	cart, err := f.svc.ApplyCoupon(ctx, f.userID, "ten")
	require.NoError(t, err)
	require.True(t, cart.CouponApplied)
	require.NotNil(t, cart.TotalPriceAfterDiscount)
	requireMoney(t, "180", *cart.TotalPriceAfterDiscount)
	require.Equal(t, "TEN", *cart.CouponName)

	_, err = f.svc.ApplyCoupon(ctx, f.userID, "TEN")
	requireCode(t, err, pkgerrors.CodeInvalidCoupon)

	cart, err = f.svc.AddItem(ctx, f.userID, AddItemInput{ProductID: a.ID})
	require.NoError(t, err)
	require.False(t, cart.CouponApplied)
	require.Nil(t, cart.TotalPriceAfterDiscount)
	require.Nil(t, cart.CouponName)

	stored, err := f.svc.GetCart(ctx, f.userID)
	require.NoError(t, err)
	require.False(t, stored.CouponApplied)
	require.Nil(t, stored.TotalPriceAfterDiscount)
}

func TestApplyCouponEmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "10")

	_, err := f.coupons.Create(ctx, coupons.CouponInput{Name: "FIVE", ExpiresAt: time.Now().Add(time.Hour), Discount: decimal.NewFromInt(5)})
	require.NoError(t, err)

	cart, err := f.svc.AddItem(ctx, f.userID, AddItemInput{ProductID: a.ID})
	require.NoError(t, err)
	_, err = f.svc.RemoveItem(ctx, f.userID, cart.Items[0].ID)
	require.NoError(t, err)

	_, err = f.svc.ApplyCoupon(ctx, f.userID, "FIVE")
	requireCode(t, err, pkgerrors.CodeEmptyCart)
}

func TestDeleteStaleBefore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "10")

	_, err := f.svc.AddItem(ctx, f.userID, AddItemInput{ProductID: a.ID})
	require.NoError(t, err)
	other := uuid.New()
	_, err = f.svc.AddItem(ctx, other, AddItemInput{ProductID: a.ID})
	require.NoError(t, err)

	old := time.Now().UTC().Add(-90 * 24 * time.Hour)
	require.NoError(t, f.conn.Model(&models.Cart{}).Where("user_id = ?", f.userID).UpdateColumn("updated_at", old).Error)

	removed, err := f.repo.DeleteStaleBefore(ctx, time.Now().UTC().Add(-60*24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	_, err = f.svc.GetCart(ctx, f.userID)
	requireCode(t, err, pkgerrors.CodeNotFound)
	_, err = f.svc.GetCart(ctx, other)
	require.NoError(t, err)

	var orphaned int64
	require.NoError(t, f.conn.Model(&models.CartItem{}).Count(&orphaned).Error)
	require.EqualValues(t, 1, orphaned)
}
