package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	cartUserConstraint = "carts_user_id_key"
	cartLineConstraint = "cart_items_cart_product_color_key"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the user's cart operations.
type Service interface {
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error)
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error)
	ApplyCoupon(ctx context.Context, userID uuid.UUID, couponName string) (*models.Cart, error)
}

// AddItemInput selects the product variant to add.
type AddItemInput struct {
	ProductID uuid.UUID
	Color     string
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
	coupons  coupons.Validator
	now      func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, products productLoader, validator coupons.Validator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if validator == nil {
		return nil, fmt.Errorf("coupon validator required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: products,
		coupons:  validator,
		now:      time.Now,
	}, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	color := strings.TrimSpace(input.Color)

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	var result *models.Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindByUserForUpdate(ctx, userID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			cart = &models.Cart{UserID: userID}
			if err := repo.Create(ctx, cart); err != nil {
				return mapWriteError(err, "create cart")
			}
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		if idx := findLine(cart.Items, product.ID, color); idx >= 0 {
			line := &cart.Items[idx]
			line.Quantity++
			if err := repo.UpdateItemQuantity(ctx, line.ID, line.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
		} else {
			line := models.CartItem{
				CartID:    cart.ID,
				ProductID: product.ID,
				Color:     color,
				Price:     product.Price,
				Quantity:  1,
			}
			if err := repo.CreateItem(ctx, &line); err != nil {
				return mapWriteError(err, "create cart item")
			}
			cart.Items = append(cart.Items, line)
		}

		if err := s.persistTotals(ctx, repo, cart); err != nil {
			return err
		}
		result = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := loadForUpdate(ctx, repo, userID)
		if err != nil {
			return err
		}

		idx := findItem(cart.Items, itemID)
		if idx < 0 {
			result = cart
			return nil
		}

		if err := repo.DeleteItem(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

		if err := s.persistTotals(ctx, repo, cart); err != nil {
			return err
		}
		result = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, mapReadError(err)
	}
	return cart, nil
}

func (s *service) ClearCart(ctx context.Context, userID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := loadForUpdate(ctx, repo, userID)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
		}
		return nil
	})
}

func (s *service) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]any{"quantity": quantity})
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := loadForUpdate(ctx, repo, userID)
		if err != nil {
			return err
		}

		idx := findItem(cart.Items, itemID)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		if err := repo.UpdateItemQuantity(ctx, itemID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		cart.Items[idx].Quantity = quantity

		if err := s.persistTotals(ctx, repo, cart); err != nil {
			return err
		}
		result = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ApplyCoupon(ctx context.Context, userID uuid.UUID, couponName string) (*models.Cart, error) {
	coupon, err := s.coupons.FindActive(ctx, couponName, s.now())
	if err != nil {
		return nil, err
	}

	var result *models.Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := loadForUpdate(ctx, repo, userID)
		if err != nil {
			return err
		}
		if cart.TotalCartPrice.IsZero() {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no priced items")
		}
		if cart.CouponApplied {
			return pkgerrors.New(pkgerrors.CodeInvalidCoupon, "coupon already applied")
		}

		discounted := pricing.ApplyDiscount(cart.TotalCartPrice, coupon.Discount)
		name := coupon.Name
		cart.TotalPriceAfterDiscount = &discounted
		cart.CouponApplied = true
		cart.CouponName = &name

		if err := repo.SaveTotals(ctx, cart); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart totals")
		}
		result = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// persistTotals recomputes the cart total and drops any applied coupon.
func (s *service) persistTotals(ctx context.Context, repo CartRepository, cart *models.Cart) error {
	pricing.RecomputeTotals(cart)
	cart.ClearDiscount()
	if err := repo.SaveTotals(ctx, cart); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart totals")
	}
	return nil
}

func loadForUpdate(ctx context.Context, repo CartRepository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByUserForUpdate(ctx, userID)
	if err != nil {
		return nil, mapReadError(err)
	}
	return cart, nil
}

func findLine(items []models.CartItem, productID uuid.UUID, color string) int {
	for i, item := range items {
		if item.ProductID == productID && item.Color == color {
			return i
		}
	}
	return -1
}

func findItem(items []models.CartItem, itemID uuid.UUID) int {
	for i, item := range items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

func mapReadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
}

func mapWriteError(err error, msg string) error {
	if db.IsUniqueViolation(err, cartUserConstraint) || db.IsUniqueViolation(err, cartLineConstraint) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart changed concurrently, retry")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
