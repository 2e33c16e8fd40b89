package wishlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type ServiceParams struct {
	WishlistRepo *Repository
	ProductRepo  productLoader
}

// Service manages a user's saved products. Every mutation answers with the
// wishlist as it stands afterwards.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]Item, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID) ([]Item, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) ([]Item, error)
}

type service struct {
	saved    *Repository
	products productLoader
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.WishlistRepo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	case params.ProductRepo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	return &service{saved: params.WishlistRepo, products: params.ProductRepo}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	if userID == uuid.Nil {
		return nil, errNoUser
	}
	items, err := s.saved.ListItems(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	return items, nil
}

// AddItem saves an existing product. Saving it twice is a no-op.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID) ([]Item, error) {
	return s.mutate(ctx, userID, "add wishlist item", func() error {
		if productID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		_, err := s.products.FindByID(ctx, productID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		return s.saved.AddItem(ctx, userID, productID)
	})
}

// RemoveItem succeeds whether or not the product was saved.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) ([]Item, error) {
	return s.mutate(ctx, userID, "remove wishlist item", func() error {
		return s.saved.RemoveItem(ctx, userID, productID)
	})
}

// mutate runs change for an identified user and re-reads the wishlist.
// Uncoded errors from change are reported as dependency failures under op.
func (s *service) mutate(ctx context.Context, userID uuid.UUID, op string, change func() error) ([]Item, error) {
	if userID == uuid.Nil {
		return nil, errNoUser
	}
	if err := change(); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
	}
	return s.List(ctx, userID)
}

var errNoUser = pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
