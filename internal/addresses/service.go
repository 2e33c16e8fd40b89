package addresses

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Input is a delivery address as submitted by its owner.
type Input struct {
	Alias   string
	Address types.ShippingAddress
}

// Service manages the delivery addresses saved on a user's profile. Every
// mutation answers with the address book as it stands afterwards.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.UserAddress, error)
	Add(ctx context.Context, userID uuid.UUID, input Input) ([]models.UserAddress, error)
	Remove(ctx context.Context, userID, addressID uuid.UUID) ([]models.UserAddress, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address repo is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.UserAddress, error) {
	if userID == uuid.Nil {
		return nil, errNoUser
	}
	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return rows, nil
}

// Add saves an address. Saving an identical one again is a no-op.
func (s *service) Add(ctx context.Context, userID uuid.UUID, input Input) ([]models.UserAddress, error) {
	if userID == uuid.Nil {
		return nil, errNoUser
	}
	addr := input.Address.Normalize()
	if addr.Details == "" || addr.City == "" || addr.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "details, city and phone are required")
	}
	row := &models.UserAddress{
		UserID:     userID,
		Alias:      strings.TrimSpace(input.Alias),
		Details:    addr.Details,
		City:       addr.City,
		PostalCode: addr.PostalCode,
		Phone:      addr.Phone,
	}
	if err := s.repo.Add(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add address")
	}
	return s.List(ctx, userID)
}

// Remove succeeds whether or not the address exists.
func (s *service) Remove(ctx context.Context, userID, addressID uuid.UUID) ([]models.UserAddress, error) {
	if userID == uuid.Nil {
		return nil, errNoUser
	}
	if err := s.repo.Remove(ctx, userID, addressID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove address")
	}
	return s.List(ctx, userID)
}

var errNoUser = pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
