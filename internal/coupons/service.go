package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const nameConstraint = "coupons_name_key"

var maxDiscount = decimal.NewFromInt(100)

type couponRepository interface {
	Create(ctx context.Context, coupon *models.Coupon) error
	Update(ctx context.Context, coupon *models.Coupon) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindByName(ctx context.Context, name string) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
}

// Validator resolves a coupon name into a usable coupon.
type Validator interface {
	FindActive(ctx context.Context, name string, now time.Time) (*models.Coupon, error)
}

// Service exposes coupon validation and administration.
type Service interface {
	Validator
	Create(ctx context.Context, input CouponInput) (*models.Coupon, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	Update(ctx context.Context, id uuid.UUID, input CouponInput) (*models.Coupon, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CouponInput is the admin payload for creating or replacing a coupon.
type CouponInput struct {
	Name      string
	ExpiresAt time.Time
	Discount  decimal.Decimal
}

type service struct {
	repo couponRepository
}

// NewService builds a coupon service.
func NewService(repo couponRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo}, nil
}

// NormalizeName trims and uppercases a coupon name.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func (s *service) FindActive(ctx context.Context, name string, now time.Time) (*models.Coupon, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCoupon, "coupon is invalid or expired")
	}
	coupon, err := s.repo.FindByName(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidCoupon, "coupon is invalid or expired")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if !coupon.ActiveAt(now) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCoupon, "coupon is invalid or expired")
	}
	return coupon, nil
}

func (s *service) Create(ctx context.Context, input CouponInput) (*models.Coupon, error) {
	normalized, err := validateInput(input)
	if err != nil {
		return nil, err
	}
	coupon := &models.Coupon{
		Name:      normalized.Name,
		ExpiresAt: normalized.ExpiresAt,
		Discount:  normalized.Discount,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, mapWriteError(err, "create coupon")
	}
	return coupon, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapReadError(err)
	}
	return coupon, nil
}

func (s *service) List(ctx context.Context) ([]models.Coupon, error) {
	coupons, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	return coupons, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input CouponInput) (*models.Coupon, error) {
	normalized, err := validateInput(input)
	if err != nil {
		return nil, err
	}
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapReadError(err)
	}
	coupon.Name = normalized.Name
	coupon.ExpiresAt = normalized.ExpiresAt
	coupon.Discount = normalized.Discount
	if err := s.repo.Update(ctx, coupon); err != nil {
		return nil, mapWriteError(err, "update coupon")
	}
	return coupon, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete coupon")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return nil
}

func validateInput(input CouponInput) (CouponInput, error) {
	input.Name = NormalizeName(input.Name)
	if input.Name == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "coupon name is required")
	}
	if input.ExpiresAt.IsZero() {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "coupon expiry is required")
	}
	if !input.Discount.IsPositive() || input.Discount.GreaterThan(maxDiscount) {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "coupon discount must be within (0, 100]")
	}
	input.ExpiresAt = input.ExpiresAt.UTC()
	return input, nil
}

func mapReadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
}

func mapWriteError(err error, msg string) error {
	if db.IsUniqueViolation(err, nameConstraint) {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon name already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
