package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type cartLoader interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service opens hosted payment sessions for a user's cart.
type Service interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
}

// CreateSessionInput carries the cart being paid for and where Stripe redirects afterwards.
type CreateSessionInput struct {
	UserID          uuid.UUID
	CartID          uuid.UUID
	ShippingAddress types.ShippingAddress
	SuccessURL      string
	CancelURL       string
}

// Session is the hosted checkout handed back to the client.
type Session struct {
	ID          string
	URL         string
	AmountTotal int64
	Currency    string
}

// ServiceParams wires the checkout gateway.
type ServiceParams struct {
	Carts    cartLoader
	Users    userLoader
	Sessions SessionCreator
	Charges  pricing.Charges
	Currency string
	Logger   *logger.Logger
}

type service struct {
	carts    cartLoader
	users    userLoader
	sessions SessionCreator
	charges  pricing.Charges
	currency string
	logg     *logger.Logger
}

// NewService builds the checkout gateway.
func NewService(params ServiceParams) (Service, error) {
	if params.Carts == nil {
		return nil, fmt.Errorf("cart loader required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("stripe session creator required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		return nil, fmt.Errorf("currency required")
	}
	return &service{
		carts:    params.Carts,
		users:    params.Users,
		sessions: params.Sessions,
		charges:  params.Charges,
		currency: currency,
		logg:     params.Logger,
	}, nil
}

func (s *service) CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	if strings.TrimSpace(input.SuccessURL) == "" || strings.TrimSpace(input.CancelURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redirect urls are required")
	}

	cartRow, err := s.carts.FindByUser(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if cartRow.ID != input.CartID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}

	quote := pricing.QuoteCart(cartRow, s.charges)
	if quote.Subtotal.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no priced items")
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	params := buildSessionParams(user, cartRow.ID, pricing.ToMinorUnits(quote.Total), s.currency, input)
	created, err := s.sessions.Create(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	result := &Session{
		ID:          created.ID,
		URL:         created.URL,
		AmountTotal: created.AmountTotal,
		Currency:    string(created.Currency),
	}
	if result.AmountTotal == 0 {
		result.AmountTotal = pricing.ToMinorUnits(quote.Total)
	}
	if result.Currency == "" {
		result.Currency = s.currency
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"cart_id":      cartRow.ID.String(),
			"session_id":   result.ID,
			"amount_total": result.AmountTotal,
		})
		s.logg.Info(logCtx, "checkout session created")
	}
	return result, nil
}

func buildSessionParams(user *models.User, cartID uuid.UUID, amount int64, currency string, input CreateSessionInput) *stripe.CheckoutSessionCreateParams {
	params := &stripe.CheckoutSessionCreateParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(user.Name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail:     stripe.String(user.Email),
		SuccessURL:        stripe.String(input.SuccessURL),
		CancelURL:         stripe.String(input.CancelURL),
		ClientReferenceID: stripe.String(cartID.String()),
	}
	if meta := input.ShippingAddress.Metadata(); len(meta) > 0 {
		params.Metadata = meta
	}
	return params
}
