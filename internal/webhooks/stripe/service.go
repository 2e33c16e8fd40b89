package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type orderCreator interface {
	CreateCardOrder(ctx context.Context, input orders.CardOrderInput) (*models.Order, bool, error)
}

type ServiceParams struct {
	Orders orderCreator
	Logger *logger.Logger
}

// Service turns verified Stripe events into card orders.
type Service struct {
	orders orderCreator
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order assembler required")
	}
	return &Service{
		orders: params.Orders,
		logg:   params.Logger,
	}, nil
}

// HandleEvent processes checkout.session.completed and accepts every other type without side effects.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		return s.completeCheckout(ctx, &session)
	default:
		if s.logg != nil {
			s.logg.Debug(s.logg.WithField(ctx, "event_type", string(event.Type)), "stripe event ignored")
		}
		return nil
	}
}

func (s *Service) completeCheckout(ctx context.Context, session *stripe.CheckoutSession) error {
	cartID, err := uuid.Parse(strings.TrimSpace(session.ClientReferenceID))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid client reference id").
			WithDetails(map[string]any{"sessionId": session.ID})
	}

	order, created, err := s.orders.CreateCardOrder(ctx, orders.CardOrderInput{
		CartID:          cartID,
		SessionID:       session.ID,
		CustomerEmail:   customerEmail(session),
		AmountTotal:     session.AmountTotal,
		ShippingAddress: types.ShippingAddressFromMetadata(session.Metadata),
	})
	if err != nil {
		return err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"session_id": session.ID,
			"order_id":   order.ID.String(),
			"cart_id":    cartID.String(),
		})
		if created {
			s.logg.Info(logCtx, "card order created from checkout session")
		} else {
			s.logg.Info(logCtx, "checkout session already converted")
		}
	}
	return nil
}

func customerEmail(session *stripe.CheckoutSession) string {
	if email := strings.TrimSpace(session.CustomerEmail); email != "" {
		return email
	}
	if session.CustomerDetails != nil {
		return strings.TrimSpace(session.CustomerDetails.Email)
	}
	return ""
}
