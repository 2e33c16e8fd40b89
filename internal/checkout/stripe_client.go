package checkout

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v84"

	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

// SessionCreator exposes the Stripe Checkout call used by the gateway.
type SessionCreator interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
}

// stripeSessionClient calls Checkout through the account-scoped client, never the SDK globals.
type stripeSessionClient struct {
	api *stripe.Client
}

// NewStripeSessionCreator returns nil when no Stripe client is configured.
func NewStripeSessionCreator(client *pkgstripe.Client) SessionCreator {
	api := client.API()
	if api == nil {
		return nil
	}
	return &stripeSessionClient{api: api}
}

func (c *stripeSessionClient) Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		return nil, errors.New("checkout session params are required")
	}
	return c.api.V1CheckoutSessions.Create(ctx, params)
}
