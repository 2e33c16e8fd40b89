// Package stripe configures the Stripe SDK and verifies webhook deliveries.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Key prefixes accepted per environment. Restricted keys (rk_) work as well as secret keys.
var keyPrefixes = map[string][]string{
	"test": {"sk_test_", "rk_test_"},
	"live": {"sk_live_", "rk_live_"},
}

var errNoSigningSecret = errors.New("stripe webhook secret is required")

type Client struct {
	api           *stripe.Client
	env           string
	currency      string
	signingSecret string
}

// NewClient validates cfg and builds an account-scoped API client. SDK globals stay untouched.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return nil, fmt.Errorf("stripe environment %q is not one of test, live", env)
	}

	key := strings.TrimSpace(cfg.APIKey)
	switch {
	case key == "":
		return nil, errors.New("stripe api key is required")
	case !hasAnyPrefix(key, prefixes):
		return nil, fmt.Errorf("stripe %s environment needs a key starting with %s", env, strings.Join(prefixes, " or "))
	}
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, errNoSigningSecret
	}

	c := &Client{
		api:           stripe.NewClient(key),
		env:           env,
		currency:      strings.ToLower(strings.TrimSpace(cfg.Currency)),
		signingSecret: secret,
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"stripe_env": c.env, "currency": c.currency}), "stripe configured")
	}
	return c, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// API is nil on a nil Client.
func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// Environment is "test" or "live".
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.env
}

// Currency is the lowercase ISO code checkout sessions are priced in.
func (c *Client) Currency() string {
	if c == nil {
		return ""
	}
	return c.currency
}

// VerifyEvent authenticates a webhook body against its Stripe-Signature header.
func (c *Client) VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	if c == nil {
		return stripe.Event{}, errNoSigningSecret
	}
	return VerifyEvent(payload, signatureHeader, c.signingSecret)
}

// VerifyEvent checks the signature and timestamp tolerance, then decodes the event.
// API version drift between the account and the SDK is tolerated.
func VerifyEvent(payload []byte, signatureHeader, secret string) (stripe.Event, error) {
	if secret == "" {
		return stripe.Event{}, errNoSigningSecret
	}
	return webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
