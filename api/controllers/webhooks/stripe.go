package webhooks

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const maxWebhookBody = 1 << 20

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type replayLedger interface {
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

type eventVerifier interface {
	VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error)
}

type webhookMetrics interface {
	IncWebhookEvent(eventType, result string)
}

// StripeWebhook verifies and dispatches Stripe checkout events.
// Replays of an already handled event id are acknowledged without side effects.
func StripeWebhook(svc StripeWebhookService, verifier eventVerifier, events replayLedger, counters webhookMetrics, logg *logger.Logger) http.HandlerFunc {
	record := func(eventType, result string) {
		if counters != nil {
			counters.IncWebhookEvent(eventType, result)
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}
		if events == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook replay ledger unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := strings.TrimSpace(r.Header.Get("Stripe-Signature"))
		if sigHeader == "" {
			record("unknown", metrics.WebhookInvalidSignature)
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignatureInvalid, "stripe signature missing"))
			return
		}

		event, err := verifier.VerifyEvent(payload, sigHeader)
		if err != nil {
			record("unknown", metrics.WebhookInvalidSignature)
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeSignatureInvalid, err, "webhook signature invalid"))
			return
		}

		eventType := string(event.Type)
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"stripe_event_id":   event.ID,
				"stripe_event_type": eventType,
			})
		}

		alreadyProcessed, err := events.Claim(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			record(eventType, metrics.WebhookDuplicate)
			responses.WriteSuccess(w, map[string]bool{"received": true})
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			if delErr := events.Release(ctx, event.ID); delErr != nil && logg != nil {
				logg.Warn(ctx, "release webhook idempotency mark failed")
			}
			record(eventType, metrics.WebhookFailed)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record(eventType, metrics.WebhookProcessed)
		if logg != nil {
			logg.Info(ctx, "stripe event processed")
		}
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
