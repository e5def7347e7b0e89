package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/finishpro/admin-backend/api/responses"
	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
	"github.com/finishpro/admin-backend/pkg/logger"
)

const maxWebhookBodyBytes = 1 << 16

type StripeWebhookService interface {
	Process(ctx context.Context, event *stripe.Event) (bool, error)
}

type stripeClient interface {
	SigningSecret() string
}

// StripeWebhook serves POST /webhooks/stripe. Only signed events reach svc;
// a redelivered event is acknowledged with duplicate=true.
func StripeWebhook(svc StripeWebhookService, client stripeClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe webhook unavailable"))
			return
		}

		event, err := verifiedEvent(w, r, client.SigningSecret())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"stripe_event_id":   event.ID,
				"stripe_event_type": string(event.Type),
			})
		}

		duplicate, err := svc.Process(ctx, &event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(ctx, "duplicate", duplicate), "stripe event handled")
		}
		responses.WriteSuccess(w, map[string]bool{"received": true, "duplicate": duplicate})
	}
}

// verifiedEvent reads the capped body and checks the Stripe-Signature header.
// Events pinned to another API version are accepted; the handler only reads
// invoice fields that are stable across versions.
func verifiedEvent(w http.ResponseWriter, r *http.Request, secret string) (stripe.Event, error) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid stripe signature")
	}
	return event, nil
}
