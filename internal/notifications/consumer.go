package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
	"github.com/finishpro/admin-backend/pkg/logger"
	"github.com/finishpro/admin-backend/pkg/outbox"
	"github.com/finishpro/admin-backend/pkg/outbox/idempotency"
	"github.com/finishpro/admin-backend/pkg/outbox/payloads"
	"github.com/finishpro/admin-backend/pkg/outbox/registry"
)

const adminNotificationConsumer = "admin-notifications"

type notificationWriter interface {
	Create(ctx context.Context, notification *models.AdminNotification) error
}

type deliveryLedger interface {
	Claim(ctx context.Context, consumer, id string) (bool, error)
	Release(ctx context.Context, consumer, id string) error
}

// Consumer turns domain events into admin console notifications.
type Consumer struct {
	repo         notificationWriter
	subscription *pubsub.Subscriber
	deliveries   deliveryLedger
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds the admin notification consumer.
func NewConsumer(repo notificationWriter, subscription *pubsub.Subscriber, ledger *idempotency.Ledger, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("idempotency ledger required")
	}
	return newConsumer(repo, subscription, ledger, logg)
}

func newConsumer(repo notificationWriter, subscription *pubsub.Subscriber, ledger deliveryLedger, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		deliveries:   ledger,
		decoders:     payloadDecoders(),
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes, msg.Data) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process handles one delivery and reports whether it should be redelivered.
func (c *Consumer) process(ctx context.Context, messageID string, attributes map[string]string, data []byte) (nack bool) {
	eventType := enums.OutboxEventType(attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	if !eventType.IsValid() {
		c.logg.Info(logCtx, "skipping unknown event type")
		return false
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return false
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return false
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return false
	}
	notification := buildNotification(eventType, payload)
	if notification == nil {
		c.logg.Info(logCtx, "event does not raise a notification")
		return false
	}

	first, err := c.deliveries.Claim(ctx, adminNotificationConsumer, eventID.String())
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return true
	}
	if !first {
		c.logg.Info(logCtx, "event already processed")
		return false
	}

	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "failed to store notification", err)
		if delErr := c.deliveries.Release(ctx, adminNotificationConsumer, eventID.String()); delErr != nil {
			c.logg.Error(logCtx, "failed to clear idempotency marker", delErr)
		}
		return true
	}
	c.logg.Info(c.logg.WithField(logCtx, "notification_type", notification.Type), "admin notified")
	return false
}

func payloadDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	registry.Register[payloads.DistributorOrderApprovedEvent](decoders, enums.EventDistributorOrderApproved, 1)
	registry.Register[payloads.DistributorOrderRejectedEvent](decoders, enums.EventDistributorOrderRejected, 1)
	registry.Register[payloads.InvoiceCompensationFailedEvent](decoders, enums.EventInvoiceCompensationFailed, 1)
	registry.Register[payloads.InvoicePaymentEvent](decoders, enums.EventInvoicePaid, 1)
	registry.Register[payloads.InvoicePaymentEvent](decoders, enums.EventInvoicePaymentFailed, 1)
	return decoders
}

func buildNotification(eventType enums.OutboxEventType, payload any) *models.AdminNotification {
	switch p := payload.(type) {
	case payloads.DistributorOrderApprovedEvent:
		message := fmt.Sprintf("Invoice %s for %s %s sent.", p.StripeInvoiceID, formatAmount(p.TotalCents), p.Currency)
		if p.BackOrderCount > 0 {
			message += fmt.Sprintf(" %d item(s) back-ordered.", p.BackOrderCount)
		}
		return &models.AdminNotification{
			Type:    enums.NotificationTypeOrderApproved,
			Title:   fmt.Sprintf("Order #%d approved", p.OrderNumber),
			Message: message,
			Link:    link("/distributor-orders/%s", p.OrderID),
		}
	case payloads.DistributorOrderRejectedEvent:
		return &models.AdminNotification{
			Type:    enums.NotificationTypeOrderRejected,
			Title:   fmt.Sprintf("Order #%d rejected", p.OrderNumber),
			Message: strings.TrimSpace("Reason: " + p.Reason),
			Link:    link("/distributor-orders/%s", p.OrderID),
		}
	case payloads.InvoiceCompensationFailedEvent:
		return &models.AdminNotification{
			Type:  enums.NotificationTypeCompensationFailed,
			Title: "Invoice void failed",
			Message: fmt.Sprintf("Stripe invoice %s for order %s could not be voided (%s): %s. Void it in Stripe, then resolve the intent.",
				p.StripeInvoiceID, p.OrderID, p.Source, p.Error),
			Link: link("/invoice-intents/%s", p.IntentID),
		}
	case payloads.InvoicePaymentEvent:
		if eventType == enums.EventInvoicePaymentFailed {
			return &models.AdminNotification{
				Type:    enums.NotificationTypeInvoicePaymentFailed,
				Title:   "Invoice payment failed",
				Message: fmt.Sprintf("Payment for invoice %s (%s) failed.", p.StripeInvoiceID, formatAmount(p.AmountCents)),
				Link:    link("/invoices/%s", p.InvoiceID),
			}
		}
		return &models.AdminNotification{
			Type:    enums.NotificationTypeInvoicePaid,
			Title:   "Invoice paid",
			Message: fmt.Sprintf("Invoice %s was paid (%s).", p.StripeInvoiceID, formatAmount(p.AmountCents)),
			Link:    link("/invoices/%s", p.InvoiceID),
		}
	default:
		return nil
	}
}

func formatAmount(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func link(format string, id uuid.UUID) *string {
	value := fmt.Sprintf(format, id)
	return &value
}
