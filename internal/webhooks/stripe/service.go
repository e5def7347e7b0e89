package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/internal/invoices"
	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
	"github.com/finishpro/admin-backend/pkg/logger"
	"github.com/finishpro/admin-backend/pkg/outbox"
	"github.com/finishpro/admin-backend/pkg/outbox/payloads"
)

const ledgerConsumer = "stripe-webhook"

// DedupeTTL bounds how long a Stripe event id is remembered. Stripe retries
// failed deliveries for up to three days.
const DedupeTTL = 72 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type deliveryLedger interface {
	Claim(ctx context.Context, consumer, id string) (bool, error)
	Release(ctx context.Context, consumer, id string) error
}

type intentLookup interface {
	HasActiveForStripeInvoice(ctx context.Context, stripeInvoiceID string) (bool, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires the Stripe invoice webhook handler.
type ServiceParams struct {
	Invoices          invoices.Repository
	Intents           intentLookup
	TransactionRunner txRunner
	Outbox            eventEmitter
	Deliveries        deliveryLedger
	Logger            *logger.Logger
}

// Service mirrors Stripe invoice payment state onto local invoices.
type Service struct {
	invoices invoices.Repository
	intents  intentLookup
	txRunner txRunner
	outbox   eventEmitter
	ledger   deliveryLedger
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Invoices == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "invoices repo required")
	}
	if params.Intents == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "intents repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox required")
	}
	if params.Deliveries == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "delivery ledger required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		invoices: params.Invoices,
		intents:  params.Intents,
		txRunner: params.TransactionRunner,
		outbox:   params.Outbox,
		ledger:   params.Deliveries,
		logg:     params.Logger,
	}, nil
}

// Process handles a verified event at most once per event id. The dedupe
// marker is cleared when handling fails so Stripe's retry is processed.
func (s *Service) Process(ctx context.Context, event *stripe.Event) (duplicate bool, err error) {
	if event == nil || event.ID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "stripe event id required")
	}
	first, err := s.ledger.Claim(ctx, ledgerConsumer, event.ID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook idempotency")
	}
	if !first {
		return true, nil
	}

	if err := s.HandleEvent(ctx, event); err != nil {
		if delErr := s.ledger.Release(ctx, ledgerConsumer, event.ID); delErr != nil {
			s.logg.Error(ctx, "failed to clear webhook idempotency key", delErr)
		}
		return false, err
	}
	return false, nil
}

// HandleEvent applies invoice payment events; other event types are ignored.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	var next enums.InvoiceStatus
	switch event.Type {
	case stripe.EventTypeInvoicePaid:
		next = enums.InvoiceStatusPaid
	case stripe.EventTypeInvoicePaymentFailed:
		next = enums.InvoiceStatusPaymentFailed
	case stripe.EventTypeInvoiceVoided:
		next = enums.InvoiceStatusVoid
	case stripe.EventTypeInvoiceMarkedUncollectible:
		next = enums.InvoiceStatusUncollectible
	default:
		return nil
	}

	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode invoice event")
	}
	if inv.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice id missing")
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_invoice_id": inv.ID,
		"event_type":        string(event.Type),
	})

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.invoices.WithTx(tx)
		stored, err := repo.FindByStripeInvoiceID(ctx, inv.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return s.unrecorded(logCtx, inv.ID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
		}
		if !canTransition(stored.Status, next) {
			s.logg.Info(s.logg.WithField(logCtx, "current_status", stored.Status), "stale invoice status event ignored")
			return nil
		}

		var paidAt *time.Time
		if next == enums.InvoiceStatusPaid {
			at := time.Now().UTC()
			if inv.StatusTransitions != nil && inv.StatusTransitions.PaidAt > 0 {
				at = time.Unix(inv.StatusTransitions.PaidAt, 0).UTC()
			}
			paidAt = &at
		}
		if err := repo.UpdatePaymentStatus(ctx, stored.ID, next, paidAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update invoice status")
		}

		return s.emit(ctx, tx, stored, &inv, next, time.Unix(event.Created, 0).UTC())
	})
}

// unrecorded handles events for invoices with no local row. While the approval
// that created the invoice is still running the event is failed so Stripe
// redelivers it; voided compensation invoices are ignored.
func (s *Service) unrecorded(ctx context.Context, stripeInvoiceID string) error {
	pending, err := s.intents.HasActiveForStripeInvoice(ctx, stripeInvoiceID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice intent")
	}
	if pending {
		s.logg.Warn(ctx, "stripe invoice approval still in progress; requesting redelivery")
		return pkgerrors.New(pkgerrors.CodeDependency, "invoice approval in progress")
	}
	s.logg.Info(ctx, "stripe invoice not recorded locally; ignoring")
	return nil
}

func (s *Service) emit(ctx context.Context, tx *gorm.DB, stored *models.Invoice, inv *stripe.Invoice, status enums.InvoiceStatus, occurredAt time.Time) error {
	var eventType enums.OutboxEventType
	amount := inv.AmountPaid
	switch status {
	case enums.InvoiceStatusPaid:
		eventType = enums.EventInvoicePaid
	case enums.InvoiceStatusPaymentFailed:
		eventType = enums.EventInvoicePaymentFailed
		amount = inv.AmountDue
	default:
		return nil
	}
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   stored.ID,
		Actor:         outbox.SystemActor("stripe-webhook"),
		Data: payloads.InvoicePaymentEvent{
			InvoiceID:       stored.ID,
			OrderID:         stored.OrderID,
			CompanyID:       stored.CompanyID,
			StripeInvoiceID: inv.ID,
			Status:          status,
			AmountCents:     amount,
			OccurredAt:      occurredAt,
		},
	}
	var err error
	if eventType == enums.EventInvoicePaid {
		err = s.outbox.EmitIfNotExists(ctx, tx, event)
	} else {
		err = s.outbox.Emit(ctx, tx, event)
	}
	if err != nil {
		return fmt.Errorf("emit %s: %w", eventType, err)
	}
	return nil
}

// canTransition rejects out-of-order deliveries: paid and void are final, and
// a late payment failure never reopens an uncollectible invoice.
func canTransition(current, next enums.InvoiceStatus) bool {
	switch current {
	case enums.InvoiceStatusPaid, enums.InvoiceStatusVoid:
		return false
	case enums.InvoiceStatusUncollectible:
		return next == enums.InvoiceStatusPaid || next == enums.InvoiceStatusVoid
	default:
		return current != next || next == enums.InvoiceStatusPaymentFailed
	}
}
