package approval

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/internal/invoicing"
	"github.com/finishpro/admin-backend/internal/invoices"
	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
	"github.com/finishpro/admin-backend/pkg/logger"
	"github.com/finishpro/admin-backend/pkg/metrics"
	"github.com/finishpro/admin-backend/pkg/outbox"
	"github.com/finishpro/admin-backend/pkg/outbox/payloads"
)

const defaultVoidTimeout = 20 * time.Second

// Compensation results, also used as metric labels.
const (
	ResultVoided            = "voided"
	ResultVoidFailed        = "void_failed"
	ResultDraftDeleted      = "draft_deleted"
	ResultDraftDeleteFailed = "draft_delete_failed"
	ResultNoInvoice         = "no_invoice"
	ResultSkipped           = "skipped"
)

// Compensation sources recorded on events and logs.
const (
	SourceApproval  = "approval"
	SourceReconcile = "reconcile"
	SourceOperator  = "operator"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CompensatorParams wires the compensating actions for provider invoices.
type CompensatorParams struct {
	Gateway     invoicing.Gateway
	Intents     invoices.IntentRepository
	TxRunner    txRunner
	Outbox      outboxPublisher
	Logger      *logger.Logger
	Metrics     *metrics.ApprovalMetrics
	VoidTimeout time.Duration
}

// Compensator undoes provider invoices whose approval never committed locally.
// It is shared by the approval flow, the reconcile job and the operator CLI.
type Compensator struct {
	gateway     invoicing.Gateway
	intents     invoices.IntentRepository
	tx          txRunner
	outbox      outboxPublisher
	logg        *logger.Logger
	metrics     *metrics.ApprovalMetrics
	voidTimeout time.Duration
}

// NewCompensator validates dependencies.
func NewCompensator(params CompensatorParams) (*Compensator, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("invoicing gateway required")
	}
	if params.Intents == nil {
		return nil, fmt.Errorf("intent repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := params.VoidTimeout
	if timeout <= 0 {
		timeout = defaultVoidTimeout
	}
	return &Compensator{
		gateway:     params.Gateway,
		intents:     params.Intents,
		tx:          params.TxRunner,
		outbox:      params.Outbox,
		logg:        params.Logger,
		metrics:     params.Metrics,
		voidTimeout: timeout,
	}, nil
}

// Compensate picks the action for an intent that will never commit. Intents
// without a provider invoice are marked failed, drafts are deleted (falling
// back to a void when the draft turns out to be finalized) and finalized
// invoices are voided.
func (c *Compensator) Compensate(ctx context.Context, intent *models.InvoiceIntent, source string, cause error) (string, error) {
	if intent == nil {
		return ResultSkipped, fmt.Errorf("intent required")
	}
	switch intent.Status {
	case enums.InvoiceIntentStatusPending:
		return c.markFailed(ctx, intent, cause)
	case enums.InvoiceIntentStatusInvoiceCreated:
		if intent.StripeInvoiceID == nil {
			return c.markFailed(ctx, intent, cause)
		}
		result, err := c.DiscardDraft(ctx, intent, cause)
		if err == nil {
			return result, nil
		}
		return c.Void(ctx, intent, source, cause)
	case enums.InvoiceIntentStatusFinalized, enums.InvoiceIntentStatusVoidFailed:
		if intent.StripeInvoiceID == nil {
			return c.markFailed(ctx, intent, cause)
		}
		return c.Void(ctx, intent, source, cause)
	default:
		return ResultSkipped, nil
	}
}

// DiscardDraft deletes a never-finalized provider invoice. On failure the
// intent keeps its state, with the error recorded, for the reconcile sweep.
func (c *Compensator) DiscardDraft(ctx context.Context, intent *models.InvoiceIntent, cause error) (string, error) {
	invoiceID := derefString(intent.StripeInvoiceID)
	ctx = c.logg.WithFields(ctx, map[string]any{
		"intent_id":         intent.ID.String(),
		"order_id":          intent.OrderID.String(),
		"stripe_invoice_id": invoiceID,
	})

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.voidTimeout)
	defer cancel()

	if err := c.gateway.DeleteDraftInvoice(callCtx, invoiceID); err != nil {
		c.metrics.IncCompensation(ResultDraftDeleteFailed)
		c.logg.Error(ctx, "failed to delete draft invoice", err)
		c.recordError(ctx, intent, combineErrors(cause, err))
		return ResultDraftDeleteFailed, err
	}

	moved, err := c.intents.Transition(ctx, intent.ID,
		[]enums.InvoiceIntentStatus{enums.InvoiceIntentStatusPending, enums.InvoiceIntentStatusInvoiceCreated},
		statusUpdate(enums.InvoiceIntentStatusFailed, cause))
	if err != nil {
		c.logg.Error(ctx, "failed to mark intent failed after draft deletion", err)
	} else if moved {
		intent.Status = enums.InvoiceIntentStatusFailed
	}
	c.metrics.IncCompensation(ResultDraftDeleted)
	c.logg.Warn(ctx, "draft invoice deleted")
	return ResultDraftDeleted, nil
}

// Void voids a finalized provider invoice exactly once. When the void fails the
// intent moves to void_failed and an invoice_compensation_failed event is
// written so operators are alerted.
func (c *Compensator) Void(ctx context.Context, intent *models.InvoiceIntent, source string, cause error) (string, error) {
	invoiceID := derefString(intent.StripeInvoiceID)
	ctx = c.logg.WithFields(ctx, map[string]any{
		"intent_id":         intent.ID.String(),
		"order_id":          intent.OrderID.String(),
		"stripe_invoice_id": invoiceID,
		"source":            source,
	})

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.voidTimeout)
	defer cancel()

	voidErr := c.gateway.VoidInvoice(callCtx, invoiceID)
	if voidErr == nil {
		moved, err := c.intents.Transition(ctx, intent.ID,
			[]enums.InvoiceIntentStatus{
				enums.InvoiceIntentStatusInvoiceCreated,
				enums.InvoiceIntentStatusFinalized,
				enums.InvoiceIntentStatusVoidFailed,
			},
			statusUpdate(enums.InvoiceIntentStatusVoided, cause))
		if err != nil {
			c.logg.Error(ctx, "invoice voided but intent update failed", err)
		} else if moved {
			intent.Status = enums.InvoiceIntentStatusVoided
		}
		c.metrics.IncCompensation(ResultVoided)
		c.logg.Warn(ctx, "provider invoice voided")
		return ResultVoided, nil
	}

	c.metrics.IncCompensation(ResultVoidFailed)
	alertCtx := c.logg.WithField(ctx, "manual_intervention", true)
	c.logg.Error(alertCtx, "failed to void provider invoice", voidErr)

	lastError := combineErrors(cause, voidErr)
	err := c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := c.intents.WithTx(tx).Transition(ctx, intent.ID,
			[]enums.InvoiceIntentStatus{
				enums.InvoiceIntentStatusInvoiceCreated,
				enums.InvoiceIntentStatusFinalized,
				enums.InvoiceIntentStatusVoidFailed,
			},
			map[string]any{
				"status":     enums.InvoiceIntentStatusVoidFailed,
				"last_error": lastError,
			})
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		return c.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvoiceCompensationFailed,
			AggregateType: enums.AggregateInvoiceIntent,
			AggregateID:   intent.ID,
			Actor:         outbox.SystemActor("invoice-compensation"),
			Data: payloads.InvoiceCompensationFailedEvent{
				IntentID:        intent.ID,
				OrderID:         intent.OrderID,
				CompanyID:       intent.CompanyID,
				StripeInvoiceID: invoiceID,
				Error:           voidErr.Error(),
				Source:          source,
			},
		})
	})
	if err != nil {
		c.logg.Error(alertCtx, "failed to record void failure", err)
	} else {
		intent.Status = enums.InvoiceIntentStatusVoidFailed
	}
	return ResultVoidFailed, voidErr
}

func (c *Compensator) markFailed(ctx context.Context, intent *models.InvoiceIntent, cause error) (string, error) {
	moved, err := c.intents.Transition(ctx, intent.ID,
		[]enums.InvoiceIntentStatus{
			enums.InvoiceIntentStatusPending,
			enums.InvoiceIntentStatusInvoiceCreated,
			enums.InvoiceIntentStatusFinalized,
			enums.InvoiceIntentStatusVoidFailed,
		},
		statusUpdate(enums.InvoiceIntentStatusFailed, cause))
	if err != nil {
		c.logg.Error(c.logg.WithIntentID(ctx, intent.ID.String()), "failed to mark intent failed", err)
		return ResultNoInvoice, err
	}
	if moved {
		intent.Status = enums.InvoiceIntentStatusFailed
	}
	c.metrics.IncCompensation(ResultNoInvoice)
	return ResultNoInvoice, nil
}

func (c *Compensator) recordError(ctx context.Context, intent *models.InvoiceIntent, message string) {
	if err := c.intents.Update(ctx, intent.ID, map[string]any{"last_error": message}); err != nil {
		c.logg.Error(ctx, "failed to record intent error", err)
	}
}

// statusUpdate keeps the previously recorded error when cause is nil.
func statusUpdate(status enums.InvoiceIntentStatus, cause error) map[string]any {
	updates := map[string]any{"status": status}
	if cause != nil {
		updates["last_error"] = cause.Error()
	}
	return updates
}

func combineErrors(cause, compensation error) string {
	if cause == nil {
		return compensation.Error()
	}
	return fmt.Sprintf("%s; compensation: %s", cause.Error(), compensation.Error())
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
