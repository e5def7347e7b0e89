package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/pkg/enums"
	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
	"github.com/finishpro/admin-backend/pkg/pagination"
)

// Service exposes invoices and approval attempts to the admin console.
type Service interface {
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*InvoiceList, error)
	Get(ctx context.Context, invoiceID uuid.UUID) (*InvoiceDetail, error)
	ListIntents(ctx context.Context, params pagination.Params, filters IntentFilters) (*IntentList, error)
	ResolveIntent(ctx context.Context, input ResolveIntentInput) (*IntentSummary, error)
}

type service struct {
	repo    Repository
	intents IntentRepository
	now     func() time.Time
}

// NewService wires the invoice read surface and intent resolution.
func NewService(repo Repository, intents IntentRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if intents == nil {
		return nil, fmt.Errorf("intent repository required")
	}
	return &service{repo: repo, intents: intents, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*InvoiceList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}
	return list, nil
}

func (s *service) Get(ctx context.Context, invoiceID uuid.UUID) (*InvoiceDetail, error) {
	invoice, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	return toDetail(invoice), nil
}

func (s *service) ListIntents(ctx context.Context, params pagination.Params, filters IntentFilters) (*IntentList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	list, err := s.intents.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoice intents")
	}
	return list, nil
}

// ResolveIntent records that an operator dealt with an orphaned provider invoice,
// which unlocks the order for another approval attempt.
func (s *service) ResolveIntent(ctx context.Context, input ResolveIntentInput) (*IntentSummary, error) {
	if input.IntentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id required")
	}
	if input.OperatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operator id required")
	}

	now := s.now().UTC()
	moved, err := s.intents.Transition(ctx, input.IntentID,
		[]enums.InvoiceIntentStatus{enums.InvoiceIntentStatusVoidFailed},
		map[string]any{
			"status":      enums.InvoiceIntentStatusResolved,
			"resolved_at": now,
			"resolved_by": input.OperatorID,
		})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "resolve invoice intent")
	}

	intent, err := s.intents.FindByID(ctx, input.IntentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice intent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice intent")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "only void_failed intents can be resolved").
			WithDetails(map[string]any{"status": intent.Status})
	}
	summary := toIntentSummary(intent)
	return &summary, nil
}
