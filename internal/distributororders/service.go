package distributororders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/pkg/enums"
	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
	"github.com/finishpro/admin-backend/pkg/outbox"
	"github.com/finishpro/admin-backend/pkg/outbox/payloads"
	"github.com/finishpro/admin-backend/pkg/pagination"
)

const maxRejectionReasonLen = 1000

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the admin review surface for distributor orders. Approval
// lives in the approval package because it coordinates the payment provider.
type Service interface {
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
	Reject(ctx context.Context, input RejectInput) (*RejectResult, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

// NewService builds the distributor order review service.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("distributor orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
		now:    time.Now,
	}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list distributor orders")
	}
	return list, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load distributor order")
	}
	return toDetail(order), nil
}

func (s *service) Reject(ctx context.Context, input RejectInput) (*RejectResult, error) {
	if input.ReviewerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reviewer id required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}
	if len(reason) > maxRejectionReasonLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason too long")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load distributor order")
	}
	if order.Status != enums.DistributorOrderStatusPendingReview {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already reviewed")
	}

	reviewedAt := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		claimed, err := s.repo.WithTx(tx).ClaimForReview(ctx, ReviewClaim{
			OrderID:         order.ID,
			Status:          enums.DistributorOrderStatusRejected,
			ReviewedBy:      input.ReviewerID,
			ReviewedAt:      reviewedAt,
			RejectionReason: &reason,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "reject distributor order")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already reviewed")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDistributorOrderRejected,
			AggregateType: enums.AggregateDistributorOrder,
			AggregateID:   order.ID,
			Actor:         outbox.AdminActor(input.ReviewerID),
			Data: payloads.DistributorOrderRejectedEvent{
				OrderID:     order.ID,
				CompanyID:   order.CompanyID,
				OrderNumber: order.OrderNumber,
				Reason:      reason,
				ReviewedBy:  input.ReviewerID,
				ReviewedAt:  reviewedAt,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "reject distributor order")
	}

	return &RejectResult{OrderID: order.ID, Status: enums.DistributorOrderStatusRejected}, nil
}
