package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finishpro/admin-backend/api/middleware"
	"github.com/finishpro/admin-backend/api/responses"
	"github.com/finishpro/admin-backend/api/validators"
	"github.com/finishpro/admin-backend/internal/approval"
	"github.com/finishpro/admin-backend/internal/distributororders"
	"github.com/finishpro/admin-backend/pkg/enums"
	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
	"github.com/finishpro/admin-backend/pkg/logger"
	"github.com/finishpro/admin-backend/pkg/types"
)

const maxReasonLength = 2000

type itemDecisionRequest struct {
	Decision              string  `json:"decision" validate:"required,oneof=in_stock back_order"`
	PredictedDeliveryDate *string `json:"predicted_delivery_date,omitempty"`
	Note                  *string `json:"note,omitempty" validate:"omitempty,max=2000"`
}

type approveOrderRequest struct {
	Decisions              map[string]itemDecisionRequest `json:"decisions" validate:"required,min=1,dive"`
	BillingOverride        *types.AddressOverride          `json:"billing_override,omitempty"`
	ShippingOverride       *types.AddressOverride          `json:"shipping_override,omitempty"`
	ShippingOverrideCents  *int64                          `json:"shipping_override_cents,omitempty" validate:"omitempty,min=0"`
	ShippingOverrideReason *string                         `json:"shipping_override_reason,omitempty" validate:"omitempty,max=500"`
}

type rejectOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// ListDistributorOrders returns the review queue.
func ListDistributorOrders(svc distributororders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "distributor orders service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters distributororders.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseDistributorOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filters.Status = &status
		}
		if filters.CompanyID, err = validators.ParseQueryUUID(r, "company_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetDistributorOrder returns one order with its items and company.
func GetDistributorOrder(svc distributororders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "distributor orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// ApproveDistributorOrder invoices the in-stock subset of a pending order.
func ApproveDistributorOrder(svc approval.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approval service unavailable"))
			return
		}

		reviewerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body approveOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput(orderID, reviewerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		result, err := svc.Approve(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// RejectDistributorOrder rejects a pending order outright.
func RejectDistributorOrder(svc distributororders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "distributor orders service unavailable"))
			return
		}

		reviewerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body rejectOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reason := validators.SanitizeString(body.Reason, maxReasonLength)
		if reason == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reason is required"))
			return
		}

		result, err := svc.Reject(r.Context(), distributororders.RejectInput{
			OrderID:    orderID,
			ReviewerID: reviewerID,
			Reason:     reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func (req approveOrderRequest) toInput(orderID, reviewerID uuid.UUID) (approval.ApproveInput, error) {
	decisions := make(map[uuid.UUID]approval.ItemDecision, len(req.Decisions))
	for rawID, item := range req.Decisions {
		itemID, err := uuid.Parse(strings.TrimSpace(rawID))
		if err != nil {
			return approval.ApproveInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id").
				WithDetails(map[string]any{"item_id": rawID})
		}
		if _, seen := decisions[itemID]; seen {
			return approval.ApproveInput{}, pkgerrors.New(pkgerrors.CodeValidation, "duplicate item decision").
				WithDetails(map[string]any{"item_id": itemID.String()})
		}
		decision, err := enums.ParseFulfillmentDecision(item.Decision)
		if err != nil {
			return approval.ApproveInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid decision").
				WithDetails(map[string]any{"item_id": rawID})
		}
		parsed := approval.ItemDecision{Decision: decision, Note: item.Note}
		if item.PredictedDeliveryDate != nil {
			date, err := parseDeliveryDate(*item.PredictedDeliveryDate)
			if err != nil {
				return approval.ApproveInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid predicted delivery date").
					WithDetails(map[string]any{"item_id": rawID})
			}
			parsed.PredictedDeliveryDate = &date
		}
		decisions[itemID] = parsed
	}

	return approval.ApproveInput{
		OrderID:                orderID,
		ReviewerID:             reviewerID,
		Decisions:              decisions,
		BillingOverride:        req.BillingOverride,
		ShippingOverride:       req.ShippingOverride,
		ShippingOverrideCents:  req.ShippingOverrideCents,
		ShippingOverrideReason: req.ShippingOverrideReason,
	}, nil
}

// parseDeliveryDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDeliveryDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if date, err := time.Parse(time.DateOnly, raw); err == nil {
		return date, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}
