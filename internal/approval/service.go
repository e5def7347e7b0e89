package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/internal/companies"
	"github.com/finishpro/admin-backend/internal/distributororders"
	"github.com/finishpro/admin-backend/internal/invoices"
	"github.com/finishpro/admin-backend/internal/invoicing"
	"github.com/finishpro/admin-backend/pkg/config"
	"github.com/finishpro/admin-backend/pkg/db"
	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
	"github.com/finishpro/admin-backend/pkg/logger"
	"github.com/finishpro/admin-backend/pkg/metrics"
	"github.com/finishpro/admin-backend/pkg/outbox"
	"github.com/finishpro/admin-backend/pkg/outbox/payloads"
	"github.com/finishpro/admin-backend/pkg/types"
)

const (
	defaultApprovalTimeout = 60 * time.Second
	maxBackOrderNoteLen    = 500
	maxOverrideReasonLen   = 500
)

// Service approves pending distributor orders and issues their invoices.
type Service interface {
	Approve(ctx context.Context, input ApproveInput) (*ApproveResult, error)
}

// ServiceParams wires the approval flow.
type ServiceParams struct {
	Orders      distributororders.Repository
	Companies   companies.Repository
	Invoices    invoices.Repository
	Intents     invoices.IntentRepository
	Gateway     invoicing.Gateway
	TxRunner    txRunner
	Outbox      outboxPublisher
	Compensator *Compensator
	Logger      *logger.Logger
	Metrics     *metrics.ApprovalMetrics
	Config      config.ApprovalConfig
}

type service struct {
	orders      distributororders.Repository
	companies   companies.Repository
	invoices    invoices.Repository
	intents     invoices.IntentRepository
	gateway     invoicing.Gateway
	tx          txRunner
	outbox      outboxPublisher
	compensator *Compensator
	logg        *logger.Logger
	metrics     *metrics.ApprovalMetrics
	timeout     time.Duration
	now         func() time.Time
}

// NewService validates dependencies and builds the approval service. A
// compensator is derived from the same dependencies when none is supplied.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("distributor orders repository required")
	}
	if params.Companies == nil {
		return nil, fmt.Errorf("companies repository required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoices repository required")
	}
	if params.Intents == nil {
		return nil, fmt.Errorf("intent repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("invoicing gateway required")
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

	compensator := params.Compensator
	if compensator == nil {
		var err error
		compensator, err = NewCompensator(CompensatorParams{
			Gateway:     params.Gateway,
			Intents:     params.Intents,
			TxRunner:    params.TxRunner,
			Outbox:      params.Outbox,
			Logger:      params.Logger,
			Metrics:     params.Metrics,
			VoidTimeout: params.Config.VoidTimeout,
		})
		if err != nil {
			return nil, err
		}
	}

	timeout := params.Config.Timeout
	if timeout <= 0 {
		timeout = defaultApprovalTimeout
	}

	return &service{
		orders:      params.Orders,
		companies:   params.Companies,
		invoices:    params.Invoices,
		intents:     params.Intents,
		gateway:     params.Gateway,
		tx:          params.TxRunner,
		outbox:      params.Outbox,
		compensator: compensator,
		logg:        params.Logger,
		metrics:     params.Metrics,
		timeout:     timeout,
		now:         time.Now,
	}, nil
}

// Approve prices the in-stock lines, issues and sends a provider invoice, then
// records the review locally. A local failure after the invoice was finalized
// voids it once and returns the original error.
func (s *service) Approve(ctx context.Context, input ApproveInput) (result *ApproveResult, err error) {
	started := s.now()
	defer func() {
		s.metrics.ObserveApproval(outcomeLabel(err), s.now().Sub(started))
	}()

	if input.ReviewerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reviewer id required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	// Provider side effects must not be abandoned halfway when the client goes away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load distributor order")
	}
	if order.Status != enums.DistributorOrderStatusPendingReview {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already reviewed").
			WithDetails(map[string]any{"status": order.Status})
	}
	if err := validateInput(order, input); err != nil {
		return nil, err
	}

	company := order.Company
	if company == nil {
		company, err = s.companies.FindByID(ctx, order.CompanyID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load company")
		}
	}

	p := buildPlan(order, input.Decisions, input.ShippingOverrideCents)
	billing := input.BillingOverride.Apply(order.BillingAddress)
	shipping := input.ShippingOverride.Apply(order.ShippingAddress)

	intent, err := s.openIntent(ctx, order, input.ReviewerID, p.totalCents)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithIntentID(ctx, intent.ID.String())

	customerID, err := s.ensureCustomer(ctx, company, billing, shipping)
	if err != nil {
		s.compensator.Compensate(ctx, intent, SourceApproval, err)
		return nil, err
	}

	draft, err := s.gateway.CreateInvoice(ctx, invoicing.InvoiceInput{
		CustomerID:     customerID,
		Currency:       order.Currency,
		OrderID:        order.ID,
		CompanyID:      order.CompanyID,
		IntentID:       intent.ID,
		PONumber:       order.PONumber,
		Description:    fmt.Sprintf("Distributor order #%d", order.OrderNumber),
		IdempotencyKey: intent.IdempotencyKey,
	})
	if err != nil {
		err = providerFailure(err, "create invoice")
		s.compensator.Compensate(ctx, intent, SourceApproval, err)
		return nil, err
	}
	intent.StripeInvoiceID = &draft.ID
	if err := s.intents.Update(ctx, intent.ID, map[string]any{
		"status":            enums.InvoiceIntentStatusInvoiceCreated,
		"stripe_invoice_id": draft.ID,
	}); err != nil {
		err = pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record draft invoice")
		s.compensator.DiscardDraft(ctx, intent, err)
		return nil, err
	}
	intent.Status = enums.InvoiceIntentStatusInvoiceCreated
	ctx = s.logg.WithField(ctx, "stripe_invoice_id", draft.ID)

	if err := s.addInvoiceItems(ctx, customerID, draft.ID, order.Currency, p, intent.IdempotencyKey); err != nil {
		s.compensator.DiscardDraft(ctx, intent, err)
		return nil, err
	}

	finalized, err := s.gateway.FinalizeInvoice(ctx, draft.ID, intent.IdempotencyKey+":finalize")
	if err != nil {
		err = providerFailure(err, "finalize invoice")
		s.compensator.DiscardDraft(ctx, intent, err)
		return nil, err
	}
	if err := s.intents.Update(ctx, intent.ID, map[string]any{"status": enums.InvoiceIntentStatusFinalized}); err != nil {
		err = pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record finalized invoice")
		s.compensator.Void(ctx, intent, SourceApproval, err)
		return nil, err
	}
	intent.Status = enums.InvoiceIntentStatusFinalized

	sent, err := s.gateway.SendInvoice(ctx, draft.ID, intent.IdempotencyKey+":send")
	if err != nil {
		err = providerFailure(err, "send invoice")
		s.compensator.Void(ctx, intent, SourceApproval, err)
		return nil, err
	}
	issued := finalized
	if sent != nil {
		issued = sent
	}
	var invoiceNumber, hostedURL string
	if issued != nil {
		invoiceNumber = issued.Number
		hostedURL = issued.HostedInvoiceURL
	}

	reviewedAt := s.now().UTC()
	status := p.status()
	claim := distributororders.ReviewClaim{
		OrderID:    order.ID,
		Status:     status,
		ReviewedBy: input.ReviewerID,
		ReviewedAt: reviewedAt,
	}
	if !input.BillingOverride.IsEmpty() {
		claim.BillingOverride = &billing
	}
	if !input.ShippingOverride.IsEmpty() {
		claim.ShippingOverride = &shipping
	}
	if input.ShippingOverrideCents != nil {
		claim.ShippingOverrideCents = input.ShippingOverrideCents
		reason := strings.TrimSpace(derefString(input.ShippingOverrideReason))
		claim.ShippingOverrideReason = &reason
	}

	var record *models.Invoice
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		claimed, err := orders.ClaimForReview(ctx, claim)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record order review")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already reviewed")
		}

		record, err = s.invoices.WithTx(tx).CreateInvoice(ctx, buildInvoiceRecord(order, intent, issued, p, billing, shipping, input.ReviewerID, reviewedAt))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record invoice")
		}

		if err := orders.UpdateItems(ctx, order.ID, itemUpdates(p, input.Decisions)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record item fulfillment")
		}

		committed, err := s.intents.WithTx(tx).Transition(ctx, intent.ID,
			[]enums.InvoiceIntentStatus{enums.InvoiceIntentStatusFinalized},
			map[string]any{
				"status":       enums.InvoiceIntentStatusCommitted,
				"committed_at": reviewedAt,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "commit invoice intent")
		}
		if !committed {
			return pkgerrors.New(pkgerrors.CodePersistence, "invoice intent is no longer finalized")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDistributorOrderApproved,
			AggregateType: enums.AggregateDistributorOrder,
			AggregateID:   order.ID,
			Actor:         outbox.AdminActor(input.ReviewerID),
			Data: payloads.DistributorOrderApprovedEvent{
				OrderID:         order.ID,
				CompanyID:       order.CompanyID,
				OrderNumber:     order.OrderNumber,
				InvoiceID:       record.ID,
				StripeInvoiceID: draft.ID,
				Status:          status,
				InStockCount:    len(p.inStock),
				BackOrderCount:  len(p.backOrder),
				TotalCents:      p.totalCents,
				Currency:        order.Currency,
				ReviewedBy:      input.ReviewerID,
				ReviewedAt:      reviewedAt,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record approval")
		}
		s.logg.Error(ctx, "approval not recorded after invoice was sent", err)
		s.compensator.Void(ctx, intent, SourceApproval, err)
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"invoice_id":       record.ID.String(),
		"status":           status,
		"in_stock_count":   len(p.inStock),
		"back_order_count": len(p.backOrder),
		"total_cents":      p.totalCents,
	}), "distributor order approved")

	return &ApproveResult{
		Success:           true,
		InvoiceID:         record.ID,
		ExternalInvoiceID: draft.ID,
		InvoiceNumber:     invoiceNumber,
		HostedInvoiceURL:  hostedURL,
		Status:            status,
		InStockCount:      len(p.inStock),
		BackOrderCount:    len(p.backOrder),
		Currency:          order.Currency,
		SubtotalCents:     p.subtotalCents,
		ShippingCents:     p.shippingCents,
		VATCents:          p.vatCents,
		TotalCents:        p.totalCents,
	}, nil
}

// validateInput runs every check that needs no provider or database write.
func validateInput(order *models.DistributorOrder, input ApproveInput) error {
	known := make(map[uuid.UUID]struct{}, len(order.Items))
	for _, item := range order.Items {
		known[item.ID] = struct{}{}
		decision, ok := input.Decisions[item.ID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "every order item needs a fulfillment decision").
				WithDetails(map[string]any{"item_id": item.ID})
		}
		if !decision.Decision.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid fulfillment decision").
				WithDetails(map[string]any{"item_id": item.ID, "decision": decision.Decision})
		}
	}
	for itemID := range input.Decisions {
		if _, ok := known[itemID]; !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "decision references an item outside this order").
				WithDetails(map[string]any{"item_id": itemID})
		}
	}

	inStock := 0
	for _, item := range order.Items {
		decision := input.Decisions[item.ID]
		if decision.Decision == enums.FulfillmentDecisionInStock {
			inStock++
			continue
		}
		if decision.PredictedDeliveryDate == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "predicted delivery date required for back-ordered items").
				WithDetails(map[string]any{"item_id": item.ID})
		}
		if decision.Note != nil && len(*decision.Note) > maxBackOrderNoteLen {
			return pkgerrors.New(pkgerrors.CodeValidation, "back-order note too long").
				WithDetails(map[string]any{"item_id": item.ID})
		}
	}
	if inStock == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "nothing to invoice: mark at least one item in stock")
	}

	if input.ShippingOverrideCents != nil {
		if *input.ShippingOverrideCents < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "shipping override cannot be negative")
		}
		reason := strings.TrimSpace(derefString(input.ShippingOverrideReason))
		if reason == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "shipping override requires a justification")
		}
		if len(reason) > maxOverrideReasonLen {
			return pkgerrors.New(pkgerrors.CodeValidation, "shipping override justification too long")
		}
	}
	return nil
}

func (s *service) openIntent(ctx context.Context, order *models.DistributorOrder, reviewerID uuid.UUID, totalCents int64) (*models.InvoiceIntent, error) {
	count, err := s.intents.CountForOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count invoice intents")
	}
	attempt := int(count) + 1
	intent := &models.InvoiceIntent{
		ID:             uuid.New(),
		OrderID:        order.ID,
		CompanyID:      order.CompanyID,
		Attempt:        attempt,
		IdempotencyKey: IdempotencyKey(order.ID, attempt),
		Status:         enums.InvoiceIntentStatusPending,
		TotalCents:     totalCents,
		CreatedBy:      reviewerID,
	}
	if err := s.intents.Create(ctx, intent); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order has an open invoice attempt")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record invoice intent")
	}
	return intent, nil
}

// ensureCustomer creates the company's provider customer on first use, then
// applies this order's addresses. Creation carries company data only.
func (s *service) ensureCustomer(ctx context.Context, company *models.Company, billing, shipping types.Address) (string, error) {
	input := companyCustomerInput(company)
	input.BillingAddress = billing
	input.ShippingAddress = shipping

	customerID := strings.TrimSpace(derefString(company.StripeCustomerID))
	if customerID == "" {
		created, err := s.createCustomer(ctx, company)
		if err != nil {
			return "", err
		}
		customerID = created
	}
	if err := s.gateway.UpdateCustomer(ctx, customerID, input); err != nil {
		return "", providerFailure(err, "update customer")
	}
	return customerID, nil
}

func (s *service) createCustomer(ctx context.Context, company *models.Company) (string, error) {
	customerID, err := s.gateway.CreateCustomer(ctx, companyCustomerInput(company))
	if err != nil {
		return "", providerFailure(err, "create customer")
	}
	linked, err := s.companies.SetStripeCustomerID(ctx, company.ID, customerID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodePersistence, err, "link provider customer")
	}
	if linked {
		return customerID, nil
	}

	current, err := s.companies.FindByID(ctx, company.ID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload company")
	}
	stored := strings.TrimSpace(derefString(current.StripeCustomerID))
	if stored == "" {
		return customerID, nil
	}
	if stored != customerID {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"company_id":         company.ID.String(),
			"stripe_customer_id": stored,
			"unused_customer_id": customerID,
		}), "company already linked to another provider customer")
	}
	return stored, nil
}

func companyCustomerInput(company *models.Company) invoicing.CustomerInput {
	input := invoicing.CustomerInput{
		CompanyID: company.ID,
		Name:      company.Name,
		Email:     company.Email,
		Phone:     company.Phone,
	}
	if company.BillingAddress != nil {
		input.BillingAddress = *company.BillingAddress
	}
	if company.ShippingAddress != nil {
		input.ShippingAddress = *company.ShippingAddress
	}
	return input
}

func (s *service) addInvoiceItems(ctx context.Context, customerID, invoiceID string, currency enums.Currency, p plan, key string) error {
	for i, item := range p.inStock {
		err := s.gateway.AddInvoiceItem(ctx, invoicing.InvoiceItemInput{
			CustomerID:  customerID,
			InvoiceID:   invoiceID,
			Currency:    currency,
			AmountCents: item.LineTotalCents,
			Description: fmt.Sprintf("%s %s x%d @ %s", item.ProductCode, item.Description, item.Qty, formatCents(item.UnitPriceCents)),
			Metadata: map[string]string{
				"order_item_id": item.ID.String(),
				"product_code":  item.ProductCode,
				"qty":           fmt.Sprintf("%d", item.Qty),
			},
			IdempotencyKey: fmt.Sprintf("%s:item:%d", key, i+1),
		})
		if err != nil {
			return providerFailure(err, "add invoice item")
		}
	}

	if p.shippingCents > 0 {
		err := s.gateway.AddInvoiceItem(ctx, invoicing.InvoiceItemInput{
			CustomerID:     customerID,
			InvoiceID:      invoiceID,
			Currency:       currency,
			AmountCents:    p.shippingCents,
			Description:    "Shipping",
			Metadata:       map[string]string{"line": "shipping"},
			IdempotencyKey: key + ":shipping",
		})
		if err != nil {
			return providerFailure(err, "add shipping line")
		}
	}

	if p.vatCents > 0 {
		err := s.gateway.AddInvoiceItem(ctx, invoicing.InvoiceItemInput{
			CustomerID:     customerID,
			InvoiceID:      invoiceID,
			Currency:       currency,
			AmountCents:    p.vatCents,
			Description:    fmt.Sprintf("VAT (%s%%)", p.vatRate.Mul(decimal.NewFromInt(100)).StringFixed(2)),
			Metadata:       map[string]string{"line": "vat"},
			IdempotencyKey: key + ":vat",
		})
		if err != nil {
			return providerFailure(err, "add vat line")
		}
	}
	return nil
}

func buildInvoiceRecord(
	order *models.DistributorOrder,
	intent *models.InvoiceIntent,
	issued *invoicing.ProviderInvoice,
	p plan,
	billing, shipping types.Address,
	reviewerID uuid.UUID,
	issuedAt time.Time,
) *models.Invoice {
	intentID := intent.ID
	record := &models.Invoice{
		OrderID:         order.ID,
		CompanyID:       order.CompanyID,
		IntentID:        &intentID,
		StripeInvoiceID: derefString(intent.StripeInvoiceID),
		Status:          enums.InvoiceStatusOpen,
		Currency:        order.Currency,
		PONumber:        order.PONumber,
		SubtotalCents:   p.subtotalCents,
		ShippingCents:   p.shippingCents,
		VATCents:        p.vatCents,
		TotalCents:      p.totalCents,
		BillingAddress:  billing,
		ShippingAddress: shipping,
		IssuedBy:        reviewerID,
		IssuedAt:        issuedAt,
		Items:           make([]models.InvoiceItem, 0, len(p.inStock)),
	}
	if issued != nil {
		record.InvoiceNumber = optionalString(issued.Number)
		record.HostedInvoiceURL = optionalString(issued.HostedInvoiceURL)
		record.InvoicePDFURL = optionalString(issued.InvoicePDFURL)
	}
	for i, item := range p.inStock {
		record.Items = append(record.Items, models.InvoiceItem{
			OrderItemID:    item.ID,
			LineNumber:     i + 1,
			ProductCode:    item.ProductCode,
			Description:    item.Description,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return record
}

func itemUpdates(p plan, decisions map[uuid.UUID]ItemDecision) []distributororders.ItemUpdate {
	updates := make([]distributororders.ItemUpdate, 0, len(p.inStock)+len(p.backOrder))
	for _, item := range p.inStock {
		updates = append(updates, distributororders.ItemUpdate{
			ItemID: item.ID,
			Status: enums.DistributorOrderItemStatusFulfilled,
		})
	}
	for _, item := range p.backOrder {
		decision := decisions[item.ID]
		update := distributororders.ItemUpdate{
			ItemID:                item.ID,
			Status:                enums.DistributorOrderItemStatusBackOrder,
			PredictedDeliveryDate: decision.PredictedDeliveryDate,
		}
		if decision.Note != nil {
			if note := strings.TrimSpace(*decision.Note); note != "" {
				update.BackOrderNote = &note
			}
		}
		updates = append(updates, update)
	}
	return updates
}

func providerFailure(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeProvider, err, op)
}

func outcomeLabel(err error) string {
	if err == nil {
		return "approved"
	}
	return strings.ToLower(string(pkgerrors.CodeOf(err)))
}

func formatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func optionalString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
