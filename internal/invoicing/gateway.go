package invoicing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/invoice"
	"github.com/stripe/stripe-go/v84/invoiceitem"

	"github.com/finishpro/admin-backend/pkg/enums"
	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
	pkgstripe "github.com/finishpro/admin-backend/pkg/stripe"
	"github.com/finishpro/admin-backend/pkg/types"
)

// Gateway is the payment-provider capability the approval flow depends on.
type Gateway interface {
	CreateCustomer(ctx context.Context, input CustomerInput) (string, error)
	UpdateCustomer(ctx context.Context, customerID string, input CustomerInput) error
	CreateInvoice(ctx context.Context, input InvoiceInput) (*ProviderInvoice, error)
	AddInvoiceItem(ctx context.Context, input InvoiceItemInput) error
	FinalizeInvoice(ctx context.Context, invoiceID, idempotencyKey string) (*ProviderInvoice, error)
	SendInvoice(ctx context.Context, invoiceID, idempotencyKey string) (*ProviderInvoice, error)
	VoidInvoice(ctx context.Context, invoiceID string) error
	// DeleteDraftInvoice removes a draft that was never finalized.
	DeleteDraftInvoice(ctx context.Context, invoiceID string) error
}

// CustomerInput carries the company fields mirrored onto the provider customer.
type CustomerInput struct {
	CompanyID       uuid.UUID
	Name            string
	Email           string
	Phone           *string
	BillingAddress  types.Address
	ShippingAddress types.Address
}

// InvoiceInput describes the draft invoice opened for an approval attempt.
type InvoiceInput struct {
	CustomerID     string
	Currency       enums.Currency
	OrderID        uuid.UUID
	CompanyID      uuid.UUID
	IntentID       uuid.UUID
	PONumber       *string
	Description    string
	IdempotencyKey string
}

// InvoiceItemInput is a single line attached to a draft invoice.
type InvoiceItemInput struct {
	CustomerID     string
	InvoiceID      string
	Currency       enums.Currency
	AmountCents    int64
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// ProviderInvoice is the subset of the provider invoice persisted locally.
type ProviderInvoice struct {
	ID               string
	Number           string
	Status           string
	TotalCents       int64
	HostedInvoiceURL string
	InvoicePDFURL    string
}

type stripeGateway struct {
	daysUntilDue int64
}

// NewStripeGateway wraps the configured Stripe client behind Gateway.
func NewStripeGateway(client *pkgstripe.Client) (Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &stripeGateway{daysUntilDue: client.InvoiceDaysUntilDue()}, nil
}

func (g *stripeGateway) CreateCustomer(ctx context.Context, input CustomerInput) (string, error) {
	params := createCustomerParams(input)
	params.Context = ctx

	cust, err := customer.New(params)
	if err != nil {
		return "", providerError(err, "create customer")
	}
	return cust.ID, nil
}

func (g *stripeGateway) UpdateCustomer(ctx context.Context, customerID string, input CustomerInput) error {
	params := customerParams(input)
	params.Context = ctx

	if _, err := customer.Update(customerID, params); err != nil {
		return providerError(err, "update customer")
	}
	return nil
}

func (g *stripeGateway) CreateInvoice(ctx context.Context, input InvoiceInput) (*ProviderInvoice, error) {
	params := invoiceParams(input, g.daysUntilDue)
	params.Context = ctx

	inv, err := invoice.New(params)
	if err != nil {
		return nil, providerError(err, "create invoice")
	}
	return toProviderInvoice(inv), nil
}

func (g *stripeGateway) AddInvoiceItem(ctx context.Context, input InvoiceItemInput) error {
	params := invoiceItemParams(input)
	params.Context = ctx

	if _, err := invoiceitem.New(params); err != nil {
		return providerError(err, "add invoice item")
	}
	return nil
}

func (g *stripeGateway) FinalizeInvoice(ctx context.Context, invoiceID, idempotencyKey string) (*ProviderInvoice, error) {
	params := &stripe.InvoiceFinalizeInvoiceParams{
		AutoAdvance: stripe.Bool(false),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	inv, err := invoice.FinalizeInvoice(invoiceID, params)
	if err != nil {
		return nil, providerError(err, "finalize invoice")
	}
	return toProviderInvoice(inv), nil
}

func (g *stripeGateway) SendInvoice(ctx context.Context, invoiceID, idempotencyKey string) (*ProviderInvoice, error) {
	params := &stripe.InvoiceSendInvoiceParams{}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	inv, err := invoice.SendInvoice(invoiceID, params)
	if err != nil {
		return nil, providerError(err, "send invoice")
	}
	return toProviderInvoice(inv), nil
}

func (g *stripeGateway) VoidInvoice(ctx context.Context, invoiceID string) error {
	params := &stripe.InvoiceVoidInvoiceParams{}
	params.Context = ctx

	if _, err := invoice.VoidInvoice(invoiceID, params); err != nil {
		return providerError(err, "void invoice")
	}
	return nil
}

func (g *stripeGateway) DeleteDraftInvoice(ctx context.Context, invoiceID string) error {
	params := &stripe.InvoiceParams{}
	params.Context = ctx

	if _, err := invoice.Del(invoiceID, params); err != nil {
		return providerError(err, "delete draft invoice")
	}
	return nil
}

// CustomerIdempotencyKey keeps concurrent first invoices for one company on a
// single customer. Requests under it must not vary per order.
func CustomerIdempotencyKey(companyID uuid.UUID) string {
	return fmt.Sprintf("company:%s:customer", companyID)
}

func createCustomerParams(input CustomerInput) *stripe.CustomerParams {
	params := customerParams(input)
	params.SetIdempotencyKey(CustomerIdempotencyKey(input.CompanyID))
	params.AddMetadata("company_id", input.CompanyID.String())
	return params
}

func customerParams(input CustomerInput) *stripe.CustomerParams {
	params := &stripe.CustomerParams{
		Name:  optionalString(input.Name),
		Email: optionalString(input.Email),
	}
	if input.Phone != nil {
		params.Phone = optionalString(*input.Phone)
	}
	if input.BillingAddress != (types.Address{}) {
		params.Address = addressParams(input.BillingAddress)
	}
	if input.ShippingAddress != (types.Address{}) {
		params.Shipping = &stripe.CustomerShippingParams{
			Name:    stripe.String(input.Name),
			Phone:   params.Phone,
			Address: addressParams(input.ShippingAddress),
		}
	}
	return params
}

func invoiceParams(input InvoiceInput, daysUntilDue int64) *stripe.InvoiceParams {
	params := &stripe.InvoiceParams{
		Customer:                    stripe.String(input.CustomerID),
		Currency:                    stripe.String(input.Currency.Lower()),
		CollectionMethod:            stripe.String(string(stripe.InvoiceCollectionMethodSendInvoice)),
		DaysUntilDue:                stripe.Int64(daysUntilDue),
		AutoAdvance:                 stripe.Bool(false),
		PendingInvoiceItemsBehavior: stripe.String("exclude"),
		Description:                 optionalString(input.Description),
	}
	params.AddMetadata("order_id", input.OrderID.String())
	params.AddMetadata("company_id", input.CompanyID.String())
	params.AddMetadata("intent_id", input.IntentID.String())
	if input.PONumber != nil && strings.TrimSpace(*input.PONumber) != "" {
		params.AddMetadata("po_number", strings.TrimSpace(*input.PONumber))
	}
	if input.IdempotencyKey != "" {
		params.SetIdempotencyKey(input.IdempotencyKey)
	}
	return params
}

func invoiceItemParams(input InvoiceItemInput) *stripe.InvoiceItemParams {
	params := &stripe.InvoiceItemParams{
		Customer:    stripe.String(input.CustomerID),
		Invoice:     stripe.String(input.InvoiceID),
		Currency:    stripe.String(input.Currency.Lower()),
		Amount:      stripe.Int64(input.AmountCents),
		Description: stripe.String(input.Description),
	}
	for key, value := range input.Metadata {
		params.AddMetadata(key, value)
	}
	if input.IdempotencyKey != "" {
		params.SetIdempotencyKey(input.IdempotencyKey)
	}
	return params
}

func addressParams(addr types.Address) *stripe.AddressParams {
	return &stripe.AddressParams{
		Line1:      optionalString(addr.Line1),
		Line2:      optionalString(addr.Line2),
		City:       optionalString(addr.City),
		State:      optionalString(addr.State),
		PostalCode: optionalString(addr.PostalCode),
		Country:    optionalString(addr.Country),
	}
}

func toProviderInvoice(inv *stripe.Invoice) *ProviderInvoice {
	if inv == nil {
		return nil
	}
	return &ProviderInvoice{
		ID:               inv.ID,
		Number:           inv.Number,
		Status:           string(inv.Status),
		TotalCents:       inv.Total,
		HostedInvoiceURL: inv.HostedInvoiceURL,
		InvoicePDFURL:    inv.InvoicePDF,
	}
}

// providerError maps Stripe failures onto the provider error code, keeping the
// Stripe request id for support lookups.
func providerError(err error, op string) error {
	wrapped := pkgerrors.Wrap(pkgerrors.CodeProvider, err, op)
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		details := map[string]any{
			"operation":   op,
			"http_status": stripeErr.HTTPStatusCode,
		}
		if stripeErr.Code != "" {
			details["stripe_code"] = string(stripeErr.Code)
		}
		if stripeErr.RequestID != "" {
			details["request_id"] = stripeErr.RequestID
		}
		if stripeErr.Msg != "" {
			wrapped = pkgerrors.Wrap(pkgerrors.CodeProvider, err, fmt.Sprintf("%s: %s", op, stripeErr.Msg))
		}
		return wrapped.WithDetails(details)
	}
	return wrapped.WithDetails(map[string]any{"operation": op})
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return stripe.String(trimmed)
}
