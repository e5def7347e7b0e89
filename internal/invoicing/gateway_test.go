package invoicing

import (
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/finishpro/admin-backend/pkg/enums"
	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
	"github.com/finishpro/admin-backend/pkg/types"
)

func TestInvoiceParamsCarriesMetadataAndKey(t *testing.T) {
	orderID := uuid.New()
	companyID := uuid.New()
	intentID := uuid.New()
	po := " PO-881 "

	params := invoiceParams(InvoiceInput{
		CustomerID:     "cus_123",
		Currency:       enums.CurrencyGBP,
		OrderID:        orderID,
		CompanyID:      companyID,
		IntentID:       intentID,
		PONumber:       &po,
		IdempotencyKey: "distributor-order:abc:attempt:1",
	}, 14)

	if got := stripe.StringValue(params.Customer); got != "cus_123" {
		t.Fatalf("unexpected customer %q", got)
	}
	if got := stripe.StringValue(params.Currency); got != "gbp" {
		t.Fatalf("expected lowercase currency, got %q", got)
	}
	if stripe.BoolValue(params.AutoAdvance) {
		t.Fatal("draft must not auto advance")
	}
	if got := stripe.Int64Value(params.DaysUntilDue); got != 14 {
		t.Fatalf("unexpected days until due %d", got)
	}
	want := map[string]string{
		"order_id":   orderID.String(),
		"company_id": companyID.String(),
		"intent_id":  intentID.String(),
		"po_number":  "PO-881",
	}
	for key, value := range want {
		if params.Metadata[key] != value {
			t.Fatalf("metadata %s: expected %q got %q", key, value, params.Metadata[key])
		}
	}
	if params.IdempotencyKey == nil || *params.IdempotencyKey != "distributor-order:abc:attempt:1" {
		t.Fatalf("idempotency key not set")
	}
}

func TestInvoiceParamsOmitsEmptyPONumber(t *testing.T) {
	params := invoiceParams(InvoiceInput{CustomerID: "cus_1", Currency: enums.CurrencyEUR}, 30)
	if _, ok := params.Metadata["po_number"]; ok {
		t.Fatal("po_number should be omitted when absent")
	}
	if params.IdempotencyKey != nil {
		t.Fatal("idempotency key should be unset")
	}
}

func TestInvoiceItemParamsAttachesToInvoice(t *testing.T) {
	params := invoiceItemParams(InvoiceItemInput{
		CustomerID:     "cus_1",
		InvoiceID:      "in_1",
		Currency:       enums.CurrencyGBP,
		AmountCents:    2000,
		Description:    "FP-100 Trimmer blade x2 @ 10.00",
		Metadata:       map[string]string{"order_item_id": "item-1"},
		IdempotencyKey: "k:item:1",
	})
	if stripe.StringValue(params.Invoice) != "in_1" {
		t.Fatalf("item must target the draft invoice")
	}
	if stripe.Int64Value(params.Amount) != 2000 {
		t.Fatalf("unexpected amount %d", stripe.Int64Value(params.Amount))
	}
	if params.Metadata["order_item_id"] != "item-1" {
		t.Fatalf("metadata not copied")
	}
}

func TestCustomerParamsSplitsBillingAndShipping(t *testing.T) {
	params := customerParams(CustomerInput{
		CompanyID:       uuid.New(),
		Name:            "Acme Print",
		Email:           "billing@acme.test",
		BillingAddress:  types.Address{Line1: "1 Bill St", City: "Leeds", PostalCode: "LS1", Country: "GB"},
		ShippingAddress: types.Address{Line1: "9 Dock Rd", City: "Hull", PostalCode: "HU1", Country: "GB"},
	})
	if stripe.StringValue(params.Address.Line1) != "1 Bill St" {
		t.Fatalf("unexpected billing line1")
	}
	if stripe.StringValue(params.Shipping.Address.Line1) != "9 Dock Rd" {
		t.Fatalf("unexpected shipping line1")
	}
	if params.Address.Line2 != nil {
		t.Fatalf("empty line2 should be omitted")
	}
}

func TestCreateCustomerParamsAreStablePerCompany(t *testing.T) {
	companyID := uuid.New()
	input := CustomerInput{
		CompanyID: companyID,
		Name:      "Acme Print",
		Email:     "billing@acme.test",
	}

	first, second := createCustomerParams(input), createCustomerParams(input)

	if first.IdempotencyKey == nil || *first.IdempotencyKey != CustomerIdempotencyKey(companyID) {
		t.Fatalf("expected company idempotency key")
	}
	if first.Metadata["company_id"] != companyID.String() {
		t.Fatalf("expected company_id metadata")
	}
	if first.Address != nil || first.Shipping != nil {
		t.Fatalf("empty addresses should be omitted")
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("create params differ between calls")
	}
}

func TestCustomerIdempotencyKey(t *testing.T) {
	id := uuid.MustParse("7b0e7c0c-2f5b-4c8e-9d0a-0c1d2e3f4a5b")
	if got := CustomerIdempotencyKey(id); got != "company:7b0e7c0c-2f5b-4c8e-9d0a-0c1d2e3f4a5b:customer" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestProviderErrorIncludesStripeDetails(t *testing.T) {
	err := providerError(&stripe.Error{
		Code:           stripe.ErrorCodeResourceMissing,
		Msg:            "No such customer",
		HTTPStatusCode: http.StatusNotFound,
		RequestID:      "req_1",
	}, "create invoice")

	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeProvider {
		t.Fatalf("expected provider error, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map")
	}
	if details["request_id"] != "req_1" || details["http_status"] != http.StatusNotFound {
		t.Fatalf("unexpected details %#v", details)
	}
	if typed.Message() != "create invoice: No such customer" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestProviderErrorWrapsPlainErrors(t *testing.T) {
	cause := errors.New("connection reset")
	err := providerError(cause, "send invoice")
	if !pkgerrors.IsCode(err, pkgerrors.CodeProvider) {
		t.Fatalf("expected provider code")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause should be preserved")
	}
}
