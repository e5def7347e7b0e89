package enums

import "testing"

func TestParseDistributorOrderStatus(t *testing.T) {
	status, err := ParseDistributorOrderStatus("pending_review")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Reviewed() {
		t.Fatalf("pending_review should not count as reviewed")
	}
	if _, err := ParseDistributorOrderStatus("approved"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
	if !DistributorOrderStatusPartiallyFulfilled.Reviewed() {
		t.Fatalf("partially_fulfilled should count as reviewed")
	}
}

func TestInvoiceIntentStatusActive(t *testing.T) {
	active := map[InvoiceIntentStatus]bool{
		InvoiceIntentStatusPending:        true,
		InvoiceIntentStatusInvoiceCreated: true,
		InvoiceIntentStatusFinalized:      true,
		InvoiceIntentStatusCommitted:      false,
		InvoiceIntentStatusFailed:         false,
		InvoiceIntentStatusVoided:         false,
		InvoiceIntentStatusVoidFailed:     false,
		InvoiceIntentStatusResolved:       false,
	}
	for status, want := range active {
		if got := status.Active(); got != want {
			t.Fatalf("%s: expected active=%v got %v", status, want, got)
		}
	}
}

func TestInvoiceIntentStatusBlocking(t *testing.T) {
	if !InvoiceIntentStatusVoidFailed.Blocking() {
		t.Fatalf("void_failed must block new approvals")
	}
	if InvoiceIntentStatusVoidFailed.Active() {
		t.Fatalf("void_failed is not an in-flight intent")
	}
	if InvoiceIntentStatusVoided.Blocking() || InvoiceIntentStatusResolved.Blocking() {
		t.Fatalf("terminal intents must not block")
	}
}

func TestParseCurrencyNormalizes(t *testing.T) {
	cur, err := ParseCurrency(" gbp ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cur != CurrencyGBP || cur.Lower() != "gbp" {
		t.Fatalf("unexpected currency %q", cur)
	}
}

func TestParseOutboxTypes(t *testing.T) {
	if _, err := ParseOutboxEventType("invoice_paid"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseOutboxEventType("invoice_created"); err == nil {
		t.Fatalf("expected error for unregistered event type")
	}
	if _, err := ParseOutboxAggregateType("invoice_intent"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseOutboxDLQErrorReason("timeout"); err == nil {
		t.Fatalf("expected error for unknown dlq reason")
	}
	if r, err := ParseOutboxDLQErrorReason("non_retryable"); err != nil || r != OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected reason %q err %v", r, err)
	}
}
