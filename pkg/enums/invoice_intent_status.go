package enums

import "fmt"

// InvoiceIntentStatus tracks the saga record written around provider invoicing.
type InvoiceIntentStatus string

const (
	InvoiceIntentStatusPending        InvoiceIntentStatus = "pending"
	InvoiceIntentStatusInvoiceCreated InvoiceIntentStatus = "invoice_created"
	InvoiceIntentStatusFinalized      InvoiceIntentStatus = "finalized"
	InvoiceIntentStatusCommitted      InvoiceIntentStatus = "committed"
	InvoiceIntentStatusFailed         InvoiceIntentStatus = "failed"
	InvoiceIntentStatusVoided         InvoiceIntentStatus = "voided"
	InvoiceIntentStatusVoidFailed     InvoiceIntentStatus = "void_failed"
	InvoiceIntentStatusResolved       InvoiceIntentStatus = "resolved"
)

var validInvoiceIntentStatuses = []InvoiceIntentStatus{
	InvoiceIntentStatusPending,
	InvoiceIntentStatusInvoiceCreated,
	InvoiceIntentStatusFinalized,
	InvoiceIntentStatusCommitted,
	InvoiceIntentStatusFailed,
	InvoiceIntentStatusVoided,
	InvoiceIntentStatusVoidFailed,
	InvoiceIntentStatusResolved,
}

// ActiveInvoiceIntentStatuses are the states that block another approval attempt.
var ActiveInvoiceIntentStatuses = []InvoiceIntentStatus{
	InvoiceIntentStatusPending,
	InvoiceIntentStatusInvoiceCreated,
	InvoiceIntentStatusFinalized,
}

// BlockingInvoiceIntentStatuses keep the order locked against a new approval attempt.
// void_failed blocks until an operator resolves the orphaned provider invoice.
var BlockingInvoiceIntentStatuses = []InvoiceIntentStatus{
	InvoiceIntentStatusPending,
	InvoiceIntentStatusInvoiceCreated,
	InvoiceIntentStatusFinalized,
	InvoiceIntentStatusVoidFailed,
}

// String implements fmt.Stringer.
func (s InvoiceIntentStatus) String() string {
	return string(s)
}

func (s InvoiceIntentStatus) IsValid() bool {
	for _, candidate := range validInvoiceIntentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Active reports whether the intent still has an in-flight provider invoice.
func (s InvoiceIntentStatus) Active() bool {
	for _, candidate := range ActiveInvoiceIntentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Blocking reports whether the intent prevents another approval of the same order.
func (s InvoiceIntentStatus) Blocking() bool {
	for _, candidate := range BlockingInvoiceIntentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseInvoiceIntentStatus converts raw input into an InvoiceIntentStatus.
func ParseInvoiceIntentStatus(value string) (InvoiceIntentStatus, error) {
	for _, candidate := range validInvoiceIntentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice intent status %q", value)
}
