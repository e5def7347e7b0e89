package enums

import "fmt"

// InvoiceStatus mirrors the payment state of the provider invoice.
type InvoiceStatus string

const (
	InvoiceStatusOpen          InvoiceStatus = "open"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusPaymentFailed InvoiceStatus = "payment_failed"
	InvoiceStatusVoid          InvoiceStatus = "void"
	InvoiceStatusUncollectible InvoiceStatus = "uncollectible"
)

var validInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusOpen,
	InvoiceStatusPaid,
	InvoiceStatusPaymentFailed,
	InvoiceStatusVoid,
	InvoiceStatusUncollectible,
}

// String implements fmt.Stringer.
func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) IsValid() bool {
	for _, candidate := range validInvoiceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further payment transitions are expected.
func (s InvoiceStatus) Terminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusVoid || s == InvoiceStatusUncollectible
}

// ParseInvoiceStatus converts raw input into an InvoiceStatus.
func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	for _, candidate := range validInvoiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice status %q", value)
}
