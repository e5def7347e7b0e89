package enums

import "fmt"

// DistributorOrderStatus tracks the review lifecycle of a wholesale order.
type DistributorOrderStatus string

const (
	DistributorOrderStatusPendingReview      DistributorOrderStatus = "pending_review"
	DistributorOrderStatusPartiallyFulfilled DistributorOrderStatus = "partially_fulfilled"
	DistributorOrderStatusFullyFulfilled     DistributorOrderStatus = "fully_fulfilled"
	DistributorOrderStatusRejected           DistributorOrderStatus = "rejected"
	DistributorOrderStatusCancelled          DistributorOrderStatus = "cancelled"
)

var validDistributorOrderStatuses = []DistributorOrderStatus{
	DistributorOrderStatusPendingReview,
	DistributorOrderStatusPartiallyFulfilled,
	DistributorOrderStatusFullyFulfilled,
	DistributorOrderStatusRejected,
	DistributorOrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s DistributorOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DistributorOrderStatus.
func (s DistributorOrderStatus) IsValid() bool {
	for _, candidate := range validDistributorOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Reviewed reports whether an admin has already acted on the order.
func (s DistributorOrderStatus) Reviewed() bool {
	return s != DistributorOrderStatusPendingReview
}

// ParseDistributorOrderStatus converts raw input into a DistributorOrderStatus.
func ParseDistributorOrderStatus(value string) (DistributorOrderStatus, error) {
	for _, candidate := range validDistributorOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid distributor order status %q", value)
}
