package enums

// DistributorOrderItemStatus is the persisted fulfillment state of an order line.
type DistributorOrderItemStatus string

const (
	DistributorOrderItemStatusPending   DistributorOrderItemStatus = "pending"
	DistributorOrderItemStatusFulfilled DistributorOrderItemStatus = "fulfilled"
	DistributorOrderItemStatusBackOrder DistributorOrderItemStatus = "back_order"
)

var validDistributorOrderItemStatuses = []DistributorOrderItemStatus{
	DistributorOrderItemStatusPending,
	DistributorOrderItemStatusFulfilled,
	DistributorOrderItemStatusBackOrder,
}

func (s DistributorOrderItemStatus) IsValid() bool {
	for _, candidate := range validDistributorOrderItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
