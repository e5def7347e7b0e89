package enums

import "fmt"

// FulfillmentDecision is the reviewer's per-item call during approval.
type FulfillmentDecision string

const (
	FulfillmentDecisionInStock   FulfillmentDecision = "in_stock"
	FulfillmentDecisionBackOrder FulfillmentDecision = "back_order"
)

var validFulfillmentDecisions = []FulfillmentDecision{
	FulfillmentDecisionInStock,
	FulfillmentDecisionBackOrder,
}

func (d FulfillmentDecision) IsValid() bool {
	for _, candidate := range validFulfillmentDecisions {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseFulfillmentDecision converts raw input into a FulfillmentDecision.
func ParseFulfillmentDecision(value string) (FulfillmentDecision, error) {
	for _, candidate := range validFulfillmentDecisions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment decision %q", value)
}
