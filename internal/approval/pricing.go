package approval

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
)

// plan is the priced outcome of the reviewer's decisions.
type plan struct {
	inStock       []models.DistributorOrderItem
	backOrder     []models.DistributorOrderItem
	subtotalCents int64
	shippingCents int64
	vatCents      int64
	totalCents    int64
	vatRate       decimal.Decimal
}

func (p plan) status() enums.DistributorOrderStatus {
	if len(p.backOrder) == 0 {
		return enums.DistributorOrderStatusFullyFulfilled
	}
	return enums.DistributorOrderStatusPartiallyFulfilled
}

// buildPlan partitions the order lines and prices the in-stock subset.
// Decisions are assumed validated.
func buildPlan(order *models.DistributorOrder, decisions map[uuid.UUID]ItemDecision, shippingOverride *int64) plan {
	var p plan
	for _, item := range order.Items {
		if decisions[item.ID].Decision == enums.FulfillmentDecisionInStock {
			p.inStock = append(p.inStock, item)
			p.subtotalCents += item.LineTotalCents
			continue
		}
		p.backOrder = append(p.backOrder, item)
	}

	p.shippingCents = order.ShippingCents
	if shippingOverride != nil {
		p.shippingCents = *shippingOverride
	}

	p.vatRate = effectiveVATRate(order.VATCents, order.SubtotalCents, order.ShippingCents)
	p.vatCents = rescaleVAT(order.VATCents, order.SubtotalCents+order.ShippingCents, p.subtotalCents+p.shippingCents)
	p.totalCents = p.subtotalCents + p.shippingCents + p.vatCents
	return p
}

// effectiveVATRate is the rate implied by the submitted order:
// vat / (subtotal + shipping), or zero when that base is zero.
func effectiveVATRate(vatCents, subtotalCents, shippingCents int64) decimal.Decimal {
	base := subtotalCents + shippingCents
	if base <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(vatCents).Div(decimal.NewFromInt(base))
}

// rescaleVAT applies the original implied rate to newBase, rounding half up to
// whole minor units. The multiplication happens before the division so the
// rate is never truncated.
func rescaleVAT(originalVAT, originalBase, newBase int64) int64 {
	if originalBase <= 0 || originalVAT == 0 || newBase <= 0 {
		return 0
	}
	return decimal.NewFromInt(originalVAT).
		Mul(decimal.NewFromInt(newBase)).
		DivRound(decimal.NewFromInt(originalBase), 0).
		IntPart()
}
