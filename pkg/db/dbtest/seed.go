package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
	"github.com/finishpro/admin-backend/pkg/types"
)

// SeedCompany inserts a distributor company with default addresses.
func SeedCompany(t *testing.T, db *gorm.DB, name string) *models.Company {
	t.Helper()

	billing := types.Address{Line1: "1 Press Lane", City: "Leeds", PostalCode: "LS1 4AB", Country: "GB"}
	company := &models.Company{
		ID:              uuid.New(),
		Name:            name,
		Email:           "accounts@" + uuid.NewString()[:8] + ".test",
		BillingAddress:  &billing,
		ShippingAddress: &billing,
	}
	if err := db.Create(company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	return company
}

// OrderLine describes one seeded order item.
type OrderLine struct {
	ProductCode    string
	Qty            int64
	UnitPriceCents int64
}

// SeedOrder inserts a pending_review order with the given lines. Subtotal is the
// sum of line totals; shipping and VAT are taken as given.
func SeedOrder(t *testing.T, db *gorm.DB, companyID uuid.UUID, number int64, shippingCents, vatCents int64, lines ...OrderLine) *models.DistributorOrder {
	t.Helper()

	orderID := uuid.New()
	var subtotal int64
	items := make([]models.DistributorOrderItem, 0, len(lines))
	for i, line := range lines {
		total := line.Qty * line.UnitPriceCents
		subtotal += total
		items = append(items, models.DistributorOrderItem{
			ID:             uuid.New(),
			OrderID:        orderID,
			Position:       i,
			ProductCode:    line.ProductCode,
			Description:    line.ProductCode + " description",
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
			LineTotalCents: total,
			Status:         enums.DistributorOrderItemStatusPending,
		})
	}

	address := types.Address{Line1: "22 Bindery Road", City: "Leeds", PostalCode: "LS2 9JT", Country: "GB"}
	order := &models.DistributorOrder{
		ID:              orderID,
		CompanyID:       companyID,
		OrderNumber:     number,
		Status:          enums.DistributorOrderStatusPendingReview,
		Currency:        enums.CurrencyGBP,
		BillingAddress:  address,
		ShippingAddress: address,
		SubtotalCents:   subtotal,
		ShippingCents:   shippingCents,
		VATCents:        vatCents,
		TotalCents:      subtotal + shippingCents + vatCents,
		CreatedAt:       time.Now().UTC().Add(time.Duration(number) * time.Second),
	}
	if err := db.Omit("Items", "Company").Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
			t.Fatalf("seed order items: %v", err)
		}
	}
	order.Items = items
	return order
}
