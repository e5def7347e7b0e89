package distributororders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finishpro/admin-backend/pkg/db/dbtest"
	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
	"github.com/finishpro/admin-backend/pkg/pagination"
	"github.com/finishpro/admin-backend/pkg/types"
)

func TestRepositoryFindByIDPreloadsItemsAndCompany(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	company := dbtest.SeedCompany(t, db, "Acme Print")
	order := dbtest.SeedOrder(t, db, company.ID, 1001, 500, 600,
		dbtest.OrderLine{ProductCode: "FP-A", Qty: 2, UnitPriceCents: 1000},
		dbtest.OrderLine{ProductCode: "FP-B", Qty: 1, UnitPriceCents: 500},
	)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 2)
	assert.Equal(t, "FP-A", found.Items[0].ProductCode)
	assert.Equal(t, "FP-B", found.Items[1].ProductCode)
	require.NotNil(t, found.Company)
	assert.Equal(t, "Acme Print", found.Company.Name)
	assert.Equal(t, int64(2500), found.SubtotalCents)
	assert.Equal(t, "LS2 9JT", found.ShippingAddress.PostalCode)
}

func TestRepositoryListFiltersAndPaginates(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	company := dbtest.SeedCompany(t, db, "Acme Print")
	other := dbtest.SeedCompany(t, db, "Bolt Bindery")

	for i := int64(1); i <= 3; i++ {
		dbtest.SeedOrder(t, db, company.ID, i, 0, 0, dbtest.OrderLine{ProductCode: "FP-A", Qty: 1, UnitPriceCents: 100})
	}
	dbtest.SeedOrder(t, db, other.ID, 10, 0, 0, dbtest.OrderLine{ProductCode: "FP-Z", Qty: 1, UnitPriceCents: 100})

	first, err := repo.List(context.Background(), pagination.Params{Limit: 2}, ListFilters{CompanyID: &company.ID})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	assert.Equal(t, int64(3), first.Orders[0].OrderNumber)
	assert.Equal(t, int64(2), first.Orders[1].OrderNumber)
	assert.Equal(t, "Acme Print", first.Orders[0].CompanyName)
	assert.Equal(t, 1, first.Orders[0].ItemCount)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.List(context.Background(), pagination.Params{Limit: 2, Cursor: first.NextCursor}, ListFilters{CompanyID: &company.ID})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Equal(t, int64(1), second.Orders[0].OrderNumber)
	assert.Empty(t, second.NextCursor)

	rejected := enums.DistributorOrderStatusRejected
	none, err := repo.List(context.Background(), pagination.Params{}, ListFilters{Status: &rejected})
	require.NoError(t, err)
	assert.Empty(t, none.Orders)
}

func TestRepositoryClaimForReviewIsConditional(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	company := dbtest.SeedCompany(t, db, "Acme Print")
	order := dbtest.SeedOrder(t, db, company.ID, 7, 0, 0, dbtest.OrderLine{ProductCode: "FP-A", Qty: 1, UnitPriceCents: 100})

	reviewer := uuid.New()
	override := types.Address{Line1: "5 Override St", City: "York", PostalCode: "YO1", Country: "GB"}
	shipping := int64(0)
	reason := "collected by customer"
	claim := ReviewClaim{
		OrderID:                order.ID,
		Status:                 enums.DistributorOrderStatusFullyFulfilled,
		ReviewedBy:             reviewer,
		ReviewedAt:             time.Now().UTC(),
		ShippingOverride:       &override,
		ShippingOverrideCents:  &shipping,
		ShippingOverrideReason: &reason,
	}

	claimed, err := repo.ClaimForReview(context.Background(), claim)
	require.NoError(t, err)
	assert.True(t, claimed)

	claim.Status = enums.DistributorOrderStatusRejected
	claimed, err = repo.ClaimForReview(context.Background(), claim)
	require.NoError(t, err)
	assert.False(t, claimed)

	var stored models.DistributorOrder
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.DistributorOrderStatusFullyFulfilled, stored.Status)
	require.NotNil(t, stored.ReviewedBy)
	assert.Equal(t, reviewer, *stored.ReviewedBy)
	require.NotNil(t, stored.ShippingOverride)
	assert.Equal(t, "York", stored.ShippingOverride.City)
	assert.Nil(t, stored.BillingOverride)
	require.NotNil(t, stored.ShippingOverrideCents)
	assert.Equal(t, int64(0), *stored.ShippingOverrideCents)
}

func TestRepositoryUpdateItems(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	company := dbtest.SeedCompany(t, db, "Acme Print")
	order := dbtest.SeedOrder(t, db, company.ID, 8, 0, 0,
		dbtest.OrderLine{ProductCode: "FP-A", Qty: 1, UnitPriceCents: 100},
		dbtest.OrderLine{ProductCode: "FP-B", Qty: 1, UnitPriceCents: 100},
	)
	eta := time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)
	note := "awaiting supplier"

	err := repo.UpdateItems(context.Background(), order.ID, []ItemUpdate{
		{ItemID: order.Items[0].ID, Status: enums.DistributorOrderItemStatusFulfilled},
		{ItemID: order.Items[1].ID, Status: enums.DistributorOrderItemStatusBackOrder, PredictedDeliveryDate: &eta, BackOrderNote: &note},
	})
	require.NoError(t, err)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DistributorOrderItemStatusFulfilled, found.Items[0].Status)
	assert.Equal(t, enums.DistributorOrderItemStatusBackOrder, found.Items[1].Status)
	require.NotNil(t, found.Items[1].BackOrderNote)
	assert.Equal(t, note, *found.Items[1].BackOrderNote)
	require.NotNil(t, found.Items[1].PredictedDeliveryDate)

	err = repo.UpdateItems(context.Background(), uuid.New(), []ItemUpdate{
		{ItemID: order.Items[0].ID, Status: enums.DistributorOrderItemStatusFulfilled},
	})
	assert.Error(t, err)
}
