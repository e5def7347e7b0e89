package companies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finishpro/admin-backend/pkg/db/dbtest"
)

func TestSetStripeCustomerIDOnlyOnce(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	company := dbtest.SeedCompany(t, db, "Acme Print")

	linked, err := repo.SetStripeCustomerID(context.Background(), company.ID, "cus_first")
	require.NoError(t, err)
	assert.True(t, linked)

	linked, err = repo.SetStripeCustomerID(context.Background(), company.ID, "cus_second")
	require.NoError(t, err)
	assert.False(t, linked)

	found, err := repo.FindByID(context.Background(), company.ID)
	require.NoError(t, err)
	require.NotNil(t, found.StripeCustomerID)
	assert.Equal(t, "cus_first", *found.StripeCustomerID)
	require.NotNil(t, found.BillingAddress)
	assert.Equal(t, "Leeds", found.BillingAddress.City)
}
