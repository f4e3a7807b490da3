package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/nimo-pos/internal/pos/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerCRUD(t *testing.T) {
	svcs, _ := setupServices(t)
	ctx := context.Background()

	c, err := svcs.Customer.CreateCustomer(ctx, CustomerRequest{Name: "Ahmed", Phone: "0100", DiscountAmount: dec("5")}, "u1")
	require.NoError(t, err)
	assert.Contains(t, c.CustomerCode, "CUS-")

	c, err = svcs.Customer.UpdateCustomer(ctx, c.ID, CustomerRequest{Name: "Ahmed A.", DiscountAmount: dec("7.5")})
	require.NoError(t, err)
	assert.True(t, dec("7.5").Equal(c.DiscountAmount))

	list, total, err := svcs.Customer.ListCustomers(ctx, "Ahmed", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, c.ID, list[0].ID)

	_, err = svcs.Customer.CreateCustomer(ctx, CustomerRequest{Name: "Neg", DiscountAmount: dec("-1")}, "u1")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	require.NoError(t, svcs.Customer.DeleteCustomer(ctx, c.ID))
	_, err = svcs.Customer.GetCustomer(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCustomer_RefusedWithOrders(t *testing.T) {
	svcs, db := setupServices(t)
	wh := testutil.SeedWarehouse(t, db, "W1")
	p := testutil.SeedProduct(t, db, "A", 0, wh.ID)
	testutil.SeedStock(t, db, wh.ID, p.ID, 5)
	c := testutil.SeedCustomer(t, db, "Buyer", 0)

	_, _, err := submit(t, svcs, c.ID, DraftLine{ProductID: p.ID, Quantity: 1, SalePrice: dec("1")})
	require.NoError(t, err)

	err = svcs.Customer.DeleteCustomer(context.Background(), c.ID)
	var re *ReferentialDeleteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "customer", re.Entity)
}
