package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraft_Editing(t *testing.T) {
	d := NewDraft("u1")
	assert.Equal(t, DraftStateDraft, d.State())
	assert.Nil(t, d.CustomerID())

	require.NoError(t, d.SetCustomer("c1"))
	require.NotNil(t, d.CustomerID())
	require.NoError(t, d.SetCustomer(""))
	assert.Nil(t, d.CustomerID())

	require.NoError(t, d.AddLine(DraftLine{ProductID: "a", Quantity: 2, SalePrice: dec("2.5")}))
	require.NoError(t, d.AddLine(DraftLine{ProductID: "b", Quantity: 1, SalePrice: dec("10")}))
	assert.True(t, dec("15").Equal(d.Subtotal()))

	require.NoError(t, d.SetQuantity(2, 3))
	assert.True(t, dec("35").Equal(d.Subtotal()))

	require.NoError(t, d.RemoveLine(1))
	lines := d.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "b", lines[0].ProductID)

	var ve *ValidationError
	assert.ErrorAs(t, d.SetQuantity(5, 1), &ve)
	assert.ErrorIs(t, d.Reopen(), ErrDraftLocked)
}

func TestDraft_LockedOutsideDraftState(t *testing.T) {
	d := NewDraft("u1")
	require.NoError(t, d.begin())
	assert.Equal(t, DraftStateValidating, d.State())
	assert.ErrorIs(t, d.AddLine(DraftLine{}), ErrDraftLocked)
	assert.ErrorIs(t, d.SetDiscount(dec("1")), ErrDraftLocked)
	assert.ErrorIs(t, d.begin(), ErrDraftLocked)

	d.reject(&ValidationError{Field: "x"})
	require.NoError(t, d.Reopen())
	assert.Equal(t, DraftStateDraft, d.State())
	assert.Nil(t, d.Rejection())
}

func TestSubmitOrderRequest_ToDraft(t *testing.T) {
	tax := dec("14")
	req := SubmitOrderRequest{
		CustomerID: "c1",
		Lines:      []DraftLine{{ProductID: "a", Quantity: 1, SalePrice: dec("1")}},
		TaxRate:    &tax,
	}
	d := req.ToDraft("u1")
	assert.Equal(t, "u1", d.UserID())
	assert.Equal(t, "c1", *d.CustomerID())
	assert.Len(t, d.Lines(), 1)
	require.NotNil(t, d.taxRate)
	assert.True(t, tax.Equal(*d.taxRate))
	assert.Nil(t, d.discount)
}
