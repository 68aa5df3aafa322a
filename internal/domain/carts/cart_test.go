package carts

import (
	"testing"

	"github.com/Pawandasila/Ecom-backend/internal/domain/errs"
	"github.com/Pawandasila/Ecom-backend/internal/domain/products"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItemMergesSameLine(t *testing.T) {
	c := &Cart{}

	_, err := c.AddItem(1, 2, products.Selection{Size: "M", Color: "red"})
	require.NoError(t, err)
	line, err := c.AddItem(1, 3, products.Selection{Size: "M", Color: "red"})
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, line.Quantity)
	assert.Equal(t, 5, c.Items[0].Quantity)
}

func TestAddItemDifferentVariantIsNewLine(t *testing.T) {
	c := &Cart{}

	_, err := c.AddItem(1, 1, products.Selection{Size: "M"})
	require.NoError(t, err)
	_, err = c.AddItem(1, 1, products.Selection{Size: "L"})
	require.NoError(t, err)
	_, err = c.AddItem(1, 1, products.Selection{Size: "M", Color: "blue"})
	require.NoError(t, err)

	assert.Len(t, c.Items, 3)
}

func TestAddItemNormalizesSelection(t *testing.T) {
	c := &Cart{}
	_, err := c.AddItem(7, 1, products.Selection{Size: " M "})
	require.NoError(t, err)
	_, err = c.AddItem(7, 1, products.Selection{Size: "M"})
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestAddItemRejectsBadQuantity(t *testing.T) {
	c := &Cart{}
	_, err := c.AddItem(1, 0, products.Selection{})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	assert.Empty(t, c.Items)
}

func TestUpdateAndRemoveItem(t *testing.T) {
	c := &Cart{Items: []Item{
		{ID: 10, ProductID: 1, Quantity: 1},
		{ID: 11, ProductID: 2, Quantity: 1},
	}}

	require.NoError(t, c.UpdateItem(11, 4))
	assert.Equal(t, 4, c.Items[1].Quantity)

	assert.ErrorIs(t, c.UpdateItem(11, 0), errs.ErrInvalidArgument)
	assert.ErrorIs(t, c.UpdateItem(99, 2), errs.ErrNotFound)

	require.NoError(t, c.RemoveItem(10))
	require.Len(t, c.Items, 1)
	assert.Equal(t, int64(11), c.Items[0].ID)
	assert.ErrorIs(t, c.RemoveItem(10), errs.ErrNotFound)
}

func TestClear(t *testing.T) {
	c := &Cart{Items: []Item{{ID: 1, ProductID: 1, Quantity: 2}}, TotalPrice: decimal.NewFromInt(40)}
	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.TotalPrice.IsZero())
	assert.NotNil(t, c.Items)
}
