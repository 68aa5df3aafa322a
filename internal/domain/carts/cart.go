package carts

import (
	"github.com/Pawandasila/Ecom-backend/internal/domain/errs"
	"github.com/Pawandasila/Ecom-backend/internal/domain/products"
	"github.com/shopspring/decimal"
)

// sameLine reports whether two lines are the same for merge purposes:
// same product and same selected size and color.
func sameLine(it Item, productID int64, sel products.Selection) bool {
	return it.ProductID == productID &&
		it.SelectedVariant.Size == sel.Size &&
		it.SelectedVariant.Color == sel.Color
}

// AddItem merges qty into an existing line with the same identity, or appends
// a new line. The returned pointer refers to the line inside c.Items.
func (c *Cart) AddItem(productID int64, qty int, sel products.Selection) (*Item, error) {
	if qty < 1 {
		return nil, errs.InvalidArgument("quantity must be at least 1")
	}
	sel = sel.Normalize()

	for i := range c.Items {
		if sameLine(c.Items[i], productID, sel) {
			c.Items[i].Quantity += qty
			return &c.Items[i], nil
		}
	}

	c.Items = append(c.Items, Item{
		ProductID:       productID,
		Quantity:        qty,
		SelectedVariant: sel,
	})
	return &c.Items[len(c.Items)-1], nil
}

func (c *Cart) UpdateItem(itemID int64, qty int) error {
	if qty < 1 {
		return errs.InvalidArgument("quantity must be at least 1")
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = qty
			return nil
		}
	}
	return errs.NotFound("cart item")
}

func (c *Cart) RemoveItem(itemID int64) error {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return errs.NotFound("cart item")
}

// Clear empties the cart and resets the cached total.
func (c *Cart) Clear() {
	c.Items = []Item{}
	c.TotalPrice = decimal.Zero
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }
