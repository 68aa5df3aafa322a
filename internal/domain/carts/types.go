package carts

import (
	"context"
	"time"

	"github.com/Pawandasila/Ecom-backend/internal/domain/products"
	"github.com/shopspring/decimal"
)

type Item struct {
	ID              int64              `json:"id"`
	ProductID       int64              `json:"product_id"`
	Quantity        int                `json:"quantity"`
	SelectedVariant products.Selection `json:"selected_variant"`
}

// Cart is the per-user aggregate. TotalPrice is a cached value that is
// recomputed by pricing on every mutation and never set by clients.
type Cart struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	Items      []Item          `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type Store interface {
	// GetOrCreate returns the user's cart, creating an empty one on first
	// access. Uniqueness is enforced by the carts.user_id constraint.
	GetOrCreate(ctx context.Context, userID int64) (*Cart, error)
	// GetForUpdate behaves like GetOrCreate and additionally locks the cart
	// row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, userID int64) (*Cart, error)
	// Save persists the item list and cached total, assigning ids to new lines.
	Save(ctx context.Context, c *Cart) error
}
