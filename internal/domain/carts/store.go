package carts

import (
	"context"
	"fmt"

	"github.com/Pawandasila/Ecom-backend/internal/infra/dbx"
)

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

func (r *Repository) GetOrCreate(ctx context.Context, userID int64) (*Cart, error) {
	return r.load(ctx, userID, false)
}

// GetForUpdate must run inside a transaction; the row lock serializes
// concurrent mutations and checkouts of the same cart.
func (r *Repository) GetForUpdate(ctx context.Context, userID int64) (*Cart, error) {
	return r.load(ctx, userID, true)
}

func (r *Repository) load(ctx context.Context, userID int64, lock bool) (*Cart, error) {
	// Concurrent first access: every caller inserts, the UNIQUE(user_id)
	// constraint lets exactly one win and the rest read the winner.
	if _, err := r.db.Exec(ctx, `
INSERT INTO carts (user_id) VALUES ($1)
ON CONFLICT (user_id) DO NOTHING
`, userID); err != nil {
		return nil, fmt.Errorf("ensure cart: %w", err)
	}

	q := `SELECT id, user_id, total_price, created_at, updated_at FROM carts WHERE user_id = $1`
	if lock {
		q += ` FOR UPDATE`
	}

	var c Cart
	if err := r.db.QueryRow(ctx, q, userID).Scan(
		&c.ID, &c.UserID, &c.TotalPrice, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	items, err := r.items(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Items = items
	return &c, nil
}

func (r *Repository) items(ctx context.Context, cartID int64) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, product_id, quantity, size, color
FROM cart_items
WHERE cart_id = $1
ORDER BY id ASC
`, cartID)
	if err != nil {
		return nil, fmt.Errorf("cart items: %w", err)
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Quantity, &it.SelectedVariant.Size, &it.SelectedVariant.Color); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cart items rows: %w", err)
	}
	return out, nil
}

func (r *Repository) Save(ctx context.Context, c *Cart) error {
	keep := make([]int64, 0, len(c.Items))
	for _, it := range c.Items {
		if it.ID != 0 {
			keep = append(keep, it.ID)
		}
	}

	if _, err := r.db.Exec(ctx, `
DELETE FROM cart_items
WHERE cart_id = $1
  AND NOT (id = ANY($2))
`, c.ID, keep); err != nil {
		return fmt.Errorf("prune cart items: %w", err)
	}

	for i := range c.Items {
		it := &c.Items[i]
		if it.ID == 0 {
			if err := r.db.QueryRow(ctx, `
INSERT INTO cart_items (cart_id, product_id, quantity, size, color)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (cart_id, product_id, size, color)
DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
RETURNING id
`, c.ID, it.ProductID, it.Quantity, it.SelectedVariant.Size, it.SelectedVariant.Color).Scan(&it.ID); err != nil {
				return fmt.Errorf("insert cart item: %w", err)
			}
			continue
		}

		if _, err := r.db.Exec(ctx, `
UPDATE cart_items
SET quantity = $3, updated_at = now()
WHERE id = $2 AND cart_id = $1 AND quantity <> $3
`, c.ID, it.ID, it.Quantity); err != nil {
			return fmt.Errorf("update cart item: %w", err)
		}
	}

	if err := r.db.QueryRow(ctx, `
UPDATE carts
SET total_price = $2, updated_at = now()
WHERE id = $1
RETURNING updated_at
`, c.ID, c.TotalPrice.Round(2)).Scan(&c.UpdatedAt); err != nil {
		return fmt.Errorf("save cart total: %w", err)
	}
	return nil
}
