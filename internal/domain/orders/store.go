package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/Pawandasila/Ecom-backend/internal/domain/errs"
	"github.com/Pawandasila/Ecom-backend/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct {
	q   dbx.Querier
	gen *OrderNumberGenerator
}

func NewRepository(q dbx.Querier, gen *OrderNumberGenerator) *Repository {
	if gen == nil {
		panic("orders: OrderNumberGenerator is nil")
	}
	return &Repository{
		q:   q,
		gen: gen,
	}
}

const orderColumns = `id, COALESCE(order_number, ''), user_id, total_price, shipping_cost, shipping_address,
       status, estimated_delivery_date, actual_delivery_date, is_cancelled, notes,
       created_at, updated_at`

func scanOrder(row pgx.Row, o *Order, extra ...any) error {
	dest := []any{
		&o.ID, &o.OrderNumber, &o.UserID, &o.TotalPrice, &o.ShippingCost, &o.ShippingAddress,
		&o.Status, &o.EstimatedDeliveryDate, &o.ActualDeliveryDate, &o.IsCancelled, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// Create must run inside a transaction: the order row, its number and its
// items are written by separate statements.
func (r *Repository) Create(ctx context.Context, o *Order) error {
	if err := r.q.QueryRow(ctx, `
INSERT INTO orders (
  user_id, total_price, shipping_cost, shipping_address,
  status, estimated_delivery_date, is_cancelled, notes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at, updated_at
`,
		o.UserID, o.TotalPrice.Round(2), o.ShippingCost.Round(2), o.ShippingAddress,
		o.Status, o.EstimatedDeliveryDate, o.IsCancelled, o.Notes,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	number, err := r.gen.Generate(o.ID)
	if err != nil {
		return err
	}
	if _, err := r.q.Exec(ctx, `UPDATE orders SET order_number = $2 WHERE id = $1`, o.ID, number); err != nil {
		return fmt.Errorf("set order number: %w", err)
	}
	o.OrderNumber = number

	for i := range o.Items {
		it := &o.Items[i]
		if err := r.q.QueryRow(ctx, `
INSERT INTO order_items (order_id, product_id, product_name, quantity, size, color, unit_price)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`, o.ID, it.ProductID, it.ProductName, it.Quantity, it.SelectedVariant.Size, it.SelectedVariant.Color,
			it.UnitPrice.Round(2)).Scan(&it.ID); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, orderID int64) (*Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
}

func (r *Repository) GetForUser(ctx context.Context, userID, orderID int64) (*Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, orderID, userID)
}

func (r *Repository) GetForUpdate(ctx context.Context, orderID int64) (*Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID)
}

func (r *Repository) get(ctx context.Context, query string, args ...any) (*Order, error) {
	var o Order
	if err := scanOrder(r.q.QueryRow(ctx, query, args...), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("order")
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.loadItems(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = []OrderItem{}
	}
	return &o, nil
}

// loadItems returns the items of every order in ids keyed by order id.
func (r *Repository) loadItems(ctx context.Context, ids []int64) (map[int64][]OrderItem, error) {
	out := make(map[int64][]OrderItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.q.Query(ctx, `
SELECT id, order_id, product_id, product_name, quantity, size, color, unit_price
FROM order_items
WHERE order_id = ANY($1)
ORDER BY id ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it      OrderItem
			orderID int64
		)
		if err := rows.Scan(
			&it.ID, &orderID, &it.ProductID, &it.ProductName, &it.Quantity,
			&it.SelectedVariant.Size, &it.SelectedVariant.Color, &it.UnitPrice,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out[orderID] = append(out[orderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Order, int, error) {
	return r.list(ctx, `user_id = $1`, []any{userID}, limit, offset)
}

// ListAll: admin – optional filter by status, newest first
func (r *Repository) ListAll(ctx context.Context, status Status, limit, offset int) ([]Order, int, error) {
	return r.list(ctx, `($1 = '' OR status = $1)`, []any{string(status)}, limit, offset)
}

// list pages through orders matching where, whose placeholders start at $1.
func (r *Repository) list(ctx context.Context, where string, args []any, limit, offset int) ([]Order, int, error) {
	n := len(args)
	query := fmt.Sprintf(`
SELECT %s, COUNT(*) OVER() AS total_count
FROM orders
WHERE %s
ORDER BY created_at DESC, id DESC
LIMIT $%d OFFSET $%d`, orderColumns, where, n+1, n+2)

	rows, err := r.q.Query(ctx, query, append(args[:n:n], limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var (
		out   = []Order{}
		ids   []int64
		total int
	)
	for rows.Next() {
		var (
			o Order
			t int
		)
		if err := scanOrder(rows, &o, &t); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	// Fallback: paged past the end → no rows, but total may be > 0.
	total, err = dbx.PageTotal(ctx, r.q, len(out), total, offset,
		`SELECT COUNT(*) FROM orders WHERE `+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
		if out[i].Items == nil {
			out[i].Items = []OrderItem{}
		}
	}
	return out, total, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, o *Order) error {
	err := r.q.QueryRow(ctx, `
UPDATE orders
SET status = $2, is_cancelled = $3, actual_delivery_date = $4, updated_at = now()
WHERE id = $1
RETURNING updated_at
`, o.ID, o.Status, o.IsCancelled, o.ActualDeliveryDate).Scan(&o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.NotFound("order")
	}
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}
