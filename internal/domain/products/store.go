package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Pawandasila/Ecom-backend/internal/domain/errs"
	"github.com/Pawandasila/Ecom-backend/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

var sortColumns = map[string]string{
	"createdAt":     "created_at",
	"basePrice":     "base_price",
	"name":          "name",
	"averageRating": "average_rating",
	"discount":      "discount",
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

const productColumns = `id, name, description, category, base_price, discount, image_url, variants, average_rating, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var (
		p        Product
		variants []byte
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.BasePrice, &p.Discount,
		&p.ImageURL, &variants, &p.AverageRating, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(variants, &p.Variants); err != nil {
		return nil, fmt.Errorf("decode variants of product %d: %w", p.ID, err)
	}
	if p.Variants == nil {
		p.Variants = []Variant{}
	}
	return &p, nil
}

func (r *Repository) Create(ctx context.Context, p *Product) error {
	variants, err := json.Marshal(p.Variants)
	if err != nil {
		return fmt.Errorf("encode variants: %w", err)
	}

	err = r.db.QueryRow(ctx, `
INSERT INTO products (name, description, category, base_price, discount, image_url, variants)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, average_rating, created_at, updated_at
`, p.Name, p.Description, p.Category, p.BasePrice, p.Discount, p.ImageURL, variants,
	).Scan(&p.ID, &p.AverageRating, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// FindByID is the catalog read contract used by pricing. A missing product
// is reported as errs.ErrNotFound.
func (r *Repository) FindByID(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("product")
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Product, int, error) {
	where := "1=1"
	args := []any{}
	arg := 1

	if c := strings.TrimSpace(f.Category); c != "" {
		if f.ExactCategory {
			where += fmt.Sprintf(" AND lower(category) = lower($%d)", arg)
			args = append(args, c)
		} else {
			where += fmt.Sprintf(" AND category ILIKE $%d", arg)
			args = append(args, "%"+c+"%")
		}
		arg++
	}
	if f.MinPrice != nil {
		where += fmt.Sprintf(" AND base_price >= $%d", arg)
		args = append(args, *f.MinPrice)
		arg++
	}
	if f.MaxPrice != nil {
		where += fmt.Sprintf(" AND base_price <= $%d", arg)
		args = append(args, *f.MaxPrice)
		arg++
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", arg, arg)
		args = append(args, "%"+s+"%")
		arg++
	}

	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		direction = "ASC"
	}

	q := fmt.Sprintf(`
SELECT %s, COUNT(*) OVER() AS total
FROM products
WHERE %s
ORDER BY %s %s, id %s
LIMIT $%d OFFSET $%d
`, productColumns, where, column, direction, direction, arg, arg+1)
	filterArgs := args[:len(args):len(args)]
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []*Product{}
	total := 0
	for rows.Next() {
		var (
			p        Product
			variants []byte
			t        int
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Category, &p.BasePrice, &p.Discount,
			&p.ImageURL, &variants, &p.AverageRating, &p.CreatedAt, &p.UpdatedAt, &t,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		if err := json.Unmarshal(variants, &p.Variants); err != nil {
			return nil, 0, fmt.Errorf("decode variants of product %d: %w", p.ID, err)
		}
		total = t
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list products rows: %w", err)
	}
	rows.Close()

	total, err = dbx.PageTotal(ctx, r.db, len(out), total, offset,
		`SELECT COUNT(*) FROM products WHERE `+where, filterArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	return out, total, nil
}

func (r *Repository) Update(ctx context.Context, p *Product) error {
	variants, err := json.Marshal(p.Variants)
	if err != nil {
		return fmt.Errorf("encode variants: %w", err)
	}

	err = r.db.QueryRow(ctx, `
UPDATE products
SET name = $2,
    description = $3,
    category = $4,
    base_price = $5,
    discount = $6,
    image_url = $7,
    variants = $8,
    updated_at = now()
WHERE id = $1
RETURNING updated_at
`, p.ID, p.Name, p.Description, p.Category, p.BasePrice, p.Discount, p.ImageURL, variants,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.NotFound("product")
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *Repository) SetImageURL(ctx context.Context, id int64, url string) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET image_url = $2, updated_at = now() WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("set product image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("product")
	}
	return nil
}

// Delete removes the product row. Cart lines that still reference it are
// left in place and surface as orphaned lines when the cart is priced.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("product")
	}
	return nil
}
