package products

import (
	"context"
	"time"

	"github.com/Pawandasila/Ecom-backend/internal/domain/errs"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Variant is a purchasable configuration of a product. Its Price replaces the
// product's discounted base price when a cart line selects it.
type Variant struct {
	Size  string          `json:"size,omitempty"`
	Color string          `json:"color,omitempty"`
	Stock int             `json:"stock"`
	Price decimal.Decimal `json:"price"`
	SKU   string          `json:"sku,omitempty"`
}

type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	BasePrice     decimal.Decimal `json:"base_price"`
	Discount      decimal.Decimal `json:"discount"` // percent, 0..100
	ImageURL      string          `json:"image_url"`
	Variants      []Variant       `json:"variants"`
	AverageRating decimal.Decimal `json:"average_rating"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Validate checks the catalog invariants that the database constraints do
// not express (variant prices) and reports them as invalid arguments.
func (p *Product) Validate() error {
	if p.BasePrice.IsNegative() {
		return errs.InvalidArgument("base price must not be negative")
	}
	if p.Discount.IsNegative() || p.Discount.GreaterThan(hundred) {
		return errs.InvalidArgument("discount must be between 0 and 100")
	}
	for i, v := range p.Variants {
		if v.Price.IsNegative() {
			return errs.InvalidArgument("variant price must not be negative")
		}
		if v.Stock < 0 {
			return errs.InvalidArgument("variant stock must not be negative")
		}
		p.Variants[i].Size = normalize(v.Size)
		p.Variants[i].Color = normalize(v.Color)
	}
	if p.Variants == nil {
		p.Variants = []Variant{}
	}
	return nil
}

// ListFilter carries the catalog query string. Tags are read by
// gorilla/schema (query keys) and creasty/defaults.
type ListFilter struct {
	Category  string   `schema:"category"`
	MinPrice  *float64 `schema:"minPrice"`
	MaxPrice  *float64 `schema:"maxPrice"`
	Search    string   `schema:"search"`
	SortBy    string   `schema:"sortBy" default:"createdAt"`
	SortOrder string   `schema:"sortOrder" default:"desc"`

	// ExactCategory restricts Category to an exact (case-insensitive) match
	// instead of a substring search.
	ExactCategory bool `schema:"-"`
}

type Store interface {
	Create(ctx context.Context, p *Product) error
	FindByID(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Product, int, error)
	Update(ctx context.Context, p *Product) error
	SetImageURL(ctx context.Context, id int64, url string) error
	Delete(ctx context.Context, id int64) error
}
