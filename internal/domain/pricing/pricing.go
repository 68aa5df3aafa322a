// Package pricing computes cart line prices and totals from the current
// catalog.
//
// Per line the effective unit price is the product's base price less its
// percentage discount. When the product declares variants and one is
// compatible with the line's selection, the first such variant's price
// replaces the effective price outright; the discount is not applied to it.
// Unit prices are rounded to cents before they are multiplied out, so line
// totals and the cart total are exact sums of what an order will store.
// Lines whose product no longer exists are priced at zero and flagged as
// orphaned instead of failing the whole computation.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Pawandasila/Ecom-backend/internal/domain/carts"
	"github.com/Pawandasila/Ecom-backend/internal/domain/errs"
	"github.com/Pawandasila/Ecom-backend/internal/domain/products"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Catalog is the read contract pricing needs from the product store.
// FindByID reports a missing product with errs.ErrNotFound.
type Catalog interface {
	FindByID(ctx context.Context, id int64) (*products.Product, error)
}

type Line struct {
	ItemID          int64              `json:"item_id"`
	ProductID       int64              `json:"product_id"`
	ProductName     string             `json:"product_name,omitempty"`
	Quantity        int                `json:"quantity"`
	SelectedVariant products.Selection `json:"selected_variant"`
	UnitPrice       decimal.Decimal    `json:"unit_price"`
	LineTotal       decimal.Decimal    `json:"line_total"`
	VariantMatched  bool               `json:"variant_matched"`
	Orphaned        bool               `json:"orphaned,omitempty"`
}

type Quote struct {
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// Err returns a *errs.ReferentialIntegrityError listing the products of all
// orphaned lines, or nil when every line resolved.
func (q Quote) Err() error {
	var missing []int64
	seen := map[int64]bool{}
	for _, l := range q.Lines {
		if l.Orphaned && !seen[l.ProductID] {
			seen[l.ProductID] = true
			missing = append(missing, l.ProductID)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return &errs.ReferentialIntegrityError{ProductIDs: missing}
}

// UnitPrice resolves the effective price of one unit of p under sel, rounded
// to cents, and reports whether a variant price was used.
func UnitPrice(p *products.Product, sel products.Selection) (decimal.Decimal, bool) {
	if v, ok := p.MatchVariant(sel.Normalize()); ok {
		return v.Price.Round(2), true
	}
	return p.DiscountedPrice().Round(2), false
}

type Engine struct {
	catalog     Catalog
	concurrency int
}

func NewEngine(catalog Catalog, concurrency int) *Engine {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Engine{catalog: catalog, concurrency: concurrency}
}

// Price prices every line of items. The returned Total is an exact sum of
// cent-rounded line totals, so it does not depend on the order of items.
func (e *Engine) Price(ctx context.Context, items []carts.Item) (Quote, error) {
	catalog, err := e.resolve(ctx, items)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{Lines: make([]Line, 0, len(items)), Total: decimal.Zero}
	for _, it := range items {
		line := Line{
			ItemID:          it.ID,
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			SelectedVariant: it.SelectedVariant,
			UnitPrice:       decimal.Zero,
			LineTotal:       decimal.Zero,
		}

		p, ok := catalog[it.ProductID]
		if !ok {
			line.Orphaned = true
			q.Lines = append(q.Lines, line)
			continue
		}

		line.ProductName = p.Name
		line.UnitPrice, line.VariantMatched = UnitPrice(p, it.SelectedVariant)
		line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		q.Total = q.Total.Add(line.LineTotal)
		q.Lines = append(q.Lines, line)
	}
	return q, nil
}

// resolve fetches each distinct product once, bounded by e.concurrency.
// Products that are not found are simply absent from the result.
func (e *Engine) resolve(ctx context.Context, items []carts.Item) (map[int64]*products.Product, error) {
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}

	found := make([]*products.Product, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			p, err := e.catalog.FindByID(gctx, id)
			if err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					return nil
				}
				return fmt.Errorf("resolve product %d: %w", id, err)
			}
			found[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[int64]*products.Product, len(ids))
	for i, id := range ids {
		if found[i] != nil {
			out[id] = found[i]
		}
	}
	return out, nil
}
