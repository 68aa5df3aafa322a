package products

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Selection is the size/color a shopper picked. An empty field means the
// attribute was not specified and matches any variant value.
type Selection struct {
	Size  string `json:"size,omitempty"`
	Color string `json:"color,omitempty"`
}

func (s Selection) Normalize() Selection {
	return Selection{Size: normalize(s.Size), Color: normalize(s.Color)}
}

func normalize(v string) string { return strings.TrimSpace(v) }

// MatchVariant returns the first variant, in declared order, compatible with
// the selection.
func (p *Product) MatchVariant(sel Selection) (Variant, bool) {
	for _, v := range p.Variants {
		if (sel.Size == "" || sel.Size == v.Size) && (sel.Color == "" || sel.Color == v.Color) {
			return v, true
		}
	}
	return Variant{}, false
}

// DiscountedPrice is the base price with the product discount applied.
func (p *Product) DiscountedPrice() decimal.Decimal {
	price := p.BasePrice
	if p.Discount.IsPositive() {
		price = price.Sub(price.Mul(p.Discount).Div(hundred))
	}
	return price
}
