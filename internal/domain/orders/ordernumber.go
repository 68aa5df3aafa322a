package orders

import (
	"fmt"
	"strings"

	"github.com/speps/go-hashids/v2"
)

const orderNumberPrefix = "ORD-"

// OrderNumberGenerator turns database ids into short public order
// references that do not reveal order volume.
type OrderNumberGenerator struct {
	h *hashids.HashID
}

func NewOrderNumberGenerator(salt string) (*OrderNumberGenerator, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = 8
	hd.Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("order number generator: %w", err)
	}
	return &OrderNumberGenerator{h: h}, nil
}

func (g *OrderNumberGenerator) Generate(orderID int64) (string, error) {
	s, err := g.h.EncodeInt64([]int64{orderID})
	if err != nil {
		return "", fmt.Errorf("encode order number: %w", err)
	}
	return orderNumberPrefix + s, nil
}

// Decode returns the order id behind a number produced by Generate.
func (g *OrderNumberGenerator) Decode(number string) (int64, error) {
	s, ok := strings.CutPrefix(number, orderNumberPrefix)
	if !ok {
		return 0, fmt.Errorf("malformed order number %q", number)
	}
	ids, err := g.h.DecodeInt64WithError(s)
	if err != nil || len(ids) != 1 {
		return 0, fmt.Errorf("malformed order number %q", number)
	}
	return ids[0], nil
}
