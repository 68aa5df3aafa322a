package params

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// URL: /orders?page=2&limit=30
// → ParsePagination() → Pagination{Limit:30, Page:2, Offset:30}
// → SQL: SELECT ... LIMIT 30 OFFSET 30
// → DB returns rows + COUNT(*) OVER()
// → ComputeMeta(total) fills TotalPages, HasNext, etc.
type Pagination struct {
	Limit       int  `json:"limit"`
	Offset      int  `json:"-"`
	CurrentPage int  `json:"current_page"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// ParsePagination parses ?limit=...&page=... safely. Keys are case sensitive.
// Garbage or non-positive values fall back to the defaults; limit is capped
// at MaxLimit.
func ParsePagination(q url.Values) Pagination {
	p := Pagination{
		Limit:       DefaultLimit,
		CurrentPage: 1,
	}

	if limitStr := strings.TrimSpace(q.Get("limit")); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			switch {
			case limit <= 0:
				p.Limit = DefaultLimit
			case limit > MaxLimit:
				p.Limit = MaxLimit
			default:
				p.Limit = limit
			}
		}
	}

	if pageStr := strings.TrimSpace(q.Get("page")); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			p.CurrentPage = page
		}
	}

	p.Offset = (p.CurrentPage - 1) * p.Limit
	return p
}

// ComputeMeta updates pagination after fetching total count.
func (p *Pagination) ComputeMeta(total int) {
	p.TotalItems = total
	if p.Limit > 0 {
		p.TotalPages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	p.HasPrev = p.CurrentPage > 1
	p.HasNext = p.CurrentPage < p.TotalPages
}
