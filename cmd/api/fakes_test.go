package main

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Pawandasila/Ecom-backend/internal/domain/errs"
	"github.com/Pawandasila/Ecom-backend/internal/domain/orders"
	"github.com/Pawandasila/Ecom-backend/internal/domain/products"
	"github.com/Pawandasila/Ecom-backend/internal/domain/sales"
	"github.com/Pawandasila/Ecom-backend/internal/domain/users"
)

type memUsers struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*users.User
	refresh map[int64]string
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]*users.User{}, refresh: map[int64]string{}}
}

func (m *memUsers) Create(_ context.Context, u *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return users.ErrDuplicateEmail
		}
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, errs.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.NotFound("user")
}

func (m *memUsers) Update(_ context.Context, u *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return errs.NotFound("user")
	}
	for id, existing := range m.byID {
		if id != u.ID && existing.Email == strings.ToLower(u.Email) {
			return users.ErrDuplicateEmail
		}
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, u *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[u.ID]
	if !ok {
		return errs.NotFound("user")
	}
	stored.Password = u.Password
	delete(m.refresh, u.ID)
	return nil
}

func (m *memUsers) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return errs.NotFound("user")
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) List(_ context.Context, role users.Role, limit, offset int) ([]users.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []users.User
	for _, u := range m.byID {
		if role == "" || u.Role == role {
			all = append(all, *u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (m *memUsers) SaveRefreshToken(_ context.Context, userID int64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[userID] = token
	return nil
}

func (m *memUsers) RefreshTokenMatches(_ context.Context, userID int64, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.refresh[userID]
	return ok && stored == token, nil
}

func (m *memUsers) DeleteRefreshToken(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refresh, userID)
	return nil
}

type memProducts struct {
	mu         sync.Mutex
	nextID     int64
	byID       map[int64]*products.Product
	lastFilter products.ListFilter
	lastLimit  int
	lastOffset int
}

func newMemProducts() *memProducts {
	return &memProducts{byID: map[int64]*products.Product{}}
}

func (m *memProducts) Create(_ context.Context, p *products.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProducts) FindByID(_ context.Context, id int64) (*products.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, errs.NotFound("product")
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) List(_ context.Context, f products.ListFilter, limit, offset int) ([]*products.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter, m.lastLimit, m.lastOffset = f, limit, offset
	out := []*products.Product{}
	for _, p := range m.byID {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memProducts) Update(_ context.Context, p *products.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; !ok {
		return errs.NotFound("product")
	}
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProducts) SetImageURL(_ context.Context, id int64, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return errs.NotFound("product")
	}
	p.ImageURL = url
	return nil
}

func (m *memProducts) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return errs.NotFound("product")
	}
	delete(m.byID, id)
	return nil
}

// stubSales records its inputs and returns canned results.
type stubSales struct {
	cart     *sales.CartView
	order    *orders.Order
	replayed bool
	err      error

	lastUserID   int64
	lastAdd      sales.AddItemInput
	lastCheckout sales.CheckoutInput
	lastStatus   orders.Status
	lastLimit    int
	lastOffset   int
}

func (s *stubSales) GetCart(_ context.Context, userID int64) (*sales.CartView, error) {
	s.lastUserID = userID
	return s.cart, s.err
}

func (s *stubSales) AddItem(_ context.Context, userID int64, in sales.AddItemInput) (*sales.CartView, error) {
	s.lastUserID, s.lastAdd = userID, in
	return s.cart, s.err
}

func (s *stubSales) UpdateItem(_ context.Context, userID, _ int64, _ int) (*sales.CartView, error) {
	s.lastUserID = userID
	return s.cart, s.err
}

func (s *stubSales) RemoveItem(_ context.Context, userID, _ int64) (*sales.CartView, error) {
	s.lastUserID = userID
	return s.cart, s.err
}

func (s *stubSales) ClearCart(_ context.Context, userID int64) (*sales.CartView, error) {
	s.lastUserID = userID
	return s.cart, s.err
}

func (s *stubSales) CreateOrder(_ context.Context, userID int64, in sales.CheckoutInput) (*orders.Order, bool, error) {
	s.lastUserID, s.lastCheckout = userID, in
	if s.err != nil {
		return nil, false, s.err
	}
	return s.order, s.replayed, nil
}

func (s *stubSales) CancelOrder(_ context.Context, userID, _ int64) (*orders.Order, error) {
	s.lastUserID = userID
	return s.order, s.err
}

func (s *stubSales) GetMyOrder(_ context.Context, userID, _ int64) (*orders.Order, error) {
	s.lastUserID = userID
	return s.order, s.err
}

func (s *stubSales) ListMyOrders(_ context.Context, userID int64, limit, offset int) ([]orders.Order, int, error) {
	s.lastUserID, s.lastLimit, s.lastOffset = userID, limit, offset
	if s.err != nil {
		return nil, 0, s.err
	}
	if s.order == nil {
		return nil, 0, nil
	}
	return []orders.Order{*s.order}, 1, nil
}

func (s *stubSales) AdvanceOrder(_ context.Context, _ int64, to orders.Status) (*orders.Order, error) {
	s.lastStatus = to
	return s.order, s.err
}

func (s *stubSales) ListAllOrders(_ context.Context, status orders.Status, limit, offset int) ([]orders.Order, int, error) {
	s.lastStatus, s.lastLimit, s.lastOffset = status, limit, offset
	if s.err != nil {
		return nil, 0, s.err
	}
	return nil, 0, nil
}
