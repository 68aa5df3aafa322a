package sales

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Pawandasila/Ecom-backend/internal/domain/carts"
	"github.com/Pawandasila/Ecom-backend/internal/domain/errs"
	"github.com/Pawandasila/Ecom-backend/internal/domain/orders"
	"github.com/Pawandasila/Ecom-backend/internal/domain/products"
	"github.com/Pawandasila/Ecom-backend/internal/domain/storage"
	"github.com/Pawandasila/Ecom-backend/internal/domain/users"

	"github.com/shopspring/decimal"
)

// memDB is an in-memory stand-in for the sales tables. WithSalesTx holds mu
// for the whole unit of work and restores a snapshot when fn fails, which is
// how a row-locked postgres transaction behaves for a single cart.
type memDB struct {
	mu        sync.Mutex
	carts     map[int64]*carts.Cart
	orders    map[int64]*orders.Order
	nextCart  int64
	nextItem  int64
	nextOrder int64
	gen       *orders.OrderNumberGenerator

	failOrderCreate error
}

func newMemDB() *memDB {
	gen, err := orders.NewOrderNumberGenerator("test")
	if err != nil {
		panic(err)
	}
	return &memDB{
		carts:  map[int64]*carts.Cart{},
		orders: map[int64]*orders.Order{},
		gen:    gen,
	}
}

func copyCart(c *carts.Cart) *carts.Cart {
	cp := *c
	cp.Items = append([]carts.Item{}, c.Items...)
	return &cp
}

func copyOrder(o *orders.Order) *orders.Order {
	cp := *o
	cp.Items = append([]orders.OrderItem{}, o.Items...)
	if o.ActualDeliveryDate != nil {
		t := *o.ActualDeliveryDate
		cp.ActualDeliveryDate = &t
	}
	return &cp
}

func (m *memDB) WithSalesTx(_ context.Context, fn func(s *storage.SalesTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cartsSnap := map[int64]*carts.Cart{}
	for k, v := range m.carts {
		cartsSnap[k] = copyCart(v)
	}
	ordersSnap := map[int64]*orders.Order{}
	for k, v := range m.orders {
		ordersSnap[k] = copyOrder(v)
	}
	seq := [3]int64{m.nextCart, m.nextItem, m.nextOrder}

	err := fn(&storage.SalesTx{Carts: memCarts{m}, Orders: memOrders{m}})
	if err != nil {
		m.carts, m.orders = cartsSnap, ordersSnap
		m.nextCart, m.nextItem, m.nextOrder = seq[0], seq[1], seq[2]
	}
	return err
}

// memCarts and memOrders assume mu is held; locked wraps them for reads
// outside a unit of work.
type memCarts struct{ m *memDB }

func (s memCarts) GetOrCreate(_ context.Context, userID int64) (*carts.Cart, error) {
	c, ok := s.m.carts[userID]
	if !ok {
		s.m.nextCart++
		c = &carts.Cart{ID: s.m.nextCart, UserID: userID, Items: []carts.Item{}, TotalPrice: decimal.Zero}
		s.m.carts[userID] = c
	}
	return copyCart(c), nil
}

func (s memCarts) GetForUpdate(ctx context.Context, userID int64) (*carts.Cart, error) {
	return s.GetOrCreate(ctx, userID)
}

func (s memCarts) Save(_ context.Context, c *carts.Cart) error {
	for i := range c.Items {
		if c.Items[i].ID == 0 {
			s.m.nextItem++
			c.Items[i].ID = s.m.nextItem
		}
	}
	c.TotalPrice = c.TotalPrice.Round(2)
	s.m.carts[c.UserID] = copyCart(c)
	return nil
}

type memOrders struct{ m *memDB }

func (s memOrders) Create(_ context.Context, o *orders.Order) error {
	if s.m.failOrderCreate != nil {
		return s.m.failOrderCreate
	}
	s.m.nextOrder++
	o.ID = s.m.nextOrder
	n, err := s.m.gen.Generate(o.ID)
	if err != nil {
		return err
	}
	o.OrderNumber = n
	o.TotalPrice = o.TotalPrice.Round(2)
	for i := range o.Items {
		o.Items[i].ID = int64(i + 1)
	}
	s.m.orders[o.ID] = copyOrder(o)
	return nil
}

func (s memOrders) GetByID(_ context.Context, id int64) (*orders.Order, error) {
	o, ok := s.m.orders[id]
	if !ok {
		return nil, errs.NotFound("order")
	}
	return copyOrder(o), nil
}

func (s memOrders) GetForUser(ctx context.Context, userID, id int64) (*orders.Order, error) {
	o, err := s.GetByID(ctx, id)
	if err != nil || o.UserID != userID {
		return nil, errs.NotFound("order")
	}
	return o, nil
}

func (s memOrders) GetForUpdate(ctx context.Context, id int64) (*orders.Order, error) {
	return s.GetByID(ctx, id)
}

func (s memOrders) list(keep func(*orders.Order) bool, limit, offset int) ([]orders.Order, int, error) {
	var all []orders.Order
	for _, o := range s.m.orders {
		if keep(o) {
			all = append(all, *copyOrder(o))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (s memOrders) ListByUser(_ context.Context, userID int64, limit, offset int) ([]orders.Order, int, error) {
	return s.list(func(o *orders.Order) bool { return o.UserID == userID }, limit, offset)
}

func (s memOrders) ListAll(_ context.Context, status orders.Status, limit, offset int) ([]orders.Order, int, error) {
	return s.list(func(o *orders.Order) bool { return status == "" || o.Status == status }, limit, offset)
}

func (s memOrders) UpdateStatus(_ context.Context, o *orders.Order) error {
	if _, ok := s.m.orders[o.ID]; !ok {
		return errs.NotFound("order")
	}
	s.m.orders[o.ID] = copyOrder(o)
	return nil
}

type lockedCarts struct{ m *memDB }

func (s lockedCarts) GetOrCreate(ctx context.Context, userID int64) (*carts.Cart, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memCarts(s).GetOrCreate(ctx, userID)
}

func (s lockedCarts) GetForUpdate(ctx context.Context, userID int64) (*carts.Cart, error) {
	return s.GetOrCreate(ctx, userID)
}

func (s lockedCarts) Save(ctx context.Context, c *carts.Cart) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memCarts(s).Save(ctx, c)
}

type lockedOrders struct {
	memOrders
}

func (s lockedOrders) GetForUser(ctx context.Context, userID, id int64) (*orders.Order, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.memOrders.GetForUser(ctx, userID, id)
}

func (s lockedOrders) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]orders.Order, int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.memOrders.ListByUser(ctx, userID, limit, offset)
}

func (s lockedOrders) ListAll(ctx context.Context, status orders.Status, limit, offset int) ([]orders.Order, int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.memOrders.ListAll(ctx, status, limit, offset)
}

type memCatalog struct {
	mu       sync.Mutex
	products map[int64]*products.Product
}

func (c *memCatalog) FindByID(_ context.Context, id int64) (*products.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, errs.NotFound("product")
	}
	cp := *p
	return &cp, nil
}

func (c *memCatalog) put(p *products.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

func (c *memCatalog) delete(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
}

type published struct {
	topic, key string
	payload    any
}

type memPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *memPublisher) Publish(_ context.Context, topic, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic, key, payload})
	return nil
}

func (p *memPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.topic)
	}
	return out
}

type sentMail struct {
	template, email string
}

type memMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *memMailer) Send(templateFile, _, email string, _ any) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{templateFile, email})
	return 200, nil
}

type memDirectory map[int64]*users.User

func (d memDirectory) GetByID(_ context.Context, id int64) (*users.User, error) {
	if u, ok := d[id]; ok {
		return u, nil
	}
	return nil, errs.NotFound("user")
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]int64
}

func (i *memIdempotency) Reserve(_ context.Context, userID int64, key string) (int64, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	k := idemKey(userID, key)
	if id, ok := i.keys[k]; ok {
		return id, false, nil
	}
	i.keys[k] = 0
	return 0, true, nil
}

func (i *memIdempotency) Complete(_ context.Context, userID int64, key string, orderID int64) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.keys[idemKey(userID, key)] = orderID
	return nil
}

func (i *memIdempotency) Release(_ context.Context, userID int64, key string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.keys, idemKey(userID, key))
	return nil
}

func idemKey(userID int64, key string) string { return fmt.Sprintf("%d/%s", userID, key) }

var errBoom = errors.New("boom")
