// Package sales coordinates carts, pricing and orders: every cart mutation,
// checkout and order status change runs here as one unit of work.
package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Pawandasila/Ecom-backend/internal/domain/carts"
	"github.com/Pawandasila/Ecom-backend/internal/domain/errs"
	"github.com/Pawandasila/Ecom-backend/internal/domain/orders"
	"github.com/Pawandasila/Ecom-backend/internal/domain/pricing"
	"github.com/Pawandasila/Ecom-backend/internal/domain/products"
	"github.com/Pawandasila/Ecom-backend/internal/domain/storage"
	"github.com/Pawandasila/Ecom-backend/internal/events"
	"github.com/Pawandasila/Ecom-backend/internal/mailer"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Deps struct {
	UnitOfWork UnitOfWork
	Carts      carts.Store
	Orders     orders.Store
	Catalog    pricing.Catalog
	Pricing    *pricing.Engine
	Users      Directory
	Events     events.Publisher
	Mailer     mailer.Client
	// Idempotency is optional; without it Idempotency-Key headers are ignored.
	Idempotency Idempotency
	Logger      *zap.SugaredLogger
}

type Service struct {
	uow     UnitOfWork
	carts   carts.Store
	orders  orders.Store
	catalog pricing.Catalog
	pricing *pricing.Engine
	users   Directory
	events  events.Publisher
	mailer  mailer.Client
	idem    Idempotency
	logger  *zap.SugaredLogger
	now     func() time.Time

	bg sync.WaitGroup
}

func NewService(d Deps) *Service {
	if d.Events == nil {
		d.Events = events.NopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	if d.Pricing == nil {
		d.Pricing = pricing.NewEngine(d.Catalog, 0)
	}
	return &Service{
		uow:     d.UnitOfWork,
		carts:   d.Carts,
		orders:  d.Orders,
		catalog: d.Catalog,
		pricing: d.Pricing,
		users:   d.Users,
		events:  d.Events,
		mailer:  d.Mailer,
		idem:    d.Idempotency,
		logger:  d.Logger,
		now:     time.Now,
	}
}

// Wait blocks until background work (confirmation emails) has finished.
func (s *Service) Wait() { s.bg.Wait() }

// CartView is a cart with every line priced against the current catalog.
type CartView struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	Items      []pricing.Line  `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	// Unavailable lists products that were deleted while still in the cart.
	Unavailable []int64   `json:"unavailable_products,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newCartView(c *carts.Cart, q pricing.Quote) *CartView {
	v := &CartView{
		ID:         c.ID,
		UserID:     c.UserID,
		Items:      q.Lines,
		TotalPrice: q.Total,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
	var rie *errs.ReferentialIntegrityError
	if errors.As(q.Err(), &rie) {
		v.Unavailable = rie.ProductIDs
	}
	return v
}

// GetCart returns the user's cart, creating an empty one on first access.
// A cached total that no longer matches the catalog is refreshed.
func (s *Service) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	q, err := s.pricing.Price(ctx, c.Items)
	if err != nil {
		return nil, err
	}
	if !q.Total.Round(2).Equal(c.TotalPrice) {
		return s.mutateCart(ctx, userID, func(*carts.Cart) error { return nil })
	}
	return newCartView(c, q), nil
}

type AddItemInput struct {
	ProductID       int64
	Quantity        int
	SelectedVariant products.Selection
}

func (s *Service) AddItem(ctx context.Context, userID int64, in AddItemInput) (*CartView, error) {
	if in.Quantity < 1 {
		return nil, errs.InvalidArgument("quantity must be at least 1")
	}
	if _, err := s.catalog.FindByID(ctx, in.ProductID); err != nil {
		return nil, err
	}
	return s.mutateCart(ctx, userID, func(c *carts.Cart) error {
		_, err := c.AddItem(in.ProductID, in.Quantity, in.SelectedVariant)
		return err
	})
}

func (s *Service) UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, errs.InvalidArgument("quantity must be at least 1")
	}
	return s.mutateCart(ctx, userID, func(c *carts.Cart) error {
		return c.UpdateItem(itemID, quantity)
	})
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID int64) (*CartView, error) {
	return s.mutateCart(ctx, userID, func(c *carts.Cart) error {
		return c.RemoveItem(itemID)
	})
}

func (s *Service) ClearCart(ctx context.Context, userID int64) (*CartView, error) {
	return s.mutateCart(ctx, userID, func(c *carts.Cart) error {
		c.Clear()
		return nil
	})
}

// mutateCart locks the cart, applies fn, reprices and saves, all in one
// transaction.
func (s *Service) mutateCart(ctx context.Context, userID int64, fn func(c *carts.Cart) error) (*CartView, error) {
	var view *CartView
	err := s.uow.WithSalesTx(ctx, func(tx *storage.SalesTx) error {
		c, err := tx.Carts.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}

		q, err := s.pricing.Price(ctx, c.Items)
		if err != nil {
			return err
		}
		c.TotalPrice = q.Total

		if err := tx.Carts.Save(ctx, c); err != nil {
			return err
		}
		// new lines only get their ids on save
		for i := range q.Lines {
			q.Lines[i].ItemID = c.Items[i].ID
		}
		view = newCartView(c, q)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

type CheckoutInput struct {
	ShippingAddress string
	ShippingCost    decimal.Decimal
	Notes           string
	// IdempotencyKey makes a retried checkout return the first order.
	IdempotencyKey string
}

// CreateOrder turns the user's cart into a pending order and empties the
// cart in the same transaction. replayed is true when the order was created
// by an earlier request with the same idempotency key.
func (s *Service) CreateOrder(ctx context.Context, userID int64, in CheckoutInput) (o *orders.Order, replayed bool, err error) {
	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	if in.ShippingAddress == "" {
		return nil, false, errs.InvalidArgument("shipping address is required")
	}
	if in.ShippingCost.IsNegative() {
		return nil, false, errs.InvalidArgument("shipping cost must not be negative")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" && s.idem != nil {
		prev, reserved, err := s.idem.Reserve(ctx, userID, key)
		switch {
		case err != nil:
			s.logger.Warnw("idempotency unavailable, continuing without it", "user_id", userID, "error", err)
			key = ""
		case !reserved && prev == 0:
			return nil, false, fmt.Errorf("an order with this idempotency key is still being placed: %w", errs.ErrConflict)
		case !reserved:
			o, err := s.orders.GetForUser(ctx, userID, prev)
			if err != nil {
				return nil, false, err
			}
			return o, true, nil
		}
	} else {
		key = ""
	}

	o, err = s.placeOrder(ctx, userID, in)
	if key != "" {
		if err != nil {
			if rerr := s.idem.Release(ctx, userID, key); rerr != nil {
				s.logger.Warnw("release idempotency key", "user_id", userID, "error", rerr)
			}
		} else if cerr := s.idem.Complete(ctx, userID, key, o.ID); cerr != nil {
			s.logger.Warnw("complete idempotency key", "user_id", userID, "order_id", o.ID, "error", cerr)
		}
	}
	if err != nil {
		return nil, false, err
	}

	s.publish(ctx, events.TopicOrderCreated, o, OrderCreated{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		UserID:       o.UserID,
		Items:        o.Items,
		TotalPrice:   o.TotalPrice,
		ShippingCost: o.ShippingCost,
	})
	s.sendConfirmation(o)
	return o, false, nil
}

func (s *Service) placeOrder(ctx context.Context, userID int64, in CheckoutInput) (*orders.Order, error) {
	var o *orders.Order
	err := s.uow.WithSalesTx(ctx, func(tx *storage.SalesTx) error {
		c, err := tx.Carts.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return errs.InvalidState("cart is empty")
		}

		q, err := s.pricing.Price(ctx, c.Items)
		if err != nil {
			return err
		}
		if err := q.Err(); err != nil {
			return err
		}

		now := s.now().UTC()
		o = &orders.Order{
			UserID:                userID,
			Items:                 make([]orders.OrderItem, 0, len(q.Lines)),
			TotalPrice:            q.Total,
			ShippingCost:          in.ShippingCost.Round(2),
			ShippingAddress:       in.ShippingAddress,
			Status:                orders.StatusPending,
			EstimatedDeliveryDate: now.Add(orders.DeliveryWindow),
			Notes:                 in.Notes,
		}
		for _, l := range q.Lines {
			o.Items = append(o.Items, orders.OrderItem{
				ProductID:       l.ProductID,
				ProductName:     l.ProductName,
				Quantity:        l.Quantity,
				SelectedVariant: l.SelectedVariant,
				UnitPrice:       l.UnitPrice,
			})
		}
		if err := tx.Orders.Create(ctx, o); err != nil {
			return err
		}

		c.Clear()
		return tx.Carts.Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CancelOrder cancels one of the user's own orders. Orders belonging to
// someone else are reported as not found.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID int64) (*orders.Order, error) {
	o, from, err := s.changeStatus(ctx, orderID, func(o *orders.Order) error {
		if o.UserID != userID {
			return errs.NotFound("order")
		}
		return o.Cancel()
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TopicOrderCancelled, o, StatusChanged{
		OrderID: o.ID, OrderNumber: o.OrderNumber, From: from, To: o.Status,
	})
	return o, nil
}

// AdvanceOrder is the admin status update.
func (s *Service) AdvanceOrder(ctx context.Context, orderID int64, to orders.Status) (*orders.Order, error) {
	o, from, err := s.changeStatus(ctx, orderID, func(o *orders.Order) error {
		return o.Advance(to, s.now())
	})
	if err != nil {
		return nil, err
	}
	topic := events.TopicOrderStatusChanged
	if o.Status == orders.StatusCancelled {
		topic = events.TopicOrderCancelled
	}
	s.publish(ctx, topic, o, StatusChanged{
		OrderID: o.ID, OrderNumber: o.OrderNumber, From: from, To: o.Status,
	})
	return o, nil
}

func (s *Service) changeStatus(ctx context.Context, orderID int64, fn func(o *orders.Order) error) (*orders.Order, orders.Status, error) {
	var (
		o    *orders.Order
		from orders.Status
	)
	err := s.uow.WithSalesTx(ctx, func(tx *storage.SalesTx) error {
		var err error
		o, err = tx.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		from = o.Status
		if err := fn(o); err != nil {
			return err
		}
		return tx.Orders.UpdateStatus(ctx, o)
	})
	if err != nil {
		return nil, "", err
	}
	return o, from, nil
}

func (s *Service) GetMyOrder(ctx context.Context, userID, orderID int64) (*orders.Order, error) {
	return s.orders.GetForUser(ctx, userID, orderID)
}

func (s *Service) ListMyOrders(ctx context.Context, userID int64, limit, offset int) ([]orders.Order, int, error) {
	return s.orders.ListByUser(ctx, userID, limit, offset)
}

// ListAllOrders lists every order, optionally filtered by status.
func (s *Service) ListAllOrders(ctx context.Context, status orders.Status, limit, offset int) ([]orders.Order, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, errs.InvalidArgument(fmt.Sprintf("unknown order status %q", status))
	}
	return s.orders.ListAll(ctx, status, limit, offset)
}
