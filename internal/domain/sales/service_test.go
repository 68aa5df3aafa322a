package sales

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Pawandasila/Ecom-backend/internal/domain/errs"
	"github.com/Pawandasila/Ecom-backend/internal/domain/orders"
	"github.com/Pawandasila/Ecom-backend/internal/domain/products"
	"github.com/Pawandasila/Ecom-backend/internal/events"
	"github.com/Pawandasila/Ecom-backend/internal/mailer"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice int64 = 1
	bob   int64 = 2
)

type fixture struct {
	svc     *Service
	db      *memDB
	catalog *memCatalog
	events  *memPublisher
	mail    *memMailer
	idem    *memIdempotency
	now     time.Time
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		db: newMemDB(),
		catalog: &memCatalog{products: map[int64]*products.Product{
			1: {ID: 1, Name: "Canvas Tote", BasePrice: dec("100"), Discount: dec("10")},
			2: {ID: 2, Name: "Linen Shirt", BasePrice: dec("50"), Discount: dec("20"), Variants: []products.Variant{
				{Size: "M", Price: dec("40"), Stock: 5},
				{Size: "L", Price: dec("45"), Stock: 5},
			}},
		}},
		events: &memPublisher{},
		mail:   &memMailer{},
		idem:   &memIdempotency{keys: map[string]int64{}},
		now:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(Deps{
		UnitOfWork: f.db,
		Carts:      lockedCarts{f.db},
		Orders:     lockedOrders{memOrders{f.db}},
		Catalog:    f.catalog,
		Users: memDirectory{
			alice: {ID: alice, Name: "Alice", Email: "alice@example.com"},
			bob:   {ID: bob, Name: "Bob", Email: "bob@example.com"},
		},
		Events:      f.events,
		Mailer:      f.mail,
		Idempotency: f.idem,
	})
	f.svc.now = func() time.Time { return f.now }
	return f
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "want %s, got %s", want, got)
}

func TestAddItemPricesCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 1, Quantity: 2})
	require.NoError(t, err)
	assertDec(t, "180", v.TotalPrice)
	require.Len(t, v.Items, 1)
	assert.NotZero(t, v.Items[0].ItemID)

	v, err = f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 2, Quantity: 3, SelectedVariant: products.Selection{Size: "M"}})
	require.NoError(t, err)
	assertDec(t, "300", v.TotalPrice)

	stored, err := f.svc.GetCart(ctx, alice)
	require.NoError(t, err)
	assertDec(t, "300", stored.TotalPrice)
}

func TestAddItemMergesSameVariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 2, Quantity: 1, SelectedVariant: products.Selection{Size: "M"}})
	require.NoError(t, err)
	v, err := f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 2, Quantity: 2, SelectedVariant: products.Selection{Size: " M "}})
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 3, v.Items[0].Quantity)

	v, err = f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 2, Quantity: 1, SelectedVariant: products.Selection{Size: "L"}})
	require.NoError(t, err)
	require.Len(t, v.Items, 2)
	assertDec(t, "165", v.TotalPrice) // 3*40 + 45
}

func TestAddItemValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 1, Quantity: 0})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 404, Quantity: 1})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateAndRemoveItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 1, Quantity: 1})
	require.NoError(t, err)
	itemID := v.Items[0].ItemID

	v, err = f.svc.UpdateItem(ctx, alice, itemID, 4)
	require.NoError(t, err)
	assertDec(t, "360", v.TotalPrice)

	_, err = f.svc.UpdateItem(ctx, alice, itemID, 0)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = f.svc.UpdateItem(ctx, alice, 999, 1)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	// carts are per user
	_, err = f.svc.RemoveItem(ctx, bob, itemID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	v, err = f.svc.RemoveItem(ctx, alice, itemID)
	require.NoError(t, err)
	assert.Empty(t, v.Items)
	assert.True(t, v.TotalPrice.IsZero())

	_, err = f.svc.RemoveItem(ctx, alice, itemID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestClearCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 1, Quantity: 1})
	require.NoError(t, err)

	v, err := f.svc.ClearCart(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, v.Items)
	assert.True(t, v.TotalPrice.IsZero())
}

func TestGetCartCreatesEmptyCart(t *testing.T) {
	f := newFixture(t)

	v, err := f.svc.GetCart(context.Background(), bob)
	require.NoError(t, err)
	assert.Equal(t, bob, v.UserID)
	assert.Empty(t, v.Items)
	assert.True(t, v.TotalPrice.IsZero())
}

func TestGetCartRefreshesStaleTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 1, Quantity: 2})
	require.NoError(t, err)

	f.catalog.put(&products.Product{ID: 1, Name: "Canvas Tote", BasePrice: dec("100")})

	v, err := f.svc.GetCart(ctx, alice)
	require.NoError(t, err)
	assertDec(t, "200", v.TotalPrice)
	assertDec(t, "200", f.db.carts[alice].TotalPrice)
}

func TestConcurrentAddsAreNotLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 1, Quantity: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err := f.svc.GetCart(ctx, alice)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 20, v.Items[0].Quantity)
	assertDec(t, "1800", v.TotalPrice)
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 1, Quantity: 2})
	require.NoError(t, err)

	o, replayed, err := f.svc.CreateOrder(ctx, alice, CheckoutInput{
		ShippingAddress: "  12 Harbour Rd  ",
		ShippingCost:    dec("15"),
	})
	require.NoError(t, err)
	assert.False(t, replayed)

	assertDec(t, "180", o.TotalPrice)
	assertDec(t, "15", o.ShippingCost)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.False(t, o.IsCancelled)
	assert.Equal(t, "12 Harbour Rd", o.ShippingAddress)
	assert.Equal(t, "", o.Notes)
	assert.True(t, o.EstimatedDeliveryDate.Equal(f.now.Add(7*24*time.Hour)))
	assert.Nil(t, o.ActualDeliveryDate)
	assert.NotEmpty(t, o.OrderNumber)

	require.Len(t, o.Items, 1)
	assert.Equal(t, "Canvas Tote", o.Items[0].ProductName)
	assertDec(t, "90", o.Items[0].UnitPrice)

	cart, err := f.svc.GetCart(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.TotalPrice.IsZero())

	f.svc.Wait()
	assert.Equal(t, []string{events.TopicOrderCreated}, f.events.topics())
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, sentMail{mailer.OrderConfirmationTemplate, "alice@example.com"}, f.mail.sent[0])
}

func TestCreateOrderSnapshotsPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 2, Quantity: 3, SelectedVariant: products.Selection{Size: "M"}})
	require.NoError(t, err)
	o, _, err := f.svc.CreateOrder(ctx, alice, CheckoutInput{ShippingAddress: "x"})
	require.NoError(t, err)
	assertDec(t, "120", o.TotalPrice)

	f.catalog.put(&products.Product{ID: 2, Name: "Renamed", BasePrice: dec("999")})

	got, err := f.svc.GetMyOrder(ctx, alice, o.ID)
	require.NoError(t, err)
	assertDec(t, "120", got.TotalPrice)
	assert.Equal(t, "Linen Shirt", got.Items[0].ProductName)
	assert.Equal(t, "M", got.Items[0].SelectedVariant.Size)
	assertDec(t, "40", got.Items[0].UnitPrice)
}

func TestFractionalDiscountTotalsAgree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.catalog.put(&products.Product{ID: 3, Name: "Pencil", BasePrice: dec("0.10"), Discount: dec("33")})

	v, err := f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 3, Quantity: 7})
	require.NoError(t, err)
	assertDec(t, "0.49", v.TotalPrice)
	assertDec(t, "0.07", v.Items[0].UnitPrice)

	f.db.mu.Lock()
	assertDec(t, "0.49", f.db.carts[alice].TotalPrice)
	f.db.mu.Unlock()

	got, err := f.svc.GetCart(ctx, alice)
	require.NoError(t, err)
	assertDec(t, "0.49", got.TotalPrice)

	o, _, err := f.svc.CreateOrder(ctx, alice, CheckoutInput{ShippingAddress: "x", ShippingCost: dec("4.999")})
	require.NoError(t, err)
	assertDec(t, "0.49", o.TotalPrice)
	assertDec(t, "5", o.ShippingCost)

	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	assertDec(t, sum.String(), o.TotalPrice)

	f.svc.Wait()
	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	require.Len(t, f.events.events, 1)
	assertDec(t, "0.49", f.events.events[0].payload.(OrderCreated).TotalPrice)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.CreateOrder(context.Background(), alice, CheckoutInput{ShippingAddress: "x"})
	require.ErrorIs(t, err, errs.ErrInvalidState)
	assert.Empty(t, f.db.orders)
	assert.Empty(t, f.events.topics())
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.CreateOrder(ctx, alice, CheckoutInput{ShippingAddress: "   "})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, _, err = f.svc.CreateOrder(ctx, alice, CheckoutInput{ShippingAddress: "x", ShippingCost: dec("-1")})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestCreateOrderWithOrphanedLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 1, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 2, Quantity: 1})
	require.NoError(t, err)

	f.catalog.delete(2)

	v, err := f.svc.GetCart(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, v.Unavailable)
	assertDec(t, "90", v.TotalPrice)

	_, _, err = f.svc.CreateOrder(ctx, alice, CheckoutInput{ShippingAddress: "x"})
	var rie *errs.ReferentialIntegrityError
	require.ErrorAs(t, err, &rie)
	assert.Equal(t, []int64{2}, rie.ProductIDs)

	assert.Empty(t, f.db.orders)
	assert.Len(t, f.db.carts[alice].Items, 2)
}

func TestCreateOrderRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 1, Quantity: 2})
	require.NoError(t, err)

	f.db.failOrderCreate = errBoom
	_, _, err = f.svc.CreateOrder(ctx, alice, CheckoutInput{ShippingAddress: "x"})
	require.ErrorIs(t, err, errBoom)

	assert.Empty(t, f.db.orders)
	assert.Len(t, f.db.carts[alice].Items, 1)
	assertDec(t, "180", f.db.carts[alice].TotalPrice)
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, alice, AddItemInput{ProductID: 1, Quantity: 1})
	require.NoError(t, err)

	in := CheckoutInput{ShippingAddress: "x", IdempotencyKey: "k-1"}
	first, replayed, err := f.svc.CreateOrder(ctx, alice, in)
	require.NoError(t, err)
	assert.False(t, replayed)

	again, replayed, err := f.svc.CreateOrder(ctx, alice, in)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, f.db.orders, 1)

	// a failed attempt frees the key
	_, _, err = f.svc.CreateOrder(ctx, alice, CheckoutInput{ShippingAddress: "x", IdempotencyKey: "k-2"})
	require.ErrorIs(t, err, errs.ErrInvalidState)
	_, reserved, _ := f.idem.Reserve(ctx, alice, "k-2")
	assert.True(t, reserved)
}

func TestCreateOrderIdempotencyKeyInFlight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.idem.Reserve(ctx, alice, "busy")
	require.NoError(t, err)

	_, _, err = f.svc.CreateOrder(ctx, alice, CheckoutInput{ShippingAddress: "x", IdempotencyKey: "busy"})
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func placeOrder(t *testing.T, f *fixture, userID int64) *orders.Order {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, userID, AddItemInput{ProductID: 1, Quantity: 1})
	require.NoError(t, err)
	o, _, err := f.svc.CreateOrder(ctx, userID, CheckoutInput{ShippingAddress: "x"})
	require.NoError(t, err)
	return o
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := placeOrder(t, f, alice)

	_, err := f.svc.CancelOrder(ctx, bob, o.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	got, err := f.svc.CancelOrder(ctx, alice, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, got.Status)
	assert.True(t, got.IsCancelled)

	_, err = f.svc.CancelOrder(ctx, alice, o.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidState)

	_, err = f.svc.CancelOrder(ctx, alice, 999)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	assert.Equal(t, []string{events.TopicOrderCreated, events.TopicOrderCancelled}, f.events.topics())
}

func TestCancelAfterShipment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := placeOrder(t, f, alice)

	_, err := f.svc.AdvanceOrder(ctx, o.ID, orders.StatusShipped)
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(ctx, alice, o.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidState)

	stored, err := f.svc.GetMyOrder(ctx, alice, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusShipped, stored.Status)
	assert.False(t, stored.IsCancelled)
}

func TestAdvanceOrderToDelivered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := placeOrder(t, f, alice)

	_, err := f.svc.AdvanceOrder(ctx, o.ID, orders.StatusProcessing)
	require.NoError(t, err)

	f.now = f.now.Add(72 * time.Hour)
	got, err := f.svc.AdvanceOrder(ctx, o.ID, orders.StatusDelivered)
	require.NoError(t, err)
	require.NotNil(t, got.ActualDeliveryDate)
	assert.True(t, got.ActualDeliveryDate.Equal(f.now))

	_, err = f.svc.AdvanceOrder(ctx, o.ID, orders.StatusPending)
	assert.ErrorIs(t, err, errs.ErrInvalidState)

	assert.Equal(t, []string{
		events.TopicOrderCreated, events.TopicOrderStatusChanged, events.TopicOrderStatusChanged,
	}, f.events.topics())
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	placeOrder(t, f, alice)
	second := placeOrder(t, f, alice)
	placeOrder(t, f, bob)

	mine, total, err := f.svc.ListMyOrders(ctx, alice, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)

	_, err = f.svc.GetMyOrder(ctx, bob, second.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.CancelOrder(ctx, alice, second.ID)
	require.NoError(t, err)

	all, total, err := f.svc.ListAllOrders(ctx, orders.StatusPending, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, all, 2)

	_, _, err = f.svc.ListAllOrders(ctx, orders.Status("lost"), 10, 0)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestConfirmationSkippedForUnknownUser(t *testing.T) {
	f := newFixture(t)
	placeOrder(t, f, 77)
	f.svc.Wait()
	assert.Empty(t, f.mail.sent)
}
