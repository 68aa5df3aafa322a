package orders

import (
	"context"
	"time"

	"github.com/Pawandasila/Ecom-backend/internal/domain/products"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// DeliveryWindow is added to the creation time to estimate delivery.
const DeliveryWindow = 7 * 24 * time.Hour

// Items are copied by value from the priced cart at checkout
type OrderItem struct {
	ID              int64              `json:"id"`
	ProductID       int64              `json:"product_id"`
	ProductName     string             `json:"product_name"`
	Quantity        int                `json:"quantity"`
	SelectedVariant products.Selection `json:"selected_variant"`
	UnitPrice       decimal.Decimal    `json:"unit_price"`
}

type Order struct {
	ID                    int64           `json:"id"`
	OrderNumber           string          `json:"order_number"`
	UserID                int64           `json:"user_id"`
	Items                 []OrderItem     `json:"items"`
	TotalPrice            decimal.Decimal `json:"total_price"`
	ShippingCost          decimal.Decimal `json:"shipping_cost"`
	ShippingAddress       string          `json:"shipping_address"`
	Status                Status          `json:"status"`
	EstimatedDeliveryDate time.Time       `json:"estimated_delivery_date"`
	ActualDeliveryDate    *time.Time      `json:"actual_delivery_date"`
	IsCancelled           bool            `json:"is_cancelled"`
	Notes                 string          `json:"notes"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

type Store interface {
	// Create inserts the order with its items and fills in ID, OrderNumber
	// and timestamps.
	Create(ctx context.Context, o *Order) error

	// USER-facing
	GetForUser(ctx context.Context, userID, orderID int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Order, int, error)

	// ADMIN-facing
	GetByID(ctx context.Context, orderID int64) (*Order, error)
	ListAll(ctx context.Context, status Status, limit, offset int) ([]Order, int, error)

	// GetForUpdate locks the order row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, orderID int64) (*Order, error)
	// UpdateStatus persists Status, IsCancelled and ActualDeliveryDate.
	UpdateStatus(ctx context.Context, o *Order) error
}
