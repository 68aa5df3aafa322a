package sales

import (
	"context"

	"github.com/Pawandasila/Ecom-backend/internal/domain/storage"
	"github.com/Pawandasila/Ecom-backend/internal/domain/users"
)

// UnitOfWork runs fn inside one database transaction. storage.Container
// implements it.
type UnitOfWork interface {
	WithSalesTx(ctx context.Context, fn func(s *storage.SalesTx) error) error
}

// Idempotency guards checkout against client retries.
type Idempotency interface {
	Reserve(ctx context.Context, userID int64, key string) (orderID int64, reserved bool, err error)
	Complete(ctx context.Context, userID int64, key string, orderID int64) error
	Release(ctx context.Context, userID int64, key string) error
}

type Directory interface {
	GetByID(ctx context.Context, userID int64) (*users.User, error)
}
