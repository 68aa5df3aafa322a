package storage

import (
	"context"
	"fmt"

	"github.com/Pawandasila/Ecom-backend/internal/domain/carts"
	"github.com/Pawandasila/Ecom-backend/internal/domain/orders"
	"github.com/Pawandasila/Ecom-backend/internal/domain/products"
	"github.com/Pawandasila/Ecom-backend/internal/domain/users"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Sales struct {
	Carts  carts.Store
	Orders orders.Store
}

type Container struct {
	pool     *pgxpool.Pool // required by WithSalesTx
	gen      *orders.OrderNumberGenerator
	Users    users.Store
	Products products.Store
	Sales    Sales
}

func NewContainer(db *pgxpool.Pool, gen *orders.OrderNumberGenerator) *Container {
	return &Container{
		pool:     db,
		gen:      gen,
		Users:    users.NewRepository(db),
		Products: products.NewRepository(db),
		Sales: Sales{
			Carts:  carts.NewRepository(db),
			Orders: orders.NewRepository(db, gen),
		},
	}
}

// SalesTx is a temporary, tx-scoped set of repos for atomic units of work.
type SalesTx struct {
	Carts  carts.Store
	Orders orders.Store
}

// WithSalesTx runs a sales unit-of-work atomically. fn's error rolls the
// transaction back and is returned unchanged.
func (c *Container) WithSalesTx(ctx context.Context, fn func(s *SalesTx) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container has no pool, build it with NewContainer")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin sales tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx) // safe even if already committed
	}()

	s := &SalesTx{
		Carts:  carts.NewRepository(tx),
		Orders: orders.NewRepository(tx, c.gen),
	}

	if err := fn(s); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit sales tx: %w", err)
	}
	return nil
}
