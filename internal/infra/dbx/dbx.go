package dbx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so a repository can
// run against the pool or inside a unit of work without knowing which.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UniqueViolation is the SQLSTATE postgres returns for duplicate keys.
const UniqueViolation = "23505"

// PageTotal returns the COUNT(*) OVER() total of a page. A page past the end
// carries no window count, so it is counted again with countSQL.
func PageTotal(ctx context.Context, q Querier, rows, total, offset int, countSQL string, args ...any) (int, error) {
	if rows > 0 || offset <= 0 {
		return total, nil
	}
	if err := q.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
