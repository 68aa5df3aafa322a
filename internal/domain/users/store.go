package users

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Pawandasila/Ecom-backend/internal/domain/errs"
	"github.com/Pawandasila/Ecom-backend/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, name, email, password, role, address, created_at, updated_at`

func scanUser(row pgx.Row, u *User, extra ...any) error {
	dest := []any{&u.ID, &u.Name, &u.Email, &u.Password.hash, &u.Role, &u.Address, &u.CreatedAt, &u.UpdatedAt}
	return row.Scan(append(dest, extra...)...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == dbx.UniqueViolation
}

func (r *Repository) Create(ctx context.Context, user *User) error {
	if user.Role == "" {
		user.Role = RoleCustomer
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	err := r.db.QueryRow(ctx, `
INSERT INTO users (name, email, password, role, address)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, updated_at
`, user.Name, user.Email, user.Password.hash, user.Role, user.Address,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, userID int64) (*User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *Repository) get(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	if err := scanUser(r.db.QueryRow(ctx, query, arg), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("user")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *Repository) Update(ctx context.Context, user *User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	err := r.db.QueryRow(ctx, `
UPDATE users
SET name = $2, email = $3, address = $4, updated_at = now()
WHERE id = $1
RETURNING updated_at
`, user.ID, user.Name, user.Email, user.Address).Scan(&user.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errs.NotFound("user")
	case isUniqueViolation(err):
		return ErrDuplicateEmail
	case err != nil:
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *Repository) UpdatePassword(ctx context.Context, user *User) error {
	tag, err := r.db.Exec(ctx, `
UPDATE users SET password = $2, refresh_token_hash = NULL, updated_at = now() WHERE id = $1
`, user.ID, user.Password.hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("user")
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("user")
	}
	return nil
}

// List returns users newest first, optionally restricted to one role.
func (r *Repository) List(ctx context.Context, role Role, limit, offset int) ([]User, int, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+userColumns+`, COUNT(*) OVER() AS total_count
FROM users
WHERE ($1 = '' OR role = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`, string(role), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var (
		out   = []User{}
		total int
	)
	for rows.Next() {
		var (
			u User
			t int
		)
		if err := scanUser(rows, &u, &t); err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	total, err = dbx.PageTotal(ctx, r.db, len(out), total, offset,
		`SELECT COUNT(*) FROM users WHERE ($1 = '' OR role = $1)`, string(role))
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return out, total, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (r *Repository) SaveRefreshToken(ctx context.Context, userID int64, refreshToken string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET refresh_token_hash = $1, updated_at = now() WHERE id = $2`,
		hashToken(refreshToken), userID)
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

func (r *Repository) RefreshTokenMatches(ctx context.Context, userID int64, refreshToken string) (bool, error) {
	var stored *string
	err := r.db.QueryRow(ctx, `SELECT refresh_token_hash FROM users WHERE id = $1`, userID).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, errs.NotFound("user")
		}
		return false, fmt.Errorf("failed to retrieve refresh token: %w", err)
	}
	if stored == nil {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(hashToken(refreshToken))) == 1, nil
}

func (r *Repository) DeleteRefreshToken(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET refresh_token_hash = NULL, updated_at = now() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}
