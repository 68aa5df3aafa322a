package users

import (
	"context"
	"fmt"
	"time"

	"github.com/Pawandasila/Ecom-backend/internal/domain/errs"
	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

var ErrDuplicateEmail = fmt.Errorf("a user with that email already exists: %w", errs.ErrConflict)

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  password  `json:"-"`
	Role      Role      `json:"role"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Password struct to store plain text and hash
type password struct {
	text *string
	hash []byte
}

func (p *password) Set(text string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(text), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	p.text = &text
	p.hash = hash

	return nil
}

func (p *password) Compare(text string) error {
	return bcrypt.CompareHashAndPassword(p.hash, []byte(text))
}

type Store interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// Update persists name, email and address.
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, user *User) error
	Delete(ctx context.Context, userID int64) error
	List(ctx context.Context, role Role, limit, offset int) ([]User, int, error)

	// Refresh tokens are stored hashed; Matches compares a presented token
	// against the stored hash.
	SaveRefreshToken(ctx context.Context, userID int64, refreshToken string) error
	RefreshTokenMatches(ctx context.Context, userID int64, refreshToken string) (bool, error)
	DeleteRefreshToken(ctx context.Context, userID int64) error
}
