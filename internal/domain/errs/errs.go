// Package errs holds the error kinds shared by the storefront domains.
// Repositories and services wrap these with fmt.Errorf("...: %w", ...) and the
// HTTP layer maps them to status codes with errors.Is / errors.As.
package errs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNotFound        = errors.New("resource not found")
	ErrConflict        = errors.New("resource already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
)

// ReferentialIntegrityError reports cart or order lines whose product no
// longer exists in the catalog.
type ReferentialIntegrityError struct {
	ProductIDs []int64
}

func (e *ReferentialIntegrityError) Error() string {
	ids := make([]string, 0, len(e.ProductIDs))
	for _, id := range e.ProductIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	return fmt.Sprintf("referenced products no longer exist: %s", strings.Join(ids, ", "))
}

// NotFound wraps ErrNotFound with the entity name, e.g. NotFound("order").
func NotFound(what string) error {
	return fmt.Errorf("%s not found: %w", what, ErrNotFound)
}

// InvalidState wraps ErrInvalidState with a human readable reason.
func InvalidState(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrInvalidState)
}

// InvalidArgument wraps ErrInvalidArgument with a human readable reason.
func InvalidArgument(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrInvalidArgument)
}

// Message returns the part of err that is safe to show to a client: the
// reason given to one of the constructors above, without the sentinel suffix.
func Message(err error) string {
	msg := err.Error()
	for _, s := range []error{ErrNotFound, ErrConflict, ErrInvalidArgument, ErrInvalidState} {
		msg = strings.TrimSuffix(msg, ": "+s.Error())
	}
	return msg
}
