package catalog

import (
	"errors"
	"fmt"

	"github.com/cinewatch/cinewatch/internal/domain"
)

// Sentinel errors for catalog operations.
var (
	ErrNotFound     = errors.New("catalog: not found")
	ErrRateLimited  = errors.New("catalog: rate limited by server")
	ErrUnauthorized = errors.New("catalog: invalid API key")
	ErrBadRequest   = errors.New("catalog: bad request")
	ErrServer       = errors.New("catalog: server error")
	ErrCircuitOpen  = errors.New("catalog: circuit open")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op      string // "search", "trending", "movie", "recommendations", "title"
	TitleID domain.TitleID
	Err     error
}

func (e *Error) Error() string {
	if e.TitleID != 0 {
		return fmt.Sprintf("catalog %s [%d]: %v", e.Op, e.TitleID, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op string, id domain.TitleID, err error) error {
	return &Error{Op: op, TitleID: id, Err: err}
}
