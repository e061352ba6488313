package users

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountBanned      = errors.New("account banned")
)

// ListQuery pages and filters the admin user listing.
type ListQuery struct {
	Text     string
	Page     int
	PageSize int
}

func (q *ListQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 10
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
}

type Repo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdateStatus sets the account status and returns the stored user.
	UpdateStatus(ctx context.Context, id string, status Status) (*User, error)

	// List returns users newest-first with a case-insensitive free-text
	// filter over email, role and status.
	List(ctx context.Context, q ListQuery) ([]User, int, error)

	CountByRole(ctx context.Context) (map[Role]int, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
	Count(ctx context.Context) (int, error)
}
