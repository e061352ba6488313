package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// StatusChangedEvent fires after an account status flip has been persisted.
type StatusChangedEvent struct {
	UserID    string
	Email     string
	NewStatus Status
	Reason    string
}

// Hooks receive advisory post-commit account events. Implementations swallow
// their own failures.
type Hooks interface {
	AccountStatusChanged(ctx context.Context, ev StatusChangedEvent)
}

type NopHooks struct{}

func (NopHooks) AccountStatusChanged(context.Context, StatusChangedEvent) {}

type Service struct {
	repo  Repo
	hooks Hooks
	log   *slog.Logger
	now   func() time.Time
}

func NewService(repo Repo, hooks Hooks, log *slog.Logger) *Service {
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &Service{
		repo:  repo,
		hooks: hooks,
		log:   log,
		now:   time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register creates an active account. Only buyer and provider roles are open
// for self-registration.
func (s *Service) Register(ctx context.Context, email, password string, role Role) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" || !ValidSignupRole(role) {
		return nil, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("users.Service.Register: %w", err)
	}

	u := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       StatusActive,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks credentials and rejects banned accounts. The ban check
// here is the authentication boundary: banned principals never reach the
// auction engine.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if u.Status == StatusBanned {
		return nil, ErrAccountBanned
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]User, int, error) {
	q.Normalize()
	return s.repo.List(ctx, q)
}

// SetStatus flips an account between active and banned. Setting the status it
// already has is idempotent: no write, no notification. A real flip fires the
// post-commit hook after the update is durable.
func (s *Service) SetStatus(ctx context.Context, userID string, status Status, reason string) (*User, error) {
	current, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current.Status == status {
		return current, nil
	}

	updated, err := s.repo.UpdateStatus(ctx, userID, status)
	if err != nil {
		return nil, err
	}

	s.hooks.AccountStatusChanged(ctx, StatusChangedEvent{
		UserID:    updated.ID,
		Email:     updated.Email,
		NewStatus: updated.Status,
		Reason:    reason,
	})

	return updated, nil
}

func (s *Service) Stats(ctx context.Context) (total int, byRole map[Role]int, byStatus map[Status]int, err error) {
	if total, err = s.repo.Count(ctx); err != nil {
		return 0, nil, nil, err
	}
	if byRole, err = s.repo.CountByRole(ctx); err != nil {
		return 0, nil, nil, err
	}
	if byStatus, err = s.repo.CountByStatus(ctx); err != nil {
		return 0, nil, nil, err
	}
	return total, byRole, byStatus, nil
}
