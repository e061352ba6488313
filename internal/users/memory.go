package users

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is the account store used by tests.
type MemoryRepo struct {
	mu    sync.Mutex
	users map[string]*User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[string]*User)}
}

func (r *MemoryRepo) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailTaken
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryRepo) UpdateStatus(_ context.Context, id string, status Status) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Status = status
	cp := *u
	return &cp, nil
}

func (r *MemoryRepo) List(_ context.Context, q ListQuery) ([]User, int, error) {
	q.Normalize()

	r.mu.Lock()
	defer r.mu.Unlock()

	text := strings.ToLower(q.Text)
	matched := make([]User, 0, len(r.users))
	for _, u := range r.users {
		if text != "" &&
			!strings.Contains(strings.ToLower(u.Email), text) &&
			!strings.Contains(strings.ToLower(string(u.Role)), text) &&
			!strings.Contains(strings.ToLower(string(u.Status)), text) {
			continue
		}
		matched = append(matched, *u)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start := (q.Page - 1) * q.PageSize
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryRepo) CountByRole(_ context.Context) (map[Role]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[Role]int)
	for _, u := range r.users {
		out[u.Role]++
	}
	return out, nil
}

func (r *MemoryRepo) CountByStatus(_ context.Context) (map[Status]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[Status]int)
	for _, u := range r.users {
		out[u.Status]++
	}
	return out, nil
}

func (r *MemoryRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}
