package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, u *User) error {
	const q = `
insert into users (id, email, password_hash, role, status, created_at)
values ($1::uuid, $2, $3, $4, $5, $6)
`
	_, err := r.db.Exec(ctx, q, u.ID, u.Email, u.PasswordHash, u.Role, u.Status, u.CreatedAt)
	if err != nil {
		// unique violation on email
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("users.PostgresRepo.Create: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getWhere(ctx, "id = $1::uuid", id)
}

func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getWhere(ctx, "lower(email) = lower($1)", email)
}

func (r *PostgresRepo) getWhere(ctx context.Context, where string, arg any) (*User, error) {
	q := `
select id, email, password_hash, role, status, created_at
from users
where ` + where

	var u User
	err := r.db.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("users.PostgresRepo.get: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id string, status Status) (*User, error) {
	const q = `
update users
set status = $2, updated_at = now()
where id = $1::uuid
returning id, email, password_hash, role, status, created_at
`
	var u User
	err := r.db.QueryRow(ctx, q, id, status).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("users.PostgresRepo.UpdateStatus: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepo) List(ctx context.Context, lq ListQuery) ([]User, int, error) {
	lq.Normalize()

	const q = `
select id, email, password_hash, role, status, created_at, count(*) over ()
from users
where ($1 = '' or email ilike '%' || $1 || '%' or role::text ilike '%' || $1 || '%' or status::text ilike '%' || $1 || '%')
order by created_at desc, id asc
limit $2 offset $3
`
	rows, err := r.db.Query(ctx, q, lq.Text, lq.PageSize, (lq.Page-1)*lq.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("users.PostgresRepo.List: %w", err)
	}
	defer rows.Close()

	var total int
	out := make([]User, 0, lq.PageSize)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("users.PostgresRepo.List: %w", err)
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) CountByRole(ctx context.Context) (map[Role]int, error) {
	const q = `select role, count(*) from users group by role`
	return countGrouped[Role](ctx, r.db, q)
}

func (r *PostgresRepo) CountByStatus(ctx context.Context) (map[Status]int, error) {
	const q = `select status, count(*) from users group by status`
	return countGrouped[Status](ctx, r.db, q)
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `select count(*) from users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("users.PostgresRepo.Count: %w", err)
	}
	return n, nil
}

func countGrouped[K ~string](ctx context.Context, db *pgxpool.Pool, q string) (map[K]int, error) {
	rows, err := db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("users.PostgresRepo.count: %w", err)
	}
	defer rows.Close()

	out := make(map[K]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("users.PostgresRepo.count: %w", err)
		}
		out[K(key)] = count
	}
	return out, rows.Err()
}
