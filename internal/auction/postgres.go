package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps each project as a single row with the bid list in a
// jsonb column. Every conditional write is one UPDATE statement whose
// predicate and mutation the database applies indivisibly; concurrent writers
// on the same project serialize on the row lock and re-evaluate the predicate
// against the committed state.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, p *Project) error {
	const q = `
insert into projects (id, buyer_id, title, description, budget_min, budget_max, deadline, category, bids, created_at)
values ($1::uuid, $2::uuid, $3, $4, $5, $6, $7, $8, '[]'::jsonb, $9)
`
	_, err := s.db.Exec(ctx, q,
		p.ID, p.BuyerID, p.Title, p.Description,
		p.BudgetMin, p.BudgetMax, p.Deadline, p.Category, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("auction.PostgresStore.Create: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Project, error) {
	const q = `
select id, buyer_id, title, description, budget_min, budget_max, deadline, category, bids, accepted_bid, created_at
from projects
where id = $1::uuid
`
	p, err := scanProject(s.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auction.PostgresStore.Get: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) TryPlaceBid(ctx context.Context, projectID string, bid Bid, now time.Time) ([]Bid, bool, error) {
	raw, err := json.Marshal(bid)
	if err != nil {
		return nil, false, fmt.Errorf("auction.PostgresStore.TryPlaceBid: %w", err)
	}

	const q = `
update projects
set bids = bids || $2::jsonb, updated_at = now()
where id = $1::uuid
  and accepted_bid is null
  and deadline > $3
  and buyer_id <> $4::uuid
  and (
    jsonb_array_length(bids) = 0
    or $5 < (select min((b->>'amount')::float8) from jsonb_array_elements(bids) b)
  )
returning bids
`
	var rawBids []byte
	err = s.db.QueryRow(ctx, q, projectID, raw, now, bid.ProviderID, bid.Amount).Scan(&rawBids)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("auction.PostgresStore.TryPlaceBid: %w", err)
	}

	var bids []Bid
	if err := json.Unmarshal(rawBids, &bids); err != nil {
		return nil, false, fmt.Errorf("auction.PostgresStore.TryPlaceBid: decode bids: %w", err)
	}
	return bids, true, nil
}

func (s *PostgresStore) TryAcceptBid(ctx context.Context, projectID, buyerID, providerID string, amount float64, now time.Time) (*AcceptedBid, bool, error) {
	const q = `
update projects
set accepted_bid = jsonb_build_object('providerId', $3::text, 'amount', $4::float8),
    updated_at = now()
where id = $1::uuid
  and buyer_id = $2::uuid
  and accepted_bid is null
  and deadline <= $5
  and bids @> jsonb_build_array(jsonb_build_object('providerId', $3::text, 'amount', $4::float8))
returning accepted_bid
`
	var raw []byte
	err := s.db.QueryRow(ctx, q, projectID, buyerID, providerID, amount, now).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("auction.PostgresStore.TryAcceptBid: %w", err)
	}

	var accepted AcceptedBid
	if err := json.Unmarshal(raw, &accepted); err != nil {
		return nil, false, fmt.Errorf("auction.PostgresStore.TryAcceptBid: decode accepted bid: %w", err)
	}
	return &accepted, true, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Project, error) {
	return s.listWhere(ctx, "", nil)
}

func (s *PostgresStore) ListByBuyer(ctx context.Context, buyerID string) ([]Project, error) {
	return s.listWhere(ctx, "where buyer_id = $1::uuid", []any{buyerID})
}

func (s *PostgresStore) ListByProvider(ctx context.Context, providerID string) ([]Project, error) {
	where := `where bids @> jsonb_build_array(jsonb_build_object('providerId', $1::text))`
	return s.listWhere(ctx, where, []any{providerID})
}

func (s *PostgresStore) listWhere(ctx context.Context, where string, args []any) ([]Project, error) {
	q := `
select id, buyer_id, title, description, budget_min, budget_max, deadline, category, bids, accepted_bid, created_at
from projects
` + where + `
order by created_at desc, id asc
`
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("auction.PostgresStore.list: %w", err)
	}
	defer rows.Close()

	out := make([]Project, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("auction.PostgresStore.list: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// overviewSortColumns whitelists the ORDER BY expression per sort key;
// the query never interpolates user input.
var overviewSortColumns = map[string]string{
	"createdAt": "p.created_at",
	"deadline":  "p.deadline",
	"budgetMin": "p.budget_min",
	"budgetMax": "p.budget_max",
	"bidsCount": "jsonb_array_length(p.bids)",
	"lowestBid": "(select min((b->>'amount')::float8) from jsonb_array_elements(p.bids) b)",
}

func (s *PostgresStore) Overview(ctx context.Context, q OverviewQuery, now time.Time) ([]OverviewItem, int, error) {
	q.Normalize()

	dir := "desc"
	if q.SortOrder == "ascend" {
		dir = "asc"
	}

	sql := fmt.Sprintf(`
select p.id, p.title, p.description, p.budget_min, p.budget_max, p.deadline, p.category,
       u.email,
       jsonb_array_length(p.bids),
       (select min((b->>'amount')::float8) from jsonb_array_elements(p.bids) b),
       (p.deadline > $1 and p.accepted_bid is null),
       p.created_at,
       count(*) over ()
from projects p
join users u on u.id = p.buyer_id
where ($2 = '' or p.category = $2)
  and ($3 = '' or p.title ilike '%%' || $3 || '%%' or p.description ilike '%%' || $3 || '%%')
order by %s %s, p.id asc
limit $4 offset $5
`, overviewSortColumns[q.SortKey], dir)

	rows, err := s.db.Query(ctx, sql, now, q.Category, q.Text, q.PageSize, (q.Page-1)*q.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("auction.PostgresStore.Overview: %w", err)
	}
	defer rows.Close()

	var total int
	items := make([]OverviewItem, 0, q.PageSize)
	for rows.Next() {
		var it OverviewItem
		if err := rows.Scan(
			&it.ID, &it.Title, &it.Description, &it.BudgetMin, &it.BudgetMax,
			&it.Deadline, &it.Category, &it.BuyerEmail, &it.BidsCount,
			&it.LowestBid, &it.IsOpen, &it.CreatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("auction.PostgresStore.Overview: %w", err)
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

func (s *PostgresStore) CountByState(ctx context.Context, now time.Time) (total, open, closed int, err error) {
	const q = `
select count(*),
       count(*) filter (where deadline > $1 and accepted_bid is null),
       count(*) filter (where deadline <= $1 or accepted_bid is not null)
from projects
`
	err = s.db.QueryRow(ctx, q, now).Scan(&total, &open, &closed)
	if err != nil {
		err = fmt.Errorf("auction.PostgresStore.CountByState: %w", err)
	}
	return total, open, closed, err
}

func (s *PostgresStore) CountByCategory(ctx context.Context) (map[string]int, error) {
	const q = `select category, count(*) from projects group by category`

	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("auction.PostgresStore.CountByCategory: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("auction.PostgresStore.CountByCategory: %w", err)
		}
		out[category] = count
	}
	return out, rows.Err()
}

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	var rawBids, rawAccepted []byte

	err := row.Scan(
		&p.ID, &p.BuyerID, &p.Title, &p.Description,
		&p.BudgetMin, &p.BudgetMax, &p.Deadline, &p.Category,
		&rawBids, &rawAccepted, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(rawBids, &p.Bids); err != nil {
		return nil, fmt.Errorf("decode bids: %w", err)
	}
	if rawAccepted != nil {
		p.AcceptedBid = &AcceptedBid{}
		if err := json.Unmarshal(rawAccepted, p.AcceptedBid); err != nil {
			return nil, fmt.Errorf("decode accepted bid: %w", err)
		}
	}
	return &p, nil
}
