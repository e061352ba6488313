package auction

import (
	"context"
	"time"
)

// OverviewQuery selects, orders and pages the project overview.
type OverviewQuery struct {
	Category  string
	Text      string
	SortKey   string
	SortOrder string // "ascend" | "descend"
	Page      int
	PageSize  int
}

// OverviewItem is a project with read-time derived fields.
type OverviewItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	BudgetMin   float64   `json:"budgetMin"`
	BudgetMax   float64   `json:"budgetMax"`
	Deadline    time.Time `json:"deadline"`
	Category    string    `json:"category"`
	BuyerEmail  string    `json:"buyerEmail,omitempty"`
	BidsCount   int       `json:"bidsCount"`
	LowestBid   *float64  `json:"lowestBid"`
	IsOpen      bool      `json:"isOpen"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store is the single shared mutable resource of the auction engine. The two
// Try operations are conditional atomic updates: the store evaluates the full
// predicate and applies the mutation indivisibly, so concurrent writers
// serialize on the project row without application-level locks. A false
// return means the predicate did not hold at write time; it carries no
// information about which clause failed.
type Store interface {
	Create(ctx context.Context, p *Project) error

	// Get returns the current project state, ErrProjectNotFound otherwise.
	Get(ctx context.Context, id string) (*Project, error)

	// TryPlaceBid appends the bid iff the project exists, has no accepted
	// bid, its deadline is after now, the provider is not the owner, and the
	// amount strictly undercuts the current lowest (or the list is empty).
	// On success it returns the updated bid list.
	TryPlaceBid(ctx context.Context, projectID string, bid Bid, now time.Time) ([]Bid, bool, error)

	// TryAcceptBid sets the accepted bid iff the project exists, is owned by
	// buyerID, has no accepted bid, its deadline is at or before now, and the
	// bid list contains an exact (providerID, amount) entry.
	TryAcceptBid(ctx context.Context, projectID, buyerID, providerID string, amount float64, now time.Time) (*AcceptedBid, bool, error)

	List(ctx context.Context) ([]Project, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]Project, error)
	ListByProvider(ctx context.Context, providerID string) ([]Project, error)

	Overview(ctx context.Context, q OverviewQuery, now time.Time) ([]OverviewItem, int, error)

	// CountByState and CountByCategory feed the admin stats endpoint.
	CountByState(ctx context.Context, now time.Time) (total, open, closed int, err error)
	CountByCategory(ctx context.Context) (map[string]int, error)
}

// Overview sort keys. Anything else falls back to newest-first.
var overviewSortKeys = map[string]bool{
	"createdAt": true,
	"deadline":  true,
	"budgetMin": true,
	"budgetMax": true,
	"bidsCount": true,
	"lowestBid": true,
}

// Normalize clamps paging to sane bounds and discards unknown sort keys.
func (q *OverviewQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 10
	}
	if q.PageSize > 50 {
		q.PageSize = 50
	}
	if !overviewSortKeys[q.SortKey] {
		q.SortKey = "createdAt"
		q.SortOrder = "descend"
	}
	if q.SortOrder != "ascend" {
		q.SortOrder = "descend"
	}
}
