package auction

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BidAcceptedEvent is handed to the post-commit hook after a successful
// acceptance. The acceptance is already durable when the hook runs.
type BidAcceptedEvent struct {
	ProjectID    string
	ProjectTitle string
	BuyerID      string
	ProviderID   string
	Amount       float64
}

// Hooks receive advisory post-commit events. Implementations must swallow
// their own failures; the auction outcome never depends on them.
type Hooks interface {
	BidAccepted(ctx context.Context, ev BidAcceptedEvent)
}

// NopHooks is used when no notifier is configured.
type NopHooks struct{}

func (NopHooks) BidAccepted(context.Context, BidAcceptedEvent) {}

// Service enforces the descending-bid auction protocol. All invariants are
// carried by the store's conditional updates; the service validates input,
// translates failed writes into precise errors, and fires post-commit hooks.
type Service struct {
	store Store
	hooks Hooks
	log   *slog.Logger
	now   func() time.Time
}

func NewService(store Store, hooks Hooks, log *slog.Logger) *Service {
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &Service{
		store: store,
		hooks: hooks,
		log:   log,
		now:   time.Now,
	}
}

// WithClock replaces the wall clock. Tests use this to drive deadline
// transitions deterministically.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type CreateProjectInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	BudgetMin   float64   `json:"budgetMin"`
	BudgetMax   float64   `json:"budgetMax"`
	Deadline    time.Time `json:"deadline"`
	Category    string    `json:"category"`
}

func (s *Service) CreateProject(ctx context.Context, buyerID string, in CreateProjectInput) (*Project, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)

	if in.Title == "" || in.Description == "" || in.Category == "" || in.Deadline.IsZero() {
		return nil, ErrInvalidProject
	}
	if in.BudgetMin < 0 || in.BudgetMax < 0 || in.BudgetMin > in.BudgetMax {
		return nil, fmt.Errorf("%w: budgetMin must not exceed budgetMax", ErrInvalidProject)
	}

	p := &Project{
		ID:          uuid.New().String(),
		BuyerID:     buyerID,
		Title:       in.Title,
		Description: in.Description,
		BudgetMin:   in.BudgetMin,
		BudgetMax:   in.BudgetMax,
		Deadline:    in.Deadline,
		Category:    in.Category,
		Bids:        []Bid{},
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// PlaceBidResult reports the aggregates after a successful bid.
type PlaceBidResult struct {
	BidsCount int     `json:"bidsCount"`
	LowestBid float64 `json:"lowestBid"`
}

// PlaceBid attempts one conditional append. When the write does not match,
// the project is re-read to name the failing condition; that re-read is
// best-effort diagnostics, state may already have moved on again.
func (s *Service) PlaceBid(ctx context.Context, projectID, providerID string, amount float64) (*PlaceBidResult, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, ErrInvalidAmount
	}

	now := s.now().UTC()
	bid := Bid{ProviderID: providerID, Amount: amount, CreatedAt: now}

	bids, ok, err := s.store.TryPlaceBid(ctx, projectID, bid, now)
	if err != nil {
		return nil, err
	}
	if ok {
		lowest := bids[0].Amount
		for _, b := range bids[1:] {
			if b.Amount < lowest {
				lowest = b.Amount
			}
		}
		return &PlaceBidResult{BidsCount: len(bids), LowestBid: lowest}, nil
	}

	return nil, s.diagnosePlaceFailure(ctx, projectID, providerID, amount, now)
}

// diagnosePlaceFailure classifies a failed conditional append, most specific
// condition first.
func (s *Service) diagnosePlaceFailure(ctx context.Context, projectID, providerID string, amount float64, now time.Time) error {
	p, err := s.store.Get(ctx, projectID)
	if err != nil {
		return err
	}

	switch {
	case p.AcceptedBid != nil:
		return ErrAlreadyAccepted
	case !p.Deadline.After(now):
		return ErrDeadlinePassed
	case p.BuyerID == providerID:
		return ErrSelfBid
	}

	if lowest := p.LowestBid(); lowest != nil && amount >= *lowest {
		return fmt.Errorf("%w (%v)", ErrBidNotLower, *lowest)
	}
	return ErrBidRejected
}

// BidBoard is the public read model of a project's bidding state.
type BidBoard struct {
	Bids        []Bid        `json:"bids"`
	Deadline    time.Time    `json:"deadline"`
	AcceptedBid *AcceptedBid `json:"acceptedBid"`
}

// GetBids returns the bid list sorted ascending by amount. Storage order is
// insertion order; ranking is computed here at read time.
func (s *Service) GetBids(ctx context.Context, projectID string) (*BidBoard, error) {
	p, err := s.store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	bids := make([]Bid, len(p.Bids))
	copy(bids, p.Bids)
	sortBidsByAmount(bids)

	return &BidBoard{Bids: bids, Deadline: p.Deadline, AcceptedBid: p.AcceptedBid}, nil
}

// AcceptBid closes the project on the exact (provider, amount) pair. A failed
// predicate is terminal for the request: no retry, no disambiguation. On
// success the notification hook fires after the mutation has committed.
func (s *Service) AcceptBid(ctx context.Context, projectID, buyerID, providerID string, amount float64) (*AcceptedBid, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, ErrInvalidAmount
	}

	now := s.now().UTC()
	accepted, ok, err := s.store.TryAcceptBid(ctx, projectID, buyerID, providerID, amount, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAcceptConflict
	}

	title := projectID
	if p, err := s.store.Get(ctx, projectID); err == nil {
		title = p.Title
	} else {
		s.log.Warn("accept: project re-read for notification failed", "project_id", projectID, "error", err)
	}
	s.hooks.BidAccepted(ctx, BidAcceptedEvent{
		ProjectID:    projectID,
		ProjectTitle: title,
		BuyerID:      buyerID,
		ProviderID:   accepted.ProviderID,
		Amount:       accepted.Amount,
	})

	return accepted, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	return s.store.List(ctx)
}

func (s *Service) ListByBuyer(ctx context.Context, buyerID string) ([]Project, error) {
	return s.store.ListByBuyer(ctx, buyerID)
}

func (s *Service) ListByProvider(ctx context.Context, providerID string) ([]Project, error) {
	return s.store.ListByProvider(ctx, providerID)
}

// OverviewPage is the paginated overview envelope.
type OverviewPage struct {
	Items    []OverviewItem `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

func (s *Service) Overview(ctx context.Context, q OverviewQuery) (*OverviewPage, error) {
	q.Normalize()
	items, total, err := s.store.Overview(ctx, q, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return &OverviewPage{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

// Stats reports project counters for the admin dashboard. Open/closed are
// derived from the given time, not stored state.
func (s *Service) Stats(ctx context.Context, now time.Time) (total, open, closed int, byCategory map[string]int, err error) {
	total, open, closed, err = s.store.CountByState(ctx, now)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	byCategory, err = s.store.CountByCategory(ctx)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	return total, open, closed, byCategory, nil
}

func sortBidsByAmount(bids []Bid) {
	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].Amount < bids[j].Amount
	})
}
