package auction

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore mirrors the conditional-update semantics of PostgresStore with
// a single mutex standing in for the row lock. Used by tests and local runs
// without a database.
type MemoryStore struct {
	mu       sync.Mutex
	projects map[string]*Project

	// BuyerEmail optionally resolves owner emails for overview items.
	BuyerEmail func(buyerID string) string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]*Project)}
}

func (s *MemoryStore) Create(_ context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneProject(p)
	s.projects[p.ID] = cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	return cloneProject(p), nil
}

func (s *MemoryStore) TryPlaceBid(_ context.Context, projectID string, bid Bid, now time.Time) ([]Bid, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok || p.AcceptedBid != nil || !p.Deadline.After(now) || p.BuyerID == bid.ProviderID {
		return nil, false, nil
	}
	if lowest := p.LowestBid(); lowest != nil && bid.Amount >= *lowest {
		return nil, false, nil
	}

	p.Bids = append(p.Bids, bid)
	out := make([]Bid, len(p.Bids))
	copy(out, p.Bids)
	return out, true, nil
}

func (s *MemoryStore) TryAcceptBid(_ context.Context, projectID, buyerID, providerID string, amount float64, now time.Time) (*AcceptedBid, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok || p.BuyerID != buyerID || p.AcceptedBid != nil || now.Before(p.Deadline) || !p.HasBid(providerID, amount) {
		return nil, false, nil
	}

	p.AcceptedBid = &AcceptedBid{ProviderID: providerID, Amount: amount}
	accepted := *p.AcceptedBid
	return &accepted, true, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Project, error) {
	return s.listWhere(func(*Project) bool { return true })
}

func (s *MemoryStore) ListByBuyer(_ context.Context, buyerID string) ([]Project, error) {
	return s.listWhere(func(p *Project) bool { return p.BuyerID == buyerID })
}

func (s *MemoryStore) ListByProvider(_ context.Context, providerID string) ([]Project, error) {
	return s.listWhere(func(p *Project) bool {
		for i := range p.Bids {
			if p.Bids[i].ProviderID == providerID {
				return true
			}
		}
		return false
	})
}

func (s *MemoryStore) listWhere(match func(*Project) bool) ([]Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		if match(p) {
			out = append(out, *cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Overview(_ context.Context, q OverviewQuery, now time.Time) ([]OverviewItem, int, error) {
	q.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	text := strings.ToLower(q.Text)
	items := make([]OverviewItem, 0, len(s.projects))
	for _, p := range s.projects {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(p.Title), text) &&
			!strings.Contains(strings.ToLower(p.Description), text) {
			continue
		}

		it := OverviewItem{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			BudgetMin:   p.BudgetMin,
			BudgetMax:   p.BudgetMax,
			Deadline:    p.Deadline,
			Category:    p.Category,
			BidsCount:   len(p.Bids),
			LowestBid:   p.LowestBid(),
			IsOpen:      p.Deadline.After(now) && p.AcceptedBid == nil,
			CreatedAt:   p.CreatedAt,
		}
		if s.BuyerEmail != nil {
			it.BuyerEmail = s.BuyerEmail(p.BuyerID)
		}
		items = append(items, it)
	}

	sortOverview(items, q.SortKey, q.SortOrder)

	total := len(items)
	start := (q.Page - 1) * q.PageSize
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	return items[start:end], total, nil
}

func sortOverview(items []OverviewItem, key, order string) {
	asc := order == "ascend"
	less := func(i, j OverviewItem) int {
		switch key {
		case "deadline":
			return i.Deadline.Compare(j.Deadline)
		case "budgetMin":
			return compareFloat(i.BudgetMin, j.BudgetMin)
		case "budgetMax":
			return compareFloat(i.BudgetMax, j.BudgetMax)
		case "bidsCount":
			return compareFloat(float64(i.BidsCount), float64(j.BidsCount))
		case "lowestBid":
			return compareNullableFloat(i.LowestBid, j.LowestBid)
		default:
			return i.CreatedAt.Compare(j.CreatedAt)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		c := less(items[i], items[j])
		if c == 0 {
			// deterministic tie-break regardless of direction
			return items[i].ID < items[j].ID
		}
		if asc {
			return c < 0
		}
		return c > 0
	})
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareNullableFloat(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return compareFloat(*a, *b)
	}
}

func (s *MemoryStore) CountByState(_ context.Context, now time.Time) (total, open, closed int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.projects {
		total++
		if p.Deadline.After(now) && p.AcceptedBid == nil {
			open++
		} else {
			closed++
		}
	}
	return total, open, closed, nil
}

func (s *MemoryStore) CountByCategory(_ context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int)
	for _, p := range s.projects {
		out[p.Category]++
	}
	return out, nil
}

func cloneProject(p *Project) *Project {
	cp := *p
	cp.Bids = make([]Bid, len(p.Bids))
	copy(cp.Bids, p.Bids)
	if p.AcceptedBid != nil {
		accepted := *p.AcceptedBid
		cp.AcceptedBid = &accepted
	}
	return &cp
}
