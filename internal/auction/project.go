package auction

import "time"

// Bid is one entry in a project's bid list. The list is stored in insertion
// order; readers sort by amount when they need ranking.
type Bid struct {
	ProviderID string    `json:"providerId"`
	Amount     float64   `json:"amount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AcceptedBid marks a project as permanently closed. It is written at most
// once and never updated or cleared.
type AcceptedBid struct {
	ProviderID string  `json:"providerId"`
	Amount     float64 `json:"amount"`
}

type Project struct {
	ID          string       `json:"id"`
	BuyerID     string       `json:"buyerId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	BudgetMin   float64      `json:"budgetMin"`
	BudgetMax   float64      `json:"budgetMax"`
	Deadline    time.Time    `json:"deadline"`
	Category    string       `json:"category"`
	Bids        []Bid        `json:"bids"`
	AcceptedBid *AcceptedBid `json:"acceptedBid,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type State string

const (
	StateOpen               State = "OPEN"
	StateAwaitingAcceptance State = "AWAITING_ACCEPTANCE"
	StateClosed             State = "CLOSED"
)

// StateAt derives the bidding lifecycle state from stored data and the given
// time. No background job ever transitions a project; every reader and writer
// recomputes this.
func (p *Project) StateAt(now time.Time) State {
	switch {
	case p.AcceptedBid != nil:
		return StateClosed
	case now.Before(p.Deadline):
		return StateOpen
	default:
		return StateAwaitingAcceptance
	}
}

// LowestBid returns the minimum bid amount, or nil when there are no bids.
func (p *Project) LowestBid() *float64 {
	var min *float64
	for i := range p.Bids {
		if min == nil || p.Bids[i].Amount < *min {
			v := p.Bids[i].Amount
			min = &v
		}
	}
	return min
}

// HasBid reports whether the bid list contains an exact (provider, amount)
// entry.
func (p *Project) HasBid(providerID string, amount float64) bool {
	for i := range p.Bids {
		if p.Bids[i].ProviderID == providerID && p.Bids[i].Amount == amount {
			return true
		}
	}
	return false
}
