package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateAt(t *testing.T) {
	deadline := base.Add(time.Hour)
	p := &Project{Deadline: deadline}

	assert.Equal(t, StateOpen, p.StateAt(base))
	assert.Equal(t, StateAwaitingAcceptance, p.StateAt(deadline), "boundary instant is past the deadline")
	assert.Equal(t, StateAwaitingAcceptance, p.StateAt(deadline.Add(time.Minute)))

	p.AcceptedBid = &AcceptedBid{ProviderID: "p", Amount: 10}
	assert.Equal(t, StateClosed, p.StateAt(base), "acceptance wins over the clock")
}

func TestLowestBid(t *testing.T) {
	p := &Project{}
	assert.Nil(t, p.LowestBid())

	p.Bids = []Bid{{Amount: 300}, {Amount: 120}, {Amount: 250}}
	lowest := p.LowestBid()
	require.NotNil(t, lowest)
	assert.Equal(t, 120.0, *lowest)
}

func TestHasBid(t *testing.T) {
	p := &Project{Bids: []Bid{
		{ProviderID: "a", Amount: 100},
		{ProviderID: "b", Amount: 90},
	}}

	assert.True(t, p.HasBid("b", 90))
	assert.False(t, p.HasBid("b", 90.01), "amount must match exactly")
	assert.False(t, p.HasBid("a", 90), "pair must match, not just the amount")
	assert.False(t, p.HasBid("c", 100))
}
