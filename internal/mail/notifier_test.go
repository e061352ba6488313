package mail

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidcraft/backend/internal/auction"
	"github.com/bidcraft/backend/internal/users"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeDirectory struct {
	byID map[string]*users.User
}

func (d *fakeDirectory) GetByID(_ context.Context, id string) (*users.User, error) {
	u, ok := d.byID[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return u, nil
}

func newNotifierFixture(mailErr error) (*Notifier, *fakeMailer, *MemoryLogStore, *fakeDirectory) {
	mailer := &fakeMailer{err: mailErr}
	logs := NewMemoryLogStore()
	dir := &fakeDirectory{byID: map[string]*users.User{}}
	n := NewNotifier(mailer, logs, dir, slog.New(slog.DiscardHandler))
	return n, mailer, logs, dir
}

func TestBidAcceptedNotification(t *testing.T) {
	n, mailer, logs, dir := newNotifierFixture(nil)

	providerID := uuid.NewString()
	dir.byID[providerID] = &users.User{ID: providerID, Email: "winner@example.com"}

	n.BidAccepted(context.Background(), auction.BidAcceptedEvent{
		ProjectID:    uuid.NewString(),
		ProjectTitle: "Build a deck",
		ProviderID:   providerID,
		Amount:       1800,
	})

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "winner@example.com", mailer.sent[0].To)
	assert.Equal(t, `Your bid on "Build a deck" was accepted`, mailer.sent[0].Subject)

	entries := logs.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, providerID, entries[0].UserID)
	assert.Equal(t, "BID_ACCEPTED", entries[0].Meta["event"])
	assert.Nil(t, entries[0].Meta["mailError"])
}

func TestFailedSendIsStillLogged(t *testing.T) {
	n, mailer, logs, dir := newNotifierFixture(errors.New("smtp: connection refused"))

	providerID := uuid.NewString()
	dir.byID[providerID] = &users.User{ID: providerID, Email: "winner@example.com"}

	n.BidAccepted(context.Background(), auction.BidAcceptedEvent{
		ProjectID:    uuid.NewString(),
		ProjectTitle: "Build a deck",
		ProviderID:   providerID,
		Amount:       1800,
	})

	assert.Empty(t, mailer.sent)

	// the attempt is logged with the delivery error, nothing is raised
	entries := logs.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "smtp: connection refused", entries[0].Meta["mailError"])
}

func TestUnresolvableRecipientSkipsSendAndLog(t *testing.T) {
	n, mailer, logs, _ := newNotifierFixture(nil)

	n.BidAccepted(context.Background(), auction.BidAcceptedEvent{
		ProjectID:  uuid.NewString(),
		ProviderID: uuid.NewString(),
	})

	assert.Empty(t, mailer.sent)
	assert.Empty(t, logs.Entries())
}

func TestStatusChangeNotifications(t *testing.T) {
	t.Run("ban with reason", func(t *testing.T) {
		n, mailer, logs, _ := newNotifierFixture(nil)

		n.AccountStatusChanged(context.Background(), users.StatusChangedEvent{
			UserID:    uuid.NewString(),
			Email:     "banned@example.com",
			NewStatus: users.StatusBanned,
			Reason:    "fake bids",
		})

		require.Len(t, mailer.sent, 1)
		assert.Equal(t, "Your BidCraft account has been suspended", mailer.sent[0].Subject)
		assert.Contains(t, mailer.sent[0].HTML, "fake bids")

		entries := logs.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, "STATUS_CHANGED", entries[0].Meta["event"])
		assert.Equal(t, string(users.StatusBanned), entries[0].Meta["status"])
	})

	t.Run("reinstatement", func(t *testing.T) {
		n, mailer, _, _ := newNotifierFixture(nil)

		n.AccountStatusChanged(context.Background(), users.StatusChangedEvent{
			UserID:    uuid.NewString(),
			Email:     "back@example.com",
			NewStatus: users.StatusActive,
		})

		require.Len(t, mailer.sent, 1)
		assert.Equal(t, "Your BidCraft account has been reinstated", mailer.sent[0].Subject)
	})
}
