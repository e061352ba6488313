package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bidcraft/backend/internal/auction"
	"github.com/bidcraft/backend/internal/users"
)

// Directory resolves user ids to stored accounts for addressing.
type Directory interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

// Notifier implements the post-commit hooks of the auction engine and the
// account service. Every attempt is appended to the mail log with its
// outcome; no failure ever reaches the caller. The triggering mutation is
// already committed when a hook runs, so the worst case is a missed email,
// never an inconsistent auction.
type Notifier struct {
	mailer    Mailer
	logs      LogStore
	directory Directory
	log       *slog.Logger
}

func NewNotifier(mailer Mailer, logs LogStore, directory Directory, log *slog.Logger) *Notifier {
	return &Notifier{mailer: mailer, logs: logs, directory: directory, log: log}
}

var _ auction.Hooks = (*Notifier)(nil)
var _ users.Hooks = (*Notifier)(nil)

// BidAccepted emails the winning provider.
func (n *Notifier) BidAccepted(ctx context.Context, ev auction.BidAcceptedEvent) {
	u, err := n.directory.GetByID(ctx, ev.ProviderID)
	if err != nil {
		n.log.Error("notify: resolve provider failed", "provider_id", ev.ProviderID, "error", err)
		return
	}

	msg := Message{
		To:      u.Email,
		Subject: fmt.Sprintf("Your bid on %q was accepted", ev.ProjectTitle),
		HTML: fmt.Sprintf(
			"<p>Hello,</p><p>Your bid of <b>%.2f</b> on <b>%s</b> was accepted by the buyer.</p><p>Log in to BidCraft to get in touch.</p>",
			ev.Amount, ev.ProjectTitle),
	}
	n.deliver(ctx, msg, ev.ProviderID, map[string]any{
		"event":     "BID_ACCEPTED",
		"projectId": ev.ProjectID,
		"amount":    ev.Amount,
	})
}

// AccountStatusChanged emails the affected user about a ban or reinstatement.
func (n *Notifier) AccountStatusChanged(ctx context.Context, ev users.StatusChangedEvent) {
	var msg Message
	if ev.NewStatus == users.StatusBanned {
		reason := ""
		if ev.Reason != "" {
			reason = fmt.Sprintf(" for the following reason: <i>%s</i>", ev.Reason)
		}
		msg = Message{
			To:      ev.Email,
			Subject: "Your BidCraft account has been suspended",
			HTML:    fmt.Sprintf("<p>Hello,</p><p>Your account has been <b>suspended</b>%s.</p><p>If you believe this was in error, reply to this email.</p>", reason),
		}
	} else {
		msg = Message{
			To:      ev.Email,
			Subject: "Your BidCraft account has been reinstated",
			HTML:    "<p>Hello,</p><p>Your account has been <b>reinstated</b>. You can log in again.</p>",
		}
	}

	n.deliver(ctx, msg, ev.UserID, map[string]any{
		"event":  "STATUS_CHANGED",
		"status": string(ev.NewStatus),
		"reason": ev.Reason,
	})
}

// deliver sends and then logs the attempt, success or not.
func (n *Notifier) deliver(ctx context.Context, msg Message, userID string, meta map[string]any) {
	if err := n.mailer.Send(ctx, msg); err != nil {
		n.log.Error("notify: send failed", "to", msg.To, "subject", msg.Subject, "error", err)
		meta["mailError"] = err.Error()
	} else {
		meta["mailError"] = nil
	}

	if err := n.logs.Append(ctx, newLogEntry(msg, userID, meta)); err != nil {
		n.log.Error("notify: mail log append failed", "to", msg.To, "error", err)
	}
}
