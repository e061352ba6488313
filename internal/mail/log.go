package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LogEntry records one notification attempt. Entries are append-only and
// written regardless of delivery outcome; the error, if any, lives in Meta.
type LogEntry struct {
	ID        string         `json:"id"`
	To        string         `json:"to"`
	Subject   string         `json:"subject"`
	HTML      string         `json:"html,omitempty"`
	Text      string         `json:"text,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type LogStore interface {
	Append(ctx context.Context, e LogEntry) error
}

type PostgresLogStore struct {
	db *pgxpool.Pool
}

func NewPostgresLogStore(db *pgxpool.Pool) *PostgresLogStore {
	return &PostgresLogStore{db: db}
}

func (s *PostgresLogStore) Append(ctx context.Context, e LogEntry) error {
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		return fmt.Errorf("mail.PostgresLogStore.Append: %w", err)
	}

	const q = `
insert into mail_logs (id, recipient, subject, body_html, body_text, user_id, meta, created_at)
values ($1::uuid, $2, $3, $4, $5, nullif($6, '')::uuid, $7::jsonb, $8)
`
	_, err = s.db.Exec(ctx, q, e.ID, e.To, e.Subject, e.HTML, e.Text, e.UserID, meta, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("mail.PostgresLogStore.Append: %w", err)
	}
	return nil
}

// MemoryLogStore collects entries in memory for tests.
type MemoryLogStore struct {
	mu      sync.Mutex
	entries []LogEntry
}

func NewMemoryLogStore() *MemoryLogStore {
	return &MemoryLogStore{}
}

func (s *MemoryLogStore) Append(_ context.Context, e LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemoryLogStore) Entries() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func newLogEntry(msg Message, userID string, meta map[string]any) LogEntry {
	return LogEntry{
		ID:        uuid.New().String(),
		To:        msg.To,
		Subject:   msg.Subject,
		HTML:      msg.HTML,
		Text:      msg.Text,
		UserID:    userID,
		Meta:      meta,
		CreatedAt: time.Now().UTC(),
	}
}
