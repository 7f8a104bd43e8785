// Package integrations keeps an audit trail of calls made to third-party
// systems (CRM, ad platforms) and of unhandled intake failures.
package integrations

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Providers recorded in the log.
const (
	ProviderCRM       = "zoho"
	ProviderGoogleAds = "google_ads"
	ProviderAPI       = "api"
)

// Levels recorded in the log.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Entry is one integration log row.
type Entry struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Provider      string    `json:"provider"`
	Level         string    `json:"level"`
	Message       string    `json:"message"`
	StatusCode    int       `json:"statusCode,omitempty"`
	Error         string    `json:"error,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Store appends and lists integration log entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, entry Entry) error {
	entry = normalize(entry)
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	return nil
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	out := append([]Entry(nil), s.entries...)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Find returns entries matching type and provider, oldest first.
func (s *MemoryStore) Find(typ, provider string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.Type == typ && e.Provider == provider {
			out = append(out, e)
		}
	}
	return out
}

func normalize(entry Entry) Entry {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Level == "" {
		entry.Level = LevelInfo
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return entry
}

// Discard is a Store that drops everything.
type Discard struct{}

func (Discard) Append(context.Context, Entry) error { return nil }

func (Discard) Recent(context.Context, int) ([]Entry, error) { return nil, nil }
