package crm

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RetryTypeLead marks a queued CRM lead push.
const RetryTypeLead = "crm_lead"

// Retry statuses.
const (
	RetryQueued = "queued"
	RetryDone   = "done"
	RetryDead   = "dead"
)

// claimLease hides a claimed retry from other workers while it is processed.
const claimLease = 5 * time.Minute

var ErrRetryNotFound = errors.New("crm: retry not found")

// Retry is one row of the integration retry queue.
type Retry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	LeadID    string    `json:"leadId"`
	Attempts  int       `json:"attempts"`
	Status    string    `json:"status"`
	NextRunAt time.Time `json:"nextRunAt"`
	LastError string    `json:"lastError,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RetryStore persists queued CRM pushes.
type RetryStore interface {
	Enqueue(ctx context.Context, leadID string, runAt time.Time, lastErr string) (*Retry, error)
	// Claim returns up to limit queued retries due at now and leases them.
	Claim(ctx context.Context, now time.Time, limit int) ([]Retry, error)
	MarkDone(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error
	MarkDead(ctx context.Context, id string, attempts int, lastErr string) error
}

// MemoryRetryStore is an in-process RetryStore.
type MemoryRetryStore struct {
	mu      sync.Mutex
	retries map[string]*Retry
}

func NewMemoryRetryStore() *MemoryRetryStore {
	return &MemoryRetryStore{retries: make(map[string]*Retry)}
}

func (s *MemoryRetryStore) Enqueue(ctx context.Context, leadID string, runAt time.Time, lastErr string) (*Retry, error) {
	now := time.Now().UTC()
	r := &Retry{
		ID:        uuid.New().String(),
		Type:      RetryTypeLead,
		LeadID:    leadID,
		Status:    RetryQueued,
		NextRunAt: runAt,
		LastError: lastErr,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.retries[r.ID] = r
	s.mu.Unlock()
	copied := *r
	return &copied, nil
}

func (s *MemoryRetryStore) Claim(ctx context.Context, now time.Time, limit int) ([]Retry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*Retry
	for _, r := range s.retries {
		if r.Status == RetryQueued && !r.NextRunAt.After(now) {
			due = append(due, r)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRunAt.Before(due[j].NextRunAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	out := make([]Retry, 0, len(due))
	for _, r := range due {
		out = append(out, *r)
		r.NextRunAt = now.Add(claimLease)
	}
	return out, nil
}

func (s *MemoryRetryStore) MarkDone(ctx context.Context, id string) error {
	return s.update(id, func(r *Retry) {
		r.Status = RetryDone
	})
}

func (s *MemoryRetryStore) Reschedule(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error {
	return s.update(id, func(r *Retry) {
		r.Attempts = attempts
		r.NextRunAt = next
		r.LastError = lastErr
	})
}

func (s *MemoryRetryStore) MarkDead(ctx context.Context, id string, attempts int, lastErr string) error {
	return s.update(id, func(r *Retry) {
		r.Status = RetryDead
		r.Attempts = attempts
		r.LastError = lastErr
	})
}

// Get returns a copy of a retry row.
func (s *MemoryRetryStore) Get(id string) (Retry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.retries[id]
	if !ok {
		return Retry{}, false
	}
	return *r, true
}

// ForLead returns every retry queued for a lead.
func (s *MemoryRetryStore) ForLead(leadID string) []Retry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Retry
	for _, r := range s.retries {
		if r.LeadID == leadID {
			out = append(out, *r)
		}
	}
	return out
}

func (s *MemoryRetryStore) update(id string, fn func(r *Retry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.retries[id]
	if !ok {
		return ErrRetryNotFound
	}
	fn(r)
	r.UpdatedAt = time.Now().UTC()
	return nil
}
