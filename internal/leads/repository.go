package leads

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines the interface for lead storage
type Repository interface {
	// Create stores a new lead. When another lead already holds the same
	// idempotency key, that lead is returned with created=false.
	Create(ctx context.Context, lead *Lead) (stored *Lead, created bool, err error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context) ([]*Lead, error)
	UpdateStatus(ctx context.Context, id, status string) (*Lead, error)
	MarkPushed(ctx context.Context, id, crmLeadID string) error
	MarkFailed(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// InMemoryRepository is an in-memory Repository for development and tests
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
	byKey map[string]string
	now   func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
		byKey: make(map[string]string),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, lead *Lead) (*Lead, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lead.IdempotencyKey != "" {
		if id, ok := r.byKey[lead.IdempotencyKey]; ok {
			return clone(r.leads[id]), false, nil
		}
	}

	stored := clone(lead)
	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.leads[stored.ID] = stored
	if stored.IdempotencyKey != "" {
		r.byKey[stored.IdempotencyKey] = stored.ID
	}
	return clone(stored), true, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	return clone(lead), nil
}

// List returns every lead, newest first.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Lead, error) {
	r.mu.RLock()
	out := make([]*Lead, 0, len(r.leads))
	for _, lead := range r.leads {
		out = append(out, clone(lead))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id, status string) (*Lead, error) {
	return r.mutate(id, func(l *Lead) {
		l.Status = status
	})
}

func (r *InMemoryRepository) MarkPushed(ctx context.Context, id, crmLeadID string) error {
	_, err := r.mutate(id, func(l *Lead) {
		if isIntakeStatus(l.Status) {
			l.Status = StatusPushed
		}
		l.CRMStatus = StatusPushed
		l.CRMLeadID = crmLeadID
	})
	return err
}

func (r *InMemoryRepository) MarkFailed(ctx context.Context, id string) error {
	_, err := r.mutate(id, func(l *Lead) {
		if l.Status == StatusPending {
			l.Status = StatusFailed
		}
		l.CRMStatus = StatusFailed
	})
	return err
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	if lead.IdempotencyKey != "" {
		delete(r.byKey, lead.IdempotencyKey)
	}
	delete(r.leads, id)
	return nil
}

func (r *InMemoryRepository) mutate(id string, fn func(l *Lead)) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	fn(lead)
	lead.UpdatedAt = r.now()
	return clone(lead), nil
}

func clone(l *Lead) *Lead {
	if l == nil {
		return nil
	}
	c := *l
	if l.Raw != nil {
		c.Raw = make(map[string]any, len(l.Raw))
		for k, v := range l.Raw {
			c.Raw[k] = v
		}
	}
	return &c
}
