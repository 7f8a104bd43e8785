package contacts

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for contact submission storage
type Repository interface {
	Create(ctx context.Context, req *CreateSubmissionRequest) (*Submission, error)
	List(ctx context.Context) ([]*Submission, error)
	Update(ctx context.Context, req *UpdateSubmissionRequest) (*Submission, error)
	Delete(ctx context.Context, id string) error
}

// InMemoryRepository keeps submissions in process memory; used in development and tests.
type InMemoryRepository struct {
	mu          sync.RWMutex
	submissions map[string]*Submission
	now         func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		submissions: make(map[string]*Submission),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new submission with status "new".
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateSubmissionRequest) (*Submission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := r.now()
	sub := &Submission{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     req.Phone,
		Company:   req.Company,
		Message:   req.Message,
		Service:   req.Service,
		Budget:    req.Budget,
		Timeline:  req.Timeline,
		Source:    req.Source,
		Status:    StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.submissions[sub.ID] = sub
	r.mu.Unlock()

	copied := *sub
	return &copied, nil
}

// List returns every submission, newest first.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Submission, error) {
	r.mu.RLock()
	out := make([]*Submission, 0, len(r.submissions))
	for _, sub := range r.submissions {
		copied := *sub
		out = append(out, &copied)
	}
	r.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

// Update applies a partial status/notes patch.
func (r *InMemoryRepository) Update(ctx context.Context, req *UpdateSubmissionRequest) (*Submission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.submissions[req.ID]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	req.apply(sub, r.now())
	copied := *sub
	return &copied, nil
}

// Delete permanently removes a submission.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.submissions[id]; !ok {
		return ErrSubmissionNotFound
	}
	delete(r.submissions, id)
	return nil
}

// sortNewestFirst orders by creation time descending; id breaks ties so
// repeated reads return the same order.
func sortNewestFirst(subs []*Submission) {
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].CreatedAt.After(subs[j].CreatedAt)
		}
		return subs[i].ID > subs[j].ID
	})
}
