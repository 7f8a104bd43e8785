package crm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wolfman30/leadintake/pkg/logging"
)

type fakeLeadSource struct {
	mu      sync.Mutex
	missing map[string]bool
	pushed  map[string]string
}

func newFakeLeadSource() *fakeLeadSource {
	return &fakeLeadSource{missing: map[string]bool{}, pushed: map[string]string{}}
}

func (f *fakeLeadSource) CRMPayload(ctx context.Context, leadID string) (LeadPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[leadID] {
		return LeadPayload{}, ErrLeadMissing
	}
	return LeadPayload{LeadID: leadID, Name: "Jane", Email: "jane@example.com"}, nil
}

func (f *fakeLeadSource) MarkPushed(ctx context.Context, leadID, crmLeadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed[leadID] = crmLeadID
	return nil
}

type fakePusher struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakePusher) CreateLead(ctx context.Context, lead LeadPayload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "crm-" + lead.LeadID, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRetryWorker_SuccessMarksDoneAndPushed(t *testing.T) {
	store := NewMemoryRetryStore()
	leads := newFakeLeadSource()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r, err := store.Enqueue(context.Background(), "lead-1", now.Add(-time.Second), "timeout")
	require.NoError(t, err)

	w := NewRetryWorker(store, leads, &fakePusher{}, logging.New("error"))
	w.now = fixedClock(now)
	w.drain(context.Background())

	got, ok := store.Get(r.ID)
	require.True(t, ok)
	assert.Equal(t, RetryDone, got.Status)
	assert.Equal(t, "crm-lead-1", leads.pushed["lead-1"])
}

func TestRetryWorker_NotDueIsSkipped(t *testing.T) {
	store := NewMemoryRetryStore()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	_, err := store.Enqueue(context.Background(), "lead-1", now.Add(time.Minute), "")
	require.NoError(t, err)

	pusher := &fakePusher{}
	w := NewRetryWorker(store, newFakeLeadSource(), pusher, logging.New("error"))
	w.now = fixedClock(now)
	w.drain(context.Background())

	assert.Zero(t, pusher.calls)
}

func TestRetryWorker_FailureBacksOffExponentially(t *testing.T) {
	store := NewMemoryRetryStore()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r, err := store.Enqueue(context.Background(), "lead-1", now, "")
	require.NoError(t, err)

	w := NewRetryWorker(store, newFakeLeadSource(), &fakePusher{err: errors.New("crm down")}, logging.New("error")).
		WithBaseDelay(time.Minute).
		WithMaxAttempts(5)
	w.now = fixedClock(now)

	w.drain(context.Background())
	got, _ := store.Get(r.ID)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, RetryQueued, got.Status)
	assert.Equal(t, now.Add(time.Minute), got.NextRunAt)
	assert.Equal(t, "crm down", got.LastError)

	w.now = fixedClock(got.NextRunAt)
	w.drain(context.Background())
	got, _ = store.Get(r.ID)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, now.Add(time.Minute).Add(2*time.Minute), got.NextRunAt)
}

func TestRetryWorker_DeadAfterMaxAttempts(t *testing.T) {
	store := NewMemoryRetryStore()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r, err := store.Enqueue(context.Background(), "lead-1", now, "")
	require.NoError(t, err)

	pusher := &fakePusher{err: errors.New("crm down")}
	w := NewRetryWorker(store, newFakeLeadSource(), pusher, logging.New("error")).WithMaxAttempts(2)
	clock := now
	for i := 0; i < 4; i++ {
		w.now = fixedClock(clock)
		w.drain(context.Background())
		clock = clock.Add(48 * time.Hour)
	}

	got, _ := store.Get(r.ID)
	assert.Equal(t, RetryDead, got.Status)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, 2, pusher.calls)
}

func TestRetryWorker_MissingLeadGoesDead(t *testing.T) {
	store := NewMemoryRetryStore()
	leads := newFakeLeadSource()
	leads.missing["gone"] = true
	now := time.Now().UTC()
	r, err := store.Enqueue(context.Background(), "gone", now, "")
	require.NoError(t, err)

	pusher := &fakePusher{}
	w := NewRetryWorker(store, leads, pusher, logging.New("error"))
	w.now = fixedClock(now)
	w.drain(context.Background())

	got, _ := store.Get(r.ID)
	assert.Equal(t, RetryDead, got.Status)
	assert.Zero(t, pusher.calls)
}

func TestRetryWorker_NextDelayCapped(t *testing.T) {
	w := NewRetryWorker(nil, nil, nil, nil).WithBaseDelay(time.Hour)
	assert.Equal(t, time.Hour, w.nextDelay(0))
	assert.Equal(t, 8*time.Hour, w.nextDelay(3))
	assert.Equal(t, 24*time.Hour, w.nextDelay(10))
}

func TestRetryWorker_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := NewMemoryRetryStore()
	_, err := store.Enqueue(context.Background(), "lead-1", time.Now().Add(-time.Second), "")
	require.NoError(t, err)
	leads := newFakeLeadSource()

	w := NewRetryWorker(store, leads, &fakePusher{}, logging.New("error")).WithInterval(5 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		leads.mu.Lock()
		defer leads.mu.Unlock()
		return leads.pushed["lead-1"] != ""
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
