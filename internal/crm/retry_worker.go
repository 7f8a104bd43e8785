package crm

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/leadintake/internal/observability/metrics"
	"github.com/wolfman30/leadintake/pkg/logging"
)

// ErrLeadMissing is returned by a LeadSource when the lead no longer exists.
var ErrLeadMissing = errors.New("crm: lead no longer exists")

// LeadSource loads leads for re-push and records the outcome.
type LeadSource interface {
	CRMPayload(ctx context.Context, leadID string) (LeadPayload, error)
	MarkPushed(ctx context.Context, leadID, crmLeadID string) error
}

// RetryWorker re-pushes queued leads until they succeed or run out of attempts.
type RetryWorker struct {
	store       RetryStore
	leads       LeadSource
	pusher      Pusher
	logger      *logging.Logger
	metrics     *metrics.IntakeMetrics
	maxAttempts int
	baseDelay   time.Duration
	interval    time.Duration
	batchSize   int
	now         func() time.Time
}

func NewRetryWorker(store RetryStore, leads LeadSource, pusher Pusher, logger *logging.Logger) *RetryWorker {
	if logger == nil {
		logger = logging.Default()
	}
	return &RetryWorker{
		store:       store,
		leads:       leads,
		pusher:      pusher,
		logger:      logger.Component("crm_retry"),
		maxAttempts: 5,
		baseDelay:   time.Minute,
		interval:    30 * time.Second,
		batchSize:   25,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (w *RetryWorker) WithMaxAttempts(n int) *RetryWorker {
	if n > 0 {
		w.maxAttempts = n
	}
	return w
}

func (w *RetryWorker) WithBaseDelay(d time.Duration) *RetryWorker {
	if d > 0 {
		w.baseDelay = d
	}
	return w
}

func (w *RetryWorker) WithInterval(d time.Duration) *RetryWorker {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *RetryWorker) WithBatchSize(n int) *RetryWorker {
	if n > 0 {
		w.batchSize = n
	}
	return w
}

func (w *RetryWorker) WithMetrics(m *metrics.IntakeMetrics) *RetryWorker {
	w.metrics = m
	return w
}

// Run drains the queue immediately and then on every tick until ctx is done.
func (w *RetryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *RetryWorker) drain(ctx context.Context) {
	if w.store == nil || w.leads == nil || w.pusher == nil {
		return
	}
	retries, err := w.store.Claim(ctx, w.now(), w.batchSize)
	if err != nil {
		w.logger.Error("retry claim failed", "error", err)
		return
	}
	for _, r := range retries {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, r)
	}
}

func (w *RetryWorker) process(ctx context.Context, r Retry) {
	payload, err := w.leads.CRMPayload(ctx, r.LeadID)
	if errors.Is(err, ErrLeadMissing) {
		if err := w.store.MarkDead(ctx, r.ID, r.Attempts, err.Error()); err != nil {
			w.logger.Error("mark retry dead failed", "error", err, "retry_id", r.ID)
		}
		return
	}
	if err != nil {
		w.logger.Error("load lead for retry failed", "error", err, "lead_id", r.LeadID)
		w.reschedule(ctx, r, err)
		return
	}

	crmLeadID, err := w.pusher.CreateLead(ctx, payload)
	w.metrics.ObserveCRMPush("retry", err == nil)
	if err != nil {
		w.logger.Warn("crm retry failed", "error", err, "lead_id", r.LeadID, "attempt", r.Attempts+1)
		w.reschedule(ctx, r, err)
		return
	}

	if err := w.leads.MarkPushed(ctx, r.LeadID, crmLeadID); err != nil {
		w.logger.Error("mark lead pushed failed", "error", err, "lead_id", r.LeadID)
	}
	if err := w.store.MarkDone(ctx, r.ID); err != nil {
		w.logger.Error("mark retry done failed", "error", err, "retry_id", r.ID)
		return
	}
	w.logger.Info("crm retry succeeded", "lead_id", r.LeadID, "crm_lead_id", crmLeadID, "attempts", r.Attempts+1)
}

func (w *RetryWorker) reschedule(ctx context.Context, r Retry, cause error) {
	attempts := r.Attempts + 1
	if attempts >= w.maxAttempts {
		if err := w.store.MarkDead(ctx, r.ID, attempts, cause.Error()); err != nil {
			w.logger.Error("mark retry dead failed", "error", err, "retry_id", r.ID)
			return
		}
		w.logger.Warn("crm retry exhausted", "lead_id", r.LeadID, "attempts", attempts)
		return
	}
	next := w.now().Add(w.nextDelay(r.Attempts))
	if err := w.store.Reschedule(ctx, r.ID, attempts, next, cause.Error()); err != nil {
		w.logger.Error("schedule retry failed", "error", err, "retry_id", r.ID)
	}
}

func (w *RetryWorker) nextDelay(attempts int) time.Duration {
	delay := w.baseDelay * time.Duration(1<<attempts)
	if delay > 24*time.Hour || delay <= 0 {
		delay = 24 * time.Hour
	}
	return delay
}
