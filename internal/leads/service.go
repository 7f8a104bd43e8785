package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/leadintake/internal/conversions"
	"github.com/wolfman30/leadintake/internal/crm"
	"github.com/wolfman30/leadintake/internal/integrations"
	"github.com/wolfman30/leadintake/internal/observability/metrics"
	"github.com/wolfman30/leadintake/pkg/logging"
)

// ConversionRecorder records the server-side conversion for a new lead.
type ConversionRecorder interface {
	Record(ctx context.Context, c conversions.Context) conversions.Conversion
	Lookup(source string) conversions.Conversion
}

// Result is the outcome of a lead submission.
type Result struct {
	Lead       *Lead
	Duplicate  bool
	Conversion conversions.Conversion
}

// Service runs the intake flow: persist, push to CRM, record the conversion.
type Service struct {
	repo       Repository
	pusher     crm.Pusher
	guard      IdempotencyGuard
	retries    crm.RetryStore
	logs       integrations.Store
	recorder   ConversionRecorder
	metrics    *metrics.IntakeMetrics
	logger     *logging.Logger
	retryDelay time.Duration
	now        func() time.Time
}

func NewService(repo Repository, pusher crm.Pusher, logger *logging.Logger) *Service {
	if repo == nil {
		panic("leads: repository required")
	}
	if pusher == nil {
		pusher = crm.Disabled{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:       repo,
		pusher:     pusher,
		logs:       integrations.Discard{},
		recorder:   conversions.NewRecorder("", nil, nil, nil, logger),
		logger:     logger.Component("leads"),
		retryDelay: time.Minute,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithIdempotencyGuard(g IdempotencyGuard) *Service {
	s.guard = g
	return s
}

func (s *Service) WithRetryStore(store crm.RetryStore) *Service {
	s.retries = store
	return s
}

func (s *Service) WithIntegrationLog(store integrations.Store) *Service {
	if store != nil {
		s.logs = store
	}
	return s
}

func (s *Service) WithConversions(r ConversionRecorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

func (s *Service) WithMetrics(m *metrics.IntakeMetrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) WithRetryDelay(d time.Duration) *Service {
	if d > 0 {
		s.retryDelay = d
	}
	return s
}

// Submit validates and stores a lead. CRM failures are queued for retry and
// never fail the submission.
func (s *Service) Submit(ctx context.Context, req *CreateLeadRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := req.IdempotencyKey
	owned := false
	if key != "" && s.guard != nil {
		state, leadID, err := s.guard.Claim(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("idempotency guard unavailable, relying on database", "error", err)
		case state == ClaimInFlight:
			s.metrics.ObserveLead(req.Source, "in_flight")
			return nil, ErrSubmissionInFlight
		case state == ClaimCompleted:
			lead, err := s.repo.GetByID(ctx, leadID)
			if err == nil {
				return s.duplicate(lead), nil
			}
			if !errors.Is(err, ErrLeadNotFound) {
				return nil, fmt.Errorf("leads: load duplicate: %w", err)
			}
			owned = true
		default:
			owned = true
		}
	}

	lead := s.newLead(req)
	stored, created, err := s.repo.Create(ctx, lead)
	if err != nil {
		if owned {
			s.release(ctx, key)
		}
		s.logUnhandled(ctx, lead.CorrelationID, err)
		s.metrics.ObserveLead(lead.Source, "error")
		return nil, fmt.Errorf("leads: persist: %w", err)
	}
	if owned {
		defer s.complete(ctx, key, stored.ID)
	}
	if !created {
		return s.duplicate(stored), nil
	}

	s.logger.Info("lead saved", "lead_id", stored.ID, "source", stored.Source, "score", stored.Score, "correlation_id", stored.CorrelationID)
	s.pushToCRM(ctx, stored)

	conv := s.recorder.Record(ctx, conversions.Context{
		Source:        stored.Source,
		LeadID:        stored.ID,
		CRMLeadID:     stored.CRMLeadID,
		CorrelationID: stored.CorrelationID,
	})
	s.metrics.ObserveLead(stored.Source, "created")
	return &Result{Lead: stored, Conversion: conv}, nil
}

func (s *Service) newLead(req *CreateLeadRequest) *Lead {
	id := uuid.New()
	score := Score(req)
	return &Lead{
		ID:             id.String(),
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Message:        req.Message,
		Source:         req.Source,
		LeadSource:     req.LeadSource,
		Campaign:       req.Campaign,
		Raw:            req.Raw,
		Status:         StatusPending,
		CRMStatus:      StatusPending,
		Score:          score,
		Qualification:  Qualify(score),
		Priority:       Prioritize(req),
		IdempotencyKey: req.IdempotencyKey,
		CorrelationID:  "lead_" + uuid.NewString(),
	}
}

func (s *Service) duplicate(lead *Lead) *Result {
	s.logger.Info("duplicate lead submission", "lead_id", lead.ID)
	s.metrics.ObserveLead(lead.Source, "duplicate")
	return &Result{Lead: lead, Duplicate: true, Conversion: s.recorder.Lookup(lead.Source)}
}

func (s *Service) pushToCRM(ctx context.Context, lead *Lead) {
	crmLeadID, err := s.pusher.CreateLead(ctx, toCRMPayload(lead))
	s.metrics.ObserveCRMPush("intake", err == nil)
	if err == nil {
		if err := s.repo.MarkPushed(ctx, lead.ID, crmLeadID); err != nil {
			s.logger.Error("failed to mark lead pushed", "error", err, "lead_id", lead.ID)
		}
		lead.Status = StatusPushed
		lead.CRMStatus = StatusPushed
		lead.CRMLeadID = crmLeadID
		s.logger.Info("lead pushed to crm", "lead_id", lead.ID, "crm_lead_id", crmLeadID)
		return
	}

	s.logger.Warn("crm push failed, queuing for retry", "error", err, "lead_id", lead.ID)
	if err := s.repo.MarkFailed(ctx, lead.ID); err != nil {
		s.logger.Error("failed to mark lead failed", "error", err, "lead_id", lead.ID)
	}
	lead.Status = StatusFailed
	lead.CRMStatus = StatusFailed

	if s.retries != nil {
		if _, qerr := s.retries.Enqueue(ctx, lead.ID, s.now().Add(s.retryDelay), err.Error()); qerr != nil {
			s.logger.Error("failed to enqueue crm retry", "error", qerr, "lead_id", lead.ID)
		}
	}
	entry := integrations.Entry{
		Type:          "lead_submit",
		Provider:      integrations.ProviderCRM,
		Level:         integrations.LevelError,
		Message:       fmt.Sprintf("CRM submission failed for lead %s; queued for retry", lead.ID),
		Error:         err.Error(),
		CorrelationID: lead.CorrelationID,
	}
	if lerr := s.logs.Append(ctx, entry); lerr != nil {
		s.logger.Warn("failed to write integration log", "error", lerr)
	}
}

func (s *Service) logUnhandled(ctx context.Context, correlationID string, cause error) {
	entry := integrations.Entry{
		Type:          "lead_submit",
		Provider:      integrations.ProviderAPI,
		Level:         integrations.LevelError,
		Message:       "Unhandled error in lead intake",
		Error:         cause.Error(),
		CorrelationID: correlationID,
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to write integration log", "error", err)
	}
}

func (s *Service) complete(ctx context.Context, key, leadID string) {
	if err := s.guard.Complete(ctx, key, leadID); err != nil {
		s.logger.Warn("failed to complete idempotency claim", "error", err, "lead_id", leadID)
	}
}

func (s *Service) release(ctx context.Context, key string) {
	if err := s.guard.Release(ctx, key); err != nil {
		s.logger.Warn("failed to release idempotency claim", "error", err)
	}
}

// List returns every lead newest first.
func (s *Service) List(ctx context.Context) ([]*Lead, error) {
	return s.repo.List(ctx)
}

// UpdateStatus applies an admin status change.
func (s *Service) UpdateStatus(ctx context.Context, req *UpdateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.UpdateStatus(ctx, req.ID, req.Status)
}

// Delete permanently removes a lead.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func toCRMPayload(l *Lead) crm.LeadPayload {
	return crm.LeadPayload{
		LeadID:        l.ID,
		Name:          l.Name,
		Email:         l.Email,
		Phone:         l.Phone,
		Message:       l.Message,
		Source:        l.Source,
		Campaign:      l.Campaign,
		LeadSource:    l.LeadSource,
		CorrelationID: l.CorrelationID,
	}
}

// CRMSource lets the CRM retry worker load and update leads.
type CRMSource struct {
	repo Repository
}

func NewCRMSource(repo Repository) *CRMSource {
	return &CRMSource{repo: repo}
}

func (s *CRMSource) CRMPayload(ctx context.Context, leadID string) (crm.LeadPayload, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if errors.Is(err, ErrLeadNotFound) {
		return crm.LeadPayload{}, fmt.Errorf("%w: %s", crm.ErrLeadMissing, leadID)
	}
	if err != nil {
		return crm.LeadPayload{}, err
	}
	return toCRMPayload(lead), nil
}

func (s *CRMSource) MarkPushed(ctx context.Context, leadID, crmLeadID string) error {
	return s.repo.MarkPushed(ctx, leadID, crmLeadID)
}
