package outreach

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/leadez/outreach/internal/domain"
	"github.com/leadez/outreach/internal/pkg/logger"
)

// Enricher computes enrichment fields for a lead. Implementations are
// rule-based and must not fail; a low-signal lead just gets a low score.
type Enricher interface {
	Enrich(l domain.Lead) Enrichment
}

// Composer produces the outreach message variants for an enriched lead.
type Composer interface {
	Compose(l domain.Lead) ([]domain.Message, error)
}

// Options configures a Service.
type Options struct {
	// MinConfidenceScore gates message generation; leads below it stay
	// ENRICHED.
	MinConfidenceScore int
	// MaxRetries is the retry budget consulted by RetryFailed.
	MaxRetries int
}

// Service implements outreach pipeline business logic between lead import
// and message review. All public methods are safe for concurrent use if the
// underlying repositories are.
type Service struct {
	leads    LeadRepository
	messages MessageRepository
	runs     RunRepository
	enricher Enricher
	composer Composer
	opts     Options

	// pick selects the approved variant among n candidates during review.
	// Swapped out in tests for determinism.
	pick func(n int) int
}

// NewService creates an outreach service backed by the given repositories.
func NewService(leads LeadRepository, messages MessageRepository, runs RunRepository, enricher Enricher, composer Composer, opts Options) *Service {
	if opts.MinConfidenceScore <= 0 {
		opts.MinConfidenceScore = 60
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 2
	}
	return &Service{
		leads:    leads,
		messages: messages,
		runs:     runs,
		enricher: enricher,
		composer: composer,
		opts:     opts,
		pick:     rand.Intn,
	}
}

// Lead returns a single lead.
func (s *Service) Lead(ctx context.Context, id string) (*domain.Lead, error) {
	return s.leads.Get(ctx, id)
}

// Leads returns leads matching the filter plus the unpaginated total.
func (s *Service) Leads(ctx context.Context, f ListFilter) ([]domain.Lead, int, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	return s.leads.List(ctx, f)
}

// ImportLeads persists a batch of generated leads and returns the number
// saved. Duplicate emails are skipped, not treated as failures.
func (s *Service) ImportLeads(ctx context.Context, leads []domain.Lead) (int, error) {
	saved := 0
	for i := range leads {
		err := s.leads.Create(ctx, &leads[i])
		if errors.Is(err, ErrDuplicateEmail) {
			logger.Debug("skipping duplicate lead", "email", leads[i].Email)
			continue
		}
		if err != nil {
			return saved, fmt.Errorf("import lead %s: %w", leads[i].ID, err)
		}
		saved++
	}
	logger.Info("imported leads", "saved", saved, "total", len(leads))
	return saved, nil
}

// EnrichLeads enriches up to limit NEW leads and advances them to ENRICHED.
// Returns the number enriched.
func (s *Service) EnrichLeads(ctx context.Context, limit int) (int, error) {
	pending, err := s.leads.ListByStatus(ctx, domain.LeadNew, limit)
	if err != nil {
		return 0, fmt.Errorf("list new leads: %w", err)
	}

	enriched := 0
	for _, l := range pending {
		e := s.enricher.Enrich(l)
		if err := s.leads.UpdateEnrichment(ctx, l.ID, e); err != nil {
			return enriched, fmt.Errorf("enrich lead %s: %w", l.ID, err)
		}
		enriched++
	}
	logger.Info("enriched leads", "count", enriched)
	return enriched, nil
}

// GenerateMessages composes message variants for up to limit ENRICHED leads
// whose confidence score clears the configured threshold, then advances each
// lead to MESSAGED. Returns leads processed and messages created.
func (s *Service) GenerateMessages(ctx context.Context, limit int) (int, int, error) {
	eligible, err := s.leads.ListByStatus(ctx, domain.LeadEnriched, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("list enriched leads: %w", err)
	}

	processed, created := 0, 0
	for _, l := range eligible {
		if l.ConfidenceScore < s.opts.MinConfidenceScore {
			logger.Debug("lead below confidence threshold",
				"lead_id", l.ID, "score", l.ConfidenceScore, "threshold", s.opts.MinConfidenceScore)
			continue
		}

		msgs, err := s.composer.Compose(l)
		if err != nil {
			return processed, created, fmt.Errorf("compose messages for %s: %w", l.ID, err)
		}
		for i := range msgs {
			if err := s.messages.Create(ctx, &msgs[i]); err != nil {
				return processed, created, fmt.Errorf("create message: %w", err)
			}
			created++
		}
		if err := s.leads.UpdateStatus(ctx, l.ID, domain.LeadMessaged); err != nil {
			return processed, created, fmt.Errorf("advance lead %s: %w", l.ID, err)
		}
		processed++
	}
	logger.Info("generated messages", "leads", processed, "messages", created)
	return processed, created, nil
}

// ReviewResult summarizes one review pass.
type ReviewResult struct {
	Reviewed int `json:"reviewed"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// ReviewMessages reviews all PENDING messages. Variants sharing a
// (lead, channel) pair are reviewed together: exactly one becomes APPROVED
// and its siblings become REJECTED.
func (s *Service) ReviewMessages(ctx context.Context) (ReviewResult, error) {
	var res ReviewResult

	pending, err := s.messages.ListByStatus(ctx, domain.MessagePending, 0)
	if err != nil {
		return res, fmt.Errorf("list pending messages: %w", err)
	}

	type groupKey struct {
		leadID  string
		channel domain.Channel
	}
	var order []groupKey
	groups := make(map[groupKey][]domain.Message)
	for _, m := range pending {
		k := groupKey{m.LeadID, m.Channel}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], m)
	}

	for _, k := range order {
		variants := groups[k]
		winner := variants[s.pick(len(variants))].ID

		for _, m := range variants {
			status := domain.MessageRejected
			if m.ID == winner {
				status = domain.MessageApproved
			}
			if err := s.messages.UpdateStatus(ctx, m.ID, status); err != nil {
				return res, fmt.Errorf("review message %s: %w", m.ID, err)
			}
			if status == domain.MessageApproved {
				res.Approved++
			} else {
				res.Rejected++
			}
		}
	}
	res.Reviewed = len(pending)
	logger.Info("reviewed messages",
		"reviewed", res.Reviewed, "approved", res.Approved, "rejected", res.Rejected)
	return res, nil
}

// RetryFailed returns FAILED messages with remaining retry budget to
// APPROVED so the next dispatch run picks them up. The retry count is
// preserved; messages at or over the budget are left FAILED for escalation.
func (s *Service) RetryFailed(ctx context.Context) (int, error) {
	failed, err := s.messages.ListByStatus(ctx, domain.MessageFailed, 0)
	if err != nil {
		return 0, fmt.Errorf("list failed messages: %w", err)
	}

	retried := 0
	for _, m := range failed {
		if m.RetryCount >= s.opts.MaxRetries {
			continue
		}
		if err := s.messages.UpdateStatus(ctx, m.ID, domain.MessageApproved); err != nil {
			return retried, fmt.Errorf("requeue message %s: %w", m.ID, err)
		}
		retried++
	}
	logger.Info("requeued failed messages", "retried", retried, "examined", len(failed))
	return retried, nil
}

// PipelineStats aggregates the current state of the pipeline.
type PipelineStats struct {
	Leads    map[domain.LeadStatus]int    `json:"leads"`
	Messages map[domain.MessageStatus]int `json:"messages"`
}

// Stats returns lead and message counts grouped by status.
func (s *Service) Stats(ctx context.Context) (PipelineStats, error) {
	leads, err := s.leads.CountByStatus(ctx)
	if err != nil {
		return PipelineStats{}, fmt.Errorf("count leads: %w", err)
	}
	msgs, err := s.messages.CountByStatus(ctx)
	if err != nil {
		return PipelineStats{}, fmt.Errorf("count messages: %w", err)
	}
	return PipelineStats{Leads: leads, Messages: msgs}, nil
}

// RecordRun persists the aggregate outcome of a dispatch run.
func (s *Service) RecordRun(ctx context.Context, dryRun bool, sent, failed int, started time.Time) error {
	now := time.Now()
	run := &domain.PipelineRun{
		ID:             uuid.New().String(),
		Status:         domain.RunCompleted,
		DryRun:         dryRun,
		MessagesSent:   sent,
		MessagesFailed: failed,
		StartedAt:      started,
		CompletedAt:    &now,
	}
	return s.runs.Record(ctx, run)
}
