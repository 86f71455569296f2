package sqlite

import (
	"context"

	"github.com/leadez/outreach/internal/domain"
	"github.com/leadez/outreach/internal/service/outreach"
)

// The service repositories both declare UpdateStatus with different
// signatures, so Store cannot satisfy them directly. These views adapt it.

// LeadRepo is the outreach.LeadRepository view of a Store.
type LeadRepo struct{ s *Store }

// Leads returns the lead repository view.
func (s *Store) Leads() *LeadRepo { return &LeadRepo{s: s} }

func (r *LeadRepo) Get(ctx context.Context, id string) (*domain.Lead, error) {
	return r.s.GetLead(ctx, id)
}

func (r *LeadRepo) List(ctx context.Context, f outreach.ListFilter) ([]domain.Lead, int, error) {
	return r.s.ListLeads(ctx, f)
}

func (r *LeadRepo) Create(ctx context.Context, l *domain.Lead) error {
	return r.s.CreateLead(ctx, l)
}

func (r *LeadRepo) ListByStatus(ctx context.Context, status domain.LeadStatus, limit int) ([]domain.Lead, error) {
	return r.s.ListLeadsByStatus(ctx, status, limit)
}

func (r *LeadRepo) UpdateStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	return r.s.UpdateLeadStatus(ctx, id, status)
}

func (r *LeadRepo) UpdateEnrichment(ctx context.Context, id string, e outreach.Enrichment) error {
	return r.s.UpdateLeadEnrichment(ctx, id, e)
}

func (r *LeadRepo) CountByStatus(ctx context.Context) (map[domain.LeadStatus]int, error) {
	return r.s.CountLeadsByStatus(ctx)
}

// MessageRepo is the outreach.MessageRepository view of a Store.
type MessageRepo struct{ s *Store }

// Messages returns the message repository view.
func (s *Store) Messages() *MessageRepo { return &MessageRepo{s: s} }

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	return r.s.CreateMessage(ctx, m)
}

func (r *MessageRepo) ListByStatus(ctx context.Context, status domain.MessageStatus, limit int) ([]domain.Message, error) {
	return r.s.ListMessagesByStatus(ctx, status, limit)
}

func (r *MessageRepo) UpdateStatus(ctx context.Context, id string, status domain.MessageStatus) error {
	return r.s.UpdateMessageStatus(ctx, id, status)
}

func (r *MessageRepo) CountByStatus(ctx context.Context) (map[domain.MessageStatus]int, error) {
	return r.s.CountMessagesByStatus(ctx)
}

// RunRepo is the outreach.RunRepository view of a Store.
type RunRepo struct{ s *Store }

// Runs returns the run repository view.
func (s *Store) Runs() *RunRepo { return &RunRepo{s: s} }

func (r *RunRepo) Record(ctx context.Context, run *domain.PipelineRun) error {
	return r.s.RecordRun(ctx, run)
}
