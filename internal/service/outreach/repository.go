package outreach

import (
	"context"

	"github.com/leadez/outreach/internal/domain"
)

// LeadRepository defines the data access contract for leads.
// Implementations must be safe for concurrent use.
type LeadRepository interface {
	// Get returns a single lead. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Lead, error)

	// List returns leads matching the filter plus the unpaginated total.
	List(ctx context.Context, filter ListFilter) ([]domain.Lead, int, error)

	// Create inserts a new lead. Returns ErrDuplicateEmail when the email
	// is already present.
	Create(ctx context.Context, l *domain.Lead) error

	// ListByStatus returns up to limit leads in the given status, oldest
	// first.
	ListByStatus(ctx context.Context, status domain.LeadStatus, limit int) ([]domain.Lead, error)

	// UpdateStatus transitions a lead's status.
	UpdateStatus(ctx context.Context, id string, status domain.LeadStatus) error

	// UpdateEnrichment applies enrichment fields and advances the lead to
	// ENRICHED.
	UpdateEnrichment(ctx context.Context, id string, e Enrichment) error

	// CountByStatus returns lead counts keyed by status.
	CountByStatus(ctx context.Context) (map[domain.LeadStatus]int, error)
}

// MessageRepository defines the data access contract for messages.
type MessageRepository interface {
	// Create inserts a new message in PENDING status.
	Create(ctx context.Context, m *domain.Message) error

	// ListByStatus returns up to limit messages in the given status,
	// oldest first. limit <= 0 means no limit.
	ListByStatus(ctx context.Context, status domain.MessageStatus, limit int) ([]domain.Message, error)

	// UpdateStatus sets a message's status without touching retry
	// bookkeeping. Used by review and retry transitions.
	UpdateStatus(ctx context.Context, id string, status domain.MessageStatus) error

	// CountByStatus returns message counts keyed by status.
	CountByStatus(ctx context.Context) (map[domain.MessageStatus]int, error)
}

// RunRepository persists pipeline run records.
type RunRepository interface {
	Record(ctx context.Context, r *domain.PipelineRun) error
}

// ListFilter controls pagination and filtering for lead lists.
type ListFilter struct {
	Status domain.LeadStatus
	Limit  int
	Offset int
}

// Enrichment holds the fields written back by lead enrichment.
type Enrichment struct {
	CompanySize     string
	PersonaTag      string
	PainPoints      string // JSON array
	BuyingTriggers  string // JSON array
	ConfidenceScore int
}
