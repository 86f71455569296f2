package outreach

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadez/outreach/internal/domain"
)

type memLeadRepo struct {
	mu    sync.Mutex
	leads []*domain.Lead
}

func (r *memLeadRepo) find(id string) *domain.Lead {
	for _, l := range r.leads {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (r *memLeadRepo) Get(_ context.Context, id string) (*domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l := r.find(id); l != nil {
		cp := *l
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (r *memLeadRepo) List(_ context.Context, f ListFilter) ([]domain.Lead, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []domain.Lead
	for _, l := range r.leads {
		if f.Status == "" || l.Status == f.Status {
			all = append(all, *l)
		}
	}
	total := len(all)
	if f.Offset < len(all) {
		all = all[f.Offset:]
	} else {
		all = nil
	}
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (r *memLeadRepo) Create(_ context.Context, l *domain.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.leads {
		if existing.Email == l.Email {
			return ErrDuplicateEmail
		}
	}
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Status == "" {
		l.Status = domain.LeadNew
	}
	cp := *l
	r.leads = append(r.leads, &cp)
	return nil
}

func (r *memLeadRepo) ListByStatus(_ context.Context, status domain.LeadStatus, limit int) ([]domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Lead
	for _, l := range r.leads {
		if l.Status == status {
			out = append(out, *l)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memLeadRepo) UpdateStatus(_ context.Context, id string, status domain.LeadStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.find(id)
	if l == nil {
		return ErrNotFound
	}
	l.Status = status
	return nil
}

func (r *memLeadRepo) UpdateEnrichment(_ context.Context, id string, e Enrichment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.find(id)
	if l == nil {
		return ErrNotFound
	}
	l.CompanySize = e.CompanySize
	l.PersonaTag = e.PersonaTag
	l.PainPoints = e.PainPoints
	l.BuyingTriggers = e.BuyingTriggers
	l.ConfidenceScore = e.ConfidenceScore
	l.Status = domain.LeadEnriched
	return nil
}

func (r *memLeadRepo) CountByStatus(_ context.Context) (map[domain.LeadStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[domain.LeadStatus]int{}
	for _, l := range r.leads {
		out[l.Status]++
	}
	return out, nil
}

type memMessageRepo struct {
	mu   sync.Mutex
	msgs []*domain.Message
}

func (r *memMessageRepo) Create(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = domain.MessagePending
	}
	cp := *m
	r.msgs = append(r.msgs, &cp)
	return nil
}

func (r *memMessageRepo) ListByStatus(_ context.Context, status domain.MessageStatus, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.msgs {
		if m.Status == status {
			out = append(out, *m)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memMessageRepo) UpdateStatus(_ context.Context, id string, status domain.MessageStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if m.ID == id {
			m.Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (r *memMessageRepo) CountByStatus(_ context.Context) (map[domain.MessageStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[domain.MessageStatus]int{}
	for _, m := range r.msgs {
		out[m.Status]++
	}
	return out, nil
}

type memRunRepo struct {
	mu   sync.Mutex
	runs []*domain.PipelineRun
}

func (r *memRunRepo) Record(_ context.Context, run *domain.PipelineRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

type stubEnricher struct{ score int }

func (e stubEnricher) Enrich(domain.Lead) Enrichment {
	return Enrichment{
		CompanySize: "medium", PersonaTag: "Test Persona",
		PainPoints: `["p1","p2"]`, BuyingTriggers: `["t1"]`,
		ConfidenceScore: e.score,
	}
}

type stubComposer struct{ err error }

func (c stubComposer) Compose(l domain.Lead) ([]domain.Message, error) {
	if c.err != nil {
		return nil, c.err
	}
	return []domain.Message{
		{LeadID: l.ID, Channel: domain.ChannelEmail, Variant: "A", Content: "ea"},
		{LeadID: l.ID, Channel: domain.ChannelEmail, Variant: "B", Content: "eb"},
		{LeadID: l.ID, Channel: domain.ChannelLinkedIn, Variant: "A", Content: "la"},
		{LeadID: l.ID, Channel: domain.ChannelLinkedIn, Variant: "B", Content: "lb"},
	}, nil
}

func newTestService(enricher Enricher, composer Composer, opts Options) (*Service, *memLeadRepo, *memMessageRepo, *memRunRepo) {
	leads := &memLeadRepo{}
	msgs := &memMessageRepo{}
	runs := &memRunRepo{}
	svc := NewService(leads, msgs, runs, enricher, composer, opts)
	return svc, leads, msgs, runs
}

func seedLeads(t *testing.T, repo *memLeadRepo, n int, status domain.LeadStatus, score int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		l := &domain.Lead{
			FullName: "Lead", Email: uuid.New().String() + "@x.com",
			Status: status, ConfidenceScore: score,
		}
		require.NoError(t, repo.Create(context.Background(), l))
		ids = append(ids, l.ID)
	}
	return ids
}

func TestImportLeadsSkipsDuplicates(t *testing.T) {
	svc, leads, _, _ := newTestService(stubEnricher{70}, stubComposer{}, Options{})

	batch := []domain.Lead{
		{FullName: "A", Email: "a@x.com"},
		{FullName: "B", Email: "b@x.com"},
		{FullName: "A again", Email: "a@x.com"},
	}
	saved, err := svc.ImportLeads(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, saved)
	assert.Len(t, leads.leads, 2)
}

func TestEnrichLeadsAdvancesStatus(t *testing.T) {
	svc, leads, _, _ := newTestService(stubEnricher{75}, stubComposer{}, Options{})
	ids := seedLeads(t, leads, 3, domain.LeadNew, 0)

	n, err := svc.EnrichLeads(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, id := range ids {
		l, err := svc.Lead(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.LeadEnriched, l.Status)
		assert.Equal(t, 75, l.ConfidenceScore)
	}
}

func TestGenerateMessagesConfidenceGate(t *testing.T) {
	svc, leads, msgs, _ := newTestService(stubEnricher{0}, stubComposer{}, Options{MinConfidenceScore: 60})
	highIDs := seedLeads(t, leads, 2, domain.LeadEnriched, 80)
	lowIDs := seedLeads(t, leads, 1, domain.LeadEnriched, 40)

	processed, created, err := svc.GenerateMessages(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	assert.Equal(t, 8, created)
	assert.Len(t, msgs.msgs, 8)

	for _, id := range highIDs {
		l, _ := svc.Lead(context.Background(), id)
		assert.Equal(t, domain.LeadMessaged, l.Status)
	}
	// The gated lead stays ENRICHED.
	l, _ := svc.Lead(context.Background(), lowIDs[0])
	assert.Equal(t, domain.LeadEnriched, l.Status)
}

func TestGenerateMessagesComposeError(t *testing.T) {
	boom := errors.New("template failure")
	svc, leads, _, _ := newTestService(stubEnricher{0}, stubComposer{err: boom}, Options{})
	seedLeads(t, leads, 1, domain.LeadEnriched, 90)

	_, _, err := svc.GenerateMessages(context.Background(), 10)
	assert.ErrorIs(t, err, boom)
}

func TestReviewMessagesOneWinnerPerGroup(t *testing.T) {
	svc, leads, msgs, _ := newTestService(stubEnricher{0}, stubComposer{}, Options{})
	seedLeads(t, leads, 2, domain.LeadEnriched, 90)
	_, _, err := svc.GenerateMessages(context.Background(), 10)
	require.NoError(t, err)

	// Always approve the first variant of each group.
	svc.pick = func(int) int { return 0 }

	res, err := svc.ReviewMessages(context.Background())
	require.NoError(t, err)

	// 2 leads x 2 channels x 2 variants = 8 reviewed, 4 winners.
	assert.Equal(t, 8, res.Reviewed)
	assert.Equal(t, 4, res.Approved)
	assert.Equal(t, 4, res.Rejected)

	approvedPerGroup := map[string]int{}
	for _, m := range msgs.msgs {
		assert.NotEqual(t, domain.MessagePending, m.Status)
		if m.Status == domain.MessageApproved {
			approvedPerGroup[m.LeadID+"/"+string(m.Channel)]++
			assert.Equal(t, "A", m.Variant)
		}
	}
	for k, n := range approvedPerGroup {
		assert.Equal(t, 1, n, k)
	}
}

func TestReviewMessagesEmptyPending(t *testing.T) {
	svc, _, _, _ := newTestService(stubEnricher{0}, stubComposer{}, Options{})
	res, err := svc.ReviewMessages(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Reviewed)
}

func TestRetryFailedRespectsBudget(t *testing.T) {
	svc, _, msgs, _ := newTestService(stubEnricher{0}, stubComposer{}, Options{MaxRetries: 2})
	ctx := context.Background()

	fresh := &domain.Message{LeadID: "l1", Channel: domain.ChannelEmail, Variant: "A",
		Content: "x", Status: domain.MessageFailed, RetryCount: 1}
	exhausted := &domain.Message{LeadID: "l2", Channel: domain.ChannelEmail, Variant: "A",
		Content: "y", Status: domain.MessageFailed, RetryCount: 2}
	require.NoError(t, msgs.Create(ctx, fresh))
	require.NoError(t, msgs.Create(ctx, exhausted))

	retried, err := svc.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, retried)

	approved, _ := msgs.ListByStatus(ctx, domain.MessageApproved, 0)
	require.Len(t, approved, 1)
	assert.Equal(t, fresh.ID, approved[0].ID)
	// Retry count is preserved on requeue.
	assert.Equal(t, 1, approved[0].RetryCount)

	failed, _ := msgs.ListByStatus(ctx, domain.MessageFailed, 0)
	require.Len(t, failed, 1)
	assert.Equal(t, exhausted.ID, failed[0].ID)
}

func TestStats(t *testing.T) {
	svc, leads, msgs, _ := newTestService(stubEnricher{0}, stubComposer{}, Options{})
	seedLeads(t, leads, 2, domain.LeadNew, 0)
	seedLeads(t, leads, 1, domain.LeadSent, 0)
	require.NoError(t, msgs.Create(context.Background(), &domain.Message{
		LeadID: "l", Channel: domain.ChannelEmail, Variant: "A", Content: "x",
		Status: domain.MessageApproved,
	}))

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Leads[domain.LeadNew])
	assert.Equal(t, 1, stats.Leads[domain.LeadSent])
	assert.Equal(t, 1, stats.Messages[domain.MessageApproved])
}

func TestRecordRun(t *testing.T) {
	svc, _, _, runs := newTestService(stubEnricher{0}, stubComposer{}, Options{})

	started := time.Now().Add(-time.Minute)
	require.NoError(t, svc.RecordRun(context.Background(), true, 5, 1, started))

	require.Len(t, runs.runs, 1)
	run := runs.runs[0]
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.True(t, run.DryRun)
	assert.Equal(t, 5, run.MessagesSent)
	assert.Equal(t, 1, run.MessagesFailed)
	require.NotNil(t, run.CompletedAt)
}
