package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/leadez/outreach/internal/domain"
	"github.com/leadez/outreach/internal/service/outreach"
)

// LeadRepo implements outreach.LeadRepository against PostgreSQL.
type LeadRepo struct{ db *sql.DB }

// NewLeadRepo creates a Postgres-backed lead repository.
func NewLeadRepo(db *sql.DB) *LeadRepo { return &LeadRepo{db: db} }

const leadColumns = `id, full_name, company_name, role, industry,
	       COALESCE(website,''), email, COALESCE(linkedin_url,''), COALESCE(country,''),
	       status, COALESCE(company_size,''), COALESCE(persona_tag,''),
	       COALESCE(pain_points,''), COALESCE(buying_triggers,''),
	       COALESCE(confidence_score,0), created_at, updated_at`

func scanLead(row interface{ Scan(...interface{}) error }, l *domain.Lead) error {
	return row.Scan(
		&l.ID, &l.FullName, &l.CompanyName, &l.Role, &l.Industry,
		&l.Website, &l.Email, &l.LinkedInURL, &l.Country,
		&l.Status, &l.CompanySize, &l.PersonaTag,
		&l.PainPoints, &l.BuyingTriggers,
		&l.ConfidenceScore, &l.CreatedAt, &l.UpdatedAt,
	)
}

func (r *LeadRepo) Get(ctx context.Context, id string) (*domain.Lead, error) {
	l := &domain.Lead{}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1
	`, id)
	err := scanLead(row, l)
	if err == sql.ErrNoRows {
		return nil, outreach.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

func (r *LeadRepo) List(ctx context.Context, f outreach.ListFilter) ([]domain.Lead, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	countQ := `SELECT COUNT(*) FROM leads`
	args := []interface{}{}
	if f.Status != "" {
		countQ += ` WHERE status = $1`
		args = append(args, f.Status)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	q := `SELECT ` + leadColumns + ` FROM leads`
	qArgs := []interface{}{}
	idx := 1
	if f.Status != "" {
		q += fmt.Sprintf(" WHERE status = $%d", idx)
		qArgs = append(qArgs, f.Status)
		idx++
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	qArgs = append(qArgs, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, qArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		var l domain.Lead
		if err := scanLead(rows, &l); err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (r *LeadRepo) Create(ctx context.Context, l *domain.Lead) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Status == "" {
		l.Status = domain.LeadNew
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leads
			(id, full_name, company_name, role, industry, website, email,
			 linkedin_url, country, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`, l.ID, l.FullName, l.CompanyName, l.Role, l.Industry, l.Website,
		l.Email, l.LinkedInURL, l.Country, l.Status)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return outreach.ErrDuplicateEmail
		}
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

func (r *LeadRepo) ListByStatus(ctx context.Context, status domain.LeadStatus, limit int) ([]domain.Lead, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list leads by status: %w", err)
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		var l domain.Lead
		if err := scanLead(rows, &l); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *LeadRepo) UpdateStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE leads SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

func (r *LeadRepo) UpdateEnrichment(ctx context.Context, id string, e outreach.Enrichment) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE leads SET
			company_size = $1, persona_tag = $2, pain_points = $3,
			buying_triggers = $4, confidence_score = $5,
			status = $6, updated_at = NOW()
		WHERE id = $7
	`, e.CompanySize, e.PersonaTag, e.PainPoints, e.BuyingTriggers,
		e.ConfidenceScore, domain.LeadEnriched, id)
	if err != nil {
		return fmt.Errorf("update enrichment: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

func (r *LeadRepo) CountByStatus(ctx context.Context) (map[domain.LeadStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM leads GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count leads by status: %w", err)
	}
	defer rows.Close()

	out := map[domain.LeadStatus]int{}
	for rows.Next() {
		var s domain.LeadStatus
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("scan lead count: %w", err)
		}
		out[s] = n
	}
	return out, rows.Err()
}
