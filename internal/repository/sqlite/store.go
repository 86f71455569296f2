// Package sqlite implements the outreach repositories on an embedded
// SQLite database. It is the zero-dependency local mode: a single file (or
// :memory:) holds leads, messages and run history, and the schema is
// applied on open.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/leadez/outreach/internal/domain"
	"github.com/leadez/outreach/internal/service/outreach"
)

//go:embed schema.sql
var schema string

// Store implements the lead, message and run repositories plus the
// worker's message store over one SQLite handle.
type Store struct{ db *sql.DB }

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers; more connections just contend.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

const leadColumns = `id, full_name, company_name, role, industry,
	website, email, linkedin_url, country, status,
	company_size, persona_tag, pain_points, buying_triggers,
	confidence_score, created_at, updated_at`

func scanLead(row interface{ Scan(...interface{}) error }, l *domain.Lead) error {
	return row.Scan(
		&l.ID, &l.FullName, &l.CompanyName, &l.Role, &l.Industry,
		&l.Website, &l.Email, &l.LinkedInURL, &l.Country, &l.Status,
		&l.CompanySize, &l.PersonaTag, &l.PainPoints, &l.BuyingTriggers,
		&l.ConfidenceScore, &l.CreatedAt, &l.UpdatedAt,
	)
}

func (s *Store) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	l := &domain.Lead{}
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	err := scanLead(row, l)
	if err == sql.ErrNoRows {
		return nil, outreach.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

func (s *Store) ListLeads(ctx context.Context, f outreach.ListFilter) ([]domain.Lead, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	countQ := `SELECT COUNT(*) FROM leads`
	var countArgs []interface{}
	if f.Status != "" {
		countQ += ` WHERE status = ?`
		countArgs = append(countArgs, f.Status)
	}
	var total int
	if err := s.db.QueryRowContext(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	q := `SELECT ` + leadColumns + ` FROM leads`
	var args []interface{}
	if f.Status != "" {
		q += ` WHERE status = ?`
		args = append(args, f.Status)
	}
	q += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
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

func (s *Store) CreateLead(ctx context.Context, l *domain.Lead) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Status == "" {
		l.Status = domain.LeadNew
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads
			(id, full_name, company_name, role, industry, website, email,
			 linkedin_url, country, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.FullName, l.CompanyName, l.Role, l.Industry, l.Website,
		l.Email, l.LinkedInURL, l.Country, l.Status, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: leads.email") {
			return outreach.ErrDuplicateEmail
		}
		return fmt.Errorf("create lead: %w", err)
	}
	l.CreatedAt, l.UpdatedAt = now, now
	return nil
}

func (s *Store) ListLeadsByStatus(ctx context.Context, status domain.LeadStatus, limit int) ([]domain.Lead, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE status = ? ORDER BY created_at ASC LIMIT ?
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

func (s *Store) UpdateLeadStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateLeadEnrichment(ctx context.Context, id string, e outreach.Enrichment) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET
			company_size = ?, persona_tag = ?, pain_points = ?,
			buying_triggers = ?, confidence_score = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, e.CompanySize, e.PersonaTag, e.PainPoints, e.BuyingTriggers,
		e.ConfidenceScore, domain.LeadEnriched, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update enrichment: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

func (s *Store) CountLeadsByStatus(ctx context.Context) (map[domain.LeadStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count leads by status: %w", err)
	}
	defer rows.Close()

	out := map[domain.LeadStatus]int{}
	for rows.Next() {
		var st domain.LeadStatus
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scan lead count: %w", err)
		}
		out[st] = n
	}
	return out, rows.Err()
}

func (s *Store) CreateMessage(ctx context.Context, m *domain.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = domain.MessagePending
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages
			(id, lead_id, channel, variant, content, status, retry_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)
	`, m.ID, m.LeadID, m.Channel, m.Variant, m.Content, m.Status, now)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	m.CreatedAt = now
	return nil
}

func (s *Store) ListMessagesByStatus(ctx context.Context, status domain.MessageStatus, limit int) ([]domain.Message, error) {
	q := `
		SELECT id, lead_id, channel, variant, content, status,
		       sent_at, error_message, retry_count, created_at
		FROM messages WHERE status = ? ORDER BY created_at ASC`
	args := []interface{}{status}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages by status: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID, &m.LeadID, &m.Channel, &m.Variant, &m.Content, &m.Status,
			&m.SentAt, &m.ErrorMessage, &m.RetryCount, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) UpdateMessageStatus(ctx context.Context, id string, status domain.MessageStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

func (s *Store) CountMessagesByStatus(ctx context.Context) (map[domain.MessageStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM messages GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count messages by status: %w", err)
	}
	defer rows.Close()

	out := map[domain.MessageStatus]int{}
	for rows.Next() {
		var st domain.MessageStatus
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scan message count: %w", err)
		}
		out[st] = n
	}
	return out, rows.Err()
}

// FetchEligible joins messages with their leads, oldest message first.
// channel == "" matches all channels.
func (s *Store) FetchEligible(ctx context.Context, status domain.MessageStatus, channel domain.Channel, limit int) ([]domain.QueueEntry, error) {
	q := `
		SELECT m.id, m.lead_id, m.channel, m.variant, m.content, m.status, m.retry_count,
		       l.full_name, l.email, l.company_name, l.role
		FROM messages m
		JOIN leads l ON l.id = m.lead_id
		WHERE m.status = ?`
	args := []interface{}{status}
	if channel != "" {
		q += ` AND m.channel = ?`
		args = append(args, channel)
	}
	q += ` ORDER BY m.created_at ASC, m.id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch eligible messages: %w", err)
	}
	defer rows.Close()

	var out []domain.QueueEntry
	for rows.Next() {
		var e domain.QueueEntry
		if err := rows.Scan(
			&e.MessageID, &e.LeadID, &e.Channel, &e.Variant, &e.Content, &e.Status, &e.RetryCount,
			&e.LeadName, &e.LeadEmail, &e.Company, &e.Role,
		); err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) MarkMessageSent(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET status = ?, sent_at = ?, error_message = '' WHERE id = ?
	`, domain.MessageSent, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("mark message sent: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

func (s *Store) MarkMessageFailed(ctx context.Context, id string, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages
		SET status = ?, error_message = ?, retry_count = retry_count + 1
		WHERE id = ?
	`, domain.MessageFailed, errMsg, id)
	if err != nil {
		return fmt.Errorf("mark message failed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

func (s *Store) RecordRun(ctx context.Context, run *domain.PipelineRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs
			(id, status, dry_run, messages_sent, messages_failed, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Status, run.DryRun, run.MessagesSent, run.MessagesFailed,
		run.StartedAt.UTC(), run.CompletedAt)
	if err != nil {
		return fmt.Errorf("record pipeline run: %w", err)
	}
	return nil
}
