package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadez/outreach/internal/domain"
	"github.com/leadez/outreach/internal/service/outreach"
)

// MessageRepo implements outreach.MessageRepository and the worker's
// message store against PostgreSQL.
type MessageRepo struct{ db *sql.DB }

// NewMessageRepo creates a Postgres-backed message repository.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = domain.MessagePending
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages
			(id, lead_id, channel, variant, content, status, retry_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, NOW())
	`, m.ID, m.LeadID, m.Channel, m.Variant, m.Content, m.Status)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (r *MessageRepo) ListByStatus(ctx context.Context, status domain.MessageStatus, limit int) ([]domain.Message, error) {
	q := `
		SELECT id, lead_id, channel, variant, content, status,
		       sent_at, COALESCE(error_message,''), retry_count, created_at
		FROM messages
		WHERE status = $1
		ORDER BY created_at ASC`
	args := []interface{}{status}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
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

func (r *MessageRepo) UpdateStatus(ctx context.Context, id string, status domain.MessageStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET status = $1 WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

func (r *MessageRepo) CountByStatus(ctx context.Context) (map[domain.MessageStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM messages GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count messages by status: %w", err)
	}
	defer rows.Close()

	out := map[domain.MessageStatus]int{}
	for rows.Next() {
		var s domain.MessageStatus
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("scan message count: %w", err)
		}
		out[s] = n
	}
	return out, rows.Err()
}

// FetchEligible joins messages with their leads and returns dispatchable
// queue entries, oldest message first. channel == "" matches all channels.
func (r *MessageRepo) FetchEligible(ctx context.Context, status domain.MessageStatus, channel domain.Channel, limit int) ([]domain.QueueEntry, error) {
	q := `
		SELECT m.id, m.lead_id, m.channel, m.variant, m.content, m.status, m.retry_count,
		       l.full_name, l.email, l.company_name, l.role
		FROM messages m
		JOIN leads l ON l.id = m.lead_id
		WHERE m.status = $1`
	args := []interface{}{status}
	idx := 2
	if channel != "" {
		q += fmt.Sprintf(" AND m.channel = $%d", idx)
		args = append(args, channel)
		idx++
	}
	q += fmt.Sprintf(" ORDER BY m.created_at ASC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
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

// MarkMessageSent records a successful dispatch.
func (r *MessageRepo) MarkMessageSent(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET status = $1, sent_at = $2, error_message = NULL
		WHERE id = $3
	`, domain.MessageSent, at, id)
	if err != nil {
		return fmt.Errorf("mark message sent: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

// MarkMessageFailed transitions to FAILED, bumping the retry count and
// keeping the latest error text.
func (r *MessageRepo) MarkMessageFailed(ctx context.Context, id string, errMsg string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages
		SET status = $1, error_message = $2, retry_count = retry_count + 1
		WHERE id = $3
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

// UpdateLeadStatus lets the dispatcher advance a lead after delivery
// without holding a second repository.
func (r *MessageRepo) UpdateLeadStatus(ctx context.Context, leadID string, status domain.LeadStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE leads SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, leadID)
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}
