package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/leadez/outreach/internal/domain"
)

// RunRepo persists pipeline run records in PostgreSQL.
type RunRepo struct{ db *sql.DB }

// NewRunRepo creates a Postgres-backed run repository.
func NewRunRepo(db *sql.DB) *RunRepo { return &RunRepo{db: db} }

func (r *RunRepo) Record(ctx context.Context, run *domain.PipelineRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs
			(id, status, dry_run, messages_sent, messages_failed, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, run.ID, run.Status, run.DryRun, run.MessagesSent, run.MessagesFailed,
		run.StartedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("record pipeline run: %w", err)
	}
	return nil
}
