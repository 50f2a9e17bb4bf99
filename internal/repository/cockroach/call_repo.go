package cockroach

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"meshline-backend/internal/domain"
	"meshline-backend/pkg/constants"
)

// CallRepository persists the authoritative call history in CockroachDB.
// Signaling fires these writes best-effort and never reads them back.
type CallRepository struct {
	pool *pgxpool.Pool
}

// NewCallRepository creates a new CallRepository
func NewCallRepository(pool *pgxpool.Pool) *CallRepository {
	return &CallRepository{pool: pool}
}

// Create inserts a call row in its initial pending state
func (r *CallRepository) Create(ctx context.Context, record *domain.CallRecord) error {
	query := `
		INSERT INTO calls (call_id, conversation_id, caller_id, call_type, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		record.CallID,
		record.ConversationID,
		record.CallerID,
		record.CallType,
		record.Status,
		record.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create call record: %w", err)
	}

	return nil
}

// UpdateStatus transitions a call row to a new status
func (r *CallRepository) UpdateStatus(ctx context.Context, callID, status string) error {
	query := `UPDATE calls SET status = $1 WHERE call_id = $2`

	tag, err := r.pool.Exec(ctx, query, status, callID)
	if err != nil {
		return fmt.Errorf("failed to update call status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("call not found")
	}

	return nil
}

// End closes a call row with its final duration
func (r *CallRepository) End(ctx context.Context, callID string, duration int) error {
	query := `
		UPDATE calls
		SET status = $1, ended_at = now(), duration = $2
		WHERE call_id = $3
	`

	tag, err := r.pool.Exec(ctx, query, constants.CallStatusEnded, duration, callID)
	if err != nil {
		return fmt.Errorf("failed to end call record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("call not found")
	}

	return nil
}

// GetByID retrieves a persisted call row
func (r *CallRepository) GetByID(ctx context.Context, callID string) (*domain.CallRecord, error) {
	query := `
		SELECT call_id, conversation_id, caller_id, call_type, status, started_at, ended_at, duration
		FROM calls
		WHERE call_id = $1
	`

	record := &domain.CallRecord{}
	var duration *int
	err := r.pool.QueryRow(ctx, query, callID).Scan(
		&record.CallID,
		&record.ConversationID,
		&record.CallerID,
		&record.CallType,
		&record.Status,
		&record.StartedAt,
		&record.EndedAt,
		&duration,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("call not found")
		}
		return nil, fmt.Errorf("failed to get call record: %w", err)
	}

	if duration != nil {
		record.Duration = *duration
	}

	return record, nil
}
