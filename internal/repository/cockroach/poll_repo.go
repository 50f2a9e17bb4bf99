package cockroach

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"meshline-backend/internal/domain"
)

// PollRepository reads poll state from CockroachDB for message rendering
type PollRepository struct {
	pool *pgxpool.Pool
}

// NewPollRepository creates a new PollRepository
func NewPollRepository(pool *pgxpool.Pool) *PollRepository {
	return &PollRepository{pool: pool}
}

// GetSnapshot assembles a point-in-time copy of a poll with per-option vote
// counts. The snapshot is attached to outbound wire messages and never
// mutated afterwards.
func (r *PollRepository) GetSnapshot(ctx context.Context, pollID uuid.UUID) (*domain.PollSnapshot, error) {
	pollQuery := `SELECT poll_id, question, is_closed FROM polls WHERE poll_id = $1`

	snapshot := &domain.PollSnapshot{}
	err := r.pool.QueryRow(ctx, pollQuery, pollID).Scan(
		&snapshot.PollID,
		&snapshot.Question,
		&snapshot.IsClosed,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("poll not found")
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	optionsQuery := `
		SELECT o.option_id, o.text, COUNT(v.user_id)
		FROM poll_options o
		LEFT JOIN poll_votes v ON v.option_id = o.option_id
		WHERE o.poll_id = $1
		GROUP BY o.option_id, o.text, o.position
		ORDER BY o.position ASC
	`

	rows, err := r.pool.Query(ctx, optionsQuery, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll options: %w", err)
	}
	defer rows.Close()

	options := make([]domain.PollOption, 0)
	for rows.Next() {
		var opt domain.PollOption
		if err := rows.Scan(&opt.OptionID, &opt.Text, &opt.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan poll option: %w", err)
		}
		options = append(options, opt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating poll options: %w", err)
	}

	snapshot.Options = options
	return snapshot, nil
}
