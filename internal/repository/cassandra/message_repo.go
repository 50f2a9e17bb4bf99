package cassandra

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"meshline-backend/internal/database"
	"meshline-backend/internal/domain"
)

// scanLookbackDays bounds how far back the worker scans look for unsettled
// rows. Rows older than this after prolonged downtime need manual
// reconciliation.
const scanLookbackDays = 3

// MessageRepository handles message storage in Cassandra. Scheduled and
// self-destructing messages are additionally indexed in date-partitioned
// companion tables so the workers can scan by due time without touching the
// main conversation partitions.
type MessageRepository struct {
	db *database.CassandraDB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *database.CassandraDB) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `conversation_id, message_id, sender_id, content, message_type,
	parent_message_id, poll_id, mentioned_user_ids, scheduled_at,
	self_destruct_after_seconds, viewed_at, expires_at, is_deleted, is_pinned,
	edited_at, created_at`

// Append inserts a message and returns the canonical stored row. A message
// with a future release time is also indexed for the release worker.
func (r *MessageRepository) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	if msg.MessageID == uuid.Nil {
		msg.MessageID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := r.db.ExecWithContext(ctx, query,
		msg.ConversationID,
		msg.MessageID,
		msg.SenderID,
		msg.Content,
		msg.MessageType,
		msg.ParentMessageID,
		msg.PollID,
		msg.MentionedUserIDs,
		msg.ScheduledAt,
		msg.SelfDestructAfterSeconds,
		msg.ViewedAt,
		msg.ExpiresAt,
		msg.IsDeleted,
		msg.IsPinned,
		msg.EditedAt,
		msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	if msg.ScheduledAt != nil {
		indexQuery := `
			INSERT INTO scheduled_messages (release_date, scheduled_at, conversation_id, message_id)
			VALUES (?, ?, ?, ?)
		`
		err := r.db.ExecWithContext(ctx, indexQuery,
			msg.ScheduledAt.UTC().Format("2006-01-02"),
			*msg.ScheduledAt,
			msg.ConversationID,
			msg.MessageID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to index scheduled message: %w", err)
		}
	}

	return msg, nil
}

// Get retrieves a message by conversation and message ID
func (r *MessageRepository) Get(ctx context.Context, conversationID, messageID uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = ? AND message_id = ?
	`

	msg := &domain.Message{}
	err := r.db.QueryWithContext(ctx, query, conversationID, messageID).Scan(
		&msg.ConversationID,
		&msg.MessageID,
		&msg.SenderID,
		&msg.Content,
		&msg.MessageType,
		&msg.ParentMessageID,
		&msg.PollID,
		&msg.MentionedUserIDs,
		&msg.ScheduledAt,
		&msg.SelfDestructAfterSeconds,
		&msg.ViewedAt,
		&msg.ExpiresAt,
		&msg.IsDeleted,
		&msg.IsPinned,
		&msg.EditedAt,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return msg, nil
}

// SetContent updates a message body and stamps the edit time
func (r *MessageRepository) SetContent(ctx context.Context, conversationID, messageID uuid.UUID, content string, editedAt time.Time) error {
	query := `
		UPDATE messages SET content = ?, edited_at = ?
		WHERE conversation_id = ? AND message_id = ?
	`
	if err := r.db.ExecWithContext(ctx, query, content, editedAt, conversationID, messageID); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// MarkDeleted tombstones a message without removing the row
func (r *MessageRepository) MarkDeleted(ctx context.Context, conversationID, messageID uuid.UUID) error {
	query := `
		UPDATE messages SET is_deleted = true
		WHERE conversation_id = ? AND message_id = ?
	`
	if err := r.db.ExecWithContext(ctx, query, conversationID, messageID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// AddReaction records one user's reaction to a message
func (r *MessageRepository) AddReaction(ctx context.Context, conversationID, messageID, userID uuid.UUID, emoji string) error {
	query := `
		INSERT INTO message_reactions (conversation_id, message_id, user_id, emoji, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if err := r.db.ExecWithContext(ctx, query, conversationID, messageID, userID, emoji, time.Now()); err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}
	return nil
}

// RemoveReaction removes one user's reaction from a message
func (r *MessageRepository) RemoveReaction(ctx context.Context, conversationID, messageID, userID uuid.UUID, emoji string) error {
	query := `
		DELETE FROM message_reactions
		WHERE conversation_id = ? AND message_id = ? AND user_id = ? AND emoji = ?
	`
	if err := r.db.ExecWithContext(ctx, query, conversationID, messageID, userID, emoji); err != nil {
		return fmt.Errorf("failed to remove reaction: %w", err)
	}
	return nil
}

// SetPinned updates a message's pin flag
func (r *MessageRepository) SetPinned(ctx context.Context, conversationID, messageID uuid.UUID, pinned bool) error {
	query := `
		UPDATE messages SET is_pinned = ?
		WHERE conversation_id = ? AND message_id = ?
	`
	if err := r.db.ExecWithContext(ctx, query, pinned, conversationID, messageID); err != nil {
		return fmt.Errorf("failed to set pin state: %w", err)
	}
	return nil
}

// MarkRead records a read receipt. The first read of a self-destructing
// message also starts its expiry clock and indexes it for the sweeper.
func (r *MessageRepository) MarkRead(ctx context.Context, conversationID, messageID, userID uuid.UUID) error {
	receiptQuery := `
		INSERT INTO message_reads (conversation_id, message_id, user_id, read_at)
		VALUES (?, ?, ?, ?)
	`
	now := time.Now()
	if err := r.db.ExecWithContext(ctx, receiptQuery, conversationID, messageID, userID, now); err != nil {
		return fmt.Errorf("failed to record read receipt: %w", err)
	}

	msg, err := r.Get(ctx, conversationID, messageID)
	if err != nil {
		return err
	}
	if msg.SelfDestructAfterSeconds == nil || msg.ViewedAt != nil {
		return nil
	}

	expiresAt := now.Add(time.Duration(*msg.SelfDestructAfterSeconds) * time.Second)
	viewQuery := `
		UPDATE messages SET viewed_at = ?, expires_at = ?
		WHERE conversation_id = ? AND message_id = ?
	`
	if err := r.db.ExecWithContext(ctx, viewQuery, now, expiresAt, conversationID, messageID); err != nil {
		return fmt.Errorf("failed to start self destruct clock: %w", err)
	}

	indexQuery := `
		INSERT INTO ephemeral_messages (expiry_date, expires_at, conversation_id, message_id)
		VALUES (?, ?, ?, ?)
	`
	err = r.db.ExecWithContext(ctx, indexQuery,
		expiresAt.UTC().Format("2006-01-02"),
		expiresAt,
		conversationID,
		messageID,
	)
	if err != nil {
		return fmt.Errorf("failed to index ephemeral message: %w", err)
	}

	return nil
}

// DueScheduled returns messages whose release time has passed but whose
// scheduled marker is still set. Rewound rows that were already cleared are
// filtered out, so a broadcast-then-crash replays at most once per tick.
func (r *MessageRepository) DueScheduled(ctx context.Context, now time.Time) ([]*domain.Message, error) {
	refs, err := r.scanIndex(ctx, "scheduled_messages", "release_date", "scheduled_at", now)
	if err != nil {
		return nil, err
	}

	due := make([]*domain.Message, 0, len(refs))
	for _, ref := range refs {
		msg, err := r.Get(ctx, ref.conversationID, ref.messageID)
		if err != nil {
			return nil, err
		}
		if msg.ScheduledAt == nil || msg.IsDeleted {
			continue
		}
		due = append(due, msg)
	}
	return due, nil
}

// ClearScheduled removes the scheduled marker and index rows of released
// messages.
func (r *MessageRepository) ClearScheduled(ctx context.Context, msgs []*domain.Message) error {
	for _, msg := range msgs {
		clearQuery := `
			UPDATE messages SET scheduled_at = null
			WHERE conversation_id = ? AND message_id = ?
		`
		if err := r.db.ExecWithContext(ctx, clearQuery, msg.ConversationID, msg.MessageID); err != nil {
			return fmt.Errorf("failed to clear scheduled marker: %w", err)
		}

		indexQuery := `
			DELETE FROM scheduled_messages
			WHERE release_date = ? AND scheduled_at = ? AND conversation_id = ? AND message_id = ?
		`
		err := r.db.ExecWithContext(ctx, indexQuery,
			msg.ScheduledAt.UTC().Format("2006-01-02"),
			*msg.ScheduledAt,
			msg.ConversationID,
			msg.MessageID,
		)
		if err != nil {
			return fmt.Errorf("failed to drop scheduled index row: %w", err)
		}
	}
	return nil
}

// ExpiredEphemeral returns viewed self-destructing messages whose expiry
// has passed and that are not yet deleted.
func (r *MessageRepository) ExpiredEphemeral(ctx context.Context, now time.Time) ([]*domain.Message, error) {
	refs, err := r.scanIndex(ctx, "ephemeral_messages", "expiry_date", "expires_at", now)
	if err != nil {
		return nil, err
	}

	expired := make([]*domain.Message, 0, len(refs))
	for _, ref := range refs {
		msg, err := r.Get(ctx, ref.conversationID, ref.messageID)
		if err != nil {
			return nil, err
		}
		if msg.IsDeleted || msg.ExpiresAt == nil {
			continue
		}
		expired = append(expired, msg)
	}
	return expired, nil
}

// MarkSelfDestructed tombstones swept messages and drops their index rows
func (r *MessageRepository) MarkSelfDestructed(ctx context.Context, msgs []*domain.Message) error {
	for _, msg := range msgs {
		if err := r.MarkDeleted(ctx, msg.ConversationID, msg.MessageID); err != nil {
			return err
		}

		indexQuery := `
			DELETE FROM ephemeral_messages
			WHERE expiry_date = ? AND expires_at = ? AND conversation_id = ? AND message_id = ?
		`
		err := r.db.ExecWithContext(ctx, indexQuery,
			msg.ExpiresAt.UTC().Format("2006-01-02"),
			*msg.ExpiresAt,
			msg.ConversationID,
			msg.MessageID,
		)
		if err != nil {
			return fmt.Errorf("failed to drop ephemeral index row: %w", err)
		}
	}
	return nil
}

type messageRef struct {
	conversationID uuid.UUID
	messageID      uuid.UUID
}

// scanIndex collects index rows with a due time at or before now, walking
// one date partition per lookback day.
func (r *MessageRepository) scanIndex(ctx context.Context, table, dateColumn, timeColumn string, now time.Time) ([]messageRef, error) {
	query := fmt.Sprintf(`
		SELECT conversation_id, message_id
		FROM %s
		WHERE %s = ? AND %s <= ?
	`, table, dateColumn, timeColumn)

	var refs []messageRef
	for days := 0; days < scanLookbackDays; days++ {
		partition := now.UTC().AddDate(0, 0, -days).Format("2006-01-02")

		iter := r.db.QueryWithContext(ctx, query, partition, now).Iter()
		var ref messageRef
		for iter.Scan(&ref.conversationID, &ref.messageID) {
			refs = append(refs, ref)
		}
		if err := iter.Close(); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
	}

	return refs, nil
}
