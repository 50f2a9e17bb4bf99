package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meshline-backend/internal/domain"
	"meshline-backend/pkg/constants"
	"meshline-backend/pkg/errors"
	"meshline-backend/pkg/metrics"
)

// Broadcaster maintains per-conversation subscriber groups and fans chat
// events out to them. It owns both membership mechanisms, the in-memory
// broadcast group and the external member directory, and keeps them in
// step on join, leave and disconnect so "who receives broadcasts" and "who
// is online in this conversation" cannot diverge.
type Broadcaster struct {
	presence      *PresenceRegistry
	users         UserDirectory
	blocks        BlockChecker
	conversations ConversationStore
	messages      MessageStore
	polls         PollReader       // may be nil
	members       MemberDirectory  // may be nil
	publisher     EventPublisher   // may be nil
	metrics       *metrics.Metrics // may be nil

	mu    sync.RWMutex
	rooms map[uuid.UUID]map[string]Conn // conversationID -> connID -> conn

	log *zap.Logger
}

// BroadcasterDeps bundles the collaborators a Broadcaster needs
type BroadcasterDeps struct {
	Presence      *PresenceRegistry
	Users         UserDirectory
	Blocks        BlockChecker
	Conversations ConversationStore
	Messages      MessageStore
	Polls         PollReader
	Members       MemberDirectory
	Publisher     EventPublisher
	Metrics       *metrics.Metrics
}

// NewBroadcaster creates a broadcaster with empty subscriber groups
func NewBroadcaster(deps BroadcasterDeps, log *zap.Logger) *Broadcaster {
	return &Broadcaster{
		presence:      deps.Presence,
		users:         deps.Users,
		blocks:        deps.Blocks,
		conversations: deps.Conversations,
		messages:      deps.Messages,
		polls:         deps.Polls,
		members:       deps.Members,
		publisher:     deps.Publisher,
		metrics:       deps.Metrics,
		rooms:         make(map[uuid.UUID]map[string]Conn),
		log:           log,
	}
}

// JoinConversation subscribes a connection to a conversation's broadcast
// group, records the service-level association, announces the join to the
// rest of the group and acknowledges the caller. Joining twice is a no-op.
func (b *Broadcaster) JoinConversation(ctx context.Context, conn Conn, userID, conversationID uuid.UUID) {
	b.mu.Lock()
	room, ok := b.rooms[conversationID]
	if !ok {
		room = make(map[string]Conn)
		b.rooms[conversationID] = room
	}
	room[conn.ID()] = conn
	b.mu.Unlock()

	if b.members != nil {
		if err := b.members.AddMember(ctx, userID, conversationID, conn.ID()); err != nil {
			b.log.Warn("failed to record conversation membership",
				zap.String("conversation_id", conversationID.String()),
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}

	joined := NewEvent(EventUserJoined, ConversationPresencePayload{
		ConversationID: conversationID,
		UserID:         userID,
		Status:         constants.StatusOnline,
	})
	b.broadcastExcept(ctx, conversationID, joined, conn.ID())

	ack := NewEvent(EventConversationJoined, ConversationPresencePayload{
		ConversationID: conversationID,
		UserID:         userID,
		Status:         constants.StatusOnline,
	})
	if err := conn.Send(ack); err != nil {
		b.log.Debug("join ack failed", zap.String("conn_id", conn.ID()), zap.Error(err))
	}
}

// LeaveConversation removes the connection from both membership mechanisms
// and announces the departure.
func (b *Broadcaster) LeaveConversation(ctx context.Context, conn Conn, userID, conversationID uuid.UUID) {
	b.mu.Lock()
	if room, ok := b.rooms[conversationID]; ok {
		delete(room, conn.ID())
		if len(room) == 0 {
			delete(b.rooms, conversationID)
		}
	}
	b.mu.Unlock()

	if b.members != nil {
		if err := b.members.RemoveMember(ctx, userID, conversationID); err != nil {
			b.log.Warn("failed to release conversation membership",
				zap.String("conversation_id", conversationID.String()),
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}

	left := NewEvent(EventUserLeft, ConversationPresencePayload{
		ConversationID: conversationID,
		UserID:         userID,
		Status:         constants.StatusOffline,
	})
	b.broadcastExcept(ctx, conversationID, left, conn.ID())

	ack := NewEvent(EventConversationLeft, ConversationPresencePayload{
		ConversationID: conversationID,
		UserID:         userID,
		Status:         constants.StatusOffline,
	})
	if err := conn.Send(ack); err != nil {
		b.log.Debug("leave ack failed", zap.String("conn_id", conn.ID()), zap.Error(err))
	}
}

// SendMessage persists a message through the message store and fans it out.
// A message scheduled for the future is acknowledged to the sender only and
// stays invisible to the group until the release worker promotes it.
func (b *Broadcaster) SendMessage(ctx context.Context, sender Conn, in *domain.MessageCreate) error {
	if len(in.Content) > constants.MaxMessageLength {
		return errors.ValidationError("message exceeds maximum length")
	}

	conv, err := b.conversations.Get(ctx, in.ConversationID)
	if err != nil {
		return errors.ConversationNotFoundError()
	}

	if conv.IsDirect() {
		if err := b.checkDirectBlock(ctx, conv.ConversationID, in.SenderID); err != nil {
			return err
		}
	}

	now := time.Now()
	msg := &domain.Message{
		MessageID:                uuid.New(),
		ConversationID:           in.ConversationID,
		SenderID:                 in.SenderID,
		Content:                  in.Content,
		MessageType:              in.MessageType,
		ParentMessageID:          in.ParentMessageID,
		MentionedUserIDs:         in.MentionedUserIDs,
		ScheduledAt:              in.ScheduledAt,
		SelfDestructAfterSeconds: in.SelfDestructAfterSeconds,
		CreatedAt:                now,
	}

	stored, err := b.messages.Append(ctx, msg)
	if err != nil {
		return errors.DatabaseError(err)
	}

	if stored.IsScheduledAfter(now) {
		ack := NewEvent(EventMessageScheduled, MessageScheduledPayload{
			MessageID:      stored.MessageID,
			ConversationID: stored.ConversationID,
			ScheduledAt:    *stored.ScheduledAt,
		})
		if err := sender.Send(ack); err != nil {
			b.log.Debug("schedule ack failed", zap.String("conn_id", sender.ID()), zap.Error(err))
		}
		return nil
	}

	wire := b.RenderMessage(ctx, stored)
	b.Broadcast(ctx, stored.ConversationID, NewEvent(EventReceiveMessage, wire))
	b.notifyMentions(stored.SenderID, in.MentionedUserIDs, wire)

	return nil
}

// notifyMentions addresses each mentioned user directly through the
// presence registry rather than the group channel.
func (b *Broadcaster) notifyMentions(senderID uuid.UUID, mentioned []uuid.UUID, wire *domain.WireMessage) {
	for _, userID := range mentioned {
		if userID == senderID {
			continue
		}
		conn, online := b.presence.Lookup(userID)
		if !online {
			continue
		}
		ev := NewEvent(EventUserMentioned, MentionPayload{Message: wire})
		if err := conn.Send(ev); err != nil {
			b.log.Debug("mention notify failed",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}
}

// checkDirectBlock rejects sends between mutually or one-way blocked users
// in a two-party conversation.
func (b *Broadcaster) checkDirectBlock(ctx context.Context, conversationID, senderID uuid.UUID) error {
	participants, err := b.conversations.Participants(ctx, conversationID)
	if err != nil {
		return errors.DatabaseError(err)
	}
	for _, participantID := range participants {
		if participantID == senderID {
			continue
		}
		blocked, err := b.blocks.IsBlockedEither(ctx, senderID, participantID)
		if err != nil {
			return errors.DatabaseError(err)
		}
		if blocked {
			return errors.BlockedError()
		}
	}
	return nil
}

// EditMessage delegates the mutation and broadcasts the updated message
func (b *Broadcaster) EditMessage(ctx context.Context, conversationID, messageID, editorID uuid.UUID, content string) error {
	if len(content) > constants.MaxMessageLength {
		return errors.ValidationError("message exceeds maximum length")
	}

	now := time.Now()
	if err := b.messages.SetContent(ctx, conversationID, messageID, content, now); err != nil {
		return errors.DatabaseError(err)
	}

	updated, err := b.messages.Get(ctx, conversationID, messageID)
	if err != nil {
		return errors.MessageNotFoundError()
	}

	wire := b.RenderMessage(ctx, updated)
	b.Broadcast(ctx, conversationID, NewEvent(EventMessageEdited, wire))
	return nil
}

// DeleteMessage delegates the tombstone and broadcasts the removal
func (b *Broadcaster) DeleteMessage(ctx context.Context, conversationID, messageID uuid.UUID) error {
	if err := b.messages.MarkDeleted(ctx, conversationID, messageID); err != nil {
		return errors.DatabaseError(err)
	}

	b.Broadcast(ctx, conversationID, NewEvent(EventMessageDeleted, MessageDeletedPayload{
		MessageID:      messageID,
		ConversationID: conversationID,
	}))
	return nil
}

// AddReaction delegates the mutation and broadcasts the reaction
func (b *Broadcaster) AddReaction(ctx context.Context, conversationID, messageID, userID uuid.UUID, emoji string) error {
	if err := b.messages.AddReaction(ctx, conversationID, messageID, userID, emoji); err != nil {
		return errors.DatabaseError(err)
	}

	b.Broadcast(ctx, conversationID, NewEvent(EventReactionAdded, ReactionPayload{
		MessageID:      messageID,
		ConversationID: conversationID,
		UserID:         userID,
		Emoji:          emoji,
	}))
	return nil
}

// RemoveReaction delegates the mutation and broadcasts the removal
func (b *Broadcaster) RemoveReaction(ctx context.Context, conversationID, messageID, userID uuid.UUID, emoji string) error {
	if err := b.messages.RemoveReaction(ctx, conversationID, messageID, userID, emoji); err != nil {
		return errors.DatabaseError(err)
	}

	b.Broadcast(ctx, conversationID, NewEvent(EventReactionRemoved, ReactionPayload{
		MessageID:      messageID,
		ConversationID: conversationID,
		UserID:         userID,
		Emoji:          emoji,
	}))
	return nil
}

// PinMessage delegates the pin flag change and broadcasts it
func (b *Broadcaster) PinMessage(ctx context.Context, conversationID, messageID uuid.UUID, pinned bool) error {
	if err := b.messages.SetPinned(ctx, conversationID, messageID, pinned); err != nil {
		return errors.DatabaseError(err)
	}

	b.Broadcast(ctx, conversationID, NewEvent(EventMessagePinnedStatusChange, MessagePinnedPayload{
		MessageID:      messageID,
		ConversationID: conversationID,
		IsPinned:       pinned,
	}))
	return nil
}

// ForwardMessage copies a message into another conversation and broadcasts
// it there as a fresh message.
func (b *Broadcaster) ForwardMessage(ctx context.Context, forwarderID, sourceConversationID, messageID, targetConversationID uuid.UUID) error {
	source, err := b.messages.Get(ctx, sourceConversationID, messageID)
	if err != nil {
		return errors.MessageNotFoundError()
	}

	copied := &domain.Message{
		MessageID:      uuid.New(),
		ConversationID: targetConversationID,
		SenderID:       forwarderID,
		Content:        source.Content,
		MessageType:    source.MessageType,
		PollID:         source.PollID,
		CreatedAt:      time.Now(),
	}
	stored, err := b.messages.Append(ctx, copied)
	if err != nil {
		return errors.DatabaseError(err)
	}

	wire := b.RenderMessage(ctx, stored)
	b.Broadcast(ctx, targetConversationID, NewEvent(EventReceiveMessage, wire))
	return nil
}

// MarkAsRead records a read receipt and broadcasts it unless the reading
// user's privacy preference suppresses visible receipts. The underlying
// mark-as-read mutation happens either way; only the broadcast is gated.
func (b *Broadcaster) MarkAsRead(ctx context.Context, conversationID, messageID, userID uuid.UUID) error {
	if err := b.messages.MarkRead(ctx, conversationID, messageID, userID); err != nil {
		return errors.DatabaseError(err)
	}

	enabled, err := b.users.ReadReceiptsEnabled(ctx, userID)
	if err != nil {
		b.log.Warn("read receipt preference lookup failed, suppressing broadcast",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil
	}
	if !enabled {
		return nil
	}

	b.Broadcast(ctx, conversationID, NewEvent(EventMessageRead, MessageReadPayload{
		MessageID:      messageID,
		ConversationID: conversationID,
		UserID:         userID,
	}))
	return nil
}

// Typing fans a typing indicator out to everyone in the group but the
// typist. Failures are never surfaced.
func (b *Broadcaster) Typing(ctx context.Context, conn Conn, conversationID, userID uuid.UUID, username string, typing bool) {
	eventType := EventUserTyping
	if !typing {
		eventType = EventUserStoppedTyping
	}
	ev := NewEvent(eventType, TypingPayload{
		ConversationID: conversationID,
		UserID:         userID,
		Username:       username,
	})
	b.broadcastExcept(ctx, conversationID, ev, conn.ID())
}

// ReleaseConn drops a closing connection from every broadcast group and
// releases all of its member-directory associations in one call.
func (b *Broadcaster) ReleaseConn(ctx context.Context, conn Conn) {
	b.mu.Lock()
	for conversationID, room := range b.rooms {
		delete(room, conn.ID())
		if len(room) == 0 {
			delete(b.rooms, conversationID)
		}
	}
	b.mu.Unlock()

	if b.members != nil {
		if err := b.members.ReleaseConn(ctx, conn.ID()); err != nil {
			b.log.Warn("failed to release member associations",
				zap.String("conn_id", conn.ID()),
				zap.Error(err))
		}
	}
}

// Broadcast fans an event out to every subscriber of a conversation. It is
// the single path shared by live actions and the reconciliation workers, so
// clients cannot distinguish a live event from a reconciled one.
func (b *Broadcaster) Broadcast(ctx context.Context, conversationID uuid.UUID, ev Event) {
	b.broadcastExcept(ctx, conversationID, ev, "")
}

func (b *Broadcaster) broadcastExcept(ctx context.Context, conversationID uuid.UUID, ev Event, exceptConnID string) {
	b.mu.RLock()
	room := b.rooms[conversationID]
	targets := make([]Conn, 0, len(room))
	for connID, conn := range room {
		if connID != exceptConnID {
			targets = append(targets, conn)
		}
	}
	b.mu.RUnlock()

	// Fan-out happens outside the lock; each delivery is independent.
	for _, conn := range targets {
		if err := conn.Send(ev); err != nil {
			b.log.Debug("broadcast send failed",
				zap.String("conn_id", conn.ID()),
				zap.String("event", ev.Type),
				zap.Error(err))
		}
	}

	if b.metrics != nil {
		b.metrics.RecordBroadcast(ev.Type, len(targets))
	}

	if b.publisher != nil {
		if err := b.publisher.Publish(ctx, conversationID, ev); err != nil {
			b.log.Debug("event publish failed",
				zap.String("conversation_id", conversationID.String()),
				zap.String("event", ev.Type),
				zap.Error(err))
		}
	}
}

// RenderMessage assembles the denormalized wire representation of a stored
// message: sender snapshot, parent preview and poll snapshot. Lookup
// failures degrade the rendering instead of failing the broadcast.
func (b *Broadcaster) RenderMessage(ctx context.Context, msg *domain.Message) *domain.WireMessage {
	wire := &domain.WireMessage{
		MessageID:        msg.MessageID,
		ConversationID:   msg.ConversationID,
		SenderID:         msg.SenderID,
		Content:          msg.Content,
		MessageType:      msg.MessageType,
		MentionedUserIDs: msg.MentionedUserIDs,
		IsPinned:         msg.IsPinned,
		EditedAt:         msg.EditedAt,
		CreatedAt:        msg.CreatedAt,
	}

	if profile, err := b.users.GetProfile(ctx, msg.SenderID); err == nil {
		wire.SenderName = profile.DisplayName
		wire.SenderAvatar = profile.AvatarURL
	} else {
		b.log.Warn("sender profile lookup failed",
			zap.String("user_id", msg.SenderID.String()),
			zap.Error(err))
	}

	if msg.ParentMessageID != nil {
		if parent, err := b.messages.Get(ctx, msg.ConversationID, *msg.ParentMessageID); err == nil {
			preview := &domain.ParentPreview{
				MessageID: parent.MessageID,
				SenderID:  parent.SenderID,
				Content:   parent.Content,
			}
			if profile, err := b.users.GetProfile(ctx, parent.SenderID); err == nil {
				preview.SenderName = profile.DisplayName
			}
			wire.Parent = preview
		} else {
			b.log.Debug("parent message lookup failed",
				zap.String("parent_id", msg.ParentMessageID.String()),
				zap.Error(err))
		}
	}

	if msg.PollID != nil && b.polls != nil {
		if snapshot, err := b.polls.GetSnapshot(ctx, *msg.PollID); err == nil {
			wire.Poll = snapshot
		} else {
			b.log.Debug("poll snapshot lookup failed",
				zap.String("poll_id", msg.PollID.String()),
				zap.Error(err))
		}
	}

	return wire
}
