package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MemberRepository is the service-level record in Redis of which user is
// online in which conversation through which connection. Three structures
// are kept in step: the per-conversation member set, the per-connection
// membership hash used for disconnect cleanup, and the per-conversation
// user-to-connection hash used for targeted removal.
type MemberRepository struct {
	client *redis.Client
}

// NewMemberRepository creates a new MemberRepository
func NewMemberRepository(client *redis.Client) *MemberRepository {
	return &MemberRepository{client: client}
}

func membersKey(conversationID uuid.UUID) string {
	return fmt.Sprintf("conv:members:%s", conversationID)
}

func memberConnKey(conversationID uuid.UUID) string {
	return fmt.Sprintf("conv:memberconn:%s", conversationID)
}

func connMembershipsKey(connID string) string {
	return fmt.Sprintf("conn:memberships:%s", connID)
}

// AddMember records that a user joined a conversation through a connection
func (r *MemberRepository) AddMember(ctx context.Context, userID, conversationID uuid.UUID, connID string) error {
	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, membersKey(conversationID), userID.String())
	pipe.HSet(ctx, memberConnKey(conversationID), userID.String(), connID)
	pipe.HSet(ctx, connMembershipsKey(connID), conversationID.String(), userID.String())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add conversation member: %w", err)
	}
	return nil
}

// RemoveMember removes one user's membership in one conversation
func (r *MemberRepository) RemoveMember(ctx context.Context, userID, conversationID uuid.UUID) error {
	connID, err := r.client.HGet(ctx, memberConnKey(conversationID), userID.String()).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to look up member connection: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.SRem(ctx, membersKey(conversationID), userID.String())
	pipe.HDel(ctx, memberConnKey(conversationID), userID.String())
	if connID != "" {
		pipe.HDel(ctx, connMembershipsKey(connID), conversationID.String())
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove conversation member: %w", err)
	}
	return nil
}

// ReleaseConn drops every membership held by one closing connection
func (r *MemberRepository) ReleaseConn(ctx context.Context, connID string) error {
	memberships, err := r.client.HGetAll(ctx, connMembershipsKey(connID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list connection memberships: %w", err)
	}

	pipe := r.client.Pipeline()
	for conversationID, userID := range memberships {
		convID, err := uuid.Parse(conversationID)
		if err != nil {
			continue
		}
		pipe.SRem(ctx, membersKey(convID), userID)
		pipe.HDel(ctx, memberConnKey(convID), userID)
	}
	pipe.Del(ctx, connMembershipsKey(connID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to release connection memberships: %w", err)
	}
	return nil
}

// Members lists the user IDs currently associated with a conversation
func (r *MemberRepository) Members(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	raw, err := r.client.SMembers(ctx, membersKey(conversationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation members: %w", err)
	}

	members := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		userID, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		members = append(members, userID)
	}
	return members, nil
}
