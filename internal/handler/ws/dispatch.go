package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meshline-backend/internal/domain"
	"meshline-backend/internal/realtime"
	"meshline-backend/pkg/errors"
)

// Inbound action types
const (
	ActionJoinConversation  = "join_conversation"
	ActionLeaveConversation = "leave_conversation"
	ActionSendMessage       = "send_message"
	ActionEditMessage       = "edit_message"
	ActionDeleteMessage     = "delete_message"
	ActionForwardMessage    = "forward_message"
	ActionAddReaction       = "add_reaction"
	ActionRemoveReaction    = "remove_reaction"
	ActionPinMessage        = "pin_message"
	ActionMarkRead          = "mark_read"
	ActionTyping            = "typing"
	ActionStopTyping        = "stop_typing"
	ActionInitiateCall      = "initiate_call"
	ActionAcceptCall        = "accept_call"
	ActionRejectCall        = "reject_call"
	ActionEndCall           = "end_call"
	ActionMediaState        = "media_state"
	ActionCallOffer         = "call_offer"
	ActionCallAnswer        = "call_answer"
	ActionIceCandidate      = "ice_candidate"
	ActionInitiateGroupCall = "initiate_group_call"
	ActionJoinGroupCall     = "join_group_call"
)

// clientRequest is the envelope of every inbound frame
type clientRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type conversationRequest struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

type editMessageRequest struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
	Content        string    `json:"content"`
}

type messageRequest struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
}

type forwardMessageRequest struct {
	SourceConversationID uuid.UUID `json:"source_conversation_id"`
	MessageID            uuid.UUID `json:"message_id"`
	TargetConversationID uuid.UUID `json:"target_conversation_id"`
}

type reactionRequest struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
	Emoji          string    `json:"emoji"`
}

type pinMessageRequest struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
	Pinned         bool      `json:"pinned"`
}

type typingRequest struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Username       string    `json:"username,omitempty"`
}

type initiateCallRequest struct {
	ReceiverID     uuid.UUID `json:"receiver_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	CallType       string    `json:"call_type"`
}

type callPeerRequest struct {
	CallerID uuid.UUID `json:"caller_id"`
}

type endCallRequest struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	Duration    int       `json:"duration,omitempty"`
}

type mediaStateRequest struct {
	RecipientID  uuid.UUID `json:"recipient_id"`
	AudioEnabled bool      `json:"audio_enabled"`
	VideoEnabled bool      `json:"video_enabled"`
}

type signalRequest struct {
	RecipientID uuid.UUID       `json:"recipient_id"`
	Signal      json.RawMessage `json:"signal"`
}

type initiateGroupCallRequest struct {
	ConversationID uuid.UUID   `json:"conversation_id"`
	CallType       string      `json:"call_type"`
	MemberIDs      []uuid.UUID `json:"member_ids"`
}

type joinGroupCallRequest struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	CallID         string    `json:"call_id"`
}

// dispatch routes one inbound frame to the matching hub operation. A panic
// in one action is contained to that action; the connection survives.
func (h *Handler) dispatch(ctx context.Context, c *Client, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("panic handling client action",
				zap.String("conn_id", c.ID()),
				zap.Any("panic", r))
			h.sendError(c, errors.InternalError("internal error"))
		}
	}()

	var req clientRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.sendError(c, errors.InvalidInputError("malformed request"))
		return
	}
	if h.metrics != nil {
		h.metrics.RecordInboundEvent(req.Type)
	}

	switch req.Type {
	case ActionJoinConversation:
		var p conversationRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.hub.Conversations.JoinConversation(ctx, c, c.UserID(), p.ConversationID)

	case ActionLeaveConversation:
		var p conversationRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.hub.Conversations.LeaveConversation(ctx, c, c.UserID(), p.ConversationID)

	case ActionSendMessage:
		var p domain.MessageCreate
		if !h.decode(c, req.Payload, &p) {
			return
		}
		p.SenderID = c.UserID()
		h.report(c, h.hub.Conversations.SendMessage(ctx, c, &p))

	case ActionEditMessage:
		var p editMessageRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.report(c, h.hub.Conversations.EditMessage(ctx, p.ConversationID, p.MessageID, c.UserID(), p.Content))

	case ActionDeleteMessage:
		var p messageRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.report(c, h.hub.Conversations.DeleteMessage(ctx, p.ConversationID, p.MessageID))

	case ActionForwardMessage:
		var p forwardMessageRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.report(c, h.hub.Conversations.ForwardMessage(ctx, c.UserID(), p.SourceConversationID, p.MessageID, p.TargetConversationID))

	case ActionAddReaction:
		var p reactionRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.report(c, h.hub.Conversations.AddReaction(ctx, p.ConversationID, p.MessageID, c.UserID(), p.Emoji))

	case ActionRemoveReaction:
		var p reactionRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.report(c, h.hub.Conversations.RemoveReaction(ctx, p.ConversationID, p.MessageID, c.UserID(), p.Emoji))

	case ActionPinMessage:
		var p pinMessageRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.report(c, h.hub.Conversations.PinMessage(ctx, p.ConversationID, p.MessageID, p.Pinned))

	case ActionMarkRead:
		var p messageRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.report(c, h.hub.Conversations.MarkAsRead(ctx, p.ConversationID, p.MessageID, c.UserID()))

	case ActionTyping:
		var p typingRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.hub.Conversations.Typing(ctx, c, p.ConversationID, c.UserID(), p.Username, true)

	case ActionStopTyping:
		var p typingRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.hub.Conversations.Typing(ctx, c, p.ConversationID, c.UserID(), p.Username, false)

	case ActionInitiateCall:
		var p initiateCallRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		_, err := h.hub.Calls.InitiateCall(ctx, c, c.UserID(), p.ReceiverID, p.ConversationID, p.CallType)
		if err != nil && h.metrics != nil {
			h.metrics.RecordCallFailed(string(errors.GetAppError(err).Code))
		} else if err == nil && h.metrics != nil {
			h.metrics.RecordCallInitiated(p.CallType, false)
		}
		h.report(c, err)

	case ActionAcceptCall:
		var p callPeerRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.hub.Calls.AcceptCall(ctx, c.UserID(), p.CallerID)

	case ActionRejectCall:
		var p callPeerRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.hub.Calls.RejectCall(ctx, c.UserID(), p.CallerID)

	case ActionEndCall:
		var p endCallRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.hub.Calls.EndCall(ctx, c, c.UserID(), p.RecipientID, p.Duration)

	case ActionMediaState:
		var p mediaStateRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.hub.Calls.UpdateMediaState(ctx, c.UserID(), p.RecipientID, p.AudioEnabled, p.VideoEnabled)

	case ActionCallOffer:
		var p signalRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.report(c, h.hub.Signaling.SendOffer(c.UserID(), p.RecipientID, p.Signal))

	case ActionCallAnswer:
		var p signalRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.report(c, h.hub.Signaling.SendAnswer(c.UserID(), p.RecipientID, p.Signal))

	case ActionIceCandidate:
		var p signalRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.hub.Signaling.SendIceCandidate(c.UserID(), p.RecipientID, p.Signal)

	case ActionInitiateGroupCall:
		var p initiateGroupCallRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		_, err := h.hub.Groups.InitiateGroupCall(ctx, c, c.UserID(), p.ConversationID, p.CallType, p.MemberIDs)
		if err == nil && h.metrics != nil {
			h.metrics.RecordCallInitiated(p.CallType, true)
		}
		h.report(c, err)

	case ActionJoinGroupCall:
		var p joinGroupCallRequest
		if !h.decode(c, req.Payload, &p) {
			return
		}
		h.hub.Groups.JoinGroupCall(ctx, c.UserID(), p.ConversationID, p.CallID)
		if h.metrics != nil {
			h.metrics.RecordGroupCallJoin()
		}

	default:
		h.sendError(c, errors.InvalidInputError("unknown action: "+req.Type))
	}
}

// decode unmarshals an action payload, reporting malformed input to the
// client. Returns false when dispatch should stop.
func (h *Handler) decode(c *Client, raw json.RawMessage, out any) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		h.sendError(c, errors.InvalidInputError("malformed payload"))
		return false
	}
	return true
}

// report converts a failed action into an error event on the invoking
// connection. Successful and nil-error actions emit nothing here.
func (h *Handler) report(c *Client, err error) {
	if err == nil {
		return
	}
	h.sendError(c, errors.GetAppError(err))
}

func (h *Handler) sendError(c *Client, appErr *errors.AppError) {
	if h.metrics != nil {
		h.metrics.RecordHandlerError(string(appErr.Code))
	}
	ev := realtime.NewEvent(realtime.EventError, realtime.ErrorPayload{
		Code:    string(appErr.Code),
		Message: appErr.Message,
	})
	if err := c.Send(ev); err != nil {
		h.log.Debug("error event send failed", zap.String("conn_id", c.ID()), zap.Error(err))
	}
}
