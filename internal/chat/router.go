package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"syncroom-service/internal/auth"
	"syncroom-service/internal/models"
	"syncroom-service/internal/observability"
	"syncroom-service/internal/repositories"
)

// ErrEmptyBody marks a whitespace-only message. Callers drop it without
// surfacing anything to the sender.
var ErrEmptyBody = errors.New("empty message body")

// Broadcaster fans an event out to every connection bound to a room and
// reports how many it reached.
type Broadcaster interface {
	Broadcast(roomID int, event any) int
}

// roomLocks hands out one mutex per room key so persist-and-broadcast
// sequences serialize within a room while distinct rooms proceed
// independently. Entries are never reclaimed; the set of active rooms is
// small and bounded by the group table.
type roomLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[int]*sync.Mutex)}
}

func (rl *roomLocks) get(roomID int) *sync.Mutex {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		rl.locks[roomID] = l
	}
	return l
}

// Router validates, authorizes, persists, and broadcasts room chat events.
// Within a room, broadcast order matches acceptance order because the whole
// persist-and-broadcast sequence runs under the room's lock.
type Router struct {
	messages  repositories.MessageRepository
	reactions repositories.ReactionRepository
	members   repositories.MembershipRepository
	gate      *auth.Gate
	hub       Broadcaster
	locks     *roomLocks
}

// NewRouter wires a Router.
func NewRouter(
	messages repositories.MessageRepository,
	reactions repositories.ReactionRepository,
	members repositories.MembershipRepository,
	gate *auth.Gate,
	hub Broadcaster,
) *Router {
	return &Router{
		messages:  messages,
		reactions: reactions,
		members:   members,
		gate:      gate,
		hub:       hub,
		locks:     newRoomLocks(),
	}
}

// Inbound is a user-submitted chat message before validation.
type Inbound struct {
	RoomID        int
	AuthorID      int
	AuthorName    string
	Body          string
	ParentID      *int
	IsCodeSnippet bool
	Language      string
}

// PostMessage runs the full pipeline for a user message and returns the
// stored row. ErrEmptyBody and authorization errors mean nothing was
// persisted or broadcast.
func (r *Router) PostMessage(ctx context.Context, in Inbound) (models.Message, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return models.Message{}, ErrEmptyBody
	}

	if _, err := r.gate.RequireMember(ctx, in.RoomID, in.AuthorID); err != nil {
		return models.Message{}, err
	}

	lock := r.locks.get(in.RoomID)
	lock.Lock()
	defer lock.Unlock()

	parentID := in.ParentID
	preview := r.resolveParent(ctx, in.RoomID, parentID)
	if preview == nil {
		// Stored parent ids always reference a live same-room message;
		// a reply to a vanished parent survives as a top-level message.
		parentID = nil
	}

	authorID := in.AuthorID
	stored, err := r.messages.Create(ctx, models.Message{
		RoomID:        in.RoomID,
		AuthorID:      &authorID,
		Body:          body,
		ParentID:      parentID,
		IsCodeSnippet: in.IsCodeSnippet,
		Language:      in.Language,
	})
	if err != nil {
		return models.Message{}, err
	}

	r.hub.Broadcast(in.RoomID, models.ChatMessageEvent{
		Type:          models.EventChatMessage,
		Message:       stored,
		AuthorName:    in.AuthorName,
		ParentPreview: preview,
	})
	return stored, nil
}

// PostAssistantMessage persists and broadcasts a synthetic assistant reply.
// No authorization applies; the assistant is not a member.
func (r *Router) PostAssistantMessage(ctx context.Context, roomID int, body string, parentID *int) (models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return models.Message{}, ErrEmptyBody
	}

	lock := r.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	preview := r.resolveParent(ctx, roomID, parentID)
	if preview == nil {
		// The directive message may be deleted before the reply lands.
		parentID = nil
	}

	stored, err := r.messages.Create(ctx, models.Message{
		RoomID:   roomID,
		AuthorID: nil,
		Body:     body,
		ParentID: parentID,
	})
	if err != nil {
		return models.Message{}, err
	}

	r.hub.Broadcast(roomID, models.ChatMessageEvent{
		Type:          models.EventChatMessage,
		Message:       stored,
		AuthorName:    models.AssistantName,
		ParentPreview: preview,
	})
	return stored, nil
}

// resolveParent builds the denormalized thread-parent echo. A missing or
// deleted parent, or one from another room, degrades to nil rather than
// failing the message.
func (r *Router) resolveParent(ctx context.Context, roomID int, parentID *int) *models.ParentPreview {
	if parentID == nil {
		return nil
	}
	parent, err := r.messages.Get(ctx, *parentID)
	if err != nil {
		if !errors.Is(err, repositories.ErrMessageNotFound) {
			log.Warn().Err(err).Int("message_id", *parentID).Msg("parent lookup failed")
		}
		return nil
	}
	if parent.RoomID != roomID {
		return nil
	}
	return &models.ParentPreview{
		ID:         parent.ID,
		AuthorName: r.authorName(ctx, roomID, parent.AuthorID),
		Body:       parent.Body,
	}
}

func (r *Router) authorName(ctx context.Context, roomID int, authorID *int) string {
	if authorID == nil {
		return models.AssistantName
	}
	member, err := r.members.GetMember(ctx, roomID, *authorID)
	if err != nil {
		// Departed members keep their messages; the name just goes blank.
		return ""
	}
	return member.Username
}

// DeleteMessage removes a message when the actor is its author or holds at
// least admin. Exactly one deletion event is broadcast even under
// concurrent deletes; denials and races are silent to the room.
func (r *Router) DeleteMessage(ctx context.Context, roomID int, actorID int, messageID int) error {
	lock := r.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := r.messages.Get(ctx, messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return nil
		}
		return err
	}
	if msg.RoomID != roomID {
		return auth.ErrForbidden
	}

	if _, err := r.gate.AuthorizeDelete(ctx, roomID, actorID, msg.AuthorID); err != nil {
		return err
	}

	if err := r.messages.Delete(ctx, messageID); err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return nil
		}
		return err
	}

	r.hub.Broadcast(roomID, models.DeletionEvent{
		Type:      models.EventMessageDeleted,
		MessageID: messageID,
	})
	observability.PublishEvent(ctx, "chat.message_deleted", observability.EventEnvelope{
		EventType: "chat",
		EventName: "message_deleted",
		Payload: map[string]any{
			"room_id":    roomID,
			"message_id": messageID,
			"actor_id":   actorID,
		},
	})
	return nil
}

// AddReaction upserts the (message, user, emoji) triple and broadcasts it.
// Membership is the only requirement.
func (r *Router) AddReaction(ctx context.Context, roomID int, userID int, messageID int, emoji string) error {
	if emoji == "" {
		return ErrEmptyBody
	}
	if _, err := r.gate.RequireMember(ctx, roomID, userID); err != nil {
		return err
	}

	msg, err := r.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.RoomID != roomID {
		return auth.ErrForbidden
	}

	if err := r.reactions.Upsert(ctx, messageID, userID, emoji); err != nil {
		return err
	}

	r.hub.Broadcast(roomID, models.ReactionEvent{
		Type:      models.EventReactionAdded,
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
	})
	return nil
}

// BroadcastTyping relays a typing indicator to the room. UserID is nil for
// the assistant.
func (r *Router) BroadcastTyping(roomID int, userID *int, username string, isTyping bool) {
	r.hub.Broadcast(roomID, models.TypingEvent{
		Type:     models.EventTyping,
		UserID:   userID,
		Username: username,
		IsTyping: isTyping,
	})
}
