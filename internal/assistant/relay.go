package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"syncroom-service/internal/chat"
	"syncroom-service/internal/models"
	"syncroom-service/internal/observability"
	"syncroom-service/internal/repositories"
)

// DirectiveToken routes a room message to the assistant. Matching is
// case-insensitive on the message prefix.
const DirectiveToken = "@ai"

// FailureReply is the neutral message posted when the completion
// collaborator fails or times out.
const FailureReply = "Sorry, I'm having trouble connecting to my circuits right now."

// Relay watches the room message stream for directive messages, runs the
// completion out-of-line, and injects the reply as a synthetic participant.
// It also serves the direct assistant channel with per-user history.
type Relay struct {
	completer    Completer
	history      repositories.AssistantHistoryRepository
	router       *chat.Router
	timeout      time.Duration
	historyLimit int
}

// NewRelay wires a Relay.
func NewRelay(completer Completer, history repositories.AssistantHistoryRepository, router *chat.Router, timeout time.Duration, historyLimit int) *Relay {
	return &Relay{
		completer:    completer,
		history:      history,
		router:       router,
		timeout:      timeout,
		historyLimit: historyLimit,
	}
}

// IsDirective reports whether the body addresses the assistant.
func IsDirective(body string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(body)), DirectiveToken)
}

// StripDirective removes the directive token from the body.
func StripDirective(body string) string {
	trimmed := strings.TrimSpace(body)
	return strings.TrimSpace(trimmed[len(DirectiveToken):])
}

// HandleRoomMessage inspects a just-broadcast message and, when it carries
// the directive, starts the completion in its own goroutine. Any member may
// trigger it and invocations are not throttled; callers inherit that
// exposure.
func (r *Relay) HandleRoomMessage(msg models.Message) {
	if !IsDirective(msg.Body) {
		return
	}

	prompt := StripDirective(msg.Body)
	parentID := msg.ID
	roomID := msg.RoomID

	r.router.BroadcastTyping(roomID, nil, models.AssistantName, true)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		defer r.router.BroadcastTyping(roomID, nil, models.AssistantName, false)

		reply, err := r.completer.Complete(ctx, prompt, nil)
		if err != nil {
			observability.IncAssistantInvocation("error")
			log.Error().Err(err).Int("room_id", roomID).Msg("assistant completion failed")
			reply = FailureReply
		} else if strings.TrimSpace(reply) == "" {
			observability.IncAssistantInvocation("empty")
			return
		} else {
			observability.IncAssistantInvocation("ok")
		}

		// Detached context: the reply outlives the completion deadline.
		if _, err := r.router.PostAssistantMessage(context.Background(), roomID, reply, &parentID); err != nil {
			log.Error().Err(err).Int("room_id", roomID).Msg("assistant reply post failed")
		}
	}()
}

// DirectChat handles one turn of a user's private assistant conversation:
// load recent history, complete, persist both sides, return the reply.
func (r *Relay) DirectChat(ctx context.Context, userID int, body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", chat.ErrEmptyBody
	}

	turns, err := r.history.LastTurns(ctx, userID, r.historyLimit)
	if err != nil {
		return "", err
	}
	history := toCompletionHistory(turns)

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.completer.Complete(cctx, body, history)
	if err != nil {
		observability.IncAssistantInvocation("error")
		return "", err
	}
	observability.IncAssistantInvocation("ok")

	if err := r.history.Append(ctx, userID, models.SenderUser, body); err != nil {
		return "", err
	}
	if err := r.history.Append(ctx, userID, models.SenderAssistant, reply); err != nil {
		return "", err
	}
	return reply, nil
}

// History returns the user's stored direct-channel turns, oldest first.
func (r *Relay) History(ctx context.Context, userID int) ([]models.AssistantTurn, error) {
	return r.history.LastTurns(ctx, userID, r.historyLimit)
}

// toCompletionHistory maps stored turns to collaborator roles. The
// collaborator requires the first turn to be user-authored, so leading
// assistant turns left over from truncation are dropped.
func toCompletionHistory(turns []models.AssistantTurn) []Turn {
	turns = lo.DropWhile(turns, func(t models.AssistantTurn) bool {
		return t.Sender != models.SenderUser
	})
	return lo.Map(turns, func(t models.AssistantTurn, _ int) Turn {
		role := "user"
		if t.Sender == models.SenderAssistant {
			role = "model"
		}
		return Turn{Role: role, Text: t.Body}
	})
}
