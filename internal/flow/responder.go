package flow

import (
	"context"
	"log/slog"

	"github.com/BTreeMap/SupportPipe/internal/genai"
	"github.com/BTreeMap/SupportPipe/internal/models"
)

// Responder produces an open-ended reply to the conversation so far.
type Responder interface {
	// Respond never fails: collaborator errors become a fixed apology.
	Respond(ctx context.Context, history []models.ConversationMessage) string
}

// GenAIResponder answers with the chat model under a support persona.
type GenAIResponder struct {
	client   genai.ClientInterface
	persona  string
	fallback string
	window   int
}

// NewGenAIResponder creates a responder. window bounds how many earlier messages are
// sent along with the newest one (-1 for all); fallback is returned on any model error.
func NewGenAIResponder(client genai.ClientInterface, persona, fallback string, window int) *GenAIResponder {
	return &GenAIResponder{client: client, persona: persona, fallback: fallback, window: window}
}

// Respond sends the persona, the windowed history and the newest message.
func (r *GenAIResponder) Respond(ctx context.Context, history []models.ConversationMessage) string {
	msgs := make([]models.ConversationMessage, 0, len(history)+1)
	msgs = append(msgs, models.ConversationMessage{Role: models.RoleSystem, Content: r.persona})
	msgs = append(msgs, windowHistory(history, r.window)...)

	reply, err := r.client.GenerateWithMessages(ctx, msgs)
	if err != nil {
		if genai.IsUnreachable(err) {
			slog.Warn("GenAIResponder.Respond: model unreachable, sending apology", "error", err)
		} else {
			slog.Error("GenAIResponder.Respond: model error, sending apology", "error", err)
		}
		return r.fallback
	}
	return reply
}

// windowHistory keeps the newest message plus at most window earlier ones.
func windowHistory(history []models.ConversationMessage, window int) []models.ConversationMessage {
	if len(history) == 0 || window < 0 {
		return history
	}
	earlier := history[:len(history)-1]
	if len(earlier) > window {
		earlier = earlier[len(earlier)-window:]
	}
	out := make([]models.ConversationMessage, 0, len(earlier)+1)
	out = append(out, earlier...)
	return append(out, history[len(history)-1])
}
