package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/BTreeMap/SupportPipe/internal/store"
)

// DefaultErrorMessage is sent when a turn cannot be processed.
const DefaultErrorMessage = "Sorry, something went wrong on our side. Please try again in a moment."

// TurnProcessor runs one dialogue turn and returns the reply.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, sessionID, text string) (string, error)
}

// ResponseHandler feeds inbound channel messages into the support flow and sends
// the replies back on the same channel.
type ResponseHandler struct {
	msgService   Service
	turns        TurnProcessor
	dedup        store.DedupRepo
	errorMessage string
}

// NewResponseHandler creates a handler. dedup may be nil to process every delivery.
func NewResponseHandler(msgService Service, turns TurnProcessor, dedup store.DedupRepo) *ResponseHandler {
	return &ResponseHandler{
		msgService:   msgService,
		turns:        turns,
		dedup:        dedup,
		errorMessage: DefaultErrorMessage,
	}
}

// SetErrorMessage overrides the reply sent when a turn fails.
func (rh *ResponseHandler) SetErrorMessage(message string) {
	rh.errorMessage = message
}

// SessionID derives the dialogue session for a sender on a channel.
func SessionID(channel, sender string) string {
	return channel + ":" + sender
}

// ProcessResponse runs one inbound message through the flow and replies.
// Redelivered messages (same MessageID) are dropped.
func (rh *ResponseHandler) ProcessResponse(ctx context.Context, response models.Response) error {
	from, err := rh.msgService.ValidateAndCanonicalizeRecipient(response.From)
	if err != nil {
		slog.Error("ResponseHandler ProcessResponse validation failed", "error", err, "from", response.From)
		return fmt.Errorf("invalid sender: %w", err)
	}
	sessionID := SessionID(rh.msgService.Name(), from)

	if rh.dedup != nil && response.MessageID != "" {
		first, err := rh.dedup.RecordInbound(response.MessageID, sessionID)
		switch {
		case err != nil:
			slog.Warn("ResponseHandler dedup check failed, processing anyway", "error", err, "messageID", response.MessageID)
		case !first:
			slog.Info("ResponseHandler dropping redelivered message", "messageID", response.MessageID, "sessionID", sessionID)
			return nil
		}
	}

	reply, err := rh.turns.ProcessTurn(ctx, sessionID, response.Body)
	if err != nil {
		slog.Error("ResponseHandler turn failed", "error", err, "sessionID", sessionID)
		if sendErr := rh.msgService.SendMessage(ctx, from, rh.errorMessage); sendErr != nil {
			slog.Error("ResponseHandler failed to send error message", "error", sendErr, "sessionID", sessionID)
		}
		return fmt.Errorf("process turn: %w", err)
	}

	if err := rh.msgService.SendMessage(ctx, from, reply); err != nil {
		slog.Error("ResponseHandler failed to send reply", "error", err, "sessionID", sessionID)
		return fmt.Errorf("send reply: %w", err)
	}

	if rh.dedup != nil && response.MessageID != "" {
		if err := rh.dedup.MarkProcessed(response.MessageID); err != nil {
			slog.Warn("ResponseHandler failed to mark message processed", "error", err, "messageID", response.MessageID)
		}
	}
	slog.Debug("ResponseHandler reply sent", "sessionID", sessionID)
	return nil
}

// Start consumes the service's response and receipt channels until ctx is done
// or the service is stopped.
func (rh *ResponseHandler) Start(ctx context.Context) {
	slog.Info("ResponseHandler starting response processing", "channel", rh.msgService.Name())

	go func() {
		defer slog.Info("ResponseHandler stopped response processing")

		responses := rh.msgService.Responses()
		receipts := rh.msgService.Receipts()
		for responses != nil {
			select {
			case response, ok := <-responses:
				if !ok {
					responses = nil
					continue
				}
				if err := rh.ProcessResponse(ctx, response); err != nil {
					slog.Error("ResponseHandler failed to process response", "error", err, "from", response.From)
				}

			case receipt, ok := <-receipts:
				if !ok {
					receipts = nil
					continue
				}
				slog.Debug("ResponseHandler receipt", "to", receipt.To, "status", receipt.Status)

			case <-ctx.Done():
				return
			}
		}
	}()
}
