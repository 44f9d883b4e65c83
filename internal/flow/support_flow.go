package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/SupportPipe/internal/config"
	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/BTreeMap/SupportPipe/internal/transcript"
)

// cancelKeyword aborts any sub-dialogue. Matched case-insensitively, untrimmed.
const cancelKeyword = "cancel"

// ErrEmptySessionID is returned when a turn arrives without a session ID.
var ErrEmptySessionID = errors.New("session ID is required")

// SupportFlow routes each user message to the handler selected by the session state.
type SupportFlow struct {
	state      StateManager
	classifier IntentClassifier
	responder  Responder
	orders     *OrderStatusFlow
	contacts   *ContactFlow
	msgs       *config.Messages
	log        transcript.Recorder
	locks      *sessionLocks
}

// NewSupportFlow wires the router from deps.
func NewSupportFlow(deps Dependencies) (*SupportFlow, error) {
	var missing []string
	if deps.StateManager == nil {
		missing = append(missing, "StateManager")
	}
	if deps.Classifier == nil {
		missing = append(missing, "Classifier")
	}
	if deps.Responder == nil {
		missing = append(missing, "Responder")
	}
	if deps.Orders == nil {
		missing = append(missing, "Orders")
	}
	if deps.Contacts == nil {
		missing = append(missing, "Contacts")
	}
	if deps.Messages == nil {
		missing = append(missing, "Messages")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("support flow: missing dependencies: %s", strings.Join(missing, ", "))
	}

	rec := deps.Transcript
	if rec == nil {
		rec = transcript.Discard{}
	}
	return &SupportFlow{
		state:      deps.StateManager,
		classifier: deps.Classifier,
		responder:  deps.Responder,
		orders:     NewOrderStatusFlow(deps.Orders, deps.Classifier, deps.Messages),
		contacts:   NewContactFlow(deps.Contacts, deps.Notifier, deps.Messages),
		msgs:       deps.Messages,
		log:        rec,
		locks:      newSessionLocks(),
	}, nil
}

// ProcessTurn handles one user message and returns the reply. Turns for the same
// session run one at a time. The only errors are session persistence failures.
func (f *SupportFlow) ProcessTurn(ctx context.Context, sessionID, text string) (string, error) {
	if sessionID == "" {
		return "", ErrEmptySessionID
	}
	unlock := f.locks.lock(sessionID)
	defer unlock()

	sess, err := f.state.LoadSession(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load session %s: %w", sessionID, err)
	}
	from := sess.State

	sess.AppendMessage(models.RoleUser, text)
	f.log.Record(sessionID, models.RoleUser, text)

	reply := f.dispatch(ctx, sess, text)

	sess.AppendMessage(models.RoleAssistant, reply)
	sess.TrimHistory(f.msgs.StoredHistoryCap())
	if err := f.state.SaveSession(ctx, sess); err != nil {
		return "", fmt.Errorf("save session %s: %w", sessionID, err)
	}
	f.log.Record(sessionID, models.RoleAssistant, reply)

	slog.Debug("SupportFlow.ProcessTurn: turn complete", "sessionID", sessionID, "from", from, "to", sess.State)
	return reply, nil
}

func (f *SupportFlow) dispatch(ctx context.Context, sess *models.Session, text string) string {
	switch {
	case sess.State == models.StateAwaitingOrderID:
		if strings.EqualFold(text, cancelKeyword) {
			slog.Info("SupportFlow.dispatch: order status flow cancelled", "sessionID", sess.ID)
			sess.State = models.StateIdle
			return f.msgs.OrderStatus.CancelAck
		}
		return f.orders.Handle(ctx, sess, text)

	case sess.State.InContactFlow():
		if strings.EqualFold(text, cancelKeyword) {
			slog.Info("SupportFlow.dispatch: contact flow cancelled", "sessionID", sess.ID)
			sess.ClearContact()
			return f.msgs.SwitchToRep.CancelAck
		}
		return f.contacts.Handle(ctx, sess, text)
	}

	// Idle: human handoff takes precedence over order status.
	if f.classifier.Matches(ctx, f.msgs.SwitchToRep.IsSwitchToHumanRequestPrompt, text) {
		slog.Info("SupportFlow.dispatch: human handoff requested", "sessionID", sess.ID)
		return f.contacts.Start(sess)
	}
	if f.classifier.Matches(ctx, f.msgs.OrderStatus.IsOrderStatusRequestPrompt, text) {
		slog.Info("SupportFlow.dispatch: order status requested", "sessionID", sess.ID)
		return f.orders.Start(sess)
	}
	return f.responder.Respond(ctx, sess.History)
}

// Reset discards the session and marks the boundary in the transcript.
func (f *SupportFlow) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	unlock := f.locks.lock(sessionID)
	defer unlock()

	if err := f.state.ResetSession(ctx, sessionID); err != nil {
		return fmt.Errorf("reset session %s: %w", sessionID, err)
	}
	f.log.Separator(sessionID)
	slog.Info("SupportFlow.Reset: session reset", "sessionID", sessionID)
	return nil
}

// Welcome resets the session and returns the greeting.
func (f *SupportFlow) Welcome(ctx context.Context, sessionID string) (string, error) {
	if err := f.Reset(ctx, sessionID); err != nil {
		return "", err
	}
	return f.msgs.Default.BotWelcome, nil
}

// State returns the current dialogue state of a session.
func (f *SupportFlow) State(ctx context.Context, sessionID string) (models.DialogueState, error) {
	sess, err := f.state.LoadSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return sess.State, nil
}
