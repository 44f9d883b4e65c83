package flow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BTreeMap/SupportPipe/internal/config"
	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/BTreeMap/SupportPipe/internal/records"
	"github.com/BTreeMap/SupportPipe/internal/validation"
)

// OrderStatusFlow handles a session waiting for an order ID.
type OrderStatusFlow struct {
	orders     records.OrderStore
	classifier IntentClassifier
	msgs       *config.Messages
}

// NewOrderStatusFlow creates the order-status sub-dialogue.
func NewOrderStatusFlow(orders records.OrderStore, classifier IntentClassifier, msgs *config.Messages) *OrderStatusFlow {
	return &OrderStatusFlow{orders: orders, classifier: classifier, msgs: msgs}
}

// Start enters the flow and returns the order ID prompt.
func (f *OrderStatusFlow) Start(sess *models.Session) string {
	sess.State = models.StateAwaitingOrderID
	return f.msgs.WithCancellationNote(f.msgs.OrderStatus.OrderIDInquiry)
}

// Handle treats text as an order ID. A malformed ID keeps the session waiting so the
// user can retry; every other outcome returns the session to idle.
func (f *OrderStatusFlow) Handle(ctx context.Context, sess *models.Session, text string) string {
	if !validation.IsOrderID(text) {
		slog.Debug("OrderStatusFlow.Handle: wrong order ID format", "sessionID", sess.ID)
		return f.msgs.OrderStatus.WrongPattern
	}

	sess.State = models.StateIdle
	status, err := f.orders.Lookup(ctx, text)
	if err != nil {
		return f.lookupFailure(sess.ID, text, err)
	}

	if status == records.EmptyStatus {
		slog.Info("OrderStatusFlow.Handle: order has no status", "sessionID", sess.ID, "orderID", text)
		return f.msgs.OrderStatus.Unknown
	}
	if !f.classifier.Matches(ctx, f.msgs.OrderStatus.IsStatusRelevantPrompt, status) {
		slog.Info("OrderStatusFlow.Handle: status rejected by relevance check", "sessionID", sess.ID, "orderID", text)
		return f.msgs.OrderStatus.Unknown
	}

	slog.Info("OrderStatusFlow.Handle: status reported", "sessionID", sess.ID, "orderID", text)
	return f.msgs.StatusReply(status)
}

func (f *OrderStatusFlow) lookupFailure(sessionID, orderID string, err error) string {
	switch {
	case errors.Is(err, records.ErrOrderNotFound):
		slog.Info("OrderStatusFlow.Handle: order not found", "sessionID", sessionID, "orderID", orderID)
		return f.msgs.OrderStatus.NotFound
	case errors.Is(err, records.ErrStoreNotFound):
		slog.Error("OrderStatusFlow.Handle: order store missing", "sessionID", sessionID, "error", err)
		return f.msgs.Errors.OrderStoreNotFound
	case errors.Is(err, records.ErrSchema):
		slog.Error("OrderStatusFlow.Handle: order store schema error", "sessionID", sessionID, "error", err)
		return f.msgs.Errors.OrderStoreMissingColumn
	case errors.Is(err, records.ErrStoreMalformed):
		slog.Error("OrderStatusFlow.Handle: order store malformed", "sessionID", sessionID, "error", err)
		return f.msgs.Errors.OrderStoreMalformed
	default:
		slog.Error("OrderStatusFlow.Handle: order lookup failed", "sessionID", sessionID, "error", err)
		return f.msgs.Errors.OrderStoreMalformed
	}
}
