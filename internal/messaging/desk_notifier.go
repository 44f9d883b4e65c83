package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/BTreeMap/SupportPipe/internal/store"
)

// DeskNotifier tells the support desk about every customer who asked for a human.
// Notices go through the outbox so they survive restarts and channel outages.
type DeskNotifier struct {
	outbox    store.OutboxRepo
	recipient string
}

// NewDeskNotifier queues notices for recipient, the desk's phone number.
func NewDeskNotifier(outbox store.OutboxRepo, recipient string) *DeskNotifier {
	return &DeskNotifier{outbox: outbox, recipient: recipient}
}

// NotifyHandoff queues a notice for rec. Repeated notices for the same session and
// phone number collapse while the first is still pending.
func (n *DeskNotifier) NotifyHandoff(ctx context.Context, sessionID string, rec models.ContactRecord) error {
	dedupeKey := "handoff:" + sessionID + ":" + rec.Phone
	id, err := n.outbox.EnqueueOutboxMessage(n.recipient, store.OutboxKindDeskNotification, FormatHandoff(sessionID, rec), dedupeKey)
	if err != nil {
		return fmt.Errorf("enqueue desk notification: %w", err)
	}
	slog.Info("DeskNotifier.NotifyHandoff: desk notification queued", "sessionID", sessionID, "outboxID", id)
	return nil
}

// FormatHandoff renders the desk notice.
func FormatHandoff(sessionID string, rec models.ContactRecord) string {
	return fmt.Sprintf("New callback request\nName: %s\nEmail: %s\nPhone: %s\nSession: %s",
		rec.FullName, rec.Email, rec.Phone, sessionID)
}

// OutboxSendFunc delivers outbox messages over svc.
func OutboxSendFunc(svc Service) store.OutboxSendFunc {
	return func(ctx context.Context, msg store.OutboxMessage) error {
		return svc.SendMessage(ctx, msg.Recipient, msg.Body)
	}
}
