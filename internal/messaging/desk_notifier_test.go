package messaging

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/BTreeMap/SupportPipe/internal/store"
)

func TestDeskNotifier_QueuesAndDelivers(t *testing.T) {
	st := store.NewInMemoryStore()
	n := NewDeskNotifier(st, "+15550000000")
	rec := models.ContactRecord{FullName: "Jane Doe", Email: "jane@x.com", Phone: "5551234567"}

	if err := n.NotifyHandoff(context.Background(), "web:abc", rec); err != nil {
		t.Fatalf("NotifyHandoff failed: %v", err)
	}
	// A repeat while the first is pending collapses into it.
	if err := n.NotifyHandoff(context.Background(), "web:abc", rec); err != nil {
		t.Fatalf("NotifyHandoff failed: %v", err)
	}

	msgs, err := st.ClaimDueOutboxMessages(time.Now(), 10)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("claimed %d messages, want 1", len(msgs))
	}
	msg := msgs[0]
	if msg.Kind != store.OutboxKindDeskNotification || msg.Recipient != "+15550000000" {
		t.Errorf("unexpected outbox message %+v", msg)
	}
	for _, want := range []string{"Jane Doe", "jane@x.com", "5551234567", "web:abc"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body %q missing %q", msg.Body, want)
		}
	}

	svc := newMockService()
	if err := OutboxSendFunc(svc)(context.Background(), msg); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	sent := svc.messages()
	if len(sent) != 1 || sent[0].to != "+15550000000" || sent[0].body != msg.Body {
		t.Errorf("sent = %+v", sent)
	}
}
