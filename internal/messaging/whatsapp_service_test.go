package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/BTreeMap/SupportPipe/internal/whatsapp"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

func TestWhatsAppService_ImplementsService(t *testing.T) {
	var _ Service = (*WhatsAppService)(nil)
}

func TestWhatsAppService_SendMessage_Receipt(t *testing.T) {
	mockClient := whatsapp.NewMockClient()
	svc := NewWhatsAppService(mockClient)
	if err := svc.SendMessage(context.Background(), "+1 555 123 4567", "hello"); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if len(mockClient.Sent) != 1 || mockClient.Sent[0] != "15551234567: hello" {
		t.Errorf("client got %v", mockClient.Sent)
	}
	select {
	case receipt := <-svc.Receipts():
		if receipt.To != "15551234567" || receipt.Status != models.MessageStatusSent {
			t.Errorf("unexpected receipt %+v", receipt)
		}
	default:
		t.Fatal("expected receipt, got none")
	}
}

func TestWhatsAppService_StartStop(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("second Stop returned error: %v", err)
	}
	if _, ok := <-svc.Receipts(); ok {
		t.Error("expected receipts channel closed")
	}
	if _, ok := <-svc.Responses(); ok {
		t.Error("expected responses channel closed")
	}
	if err := svc.SendMessage(context.Background(), "15551234567", "hi"); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}
}

func textEvent(id, user, text string, fromMe, group bool) *events.Message {
	evt := &events.Message{Message: &waE2E.Message{Conversation: &text}}
	evt.Info.ID = id
	evt.Info.Sender = types.NewJID(user, types.DefaultUserServer)
	evt.Info.IsFromMe = fromMe
	evt.Info.IsGroup = group
	evt.Info.Timestamp = time.Unix(1700000000, 0)
	return evt
}

func TestWhatsAppService_HandleIncomingMessage(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())

	svc.handleEvent(textEvent("ABC", "15551234567", "hi there", false, false))
	svc.handleEvent(textEvent("OWN", "15551234567", "echo", true, false))
	svc.handleEvent(textEvent("GRP", "15551234567", "group chat", false, true))
	svc.handleEvent(&events.Message{Message: &waE2E.Message{}})

	select {
	case resp := <-svc.Responses():
		if resp.MessageID != "ABC" || resp.From != "+15551234567" || resp.Body != "hi there" || resp.Time != 1700000000 {
			t.Errorf("unexpected response %+v", resp)
		}
	default:
		t.Fatal("expected forwarded message")
	}
	select {
	case resp := <-svc.Responses():
		t.Errorf("only direct customer text should be forwarded, got %+v", resp)
	default:
	}
}
