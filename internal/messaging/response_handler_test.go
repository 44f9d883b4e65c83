package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/BTreeMap/SupportPipe/internal/store"
)

func TestResponseHandler_RepliesOnSameChannel(t *testing.T) {
	svc := newMockService()
	turns := &mockTurns{}
	rh := NewResponseHandler(svc, turns, nil)

	err := rh.ProcessResponse(context.Background(), models.Response{From: "whatsapp:+1 (555) 123-4567", Body: "hello"})
	if err != nil {
		t.Fatalf("ProcessResponse failed: %v", err)
	}
	if len(turns.sessions) != 1 || turns.sessions[0] != "mock:15551234567" {
		t.Errorf("sessions = %v, want [mock:15551234567]", turns.sessions)
	}
	sent := svc.messages()
	if len(sent) != 1 || sent[0].to != "15551234567" || sent[0].body != "echo: hello" {
		t.Errorf("sent = %+v", sent)
	}
}

func TestResponseHandler_InvalidSender(t *testing.T) {
	svc := newMockService()
	turns := &mockTurns{}
	rh := NewResponseHandler(svc, turns, nil)

	if err := rh.ProcessResponse(context.Background(), models.Response{From: "abc", Body: "hi"}); err == nil {
		t.Error("expected error for sender without digits")
	}
	if turns.calls() != 0 {
		t.Error("flow should not run for an invalid sender")
	}
}

func TestResponseHandler_DropsRedeliveries(t *testing.T) {
	svc := newMockService()
	turns := &mockTurns{}
	st := store.NewInMemoryStore()
	rh := NewResponseHandler(svc, turns, st)

	resp := models.Response{MessageID: "SM123", From: "+15551234567", Body: "where is my order"}
	for i := 0; i < 3; i++ {
		if err := rh.ProcessResponse(context.Background(), resp); err != nil {
			t.Fatalf("delivery %d failed: %v", i, err)
		}
	}
	if turns.calls() != 1 {
		t.Errorf("flow ran %d times, want 1", turns.calls())
	}
	if len(svc.messages()) != 1 {
		t.Errorf("sent %d replies, want 1", len(svc.messages()))
	}

	// Messages without an ID are never deduplicated.
	resp.MessageID = ""
	rh.ProcessResponse(context.Background(), resp)
	rh.ProcessResponse(context.Background(), resp)
	if turns.calls() != 3 {
		t.Errorf("flow ran %d times, want 3", turns.calls())
	}
}

func TestResponseHandler_DedupFailureFailsOpen(t *testing.T) {
	svc := newMockService()
	turns := &mockTurns{}
	rh := NewResponseHandler(svc, turns, failingDedup{})

	if err := rh.ProcessResponse(context.Background(), models.Response{MessageID: "SM1", From: "+15551234567", Body: "hi"}); err != nil {
		t.Fatalf("ProcessResponse failed: %v", err)
	}
	if turns.calls() != 1 {
		t.Error("message should still be processed when the dedup log is unavailable")
	}
}

func TestResponseHandler_TurnErrorSendsApology(t *testing.T) {
	svc := newMockService()
	turns := &mockTurns{err: errors.New("session store offline")}
	rh := NewResponseHandler(svc, turns, nil)
	rh.SetErrorMessage("try later")

	err := rh.ProcessResponse(context.Background(), models.Response{From: "+15551234567", Body: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	sent := svc.messages()
	if len(sent) != 1 || sent[0].body != "try later" {
		t.Errorf("sent = %+v, want apology", sent)
	}
}

func TestResponseHandler_SendFailureLeavesMessageUnprocessed(t *testing.T) {
	svc := newMockService()
	svc.sendErr = errors.New("channel down")
	st := store.NewInMemoryStore()
	rh := NewResponseHandler(svc, &mockTurns{}, st)

	if err := rh.ProcessResponse(context.Background(), models.Response{MessageID: "SM9", From: "+15551234567", Body: "hi"}); err == nil {
		t.Fatal("expected send error")
	}
	dup, err := st.IsDuplicate("SM9")
	if err != nil || !dup {
		t.Errorf("message should be recorded even when the reply failed: dup=%v err=%v", dup, err)
	}
}

func TestResponseHandler_StartConsumesChannel(t *testing.T) {
	svc := newMockService()
	turns := &mockTurns{}
	rh := NewResponseHandler(svc, turns, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rh.Start(ctx)

	svc.receipts <- models.Receipt{To: "15551234567", Status: models.MessageStatusDelivered}
	svc.responses <- models.Response{From: "+15551234567", Body: "first"}
	svc.responses <- models.Response{From: "+15557654321", Body: "second"}

	deadline := time.After(2 * time.Second)
	for len(svc.messages()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out, sent = %+v", svc.messages())
		case <-time.After(10 * time.Millisecond):
		}
	}
	svc.Stop()
}

func TestSessionID(t *testing.T) {
	if got := SessionID("twilio", "15551234567"); got != "twilio:15551234567" {
		t.Errorf("SessionID = %q", got)
	}
}
