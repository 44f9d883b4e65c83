package messaging

import (
	"context"
	"errors"
	"sync"

	"github.com/BTreeMap/SupportPipe/internal/models"
)

// mockService implements Service for testing.
type mockService struct {
	mu        sync.Mutex
	sent      []sentMessage
	sendErr   error
	receipts  chan models.Receipt
	responses chan models.Response
}

type sentMessage struct {
	to, body string
}

func newMockService() *mockService {
	return &mockService{
		receipts:  make(chan models.Receipt, 10),
		responses: make(chan models.Response, 10),
	}
}

func (m *mockService) Name() string { return "mock" }

func (m *mockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone("mock", recipient)
}

func (m *mockService) SendMessage(ctx context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMessage{to: to, body: body})
	return nil
}

func (m *mockService) Start(ctx context.Context) error { return nil }

func (m *mockService) Stop() error {
	close(m.receipts)
	close(m.responses)
	return nil
}

func (m *mockService) Receipts() <-chan models.Receipt   { return m.receipts }
func (m *mockService) Responses() <-chan models.Response { return m.responses }

func (m *mockService) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

// mockTurns echoes the text and records the session IDs it saw.
type mockTurns struct {
	mu       sync.Mutex
	sessions []string
	err      error
}

func (m *mockTurns) ProcessTurn(ctx context.Context, sessionID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, sessionID)
	if m.err != nil {
		return "", m.err
	}
	return "echo: " + text, nil
}

func (m *mockTurns) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// failingDedup reports an error on every call.
type failingDedup struct{}

func (failingDedup) IsDuplicate(string) (bool, error)            { return false, errors.New("db down") }
func (failingDedup) RecordInbound(string, string) (bool, error) { return false, errors.New("db down") }
func (failingDedup) MarkProcessed(string) error                  { return errors.New("db down") }
