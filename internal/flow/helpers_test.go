package flow

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/BTreeMap/SupportPipe/internal/config"
	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/BTreeMap/SupportPipe/internal/records"
	"github.com/BTreeMap/SupportPipe/internal/store"
	"github.com/BTreeMap/SupportPipe/internal/testutil"
)

// mockClassifier answers by prompt. Prompts without an entry answer no.
type mockClassifier struct {
	mu      sync.Mutex
	answers map[string]func(text string) bool
	calls   []string
}

func newMockClassifier() *mockClassifier {
	return &mockClassifier{answers: make(map[string]func(string) bool)}
}

func (m *mockClassifier) on(prompt string, fn func(text string) bool) *mockClassifier {
	m.answers[prompt] = fn
	return m
}

func (m *mockClassifier) Matches(ctx context.Context, prompt, text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, prompt)
	if fn, ok := m.answers[prompt]; ok {
		return fn(text)
	}
	return false
}

func (m *mockClassifier) called(prompt string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.calls {
		if p == prompt {
			n++
		}
	}
	return n
}

func always(answer bool) func(string) bool {
	return func(string) bool { return answer }
}

// mockResponder returns a fixed reply and remembers the history it was given.
type mockResponder struct {
	mu      sync.Mutex
	reply   string
	history []models.ConversationMessage
	calls   int
}

func (m *mockResponder) Respond(ctx context.Context, history []models.ConversationMessage) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.history = append([]models.ConversationMessage(nil), history...)
	return m.reply
}

// mockRecorder captures transcript lines.
type mockRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (m *mockRecorder) Record(sessionID, role, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, role+": "+text)
}

func (m *mockRecorder) Separator(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, "separator")
}

// mockNotifier records handoffs.
type mockNotifier struct {
	mu      sync.Mutex
	records []models.ContactRecord
	err     error
}

func (m *mockNotifier) NotifyHandoff(ctx context.Context, sessionID string, rec models.ContactRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

// failingContacts always fails to append.
type failingContacts struct{ err error }

func (f failingContacts) Append(ctx context.Context, rec models.ContactRecord) error { return f.err }

type testEnv struct {
	flow       *SupportFlow
	msgs       *config.Messages
	classifier *mockClassifier
	responder  *mockResponder
	recorder   *mockRecorder
	notifier   *mockNotifier
	store      *store.InMemoryStore
	ordersPath string
	contacts   string
}

type envOption func(*Dependencies, *testEnv)

func withContacts(cs records.ContactStore) envOption {
	return func(d *Dependencies, _ *testEnv) { d.Contacts = cs }
}

const defaultOrders = "order_id,status\n123-4567890,Shipped\n111-1111111,\n222-2222222,banana\n"

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	msgs, err := config.Default()
	if err != nil {
		t.Fatalf("failed to load default messages: %v", err)
	}
	dir := t.TempDir()
	env := &testEnv{
		msgs:       msgs,
		classifier: newMockClassifier(),
		responder:  &mockResponder{reply: "We offer free returns within 30 days."},
		recorder:   &mockRecorder{},
		notifier:   &mockNotifier{},
		store:      store.NewInMemoryStore(),
		ordersPath: filepath.Join(dir, "orders.csv"),
		contacts:   filepath.Join(dir, "contacts.csv"),
	}
	testutil.WriteFile(t, env.ordersPath, defaultOrders)

	// The relevance check accepts anything but "banana" unless a test overrides it.
	env.classifier.on(msgs.OrderStatus.IsStatusRelevantPrompt, func(s string) bool { return s != "banana" })

	deps := Dependencies{
		StateManager: NewStoreBasedStateManager(env.store),
		Classifier:   env.classifier,
		Responder:    env.responder,
		Orders:       records.NewCSVOrderStore(env.ordersPath),
		Contacts:     records.NewCSVContactStore(env.contacts),
		Messages:     msgs,
		Transcript:   env.recorder,
		Notifier:     env.notifier,
	}
	for _, opt := range opts {
		opt(&deps, env)
	}
	f, err := NewSupportFlow(deps)
	if err != nil {
		t.Fatalf("NewSupportFlow failed: %v", err)
	}
	env.flow = f
	return env
}

func (e *testEnv) wantsHuman(fn func(string) bool) {
	e.classifier.on(e.msgs.SwitchToRep.IsSwitchToHumanRequestPrompt, fn)
}

func (e *testEnv) wantsOrder(fn func(string) bool) {
	e.classifier.on(e.msgs.OrderStatus.IsOrderStatusRequestPrompt, fn)
}

func (e *testEnv) turn(t *testing.T, sessionID, text string) string {
	t.Helper()
	reply, err := e.flow.ProcessTurn(context.Background(), sessionID, text)
	if err != nil {
		t.Fatalf("ProcessTurn(%q) failed: %v", text, err)
	}
	return reply
}

func (e *testEnv) state(t *testing.T, sessionID string) models.DialogueState {
	t.Helper()
	st, err := e.flow.State(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	return st
}

func (e *testEnv) session(t *testing.T, sessionID string) *models.Session {
	t.Helper()
	sess, err := e.store.GetSession(context.Background(), sessionID)
	if err != nil || sess == nil {
		t.Fatalf("session %s not stored: %v", sessionID, err)
	}
	return sess
}
