package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/BTreeMap/SupportPipe/internal/testutil"
)

const minimalYAML = `
default:
  bot_welcome: "Hi"
  bot_prompt: "You are helpful."
  cancellation_note: "(type cancel)"
order_status:
  order_id_inquiry: "Order ID?"
  wrong_pattern: "Bad format."
  not_found: "Not found."
  unknown: "Unknown."
  cancel_ack: "Understood."
  is_order_status_request_prompt: "order?"
  is_status_relevant_prompt: "relevant?"
switch_to_rep:
  intro: "Name?"
  provide_email: "Email?"
  provide_phone: "Phone?"
  invalid_email: "Bad email {input}."
  invalid_phone: "Bad phone {input}."
  saved: "Saved."
  cancel_ack: "Certainly."
  is_switch_to_human_request_prompt: "human?"
errors:
  order_store_not_found: "E1"
  order_store_malformed: "E2"
  order_store_missing_column: "E3"
  contact_save_locked: "E4"
  no_internet: "E5"
`

func TestDefault_IsValid(t *testing.T) {
	m, err := Default()
	if err != nil {
		t.Fatalf("built-in catalogue failed validation: %v", err)
	}
	if !strings.Contains(m.Default.BotWelcome, "Welcome to E-Commerce Support Bot!") {
		t.Errorf("BotWelcome = %q", m.Default.BotWelcome)
	}
	if !strings.Contains(m.OrderStatus.OrderIDInquiry, "Could you please provide your order ID in the following format") {
		t.Errorf("OrderIDInquiry = %q", m.OrderStatus.OrderIDInquiry)
	}
	if !strings.HasPrefix(m.OrderStatus.CancelAck, "Understood") {
		t.Errorf("order cancel ack = %q, want Understood…", m.OrderStatus.CancelAck)
	}
	if !strings.HasPrefix(m.SwitchToRep.CancelAck, "Certainly") {
		t.Errorf("contact cancel ack = %q, want Certainly…", m.SwitchToRep.CancelAck)
	}
	if m.HistoryWindow() != DefaultHistoryLimit || m.StoredHistoryCap() != DefaultMaxStoredHistory {
		t.Errorf("dialogue settings = %d/%d", m.HistoryWindow(), m.StoredHistoryCap())
	}
}

func TestParse_AppliesDefaults(t *testing.T) {
	m, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.OrderStatus.StatusReply != DefaultStatusReply {
		t.Errorf("StatusReply = %q, want %q", m.OrderStatus.StatusReply, DefaultStatusReply)
	}
	if m.HistoryWindow() != DefaultHistoryLimit {
		t.Errorf("HistoryWindow = %d, want %d", m.HistoryWindow(), DefaultHistoryLimit)
	}
	if m.StoredHistoryCap() != DefaultMaxStoredHistory {
		t.Errorf("StoredHistoryCap = %d, want %d", m.StoredHistoryCap(), DefaultMaxStoredHistory)
	}
}

func TestParse_ExplicitZeroHistoryLimit(t *testing.T) {
	m, err := Parse([]byte(minimalYAML + "dialogue:\n  history_limit: 0\n  max_stored_history: -1\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.HistoryWindow() != 0 {
		t.Errorf("HistoryWindow = %d, want 0", m.HistoryWindow())
	}
	if m.StoredHistoryCap() != -1 {
		t.Errorf("StoredHistoryCap = %d, want -1", m.StoredHistoryCap())
	}
}

func TestParse_ReportsEveryMissingKey(t *testing.T) {
	_, err := Parse([]byte("default:\n  bot_welcome: hi\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, key := range []string{
		"default.bot_prompt",
		"default.cancellation_note",
		"order_status.cancel_ack",
		"switch_to_rep.cancel_ack",
		"errors.no_internet",
	} {
		if !strings.Contains(err.Error(), key+" is required") {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
	if strings.Contains(err.Error(), "default.bot_welcome") {
		t.Errorf("error mentions a key that was provided: %v", err)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "default: [", "config: parse"},
		{"negative history limit", minimalYAML + "dialogue:\n  history_limit: -2\n", "dialogue.history_limit"},
		{"negative stored history", minimalYAML + "dialogue:\n  max_stored_history: -5\n", "dialogue.max_stored_history"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParse_StatusReplyNeedsPlaceholder(t *testing.T) {
	yml := strings.Replace(minimalYAML, "  cancel_ack: \"Understood.\"\n", "  cancel_ack: \"Understood.\"\n  status_reply: \"Done.\"\n", 1)
	_, err := Parse([]byte(yml))
	if err == nil || !strings.Contains(err.Error(), "order_status.status_reply must contain {status}") {
		t.Errorf("expected placeholder error, got %v", err)
	}
}

func TestRenderHelpers(t *testing.T) {
	m, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.StatusReply("Shipped"); got != "Your order status is: Shipped." {
		t.Errorf("StatusReply = %q", got)
	}
	if got := m.InvalidEmail("foo"); got != "Bad email foo." {
		t.Errorf("InvalidEmail = %q", got)
	}
	if got := m.InvalidPhone("123"); got != "Bad phone 123." {
		t.Errorf("InvalidPhone = %q", got)
	}
	if got := m.WithCancellationNote("Name?"); got != "Name?\n(type cancel)" {
		t.Errorf("WithCancellationNote = %q", got)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yaml")
	m, err := Load(testutil.WriteFile(t, path, minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Default.BotWelcome != "Hi" {
		t.Errorf("BotWelcome = %q", m.Default.BotWelcome)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadOrDefault_EmptyPathUsesBuiltIn(t *testing.T) {
	m, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Default.BotWelcome == "" {
		t.Error("expected built-in welcome message")
	}
}
