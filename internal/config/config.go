// Package config provides the YAML message catalogue that supplies every user-facing
// string and classifier prompt used by the support flows.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Placeholders substituted at reply time.
const (
	StatusPlaceholder = "{status}"
	InputPlaceholder  = "{input}"
)

// Dialogue window defaults.
const (
	DefaultHistoryLimit     = 30
	DefaultMaxStoredHistory = 100
	DefaultStatusReply      = "Your order status is: " + StatusPlaceholder + "."
)

//go:embed default_messages.yaml
var defaultCatalogue []byte

// Messages is the top-level message catalogue.
type Messages struct {
	Default     DefaultMessages     `yaml:"default"`
	OrderStatus OrderStatusMessages `yaml:"order_status"`
	SwitchToRep SwitchToRepMessages `yaml:"switch_to_rep"`
	Errors      ErrorMessages       `yaml:"errors"`
	Dialogue    DialogueSettings    `yaml:"dialogue"`
}

// DefaultMessages holds the greeting, persona prompt and cancellation hint.
type DefaultMessages struct {
	BotWelcome       string `yaml:"bot_welcome"`
	BotPrompt        string `yaml:"bot_prompt"`
	CancellationNote string `yaml:"cancellation_note"`
}

// OrderStatusMessages holds the order-status flow texts and classifier prompts.
type OrderStatusMessages struct {
	OrderIDInquiry             string `yaml:"order_id_inquiry"`
	WrongPattern               string `yaml:"wrong_pattern"`
	NotFound                   string `yaml:"not_found"`
	Unknown                    string `yaml:"unknown"`
	StatusReply                string `yaml:"status_reply"`
	CancelAck                  string `yaml:"cancel_ack"`
	IsOrderStatusRequestPrompt string `yaml:"is_order_status_request_prompt"`
	IsStatusRelevantPrompt     string `yaml:"is_status_relevant_prompt"`
}

// SwitchToRepMessages holds the contact-collection flow texts and classifier prompt.
type SwitchToRepMessages struct {
	Intro                        string `yaml:"intro"`
	ProvideEmail                 string `yaml:"provide_email"`
	ProvidePhone                 string `yaml:"provide_phone"`
	InvalidEmail                 string `yaml:"invalid_email"`
	InvalidPhone                 string `yaml:"invalid_phone"`
	Saved                        string `yaml:"saved"`
	CancelAck                    string `yaml:"cancel_ack"`
	IsSwitchToHumanRequestPrompt string `yaml:"is_switch_to_human_request_prompt"`
}

// ErrorMessages holds the texts shown when a collaborator fails.
type ErrorMessages struct {
	OrderStoreNotFound      string `yaml:"order_store_not_found"`
	OrderStoreMalformed     string `yaml:"order_store_malformed"`
	OrderStoreMissingColumn string `yaml:"order_store_missing_column"`
	ContactSaveLocked       string `yaml:"contact_save_locked"`
	NoInternet              string `yaml:"no_internet"`
}

// DialogueSettings bounds the conversation history.
// HistoryLimit is the number of recent messages sent to the generator (-1 unlimited, 0 none).
// MaxStoredHistory caps the history kept on the session (-1 unlimited).
type DialogueSettings struct {
	HistoryLimit     *int `yaml:"history_limit"`
	MaxStoredHistory *int `yaml:"max_stored_history"`
}

// Load reads a YAML catalogue from path and returns validated Messages.
func Load(path string) (*Messages, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOrDefault loads path, or the built-in catalogue when path is empty.
func LoadOrDefault(path string) (*Messages, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

// Default returns the built-in catalogue.
func Default() (*Messages, error) {
	return Parse(defaultCatalogue)
}

// Parse unmarshals YAML bytes into validated Messages.
func Parse(data []byte) (*Messages, error) {
	var m Messages
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	m.applyDefaults()
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// HistoryWindow returns the effective generator history window.
func (m *Messages) HistoryWindow() int {
	return *m.Dialogue.HistoryLimit
}

// StoredHistoryCap returns the effective cap on persisted history.
func (m *Messages) StoredHistoryCap() int {
	return *m.Dialogue.MaxStoredHistory
}

// StatusReply renders the order status reply for status.
func (m *Messages) StatusReply(status string) string {
	return strings.ReplaceAll(m.OrderStatus.StatusReply, StatusPlaceholder, status)
}

// InvalidEmail renders the invalid email reply echoing input.
func (m *Messages) InvalidEmail(input string) string {
	return strings.ReplaceAll(m.SwitchToRep.InvalidEmail, InputPlaceholder, input)
}

// InvalidPhone renders the invalid phone reply echoing input.
func (m *Messages) InvalidPhone(input string) string {
	return strings.ReplaceAll(m.SwitchToRep.InvalidPhone, InputPlaceholder, input)
}

// WithCancellationNote appends the cancellation hint on its own line.
func (m *Messages) WithCancellationNote(text string) string {
	return text + "\n" + m.Default.CancellationNote
}

func (m *Messages) applyDefaults() {
	if m.OrderStatus.StatusReply == "" {
		m.OrderStatus.StatusReply = DefaultStatusReply
	}
	if m.Dialogue.HistoryLimit == nil {
		v := DefaultHistoryLimit
		m.Dialogue.HistoryLimit = &v
	}
	if m.Dialogue.MaxStoredHistory == nil {
		v := DefaultMaxStoredHistory
		m.Dialogue.MaxStoredHistory = &v
	}
}

type requiredKey struct {
	name  string
	value string
}

func (m *Messages) requiredKeys() []requiredKey {
	return []requiredKey{
		{"default.bot_welcome", m.Default.BotWelcome},
		{"default.bot_prompt", m.Default.BotPrompt},
		{"default.cancellation_note", m.Default.CancellationNote},
		{"order_status.order_id_inquiry", m.OrderStatus.OrderIDInquiry},
		{"order_status.wrong_pattern", m.OrderStatus.WrongPattern},
		{"order_status.not_found", m.OrderStatus.NotFound},
		{"order_status.unknown", m.OrderStatus.Unknown},
		{"order_status.status_reply", m.OrderStatus.StatusReply},
		{"order_status.cancel_ack", m.OrderStatus.CancelAck},
		{"order_status.is_order_status_request_prompt", m.OrderStatus.IsOrderStatusRequestPrompt},
		{"order_status.is_status_relevant_prompt", m.OrderStatus.IsStatusRelevantPrompt},
		{"switch_to_rep.intro", m.SwitchToRep.Intro},
		{"switch_to_rep.provide_email", m.SwitchToRep.ProvideEmail},
		{"switch_to_rep.provide_phone", m.SwitchToRep.ProvidePhone},
		{"switch_to_rep.invalid_email", m.SwitchToRep.InvalidEmail},
		{"switch_to_rep.invalid_phone", m.SwitchToRep.InvalidPhone},
		{"switch_to_rep.saved", m.SwitchToRep.Saved},
		{"switch_to_rep.cancel_ack", m.SwitchToRep.CancelAck},
		{"switch_to_rep.is_switch_to_human_request_prompt", m.SwitchToRep.IsSwitchToHumanRequestPrompt},
		{"errors.order_store_not_found", m.Errors.OrderStoreNotFound},
		{"errors.order_store_malformed", m.Errors.OrderStoreMalformed},
		{"errors.order_store_missing_column", m.Errors.OrderStoreMissingColumn},
		{"errors.contact_save_locked", m.Errors.ContactSaveLocked},
		{"errors.no_internet", m.Errors.NoInternet},
	}
}

// validate reports every missing key at once.
func (m *Messages) validate() error {
	var errs []string
	for _, k := range m.requiredKeys() {
		if strings.TrimSpace(k.value) == "" {
			errs = append(errs, k.name+" is required")
		}
	}
	if m.OrderStatus.StatusReply != "" && !strings.Contains(m.OrderStatus.StatusReply, StatusPlaceholder) {
		errs = append(errs, "order_status.status_reply must contain "+StatusPlaceholder)
	}
	if *m.Dialogue.HistoryLimit < -1 {
		errs = append(errs, "dialogue.history_limit must be -1 or greater")
	}
	if *m.Dialogue.MaxStoredHistory < -1 {
		errs = append(errs, "dialogue.max_stored_history must be -1 or greater")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
