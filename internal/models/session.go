// Package models defines dialogue session structures for SupportPipe.
package models

import "time"

// DialogueState identifies which sub-dialogue, if any, a session is in.
type DialogueState string

// Dialogue states. A session is always in exactly one of them, so the order-status
// and contact-collection flows can never be active at the same time.
const (
	StateIdle                DialogueState = "IDLE"
	StateAwaitingOrderID     DialogueState = "AWAITING_ORDER_ID"
	StateAwaitingContactName DialogueState = "AWAITING_CONTACT_NAME"
	StateAwaitingContactMail DialogueState = "AWAITING_CONTACT_EMAIL"
	StateAwaitingContactTel  DialogueState = "AWAITING_CONTACT_PHONE"
)

// IsValid reports whether s is a known dialogue state.
func (s DialogueState) IsValid() bool {
	switch s {
	case StateIdle, StateAwaitingOrderID, StateAwaitingContactName, StateAwaitingContactMail, StateAwaitingContactTel:
		return true
	}
	return false
}

// InContactFlow reports whether s belongs to the contact-collection sub-dialogue.
func (s DialogueState) InContactFlow() bool {
	return s == StateAwaitingContactName || s == StateAwaitingContactMail || s == StateAwaitingContactTel
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ConversationMessage represents a single turn in the conversation history.
type ConversationMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ContactDraft holds the contact fields captured so far in the contact flow.
// The phone number is never kept here: it is persisted in the turn it arrives.
type ContactDraft struct {
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Session is the per-conversation dialogue state owned by the router.
type Session struct {
	ID        string                `json:"id"`
	State     DialogueState         `json:"state"`
	Contact   ContactDraft          `json:"contact"`
	History   []ConversationMessage `json:"history,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// NewSession returns a fresh idle session.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		State:     StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ClearContact leaves the contact flow, dropping every captured field.
func (s *Session) ClearContact() {
	s.State = StateIdle
	s.Contact = ContactDraft{}
}

// AppendMessage records a turn in the history.
func (s *Session) AppendMessage(role, content string) {
	s.History = append(s.History, ConversationMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// TrimHistory keeps at most max of the most recent messages. A negative max disables trimming.
func (s *Session) TrimHistory(max int) {
	if max < 0 || len(s.History) <= max {
		return
	}
	s.History = append([]ConversationMessage(nil), s.History[len(s.History)-max:]...)
}
