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

// ContactFlow collects name, email and phone for a human handoff.
type ContactFlow struct {
	contacts records.ContactStore
	notifier HandoffNotifier
	msgs     *config.Messages
}

// NewContactFlow creates the contact-collection sub-dialogue. notifier may be nil.
func NewContactFlow(contacts records.ContactStore, notifier HandoffNotifier, msgs *config.Messages) *ContactFlow {
	return &ContactFlow{contacts: contacts, notifier: notifier, msgs: msgs}
}

// Start enters the flow and returns the handoff introduction.
func (f *ContactFlow) Start(sess *models.Session) string {
	sess.Contact = models.ContactDraft{}
	sess.State = models.StateAwaitingContactName
	return f.msgs.WithCancellationNote(f.msgs.SwitchToRep.Intro)
}

// Handle consumes the field the session is waiting for.
func (f *ContactFlow) Handle(ctx context.Context, sess *models.Session, text string) string {
	switch sess.State {
	case models.StateAwaitingContactName:
		sess.Contact.FullName = text
		sess.State = models.StateAwaitingContactMail
		return f.msgs.WithCancellationNote(f.msgs.SwitchToRep.ProvideEmail)

	case models.StateAwaitingContactMail:
		if !validation.IsEmail(text) {
			slog.Debug("ContactFlow.Handle: invalid email", "sessionID", sess.ID)
			return f.msgs.WithCancellationNote(f.msgs.InvalidEmail(text))
		}
		sess.Contact.Email = text
		sess.State = models.StateAwaitingContactTel
		return f.msgs.WithCancellationNote(f.msgs.SwitchToRep.ProvidePhone)

	case models.StateAwaitingContactTel:
		if !validation.IsPhone(text) {
			slog.Debug("ContactFlow.Handle: invalid phone", "sessionID", sess.ID)
			return f.msgs.WithCancellationNote(f.msgs.InvalidPhone(text))
		}
		return f.save(ctx, sess, text)
	}

	slog.Error("ContactFlow.Handle: session not in contact flow", "sessionID", sess.ID, "state", sess.State)
	sess.ClearContact()
	return f.msgs.SwitchToRep.CancelAck
}

// save persists the record and always leaves the flow, even when the write fails.
func (f *ContactFlow) save(ctx context.Context, sess *models.Session, phone string) string {
	rec := models.ContactRecord{FullName: sess.Contact.FullName, Email: sess.Contact.Email, Phone: phone}
	sess.ClearContact()

	if err := f.contacts.Append(ctx, rec); err != nil {
		if errors.Is(err, records.ErrWriteLocked) {
			slog.Warn("ContactFlow.save: contact store locked", "sessionID", sess.ID, "error", err)
		} else {
			slog.Error("ContactFlow.save: contact store write failed", "sessionID", sess.ID, "error", err)
		}
		return f.msgs.Errors.ContactSaveLocked
	}
	slog.Info("ContactFlow.save: contact saved", "sessionID", sess.ID)

	if f.notifier != nil {
		if err := f.notifier.NotifyHandoff(ctx, sess.ID, rec); err != nil {
			slog.Warn("ContactFlow.save: handoff notification failed", "sessionID", sess.ID, "error", err)
		}
	}
	return f.msgs.SwitchToRep.Saved
}
