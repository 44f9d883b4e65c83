// Package flow implements the support dialogue: intent routing, the order-status and
// contact-collection sub-dialogues, and the session state they share.
package flow

import (
	"context"

	"github.com/BTreeMap/SupportPipe/internal/config"
	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/BTreeMap/SupportPipe/internal/records"
	"github.com/BTreeMap/SupportPipe/internal/transcript"
)

// StateManager loads and persists dialogue sessions.
type StateManager interface {
	// LoadSession returns the session for id, or a fresh idle session if none exists.
	LoadSession(ctx context.Context, id string) (*models.Session, error)

	// SaveSession persists the session.
	SaveSession(ctx context.Context, sess *models.Session) error

	// ResetSession discards everything stored for id.
	ResetSession(ctx context.Context, id string) error
}

// HandoffNotifier is told about every contact record saved by the contact flow.
type HandoffNotifier interface {
	NotifyHandoff(ctx context.Context, sessionID string, rec models.ContactRecord) error
}

// Dependencies holds everything the support flow needs.
type Dependencies struct {
	StateManager StateManager
	Classifier   IntentClassifier
	Responder    Responder
	Orders       records.OrderStore
	Contacts     records.ContactStore
	Messages     *config.Messages
	// Optional.
	Transcript transcript.Recorder
	Notifier   HandoffNotifier
}
