package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/BTreeMap/SupportPipe/internal/store"
)

// StoreBasedStateManager implements StateManager using a store backend.
type StoreBasedStateManager struct {
	store store.SessionRepo
}

// Compile-time check that StoreBasedStateManager implements StateManager.
var _ StateManager = (*StoreBasedStateManager)(nil)

// NewStoreBasedStateManager creates a new StateManager backed by a session store.
func NewStoreBasedStateManager(st store.SessionRepo) *StoreBasedStateManager {
	return &StoreBasedStateManager{store: st}
}

// LoadSession returns the stored session or a new idle one.
// A stored session with an unknown state is returned to idle.
func (sm *StoreBasedStateManager) LoadSession(ctx context.Context, id string) (*models.Session, error) {
	sess, err := sm.store.GetSession(ctx, id)
	if err != nil {
		slog.Error("StateManager.LoadSession: store error", "sessionID", id, "error", err)
		return nil, err
	}
	if sess == nil {
		slog.Debug("StateManager.LoadSession: new session", "sessionID", id)
		return models.NewSession(id), nil
	}
	if !sess.State.IsValid() {
		slog.Warn("StateManager.LoadSession: unknown state, resetting to idle", "sessionID", id, "state", sess.State)
		sess.ClearContact()
	}
	return sess, nil
}

// SaveSession stamps UpdatedAt and persists the session.
func (sm *StoreBasedStateManager) SaveSession(ctx context.Context, sess *models.Session) error {
	sess.UpdatedAt = time.Now()
	if err := sm.store.SaveSession(ctx, sess); err != nil {
		slog.Error("StateManager.SaveSession: store error", "sessionID", sess.ID, "state", sess.State, "error", err)
		return err
	}
	slog.Debug("StateManager.SaveSession: saved", "sessionID", sess.ID, "state", sess.State, "historyLen", len(sess.History))
	return nil
}

// ResetSession deletes the stored session.
func (sm *StoreBasedStateManager) ResetSession(ctx context.Context, id string) error {
	if err := sm.store.DeleteSession(ctx, id); err != nil {
		slog.Error("StateManager.ResetSession: store error", "sessionID", id, "error", err)
		return err
	}
	slog.Debug("StateManager.ResetSession: reset", "sessionID", id)
	return nil
}
