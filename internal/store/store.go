// Package store provides storage backends for SupportPipe.
//
// A Store persists dialogue sessions, the outbound notification outbox and the inbound
// message dedup log. Backends: in-memory, SQLite and PostgreSQL.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/SupportPipe/internal/models"
)

// SessionRepo persists dialogue sessions keyed by session ID.
type SessionRepo interface {
	// GetSession returns the stored session, or nil and no error when none exists.
	GetSession(ctx context.Context, id string) (*models.Session, error)
	// SaveSession inserts or replaces a session.
	SaveSession(ctx context.Context, sess *models.Session) error
	// DeleteSession removes a session. Deleting a missing session is not an error.
	DeleteSession(ctx context.Context, id string) error
}

// Store is the full persistence surface used by the application.
type Store interface {
	SessionRepo
	OutboxRepo
	DedupRepo
	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string
}

// Option configures a store.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return WithDSN(dsn)
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return WithDSN(dsn)
}

// DetectDSNType returns the database/sql driver name for dsn: "postgres" or "sqlite3".
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// New returns the backend selected by the DSN. An empty DSN yields an in-memory store.
func New(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Info("store.New: no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	}
	switch DetectDSNType(cfg.DSN) {
	case "postgres":
		slog.Info("store.New: using PostgreSQL store")
		return NewPostgresStore(opts...)
	case "sqlite3":
		slog.Info("store.New: using SQLite store", "path", cfg.DSN)
		return NewSQLiteStore(opts...)
	default:
		return nil, fmt.Errorf("unsupported DSN %q", cfg.DSN)
	}
}
