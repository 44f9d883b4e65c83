// Package api provides the HTTP server for SupportPipe.
//
// It serves the web chat turn and reset endpoints, a health check, and, when the
// Twilio channel is enabled, the inbound Twilio webhook.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = ":8080"
	// SessionCookieName carries the web chat session ID.
	SessionCookieName = "supportpipe_session"
	// WebSessionPrefix namespaces web chat sessions next to messaging channel sessions.
	WebSessionPrefix = "web:"
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultReadHeaderTimeout bounds how long a client may take to send headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// sessionCookieMaxAge keeps the web session for a day of inactivity.
	sessionCookieMaxAge = 24 * 60 * 60
)

// Dialogue is the support flow as seen by the HTTP layer.
type Dialogue interface {
	ProcessTurn(ctx context.Context, sessionID, text string) (string, error)
	Reset(ctx context.Context, sessionID string) error
	Welcome(ctx context.Context, sessionID string) (string, error)
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr          string
	SecureCookies bool
	TwilioWebhook http.HandlerFunc
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithSecureCookies marks the session cookie Secure (HTTPS only).
func WithSecureCookies(secure bool) Option {
	return func(o *Opts) { o.SecureCookies = secure }
}

// WithTwilioWebhook mounts h at POST /twilio/webhook.
func WithTwilioWebhook(h http.HandlerFunc) Option {
	return func(o *Opts) { o.TwilioWebhook = h }
}

// Server serves the SupportPipe HTTP endpoints.
type Server struct {
	dialogue      Dialogue
	addr          string
	secureCookies bool
	twilioWebhook http.HandlerFunc
	started       time.Time
}

// NewServer creates a server around the dialogue.
func NewServer(dialogue Dialogue, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		dialogue:      dialogue,
		addr:          cfg.Addr,
		secureCookies: cfg.SecureCookies,
		twilioWebhook: cfg.TwilioWebhook,
		started:       time.Now(),
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.welcomeHandler)
	mux.HandleFunc("/get", s.chatHandler)
	mux.HandleFunc("/reset", s.resetHandler)
	mux.HandleFunc("/health", s.healthHandler)
	if s.twilioWebhook != nil {
		mux.HandleFunc("/twilio/webhook", s.twilioWebhook)
		slog.Debug("Server.Handler: Twilio webhook mounted", "path", "/twilio/webhook")
	}
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Server.Run: shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return nil
}
