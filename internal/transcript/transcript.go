// Package transcript appends a human-readable conversation log to a file.
//
// Each turn is written as "YYYY-MM-DD HH:MM: <role>: <text>", with a blank line after
// every assistant line. Reset writes a session separator.
package transcript

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BTreeMap/SupportPipe/internal/models"
)

// SessionSeparator is written when a session is reset.
const SessionSeparator = "----- New Session -----"

const timestampLayout = "2006-01-02 15:04"

// Recorder receives conversation turns.
type Recorder interface {
	Record(sessionID, role, text string)
	Separator(sessionID string)
}

// Logger writes transcript lines to a file. Writes are serialized.
type Logger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// Compile-time check that Logger implements Recorder.
var _ Recorder = (*Logger)(nil)

// NewLogger creates a Logger appending to path. The parent directory is created if missing.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}
	return &Logger{path: path, now: time.Now}, nil
}

// Path returns the log file path.
func (l *Logger) Path() string {
	return l.path
}

// Record appends one turn. Write failures are logged, never returned.
func (l *Logger) Record(sessionID, role, text string) {
	line := fmt.Sprintf("%s: %s: %s\n", l.now().Format(timestampLayout), role, text)
	if role == models.RoleAssistant {
		line += "\n"
	}
	l.write(sessionID, line)
}

// Separator appends the session separator line.
func (l *Logger) Separator(sessionID string) {
	l.write(sessionID, SessionSeparator+"\n")
}

func (l *Logger) write(sessionID, s string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Error("Logger.write: failed to open transcript", "path", l.path, "sessionID", sessionID, "error", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(s); err != nil {
		slog.Error("Logger.write: failed to append transcript", "path", l.path, "sessionID", sessionID, "error", err)
	}
}

// Discard is a Recorder that drops everything.
type Discard struct{}

func (Discard) Record(string, string, string) {}
func (Discard) Separator(string)              {}
