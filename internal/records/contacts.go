package records

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"syscall"

	"github.com/BTreeMap/SupportPipe/internal/models"
)

// DefaultFilePermissions is the mode used when the contact store is created.
const DefaultFilePermissions = 0644

var contactHeader = []string{ColumnFullName, ColumnEmail, ColumnPhone}

// CSVContactStore appends contact records to a CSV file.
// Appends are serialized within the process by a mutex and across processes by an
// advisory exclusive flock held for the duration of the write.
type CSVContactStore struct {
	path string
	mu   sync.Mutex
}

// NewCSVContactStore creates a contact store backed by the CSV file at path.
func NewCSVContactStore(path string) *CSVContactStore {
	return &CSVContactStore{path: path}
}

// Path returns the backing file path.
func (s *CSVContactStore) Path() string {
	return s.path
}

// Append writes rec as a new row, writing the header first if the file is new.
func (s *CSVContactStore) Append(ctx context.Context, rec models.ContactRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, DefaultFilePermissions)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			slog.Warn("CSVContactStore.Append: contact store not writable", "path", s.path, "error", err)
			return fmt.Errorf("%w: %v", ErrWriteLocked, err)
		}
		slog.Error("CSVContactStore.Append: failed to open contact store", "path", s.path, "error", err)
		return fmt.Errorf("open contact store %s: %w", s.path, err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		slog.Warn("CSVContactStore.Append: contact store locked by another process", "path", s.path, "error", err)
		return fmt.Errorf("%w: %v", ErrWriteLocked, err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat contact store %s: %w", s.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(contactHeader); err != nil {
			return fmt.Errorf("write contact store header: %w", err)
		}
	}
	if err := w.Write([]string{rec.FullName, rec.Email, rec.Phone}); err != nil {
		return fmt.Errorf("write contact record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		slog.Error("CSVContactStore.Append: flush failed", "path", s.path, "error", err)
		return fmt.Errorf("flush contact store: %w", err)
	}

	slog.Info("CSVContactStore.Append: contact record saved", "path", s.path)
	return nil
}
