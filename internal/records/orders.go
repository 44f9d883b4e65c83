package records

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// CSVOrderStore reads order rows from a CSV file with order_id and status columns.
// The file is opened and parsed on every Lookup, so edits are visible immediately.
type CSVOrderStore struct {
	path string
}

// NewCSVOrderStore creates an order store backed by the CSV file at path.
func NewCSVOrderStore(path string) *CSVOrderStore {
	return &CSVOrderStore{path: path}
}

// Path returns the backing file path.
func (s *CSVOrderStore) Path() string {
	return s.path
}

// Lookup scans the store for orderID and returns its status.
func (s *CSVOrderStore) Lookup(ctx context.Context, orderID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	slog.Debug("CSVOrderStore.Lookup: reading order store", "path", s.path, "orderID", orderID)

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("CSVOrderStore.Lookup: order store missing", "path", s.path)
			return "", fmt.Errorf("%w: %s", ErrStoreNotFound, s.path)
		}
		slog.Error("CSVOrderStore.Lookup: failed to open order store", "path", s.path, "error", err)
		return "", fmt.Errorf("open order store %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		slog.Warn("CSVOrderStore.Lookup: order store has no header", "path", s.path)
		return "", fmt.Errorf("%w: empty file %s", ErrSchema, s.path)
	}
	if err != nil {
		slog.Warn("CSVOrderStore.Lookup: failed to parse header", "path", s.path, "error", err)
		return "", fmt.Errorf("%w: %v", ErrStoreMalformed, err)
	}

	idCol, statusCol := -1, -1
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		switch name {
		case ColumnOrderID:
			idCol = i
		case ColumnStatus:
			statusCol = i
		}
	}
	if idCol < 0 || statusCol < 0 {
		slog.Warn("CSVOrderStore.Lookup: required column missing", "path", s.path, "header", header)
		return "", fmt.Errorf("%w: need %s and %s", ErrSchema, ColumnOrderID, ColumnStatus)
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			slog.Warn("CSVOrderStore.Lookup: failed to parse row", "path", s.path, "error", err)
			return "", fmt.Errorf("%w: %v", ErrStoreMalformed, err)
		}
		if row[idCol] != orderID {
			continue
		}
		if row[statusCol] == "" {
			slog.Debug("CSVOrderStore.Lookup: order found with blank status", "orderID", orderID)
			return EmptyStatus, nil
		}
		slog.Debug("CSVOrderStore.Lookup: order found", "orderID", orderID, "status", row[statusCol])
		return row[statusCol], nil
	}

	slog.Debug("CSVOrderStore.Lookup: order not found", "orderID", orderID)
	return "", ErrOrderNotFound
}
