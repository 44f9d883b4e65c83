// Package records provides the file-backed order and contact stores used by the support flows.
//
// Both stores are CSV files with a header row. The order store is read-only and re-read on
// every lookup; the contact store is append-only.
package records

import (
	"context"
	"errors"

	"github.com/BTreeMap/SupportPipe/internal/models"
)

// EmptyStatus is returned by Lookup when the matching order row has a blank status.
const EmptyStatus = "empty"

// Column names.
const (
	ColumnOrderID  = "order_id"
	ColumnStatus   = "status"
	ColumnFullName = "full_name"
	ColumnEmail    = "email"
	ColumnPhone    = "phone"
)

var (
	// ErrStoreNotFound indicates the order store file does not exist.
	ErrStoreNotFound = errors.New("order store not found")
	// ErrStoreMalformed indicates the order store could not be parsed as CSV.
	ErrStoreMalformed = errors.New("order store malformed")
	// ErrSchema indicates the order store header lacks a required column.
	ErrSchema = errors.New("order store missing required column")
	// ErrOrderNotFound indicates no row matched the requested order ID.
	ErrOrderNotFound = errors.New("order not found")
	// ErrWriteLocked indicates the contact store could not be opened for append.
	ErrWriteLocked = errors.New("contact store locked or not writable")
)

// OrderStore looks up order status by order ID.
type OrderStore interface {
	// Lookup returns the status of orderID, EmptyStatus for a blank status,
	// or one of ErrStoreNotFound, ErrStoreMalformed, ErrSchema, ErrOrderNotFound.
	Lookup(ctx context.Context, orderID string) (string, error)
}

// ContactStore persists completed contact records.
type ContactStore interface {
	// Append writes rec to the store. It returns an error wrapping ErrWriteLocked
	// when the store cannot be opened for writing.
	Append(ctx context.Context, rec models.ContactRecord) error
}
