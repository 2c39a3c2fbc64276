package store

import (
	"context"
	"errors"

	"github.com/nhle/disruption-desk/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ExportRecord describes one ticket export written to disk.
type ExportRecord struct {
	ID          string
	Format      string
	Path        string
	TicketCount int
	OperatorID  string
	CreatedAt   model.Timestamp
}

// Store defines the local persistence used by the client: the values
// that make up a logged-in session and the export history. Tickets and
// notifications are deliberately absent; the backend owns the former and
// the latter live only in memory.
type Store interface {
	// === Session values ===

	SetSessionValue(ctx context.Context, key, value string) error
	GetSessionValue(ctx context.Context, key string) (string, error)
	DeleteSessionValue(ctx context.Context, key string) error

	// === Export history ===

	RecordExport(ctx context.Context, rec ExportRecord) error
	ListExports(ctx context.Context, limit int) ([]ExportRecord, error)
}
