package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rota/rota/pkg/calendar"
)

type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// UpdateStatus persists the undone/redone flags and timestamps.
	UpdateStatus(ctx context.Context, r *Record) error
	// ListRecent returns up to limit records created after cutoff, newest
	// first.
	ListRecent(ctx context.Context, cutoff time.Time, limit int) ([]*Record, error)
}

// AssignmentStore is the slice of the roster persistence the undo/redo
// manager needs: creating, deleting, and snapshotting assignments in a date
// range. Wired to the roster repository in main.
type AssignmentStore interface {
	Insert(ctx context.Context, s Snapshot) (uuid.UUID, error)
	Remove(ctx context.Context, id uuid.UUID) error
	SnapshotRange(ctx context.Context, start, end calendar.Date) ([]Snapshot, error)
}
