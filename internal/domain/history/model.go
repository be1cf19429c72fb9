package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/rota/rota/pkg/calendar"
)

// Operation types recorded in change history. One record per bulk mutation.
const (
	OpTemplateApply    = "template_apply"
	OpAlternatingApply = "alternating_apply"
	OpBulkAdd          = "bulk_add"
	OpBulkRemove       = "bulk_remove"
)

// Record maps to the change_history table. Append-only except for the
// undone/redone status fields.
type Record struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	OperationType string        `db:"operation_type" json:"operation_type"`
	Description   string        `db:"description" json:"description"`
	StartDate     calendar.Date `db:"affected_date_start" json:"affected_date_start"`
	EndDate       calendar.Date `db:"affected_date_end" json:"affected_date_end"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	IsUndone      bool          `db:"is_undone" json:"is_undone"`
	UndoneAt      *time.Time    `db:"undone_at" json:"undone_at,omitempty"`
	IsRedone      bool          `db:"is_redone" json:"is_redone"`
	RedoneAt      *time.Time    `db:"redone_at" json:"redone_at,omitempty"`
	Metadata      Metadata      `db:"metadata" json:"metadata"`
}

// Active reports whether the record's effect is currently applied. A record
// that was undone and later redone is active again; recency governs.
func (r *Record) Active() bool {
	if !r.IsUndone {
		return true
	}
	if r.IsRedone && r.RedoneAt != nil && r.UndoneAt != nil {
		return r.RedoneAt.After(*r.UndoneAt)
	}
	return false
}

// Metadata captures the net effect of the operation: the rows it inserted,
// the rows it deleted, and a snapshot of the affected range immediately
// after the operation (the baseline for drift detection).
type Metadata struct {
	Created []Snapshot `json:"created,omitempty"`
	Removed []Snapshot `json:"removed,omitempty"`
	After   []Snapshot `json:"after,omitempty"`
}

// Snapshot is a point-in-time copy of one schedule assignment, sufficient
// to re-create it or to recognize that it has since changed.
type Snapshot struct {
	ID         uuid.UUID          `json:"id"`
	ProviderID uuid.UUID          `json:"provider_id"`
	ServiceID  uuid.UUID          `json:"service_id"`
	Date       calendar.Date      `json:"date"`
	Block      calendar.TimeBlock `json:"time_block"`
	RoomCount  int                `json:"room_count"`
	IsPTO      bool               `json:"is_pto"`
	IsCovering bool               `json:"is_covering"`
	Notes      string             `json:"notes,omitempty"`
}

// Same reports whether two snapshots describe the same assignment content,
// ignoring the row id.
func (s Snapshot) Same(other Snapshot) bool {
	return s.ProviderID == other.ProviderID &&
		s.ServiceID == other.ServiceID &&
		s.Date == other.Date &&
		s.Block == other.Block &&
		s.RoomCount == other.RoomCount &&
		s.IsPTO == other.IsPTO &&
		s.IsCovering == other.IsCovering &&
		s.Notes == other.Notes
}

// Drift change types.
const (
	DriftModified = "modified"
	DriftDeleted  = "deleted"
	DriftAdded    = "added"
)

// DriftConflict describes one assignment that changed after the record was
// applied, surfaced so the caller can decide whether to force an undo.
// Names are resolved when the manager has a NameSource, else left empty.
type DriftConflict struct {
	ChangeType   string             `json:"change_type"`
	Date         calendar.Date      `json:"date"`
	Block        calendar.TimeBlock `json:"time_block"`
	ProviderID   uuid.UUID          `json:"provider_id"`
	ProviderName string             `json:"provider_name,omitempty"`
	ServiceID    uuid.UUID          `json:"service_id"`
	ServiceName  string             `json:"service_name,omitempty"`
}
