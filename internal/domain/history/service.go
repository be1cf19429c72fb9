package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rota/rota/internal/platform/metrics"
	"github.com/rota/rota/pkg/calendar"
)

// Defaults for the history listing window.
const (
	DefaultListLimit = 20
	DefaultLookback  = 30 * 24 * time.Hour
)

var validOperationTypes = map[string]bool{
	OpTemplateApply:    true,
	OpAlternatingApply: true,
	OpBulkAdd:          true,
	OpBulkRemove:       true,
}

// NameSource resolves provider and service display names for drift
// reporting. Implementations return an empty string for unknown ids.
type NameSource interface {
	ProviderName(ctx context.Context, id uuid.UUID) string
	ServiceName(ctx context.Context, id uuid.UUID) string
}

// Manager records bulk schedule mutations and reverses or re-applies them.
type Manager struct {
	repo  Repository
	store AssignmentStore
	names NameSource
	now   func() time.Time
}

func NewManager(repo Repository, store AssignmentStore) *Manager {
	return &Manager{repo: repo, store: store, now: time.Now}
}

// NewManagerWithNames is NewManager plus a NameSource, so drift conflicts
// carry provider and service names instead of bare ids.
func NewManagerWithNames(repo Repository, store AssignmentStore, names NameSource) *Manager {
	m := NewManager(repo, store)
	m.names = names
	return m
}

// Record persists a new history record for a completed bulk operation.
func (m *Manager) Record(ctx context.Context, rec *Record) error {
	if !validOperationTypes[rec.OperationType] {
		return fmt.Errorf("invalid operation type: %s", rec.OperationType)
	}
	if rec.Description == "" {
		return fmt.Errorf("description is required")
	}
	if rec.EndDate.Before(rec.StartDate) {
		return fmt.Errorf("affected date range is inverted")
	}
	return m.repo.Create(ctx, rec)
}

// List returns recent records, newest first. Zero arguments fall back to
// the defaults: 20 records from the last 30 days.
func (m *Manager) List(ctx context.Context, limit int, lookback time.Duration) ([]*Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return m.repo.ListRecent(ctx, m.now().Add(-lookback), limit)
}

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return m.repo.GetByID(ctx, id)
}

// ReversalResult reports the outcome of an undo or redo. When drift is
// detected and not forced, RequiresConfirmation is set and nothing was
// changed. On partial failure Applied and Failed count the individual row
// reversals; the record's status flags are only flipped on full success.
type ReversalResult struct {
	Success              bool            `json:"success"`
	RequiresConfirmation bool            `json:"requires_confirmation,omitempty"`
	Conflicts            []DriftConflict `json:"conflicts,omitempty"`
	Applied              int             `json:"applied"`
	Failed               int             `json:"failed"`
}

// Undo reverses a record's net effect: rows it created are deleted and rows
// it removed are re-inserted. If the affected range has drifted since the
// operation ran, the conflicts are returned without mutating anything
// unless force is set.
func (m *Manager) Undo(ctx context.Context, id uuid.UUID, force bool) (*ReversalResult, error) {
	rec, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.Active() {
		return nil, fmt.Errorf("record %s is already undone", id)
	}

	current, err := m.store.SnapshotRange(ctx, rec.StartDate, rec.EndDate)
	if err != nil {
		return nil, fmt.Errorf("snapshotting affected range: %w", err)
	}
	conflicts := detectDrift(rec.Metadata.After, current)
	if len(conflicts) > 0 && !force {
		m.resolveNames(ctx, conflicts)
		metrics.HistoryReversals.WithLabelValues("undo", "blocked").Inc()
		return &ReversalResult{RequiresConfirmation: true, Conflicts: conflicts}, nil
	}

	res := &ReversalResult{}
	for _, snap := range rec.Metadata.Created {
		if err := m.store.Remove(ctx, snap.ID); err != nil {
			res.Failed++
			continue
		}
		res.Applied++
	}
	for i, snap := range rec.Metadata.Removed {
		newID, err := m.store.Insert(ctx, snap)
		if err != nil {
			res.Failed++
			continue
		}
		rec.Metadata.Removed[i].ID = newID
		res.Applied++
	}

	if res.Failed > 0 {
		metrics.HistoryReversals.WithLabelValues("undo", "partial").Inc()
		return res, nil
	}

	now := m.now()
	rec.IsUndone = true
	rec.UndoneAt = &now
	if err := m.repo.UpdateStatus(ctx, rec); err != nil {
		return res, fmt.Errorf("updating record status: %w", err)
	}
	res.Success = true
	metrics.HistoryReversals.WithLabelValues("undo", "success").Inc()
	return res, nil
}

// Redo re-applies a previously undone record: its created rows are inserted
// again and its removed rows are deleted again. Only valid while the undo
// is the most recent action on the record.
func (m *Manager) Redo(ctx context.Context, id uuid.UUID) (*ReversalResult, error) {
	rec, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.IsUndone || rec.Active() {
		return nil, fmt.Errorf("record %s is not in an undone state", id)
	}

	res := &ReversalResult{}
	for i, snap := range rec.Metadata.Created {
		newID, err := m.store.Insert(ctx, snap)
		if err != nil {
			res.Failed++
			continue
		}
		rec.Metadata.Created[i].ID = newID
		res.Applied++
	}
	for _, snap := range rec.Metadata.Removed {
		if err := m.store.Remove(ctx, snap.ID); err != nil {
			res.Failed++
			continue
		}
		res.Applied++
	}

	if res.Failed > 0 {
		metrics.HistoryReversals.WithLabelValues("redo", "partial").Inc()
		return res, nil
	}

	now := m.now()
	rec.IsRedone = true
	rec.RedoneAt = &now
	if err := m.repo.UpdateStatus(ctx, rec); err != nil {
		return res, fmt.Errorf("updating record status: %w", err)
	}
	res.Success = true
	metrics.HistoryReversals.WithLabelValues("redo", "success").Inc()
	return res, nil
}

// snapshotKey identifies an assignment independently of its row id so that
// drift comparison survives rows being deleted and re-created by redo.
type snapshotKey struct {
	ProviderID uuid.UUID
	ServiceID  uuid.UUID
	Date       calendar.Date
	Block      calendar.TimeBlock
	IsPTO      bool
}

func keyOf(s Snapshot) snapshotKey {
	return snapshotKey{
		ProviderID: s.ProviderID,
		ServiceID:  s.ServiceID,
		Date:       s.Date,
		Block:      s.Block,
		IsPTO:      s.IsPTO,
	}
}

// resolveNames fills display names on drift conflicts when a NameSource
// is configured.
func (m *Manager) resolveNames(ctx context.Context, conflicts []DriftConflict) {
	if m.names == nil {
		return
	}
	for i := range conflicts {
		conflicts[i].ProviderName = m.names.ProviderName(ctx, conflicts[i].ProviderID)
		conflicts[i].ServiceName = m.names.ServiceName(ctx, conflicts[i].ServiceID)
	}
}

// detectDrift compares the post-operation baseline against the current state
// of the same date range and reports every assignment that was modified,
// deleted, or added since.
func detectDrift(baseline, current []Snapshot) []DriftConflict {
	curByKey := make(map[snapshotKey]Snapshot, len(current))
	for _, s := range current {
		curByKey[keyOf(s)] = s
	}

	var conflicts []DriftConflict
	seen := make(map[snapshotKey]bool, len(baseline))
	for _, base := range baseline {
		k := keyOf(base)
		seen[k] = true
		cur, ok := curByKey[k]
		if !ok {
			conflicts = append(conflicts, driftConflict(DriftDeleted, base))
			continue
		}
		if !base.Same(cur) {
			conflicts = append(conflicts, driftConflict(DriftModified, cur))
		}
	}
	for _, cur := range current {
		if !seen[keyOf(cur)] {
			conflicts = append(conflicts, driftConflict(DriftAdded, cur))
		}
	}
	return conflicts
}

func driftConflict(changeType string, s Snapshot) DriftConflict {
	return DriftConflict{
		ChangeType: changeType,
		Date:       s.Date,
		Block:      s.Block,
		ProviderID: s.ProviderID,
		ServiceID:  s.ServiceID,
	}
}
