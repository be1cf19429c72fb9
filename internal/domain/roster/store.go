package roster

import (
	"context"

	"github.com/google/uuid"

	"github.com/rota/rota/internal/domain/history"
	"github.com/rota/rota/pkg/calendar"
)

// HistoryStore adapts the assignment repository to the undo/redo manager's
// store interface.
type HistoryStore struct {
	repo AssignmentRepository
}

func NewHistoryStore(repo AssignmentRepository) *HistoryStore {
	return &HistoryStore{repo: repo}
}

func (s *HistoryStore) Insert(ctx context.Context, snap history.Snapshot) (uuid.UUID, error) {
	a := fromSnapshot(snap)
	// Always a fresh row id; the caller tracks the new id in the record
	// metadata.
	a.ID = uuid.Nil
	if err := s.repo.Create(ctx, &a); err != nil {
		return uuid.Nil, err
	}
	return a.ID, nil
}

func (s *HistoryStore) Remove(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *HistoryStore) SnapshotRange(ctx context.Context, start, end calendar.Date) ([]history.Snapshot, error) {
	assignments, err := s.repo.ListRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	snaps := make([]history.Snapshot, 0, len(assignments))
	for i := range assignments {
		snaps = append(snaps, assignments[i].Snapshot())
	}
	return snaps, nil
}
