package roster

import (
	"context"

	"github.com/google/uuid"

	"github.com/rota/rota/pkg/calendar"
)

type AssignmentRepository interface {
	Create(ctx context.Context, a *Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error)
	Update(ctx context.Context, a *Assignment) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByDate(ctx context.Context, date calendar.Date) ([]Assignment, error)
	ListByProviderDate(ctx context.Context, providerID uuid.UUID, date calendar.Date) ([]Assignment, error)
	ListByServiceDate(ctx context.Context, serviceID uuid.UUID, date calendar.Date) ([]Assignment, error)
	ListRange(ctx context.Context, start, end calendar.Date) ([]Assignment, error)
}

type DayMetadataRepository interface {
	// Upsert inserts or replaces the row for (date, block).
	Upsert(ctx context.Context, m *DayMetadata) error
	ListByDate(ctx context.Context, date calendar.Date) ([]DayMetadata, error)
	Delete(ctx context.Context, date calendar.Date, block string) error
}
