package provider

import (
	"context"

	"github.com/google/uuid"

	"github.com/rota/rota/pkg/calendar"
)

type ProviderRepository interface {
	Create(ctx context.Context, p *Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	Update(ctx context.Context, p *Provider) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Provider, int, error)
	ListActive(ctx context.Context) ([]*Provider, error)
}

type RuleRepository interface {
	Create(ctx context.Context, r *AvailabilityRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*AvailabilityRule, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]AvailabilityRule, error)
	ListAll(ctx context.Context) ([]AvailabilityRule, error)
}

type LeaveRepository interface {
	Create(ctx context.Context, l *Leave) error
	GetByID(ctx context.Context, id uuid.UUID) (*Leave, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Leave, error)
	ListCovering(ctx context.Context, date calendar.Date) ([]Leave, error)
}
