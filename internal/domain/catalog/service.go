package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rota/rota/pkg/calendar"
)

type Catalog struct {
	services ServiceRepository
}

func NewCatalog(services ServiceRepository) *Catalog {
	return &Catalog{services: services}
}

func (c *Catalog) CreateService(ctx context.Context, s *Service) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Block == "" {
		s.Block = calendar.Both
	}
	if !s.Block.Valid() {
		return fmt.Errorf("invalid time block: %s", s.Block)
	}
	return c.services.Create(ctx, s)
}

func (c *Catalog) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	return c.services.GetByID(ctx, id)
}

func (c *Catalog) GetServiceByName(ctx context.Context, name string) (*Service, error) {
	return c.services.GetByName(ctx, name)
}

func (c *Catalog) UpdateService(ctx context.Context, s *Service) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !s.Block.Valid() {
		return fmt.Errorf("invalid time block: %s", s.Block)
	}
	return c.services.Update(ctx, s)
}

func (c *Catalog) DeleteService(ctx context.Context, id uuid.UUID) error {
	return c.services.Delete(ctx, id)
}

func (c *Catalog) ListServices(ctx context.Context, limit, offset int) ([]*Service, int, error) {
	return c.services.List(ctx, limit, offset)
}
