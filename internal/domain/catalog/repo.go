package catalog

import (
	"context"

	"github.com/google/uuid"
)

type ServiceRepository interface {
	Create(ctx context.Context, s *Service) error
	GetByID(ctx context.Context, id uuid.UUID) (*Service, error)
	GetByName(ctx context.Context, name string) (*Service, error)
	Update(ctx context.Context, s *Service) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Service, int, error)
	ListAll(ctx context.Context) ([]*Service, error)
}
