package template

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists the template and its entries.
	Create(ctx context.Context, t *Template) error
	// GetByID returns the template with entries loaded.
	GetByID(ctx context.Context, id uuid.UUID) (*Template, error)
	// Update replaces the template's fields and entry set.
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Template, int, error)
}
