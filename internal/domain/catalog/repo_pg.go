package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rota/rota/internal/platform/db"
)

type serviceRepoPG struct{ pool *pgxpool.Pool }

func NewServiceRepoPG(pool *pgxpool.Pool) ServiceRepository { return &serviceRepoPG{pool: pool} }

func (r *serviceRepoPG) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const serviceCols = `id, name, time_block, capabilities, requires_rooms,
	inpatient, coverage_required, created_at, updated_at`

func (r *serviceRepoPG) scanService(row pgx.Row) (*Service, error) {
	var s Service
	err := row.Scan(&s.ID, &s.Name, &s.Block, &s.Capabilities, &s.RequiresRooms,
		&s.Inpatient, &s.CoverageRequired, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *serviceRepoPG) Create(ctx context.Context, s *Service) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO service (id, name, time_block, capabilities, requires_rooms, inpatient, coverage_required)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.Name, s.Block, s.Capabilities, s.RequiresRooms, s.Inpatient, s.CoverageRequired)
	return err
}

func (r *serviceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Service, error) {
	return r.scanService(r.conn(ctx).QueryRow(ctx, `SELECT `+serviceCols+` FROM service WHERE id = $1`, id))
}

func (r *serviceRepoPG) GetByName(ctx context.Context, name string) (*Service, error) {
	return r.scanService(r.conn(ctx).QueryRow(ctx, `SELECT `+serviceCols+` FROM service WHERE name = $1`, name))
}

func (r *serviceRepoPG) Update(ctx context.Context, s *Service) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE service SET name=$2, time_block=$3, capabilities=$4, requires_rooms=$5,
			inpatient=$6, coverage_required=$7, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Name, s.Block, s.Capabilities, s.RequiresRooms, s.Inpatient, s.CoverageRequired)
	return err
}

func (r *serviceRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM service WHERE id = $1`, id)
	return err
}

func (r *serviceRepoPG) List(ctx context.Context, limit, offset int) ([]*Service, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM service`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+serviceCols+` FROM service ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Service
	for rows.Next() {
		s, err := r.scanService(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, nil
}

func (r *serviceRepoPG) ListAll(ctx context.Context) ([]*Service, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+serviceCols+` FROM service ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Service
	for rows.Next() {
		s, err := r.scanService(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, nil
}
