package template

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rota/rota/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const templateCols = `id, name, template_type, description, created_at, updated_at`
const entryCols = `id, template_id, day_of_week, time_block, service_id, provider_id, room_count`

func (r *repoPG) scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.Name, &t.Type, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *Template) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO schedule_template (id, name, template_type, description)
		VALUES ($1,$2,$3,$4)`,
		t.ID, t.Name, t.Type, t.Description)
	if err != nil {
		return err
	}
	return r.insertEntries(ctx, t)
}

func (r *repoPG) insertEntries(ctx context.Context, t *Template) error {
	for i := range t.Entries {
		e := &t.Entries[i]
		e.ID = uuid.New()
		e.TemplateID = t.ID
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO schedule_template_entry (id, template_id, day_of_week, time_block, service_id, provider_id, room_count)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			e.ID, e.TemplateID, e.DayOfWeek, e.Block, e.ServiceID, e.ProviderID, e.RoomCount)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	t, err := r.scanTemplate(r.conn(ctx).QueryRow(ctx,
		`SELECT `+templateCols+` FROM schedule_template WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+entryCols+` FROM schedule_template_entry WHERE template_id = $1 ORDER BY day_of_week, time_block`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TemplateID, &e.DayOfWeek, &e.Block,
			&e.ServiceID, &e.ProviderID, &e.RoomCount); err != nil {
			return nil, err
		}
		t.Entries = append(t.Entries, e)
	}
	return t, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, t *Template) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE schedule_template SET name=$2, template_type=$3, description=$4, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.Type, t.Description)
	if err != nil {
		return err
	}
	if _, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM schedule_template_entry WHERE template_id = $1`, t.ID); err != nil {
		return err
	}
	return r.insertEntries(ctx, t)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM schedule_template_entry WHERE template_id = $1`, id); err != nil {
		return err
	}
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM schedule_template WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Template, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM schedule_template`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+templateCols+` FROM schedule_template ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Template
	for rows.Next() {
		t, err := r.scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}
