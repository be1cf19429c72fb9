package roster

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rota/rota/internal/platform/db"
	"github.com/rota/rota/pkg/calendar"
)

// =========== Assignment Repository ===========

type assignmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssignmentRepoPG(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepoPG{pool: pool}
}

func (r *assignmentRepoPG) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const assignmentCols = `id, provider_id, service_id, schedule_date, time_block,
	room_count, is_pto, is_covering, notes, created_at, updated_at`

func (r *assignmentRepoPG) scanAssignment(row pgx.Row) (*Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.ProviderID, &a.ServiceID, &a.Date, &a.Block,
		&a.RoomCount, &a.IsPTO, &a.IsCovering, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *assignmentRepoPG) listAssignments(ctx context.Context, query string, args ...interface{}) ([]Assignment, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Assignment
	for rows.Next() {
		a, err := r.scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	return items, rows.Err()
}

func (r *assignmentRepoPG) Create(ctx context.Context, a *Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO schedule_assignment (id, provider_id, service_id, schedule_date,
			time_block, room_count, is_pto, is_covering, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.ProviderID, a.ServiceID, a.Date, a.Block,
		a.RoomCount, a.IsPTO, a.IsCovering, a.Notes)
	return err
}

func (r *assignmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	return r.scanAssignment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+assignmentCols+` FROM schedule_assignment WHERE id = $1`, id))
}

func (r *assignmentRepoPG) Update(ctx context.Context, a *Assignment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE schedule_assignment SET time_block=$2, room_count=$3, is_covering=$4,
			notes=$5, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Block, a.RoomCount, a.IsCovering, a.Notes)
	return err
}

func (r *assignmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM schedule_assignment WHERE id = $1`, id)
	return err
}

func (r *assignmentRepoPG) ListByDate(ctx context.Context, date calendar.Date) ([]Assignment, error) {
	return r.listAssignments(ctx,
		`SELECT `+assignmentCols+` FROM schedule_assignment WHERE schedule_date = $1 ORDER BY time_block, created_at`,
		date)
}

func (r *assignmentRepoPG) ListByProviderDate(ctx context.Context, providerID uuid.UUID, date calendar.Date) ([]Assignment, error) {
	return r.listAssignments(ctx,
		`SELECT `+assignmentCols+` FROM schedule_assignment WHERE provider_id = $1 AND schedule_date = $2`,
		providerID, date)
}

func (r *assignmentRepoPG) ListByServiceDate(ctx context.Context, serviceID uuid.UUID, date calendar.Date) ([]Assignment, error) {
	return r.listAssignments(ctx,
		`SELECT `+assignmentCols+` FROM schedule_assignment WHERE service_id = $1 AND schedule_date = $2`,
		serviceID, date)
}

func (r *assignmentRepoPG) ListRange(ctx context.Context, start, end calendar.Date) ([]Assignment, error) {
	return r.listAssignments(ctx,
		`SELECT `+assignmentCols+` FROM schedule_assignment WHERE schedule_date BETWEEN $1 AND $2 ORDER BY schedule_date, time_block`,
		start, end)
}

// =========== Day Metadata Repository ===========

type dayMetadataRepoPG struct{ pool *pgxpool.Pool }

func NewDayMetadataRepoPG(pool *pgxpool.Pool) DayMetadataRepository {
	return &dayMetadataRepoPG{pool: pool}
}

func (r *dayMetadataRepoPG) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const dayMetadataCols = `id, metadata_date, time_block, chp_room_in_use, extra_room_available, note, updated_at`

func (r *dayMetadataRepoPG) Upsert(ctx context.Context, m *DayMetadata) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO day_metadata (id, metadata_date, time_block, chp_room_in_use, extra_room_available, note)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (metadata_date, time_block) DO UPDATE SET
			chp_room_in_use = EXCLUDED.chp_room_in_use,
			extra_room_available = EXCLUDED.extra_room_available,
			note = EXCLUDED.note,
			updated_at = NOW()`,
		m.ID, m.Date, m.Block, m.CHPRoomInUse, m.ExtraRoomAvailable, m.Note)
	return err
}

func (r *dayMetadataRepoPG) ListByDate(ctx context.Context, date calendar.Date) ([]DayMetadata, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+dayMetadataCols+` FROM day_metadata WHERE metadata_date = $1 ORDER BY time_block`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DayMetadata
	for rows.Next() {
		var m DayMetadata
		if err := rows.Scan(&m.ID, &m.Date, &m.Block, &m.CHPRoomInUse,
			&m.ExtraRoomAvailable, &m.Note, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *dayMetadataRepoPG) Delete(ctx context.Context, date calendar.Date, block string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM day_metadata WHERE metadata_date = $1 AND time_block = $2`, date, block)
	return err
}
