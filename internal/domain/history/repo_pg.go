package history

import (
	"context"
	"time"

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

const recordCols = `id, operation_type, description, affected_date_start, affected_date_end,
	created_at, is_undone, undone_at, is_redone, redone_at, metadata`

func (r *repoPG) scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.OperationType, &rec.Description, &rec.StartDate, &rec.EndDate,
		&rec.CreatedAt, &rec.IsUndone, &rec.UndoneAt, &rec.IsRedone, &rec.RedoneAt, &rec.Metadata)
	return &rec, err
}

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO change_history (id, operation_type, description, affected_date_start, affected_date_end, created_at, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.ID, rec.OperationType, rec.Description, rec.StartDate, rec.EndDate, rec.CreatedAt, rec.Metadata)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+recordCols+` FROM change_history WHERE id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, rec *Record) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE change_history SET is_undone=$2, undone_at=$3, is_redone=$4, redone_at=$5, metadata=$6
		WHERE id = $1`,
		rec.ID, rec.IsUndone, rec.UndoneAt, rec.IsRedone, rec.RedoneAt, rec.Metadata)
	return err
}

func (r *repoPG) ListRecent(ctx context.Context, cutoff time.Time, limit int) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+recordCols+` FROM change_history
		WHERE created_at >= $1
		ORDER BY created_at DESC
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, nil
}
