package provider

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rota/rota/internal/platform/db"
	"github.com/rota/rota/pkg/calendar"
)

// =========== Provider Repository ===========

type providerRepoPG struct{ pool *pgxpool.Pool }

func NewProviderRepoPG(pool *pgxpool.Pool) ProviderRepository { return &providerRepoPG{pool: pool} }

func (r *providerRepoPG) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const providerCols = `id, name, initials, role, capabilities, default_room_count,
	active, created_at, updated_at`

func (r *providerRepoPG) scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.Name, &p.Initials, &p.Role, &p.Capabilities,
		&p.DefaultRoomCount, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *providerRepoPG) Create(ctx context.Context, p *Provider) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO provider (id, name, initials, role, capabilities, default_room_count, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.Name, p.Initials, p.Role, p.Capabilities, p.DefaultRoomCount, p.Active)
	return err
}

func (r *providerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return r.scanProvider(r.conn(ctx).QueryRow(ctx, `SELECT `+providerCols+` FROM provider WHERE id = $1`, id))
}

func (r *providerRepoPG) Update(ctx context.Context, p *Provider) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE provider SET name=$2, initials=$3, role=$4, capabilities=$5,
			default_room_count=$6, active=$7, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Initials, p.Role, p.Capabilities, p.DefaultRoomCount, p.Active)
	return err
}

func (r *providerRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM provider WHERE id = $1`, id)
	return err
}

func (r *providerRepoPG) List(ctx context.Context, limit, offset int) ([]*Provider, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM provider`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+providerCols+` FROM provider ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Provider
	for rows.Next() {
		p, err := r.scanProvider(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

func (r *providerRepoPG) ListActive(ctx context.Context) ([]*Provider, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+providerCols+` FROM provider WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Provider
	for rows.Next() {
		p, err := r.scanProvider(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, nil
}

// =========== Rule Repository ===========

type ruleRepoPG struct{ pool *pgxpool.Pool }

func NewRuleRepoPG(pool *pgxpool.Pool) RuleRepository { return &ruleRepoPG{pool: pool} }

func (r *ruleRepoPG) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const ruleCols = `id, provider_id, service_id, day_of_week, time_block, rule_type, enforcement, reason, created_at`

func (r *ruleRepoPG) scanRule(row pgx.Row) (*AvailabilityRule, error) {
	var a AvailabilityRule
	err := row.Scan(&a.ID, &a.ProviderID, &a.ServiceID, &a.DayOfWeek, &a.Block,
		&a.RuleType, &a.Enforcement, &a.Reason, &a.CreatedAt)
	return &a, err
}

func (r *ruleRepoPG) Create(ctx context.Context, a *AvailabilityRule) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO availability_rule (id, provider_id, service_id, day_of_week, time_block, rule_type, enforcement, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.ProviderID, a.ServiceID, a.DayOfWeek, a.Block, a.RuleType, a.Enforcement, a.Reason)
	return err
}

func (r *ruleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*AvailabilityRule, error) {
	return r.scanRule(r.conn(ctx).QueryRow(ctx, `SELECT `+ruleCols+` FROM availability_rule WHERE id = $1`, id))
}

func (r *ruleRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM availability_rule WHERE id = $1`, id)
	return err
}

func (r *ruleRepoPG) listRules(ctx context.Context, query string, args ...interface{}) ([]AvailabilityRule, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AvailabilityRule
	for rows.Next() {
		a, err := r.scanRule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	return items, nil
}

func (r *ruleRepoPG) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]AvailabilityRule, error) {
	return r.listRules(ctx, `SELECT `+ruleCols+` FROM availability_rule WHERE provider_id = $1 ORDER BY day_of_week, time_block`, providerID)
}

func (r *ruleRepoPG) ListAll(ctx context.Context) ([]AvailabilityRule, error) {
	return r.listRules(ctx, `SELECT `+ruleCols+` FROM availability_rule ORDER BY provider_id, day_of_week`)
}

// =========== Leave Repository ===========

type leaveRepoPG struct{ pool *pgxpool.Pool }

func NewLeaveRepoPG(pool *pgxpool.Pool) LeaveRepository { return &leaveRepoPG{pool: pool} }

func (r *leaveRepoPG) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const leaveCols = `id, provider_id, start_date, end_date, leave_type, reason, created_at`

func (r *leaveRepoPG) scanLeave(row pgx.Row) (*Leave, error) {
	var l Leave
	err := row.Scan(&l.ID, &l.ProviderID, &l.StartDate, &l.EndDate, &l.LeaveType, &l.Reason, &l.CreatedAt)
	return &l, err
}

func (r *leaveRepoPG) Create(ctx context.Context, l *Leave) error {
	l.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO provider_leave (id, provider_id, start_date, end_date, leave_type, reason)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		l.ID, l.ProviderID, l.StartDate, l.EndDate, l.LeaveType, l.Reason)
	return err
}

func (r *leaveRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Leave, error) {
	return r.scanLeave(r.conn(ctx).QueryRow(ctx, `SELECT `+leaveCols+` FROM provider_leave WHERE id = $1`, id))
}

func (r *leaveRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM provider_leave WHERE id = $1`, id)
	return err
}

func (r *leaveRepoPG) listLeaves(ctx context.Context, query string, args ...interface{}) ([]Leave, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Leave
	for rows.Next() {
		l, err := r.scanLeave(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *l)
	}
	return items, nil
}

func (r *leaveRepoPG) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Leave, error) {
	return r.listLeaves(ctx, `SELECT `+leaveCols+` FROM provider_leave WHERE provider_id = $1 ORDER BY start_date`, providerID)
}

func (r *leaveRepoPG) ListCovering(ctx context.Context, date calendar.Date) ([]Leave, error) {
	return r.listLeaves(ctx, `SELECT `+leaveCols+` FROM provider_leave WHERE start_date <= $1 AND end_date >= $1`, date)
}
