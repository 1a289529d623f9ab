package medication

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careops/careops/pkg/apperr"
)

// =========== Order Repository ===========

type orderRepoPG struct{ pool *pgxpool.Pool }

func NewOrderRepoPG(pool *pgxpool.Pool) OrderRepository {
	return &orderRepoPG{pool: pool}
}

const orderCols = `id, resident_id, name, dosage, times, instructions,
	refills_remaining, last_refill, active, created_at, updated_at`

// Columns callers may sort on. Anything else falls back to creation order.
var sortable = map[string]string{
	"name":              "name",
	"refills_remaining": "refills_remaining",
	"created_at":        "created_at",
}

func orderClause(params map[string]string) string {
	key, dir := params["sort"], "ASC"
	if strings.HasPrefix(key, "-") {
		key, dir = key[1:], "DESC"
	}
	col, ok := sortable[key]
	if !ok {
		return "created_at ASC"
	}
	return col + " " + dir
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.ResidentID, &o.Name, &o.Dosage, &o.Times, &o.Instructions,
		&o.RefillsRemaining, &o.LastRefill, &o.Active, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return &o, err
}

func (r *orderRepoPG) Create(ctx context.Context, o *Order) error {
	o.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO medication_order (id, resident_id, name, dosage, times, instructions,
			refills_remaining, last_refill, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.ID, o.ResidentID, o.Name, o.Dosage, o.Times, o.Instructions,
		o.RefillsRemaining, o.LastRefill, o.Active)
	return err
}

func (r *orderRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderCols+` FROM medication_order WHERE id = $1`, id))
	if apperr.IsNotFound(err) {
		return nil, apperr.NotFoundf("medication order %s", id)
	}
	return o, err
}

func (r *orderRepoPG) Update(ctx context.Context, o *Order) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE medication_order SET name=$2, dosage=$3, times=$4, instructions=$5,
			refills_remaining=$6, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.Name, o.Dosage, o.Times, o.Instructions, o.RefillsRemaining)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *orderRepoPG) SetRefills(ctx context.Context, id uuid.UUID, refills int, lastRefill time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE medication_order SET refills_remaining=$2, last_refill=$3, updated_at=NOW()
		WHERE id = $1`, id, refills, lastRefill)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *orderRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE medication_order SET active=FALSE, updated_at=NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *orderRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Order, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if v := params["resident_id"]; v != "" {
		args = append(args, v)
		where = append(where, fmt.Sprintf("resident_id = $%d", len(args)))
	}
	if v := params["active"]; v != "" {
		args = append(args, v == "true")
		where = append(where, fmt.Sprintf("active = $%d", len(args)))
	}
	if v := params["q"]; v != "" {
		args = append(args, "%"+v+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM medication_order WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM medication_order WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		orderCols, cond, orderClause(params), len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}

func (r *orderRepoPG) ListActive(ctx context.Context, residentID *uuid.UUID) ([]*Order, error) {
	q := `SELECT ` + orderCols + ` FROM medication_order WHERE active`
	args := []interface{}{}
	if residentID != nil {
		q += ` AND resident_id = $1`
		args = append(args, *residentID)
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY name ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

// =========== Event Repository ===========

type eventRepoPG struct{ pool *pgxpool.Pool }

func NewEventRepoPG(pool *pgxpool.Pool) EventRepository {
	return &eventRepoPG{pool: pool}
}

const eventCols = `id, order_id, resident_id, staff_id, administered_at, notes, created_at`

func scanEvent(row pgx.Row) (*AdministrationEvent, error) {
	var ev AdministrationEvent
	err := row.Scan(&ev.ID, &ev.OrderID, &ev.ResidentID, &ev.StaffID,
		&ev.AdministeredAt, &ev.Notes, &ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return &ev, err
}

func (r *eventRepoPG) Append(ctx context.Context, ev *AdministrationEvent) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Transaction-scoped advisory lock keyed by order id. Two events for
	// the same order never race; resolution after commit sees both.
	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, ev.OrderID); err != nil {
		return err
	}

	ev.ID = uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO administration_event (id, order_id, resident_id, staff_id, administered_at, notes)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		ev.ID, ev.OrderID, ev.ResidentID, ev.StaffID, ev.AdministeredAt, ev.Notes); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *eventRepoPG) ListByOrder(ctx context.Context, orderID uuid.UUID, from, to time.Time) ([]*AdministrationEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventCols+` FROM administration_event
		WHERE order_id = $1 AND administered_at >= $2 AND administered_at <= $3
		ORDER BY administered_at ASC`, orderID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AdministrationEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, ev)
	}
	return items, rows.Err()
}

func (r *eventRepoPG) ListRecent(ctx context.Context, orderID uuid.UUID, limit, offset int) ([]*AdministrationEvent, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM administration_event WHERE order_id = $1`, orderID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventCols+` FROM administration_event
		WHERE order_id = $1 ORDER BY administered_at DESC LIMIT $2 OFFSET $3`,
		orderID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*AdministrationEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, ev)
	}
	return items, total, rows.Err()
}
