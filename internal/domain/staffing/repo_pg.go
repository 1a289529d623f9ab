package staffing

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

// =========== Staff Repository ===========

type staffRepoPG struct{ pool *pgxpool.Pool }

func NewStaffRepoPG(pool *pgxpool.Pool) StaffRepository {
	return &staffRepoPG{pool: pool}
}

const staffCols = `id, name, role, phone, active, created_at, updated_at`

func scanStaff(row pgx.Row) (*Staff, error) {
	var st Staff
	err := row.Scan(&st.ID, &st.Name, &st.Role, &st.Phone, &st.Active, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return &st, err
}

func (r *staffRepoPG) Create(ctx context.Context, st *Staff) error {
	st.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff (id, name, role, phone, active)
		VALUES ($1,$2,$3,$4,$5)`,
		st.ID, st.Name, st.Role, st.Phone, st.Active)
	return err
}

func (r *staffRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return scanStaff(r.pool.QueryRow(ctx, `SELECT `+staffCols+` FROM staff WHERE id = $1`, id))
}

func (r *staffRepoPG) Update(ctx context.Context, st *Staff) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE staff SET name=$2, role=$3, phone=$4, active=$5, updated_at=NOW()
		WHERE id = $1`,
		st.ID, st.Name, st.Role, st.Phone, st.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *staffRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Staff, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if v := params["role"]; v != "" {
		args = append(args, v)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
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
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM staff WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM staff WHERE %s ORDER BY name ASC LIMIT $%d OFFSET $%d`,
		staffCols, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Staff
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, st)
	}
	return items, total, rows.Err()
}

// =========== Shift Repository ===========

type shiftRepoPG struct{ pool *pgxpool.Pool }

func NewShiftRepoPG(pool *pgxpool.Pool) ShiftRepository {
	return &shiftRepoPG{pool: pool}
}

const shiftCols = `id, date, type, required_count, start_time, end_time, created_at, updated_at`

func scanShift(row pgx.Row) (*Shift, error) {
	var sh Shift
	err := row.Scan(&sh.ID, &sh.Date, &sh.Type, &sh.RequiredCount,
		&sh.StartTime, &sh.EndTime, &sh.CreatedAt, &sh.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return &sh, err
}

func (r *shiftRepoPG) Create(ctx context.Context, sh *Shift) error {
	sh.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO shift (id, date, type, required_count, start_time, end_time)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		sh.ID, sh.Date, sh.Type, sh.RequiredCount, sh.StartTime, sh.EndTime)
	return err
}

func (r *shiftRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Shift, error) {
	return scanShift(r.pool.QueryRow(ctx, `SELECT `+shiftCols+` FROM shift WHERE id = $1`, id))
}

func (r *shiftRepoPG) Update(ctx context.Context, sh *Shift) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE shift SET required_count=$2, start_time=$3, end_time=$4, updated_at=NOW()
		WHERE id = $1`,
		sh.ID, sh.RequiredCount, sh.StartTime, sh.EndTime)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *shiftRepoPG) ListByDateRange(ctx context.Context, from, to time.Time) ([]*Shift, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+shiftCols+` FROM shift
		WHERE date >= $1 AND date < $2
		ORDER BY date ASC, start_time ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, sh)
	}
	return items, rows.Err()
}

// =========== Assignment Repository ===========

type assignmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssignmentRepoPG(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepoPG{pool: pool}
}

func (r *assignmentRepoPG) Upsert(ctx context.Context, a *Assignment) (bool, error) {
	a.ID = uuid.New()
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO staff_assignment (id, shift_id, staff_id)
		VALUES ($1,$2,$3)
		ON CONFLICT (shift_id, staff_id) DO NOTHING`,
		a.ID, a.ShiftID, a.StaffID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *assignmentRepoPG) Delete(ctx context.Context, shiftID, staffID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM staff_assignment WHERE shift_id = $1 AND staff_id = $2`, shiftID, staffID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *assignmentRepoPG) ListByShift(ctx context.Context, shiftID uuid.UUID) ([]*Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, shift_id, staff_id, created_at FROM staff_assignment
		WHERE shift_id = $1 ORDER BY created_at ASC`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.ShiftID, &a.StaffID, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *assignmentRepoPG) ListShiftsByStaff(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]*Shift, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.date, s.type, s.required_count, s.start_time, s.end_time, s.created_at, s.updated_at
		FROM shift s
		JOIN staff_assignment a ON a.shift_id = s.id
		WHERE a.staff_id = $1 AND s.date >= $2 AND s.date < $3
		ORDER BY s.date ASC, s.start_time ASC`, staffID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, sh)
	}
	return items, rows.Err()
}
