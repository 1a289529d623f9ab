package resident

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const resCols = `id, name, age, room, status, care_level,
	primary_contact, contact_phone, contact_email,
	admission_date, last_assessment, archived_at, created_at, updated_at`

// Columns callers may sort on. Anything else falls back to admission order.
var sortable = map[string]string{
	"name":       "name",
	"room":       "room",
	"status":     "status",
	"created_at": "created_at",
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

func scanResident(row pgx.Row) (*Resident, error) {
	var r Resident
	err := row.Scan(&r.ID, &r.Name, &r.Age, &r.Room, &r.Status, &r.CareLevel,
		&r.PrimaryContact, &r.ContactPhone, &r.ContactEmail,
		&r.AdmissionDate, &r.LastAssessment, &r.ArchivedAt, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return &r, err
}

func (r *repoPG) Create(ctx context.Context, res *Resident) error {
	res.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO resident (id, name, age, room, status, care_level,
			primary_contact, contact_phone, contact_email,
			admission_date, last_assessment)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		res.ID, res.Name, res.Age, res.Room, res.Status, res.CareLevel,
		res.PrimaryContact, res.ContactPhone, res.ContactEmail,
		res.AdmissionDate, res.LastAssessment)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Resident, error) {
	res, err := scanResident(r.pool.QueryRow(ctx, `SELECT `+resCols+` FROM resident WHERE id = $1`, id))
	if apperr.IsNotFound(err) {
		return nil, apperr.NotFoundf("resident %s", id)
	}
	return res, err
}

func (r *repoPG) Update(ctx context.Context, res *Resident) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE resident SET name=$2, age=$3, room=$4, care_level=$5,
			primary_contact=$6, contact_phone=$7, contact_email=$8,
			last_assessment=$9, updated_at=NOW()
		WHERE id = $1`,
		res.ID, res.Name, res.Age, res.Room, res.CareLevel,
		res.PrimaryContact, res.ContactPhone, res.ContactEmail,
		res.LastAssessment)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string, archivedAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE resident SET status=$2, archived_at=$3, updated_at=NOW()
		WHERE id = $1`, id, status, archivedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Resident, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if v := params["status"]; v != "" {
		args = append(args, v)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if v := params["room"]; v != "" {
		args = append(args, v)
		where = append(where, fmt.Sprintf("room = $%d", len(args)))
	}
	if v := params["q"]; v != "" {
		args = append(args, "%"+v+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR room ILIKE $%d)", len(args), len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM resident WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM resident WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		resCols, cond, orderClause(params), len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Resident
	for rows.Next() {
		res, err := scanResident(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, res)
	}
	return items, total, rows.Err()
}
