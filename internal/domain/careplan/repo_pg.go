package careplan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careops/careops/pkg/apperr"
)

// =========== Plan Repository ===========

type planRepoPG struct{ pool *pgxpool.Pool }

func NewPlanRepoPG(pool *pgxpool.Pool) PlanRepository {
	return &planRepoPG{pool: pool}
}

const planCols = `id, resident_id, title, description, next_review, active, created_at, updated_at`

// Columns callers may sort on. Anything else falls back to creation order.
var sortable = map[string]string{
	"title":       "title",
	"next_review": "next_review",
	"created_at":  "created_at",
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

func scanPlan(row pgx.Row) (*CarePlan, error) {
	var cp CarePlan
	err := row.Scan(&cp.ID, &cp.ResidentID, &cp.Title, &cp.Description,
		&cp.NextReview, &cp.Active, &cp.CreatedAt, &cp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return &cp, err
}

func (r *planRepoPG) Create(ctx context.Context, cp *CarePlan) error {
	cp.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO care_plan (id, resident_id, title, description, next_review, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		cp.ID, cp.ResidentID, cp.Title, cp.Description, cp.NextReview, cp.Active)
	return err
}

func (r *planRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*CarePlan, error) {
	cp, err := scanPlan(r.pool.QueryRow(ctx, `SELECT `+planCols+` FROM care_plan WHERE id = $1`, id))
	if apperr.IsNotFound(err) {
		return nil, apperr.NotFoundf("care plan %s", id)
	}
	return cp, err
}

func (r *planRepoPG) Update(ctx context.Context, cp *CarePlan) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE care_plan SET title=$2, description=$3, next_review=$4, active=$5, updated_at=NOW()
		WHERE id = $1`,
		cp.ID, cp.Title, cp.Description, cp.NextReview, cp.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *planRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*CarePlan, int, error) {
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
		where = append(where, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM care_plan WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM care_plan WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		planCols, cond, orderClause(params), len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*CarePlan
	for rows.Next() {
		cp, err := scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, cp)
	}
	return items, total, rows.Err()
}

func (r *planRepoPG) ListActiveByResident(ctx context.Context, residentID uuid.UUID) ([]*CarePlan, error) {
	return r.listActive(ctx, `SELECT `+planCols+` FROM care_plan WHERE active AND resident_id = $1 ORDER BY created_at ASC`, residentID)
}

func (r *planRepoPG) ListActive(ctx context.Context) ([]*CarePlan, error) {
	return r.listActive(ctx, `SELECT `+planCols+` FROM care_plan WHERE active ORDER BY created_at ASC`)
}

func (r *planRepoPG) listActive(ctx context.Context, q string, args ...interface{}) ([]*CarePlan, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*CarePlan
	for rows.Next() {
		cp, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, cp)
	}
	return items, rows.Err()
}

// =========== Goal Repository ===========

type goalRepoPG struct{ pool *pgxpool.Pool }

func NewGoalRepoPG(pool *pgxpool.Pool) GoalRepository {
	return &goalRepoPG{pool: pool}
}

const goalCols = `id, plan_id, description, state, weight, position, updated_at`

func scanGoal(row pgx.Row) (*CareGoal, error) {
	var g CareGoal
	err := row.Scan(&g.ID, &g.PlanID, &g.Description, &g.State, &g.Weight, &g.Position, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return &g, err
}

func (r *goalRepoPG) Create(ctx context.Context, g *CareGoal) error {
	g.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO care_goal (id, plan_id, description, state, weight, position)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		g.ID, g.PlanID, g.Description, g.State, g.Weight, g.Position)
	return err
}

func (r *goalRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*CareGoal, error) {
	g, err := scanGoal(r.pool.QueryRow(ctx, `SELECT `+goalCols+` FROM care_goal WHERE id = $1`, id))
	if apperr.IsNotFound(err) {
		return nil, apperr.NotFoundf("care goal %s", id)
	}
	return g, err
}

func (r *goalRepoPG) UpdateState(ctx context.Context, id uuid.UUID, state string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE care_goal SET state=$2, updated_at=NOW() WHERE id = $1`, id, state)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *goalRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM care_goal WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *goalRepoPG) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*CareGoal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+goalCols+` FROM care_goal WHERE plan_id = $1 ORDER BY position ASC`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*CareGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}
