package resident

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careops/careops/internal/engine"
	"github.com/careops/careops/pkg/apperr"
)

// AlertSource yields the active alerts another domain holds for a
// resident. Medication and care plan services implement this so resident
// views carry the full alert picture without the resident package
// depending on those domains.
type AlertSource interface {
	ResidentAlerts(ctx context.Context, residentID uuid.UUID, now time.Time) ([]engine.Alert, error)
}

type Service struct {
	repo    Repository
	sources []AlertSource
}

func NewService(repo Repository, sources ...AlertSource) *Service {
	return &Service{repo: repo, sources: sources}
}

// AddAlertSource registers another domain's alerts for view annotation.
// Called during wiring, before the server starts serving.
func (s *Service) AddAlertSource(src AlertSource) {
	s.sources = append(s.sources, src)
}

var validStatuses = map[string]bool{
	StatusActive: true, StatusPending: true, StatusInactive: true, StatusDischarged: true,
}

func (s *Service) Admit(ctx context.Context, r *Resident) error {
	if r.Name == "" {
		return apperr.Validationf("name", "is required")
	}
	if r.Room == "" {
		return apperr.Validationf("room", "is required")
	}
	if r.Age != nil && *r.Age < 0 {
		return apperr.Validationf("age", "must not be negative")
	}
	if r.Status == "" {
		r.Status = StatusActive
	}
	if !validStatuses[r.Status] {
		return apperr.Validationf("status", "invalid value %q", r.Status)
	}
	if r.Status == StatusDischarged {
		return apperr.Validationf("status", "cannot admit a discharged resident")
	}
	return s.repo.Create(ctx, r)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Resident, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, r *Resident) error {
	if r.Name == "" {
		return apperr.Validationf("name", "is required")
	}
	if r.Room == "" {
		return apperr.Validationf("room", "is required")
	}
	cur, err := s.repo.GetByID(ctx, r.ID)
	if err != nil {
		return err
	}
	if cur.Status == StatusDischarged {
		return apperr.Validationf("status", "resident is discharged")
	}
	return s.repo.Update(ctx, r)
}

// ChangeStatus moves a resident through the admission lifecycle.
// Discharging soft-archives the record; the resident and everything
// hanging off it stay queryable.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, status string, now time.Time) error {
	if !validStatuses[status] {
		return apperr.Validationf("status", "invalid value %q", status)
	}
	var archivedAt *time.Time
	if status == StatusDischarged {
		archivedAt = &now
	}
	return s.repo.UpdateStatus(ctx, id, status, archivedAt)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Resident, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// GetView returns one resident annotated with active alerts.
func (s *Service) GetView(ctx context.Context, id uuid.UUID, now time.Time) (*View, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.annotate(ctx, r, now), nil
}

// SearchViews returns a filtered page of residents, each annotated with
// active alerts. A failing alert source degrades that resident's view to
// a data integrity alert instead of failing the whole page.
func (s *Service) SearchViews(ctx context.Context, params map[string]string, limit, offset int, now time.Time) ([]*View, int, error) {
	items, total, err := s.repo.Search(ctx, params, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	views := make([]*View, 0, len(items))
	for _, r := range items {
		views = append(views, s.annotate(ctx, r, now))
	}
	return views, total, nil
}

func (s *Service) annotate(ctx context.Context, r *Resident, now time.Time) *View {
	v := &View{Resident: r, Alerts: []engine.Alert{}}
	for _, src := range s.sources {
		alerts, err := src.ResidentAlerts(ctx, r.ID, now)
		if err != nil {
			v.Alerts = append(v.Alerts, engine.Alert{
				Code:     engine.AlertDataIntegrity,
				Severity: engine.SeverityWarning,
				Message:  "some alerts unavailable: " + err.Error(),
			})
			continue
		}
		v.Alerts = append(v.Alerts, alerts...)
	}
	v.Alerts = engine.SortAlerts(v.Alerts)
	return v
}
