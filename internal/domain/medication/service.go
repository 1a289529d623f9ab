package medication

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/careops/careops/internal/engine"
	"github.com/careops/careops/internal/platform/metrics"
	"github.com/careops/careops/internal/platform/statuscache"
	"github.com/careops/careops/pkg/apperr"
)

type Service struct {
	orders   OrderRepository
	events   EventRepository
	cfg      engine.Config
	cache    statuscache.Store
	cacheTTL time.Duration
}

func NewService(orders OrderRepository, events EventRepository, cfg engine.Config) *Service {
	return &Service{orders: orders, events: events, cfg: cfg}
}

// SetCache attaches the status cache. The TTL is the freshness bound: a
// cached resolution is never served once it is older than that.
func (s *Service) SetCache(store statuscache.Store, ttl time.Duration) {
	s.cache = store
	s.cacheTTL = ttl
}

func cacheKey(orderID uuid.UUID) string {
	return "medication:" + orderID.String()
}

// -- Orders --

func (s *Service) CreateOrder(ctx context.Context, o *Order) error {
	if err := validateOrder(o); err != nil {
		return err
	}
	o.Active = true
	return s.orders.Create(ctx, o)
}

func validateOrder(o *Order) error {
	if o.ResidentID == uuid.Nil {
		return apperr.Validationf("resident_id", "is required")
	}
	if o.Name == "" {
		return apperr.Validationf("name", "is required")
	}
	if o.Dosage == "" {
		return apperr.Validationf("dosage", "is required")
	}
	if len(o.Times) == 0 {
		return apperr.Validationf("times", "at least one scheduled time is required")
	}
	for _, raw := range o.Times {
		if _, err := engine.ParseTimeOfDay(raw); err != nil {
			return apperr.Validationf("times", "%v", err)
		}
	}
	if o.RefillsRemaining < 0 {
		return apperr.Validationf("refills_remaining", "must not be negative")
	}
	return nil
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *Service) UpdateOrder(ctx context.Context, o *Order) error {
	if err := validateOrder(o); err != nil {
		return err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return err
	}
	s.invalidate(ctx, o.ID)
	return nil
}

// RecordRefill sets the remaining refill count after a pharmacy delivery
// and stamps the refill time.
func (s *Service) RecordRefill(ctx context.Context, id uuid.UUID, refills int, now time.Time) error {
	if refills < 0 {
		return apperr.Validationf("refills", "must not be negative")
	}
	if err := s.orders.SetRefills(ctx, id, refills, now); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *Service) DeactivateOrder(ctx context.Context, id uuid.UUID) error {
	if err := s.orders.Deactivate(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *Service) SearchOrders(ctx context.Context, params map[string]string, limit, offset int) ([]*Order, int, error) {
	return s.orders.Search(ctx, params, limit, offset)
}

// -- Administration events --

// RecordAdministration appends an administration event and re-resolves the
// order before acknowledging, so the response already reflects the event.
func (s *Service) RecordAdministration(ctx context.Context, ev *AdministrationEvent, now time.Time) (*engine.MedicationResult, error) {
	if ev.OrderID == uuid.Nil {
		return nil, apperr.Validationf("order_id", "is required")
	}
	if ev.StaffID == uuid.Nil {
		return nil, apperr.Validationf("staff_id", "is required")
	}
	if ev.AdministeredAt.IsZero() {
		ev.AdministeredAt = now
	}
	if ev.AdministeredAt.After(now) {
		return nil, apperr.Validationf("administered_at", "must not be in the future")
	}

	o, err := s.orders.GetByID(ctx, ev.OrderID)
	if err != nil {
		return nil, err
	}
	if !o.Active {
		return nil, apperr.Validationf("order_id", "order is inactive")
	}
	ev.ResidentID = o.ResidentID

	if err := s.events.Append(ctx, ev); err != nil {
		return nil, err
	}
	s.invalidate(ctx, o.ID)

	res, err := s.resolveOrder(ctx, o, now)
	if err != nil {
		return nil, err
	}
	s.cacheResult(ctx, o.ID, res)
	return res, nil
}

func (s *Service) ListAdministrations(ctx context.Context, orderID uuid.UUID, limit, offset int) ([]*AdministrationEvent, int, error) {
	return s.events.ListRecent(ctx, orderID, limit, offset)
}

// -- Resolution --

// Resolve returns the status projection for one order, serving a cached
// result while it is inside the freshness bound.
func (s *Service) Resolve(ctx context.Context, orderID uuid.UUID, now time.Time) (*engine.MedicationResult, error) {
	if s.cache != nil {
		if b, ok := s.cache.Get(ctx, cacheKey(orderID)); ok {
			var res engine.MedicationResult
			if err := json.Unmarshal(b, &res); err == nil {
				metrics.CacheHits.WithLabelValues("hit").Inc()
				return &res, nil
			}
		}
		metrics.CacheHits.WithLabelValues("miss").Inc()
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	res, err := s.resolveOrder(ctx, o, now)
	if err != nil {
		return nil, err
	}
	s.cacheResult(ctx, orderID, res)
	return res, nil
}

// eventWindow bounds the events that can qualify any of today's dosing
// instances.
func (s *Service) eventWindow(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return start.Add(-s.cfg.GracePeriod), start.Add(24*time.Hour + s.cfg.OverdueWindow)
}

func (s *Service) resolveOrder(ctx context.Context, o *Order, now time.Time) (*engine.MedicationResult, error) {
	from, to := s.eventWindow(now)
	events, err := s.events.ListByOrder(ctx, o.ID, from, to)
	if err != nil {
		return nil, err
	}
	res := s.cfg.ResolveMedication(o.engineInput(), engineEvents(events), now)
	metrics.Resolutions.WithLabelValues("medication").Inc()
	for _, a := range res.Alerts {
		metrics.AlertsGenerated.WithLabelValues(string(a.Severity)).Inc()
	}
	return &res, nil
}

func (s *Service) cacheResult(ctx context.Context, orderID uuid.UUID, res *engine.MedicationResult) {
	if s.cache == nil {
		return
	}
	if b, err := json.Marshal(res); err == nil {
		s.cache.Set(ctx, cacheKey(orderID), b, s.cacheTTL)
	}
}

func (s *Service) invalidate(ctx context.Context, orderID uuid.UUID) {
	if s.cache != nil {
		s.cache.Delete(ctx, cacheKey(orderID))
	}
}

// -- Views --

// BoardFilter selects orders for the medication board.
type BoardFilter struct {
	ResidentID *uuid.UUID
	Status     engine.DoseStatus
}

// Board resolves every active order and returns the page matching the
// filter. Status is derived, so filtering happens after resolution; the
// active-order set of a facility is small enough to resolve whole.
func (s *Service) Board(ctx context.Context, filter BoardFilter, limit, offset int, now time.Time) ([]*OrderView, int, error) {
	orders, err := s.orders.ListActive(ctx, filter.ResidentID)
	if err != nil {
		return nil, 0, err
	}
	var views []*OrderView
	for _, o := range orders {
		res, err := s.resolveOrder(ctx, o, now)
		if err != nil {
			return nil, 0, err
		}
		if filter.Status != "" && res.Status != filter.Status {
			continue
		}
		views = append(views, &OrderView{Order: o, Resolution: *res})
	}
	total := len(views)
	if offset >= total {
		return []*OrderView{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return views[offset:end], total, nil
}

// ResidentAlerts aggregates active alerts across a resident's active
// orders. Implements the resident view's alert source.
func (s *Service) ResidentAlerts(ctx context.Context, residentID uuid.UUID, now time.Time) ([]engine.Alert, error) {
	orders, err := s.orders.ListActive(ctx, &residentID)
	if err != nil {
		return nil, err
	}
	var alerts []engine.Alert
	for _, o := range orders {
		res, err := s.Resolve(ctx, o.ID, now)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, res.Alerts...)
	}
	return alerts, nil
}

// Sweep re-resolves every active order, refreshing the cache. A failing
// order is skipped and counted, never aborts the pass.
func (s *Service) Sweep(ctx context.Context, now time.Time) (resolved, failed int, err error) {
	orders, err := s.orders.ListActive(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	for _, o := range orders {
		res, rerr := s.resolveOrder(ctx, o, now)
		if rerr != nil {
			failed++
			metrics.SweepErrors.Inc()
			continue
		}
		s.cacheResult(ctx, o.ID, res)
		resolved++
	}
	return resolved, failed, nil
}
