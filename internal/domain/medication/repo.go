package medication

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OrderRepository is the persistence port for medication orders.
type OrderRepository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	Update(ctx context.Context, o *Order) error
	SetRefills(ctx context.Context, id uuid.UUID, refills int, lastRefill time.Time) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Order, int, error)
	// ListActive returns every active order, optionally scoped to one
	// resident. The board and the sweep resolve over this set.
	ListActive(ctx context.Context, residentID *uuid.UUID) ([]*Order, error)
}

// EventRepository is the persistence port for administration events.
type EventRepository interface {
	// Append records an event. Appends for the same order are serialized
	// so concurrent recordings match dosing instances deterministically.
	Append(ctx context.Context, ev *AdministrationEvent) error
	ListByOrder(ctx context.Context, orderID uuid.UUID, from, to time.Time) ([]*AdministrationEvent, error)
	ListRecent(ctx context.Context, orderID uuid.UUID, limit, offset int) ([]*AdministrationEvent, int, error)
}
