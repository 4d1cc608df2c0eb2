// Package events fans order lifecycle changes out to shop dashboards and to
// an optional message broker.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/order"
)

// Type names an order lifecycle change.
type Type string

const (
	OrderCreated   Type = "order.created"
	OrderCompleted Type = "order.completed"
	OrderCancelled Type = "order.cancelled"
)

// Event is the payload delivered to subscribers.
type Event struct {
	Type       Type        `json:"type"`
	ShopID     int64       `json:"shop_id"`
	Order      order.Order `json:"order"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// OrderEvent builds an event for o stamped with the current time.
func OrderEvent(t Type, o order.Order) Event {
	return Event{Type: t, ShopID: o.ShopID, Order: o, OccurredAt: time.Now().UTC()}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evt Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
