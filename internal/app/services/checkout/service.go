package checkout

import (
	"context"
	"errors"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/cart"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/order"
	"github.com/R3E-Network/canteen_pos/internal/app/events"
	"github.com/R3E-Network/canteen_pos/internal/app/metrics"
	"github.com/R3E-Network/canteen_pos/internal/app/storage"
	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
	"github.com/R3E-Network/canteen_pos/pkg/logger"
)

// Service turns a cart into per-shop orders and debits the student.
type Service struct {
	orders    storage.OrderStore
	publisher events.Publisher
	log       *logger.Logger
}

// New constructs a checkout service. A nil publisher discards events.
func New(orders storage.OrderStore, publisher events.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("checkout")
	}
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Service{orders: orders, publisher: publisher, log: log}
}

// BuildOrders partitions a cart into one pending order per shop, ordered by
// shop id. Prices are copied from the cart entries.
func BuildOrders(c cart.Cart) ([]order.Order, error) {
	shopIDs, byShop := c.ByShop()
	orders := make([]order.Order, 0, len(shopIDs))
	for _, shopID := range shopIDs {
		o := order.Order{ShopID: shopID, Status: order.StatusPending}
		for _, e := range byShop[shopID] {
			o.Items = append(o.Items, order.Item{
				MenuItemID: e.ItemID,
				Name:       e.Name,
				Quantity:   e.Quantity,
				Price:      e.Price,
			})
		}
		total, err := o.ItemsTotal()
		if err != nil {
			return nil, err
		}
		o.TotalAmount = total
		orders = append(orders, o)
	}
	return orders, nil
}

// Checkout places the orders for c and debits studentID by the cart total in
// one storage transaction. The caller owns clearing the cart.
func (s *Service) Checkout(ctx context.Context, studentID string, c cart.Cart) (order.Group, error) {
	if c.IsEmpty() {
		metrics.RecordCheckout(metrics.OutcomeEmptyCart, 0, nil)
		return order.Group{}, apperrors.EmptyCart()
	}
	total, err := c.Sum()
	if err != nil {
		return order.Group{}, apperrors.New(apperrors.CodeInvalidInput, err.Error(), err)
	}
	if total <= 0 {
		return order.Group{}, apperrors.InvalidInput("cart total must be positive")
	}
	orders, err := BuildOrders(c)
	if err != nil {
		return order.Group{}, apperrors.New(apperrors.CodeInvalidInput, err.Error(), err)
	}

	group, err := s.orders.PlaceOrders(ctx, studentID, orders)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInsufficientBalance):
			metrics.RecordCheckout(metrics.OutcomeInsufficient, total, nil)
		default:
			metrics.RecordCheckout(metrics.OutcomeError, total, nil)
			if apperrors.GetServiceError(err) == nil {
				err = apperrors.StorageUnavailable(err)
			}
			s.log.WithError(err).WithField("student_id", studentID).Warn("checkout failed")
		}
		return order.Group{}, err
	}

	shopIDs := make([]int64, len(group.Orders))
	for i, o := range group.Orders {
		shopIDs[i] = o.ShopID
		if err := s.publisher.Publish(ctx, events.OrderEvent(events.OrderCreated, o)); err != nil {
			s.log.WithError(err).WithField("order_id", o.ID).Warn("publish order event")
		}
	}
	metrics.RecordCheckout(metrics.OutcomeSuccess, group.Total, shopIDs)

	s.log.WithField("student_id", studentID).
		WithField("orders", len(group.Orders)).
		WithField("total", group.Total.String()).
		Info("checkout completed")
	return group, nil
}

// History returns a student's orders, newest first.
func (s *Service) History(ctx context.Context, studentID string) ([]order.Order, error) {
	return s.orders.ListStudentOrders(ctx, studentID)
}
