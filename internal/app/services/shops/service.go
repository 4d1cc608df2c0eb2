package shops

import (
	"context"
	"strings"
	"time"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/money"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/order"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/shop"
	"github.com/R3E-Network/canteen_pos/internal/app/events"
	"github.com/R3E-Network/canteen_pos/internal/app/metrics"
	"github.com/R3E-Network/canteen_pos/internal/app/storage"
	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
	"github.com/R3E-Network/canteen_pos/pkg/logger"
)

// Service backs the shop owner's dashboard.
type Service struct {
	menu      storage.MenuStore
	orders    storage.OrderStore
	reports   storage.ReportStore
	publisher events.Publisher
	log       *logger.Logger
}

// New constructs a shop management service. A nil publisher discards events.
func New(menu storage.MenuStore, orders storage.OrderStore, reports storage.ReportStore, publisher events.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("shops")
	}
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Service{menu: menu, orders: orders, reports: reports, publisher: publisher, log: log}
}

// NewItem carries the fields a shop supplies for a new menu item.
type NewItem struct {
	Name     string      `json:"name"`
	Price    money.Cents `json:"price"`
	Cost     money.Cents `json:"cost"`
	Category string      `json:"category"`
	ImageURL string      `json:"image_url"`
}

// AddMenuItem creates an available item. Names are unique per shop.
func (s *Service) AddMenuItem(ctx context.Context, shopID int64, in NewItem) (shop.MenuItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return shop.MenuItem{}, apperrors.InvalidInput("name is required")
	}
	if in.Price.IsNegative() || in.Cost.IsNegative() {
		return shop.MenuItem{}, apperrors.InvalidInput("price and cost must not be negative")
	}

	item, err := s.menu.CreateMenuItem(ctx, shop.MenuItem{
		ShopID:    shopID,
		Name:      name,
		Price:     in.Price,
		Cost:      in.Cost,
		Available: true,
		Category:  strings.TrimSpace(in.Category),
		ImageURL:  strings.TrimSpace(in.ImageURL),
	})
	if err != nil {
		return shop.MenuItem{}, err
	}
	s.log.WithField("shop_id", shopID).WithField("item_id", item.ID).Info("menu item added")
	return item, nil
}

// ToggleAvailability switches an item on or off. Only the owning shop may
// change it.
func (s *Service) ToggleAvailability(ctx context.Context, shopID, itemID int64, available bool) (shop.MenuItem, error) {
	item, err := s.menu.GetMenuItem(ctx, itemID)
	if err != nil {
		return shop.MenuItem{}, err
	}
	if item.ShopID != shopID {
		return shop.MenuItem{}, apperrors.Forbidden("menu item belongs to another shop")
	}
	updated, err := s.menu.SetMenuItemAvailability(ctx, itemID, available)
	if err != nil {
		return shop.MenuItem{}, err
	}
	s.log.WithField("shop_id", shopID).
		WithField("item_id", itemID).
		WithField("available", available).
		Info("menu item availability changed")
	return updated, nil
}

// ListMenuItems returns all of a shop's items, available or not.
func (s *Service) ListMenuItems(ctx context.Context, shopID int64) ([]shop.MenuItem, error) {
	return s.menu.ListMenuItems(ctx, shopID, false)
}

// SalesReport aggregates non-cancelled sales. Daily always holds
// shop.ReportWindowDays rows, today first, with zero rows for quiet days.
func (s *Service) SalesReport(ctx context.Context, shopID int64, now time.Time) (shop.SalesReport, error) {
	items, err := s.reports.ItemSales(ctx, shopID)
	if err != nil {
		return shop.SalesReport{}, err
	}

	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := today.AddDate(0, 0, -(shop.ReportWindowDays - 1))
	until := today.AddDate(0, 0, 1)

	rows, err := s.reports.DailySales(ctx, shopID, since, until)
	if err != nil {
		return shop.SalesReport{}, err
	}
	byDay := make(map[time.Time]shop.DailySales, len(rows))
	for _, r := range rows {
		byDay[r.Date.UTC()] = r
	}

	daily := make([]shop.DailySales, 0, shop.ReportWindowDays)
	for i := 0; i < shop.ReportWindowDays; i++ {
		day := today.AddDate(0, 0, -i)
		row, ok := byDay[day]
		if !ok {
			row = shop.DailySales{Date: day}
		}
		daily = append(daily, row)
	}

	return shop.SalesReport{
		ShopID:      shopID,
		Items:       items,
		Daily:       daily,
		TodayOrders: daily[0].OrdersCount,
		TodaySales:  daily[0].Revenue,
		GeneratedAt: now,
	}, nil
}

// ListOrders returns the shop's orders, newest first. An empty status lists
// every order.
func (s *Service) ListOrders(ctx context.Context, shopID int64, status order.Status) ([]order.Order, error) {
	if status != "" && !status.Valid() {
		return nil, apperrors.InvalidInput("unknown order status").WithDetails("status", string(status))
	}
	return s.orders.ListShopOrders(ctx, shopID, status)
}

// CompleteOrder marks a pending order as handed over.
func (s *Service) CompleteOrder(ctx context.Context, shopID, orderID int64) (order.Order, error) {
	return s.transition(ctx, shopID, orderID, order.StatusCompleted, false, events.OrderCompleted)
}

// CancelOrder cancels a pending order and refunds the student.
func (s *Service) CancelOrder(ctx context.Context, shopID, orderID int64) (order.Order, error) {
	return s.transition(ctx, shopID, orderID, order.StatusCancelled, true, events.OrderCancelled)
}

func (s *Service) transition(ctx context.Context, shopID, orderID int64, status order.Status, refund bool, evt events.Type) (order.Order, error) {
	current, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if current.ShopID != shopID {
		return order.Order{}, apperrors.Forbidden("order belongs to another shop")
	}

	updated, err := s.orders.TransitionOrder(ctx, orderID, status, refund)
	if err != nil {
		return order.Order{}, err
	}
	metrics.RecordOrderTransition(string(status))
	if err := s.publisher.Publish(ctx, events.OrderEvent(evt, updated)); err != nil {
		s.log.WithError(err).WithField("order_id", orderID).Warn("publish order event")
	}
	s.log.WithField("shop_id", shopID).
		WithField("order_id", orderID).
		WithField("status", string(status)).
		Info("order status changed")
	return updated, nil
}
