package storage

import (
	"context"
	"time"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/admin"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/order"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/shop"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/student"
)

// StudentStore persists student accounts.
type StudentStore interface {
	CreateStudent(ctx context.Context, st student.Student) (student.Student, error)
	UpdateStudent(ctx context.Context, st student.Student) (student.Student, error)
	GetStudent(ctx context.Context, id string) (student.Student, error)
	ListStudents(ctx context.Context) ([]student.Student, error)
	DeleteStudent(ctx context.Context, id string) error
}

// AdminStore persists administrator accounts.
type AdminStore interface {
	CreateAdmin(ctx context.Context, a admin.Admin) (admin.Admin, error)
	GetAdminByUsername(ctx context.Context, username string) (admin.Admin, error)
}

// ShopStore persists shops.
type ShopStore interface {
	CreateShop(ctx context.Context, s shop.Shop) (shop.Shop, error)
	GetShop(ctx context.Context, id int64) (shop.Shop, error)
	GetShopByName(ctx context.Context, name string) (shop.Shop, error)
	ListShops(ctx context.Context) ([]shop.Shop, error)
}

// MenuStore persists menu items.
type MenuStore interface {
	CreateMenuItem(ctx context.Context, item shop.MenuItem) (shop.MenuItem, error)
	GetMenuItem(ctx context.Context, id int64) (shop.MenuItem, error)
	// ListMenuItems returns a shop's items ordered by id. availableOnly hides
	// items switched off by the shop.
	ListMenuItems(ctx context.Context, shopID int64, availableOnly bool) ([]shop.MenuItem, error)
	SetMenuItemAvailability(ctx context.Context, id int64, available bool) (shop.MenuItem, error)
}

// OrderStore persists orders and owns the balance ledger.
type OrderStore interface {
	// PlaceOrders writes a checkout atomically. The student row is locked, its
	// balance checked against the sum of the order totals, every order and line
	// inserted and the balance debited. On any failure nothing is written.
	PlaceOrders(ctx context.Context, studentID string, orders []order.Order) (order.Group, error)

	GetOrder(ctx context.Context, id int64) (order.Order, error)
	// ListShopOrders returns a shop's orders newest first. An empty status
	// matches every status.
	ListShopOrders(ctx context.Context, shopID int64, status order.Status) ([]order.Order, error)
	ListStudentOrders(ctx context.Context, studentID string) ([]order.Order, error)

	// TransitionOrder moves a pending order to status. With refund set the order
	// total is credited back to the student in the same transaction.
	TransitionOrder(ctx context.Context, id int64, status order.Status, refund bool) (order.Order, error)
}

// ReportStore computes sales aggregates. Cancelled orders never count.
type ReportStore interface {
	ItemSales(ctx context.Context, shopID int64) ([]shop.ItemSales, error)
	// DailySales returns one row per calendar day (UTC) with orders placed in
	// [since, until), newest first. Days without orders are omitted.
	DailySales(ctx context.Context, shopID int64, since, until time.Time) ([]shop.DailySales, error)
}
