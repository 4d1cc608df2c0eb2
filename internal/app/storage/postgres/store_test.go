package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/order"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/shop"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/student"
	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
	"github.com/R3E-Network/canteen_pos/internal/platform/migrations"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func twoShopCheckout() []order.Order {
	return []order.Order{
		{ShopID: 1, TotalAmount: 9000, Items: []order.Item{{MenuItemID: 1, Name: "A", Quantity: 2, Price: 4500}}},
		{ShopID: 3, TotalAmount: 2500, Items: []order.Item{{MenuItemID: 7, Name: "C", Quantity: 1, Price: 2500}}},
	}
}

func TestPlaceOrdersCommits(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT balance FROM students WHERE student_id = \$1 FOR UPDATE`).
		WithArgs("01514").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(50000)))
	mock.ExpectQuery(`INSERT INTO orders`).
		WithArgs("01514", int64(1), int64(9000), "pending").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "order_date"}).AddRow(int64(10), now))
	mock.ExpectQuery(`INSERT INTO order_items`).
		WithArgs(int64(10), int64(1), "A", int64(2), int64(4500)).
		WillReturnRows(sqlmock.NewRows([]string{"order_item_id"}).AddRow(int64(100)))
	mock.ExpectQuery(`INSERT INTO orders`).
		WithArgs("01514", int64(3), int64(2500), "pending").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "order_date"}).AddRow(int64(11), now))
	mock.ExpectQuery(`INSERT INTO order_items`).
		WithArgs(int64(11), int64(7), "C", int64(1), int64(2500)).
		WillReturnRows(sqlmock.NewRows([]string{"order_item_id"}).AddRow(int64(101)))
	mock.ExpectExec(`UPDATE students SET balance = balance - \$2 WHERE student_id = \$1`).
		WithArgs("01514", int64(11500)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	group, err := store.PlaceOrders(context.Background(), "01514", twoShopCheckout())
	if err != nil {
		t.Fatalf("place orders: %v", err)
	}
	if len(group.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(group.Orders))
	}
	if group.BalanceAfter != 38500 {
		t.Fatalf("expected balance 385.00, got %s", group.BalanceAfter)
	}
	if group.Orders[1].Items[0].ID != 101 || group.Orders[1].Items[0].OrderID != 11 {
		t.Fatalf("line ids not populated: %+v", group.Orders[1].Items[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPlaceOrdersInsufficientBalanceRollsBack(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT balance FROM students`).
		WithArgs("01514").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(11499)))
	mock.ExpectRollback()

	_, err := store.PlaceOrders(context.Background(), "01514", twoShopCheckout())
	if !errors.Is(err, apperrors.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPlaceOrdersUnknownStudent(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT balance FROM students`).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}))
	mock.ExpectRollback()

	_, err := store.PlaceOrders(context.Background(), "nobody", twoShopCheckout())
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPlaceOrdersRejectsUnchargeableOrders(t *testing.T) {
	cases := map[string][]order.Order{
		"overflowing line": {{ShopID: 1, TotalAmount: -9223372036854773116,
			Items: []order.Item{{MenuItemID: 1, Quantity: 2049638230412173, Price: 4500}}}},
		"total mismatch": {{ShopID: 1, TotalAmount: 100,
			Items: []order.Item{{MenuItemID: 1, Quantity: 2, Price: 4500}}}},
		"zero total": {{ShopID: 1, TotalAmount: 0,
			Items: []order.Item{{MenuItemID: 1, Quantity: 1, Price: 0}}}},
		"no orders": nil,
	}
	for name, orders := range cases {
		t.Run(name, func(t *testing.T) {
			store, mock := newMock(t)
			_, err := store.PlaceOrders(context.Background(), "01514", orders)
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("database touched: %v", err)
			}
		})
	}
}

func TestPlaceOrdersFailureMidwayRollsBack(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT balance FROM students`).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(50000)))
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "order_date"}).AddRow(int64(10), now))
	mock.ExpectQuery(`INSERT INTO order_items`).
		WillReturnRows(sqlmock.NewRows([]string{"order_item_id"}).AddRow(int64(100)))
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := store.PlaceOrders(context.Background(), "01514", twoShopCheckout())
	if !errors.Is(err, apperrors.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateShopDuplicateName(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`INSERT INTO shops`).
		WithArgs("Noodle Bar", "", "hash", "").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateShop(context.Background(), shop.Shop{Name: "Noodle Bar", PasswordHash: "hash"})
	if !errors.Is(err, apperrors.ErrDuplicateName) {
		t.Fatalf("expected duplicate name, got %v", err)
	}
}

func TestGetStudentNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`SELECT student_id, name, password_hash, balance`).
		WithArgs("404").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "name", "password_hash", "balance"}))

	_, err := store.GetStudent(context.Background(), "404")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteStudentNoRows(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(`DELETE FROM students`).
		WithArgs("404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteStudent(context.Background(), "404"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTransitionOrderRefunds(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT order_id, student_id, shop_id, total_amount, status, order_date FROM orders WHERE order_id = \$1 FOR UPDATE`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "student_id", "shop_id", "total_amount", "status", "order_date"}).
			AddRow(int64(10), "01514", int64(1), int64(9000), "pending", now))
	mock.ExpectExec(`UPDATE orders SET status`).
		WithArgs(int64(10), "cancelled").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE students SET balance = balance \+ \$2`).
		WithArgs("01514", int64(9000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM order_items WHERE order_id`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"order_item_id", "order_id", "item_id", "name", "quantity", "price"}).
			AddRow(int64(100), int64(10), int64(1), "A", int64(2), int64(4500)))
	mock.ExpectCommit()

	o, err := store.TransitionOrder(context.Background(), 10, order.StatusCancelled, true)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if o.Status != order.StatusCancelled || len(o.Items) != 1 {
		t.Fatalf("unexpected order %+v", o)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransitionOrderRejectsNonPending(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM orders WHERE order_id`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "student_id", "shop_id", "total_amount", "status", "order_date"}).
			AddRow(int64(10), "01514", int64(1), int64(9000), "completed", time.Now()))
	mock.ExpectRollback()

	_, err := store.TransitionOrder(context.Background(), 10, order.StatusCancelled, true)
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestItemSalesComputesProfit(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`FROM order_items oi`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "name", "total_sold", "revenue", "total_cost"}).
			AddRow(int64(1), "A", int64(3), int64(13500), int64(6000)))

	items, err := store.ItemSales(context.Background(), 1)
	if err != nil {
		t.Fatalf("item sales: %v", err)
	}
	if len(items) != 1 || items[0].Profit != 7500 {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}
	ctx := context.Background()
	if err := migrations.Apply(ctx, dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := New(db)
	suffix := time.Now().Format("150405.000000")

	sh, err := store.CreateShop(ctx, shop.Shop{Name: "it-shop-" + suffix, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create shop: %v", err)
	}
	item, err := store.CreateMenuItem(ctx, shop.MenuItem{ShopID: sh.ID, Name: "Rice", Price: 4500, Cost: 2000, Available: true})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	st, err := store.CreateStudent(ctx, student.Student{ID: "it-" + suffix, Name: "IT", PasswordHash: "x", Balance: 9000})
	if err != nil {
		t.Fatalf("create student: %v", err)
	}

	group, err := store.PlaceOrders(ctx, st.ID, []order.Order{{ShopID: sh.ID, TotalAmount: 9000,
		Items: []order.Item{{MenuItemID: item.ID, Name: item.Name, Quantity: 2, Price: item.Price}}}})
	if err != nil {
		t.Fatalf("place orders: %v", err)
	}
	if group.BalanceAfter != 0 {
		t.Fatalf("expected zero balance, got %s", group.BalanceAfter)
	}

	sales, err := store.ItemSales(ctx, sh.ID)
	if err != nil || len(sales) != 1 || sales[0].Profit != 5000 {
		t.Fatalf("item sales: %+v %v", sales, err)
	}

	if _, err := store.TransitionOrder(ctx, group.Orders[0].ID, order.StatusCancelled, true); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	refreshed, _ := store.GetStudent(ctx, st.ID)
	if refreshed.Balance != 9000 {
		t.Fatalf("expected refund, got %s", refreshed.Balance)
	}
}
