package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/money"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Order is created once per shop represented in a checkout.
type Order struct {
	ID          int64       `json:"id" db:"order_id"`
	StudentID   string      `json:"student_id" db:"student_id"`
	ShopID      int64       `json:"shop_id" db:"shop_id"`
	TotalAmount money.Cents `json:"total_amount" db:"total_amount"`
	Status      Status      `json:"status" db:"status"`
	CreatedAt   time.Time   `json:"created_at" db:"order_date"`
	Items       []Item      `json:"items"`
}

// Item is an order line. Price is a snapshot taken at purchase time.
type Item struct {
	ID         int64       `json:"id" db:"order_item_id"`
	OrderID    int64       `json:"order_id" db:"order_id"`
	MenuItemID int64       `json:"menu_item_id" db:"item_id"`
	Name       string      `json:"name" db:"name"`
	Quantity   int         `json:"quantity" db:"quantity"`
	Price      money.Cents `json:"price" db:"price"`
}

// ErrInvalidOrder reports an order that cannot be charged as given.
var ErrInvalidOrder = errors.New("invalid order")

// Subtotal returns quantity x price.
func (i Item) Subtotal() (money.Cents, error) {
	return i.Price.Mul(i.Quantity)
}

// ItemsTotal sums the order lines.
func (o Order) ItemsTotal() (money.Cents, error) {
	var total money.Cents
	for _, it := range o.Items {
		if it.Quantity < 1 || it.Price.IsNegative() {
			return 0, fmt.Errorf("%w: line for item %d has quantity %d and price %s", ErrInvalidOrder, it.MenuItemID, it.Quantity, it.Price)
		}
		sub, err := it.Subtotal()
		if err != nil {
			return 0, err
		}
		if total, err = total.Add(sub); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// ChargeTotal checks that every order total matches its lines and returns the
// amount a checkout of orders debits. The amount is always positive.
func ChargeTotal(orders []Order) (money.Cents, error) {
	var total money.Cents
	for _, o := range orders {
		lines, err := o.ItemsTotal()
		if err != nil {
			return 0, err
		}
		if len(o.Items) == 0 || lines != o.TotalAmount {
			return 0, fmt.Errorf("%w: shop %d total %s does not match its lines", ErrInvalidOrder, o.ShopID, o.TotalAmount)
		}
		if total, err = total.Add(o.TotalAmount); err != nil {
			return 0, err
		}
	}
	if total <= 0 {
		return 0, fmt.Errorf("%w: total %s is not positive", ErrInvalidOrder, total)
	}
	return total, nil
}

// Group is the result of one checkout.
type Group struct {
	StudentID     string      `json:"student_id"`
	Orders        []Order     `json:"orders"`
	Total         money.Cents `json:"total"`
	BalanceBefore money.Cents `json:"balance_before"`
	BalanceAfter  money.Cents `json:"balance_after"`
}
