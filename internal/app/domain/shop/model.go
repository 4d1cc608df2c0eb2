package shop

import (
	"time"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/money"
)

// Shop is a vendor stall with its own menu.
type Shop struct {
	ID           int64  `json:"id" db:"shop_id"`
	Name         string `json:"name" db:"shop_name"`
	OwnerName    string `json:"owner_name" db:"owner_name"`
	PasswordHash string `json:"-" db:"password_hash"`
	ImageURL     string `json:"image_url" db:"image_url"`
}

// MenuItem is a product sold by a shop. Name is unique per shop.
type MenuItem struct {
	ID        int64       `json:"id" db:"item_id"`
	ShopID    int64       `json:"shop_id" db:"shop_id"`
	Name      string      `json:"name" db:"name"`
	Price     money.Cents `json:"price" db:"price"`
	Cost      money.Cents `json:"cost" db:"cost"`
	Available bool        `json:"available" db:"available"`
	Category  string      `json:"category" db:"category"`
	ImageURL  string      `json:"image_url" db:"image_url"`
}

// ItemSales aggregates sold quantities for one menu item.
type ItemSales struct {
	ItemID    int64       `json:"item_id" db:"item_id"`
	Name      string      `json:"name" db:"name"`
	TotalSold int64       `json:"total_sold" db:"total_sold"`
	Revenue   money.Cents `json:"revenue" db:"revenue"`
	TotalCost money.Cents `json:"total_cost" db:"total_cost"`
	Profit    money.Cents `json:"profit" db:"profit"`
}

// DailySales is one day of the rolling revenue window.
type DailySales struct {
	Date        time.Time   `json:"date" db:"order_date"`
	OrdersCount int64       `json:"orders_count" db:"orders_count"`
	Revenue     money.Cents `json:"revenue" db:"daily_revenue"`
}

// SalesReport is the read model behind the shop dashboard.
type SalesReport struct {
	ShopID      int64        `json:"shop_id"`
	Items       []ItemSales  `json:"items"`
	Daily       []DailySales `json:"daily"`
	TodayOrders int64        `json:"today_orders"`
	TodaySales  money.Cents  `json:"today_sales"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// ReportWindowDays is the length of the daily rollup, today included.
const ReportWindowDays = 7
