package postgres

import (
	"context"
	"time"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/shop"
)

// --- ReportStore ------------------------------------------------------------

func (s *Store) ItemSales(ctx context.Context, shopID int64) ([]shop.ItemSales, error) {
	result := []shop.ItemSales{}
	err := s.db.SelectContext(ctx, &result, `
		SELECT oi.item_id                                    AS item_id,
		       MAX(oi.name)                                  AS name,
		       SUM(oi.quantity)::BIGINT                      AS total_sold,
		       SUM(oi.quantity * oi.price)::BIGINT           AS revenue,
		       SUM(oi.quantity * COALESCE(mi.cost, 0))::BIGINT AS total_cost
		FROM order_items oi
		JOIN orders o ON o.order_id = oi.order_id
		LEFT JOIN menu_items mi ON mi.item_id = oi.item_id
		WHERE o.shop_id = $1 AND o.status <> 'cancelled'
		GROUP BY oi.item_id
		ORDER BY total_sold DESC, oi.item_id
	`, shopID)
	if err != nil {
		return nil, mapError(err, "shop", shopID)
	}
	for i := range result {
		result[i].Profit = result[i].Revenue - result[i].TotalCost
	}
	return result, nil
}

func (s *Store) DailySales(ctx context.Context, shopID int64, since, until time.Time) ([]shop.DailySales, error) {
	result := []shop.DailySales{}
	err := s.db.SelectContext(ctx, &result, `
		SELECT date_trunc('day', order_date AT TIME ZONE 'UTC') AS order_date,
		       COUNT(*)                                      AS orders_count,
		       SUM(total_amount)::BIGINT                     AS daily_revenue
		FROM orders
		WHERE shop_id = $1
		  AND status <> 'cancelled'
		  AND order_date >= $2 AND order_date < $3
		GROUP BY 1
		ORDER BY 1 DESC
	`, shopID, since, until)
	if err != nil {
		return nil, mapError(err, "shop", shopID)
	}
	for i := range result {
		result[i].Date = result[i].Date.UTC()
	}
	return result, nil
}
