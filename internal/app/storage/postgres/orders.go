package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/money"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/order"
	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
)

const orderColumns = `order_id, student_id, shop_id, total_amount, status, order_date`

const itemColumns = `order_item_id, order_id, item_id, name, quantity, price`

// --- OrderStore -------------------------------------------------------------

func (s *Store) PlaceOrders(ctx context.Context, studentID string, orders []order.Order) (order.Group, error) {
	total, err := order.ChargeTotal(orders)
	if err != nil {
		return order.Group{}, apperrors.New(apperrors.CodeInvalidInput, err.Error(), err)
	}

	group := order.Group{StudentID: studentID, Total: total}
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		var balance money.Cents
		if err := tx.GetContext(ctx, &balance, `
			SELECT balance FROM students WHERE student_id = $1 FOR UPDATE
		`, studentID); err != nil {
			return mapError(err, "student", studentID)
		}
		if balance < total {
			return apperrors.InsufficientBalance(balance, total)
		}

		created := make([]order.Order, 0, len(orders))
		for _, o := range orders {
			o.StudentID = studentID
			o.Status = order.StatusPending
			if err := tx.QueryRowxContext(ctx, `
				INSERT INTO orders (student_id, shop_id, total_amount, status)
				VALUES ($1, $2, $3, $4)
				RETURNING order_id, order_date
			`, o.StudentID, o.ShopID, o.TotalAmount, o.Status).Scan(&o.ID, &o.CreatedAt); err != nil {
				return mapError(err, "shop", o.ShopID)
			}

			lines := make([]order.Item, len(o.Items))
			for i, line := range o.Items {
				line.OrderID = o.ID
				if err := tx.QueryRowxContext(ctx, `
					INSERT INTO order_items (order_id, item_id, name, quantity, price)
					VALUES ($1, $2, $3, $4, $5)
					RETURNING order_item_id
				`, line.OrderID, line.MenuItemID, line.Name, line.Quantity, line.Price).Scan(&line.ID); err != nil {
					return mapError(err, "order item", line.MenuItemID)
				}
				lines[i] = line
			}
			o.Items = lines
			created = append(created, o)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE students SET balance = balance - $2 WHERE student_id = $1
		`, studentID, total)
		if err != nil {
			return mapError(err, "student", studentID)
		}
		if err := expectRow(res, "student", studentID); err != nil {
			return err
		}

		group.Orders = created
		group.BalanceBefore = balance
		group.BalanceAfter = balance - total
		return nil
	})
	if err != nil {
		return order.Group{}, err
	}
	return group, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (order.Order, error) {
	var o order.Order
	if err := s.db.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, id); err != nil {
		return order.Order{}, mapError(err, "order", id)
	}
	if err := s.db.SelectContext(ctx, &o.Items, `
		SELECT `+itemColumns+` FROM order_items WHERE order_id = $1 ORDER BY order_item_id
	`, id); err != nil {
		return order.Order{}, mapError(err, "order", id)
	}
	return o, nil
}

func (s *Store) ListShopOrders(ctx context.Context, shopID int64, status order.Status) ([]order.Order, error) {
	result := []order.Order{}
	err := s.db.SelectContext(ctx, &result, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE shop_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY order_date DESC, order_id DESC
	`, shopID, string(status))
	if err != nil {
		return nil, mapError(err, "order", shopID)
	}
	return result, s.attachItems(ctx, result)
}

func (s *Store) ListStudentOrders(ctx context.Context, studentID string) ([]order.Order, error) {
	result := []order.Order{}
	err := s.db.SelectContext(ctx, &result, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE student_id = $1
		ORDER BY order_date DESC, order_id DESC
	`, studentID)
	if err != nil {
		return nil, mapError(err, "order", studentID)
	}
	return result, s.attachItems(ctx, result)
}

// attachItems loads the lines of every order in one query.
func (s *Store) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	var lines []order.Item
	if err := s.db.SelectContext(ctx, &lines, `
		SELECT `+itemColumns+`
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_item_id
	`, pq.Array(ids)); err != nil {
		return mapError(err, "order", nil)
	}
	for _, line := range lines {
		i := index[line.OrderID]
		orders[i].Items = append(orders[i].Items, line)
	}
	return nil
}

func (s *Store) TransitionOrder(ctx context.Context, id int64, status order.Status, refund bool) (order.Order, error) {
	var o order.Order
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &o, `
			SELECT `+orderColumns+` FROM orders WHERE order_id = $1 FOR UPDATE
		`, id); err != nil {
			return mapError(err, "order", id)
		}
		if o.Status != order.StatusPending {
			return apperrors.InvalidInput("order is not pending").WithDetails("status", string(o.Status))
		}
		if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = $2 WHERE order_id = $1`, id, status); err != nil {
			return mapError(err, "order", id)
		}
		if refund {
			// the student may have been deleted since; the order history stays
			if _, err := tx.ExecContext(ctx, `
				UPDATE students SET balance = balance + $2 WHERE student_id = $1
			`, o.StudentID, o.TotalAmount); err != nil {
				return mapError(err, "student", o.StudentID)
			}
		}
		o.Status = status
		return tx.SelectContext(ctx, &o.Items, `
			SELECT `+itemColumns+` FROM order_items WHERE order_id = $1 ORDER BY order_item_id
		`, id)
	})
	if err != nil {
		return order.Order{}, err
	}
	return o, nil
}
