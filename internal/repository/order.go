package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/freshkart/api/internal/model"
)

// CartItemMissingError aborts a bulk purchase when a referenced cart entry does
// not exist for the purchasing user. The id is surfaced to the caller.
type CartItemMissingError struct {
	ID uuid.UUID
}

func (e *CartItemMissingError) Error() string {
	return fmt.Sprintf("cart item %s not found or doesn't belong to the user", e.ID)
}

type OrderRepository interface {
	// PurchaseCart converts the picked cart entries into a new order and its
	// purchases inside a single transaction. On any missing entry the whole
	// transaction rolls back and no order remains.
	PurchaseCart(ctx context.Context, userID uuid.UUID, picks []model.CartPick) (*model.Order, error)
	GetByUniqueID(ctx context.Context, uniqueID string) (*model.Order, error)
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*model.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	ListRecent(ctx context.Context, limit int) ([]model.Order, error)
	ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	ListAll(ctx context.Context) ([]model.Order, error)
	CountByStatus(ctx context.Context) (map[model.OrderStatus]int, error)
	TotalRevenue(ctx context.Context) (decimal.Decimal, error)
	// UpdateStatus persists status, both lifecycle timestamps and the delivery
	// person reference of an already-loaded order.
	UpdateStatus(ctx context.Context, order *model.Order) error
	RecordEvent(ctx context.Context, event model.OrderEvent) error
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

// codeRetryWarnThreshold is when the generation loop starts logging. The loop
// itself stays unbounded; the unique index on orders.unique_id is the backstop.
const codeRetryWarnThreshold = 5

const uniqueViolation = "23505"

func insertOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	for attempt := 1; ; attempt++ {
		order.UniqueID = model.NewOrderCode()

		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE unique_id = $1)`, order.UniqueID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check order code: %w", err)
		}
		if exists {
			if attempt >= codeRetryWarnThreshold {
				slog.Warn("order code collision", "attempt", attempt, "code", order.UniqueID)
			}
			continue
		}

		retry, err := tryInsertOrder(ctx, tx, order)
		if err != nil {
			return err
		}
		if !retry {
			return nil
		}
		// Lost the race against a concurrent insert; pick a new code.
		if attempt >= codeRetryWarnThreshold {
			slog.Warn("order code collision on insert", "attempt", attempt, "code", order.UniqueID)
		}
	}
}

// tryInsertOrder runs the insert under a savepoint so that a code collision
// leaves the surrounding transaction usable. A failed statement would
// otherwise abort the whole transaction and every later retry would be
// rejected with SQLSTATE 25P02.
func tryInsertOrder(ctx context.Context, tx pgx.Tx, order *model.Order) (retry bool, err error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin savepoint: %w", err)
	}

	err = sp.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, unique_id, total_price, status, order_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING order_at`,
		order.ID, order.UserID, order.UniqueID, order.TotalPrice, order.Status,
	).Scan(&order.OrderAt)
	if err != nil {
		_ = sp.Rollback(ctx)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "orders_unique_id_key" {
			return true, nil
		}
		return false, fmt.Errorf("insert order: %w", err)
	}

	if err := sp.Commit(ctx); err != nil {
		return false, fmt.Errorf("release savepoint: %w", err)
	}
	return false, nil
}

func (r *pgOrderRepo) PurchaseCart(ctx context.Context, userID uuid.UUID, picks []model.CartPick) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order := &model.Order{
		ID:         uuid.New(),
		UserID:     &userID,
		Status:     model.OrderStatusPending,
		TotalPrice: decimal.Zero,
	}
	if err := insertOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, pick := range picks {
		// Deleting the entry here, inside the transaction, is also the guard
		// against two concurrent purchases converting the same entry: the
		// second one finds the row gone and the whole request fails.
		var itemID uuid.UUID
		err := tx.QueryRow(ctx,
			`DELETE FROM cart_items WHERE id = $1 AND user_id = $2 RETURNING item_id`,
			pick.CartItemID, userID,
		).Scan(&itemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &CartItemMissingError{ID: pick.CartItemID}
			}
			return nil, fmt.Errorf("consume cart item: %w", err)
		}

		var itemName string
		var sellingPrice decimal.Decimal
		err = tx.QueryRow(ctx,
			`SELECT name, selling_price FROM items WHERE id = $1`, itemID,
		).Scan(&itemName, &sellingPrice)
		if err != nil {
			return nil, fmt.Errorf("load item %s: %w", itemID, err)
		}

		purchase := model.Purchase{
			ID:         uuid.New(),
			UserID:     &userID,
			ItemID:     itemID,
			OrderID:    order.ID,
			Quantity:   pick.Quantity,
			TotalPrice: model.LineTotal(pick.Quantity, sellingPrice),
			ItemName:   itemName,
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO purchases (id, user_id, item_id, order_id, quantity, total_price, purchased_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING purchased_at`,
			purchase.ID, purchase.UserID, purchase.ItemID, purchase.OrderID,
			purchase.Quantity, purchase.TotalPrice,
		).Scan(&purchase.PurchasedAt)
		if err != nil {
			return nil, fmt.Errorf("insert purchase: %w", err)
		}

		total = total.Add(purchase.TotalPrice)
		order.Purchases = append(order.Purchases, purchase)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET total_price = $2 WHERE id = $1`, order.ID, total,
	); err != nil {
		return nil, fmt.Errorf("update order total: %w", err)
	}
	order.TotalPrice = total

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase: %w", err)
	}
	return order, nil
}

const orderColumns = `o.id, o.user_id, o.unique_id, o.total_price, o.status, o.order_at,
	o.shipping_time, o.delivery_time, o.delivery_person_id`

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(
		&o.ID, &o.UserID, &o.UniqueID, &o.TotalPrice, &o.Status, &o.OrderAt,
		&o.ShippingTime, &o.DeliveryTime, &o.DeliveryPersonID,
	)
}

func (r *pgOrderRepo) loadPurchases(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(orders))
	index := make(map[uuid.UUID]*model.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = &orders[i]
	}

	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.user_id, p.item_id, p.order_id, p.quantity, p.total_price, p.purchased_at,
			i.name, COALESCE(i.category, ''), i.ratings, COALESCE(i.image_url, '')
		 FROM purchases p
		 JOIN items i ON i.id = p.item_id
		 WHERE p.order_id = ANY($1)
		 ORDER BY p.purchased_at`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("load purchases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.ItemID, &p.OrderID, &p.Quantity, &p.TotalPrice,
			&p.PurchasedAt, &p.ItemName, &p.ItemCategory, &p.ItemRatings, &p.ItemImageURL); err != nil {
			return fmt.Errorf("scan purchase: %w", err)
		}
		if o, ok := index[p.OrderID]; ok {
			o.Purchases = append(o.Purchases, p)
		}
	}
	return rows.Err()
}

func (r *pgOrderRepo) queryOrders(ctx context.Context, withUsers bool, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if withUsers {
			var uEmail, uMobile, uName, dpEmail, dpMobile, dpName *string
			err = rows.Scan(
				&o.ID, &o.UserID, &o.UniqueID, &o.TotalPrice, &o.Status, &o.OrderAt,
				&o.ShippingTime, &o.DeliveryTime, &o.DeliveryPersonID,
				&uEmail, &uMobile, &uName, &dpEmail, &dpMobile, &dpName,
			)
			if err == nil {
				if o.UserID != nil && uEmail != nil {
					o.User = &model.User{ID: *o.UserID, Email: *uEmail, MobileNumber: *uMobile, Name: *uName}
				}
				if o.DeliveryPersonID != nil && dpEmail != nil {
					o.DeliveryPerson = &model.User{ID: *o.DeliveryPersonID, Email: *dpEmail, MobileNumber: *dpMobile, Name: *dpName}
				}
			}
		} else {
			err = scanOrder(rows, &o)
		}
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadPurchases(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

const adminOrderSelect = `SELECT ` + orderColumns + `,
	u.email, u.mobile_number, u.name, dp.email, dp.mobile_number, dp.name
	FROM orders o
	LEFT JOIN users u ON u.id = o.user_id
	LEFT JOIN users dp ON dp.id = o.delivery_person_id`

func (r *pgOrderRepo) GetByUniqueID(ctx context.Context, uniqueID string) (*model.Order, error) {
	orders, err := r.queryOrders(ctx, true, adminOrderSelect+` WHERE o.unique_id = $1`, uniqueID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

func (r *pgOrderRepo) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*model.Order, error) {
	orders, err := r.queryOrders(ctx, false,
		`SELECT `+orderColumns+` FROM orders o WHERE o.id = $1 AND o.user_id = $2`, id, userID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

func (r *pgOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.queryOrders(ctx, false,
		`SELECT `+orderColumns+` FROM orders o WHERE o.user_id = $1 ORDER BY o.order_at DESC`, userID)
}

func (r *pgOrderRepo) ListRecent(ctx context.Context, limit int) ([]model.Order, error) {
	return r.queryOrders(ctx, false,
		`SELECT `+orderColumns+` FROM orders o ORDER BY o.order_at DESC LIMIT $1`, limit)
}

func (r *pgOrderRepo) ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	return r.queryOrders(ctx, false,
		`SELECT `+orderColumns+` FROM orders o WHERE o.status = $1 ORDER BY o.order_at DESC`, status)
}

func (r *pgOrderRepo) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.queryOrders(ctx, true, adminOrderSelect+` ORDER BY o.order_at DESC`)
}

func (r *pgOrderRepo) CountByStatus(ctx context.Context) (map[model.OrderStatus]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM orders GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.OrderStatus]int)
	for rows.Next() {
		var status model.OrderStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *pgOrderRepo) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_price), 0) FROM orders`,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum order totals: %w", err)
	}
	return total, nil
}

func (r *pgOrderRepo) UpdateStatus(ctx context.Context, order *model.Order) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, shipping_time = $3, delivery_time = $4, delivery_person_id = $5
		 WHERE id = $1`,
		order.ID, order.Status, order.ShippingTime, order.DeliveryTime, order.DeliveryPersonID,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgOrderRepo) RecordEvent(ctx context.Context, event model.OrderEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO order_events (id, order_id, event_type, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		event.ID, event.OrderID, event.Type, event.Status, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record order event: %w", err)
	}
	return nil
}
