package pgstore

import (
	"context"
	"fmt"
	"time"

	"go-restaurant-pos/helpers"
	"go-restaurant-pos/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `o.id, o.submission_id, o.table_id, o.status, o.total_cents, o.created_at, o.updated_at`

// InsertOrder writes the order, its items and the first status log row in one transaction.
func (s *Store) InsertOrder(ctx context.Context, o models.Order) (models.Order, error) {
	if o.Order_id == "" {
		o.Order_id = uuid.NewString()
	}
	if o.Created_at.IsZero() {
		o.Created_at = s.now()
	}
	o.Created_at = o.Created_at.UTC()
	o.Updated_at = o.Created_at

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, submission_id, table_id, status, total_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, o.Order_id, o.Submission_id, o.Table_id, string(o.Status), helpers.ToCents(o.Total_amount), o.Created_at)
	if isUniqueViolation(err, "orders_submission_id_key") {
		return models.Order{}, models.ErrDuplicateSubmission
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	items := make([]models.OrderItem, len(o.Order_items))
	for i, item := range o.Order_items {
		item.Order_item_id = uuid.NewString()
		item.Order_id = o.Order_id
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, position, product_id, product_name, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, item.Order_item_id, o.Order_id, i, item.Product_id, item.Product_name, item.Quantity, helpers.ToCents(item.Unit_price))
		if err != nil {
			return models.Order{}, fmt.Errorf("failed to insert order item %s: %w", item.Product_id, err)
		}
		items[i] = item
	}

	_, err = tx.Exec(ctx, `INSERT INTO order_status_log (order_id, status, changed_at) VALUES ($1, $2, $3)`,
		o.Order_id, string(o.Status), o.Created_at)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to insert order status log: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Order{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	o.Order_items = items
	o.Table_name = ""
	return o, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (models.Order, error) {
	orders, err := s.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id)
	if err != nil {
		return models.Order{}, err
	}
	if len(orders) == 0 {
		return models.Order{}, models.OrderNotFound(id)
	}
	return orders[0], nil
}

func (s *Store) GetOrderBySubmission(ctx context.Context, submissionID string) (models.Order, error) {
	orders, err := s.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.submission_id = $1`, submissionID)
	if err != nil {
		return models.Order{}, err
	}
	if len(orders) == 0 {
		return models.Order{}, &models.NotFoundError{Entity: "submission", ID: submissionID}
	}
	return orders[0], nil
}

func (s *Store) ListOrdersForTable(ctx context.Context, tableID int, exclude []models.OrderStatus) ([]models.Order, error) {
	return s.queryOrders(ctx, `
		SELECT `+orderColumns+` FROM orders o
		WHERE o.table_id = $1 AND o.status <> ALL($2)
		ORDER BY o.created_at, o.id
	`, tableID, statusStrings(exclude))
}

func (s *Store) ListOrdersByStatus(ctx context.Context, statuses []models.OrderStatus) ([]models.Order, error) {
	return s.queryOrders(ctx, `
		SELECT `+orderColumns+` FROM orders o
		WHERE o.status = ANY($1)
		ORDER BY o.created_at, o.id
	`, statusStrings(statuses))
}

func (s *Store) ListOrdersCreatedBetween(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	return s.queryOrders(ctx, `
		SELECT `+orderColumns+` FROM orders o
		WHERE o.created_at >= $1 AND o.created_at < $2
		ORDER BY o.created_at, o.id
	`, from.UTC(), to.UTC())
}

func (s *Store) ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`, COALESCE(t.name, '') FROM orders o
		LEFT JOIN dining_tables t ON t.id = o.table_id
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	orders, err := collectOrders(rows, true)
	if err != nil {
		return nil, err
	}
	return orders, s.attachItems(ctx, orders)
}

// UpdateOrderStatus moves matching orders and logs every transition.
func (s *Store) UpdateOrderStatus(ctx context.Context, ids []string, status models.OrderStatus, from []models.OrderStatus) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := s.now()
	rows, err := tx.Query(ctx, `
		UPDATE orders SET status = $2, updated_at = $4
		WHERE id = ANY($1) AND status = ANY($3)
		RETURNING id
	`, ids, string(status), statusStrings(from), now)
	if err != nil {
		return 0, fmt.Errorf("update order status: %w", err)
	}
	moved, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, fmt.Errorf("update order status: %w", err)
	}
	if len(moved) > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_status_log (order_id, status, changed_at)
			SELECT unnest($1::text[]), $2, $3
		`, moved, string(status), now)
		if err != nil {
			return 0, fmt.Errorf("failed to insert order status log: %w", err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(moved), nil
}

func (s *Store) queryOrders(ctx context.Context, sql string, args ...any) ([]models.Order, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	orders, err := collectOrders(rows, false)
	if err != nil {
		return nil, err
	}
	return orders, s.attachItems(ctx, orders)
}

func collectOrders(rows pgx.Rows, withTableName bool) ([]models.Order, error) {
	defer rows.Close()
	out := []models.Order{}
	for rows.Next() {
		var (
			o      models.Order
			status string
			cents  int64
		)
		dest := []any{&o.Order_id, &o.Submission_id, &o.Table_id, &status, &cents, &o.Created_at, &o.Updated_at}
		if withTableName {
			dest = append(dest, &o.Table_name)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = models.OrderStatus(status)
		o.Total_amount = helpers.FromCents(cents)
		o.Order_items = []models.OrderItem{}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) attachItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.Order_id
		index[o.Order_id] = i
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price_cents
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			item  models.OrderItem
			cents int64
		)
		if err := rows.Scan(&item.Order_item_id, &item.Order_id, &item.Product_id, &item.Product_name, &item.Quantity, &cents); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		item.Unit_price = helpers.FromCents(cents)
		i := index[item.Order_id]
		orders[i].Order_items = append(orders[i].Order_items, item)
	}
	return rows.Err()
}

func statusStrings(statuses []models.OrderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
