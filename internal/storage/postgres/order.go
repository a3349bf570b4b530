package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmart/storefront/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository across the modern
// orders/order_items schema and the legacy single-line "order" table.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const (
	insertOrderSQL = `INSERT INTO orders (user_id, subtotal, shipping_fee, total, shipping_address, payment_method, status)
	VALUES ($1, $2, $3, $4, $5, $6, 'pending')
	RETURNING id`

	insertItemSQL = `INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity)
	VALUES ($1, $2, $3, $4, $5)`
)

// Create persists a draft as one header row plus one item row per line,
// inside a single transaction. A header with no items, or items with no
// header, would corrupt receipts and reporting, so any failure rolls the
// whole insert back and surfaces as *order.PersistenceError.
func (r *OrderRepository) Create(ctx context.Context, d order.Draft) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, &order.PersistenceError{Op: "begin", Err: err}
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var id int64
	err = tx.QueryRow(ctx, insertOrderSQL,
		d.UserID, d.Subtotal, d.ShippingFee, d.Total, d.ShippingAddress, d.PaymentMethod,
	).Scan(&id)
	if err != nil {
		return 0, &order.PersistenceError{Op: "insert order", Err: err}
	}

	for _, item := range d.Items {
		_, err = tx.Exec(ctx, insertItemSQL,
			id, item.ProductID, item.Name, item.UnitPrice, item.Quantity,
		)
		if err != nil {
			return 0, &order.PersistenceError{Op: "insert order item", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &order.PersistenceError{Op: "commit", Err: err}
	}
	return id, nil
}

const (
	selectOrderSQL = `SELECT id, user_id, subtotal, shipping_fee, total, shipping_address, payment_method, status, ordered_at, updated_at
	FROM orders WHERE id = $1`

	selectItemsSQL = `SELECT order_id, product_id, product_name, unit_price, quantity
	FROM order_items WHERE order_id = ANY($1) ORDER BY id`

	selectLegacySQL = `SELECT id, user_id, product_name, unit_price, quantity, total, shipping_address, payment_method, status, ordered_at
	FROM "order" WHERE id = $1`
)

// GetByID checks the modern schema first and falls back to the legacy
// single-line schema. Returns order.ErrNotFound when neither matches.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (order.Record, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, selectOrderSQL, id))
	switch {
	case err == nil:
		items, err := r.loadItems(ctx, []int64{id})
		if err != nil {
			return nil, err
		}
		o.Items = items[id]
		return o, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Fall through to the legacy schema.
	default:
		return nil, errors.Wrapf(err, "get order %d", id)
	}

	legacy, err := scanLegacy(r.pool.QueryRow(ctx, selectLegacySQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get legacy order %d", id)
	}
	return legacy, nil
}

const (
	listOrdersSQL = `SELECT id, user_id, subtotal, shipping_fee, total, shipping_address, payment_method, status, ordered_at, updated_at
	FROM orders WHERE user_id = $1 ORDER BY ordered_at DESC`

	listLegacySQL = `SELECT id, user_id, product_name, unit_price, quantity, total, shipping_address, payment_method, status, ordered_at
	FROM "order" WHERE user_id = $1 ORDER BY ordered_at DESC`
)

// ListByUser returns the union of modern and legacy orders for the user,
// merged by order timestamp descending. The two schemas are only comparable
// as calendar instants, so each side is fetched sorted and merge-joined.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]order.Record, error) {
	modern, err := r.listModern(ctx, userID)
	if err != nil {
		return nil, err
	}
	legacy, err := r.listLegacy(ctx, userID)
	if err != nil {
		return nil, err
	}
	return mergeByPlacedAt(modern, legacy), nil
}

const (
	updateStatusSQL = `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

	updateLegacyStatusSQL = `UPDATE "order" SET status = $2 WHERE id = $1`
)

// UpdateStatus sets status and updated_at, trying the modern schema first.
// Totals and items are never touched here.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, s order.Status, at time.Time) error {
	tag, err := r.pool.Exec(ctx, updateStatusSQL, id, string(s), at)
	if err != nil {
		return &order.PersistenceError{Op: "update status", Err: err}
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	tag, err = r.pool.Exec(ctx, updateLegacyStatusSQL, id, string(s))
	if err != nil {
		return &order.PersistenceError{Op: "update legacy status", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) listModern(ctx context.Context, userID int64) ([]*order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var (
		out []*order.Order
		ids []int64
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if len(out) == 0 {
		return nil, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range out {
		o.Items = items[o.ID]
	}
	return out, nil
}

func (r *OrderRepository) listLegacy(ctx context.Context, userID int64) ([]*order.LegacyOrder, error) {
	rows, err := r.pool.Query(ctx, listLegacySQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list legacy orders")
	}
	defer rows.Close()

	var out []*order.LegacyOrder
	for rows.Next() {
		o, err := scanLegacy(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan legacy order")
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list legacy orders")
	}
	return out, nil
}

// loadItems fetches the item rows for the given order IDs in one query and
// groups them by order.
func (r *OrderRepository) loadItems(ctx context.Context, orderIDs []int64) (map[int64][]order.Item, error) {
	rows, err := r.pool.Query(ctx, selectItemsSQL, orderIDs)
	if err != nil {
		return nil, errors.Wrap(err, "load order items")
	}
	defer rows.Close()

	items := make(map[int64][]order.Item, len(orderIDs))
	for rows.Next() {
		var (
			orderID int64
			it      order.Item
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.UnitPrice, &it.Quantity); err != nil {
			return nil, errors.Wrap(err, "scan order item")
		}
		items[orderID] = append(items[orderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "load order items")
	}
	return items, nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Subtotal, &o.ShippingFee, &o.Total,
		&o.ShippingAddress, &o.PaymentMethod, &status, &o.OrderedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = order.Status(status)
	return &o, nil
}

func scanLegacy(row pgx.Row) (*order.LegacyOrder, error) {
	var (
		o      order.LegacyOrder
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.ProductName, &o.UnitPrice, &o.Quantity,
		&o.Total, &o.ShippingAddress, &o.PaymentMethod, &status, &o.OrderedAt)
	if err != nil {
		return nil, err
	}
	o.Status = order.Status(status)
	return &o, nil
}

// mergeByPlacedAt merges two timestamp-descending slices into one, newest
// first. Ties keep the modern record ahead.
func mergeByPlacedAt(modern []*order.Order, legacy []*order.LegacyOrder) []order.Record {
	out := make([]order.Record, 0, len(modern)+len(legacy))
	i, j := 0, 0
	for i < len(modern) && j < len(legacy) {
		if legacy[j].PlacedAt().After(modern[i].PlacedAt()) {
			out = append(out, legacy[j])
			j++
		} else {
			out = append(out, modern[i])
			i++
		}
	}
	for ; i < len(modern); i++ {
		out = append(out, modern[i])
	}
	for ; j < len(legacy); j++ {
		out = append(out, legacy[j])
	}
	return out
}
