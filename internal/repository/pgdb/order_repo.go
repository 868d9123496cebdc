package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const orderColumns = `id::text, user_id, status, total_cents, created_at, updated_at`

// OrderRepo хранит заказы и их позиции в PostgreSQL.
type OrderRepo struct {
	pool *pgxpool.Pool
	conv converter.OrderConverter
}

func NewOrderRepo(pool *pgxpool.Pool, conv converter.OrderConverter) *OrderRepo {
	return &OrderRepo{
		pool: pool,
		conv: conv,
	}
}

// Create вставляет заказ и его позиции одним батчем в текущей транзакции.
func (o *OrderRepo) Create(ctx context.Context, order *domain.Order) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	model, items := o.conv.ToModel(order)

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO orders (id, user_id, status, total_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		model.ID, model.UserID, model.Status, model.TotalCents, model.CreatedAt, model.UpdatedAt,
	)
	for _, item := range items {
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4)`,
			item.OrderID, item.ProductID, item.Quantity, item.UnitPriceCents,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return e.Wrap(whereami.WhereAmI(), err)
		}
	}
	if err := br.Close(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (o *OrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	q := conn(ctx, o.pool)

	var model converter.OrderModel
	err := q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id).Scan(
		&model.ID, &model.UserID, &model.Status, &model.TotalCents, &model.CreatedAt, &model.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.ErrOrderNotFound
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	items, err := o.loadItems(ctx, q, []string{id})
	if err != nil {
		return nil, err
	}

	return o.conv.ToEntity(&model, items[id]), nil
}

// ListByUser возвращает заказы пользователя от новых к старым.
func (o *OrderRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	q := conn(ctx, o.pool)

	rows, err := q.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	models, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (converter.OrderModel, error) {
		var m converter.OrderModel
		err := row.Scan(&m.ID, &m.UserID, &m.Status, &m.TotalCents, &m.CreatedAt, &m.UpdatedAt)
		return m, err
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if len(models) == 0 {
		return []*domain.Order{}, nil
	}

	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}

	items, err := o.loadItems(ctx, q, ids)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.Order, 0, len(models))
	for i := range models {
		result = append(result, o.conv.ToEntity(&models[i], items[models[i].ID]))
	}

	return result, nil
}

// UpdateStatus меняет статус, только если текущий равен from.
func (o *OrderRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	q := conn(ctx, o.pool)

	tag, err := q.Exec(ctx, `
		UPDATE orders
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, string(from), string(to))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if !exists {
		return e.ErrOrderNotFound
	}

	return e.ErrInvalidStatusTransition
}

func (o *OrderRepo) loadItems(ctx context.Context, q querier, orderIDs []string) (map[string][]converter.OrderItemModel, error) {
	rows, err := q.Query(ctx, `
		SELECT order_id::text, product_id, quantity, unit_price_cents
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, product_id`, orderIDs)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make(map[string][]converter.OrderItemModel, len(orderIDs))
	for rows.Next() {
		var item converter.OrderItemModel
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		result[item.OrderID] = append(result[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}
