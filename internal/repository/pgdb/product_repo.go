package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, price_cents, stock, created_at, updated_at, is_archived`

// ProductRepo реализует репозиторий продуктов поверх PostgreSQL.
// Цена хранится в копейках.
type ProductRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewProductRepo(pool *pgxpool.Pool, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		pool: pool,
		conv: conv,
	}
}

func (p *ProductRepo) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	model := p.conv.ToModel(product)
	query := `
		INSERT INTO products (name, price_cents, stock)
		VALUES ($1, $2, $3)
		RETURNING ` + productColumns

	row := conn(ctx, p.pool).QueryRow(ctx, query, model.Name, model.PriceCents, model.Stock)
	created, err := p.scan(row)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return created, nil
}

func (p *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := p.scan(conn(ctx, p.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.ErrProductNotFound
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return product, nil
}

// GetProductsInfo возвращает информацию о продуктах по их идентификаторам.
func (p *ProductRepo) GetProductsInfo(ctx context.Context, ids []int64) ([]usecase.ProductInfo, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	rows, err := p.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]usecase.ProductInfo, 0, len(ids))
	for rows.Next() {
		product, err := p.scan(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, usecase.NewProductInfo(product))
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

// TryReserveStock списывает остаток одним условным UPDATE.
// Строка блокируется до конца транзакции, поэтому параллельные фиксации не продают больше, чем есть.
func (p *ProductRepo) TryReserveStock(ctx context.Context, id int64, quantity int64) (*domain.Product, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND is_archived = FALSE AND stock >= $2
		RETURNING ` + productColumns

	product, err := p.scan(tx.QueryRow(ctx, query, id, quantity))
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return nil, p.reservationFailure(ctx, tx, id)
}

// reservationFailure выясняет, почему условный UPDATE не затронул строку.
func (p *ProductRepo) reservationFailure(ctx context.Context, tx pgx.Tx, id int64) error {
	var isArchived bool
	err := tx.QueryRow(ctx, `SELECT is_archived FROM products WHERE id = $1`, id).Scan(&isArchived)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return e.ErrProductNotFound
	case err != nil:
		return e.Wrap(whereami.WhereAmI(), err)
	case isArchived:
		return e.ErrProductUnavailable
	default:
		return e.ErrInsufficientStock
	}
}

// Restock пополняет остаток, если итог не превышает domain.MaxStock.
func (p *ProductRepo) Restock(ctx context.Context, id int64, quantity int64) (*domain.Product, error) {
	query := `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND $2 > 0 AND stock <= $3 - $2
		RETURNING ` + productColumns

	product, err := p.updateOne(ctx, query, id, quantity, domain.MaxStock)
	if !errors.Is(err, e.ErrProductNotFound) {
		return product, err
	}

	// Строка есть, но условие не выполнено: пополнение вышло за границу
	if _, getErr := p.GetByID(ctx, id); getErr == nil {
		return nil, e.ErrInvalidQuantity
	}
	return nil, err
}

func (p *ProductRepo) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (*domain.Product, error) {
	query := `
		UPDATE products
		SET price_cents = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + productColumns

	return p.updateOne(ctx, query, id, converter.DecimalToCents(price))
}

// Archive снимает товар с продажи, строку не удаляет.
func (p *ProductRepo) Archive(ctx context.Context, id int64) error {
	query := `
		UPDATE products
		SET is_archived = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + productColumns

	_, err := p.updateOne(ctx, query, id)
	return err
}

func (p *ProductRepo) updateOne(ctx context.Context, query string, args ...any) (*domain.Product, error) {
	product, err := p.scan(conn(ctx, p.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.ErrProductNotFound
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return product, nil
}

func (p *ProductRepo) scan(row pgx.Row) (*domain.Product, error) {
	var model converter.ProductModel
	if err := row.Scan(
		&model.ID, &model.Name, &model.PriceCents, &model.Stock,
		&model.CreatedAt, &model.UpdatedAt, &model.IsArchived,
	); err != nil {
		return nil, err
	}

	return p.conv.ToEntity(&model), nil
}
