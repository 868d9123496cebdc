package pgdb

import (
	"context"

	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/DRSN-tech/checkout-backend/pkg/tr"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
)

// Transactor открывает транзакции PostgreSQL и кладёт pgx.Tx в контекст для репозиториев.
type Transactor struct {
	db     transaction.Transactional
	logger logger.Logger
}

func NewTransactor(db transaction.Transactional, logger logger.Logger) *Transactor {
	return &Transactor{db: db, logger: logger}
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, txErr := tr.TxFromCtx(ctx); txErr == nil {
		return fn(ctx)
	}

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, t.db)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), classifyTxErr(err))
	}
	// При ошибке транзакция откатывается даже после отмены исходного контекста
	defer func() {
		if err != nil && tx.IsActive() {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
				t.logger.Warnf("Failed to rollback transaction: %v", rbErr)
			}
		}
	}()

	pgxTx, ok := tx.Transaction().(pgx.Tx)
	if !ok {
		return e.Wrap(whereami.WhereAmI(), e.ErrTransactionNotFound)
	}

	if err = fn(tr.WithTx(ctx, pgxTx)); err != nil {
		return classifyTxErr(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return e.Wrap(whereami.WhereAmI(), classifyTxErr(err))
	}

	return nil
}
