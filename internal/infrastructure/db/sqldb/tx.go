package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TxKey is the context key type for storing transaction
type TxKey struct{}

// Tx wraps sqlx.Tx to support nested transactions using savepoints
type Tx struct {
	*sqlx.Tx
	savepointID int
	ID          string
}

// GetTx retrieves a transaction from the context if it exists
func GetTx(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(TxKey{}).(*Tx)
	return tx, ok
}

// BeginTx starts a transaction, or a savepoint when ctx already carries one.
func (db *DB) BeginTx(ctx context.Context) (context.Context, *Tx, error) {
	if tx, ok := GetTx(ctx); ok {
		tx.savepointID++
		savepoint := fmt.Sprintf("sp_%d", tx.savepointID)

		db.logger.Debug().Str("tx_id", tx.ID).Str("savepoint", savepoint).Msg("creating savepoint")

		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
			tx.savepointID--
			return ctx, nil, errors.Wrap(err, "create savepoint")
		}
		return ctx, tx, nil
	}

	opts := &sql.TxOptions{}
	if db.dialect == Postgres {
		opts.Isolation = sql.LevelReadCommitted
	}
	sqlxTx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return ctx, nil, errors.Wrap(err, "begin transaction")
	}

	tx := &Tx{Tx: sqlxTx, ID: uuid.NewString()}
	db.logger.Debug().Str("tx_id", tx.ID).Msg("starting new transaction")

	return context.WithValue(ctx, TxKey{}, tx), tx, nil
}

// CommitTx commits the current transaction level
func (db *DB) CommitTx(ctx context.Context) error {
	tx, ok := GetTx(ctx)
	if !ok {
		return errors.New("no transaction in context")
	}

	if tx.savepointID > 0 {
		savepoint := fmt.Sprintf("sp_%d", tx.savepointID)
		db.logger.Debug().Str("tx_id", tx.ID).Str("savepoint", savepoint).Msg("releasing savepoint")

		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return errors.Wrap(err, "release savepoint")
		}
		tx.savepointID--
		return nil
	}

	db.logger.Debug().Str("tx_id", tx.ID).Msg("committing transaction")
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// RollbackTx rolls back the current transaction level
func (db *DB) RollbackTx(ctx context.Context) error {
	tx, ok := GetTx(ctx)
	if !ok {
		return errors.New("no transaction in context")
	}

	if tx.savepointID > 0 {
		savepoint := fmt.Sprintf("sp_%d", tx.savepointID)
		db.logger.Debug().Str("tx_id", tx.ID).Str("savepoint", savepoint).Msg("rolling back to savepoint")

		if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); err != nil {
			return errors.Wrap(err, "rollback to savepoint")
		}
		tx.savepointID--
		return nil
	}

	db.logger.Debug().Str("tx_id", tx.ID).Msg("rolling back transaction")
	if err := tx.Rollback(); err != nil {
		return errors.Wrap(err, "rollback transaction")
	}
	return nil
}

// WithTx executes fn within a transaction. Nested calls run in a savepoint.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	txCtx, tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			db.logger.Error().Str("tx_id", tx.ID).Interface("panic", r).Msg("panic in transaction")
			_ = db.RollbackTx(txCtx)
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		db.logger.Debug().Str("tx_id", tx.ID).Err(err).Msg("transaction failed")
		if rbErr := db.RollbackTx(txCtx); rbErr != nil {
			return errors.WithSecondaryError(err, rbErr)
		}
		return err
	}

	return db.CommitTx(txCtx)
}
