package core

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx, so repositories run the same
	// queries inside or outside a transaction.
	DBExecutor interface {
		sqlx.ExtContext
	}

	DB interface {
		DBExecutor

		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}
)

var _ DBTransactor = (*sqlx.Tx)(nil)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// TxOptions returns the options every unit of work runs with.
// Postgres gets SERIALIZABLE so the read-all-then-upsert of a performance is atomic per transaction;
// sqlite transactions are serializable already and its drivers reject explicit levels.
func TxOptions(db DB) *sql.TxOptions {
	switch db.DriverName() {
	case "postgres", "pgx":
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	default:
		return nil
	}
}

// WithTx runs fn inside a single transaction.
// The transaction is committed when fn returns nil and rolled back otherwise (panics included).
func WithTx(ctx context.Context, db DB, fn func(tx DBExecutor) error) (err error) {
	tx, err := db.BeginTxx(ctx, TxOptions(db))
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	return runTx(tx, fn)
}

func runTx(tx DBTransactor, fn func(tx DBExecutor) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}
