// Package postgres contains PostgreSQL implementations of repository interfaces.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/and161185/bucketlist/internal/errs"
	"github.com/and161185/bucketlist/internal/model"
	"github.com/and161185/bucketlist/internal/repository"
)

// PgxPool is a minimal abstraction over a Postgres connection pool,
// used by repositories. It is implemented by *pgxpool.Pool and pgxmock.PgxPoolIface.
type PgxPool interface {
	// Exec executes a SQL command and returns the command tag.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	// Query executes a SELECT and returns a rows iterator.
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	// QueryRow executes a query expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	// BeginTx starts a transaction with the provided options.
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close shuts down the pool and frees resources.
	Close()
}

// DB wraps pgxpool.Pool to satisfy repository constructors and allow testing.
type DB struct{ Pool PgxPool }

// New creates a new connection pool for the given DSN.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool}, nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

// Close closes the underlying pool.
func (db *DB) Close() { db.Pool.Close() }

var readOnly = pgx.TxOptions{AccessMode: pgx.ReadOnly}

// inTx runs fn in a transaction, committing on success and rolling back otherwise.
func (db *DB) inTx(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.Pool.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()
	return fn(tx)
}

// isUniqueViolation reports whether the error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23505"
}

// notFound maps pgx.ErrNoRows to errs.ErrNotFound and passes other errors through.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	return err
}

const bucketlistCols = `id, user_id, name, is_public, date_created, date_modified`

func scanBucketlist(row pgx.Row, b *model.Bucketlist) error {
	return row.Scan(&b.ID, &b.UserID, &b.Name, &b.IsPublic, &b.DateCreated, &b.DateModified)
}

// loadBucketlist reads a bucketlist inside tx, locking the row when lock is set,
// and applies check to it.
func loadBucketlist(ctx context.Context, tx pgx.Tx, id int64, lock bool, check repository.BucketlistCheck) (*model.Bucketlist, error) {
	q := `SELECT ` + bucketlistCols + ` FROM bucketlists WHERE id=$1`
	if lock {
		q += ` FOR UPDATE`
	}
	var b model.Bucketlist
	if err := scanBucketlist(tx.QueryRow(ctx, q, id), &b); err != nil {
		return nil, notFound(err)
	}
	if check != nil {
		if err := check(&b); err != nil {
			return nil, err
		}
	}
	return &b, nil
}

// touchBucketlist bumps date_modified of a bucketlist after one of its items changed.
// Bumps use clock_timestamp(): now() is the transaction start, which may precede
// a concurrent writer that held the row lock first.
func touchBucketlist(ctx context.Context, tx pgx.Tx, id int64) error {
	const q = `UPDATE bucketlists SET date_modified=clock_timestamp() WHERE id=$1`
	_, err := tx.Exec(ctx, q, id)
	return err
}
