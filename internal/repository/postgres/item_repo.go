package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/bucketlist/internal/model"
	"github.com/and161185/bucketlist/internal/repository"
)

// ItemRepo implements ItemRepository using PostgreSQL.
type ItemRepo struct{ db *DB }

// NewItemRepo constructs an item repository.
func NewItemRepo(db *DB) *ItemRepo { return &ItemRepo{db: db} }

const itemCols = `id, bucketlist_id, name, done, date_created, date_modified`

func scanItem(row pgx.Row, it *model.Item) error {
	return row.Scan(&it.ID, &it.BucketlistID, &it.Name, &it.Done, &it.DateCreated, &it.DateModified)
}

// Create inserts an item after the parent bucketlist passed check.
func (r *ItemRepo) Create(ctx context.Context, bucketlistID int64, it *model.Item, check repository.BucketlistCheck) error {
	const ins = `
INSERT INTO items (bucketlist_id, name, done, date_created, date_modified)
VALUES ($1, $2, $3, now(), now())
RETURNING ` + itemCols

	return r.db.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := loadBucketlist(ctx, tx, bucketlistID, true, check); err != nil {
			return err
		}
		if err := scanItem(tx.QueryRow(ctx, ins, bucketlistID, it.Name, it.Done), it); err != nil {
			return err
		}
		return touchBucketlist(ctx, tx, bucketlistID)
	})
}

// Update applies patch to an item and bumps both item and bucketlist timestamps.
func (r *ItemRepo) Update(
	ctx context.Context, bucketlistID, itemID int64, patch model.ItemPatch, check repository.BucketlistCheck,
) (out *model.Item, err error) {
	const upd = `
UPDATE items
SET name = COALESCE($3, name), done = COALESCE($4, done), date_modified = clock_timestamp()
WHERE id=$1 AND bucketlist_id=$2
RETURNING ` + itemCols

	err = r.db.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := loadBucketlist(ctx, tx, bucketlistID, true, check); err != nil {
			return err
		}
		var it model.Item
		if err := scanItem(tx.QueryRow(ctx, upd, itemID, bucketlistID, patch.Name, patch.Done), &it); err != nil {
			return notFound(err)
		}
		if err := touchBucketlist(ctx, tx, bucketlistID); err != nil {
			return err
		}
		out = &it
		return nil
	})
	return out, err
}

// Delete removes an item and bumps the bucketlist timestamp.
func (r *ItemRepo) Delete(ctx context.Context, bucketlistID, itemID int64, check repository.BucketlistCheck) error {
	const del = `DELETE FROM items WHERE id=$1 AND bucketlist_id=$2`

	return r.db.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := loadBucketlist(ctx, tx, bucketlistID, true, check); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, del, itemID, bucketlistID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return notFound(pgx.ErrNoRows)
		}
		return touchBucketlist(ctx, tx, bucketlistID)
	})
}

// ListByBucketlist returns the items of a bucketlist. A nil check skips authorization.
func (r *ItemRepo) ListByBucketlist(ctx context.Context, bucketlistID int64, check repository.BucketlistCheck) (out []model.Item, err error) {
	err = r.db.inTx(ctx, readOnly, func(tx pgx.Tx) error {
		if check != nil {
			if _, err := loadBucketlist(ctx, tx, bucketlistID, false, check); err != nil {
				return err
			}
		}
		var err error
		out, err = itemsOf(ctx, tx, bucketlistID)
		return err
	})
	return out, err
}

// itemsOf loads the items of one bucketlist ordered by id.
func itemsOf(ctx context.Context, tx pgx.Tx, bucketlistID int64) ([]model.Item, error) {
	const q = `SELECT ` + itemCols + ` FROM items WHERE bucketlist_id=$1 ORDER BY id`
	rows, err := tx.Query(ctx, q, bucketlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Item{}
	for rows.Next() {
		var it model.Item
		if err := scanItem(rows, &it); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// itemsOfMany loads the items of several bucketlists in one query, grouped by bucketlist.
func itemsOfMany(ctx context.Context, tx pgx.Tx, bucketlistIDs []int64) (map[int64][]model.Item, error) {
	const q = `SELECT ` + itemCols + ` FROM items WHERE bucketlist_id = ANY($1) ORDER BY bucketlist_id, id`
	rows, err := tx.Query(ctx, q, bucketlistIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]model.Item, len(bucketlistIDs))
	for rows.Next() {
		var it model.Item
		if err := scanItem(rows, &it); err != nil {
			return nil, err
		}
		out[it.BucketlistID] = append(out[it.BucketlistID], it)
	}
	return out, rows.Err()
}
