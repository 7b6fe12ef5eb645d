package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/bucketlist/internal/model"
	"github.com/and161185/bucketlist/internal/repository"
)

// BucketlistRepo implements BucketlistRepository using PostgreSQL.
type BucketlistRepo struct{ db *DB }

// NewBucketlistRepo constructs a bucketlist repository.
func NewBucketlistRepo(db *DB) *BucketlistRepo { return &BucketlistRepo{db: db} }

// Create inserts a bucketlist; both timestamps come from the same now().
func (r *BucketlistRepo) Create(ctx context.Context, b *model.Bucketlist) error {
	const q = `
INSERT INTO bucketlists (user_id, name, is_public, date_created, date_modified)
VALUES ($1, $2, $3, now(), now())
RETURNING id, date_created, date_modified`
	if err := r.db.Pool.QueryRow(ctx, q, b.UserID, b.Name, b.IsPublic).Scan(&b.ID, &b.DateCreated, &b.DateModified); err != nil {
		return err
	}
	b.Items = []model.Item{}
	return nil
}

// Get loads a single bucketlist with its items.
func (r *BucketlistRepo) Get(ctx context.Context, id int64, check repository.BucketlistCheck) (out *model.Bucketlist, err error) {
	err = r.db.inTx(ctx, readOnly, func(tx pgx.Tx) error {
		b, err := loadBucketlist(ctx, tx, id, false, check)
		if err != nil {
			return err
		}
		if b.Items, err = itemsOf(ctx, tx, b.ID); err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

// List returns a page of the owner's bucketlists filtered by a case-sensitive name substring.
func (r *BucketlistRepo) List(ctx context.Context, ownerID int64, lq model.ListQuery) (out model.BucketlistPage, err error) {
	const countQ = `
SELECT count(*) FROM bucketlists
WHERE user_id=$1 AND ($2 = '' OR strpos(name, $2) > 0)`
	const pageQ = `
SELECT ` + bucketlistCols + ` FROM bucketlists
WHERE user_id=$1 AND ($2 = '' OR strpos(name, $2) > 0)
ORDER BY date_modified DESC, id DESC
LIMIT $3 OFFSET $4`

	err = r.db.inTx(ctx, readOnly, func(tx pgx.Tx) error {
		var total int
		if err := tx.QueryRow(ctx, countQ, ownerID, lq.Search).Scan(&total); err != nil {
			return err
		}
		out.Pagination = model.NewPagination(lq.Page, total)
		out.Bucketlists = []model.Bucketlist{}
		if total == 0 || lq.Page.Offset() >= total {
			return nil
		}

		rows, err := tx.Query(ctx, pageQ, ownerID, lq.Search, lq.Page.Limit, lq.Page.Offset())
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var b model.Bucketlist
			if err := scanBucketlist(rows, &b); err != nil {
				return err
			}
			out.Bucketlists = append(out.Bucketlists, b)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		ids := make([]int64, len(out.Bucketlists))
		for i := range out.Bucketlists {
			ids[i] = out.Bucketlists[i].ID
		}
		byList, err := itemsOfMany(ctx, tx, ids)
		if err != nil {
			return err
		}
		for i := range out.Bucketlists {
			items := byList[out.Bucketlists[i].ID]
			if items == nil {
				items = []model.Item{}
			}
			out.Bucketlists[i].Items = items
		}
		return nil
	})
	return out, err
}

// Update sets the patched fields and bumps date_modified, even for an empty patch.
func (r *BucketlistRepo) Update(
	ctx context.Context, id int64, patch model.BucketlistPatch, check repository.BucketlistCheck,
) (out *model.Bucketlist, err error) {
	const upd = `
UPDATE bucketlists
SET name = COALESCE($2, name), is_public = COALESCE($3, is_public), date_modified = clock_timestamp()
WHERE id=$1
RETURNING ` + bucketlistCols

	err = r.db.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := loadBucketlist(ctx, tx, id, true, check); err != nil {
			return err
		}
		var b model.Bucketlist
		if err := scanBucketlist(tx.QueryRow(ctx, upd, id, patch.Name, patch.IsPublic), &b); err != nil {
			return notFound(err)
		}
		var err error
		if b.Items, err = itemsOf(ctx, tx, b.ID); err != nil {
			return err
		}
		out = &b
		return nil
	})
	return out, err
}

// Delete removes the bucketlist and its items in one transaction.
func (r *BucketlistRepo) Delete(ctx context.Context, id int64, check repository.BucketlistCheck) error {
	const delItems = `DELETE FROM items WHERE bucketlist_id=$1`
	const delList = `DELETE FROM bucketlists WHERE id=$1`

	return r.db.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := loadBucketlist(ctx, tx, id, true, check); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, delItems, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, delList, id)
		return err
	})
}
