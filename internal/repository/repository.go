// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/bucketlist/internal/model"
)

// BucketlistCheck authorizes access to a bucketlist loaded (and locked) inside the
// operation's transaction. A non-nil error aborts the operation before any write.
type BucketlistCheck func(b *model.Bucketlist) error

// UserRepository provides access to user accounts.
type UserRepository interface {
	// Create inserts a new user and fills its ID and CreatedAt.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByUsername loads a user by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// BucketlistRepository provides transactional access to bucketlists and their items.
type BucketlistRepository interface {
	// Create inserts a bucketlist and fills its ID and timestamps.
	Create(ctx context.Context, b *model.Bucketlist) error
	// Get loads a bucketlist with its items.
	Get(ctx context.Context, id int64, check BucketlistCheck) (*model.Bucketlist, error)
	// List returns one page of the owner's bucketlists, most recently modified first.
	List(ctx context.Context, ownerID int64, q model.ListQuery) (model.BucketlistPage, error)
	// Update applies patch and bumps date_modified.
	Update(ctx context.Context, id int64, patch model.BucketlistPatch, check BucketlistCheck) (*model.Bucketlist, error)
	// Delete removes the bucketlist and all of its items atomically.
	Delete(ctx context.Context, id int64, check BucketlistCheck) error
}

// ItemRepository provides transactional access to items. Every mutation also bumps the
// parent bucketlist's date_modified.
type ItemRepository interface {
	// Create inserts an item under bucketlistID.
	Create(ctx context.Context, bucketlistID int64, it *model.Item, check BucketlistCheck) error
	// Update applies patch to an item of bucketlistID.
	Update(ctx context.Context, bucketlistID, itemID int64, patch model.ItemPatch, check BucketlistCheck) (*model.Item, error)
	// Delete removes an item of bucketlistID.
	Delete(ctx context.Context, bucketlistID, itemID int64, check BucketlistCheck) error
	// ListByBucketlist returns the items of bucketlistID ordered by id.
	ListByBucketlist(ctx context.Context, bucketlistID int64, check BucketlistCheck) ([]model.Item, error)
}
