package service

import (
	"context"

	"github.com/and161185/bucketlist/internal/errs"
	"github.com/and161185/bucketlist/internal/model"
	"github.com/and161185/bucketlist/internal/repository"
)

// ItemService defines item operations inside a bucketlist. Acting on another user's
// bucketlist yields errs.ErrForbidden.
type ItemService interface {
	// Create adds an item to the bucketlist.
	Create(ctx context.Context, owner *model.User, bucketlistID int64, name string, done bool) (*model.Item, error)
	// Update applies a partial update to an item.
	Update(ctx context.Context, owner *model.User, bucketlistID, itemID int64, patch model.ItemPatch) (*model.Item, error)
	// Delete removes an item.
	Delete(ctx context.Context, owner *model.User, bucketlistID, itemID int64) error
	// List returns the items of a bucketlist.
	List(ctx context.Context, owner *model.User, bucketlistID int64) ([]model.Item, error)
}

type ItemServiceImpl struct {
	repo repository.ItemRepository
}

// NewItemService constructs ItemService.
func NewItemService(repo repository.ItemRepository) *ItemServiceImpl {
	return &ItemServiceImpl{repo: repo}
}

// Create validates the name and stores the item.
func (s *ItemServiceImpl) Create(ctx context.Context, owner *model.User, bucketlistID int64, name string, done bool) (*model.Item, error) {
	if owner == nil {
		return nil, errs.ErrUnauthorized
	}
	if bucketlistID <= 0 {
		return nil, errs.ErrNotFound
	}
	name, err := validName("name", name)
	if err != nil {
		return nil, err
	}
	it := &model.Item{Name: name, Done: done}
	if err := s.repo.Create(ctx, bucketlistID, it, PermittedTo(owner)); err != nil {
		return nil, err
	}
	return it, nil
}

// Update applies the patch to the item.
func (s *ItemServiceImpl) Update(ctx context.Context, owner *model.User, bucketlistID, itemID int64, patch model.ItemPatch) (*model.Item, error) {
	if owner == nil {
		return nil, errs.ErrUnauthorized
	}
	if bucketlistID <= 0 || itemID <= 0 {
		return nil, errs.ErrNotFound
	}
	if patch.Name != nil {
		name, err := validName("name", *patch.Name)
		if err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	return s.repo.Update(ctx, bucketlistID, itemID, patch, PermittedTo(owner))
}

// Delete removes the item.
func (s *ItemServiceImpl) Delete(ctx context.Context, owner *model.User, bucketlistID, itemID int64) error {
	if owner == nil {
		return errs.ErrUnauthorized
	}
	if bucketlistID <= 0 || itemID <= 0 {
		return errs.ErrNotFound
	}
	return s.repo.Delete(ctx, bucketlistID, itemID, PermittedTo(owner))
}

// List returns the bucketlist's items ordered by id.
func (s *ItemServiceImpl) List(ctx context.Context, owner *model.User, bucketlistID int64) ([]model.Item, error) {
	if owner == nil {
		return nil, errs.ErrUnauthorized
	}
	if bucketlistID <= 0 {
		return nil, errs.ErrNotFound
	}
	return s.repo.ListByBucketlist(ctx, bucketlistID, PermittedTo(owner))
}
