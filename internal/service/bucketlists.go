package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/bucketlist/internal/errs"
	"github.com/and161185/bucketlist/internal/model"
	"github.com/and161185/bucketlist/internal/repository"
)

// maxNameLen bounds user, bucketlist and item names (runes).
const maxNameLen = 50

// BucketlistService defines the bucketlist lifecycle for an authenticated owner.
type BucketlistService interface {
	// Create stores a new bucketlist; private unless isPublic is set.
	Create(ctx context.Context, owner *model.User, name string, isPublic bool) (*model.Bucketlist, error)
	// Get returns one of the owner's bucketlists.
	Get(ctx context.Context, owner *model.User, id int64) (*model.Bucketlist, error)
	// List returns a page of the owner's bucketlists, optionally filtered by name substring.
	List(ctx context.Context, owner *model.User, search string, page model.Page) (model.BucketlistPage, error)
	// Update applies a partial update and bumps date_modified.
	Update(ctx context.Context, owner *model.User, id int64, patch model.BucketlistPatch) (*model.Bucketlist, error)
	// Delete removes the bucketlist with all its items.
	Delete(ctx context.Context, owner *model.User, id int64) error
}

type BucketlistServiceImpl struct {
	repo   repository.BucketlistRepository
	paging Paging
}

// NewBucketlistService constructs BucketlistService with a page-size policy.
func NewBucketlistService(repo repository.BucketlistRepository, paging Paging) *BucketlistServiceImpl {
	return &BucketlistServiceImpl{repo: repo, paging: paging}
}

// Create validates the name and stores the bucketlist.
func (s *BucketlistServiceImpl) Create(ctx context.Context, owner *model.User, name string, isPublic bool) (*model.Bucketlist, error) {
	if owner == nil {
		return nil, errs.ErrUnauthorized
	}
	name, err := validName("name", name)
	if err != nil {
		return nil, err
	}
	b := &model.Bucketlist{UserID: owner.ID, Name: name, IsPublic: isPublic}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Get returns the bucketlist; other users' bucketlists are reported as not found.
func (s *BucketlistServiceImpl) Get(ctx context.Context, owner *model.User, id int64) (*model.Bucketlist, error) {
	if owner == nil {
		return nil, errs.ErrUnauthorized
	}
	if id <= 0 {
		return nil, errs.ErrNotFound
	}
	return s.repo.Get(ctx, id, OwnedBy(owner))
}

// List returns one page of the owner's bucketlists. An empty result is not an error.
func (s *BucketlistServiceImpl) List(ctx context.Context, owner *model.User, search string, page model.Page) (model.BucketlistPage, error) {
	if owner == nil {
		return model.BucketlistPage{}, errs.ErrUnauthorized
	}
	return s.repo.List(ctx, owner.ID, model.ListQuery{
		Search: strings.TrimSpace(search),
		Page:   s.paging.Normalize(page),
	})
}

// Update applies the patch; absent fields stay unchanged.
func (s *BucketlistServiceImpl) Update(ctx context.Context, owner *model.User, id int64, patch model.BucketlistPatch) (*model.Bucketlist, error) {
	if owner == nil {
		return nil, errs.ErrUnauthorized
	}
	if id <= 0 {
		return nil, errs.ErrNotFound
	}
	if patch.Name != nil {
		name, err := validName("name", *patch.Name)
		if err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	return s.repo.Update(ctx, id, patch, OwnedBy(owner))
}

// Delete removes the bucketlist and cascades to its items.
func (s *BucketlistServiceImpl) Delete(ctx context.Context, owner *model.User, id int64) error {
	if owner == nil {
		return errs.ErrUnauthorized
	}
	if id <= 0 {
		return errs.ErrNotFound
	}
	return s.repo.Delete(ctx, id, OwnedBy(owner))
}

func validName(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", errs.ErrValidation, field)
	}
	if len([]rune(v)) > maxNameLen {
		return "", fmt.Errorf("%w: %s longer than %d characters", errs.ErrValidation, field, maxNameLen)
	}
	return v, nil
}
