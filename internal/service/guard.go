package service

import (
	"github.com/and161185/bucketlist/internal/errs"
	"github.com/and161185/bucketlist/internal/model"
	"github.com/and161185/bucketlist/internal/repository"
)

// RequireOwner reports whether u owns b.
func RequireOwner(u *model.User, b *model.Bucketlist) bool {
	return u != nil && b != nil && b.UserID == u.ID
}

// OwnedBy returns a check that hides bucketlists of other users behind errs.ErrNotFound.
func OwnedBy(u *model.User) repository.BucketlistCheck {
	return func(b *model.Bucketlist) error {
		if !RequireOwner(u, b) {
			return errs.ErrNotFound
		}
		return nil
	}
}

// PermittedTo returns a check that rejects bucketlists of other users with errs.ErrForbidden.
func PermittedTo(u *model.User) repository.BucketlistCheck {
	return func(b *model.Bucketlist) error {
		if !RequireOwner(u, b) {
			return errs.ErrForbidden
		}
		return nil
	}
}
