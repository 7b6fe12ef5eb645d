// Package model defines domain entities used by services and repositories.
package model

import (
	"math"
	"time"
)

// Tokens collects an issued access token and its expiry.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // for clients that cache the token
}

// User represents a registered account. The password is stored only as an encoded hash.
type User struct {
	ID           int64  // PK
	Username     string // unique, immutable
	PasswordHash string // PHC-encoded argon2id
	CreatedAt    time.Time
}

// Bucketlist is a named collection of items owned by exactly one user.
type Bucketlist struct {
	ID           int64
	UserID       int64 // FK -> users.id, never changes
	Name         string
	IsPublic     bool
	DateCreated  time.Time
	DateModified time.Time // bumped on any change to the list or its items
	Items        []Item
}

// Item is a single goal within a bucketlist.
type Item struct {
	ID           int64
	BucketlistID int64 // FK -> bucketlists.id
	Name         string
	Done         bool
	DateCreated  time.Time
	DateModified time.Time
}

// BucketlistPatch carries optional bucketlist updates; nil fields stay unchanged.
type BucketlistPatch struct {
	Name     *string
	IsPublic *bool
}

// ItemPatch carries optional item updates; nil fields stay unchanged.
type ItemPatch struct {
	Name *string
	Done *bool
}

// Page is a normalized 1-based page window.
type Page struct {
	Number int
	Limit  int
}

// Offset returns the number of rows preceding the page, saturating at math.MaxInt.
func (p Page) Offset() int {
	if p.Number < 1 || p.Limit < 1 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Limit
}

// ListQuery selects a page of bucketlists, optionally filtered by a name substring.
type ListQuery struct {
	Search string
	Page   Page
}

// Pagination describes where a page sits in the full result set.
// Next and Previous are page numbers, zero when no such page exists.
type Pagination struct {
	Page     int
	Limit    int
	Pages    int
	Total    int
	Next     int
	Previous int
}

// BucketlistPage is one page of a bucketlist listing.
type BucketlistPage struct {
	Bucketlists []Bucketlist
	Pagination  Pagination
}

// NewPagination computes page metadata for total rows under page p.
func NewPagination(p Page, total int) Pagination {
	pg := Pagination{Page: p.Number, Limit: p.Limit, Total: total}
	if p.Limit > 0 {
		pg.Pages = (total + p.Limit - 1) / p.Limit
	}
	if p.Number < pg.Pages {
		pg.Next = p.Number + 1
	}
	if p.Number > 1 && pg.Pages > 0 {
		pg.Previous = min(p.Number-1, pg.Pages)
	}
	return pg
}
