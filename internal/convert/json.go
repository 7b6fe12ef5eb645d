// Package convert maps domain models to their JSON wire representations.
package convert

import (
	"net/url"
	"strconv"
	"time"

	"github.com/and161185/bucketlist/internal/model"
)

// --- users / tokens ---

// User is the public view of an account; the password hash never leaves the server.
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	DateCreated time.Time `json:"date_created"`
}

// Token is returned by register and login.
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// ToUser converts a domain user.
func ToUser(u model.User) User {
	return User{ID: u.ID, Username: u.Username, DateCreated: u.CreatedAt.UTC()}
}

// ToToken bundles an issued token with its user.
func ToToken(u model.User, t model.Tokens) Token {
	return Token{Token: t.AccessToken, ExpiresAt: t.ExpiresAt.UTC(), User: ToUser(u)}
}

// --- bucketlists / items ---

// Item is the wire form of a bucketlist item.
type Item struct {
	ID           int64     `json:"id"`
	BucketlistID int64     `json:"bucketlist_id"`
	Name         string    `json:"name"`
	Done         bool      `json:"done"`
	DateCreated  time.Time `json:"date_created"`
	DateModified time.Time `json:"date_modified"`
}

// Bucketlist is the wire form of a bucketlist with its items embedded.
type Bucketlist struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	IsPublic     bool      `json:"is_public"`
	CreatedBy    int64     `json:"created_by"`
	DateCreated  time.Time `json:"date_created"`
	DateModified time.Time `json:"date_modified"`
	Items        []Item    `json:"items"`
}

// ToItem converts a domain item.
func ToItem(it model.Item) Item {
	return Item{
		ID:           it.ID,
		BucketlistID: it.BucketlistID,
		Name:         it.Name,
		Done:         it.Done,
		DateCreated:  it.DateCreated.UTC(),
		DateModified: it.DateModified.UTC(),
	}
}

// ToItems converts items; the result is never nil so it encodes as [].
func ToItems(its []model.Item) []Item {
	out := make([]Item, 0, len(its))
	for _, it := range its {
		out = append(out, ToItem(it))
	}
	return out
}

// ToBucketlist converts a domain bucketlist.
func ToBucketlist(b model.Bucketlist) Bucketlist {
	return Bucketlist{
		ID:           b.ID,
		Name:         b.Name,
		IsPublic:     b.IsPublic,
		CreatedBy:    b.UserID,
		DateCreated:  b.DateCreated.UTC(),
		DateModified: b.DateModified.UTC(),
		Items:        ToItems(b.Items),
	}
}

// --- pagination ---

// Pagination is the listing metadata. Next and Previous are absolute URLs, omitted
// when the page does not exist.
type Pagination struct {
	Page          int    `json:"page"`
	Limit         int    `json:"limit"`
	NumberOfPages int    `json:"number_of_pages"`
	Total         int    `json:"total"`
	Next          string `json:"next,omitempty"`
	Previous      string `json:"previous,omitempty"`
}

// BucketlistPage is the body of a list response.
type BucketlistPage struct {
	Items      []Bucketlist `json:"items"`
	Pagination Pagination   `json:"pagination"`
}

// ToBucketlistPage converts a page of bucketlists. base is the absolute URL of the
// listing endpoint; its query is replaced, keeping search and limit in links.
func ToBucketlistPage(p model.BucketlistPage, base *url.URL, search string) BucketlistPage {
	items := make([]Bucketlist, 0, len(p.Bucketlists))
	for _, b := range p.Bucketlists {
		items = append(items, ToBucketlist(b))
	}
	pg := p.Pagination
	out := Pagination{
		Page:          pg.Page,
		Limit:         pg.Limit,
		NumberOfPages: pg.Pages,
		Total:         pg.Total,
	}
	if pg.Next > 0 {
		out.Next = PageURL(base, search, pg.Next, pg.Limit)
	}
	if pg.Previous > 0 {
		out.Previous = PageURL(base, search, pg.Previous, pg.Limit)
	}
	return BucketlistPage{Items: items, Pagination: out}
}

// PageURL builds the link to page n of a listing.
func PageURL(base *url.URL, search string, n, limit int) string {
	u := *base
	q := url.Values{}
	if search != "" {
		q.Set("q", search)
	}
	q.Set("page", strconv.Itoa(n))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

// --- requests (client -> server) ---

// Credentials is the body of register and login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// BucketlistInput is the body of bucketlist create and update. Absent fields are nil.
type BucketlistInput struct {
	Name     *string `json:"name"`
	IsPublic *bool   `json:"is_public"`
}

// ItemInput is the body of item create and update. Absent fields are nil.
type ItemInput struct {
	Name *string `json:"name"`
	Done *bool   `json:"done"`
}

// Patch returns the bucketlist patch carried by the input.
func (in BucketlistInput) Patch() model.BucketlistPatch {
	return model.BucketlistPatch{Name: in.Name, IsPublic: in.IsPublic}
}

// Patch returns the item patch carried by the input.
func (in ItemInput) Patch() model.ItemPatch {
	return model.ItemPatch{Name: in.Name, Done: in.Done}
}

// Error is the body of every failed response.
type Error struct {
	Error string `json:"Error"`
}
