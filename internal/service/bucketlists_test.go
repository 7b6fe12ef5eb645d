package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/and161185/bucketlist/internal/errs"
	"github.com/and161185/bucketlist/internal/model"
	"github.com/and161185/bucketlist/internal/repository/memory"
)

type fixture struct {
	store *memory.Store
	auth  *AuthServiceImpl
	lists *BucketlistServiceImpl
	items *ItemServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	return &fixture{
		store: store,
		auth:  NewAuthService(store.Users(), newTokens(), nil),
		lists: NewBucketlistService(store.Bucketlists(), DefaultPaging()),
		items: NewItemService(store.Items()),
	}
}

func (f *fixture) user(t *testing.T, name string) *model.User {
	t.Helper()
	u, _, err := f.auth.Register(context.Background(), name, "pw")
	if err != nil {
		t.Fatalf("Register %s: %v", name, err)
	}
	return &u
}

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func TestBucketlists_CreateGet(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	if _, err := f.lists.Create(ctx, alice, "  ", false); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("blank name: want ErrValidation, got %v", err)
	}
	if _, err := f.lists.Create(ctx, alice, strings.Repeat("a", maxNameLen+1), false); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("long name: want ErrValidation, got %v", err)
	}
	if _, err := f.lists.Create(ctx, nil, "x", false); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("nil owner: want ErrUnauthorized, got %v", err)
	}

	b, err := f.lists.Create(ctx, alice, " Travel ", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.ID == 0 || b.Name != "Travel" || b.IsPublic || b.UserID != alice.ID {
		t.Fatalf("bad bucketlist: %+v", b)
	}
	if !b.DateCreated.Equal(b.DateModified) {
		t.Fatalf("created %v != modified %v", b.DateCreated, b.DateModified)
	}
	if b.Items == nil || len(b.Items) != 0 {
		t.Fatalf("want empty items, got %v", b.Items)
	}

	got, err := f.lists.Get(ctx, alice, b.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Travel" {
		t.Fatalf("Get name = %q", got.Name)
	}

	if _, err := f.lists.Get(ctx, alice, 0); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("id 0: want ErrNotFound, got %v", err)
	}
	if _, err := f.lists.Get(ctx, alice, 999); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("missing: want ErrNotFound, got %v", err)
	}
}

func TestBucketlists_OtherUsersAreInvisible(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	b, err := f.lists.Create(ctx, alice, "Travel", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.lists.Get(ctx, bob, b.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Get: want ErrNotFound, got %v", err)
	}
	if _, err := f.lists.Update(ctx, bob, b.ID, model.BucketlistPatch{Name: strp("mine")}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Update: want ErrNotFound, got %v", err)
	}
	if err := f.lists.Delete(ctx, bob, b.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Delete: want ErrNotFound, got %v", err)
	}

	page, err := f.lists.List(ctx, bob, "", model.Page{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Bucketlists) != 0 || page.Pagination.Total != 0 {
		t.Fatalf("bob sees %+v", page)
	}

	got, err := f.lists.Get(ctx, alice, b.ID)
	if err != nil || got.Name != "Travel" {
		t.Fatalf("alice's list changed: %+v, %v", got, err)
	}
}

func TestBucketlists_Update(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	b, _ := f.lists.Create(ctx, alice, "Travel", false)

	renamed, err := f.lists.Update(ctx, alice, b.ID, model.BucketlistPatch{Name: strp("Trips")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if renamed.Name != "Trips" || renamed.IsPublic {
		t.Fatalf("rename: %+v", renamed)
	}
	if !renamed.DateModified.After(b.DateModified) {
		t.Fatalf("date_modified not bumped")
	}

	pub, err := f.lists.Update(ctx, alice, b.ID, model.BucketlistPatch{IsPublic: boolp(true)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if pub.Name != "Trips" || !pub.IsPublic {
		t.Fatalf("publish: %+v", pub)
	}

	same, err := f.lists.Update(ctx, alice, b.ID, model.BucketlistPatch{})
	if err != nil {
		t.Fatalf("empty patch: %v", err)
	}
	if same.Name != "Trips" || !same.IsPublic || !same.DateModified.After(pub.DateModified) {
		t.Fatalf("empty patch: %+v", same)
	}

	if _, err := f.lists.Update(ctx, alice, b.ID, model.BucketlistPatch{Name: strp("")}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("empty name: want ErrValidation, got %v", err)
	}
}

func TestBucketlists_DeleteCascades(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	b, _ := f.lists.Create(ctx, alice, "Travel", false)
	for _, n := range []string{"Paris", "Rome", "Oslo"} {
		if _, err := f.items.Create(ctx, alice, b.ID, n, false); err != nil {
			t.Fatalf("item %s: %v", n, err)
		}
	}

	if err := f.lists.Delete(ctx, alice, b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.lists.Get(ctx, alice, b.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("after delete: want ErrNotFound, got %v", err)
	}
	left, err := f.store.Items().ListByBucketlist(ctx, b.ID, nil)
	if err != nil {
		t.Fatalf("ListByBucketlist: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("orphaned items: %+v", left)
	}
	if err := f.lists.Delete(ctx, alice, b.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}
}

func TestBucketlists_ListPagingAndSearch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	for i := 1; i <= 25; i++ {
		name := fmt.Sprintf("list %02d", i)
		if i%5 == 0 {
			name = fmt.Sprintf("Travel %02d", i)
		}
		if _, err := f.lists.Create(ctx, alice, name, false); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	first, err := f.lists.List(ctx, alice, "", model.Page{Number: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(first.Bucketlists) != 10 {
		t.Fatalf("page 1 len = %d", len(first.Bucketlists))
	}
	want := model.Pagination{Page: 1, Limit: 10, Pages: 3, Total: 25, Next: 2}
	if first.Pagination != want {
		t.Fatalf("page 1 pagination = %+v, want %+v", first.Pagination, want)
	}
	if first.Bucketlists[0].Name != "Travel 25" {
		t.Fatalf("newest first: got %q", first.Bucketlists[0].Name)
	}

	last, _ := f.lists.List(ctx, alice, "", model.Page{Number: 3, Limit: 10})
	if len(last.Bucketlists) != 5 || last.Pagination.Next != 0 || last.Pagination.Previous != 2 {
		t.Fatalf("page 3 = %d items, %+v", len(last.Bucketlists), last.Pagination)
	}

	past, _ := f.lists.List(ctx, alice, "", model.Page{Number: 9, Limit: 10})
	if len(past.Bucketlists) != 0 || past.Pagination.Next != 0 || past.Pagination.Previous != 3 {
		t.Fatalf("past end = %d items, %+v", len(past.Bucketlists), past.Pagination)
	}

	clamped, _ := f.lists.List(ctx, alice, "", model.Page{Number: 1, Limit: 1000})
	if clamped.Pagination.Limit != MaxLimit || len(clamped.Bucketlists) != 25 {
		t.Fatalf("clamp: %+v", clamped.Pagination)
	}

	def, _ := f.lists.List(ctx, alice, "", model.Page{})
	if def.Pagination.Limit != DefaultLimit || len(def.Bucketlists) != DefaultLimit {
		t.Fatalf("default: %+v", def.Pagination)
	}

	found, _ := f.lists.List(ctx, alice, " Travel ", model.Page{})
	if found.Pagination.Total != 5 {
		t.Fatalf("search total = %d, want 5", found.Pagination.Total)
	}
	for _, b := range found.Bucketlists {
		if !strings.Contains(b.Name, "Travel") {
			t.Fatalf("search returned %q", b.Name)
		}
	}

	none, err := f.lists.List(ctx, alice, "zzz", model.Page{})
	if err != nil || none.Bucketlists == nil || len(none.Bucketlists) != 0 {
		t.Fatalf("no match: %+v, %v", none, err)
	}
}
