package convert

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/and161185/bucketlist/internal/model"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatalf("bad url %q: %v", s, err)
	}
	return u
}

func TestToBucketlist_EmbedsItemsAndOwner(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("X", 3600))
	b := model.Bucketlist{
		ID: 3, UserID: 9, Name: "Travel", DateCreated: ts, DateModified: ts,
		Items: []model.Item{{ID: 1, BucketlistID: 3, Name: "Peru", Done: true, DateCreated: ts, DateModified: ts}},
	}
	got := ToBucketlist(b)
	if got.CreatedBy != 9 || got.Name != "Travel" || len(got.Items) != 1 || !got.Items[0].Done {
		t.Fatalf("mismatch: %+v", got)
	}
	if got.DateCreated.Location() != time.UTC {
		t.Fatalf("timestamps must be UTC")
	}

	// nil items encode as []
	raw, err := json.Marshal(ToBucketlist(model.Bucketlist{ID: 1}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"items":[]`) {
		t.Fatalf("want empty array, got %s", raw)
	}
}

func TestToToken_HidesPasswordHash(t *testing.T) {
	t.Parallel()

	u := model.User{ID: 1, Username: "alice", PasswordHash: "$argon2id$secret"}
	raw, err := json.Marshal(ToToken(u, model.Tokens{AccessToken: "tok", ExpiresAt: time.Now()}))
	if err != nil {
		t.Fatal(err)
	}
	s := string(raw)
	if strings.Contains(s, "argon2id") || !strings.Contains(s, `"token":"tok"`) || !strings.Contains(s, `"username":"alice"`) {
		t.Fatalf("unexpected body %s", s)
	}
}

func TestToBucketlistPage_Links(t *testing.T) {
	t.Parallel()

	base := mustURL(t, "http://api.test/bucketlists?q=old&page=7")
	p := model.BucketlistPage{
		Bucketlists: []model.Bucketlist{{ID: 1}, {ID: 2}},
		Pagination:  model.Pagination{Page: 2, Limit: 2, Pages: 3, Total: 6, Next: 3, Previous: 1},
	}
	got := ToBucketlistPage(p, base, "Trip s")
	if len(got.Items) != 2 || got.Pagination.NumberOfPages != 3 || got.Pagination.Total != 6 {
		t.Fatalf("mismatch: %+v", got)
	}
	if got.Pagination.Next != "http://api.test/bucketlists?limit=2&page=3&q=Trip+s" {
		t.Fatalf("next = %q", got.Pagination.Next)
	}
	if got.Pagination.Previous != "http://api.test/bucketlists?limit=2&page=1&q=Trip+s" {
		t.Fatalf("previous = %q", got.Pagination.Previous)
	}
	if base.RawQuery != "q=old&page=7" {
		t.Fatalf("base mutated: %q", base.RawQuery)
	}
}

func TestToBucketlistPage_NoLinksOmitted(t *testing.T) {
	t.Parallel()

	got := ToBucketlistPage(model.BucketlistPage{Pagination: model.Pagination{Page: 1, Limit: 20}},
		mustURL(t, "http://api.test/bucketlists"), "")
	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	s := string(raw)
	if strings.Contains(s, "next") || strings.Contains(s, "previous") {
		t.Fatalf("links must be omitted: %s", s)
	}
	if !strings.Contains(s, `"items":[]`) {
		t.Fatalf("want empty items array: %s", s)
	}
}

func TestInputs_PartialDecode(t *testing.T) {
	t.Parallel()

	var in ItemInput
	if err := json.Unmarshal([]byte(`{"done":true,"unknown":1}`), &in); err != nil {
		t.Fatal(err)
	}
	p := in.Patch()
	if p.Name != nil || p.Done == nil || !*p.Done {
		t.Fatalf("patch = %+v", p)
	}

	var bl BucketlistInput
	if err := json.Unmarshal([]byte(`{"name":"x"}`), &bl); err != nil {
		t.Fatal(err)
	}
	bp := bl.Patch()
	if bp.Name == nil || *bp.Name != "x" || bp.IsPublic != nil {
		t.Fatalf("patch = %+v", bp)
	}
}
