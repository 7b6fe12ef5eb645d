// Package memory is an in-process implementation of the repository interfaces.
// It backs local development (-storage=memory) and tests; data is lost on exit.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/and161185/bucketlist/internal/errs"
	"github.com/and161185/bucketlist/internal/model"
	"github.com/and161185/bucketlist/internal/repository"
)

// Store holds users, bucketlists and items behind one mutex, so every operation is atomic.
type Store struct {
	mu sync.Mutex

	users       map[int64]model.User
	bucketlists map[int64]model.Bucketlist
	items       map[int64]model.Item

	seqUser, seqList, seqItem int64

	clock func() time.Time
	last  time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:       map[int64]model.User{},
		bucketlists: map[int64]model.Bucketlist{},
		items:       map[int64]model.Item{},
		clock:       time.Now,
	}
}

// SetClock replaces the time source. Timestamps stay strictly increasing regardless.
func (s *Store) SetClock(f func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = f
}

// now returns a timestamp strictly after the previous one. Caller holds mu.
func (s *Store) now() time.Time {
	t := s.clock().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// Users returns the user repository view.
func (s *Store) Users() *UserRepo { return &UserRepo{s} }

// Bucketlists returns the bucketlist repository view.
func (s *Store) Bucketlists() *BucketlistRepo { return &BucketlistRepo{s} }

// Items returns the item repository view.
func (s *Store) Items() *ItemRepo { return &ItemRepo{s} }

// UserRepo implements repository.UserRepository.
type UserRepo struct{ s *Store }

// Create inserts a user; usernames are unique.
func (r *UserRepo) Create(_ context.Context, u *model.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if other.Username == u.Username {
			return errs.ErrAlreadyExists
		}
	}
	s.seqUser++
	u.ID = s.seqUser
	u.CreatedAt = s.now()
	s.users[u.ID] = *u
	return nil
}

// GetByID loads a user by ID.
func (r *UserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

// GetByUsername loads a user by username.
func (r *UserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, errs.ErrNotFound
}

// Delete removes a user with everything they own.
func (r *UserRepo) Delete(_ context.Context, id int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return errs.ErrNotFound
	}
	for bid, b := range s.bucketlists {
		if b.UserID == id {
			s.dropBucketlist(bid)
		}
	}
	delete(s.users, id)
	return nil
}

// Count returns the number of stored users.
func (r *UserRepo) Count() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.users)
}

// BucketlistRepo implements repository.BucketlistRepository.
type BucketlistRepo struct{ s *Store }

// Create inserts a bucketlist with equal creation and modification times.
func (r *BucketlistRepo) Create(_ context.Context, b *model.Bucketlist) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[b.UserID]; !ok {
		return errs.ErrNotFound
	}
	s.seqList++
	b.ID = s.seqList
	b.DateCreated = s.now()
	b.DateModified = b.DateCreated
	b.Items = []model.Item{}
	stored := *b
	stored.Items = nil
	s.bucketlists[b.ID] = stored
	return nil
}

// Get loads a bucketlist with its items.
func (r *BucketlistRepo) Get(_ context.Context, id int64, check repository.BucketlistCheck) (*model.Bucketlist, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.load(id, check)
	if err != nil {
		return nil, err
	}
	b.Items = s.itemsOf(id)
	return &b, nil
}

// List returns a page of the owner's bucketlists, most recently modified first.
func (r *BucketlistRepo) List(_ context.Context, ownerID int64, q model.ListQuery) (model.BucketlistPage, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []model.Bucketlist
	for _, b := range s.bucketlists {
		if b.UserID == ownerID && strings.Contains(b.Name, q.Search) {
			matched = append(matched, b)
		}
	}
	slices.SortFunc(matched, func(a, b model.Bucketlist) int {
		if c := b.DateModified.Compare(a.DateModified); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	out := model.BucketlistPage{
		Bucketlists: []model.Bucketlist{},
		Pagination:  model.NewPagination(q.Page, len(matched)),
	}
	from := q.Page.Offset()
	if from >= len(matched) {
		return out, nil
	}
	to := min(from+q.Page.Limit, len(matched))
	for _, b := range matched[from:to] {
		b.Items = s.itemsOf(b.ID)
		out.Bucketlists = append(out.Bucketlists, b)
	}
	return out, nil
}

// Update applies patch and bumps date_modified.
func (r *BucketlistRepo) Update(_ context.Context, id int64, patch model.BucketlistPatch, check repository.BucketlistCheck) (*model.Bucketlist, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.load(id, check)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		b.Name = *patch.Name
	}
	if patch.IsPublic != nil {
		b.IsPublic = *patch.IsPublic
	}
	b.DateModified = s.now()
	s.bucketlists[id] = b
	b.Items = s.itemsOf(id)
	return &b, nil
}

// Delete removes the bucketlist and its items.
func (r *BucketlistRepo) Delete(_ context.Context, id int64, check repository.BucketlistCheck) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.load(id, check); err != nil {
		return err
	}
	s.dropBucketlist(id)
	return nil
}

// ItemRepo implements repository.ItemRepository.
type ItemRepo struct{ s *Store }

// Create inserts an item and bumps the bucketlist.
func (r *ItemRepo) Create(_ context.Context, bucketlistID int64, it *model.Item, check repository.BucketlistCheck) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.load(bucketlistID, check); err != nil {
		return err
	}
	s.seqItem++
	it.ID = s.seqItem
	it.BucketlistID = bucketlistID
	it.DateCreated = s.now()
	it.DateModified = it.DateCreated
	s.items[it.ID] = *it
	s.touch(bucketlistID)
	return nil
}

// Update applies patch to an item and bumps both timestamps.
func (r *ItemRepo) Update(_ context.Context, bucketlistID, itemID int64, patch model.ItemPatch, check repository.BucketlistCheck) (*model.Item, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.load(bucketlistID, check); err != nil {
		return nil, err
	}
	it, ok := s.items[itemID]
	if !ok || it.BucketlistID != bucketlistID {
		return nil, errs.ErrNotFound
	}
	if patch.Name != nil {
		it.Name = *patch.Name
	}
	if patch.Done != nil {
		it.Done = *patch.Done
	}
	it.DateModified = s.now()
	s.items[itemID] = it
	s.touch(bucketlistID)
	return &it, nil
}

// Delete removes an item and bumps the bucketlist.
func (r *ItemRepo) Delete(_ context.Context, bucketlistID, itemID int64, check repository.BucketlistCheck) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.load(bucketlistID, check); err != nil {
		return err
	}
	it, ok := s.items[itemID]
	if !ok || it.BucketlistID != bucketlistID {
		return errs.ErrNotFound
	}
	delete(s.items, itemID)
	s.touch(bucketlistID)
	return nil
}

// ListByBucketlist returns the items of a bucketlist. A nil check skips authorization.
func (r *ItemRepo) ListByBucketlist(_ context.Context, bucketlistID int64, check repository.BucketlistCheck) ([]model.Item, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if check != nil {
		if _, err := s.load(bucketlistID, check); err != nil {
			return nil, err
		}
	}
	return s.itemsOf(bucketlistID), nil
}

func (s *Store) load(id int64, check repository.BucketlistCheck) (model.Bucketlist, error) {
	b, ok := s.bucketlists[id]
	if !ok {
		return model.Bucketlist{}, errs.ErrNotFound
	}
	if check != nil {
		if err := check(&b); err != nil {
			return model.Bucketlist{}, err
		}
	}
	return b, nil
}

func (s *Store) itemsOf(bucketlistID int64) []model.Item {
	out := []model.Item{}
	for _, it := range s.items {
		if it.BucketlistID == bucketlistID {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b model.Item) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *Store) touch(bucketlistID int64) {
	b := s.bucketlists[bucketlistID]
	b.DateModified = s.now()
	s.bucketlists[bucketlistID] = b
}

func (s *Store) dropBucketlist(id int64) {
	for iid, it := range s.items {
		if it.BucketlistID == id {
			delete(s.items, iid)
		}
	}
	delete(s.bucketlists, id)
}

var (
	_ repository.UserRepository       = (*UserRepo)(nil)
	_ repository.BucketlistRepository = (*BucketlistRepo)(nil)
	_ repository.ItemRepository       = (*ItemRepo)(nil)
)
