package querycache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/subfoxapp/SubFox/app/models"
)

// DefaultStaleAfter is the staleness window: a fresh entry older than this is
// re-fetched on the next read.
const DefaultStaleAfter = 5 * time.Minute

var (
	// ErrOwnerRequired is returned by Create when no owner id is present.
	ErrOwnerRequired = errors.New("querycache: owner id required")
	// ErrIDRequired is returned by Update when the subscription carries no id.
	ErrIDRequired = errors.New("querycache: subscription id required")
)

// Store is the remote store collaborator the cache sits in front of.
// Implemented by repository.SubscriptionRepository.
type Store interface {
	Insert(ctx context.Context, sub *models.Subscription) (string, error)
	QueryByOwner(ctx context.Context, ownerID uint) ([]models.Subscription, error)
	// GetByID returns (nil, nil) when no record exists for the id.
	GetByID(ctx context.Context, id string) (*models.Subscription, error)
	Replace(ctx context.Context, sub *models.Subscription) error
	DeleteByID(ctx context.Context, id string) error
}

// State describes the lifecycle of a cache entry. An absent entry has no state.
type State string

const (
	StateLoading State = "loading"
	StateFresh   State = "fresh"
	StateStale   State = "stale"
	StateError   State = "error"
)

// Key identifies a cached query. List keys and detail keys are disjoint
// namespaces so that either side can be invalidated wholesale.
type Key string

const (
	listPrefix   = "list:"
	detailPrefix = "detail:"
)

// ListKey identifies the cached subscription list of one owner.
func ListKey(ownerID uint) Key {
	return Key(listPrefix + strconv.FormatUint(uint64(ownerID), 10))
}

// DetailKey identifies the cached single subscription with the given public id.
func DetailKey(id string) Key {
	return Key(detailPrefix + id)
}

// IsList reports whether the key belongs to the list namespace.
func (k Key) IsList() bool { return strings.HasPrefix(string(k), listPrefix) }

// IsDetail reports whether the key belongs to the detail namespace.
func (k Key) IsDetail() bool { return strings.HasPrefix(string(k), detailPrefix) }

type entry struct {
	value     interface{}
	fetchedAt time.Time
	state     State
	err       error
}

// Snapshot is the non-blocking view of an entry used to drive loading
// spinners and error banners. A stale value is still servable here.
type Snapshot struct {
	Value     interface{}
	State     State
	Err       error
	FetchedAt time.Time
}

// Client keeps list and detail reads consistent with mutations. One instance
// is created at application start and passed to whoever needs it; entries are
// purged when the auth session ends.
type Client struct {
	store      Store
	staleAfter time.Duration
	now        func() time.Time

	mu      sync.Mutex
	entries map[Key]*entry
	gens    map[Key]uint64
	group   singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithStaleAfter overrides the staleness window.
func WithStaleAfter(d time.Duration) Option {
	return func(c *Client) { c.staleAfter = d }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a query cache in front of the given store.
func New(store Store, opts ...Option) *Client {
	c := &Client{
		store:      store,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
		entries:    make(map[Key]*entry),
		gens:       make(map[Key]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchList returns the subscriptions owned by ownerID. An owner id of zero
// means "not signed in": the call returns an empty slice immediately without
// contacting the store or caching under a sentinel key.
func (c *Client) FetchList(ctx context.Context, ownerID uint) ([]models.Subscription, error) {
	if ownerID == 0 {
		return []models.Subscription{}, nil
	}
	key := ListKey(ownerID)
	if v, ok := c.cachedFresh(key); ok {
		return copyList(v.([]models.Subscription)), nil
	}
	v, err := c.fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		subs, err := c.store.QueryByOwner(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if subs == nil {
			subs = []models.Subscription{}
		}
		return subs, nil
	})
	if err != nil {
		return nil, err
	}
	return copyList(v.([]models.Subscription)), nil
}

// FetchDetail returns the subscription with the given public id, or nil when
// the store has no record for it. A missing record is not an error and is
// cached like any other result.
func (c *Client) FetchDetail(ctx context.Context, id string) (*models.Subscription, error) {
	key := DetailKey(id)
	if v, ok := c.cachedFresh(key); ok {
		return v.(*models.Subscription), nil
	}
	v, err := c.fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		return c.store.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Subscription), nil
}

// Create inserts a new subscription and invalidates the owner's list key. The
// new detail entry is not populated proactively; the next detail read fetches
// it. On failure no cache entry is touched.
func (c *Client) Create(ctx context.Context, sub *models.Subscription) (string, error) {
	if sub.UserID == 0 {
		return "", ErrOwnerRequired
	}
	id, err := c.store.Insert(ctx, sub)
	if err != nil {
		return "", err
	}
	c.invalidate(ListKey(sub.UserID))
	return id, nil
}

// Update replaces every field of the stored record except the id. On success
// the detail key and, when the owner is known, the owner's list key go stale.
// On failure nothing in the cache changes; a previously fresh detail entry
// stays fresh even though the remote write may have partially applied. That
// at-most-once gap is accepted, not papered over.
func (c *Client) Update(ctx context.Context, sub *models.Subscription) error {
	if sub.UUID == "" {
		return ErrIDRequired
	}
	if err := c.store.Replace(ctx, sub); err != nil {
		return err
	}
	c.invalidate(DetailKey(sub.UUID))
	if sub.UserID != 0 {
		c.invalidate(ListKey(sub.UserID))
	}
	return nil
}

// Remove deletes the record remotely, recovers the owner from the cached
// detail entry if one exists to invalidate that owner's list, and drops the
// detail entry outright (the id no longer exists, so a stale marker would be
// wrong). When no detail entry was ever fetched the owner cannot be derived
// and the caller, who knows its own owner id, invalidates its list itself via
// InvalidateList.
func (c *Client) Remove(ctx context.Context, id string) error {
	if err := c.store.DeleteByID(ctx, id); err != nil {
		return err
	}
	key := DetailKey(id)

	c.mu.Lock()
	var ownerID uint
	if e, ok := c.entries[key]; ok {
		if sub, ok := e.value.(*models.Subscription); ok && sub != nil {
			ownerID = sub.UserID
		}
	}
	c.gens[key]++
	delete(c.entries, key)
	c.mu.Unlock()

	if ownerID != 0 {
		c.invalidate(ListKey(ownerID))
	}
	return nil
}

// InvalidateList marks one owner's list entry stale. List screens call this
// after a delete they initiated themselves (see Remove).
func (c *Client) InvalidateList(ownerID uint) {
	c.invalidate(ListKey(ownerID))
}

// InvalidateDetail marks one detail entry stale.
func (c *Client) InvalidateDetail(id string) {
	c.invalidate(DetailKey(id))
}

// InvalidateLists marks every list entry stale without enumerating owners.
func (c *Client) InvalidateLists() {
	c.invalidateNamespace(Key.IsList)
}

// InvalidateDetails marks every detail entry stale without enumerating ids.
func (c *Client) InvalidateDetails() {
	c.invalidateNamespace(Key.IsDetail)
}

// Snapshot returns the current entry for a key without triggering a fetch.
// The second return is false when the entry is absent.
func (c *Client) Snapshot(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{Value: e.value, State: e.state, Err: e.err, FetchedAt: e.fetchedAt}, true
}

// Len returns the number of cached entries.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops every entry. Called when the auth session the cache served ends.
func (c *Client) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		c.gens[key]++
		delete(c.entries, key)
	}
}

func (c *Client) cachedFresh(key Key) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.state != StateFresh {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) >= c.staleAfter {
		e.state = StateStale
		return nil, false
	}
	return e.value, true
}

// fetch performs one coalesced remote read for the key. Concurrent callers
// share the same in-flight request; one retry is attempted before the error
// is surfaced. A fetch that raced with an invalidation installs its result as
// stale instead of fresh, so the next read re-fetches.
func (c *Client) fetch(ctx context.Context, key Key, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	startGen := c.gens[key]
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	e.state = StateLoading
	c.mu.Unlock()

	v, err, _ := c.group.Do(string(key), func() (interface{}, error) {
		v, err := fn(ctx)
		if err != nil {
			v, err = fn(ctx)
		}
		return v, err
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	cur, present := c.entries[key]
	if err != nil {
		if present {
			cur.state = StateError
			cur.err = err
		}
		return nil, err
	}
	if !present {
		// Removed while in flight (e.g. Remove on this id); the result is
		// returned to the caller but not re-installed.
		return v, nil
	}
	cur.value = v
	cur.fetchedAt = c.now()
	cur.err = nil
	if c.gens[key] != startGen {
		cur.state = StateStale
	} else {
		cur.state = StateFresh
	}
	return v, nil
}

func (c *Client) invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	if e, ok := c.entries[key]; ok && e.state == StateFresh {
		e.state = StateStale
	}
}

func (c *Client) invalidateNamespace(match func(Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if !match(key) {
			continue
		}
		c.gens[key]++
		if e.state == StateFresh {
			e.state = StateStale
		}
	}
}

func copyList(subs []models.Subscription) []models.Subscription {
	out := make([]models.Subscription, len(subs))
	copy(out, subs)
	return out
}

// String implements fmt.Stringer for debug logging.
func (s Snapshot) String() string {
	return fmt.Sprintf("querycache.Snapshot{state=%s fetchedAt=%s}", s.State, s.FetchedAt.Format(time.RFC3339))
}
