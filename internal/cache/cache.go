// Package cache remembers the entries a listing was rendered from.
//
// Each rendered entry gets a stable integer id that is printed in the listing.
// When the edited listing comes back, ids are resolved through the cache to
// learn where an entry originally lived, which is how moves and copies are
// told apart from fresh creates.
//
// Key concepts:
//   - Cache: in-memory id to entry and parent URL mapping
//   - Snapshot: the serialized cache plus the hash of the rendered listing
//   - Store: persistence for snapshots keyed by snapshot id
package cache

import (
	"sort"
	"time"

	"github.com/danieljhkim/treedit/internal/planner"
)

// Cache maps stable ids to entries. It satisfies planner.EntryLookup.
type Cache struct {
	entries  map[int]planner.Entry
	parents  map[int]string
	byParent map[string][]int
	nextID   int
}

// New creates an empty Cache. Ids start at 1; 0 means "no id".
func New() *Cache {
	return &Cache{
		entries:  make(map[int]planner.Entry),
		parents:  make(map[int]string),
		byParent: make(map[string][]int),
		nextID:   1,
	}
}

// Add records an entry listed under parentURL and returns its new id.
func (c *Cache) Add(parentURL string, e planner.Entry) int {
	id := c.nextID
	c.nextID++
	e.ID = id
	c.entries[id] = e
	c.parents[id] = parentURL
	c.byParent[parentURL] = append(c.byParent[parentURL], id)
	return id
}

// EntryByID returns the entry with the given id.
func (c *Cache) EntryByID(id int) (planner.Entry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// ParentURL returns the URL of the directory the entry was listed in.
func (c *Cache) ParentURL(id int) (string, bool) {
	p, ok := c.parents[id]
	return p, ok
}

// List returns the entries listed under parentURL in insertion order.
func (c *Cache) List(parentURL string) []planner.Entry {
	ids := c.byParent[parentURL]
	out := make([]planner.Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.entries[id])
	}
	return out
}

// HasParent reports whether parentURL was rendered, even if it was empty.
func (c *Cache) HasParent(parentURL string) bool {
	_, ok := c.byParent[parentURL]
	return ok
}

// MarkRendered records parentURL as rendered without adding entries.
func (c *Cache) MarkRendered(parentURL string) {
	if _, ok := c.byParent[parentURL]; !ok {
		c.byParent[parentURL] = []int{}
	}
}

// ParentURLs returns every rendered directory URL, sorted.
func (c *Cache) ParentURLs() []string {
	urls := make([]string, 0, len(c.byParent))
	for u := range c.byParent {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Snapshot serializes the cache.
func (c *Cache) Snapshot(id, listingHash string, createdAt time.Time) *Snapshot {
	s := &Snapshot{
		Version:     SnapshotVersion,
		ID:          id,
		CreatedAt:   createdAt,
		ListingHash: listingHash,
		NextID:      c.nextID,
		Buffers:     []BufferSnapshot{},
	}
	for _, u := range c.ParentURLs() {
		s.Buffers = append(s.Buffers, BufferSnapshot{URL: u, Entries: c.List(u)})
	}
	return s
}

// FromSnapshot rebuilds a Cache from a snapshot.
func FromSnapshot(s *Snapshot) *Cache {
	c := New()
	for _, b := range s.Buffers {
		c.MarkRendered(b.URL)
		for _, e := range b.Entries {
			c.entries[e.ID] = e
			c.parents[e.ID] = b.URL
			c.byParent[b.URL] = append(c.byParent[b.URL], e.ID)
			if e.ID >= c.nextID {
				c.nextID = e.ID + 1
			}
		}
	}
	if s.NextID > c.nextID {
		c.nextID = s.NextID
	}
	return c
}
