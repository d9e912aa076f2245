package server

import (
	"container/list"
	"sync"
	"time"

	"github.com/sells-group/london-map/internal/area"
)

// styleKey identifies one encoded style set. Fingerprint is the selection
// fingerprint the set was painted for.
type styleKey struct {
	Session     string
	Level       area.Level
	Fingerprint string
}

type styleEntry struct {
	key    styleKey
	data   []byte
	stored time.Time
}

// StyleCache holds encoded style sets per session, evicting the least
// recently used set once full. Sets older than the TTL are treated as
// misses.
type StyleCache struct {
	mu       sync.Mutex
	lru      *list.List // front is most recent
	sessions map[string]map[styleKey]*list.Element
	capacity int
	ttl      time.Duration
	hits     int64
	misses   int64
	now      func() time.Time
}

// CacheStats reports style cache usage.
type CacheStats struct {
	Entries    int     `json:"entries"`
	Sessions   int     `json:"sessions"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewStyleCache returns a cache holding at most capacity style sets. A
// non-positive ttl disables expiry.
func NewStyleCache(capacity int, ttl time.Duration) *StyleCache {
	return &StyleCache{
		lru:      list.New(),
		sessions: make(map[string]map[styleKey]*list.Element),
		capacity: max(capacity, 1),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the style set stored under k, or false.
func (c *StyleCache) Get(k styleKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.sessions[k.Session][k]
	if !ok {
		c.misses++
		return nil, false
	}
	e := el.Value.(*styleEntry)
	if c.ttl > 0 && c.now().Sub(e.stored) > c.ttl {
		c.remove(el)
		c.misses++
		return nil, false
	}
	c.lru.MoveToFront(el)
	c.hits++
	return e.data, true
}

// Put stores data under k.
func (c *StyleCache) Put(k styleKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.sessions[k.Session][k]; ok {
		e := el.Value.(*styleEntry)
		e.data, e.stored = data, c.now()
		c.lru.MoveToFront(el)
		return
	}
	for c.lru.Len() >= c.capacity {
		c.remove(c.lru.Back())
	}

	byKey, ok := c.sessions[k.Session]
	if !ok {
		byKey = make(map[styleKey]*list.Element)
		c.sessions[k.Session] = byKey
	}
	byKey[k] = c.lru.PushFront(&styleEntry{key: k, data: data, stored: c.now()})
}

// DropSession removes every style set painted for the session.
func (c *StyleCache) DropSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, el := range c.sessions[id] {
		c.lru.Remove(el)
	}
	delete(c.sessions, id)
}

// Stats reports usage counters.
func (c *StyleCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := CacheStats{
		Entries:    c.lru.Len(),
		Sessions:   len(c.sessions),
		MaxEntries: c.capacity,
		Hits:       c.hits,
		Misses:     c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		st.HitRate = float64(c.hits) / float64(total)
	}
	return st
}

// remove unlinks el. Callers hold mu.
func (c *StyleCache) remove(el *list.Element) {
	e := c.lru.Remove(el).(*styleEntry)
	byKey := c.sessions[e.key.Session]
	delete(byKey, e.key)
	if len(byKey) == 0 {
		delete(c.sessions, e.key.Session)
	}
}
