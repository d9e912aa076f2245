package server

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/london-map/internal/area"
)

func boroughKey(session, fingerprint string) styleKey {
	return styleKey{Session: session, Level: area.LevelBorough, Fingerprint: fingerprint}
}

func TestStyleCache_GetPut(t *testing.T) {
	cache := NewStyleCache(100, time.Hour)
	key := boroughKey("s1", "2026|all|all|3e+06|price|10|")

	_, ok := cache.Get(key)
	assert.False(t, ok)

	cache.Put(key, []byte(`{"features":{}}`))
	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte(`{"features":{}}`), got)

	// Same fingerprint on the other level is a different set.
	_, ok = cache.Get(styleKey{Session: "s1", Level: area.LevelPostcode, Fingerprint: key.Fingerprint})
	assert.False(t, ok)
}

func TestStyleCache_Expiry(t *testing.T) {
	cache := NewStyleCache(10, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	key := boroughKey("s1", "f")
	cache.Put(key, []byte("v"))
	_, ok := cache.Get(key)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Stats().Entries)
	assert.Equal(t, 0, cache.Stats().Sessions)
}

func TestStyleCache_NoExpiryWithoutTTL(t *testing.T) {
	cache := NewStyleCache(10, 0)
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Put(boroughKey("s1", "f"), []byte("v"))
	now = now.Add(24 * time.Hour)
	_, ok := cache.Get(boroughKey("s1", "f"))
	assert.True(t, ok)
}

func TestStyleCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewStyleCache(3, time.Hour)
	for _, f := range []string{"a", "b", "c"} {
		cache.Put(boroughKey("s1", f), []byte(f))
	}

	// Touch "a" so "b" becomes the oldest.
	_, ok := cache.Get(boroughKey("s1", "a"))
	require.True(t, ok)
	cache.Put(boroughKey("s1", "d"), []byte("d"))

	for f, want := range map[string]bool{"a": true, "b": false, "c": true, "d": true} {
		_, ok := cache.Get(boroughKey("s1", f))
		assert.Equal(t, want, ok, f)
	}
	assert.Equal(t, 3, cache.Stats().Entries)
}

func TestStyleCache_PutReplaces(t *testing.T) {
	cache := NewStyleCache(2, time.Hour)
	cache.Put(boroughKey("s1", "a"), []byte("1"))
	cache.Put(boroughKey("s1", "a"), []byte("2"))

	got, ok := cache.Get(boroughKey("s1", "a"))
	require.True(t, ok)
	assert.Equal(t, []byte("2"), got)
	assert.Equal(t, 1, cache.Stats().Entries)
}

func TestStyleCache_DropSession(t *testing.T) {
	cache := NewStyleCache(10, time.Hour)
	cache.Put(boroughKey("old", "f"), []byte("1"))
	cache.Put(styleKey{Session: "old", Level: area.LevelPostcode, Fingerprint: "f"}, []byte("2"))
	cache.Put(boroughKey("new", "f"), []byte("3"))
	require.Equal(t, 2, cache.Stats().Sessions)

	cache.DropSession("old")
	_, ok := cache.Get(boroughKey("old", "f"))
	assert.False(t, ok)
	_, ok = cache.Get(boroughKey("new", "f"))
	assert.True(t, ok)

	st := cache.Stats()
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, 1, st.Sessions)

	cache.DropSession("missing")
	assert.Equal(t, 1, cache.Stats().Entries)
}

func TestStyleCache_EvictionAcrossSessions(t *testing.T) {
	cache := NewStyleCache(2, time.Hour)
	cache.Put(boroughKey("s1", "a"), []byte("1"))
	cache.Put(boroughKey("s2", "a"), []byte("2"))
	cache.Put(boroughKey("s2", "b"), []byte("3"))

	st := cache.Stats()
	assert.Equal(t, 2, st.Entries)
	assert.Equal(t, 1, st.Sessions)
}

func TestStyleCache_Stats(t *testing.T) {
	cache := NewStyleCache(5, time.Hour)
	cache.Put(boroughKey("s1", "a"), []byte("1"))
	cache.Get(boroughKey("s1", "a"))
	cache.Get(boroughKey("s1", "a"))
	cache.Get(boroughKey("s1", "missing"))

	st := cache.Stats()
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, 5, st.MaxEntries)
	assert.Equal(t, int64(2), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.InDelta(t, 2.0/3.0, st.HitRate, 1e-9)
}

func TestStyleCache_ZeroCapacity(t *testing.T) {
	cache := NewStyleCache(0, 0)
	cache.Put(boroughKey("s1", "a"), []byte("1"))
	cache.Put(boroughKey("s1", "b"), []byte("2"))

	_, ok := cache.Get(boroughKey("s1", "a"))
	assert.False(t, ok)
	_, ok = cache.Get(boroughKey("s1", "b"))
	assert.True(t, ok)
}

func TestStyleCache_Concurrent(t *testing.T) {
	cache := NewStyleCache(50, time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := boroughKey(fmt.Sprintf("s%d", i%2), fmt.Sprintf("f%d", i%5))
			cache.Put(key, []byte("x"))
			cache.Get(key)
			if i%7 == 0 {
				cache.DropSession("s0")
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, cache.Stats().Entries, 10)
}
