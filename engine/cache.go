package engine

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/juliengirard/pandeia-coronagraphy/frame"
)

// Fingerprint derives a stable cache key from any JSON-encodable set of
// PSF-generation parameters. Two parameter sets fingerprint identically
// exactly when their canonical JSON encodings match.
func Fingerprint(params interface{}) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("engine: cannot fingerprint parameters: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// PSFCache is a least-recently-used cache of synthesized PSF frames keyed by
// parameter fingerprint. It is scoped to a single process: entries are plain
// in-memory frames, and the cache must never back a cross-process store.
// Safe for concurrent use by the goroutines of one process.
type PSFCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	items    map[string]*list.Element

	hits   int64
	misses int64
}

type cacheEntry struct {
	key string
	psf frame.Frame
}

// NewPSFCache returns a cache holding at most capacity PSFs. capacity < 1 is
// treated as 1.
func NewPSFCache(capacity int) *PSFCache {
	if capacity < 1 {
		capacity = 1
	}
	return &PSFCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns a copy of the cached PSF for key. Copies keep callers from
// mutating cached pixels under each other.
func (c *PSFCache) Get(key string) (frame.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return el.Value.(*cacheEntry).psf.Clone(), true
}

// Put stores a copy of psf under key, evicting the least recently used
// entry when the cache is full.
func (c *PSFCache) Put(key string, psf frame.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).psf = psf.Clone()
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}

	c.items[key] = c.order.PushFront(&cacheEntry{key: key, psf: psf.Clone()})
}

// Len reports the number of cached PSFs.
func (c *PSFCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats reports cumulative hit and miss counts.
func (c *PSFCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
