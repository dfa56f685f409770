package embedding

import (
	"container/list"
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// Cached memoizes an inner embedder with an LRU of recently embedded texts.
//
// Loader pipelines embed the same disease descriptions and record chunks
// repeatedly across rebuilds; caching them avoids redundant API calls.
type Cached struct {
	inner    Embedder
	capacity int

	mu        sync.Mutex
	items     map[uint64]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	key    uint64
	vector []float32
}

// NewCached wraps inner with an LRU holding up to capacity vectors.
func NewCached(inner Embedder, capacity int) *Cached {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Cached{
		inner:     inner,
		capacity:  capacity,
		items:     make(map[uint64]*list.Element),
		evictList: list.New(),
	}
}

// Dimension returns the inner embedder's vector width.
func (c *Cached) Dimension() int {
	return c.inner.Dimension()
}

// Embed returns the cached vector for text, embedding it on a miss.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)

	if vec, ok := c.get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.set(key, vec)
	return vec, nil
}

// EmbedBatch serves what it can from the cache and forwards only the misses
// to the inner embedder, preserving input order.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	keys := make([]uint64, len(texts))

	var missTexts []string
	var missAt []int

	for i, text := range texts {
		keys[i] = cacheKey(text)
		if vec, ok := c.get(keys[i]); ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missAt = append(missAt, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, vec := range vectors {
		i := missAt[j]
		out[i] = vec
		c.set(keys[i], vec)
	}

	return out, nil
}

// Stats returns cache hit and miss counts.
func (c *Cached) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cached) get(key uint64) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*cacheEntry).vector, true
	}
	c.misses.Add(1)
	return nil, false
}

func (c *Cached) set(key uint64, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*cacheEntry).vector = vector
		return
	}

	for c.evictList.Len() >= c.capacity {
		oldest := c.evictList.Back()
		if oldest == nil {
			break
		}
		c.evictList.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}

	c.items[key] = c.evictList.PushFront(&cacheEntry{key: key, vector: vector})
}

func cacheKey(text string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	return h.Sum64()
}
