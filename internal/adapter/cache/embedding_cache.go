package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"pdfrag/internal/port"
)

// CachedEmbedder memoizes embeddings by text so repeated questions in a chat
// do not hit the embedding API again. Least recently used entries are
// evicted once maxSize is reached.
type CachedEmbedder struct {
	embedder port.Embedder
	maxSize  int

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	hits    int
	misses  int
}

type cacheEntry struct {
	key    string
	vector []float32
}

func NewCachedEmbedder(embedder port.Embedder, maxSize int) *CachedEmbedder {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &CachedEmbedder{
		embedder: embedder,
		maxSize:  maxSize,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(c.embedder.ModelName() + "\x00" + text))
	return hex.EncodeToString(sum[:16])
}

// Embed returns cached vectors where possible and embeds the rest in one
// call to the wrapped embedder, preserving input order.
func (c *CachedEmbedder) Embed(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missTexts []string
	var missIdx []int

	c.mu.Lock()
	for i, text := range texts {
		keys[i] = c.cacheKey(text)
		if el, ok := c.entries[keys[i]]; ok {
			c.order.MoveToFront(el)
			out[i] = el.Value.(*cacheEntry).vector
			c.hits++
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
		c.misses++
	}
	c.mu.Unlock()

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.embedder.Embed(missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missTexts))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for j, i := range missIdx {
		out[i] = vectors[j]
		c.put(keys[i], vectors[j])
	}
	return out, nil
}

func (c *CachedEmbedder) put(key string, vector []float32) {
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).vector = vector
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, vector: vector})
}

func (c *CachedEmbedder) Dimension() int {
	return c.embedder.Dimension()
}

func (c *CachedEmbedder) ModelName() string {
	return c.embedder.ModelName()
}

// Stats returns the number of cache hits and misses so far.
func (c *CachedEmbedder) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *CachedEmbedder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
