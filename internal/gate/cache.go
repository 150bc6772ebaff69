package gate

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// embedCache memoizes embedding vectors across concurrent question pipelines.
// Keys are strictly (embedding-model-id, content-hash) so vectors never leak
// across models or questions with different rationale text.
type embedCache struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

func newEmbedCache() *embedCache {
	return &embedCache{vectors: make(map[string][]float32)}
}

func cacheKey(modelID, text string) string {
	sum := sha256.Sum256([]byte(text))
	return modelID + ":" + hex.EncodeToString(sum[:])
}

func (c *embedCache) get(modelID, text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.vectors[cacheKey(modelID, text)]
	return vec, ok
}

func (c *embedCache) put(modelID, text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors[cacheKey(modelID, text)] = vec
}
