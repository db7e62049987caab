package embedding

import (
	"sync"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache should miss")
	}
	c.Set("a", []float32{1})
	if v, ok := c.Get("a"); !ok || v[0] != 1 {
		t.Error("expected hit for a")
	}
}

func TestEmbeddingCache_evictsOldest(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Set("c", []float32{3})
	if _, ok := c.Get("a"); ok {
		t.Error("a should have been evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b should still be cached")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should still be cached")
	}
}

// Concurrent hits mutate the recency list, so parallel Gets must be safe.
// Run with -race.
func TestEmbeddingCache_concurrentAccess(t *testing.T) {
	c := NewEmbeddingCache(4)
	c.Set("hot", []float32{1})
	c.Set("warm", []float32{2})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 2000; j++ {
				if v, ok := c.Get("hot"); ok && v[0] != 1 {
					t.Errorf("corrupted value for hot: %v", v)
					return
				}
				c.Get("warm")
				if n == 0 {
					c.Set("churn", []float32{3})
				}
			}
		}(i)
	}
	wg.Wait()
}
