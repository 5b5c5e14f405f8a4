package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/xhad/ragbot/internal/models"
)

// MemoryStore is a brute-force cosine-similarity index kept in memory.
// It backs debug mode and tests; nothing survives a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	dim         int
	initialized bool
	chunks      []models.Chunk
	vectors     [][]float32
}

func NewMemory(dim int) *MemoryStore {
	if dim == 0 {
		dim = 384
	}
	return &MemoryStore{dim: dim}
}

func (ms *MemoryStore) Init(_ context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.dim <= 0 {
		return fmt.Errorf("invalid dimension: %d", ms.dim)
	}
	ms.initialized = true
	return nil
}

func (ms *MemoryStore) Upsert(_ context.Context, chunks []models.Chunk, vectors [][]float32) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if !ms.initialized {
		return ErrNotReady
	}
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	for _, v := range vectors {
		if len(v) != ms.dim {
			return fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(v), ms.dim)
		}
	}

	ms.chunks = append(ms.chunks, chunks...)
	ms.vectors = append(ms.vectors, vectors...)
	return nil
}

func (ms *MemoryStore) Search(_ context.Context, vector []float32, topK int) ([]models.SearchResult, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if !ms.initialized {
		return nil, ErrNotReady
	}
	if topK <= 0 {
		topK = 4
	}

	results := make([]models.SearchResult, 0, len(ms.vectors))
	for i, v := range ms.vectors {
		results = append(results, models.SearchResult{
			Chunk: ms.chunks[i],
			Score: cosineSimilarity(v, vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (ms *MemoryStore) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
