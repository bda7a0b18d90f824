// Package identity resolves face embeddings to stable person ids by
// cosine similarity against every embedding seen so far in the run.
package identity

import (
	"sync"

	"github.com/coder/hnsw"
)

const (
	// DefaultSimilarityThreshold is the minimum cosine similarity for an
	// embedding to match a stored identity.
	DefaultSimilarityThreshold = 0.45

	// searchK is how many nearest neighbors are pulled from the index per
	// lookup; exact similarity is recomputed on each before thresholding.
	searchK = 4

	hnswMaxNeighbors = 16
)

// Record is one stored identity: the first embedding ever seen for the
// person, kept as the permanent reference. Records are never evicted or
// updated for the lifetime of the run.
type Record struct {
	ID        int
	Embedding []float32
}

// Memory maps embeddings to monotonically minted identity ids.
// Lookups run against an HNSW graph with cosine distance; the flat record
// map is kept alongside for export at teardown.
type Memory struct {
	mu        sync.RWMutex
	threshold float64
	graph     *hnsw.Graph[int]
	records   map[int]Record
	nextID    int
}

// NewMemory creates an empty identity memory.
func NewMemory(threshold float64) *Memory {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Memory{
		threshold: threshold,
		records:   make(map[int]Record),
		nextID:    1,
	}
}

// GetID returns the id of the stored identity most similar to the
// embedding when that similarity exceeds the threshold, and otherwise
// mints the next sequential id with this embedding as its reference.
// An empty memory always yields id 1.
func (m *Memory) GetID(embedding []float32) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.graph != nil {
		bestID := 0
		bestSim := 0.0
		for _, n := range m.graph.Search(embedding, searchK) {
			if sim := CosineSimilarity(embedding, n.Value); sim > bestSim {
				bestSim = sim
				bestID = n.Key
			}
		}
		if bestID != 0 && bestSim > m.threshold {
			return bestID
		}
	}

	return m.mint(embedding)
}

// mint stores the embedding under a fresh id. Caller holds the lock.
func (m *Memory) mint(embedding []float32) int {
	id := m.nextID
	m.nextID++

	ref := make([]float32, len(embedding))
	copy(ref, embedding)

	if m.graph == nil {
		g := hnsw.NewGraph[int]()
		g.M = hnswMaxNeighbors
		g.Ml = 1.0 / float64(hnswMaxNeighbors)
		g.Distance = hnsw.CosineDistance
		m.graph = g
	}

	m.graph.Add(hnsw.MakeNode(id, ref))
	m.records[id] = Record{ID: id, Embedding: ref}

	return id
}

// Count returns the number of stored identities.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Records returns a snapshot of all stored identities, for persistence
// at teardown.
func (m *Memory) Records() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, 0, len(m.records))
	for id := 1; id < m.nextID; id++ {
		if r, ok := m.records[id]; ok {
			out = append(out, r)
		}
	}
	return out
}
