package identity

import (
	"math"
	"testing"
)

// unitVec builds a 16-dim unit vector pointing along the given axis.
func unitVec(axis int) []float32 {
	v := make([]float32, 16)
	v[axis] = 1
	return v
}

func TestGetID_EmptyMemoryYieldsOne(t *testing.T) {
	m := NewMemory(0.45)

	if id := m.GetID(unitVec(0)); id != 1 {
		t.Errorf("expected first identity id 1, got %d", id)
	}

	if m.Count() != 1 {
		t.Errorf("expected 1 stored identity, got %d", m.Count())
	}
}

func TestGetID_Deterministic(t *testing.T) {
	m := NewMemory(0.45)

	emb := unitVec(3)
	first := m.GetID(emb)
	second := m.GetID(emb)

	if first != second {
		t.Errorf("identical embedding resolved to different ids: %d and %d", first, second)
	}

	if m.Count() != 1 {
		t.Errorf("expected no new identity for a repeat embedding, got %d stored", m.Count())
	}
}

func TestGetID_SelfSimilarityIsOne(t *testing.T) {
	emb := Normalize([]float32{0.3, -0.5, 0.8, 0.1})

	sim := CosineSimilarity(emb, emb)
	if math.Abs(sim-1) > 1e-6 {
		t.Errorf("expected self-similarity 1.0, got %v", sim)
	}
}

func TestGetID_DissimilarMintsSequentialIDs(t *testing.T) {
	m := NewMemory(0.45)

	// Orthogonal unit vectors have similarity 0, below any useful threshold
	ids := []int{
		m.GetID(unitVec(0)),
		m.GetID(unitVec(1)),
		m.GetID(unitVec(2)),
	}

	for i, id := range ids {
		if id != i+1 {
			t.Errorf("expected identity %d, got %d", i+1, id)
		}
	}
}

func TestGetID_NearMatchReturnsStoredID(t *testing.T) {
	m := NewMemory(0.45)

	first := m.GetID(unitVec(0))

	// Slightly rotated copy of the first embedding, similarity ~0.995
	near := make([]float32, 16)
	near[0] = 0.995
	near[1] = 0.1
	Normalize(near)

	if id := m.GetID(near); id != first {
		t.Errorf("expected near-duplicate embedding to resolve to id %d, got %d", first, id)
	}
}

func TestGetID_FirstEmbeddingStaysReference(t *testing.T) {
	m := NewMemory(0.45)

	ref := unitVec(0)
	m.GetID(ref)

	// A matching but different embedding must not replace the reference
	near := make([]float32, 16)
	near[0] = 0.9
	near[1] = 0.43
	Normalize(near)
	m.GetID(near)

	records := m.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	if records[0].Embedding[1] != 0 {
		t.Errorf("expected first-seen embedding kept as reference, got %v", records[0].Embedding)
	}
}

func TestRecords_SortedByID(t *testing.T) {
	m := NewMemory(0.45)
	m.GetID(unitVec(0))
	m.GetID(unitVec(1))
	m.GetID(unitVec(2))

	records := m.Records()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	for i, r := range records {
		if r.ID != i+1 {
			t.Errorf("expected record %d to have id %d, got %d", i, i+1, r.ID)
		}
	}
}

func TestCosineSimilarity_MismatchedLengths(t *testing.T) {
	if sim := CosineSimilarity([]float32{1, 0}, []float32{1}); sim != 0 {
		t.Errorf("expected 0 for mismatched lengths, got %v", sim)
	}

	if sim := CosineSimilarity(nil, nil); sim != 0 {
		t.Errorf("expected 0 for empty vectors, got %v", sim)
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})

	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("expected (0.6, 0.8), got %v", v)
	}

	// Zero vector passes through untouched
	z := Normalize([]float32{0, 0})
	if z[0] != 0 || z[1] != 0 {
		t.Errorf("expected zero vector unchanged, got %v", z)
	}
}
