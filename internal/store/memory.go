package store

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ragout/ragout/internal/domain"
)

// MemoryStore implements Store with brute-force cosine search over in-memory
// slices. It backs tests and ephemeral runs; semantics match SQLiteStore.
type MemoryStore struct {
	mu         sync.RWMutex
	dimensions int
	namespaces map[string]*memNamespace
	nextNSID   int64
	nextDocID  int64
	seq        int64
}

type memNamespace struct {
	record    NamespaceRecord
	documents map[string]*memDocument
}

type memDocument struct {
	id       int64
	sourceID string
	hash     string
	ingested time.Time
	chunks   []memChunk
}

type memChunk struct {
	chunk     domain.Chunk
	embedding []float32
	seq       int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{namespaces: make(map[string]*memNamespace)}
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// EnsureNamespace creates the namespace if needed. Dimensions are fixed on
// first use, both per namespace and store-wide.
func (s *MemoryStore) EnsureNamespace(name string, dimensions int) (*NamespaceRecord, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: namespace must not be empty", domain.ErrInvalidArgument)
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ns, ok := s.namespaces[name]; ok {
		if ns.record.Dimensions != dimensions {
			return nil, fmt.Errorf("%w: namespace %q has %d dimensions, got %d",
				domain.ErrDimensionMismatch, name, ns.record.Dimensions, dimensions)
		}
		rec := ns.record
		return &rec, nil
	}

	if s.dimensions != 0 && s.dimensions != dimensions {
		return nil, fmt.Errorf("%w: store holds %d-dimensional vectors, got %d",
			domain.ErrDimensionMismatch, s.dimensions, dimensions)
	}
	s.dimensions = dimensions

	s.nextNSID++
	now := time.Now()
	ns := &memNamespace{
		record: NamespaceRecord{
			ID:         s.nextNSID,
			Name:       name,
			Dimensions: dimensions,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		documents: make(map[string]*memDocument),
	}
	s.namespaces[name] = ns

	rec := ns.record
	return &rec, nil
}

// GetNamespace returns the namespace record, or nil when it does not exist.
func (s *MemoryStore) GetNamespace(name string) (*NamespaceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[name]
	if !ok {
		return nil, nil
	}
	rec := ns.record
	return &rec, nil
}

// ListNamespaces returns all namespaces ordered by name.
func (s *MemoryStore) ListNamespaces() ([]NamespaceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []NamespaceRecord
	for _, ns := range s.namespaces {
		records = append(records, ns.record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

// DeleteNamespace removes a namespace and everything under it. Idempotent.
func (s *MemoryStore) DeleteNamespace(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.namespaces, name)
	return nil
}

// BeginDocument upserts the document record, clears prior chunks, and blanks
// the stored hash so an interrupted ingestion cannot look complete.
func (s *MemoryStore) BeginDocument(namespace, sourceID string) (int64, error) {
	if sourceID == "" {
		return 0, fmt.Errorf("%w: source id must not be empty", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return 0, fmt.Errorf("%w: namespace %q does not exist", domain.ErrInvalidArgument, namespace)
	}

	if doc, ok := ns.documents[sourceID]; ok {
		doc.hash = ""
		doc.ingested = time.Now()
		doc.chunks = nil
		ns.record.UpdatedAt = time.Now()
		return doc.id, nil
	}

	s.nextDocID++
	ns.documents[sourceID] = &memDocument{
		id:       s.nextDocID,
		sourceID: sourceID,
		ingested: time.Now(),
	}
	ns.record.UpdatedAt = time.Now()
	return s.nextDocID, nil
}

// FinishDocument records the content hash for a fully ingested document.
func (s *MemoryStore) FinishDocument(docID int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.findDocument(docID)
	if doc == nil {
		return fmt.Errorf("%w: document %d does not exist", domain.ErrInvalidArgument, docID)
	}
	doc.hash = hash
	return nil
}

// PutChunks appends chunks with embeddings to an open document.
func (s *MemoryStore) PutChunks(docID int64, chunks []domain.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %d chunks but %d embeddings",
			domain.ErrInvalidArgument, len(chunks), len(embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, emb := range embeddings {
		if len(emb) != s.dimensions {
			return fmt.Errorf("%w: embedding %d has %d dimensions, store holds %d",
				domain.ErrDimensionMismatch, i, len(emb), s.dimensions)
		}
	}

	doc := s.findDocument(docID)
	if doc == nil {
		return fmt.Errorf("%w: document %d does not exist", domain.ErrInvalidArgument, docID)
	}

	for i, chunk := range chunks {
		s.seq++
		doc.chunks = append(doc.chunks, memChunk{
			chunk:     chunk,
			embedding: embeddings[i],
			seq:       s.seq,
		})
	}
	return nil
}

func (s *MemoryStore) findDocument(docID int64) *memDocument {
	for _, ns := range s.namespaces {
		for _, doc := range ns.documents {
			if doc.id == docID {
				return doc
			}
		}
	}
	return nil
}

// GetDocument returns the document record, or nil when it does not exist.
func (s *MemoryStore) GetDocument(namespace, sourceID string) (*DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil, nil
	}
	doc, ok := ns.documents[sourceID]
	if !ok {
		return nil, nil
	}

	return &DocumentRecord{
		ID:          doc.id,
		Namespace:   namespace,
		SourceID:    doc.sourceID,
		Hash:        doc.hash,
		ChunkCount:  len(doc.chunks),
		IngestedAt:  doc.ingested,
		NamespaceID: ns.record.ID,
	}, nil
}

// DeleteDocument removes a document and its chunks. Idempotent.
func (s *MemoryStore) DeleteDocument(namespace, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ns, ok := s.namespaces[namespace]; ok {
		delete(ns.documents, sourceID)
	}
	return nil
}

// Search scores every chunk in the namespace by cosine similarity and returns
// the top k, descending, ties broken by insertion order.
func (s *MemoryStore) Search(namespace string, query []float32, k int) (domain.RetrievalResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrInvalidArgument)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil, nil
	}
	if len(query) != ns.record.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, namespace %q holds %d",
			domain.ErrDimensionMismatch, len(query), namespace, ns.record.Dimensions)
	}

	type scored struct {
		chunk domain.Chunk
		score float64
		seq   int64
	}

	var candidates []scored
	for _, doc := range ns.documents {
		for _, mc := range doc.chunks {
			candidates = append(candidates, scored{
				chunk: mc.chunk,
				score: cosineSimilarity(query, mc.embedding),
				seq:   mc.seq,
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].seq < candidates[j].seq
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	var results domain.RetrievalResult
	for _, c := range candidates {
		results = append(results, domain.ScoredChunk{Chunk: c.chunk, Score: c.score})
	}
	return results, nil
}

// Stats returns counts for one namespace, or nil when it does not exist.
func (s *MemoryStore) Stats(namespace string) (*NamespaceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil, nil
	}

	stats := &NamespaceStats{
		Namespace:     namespace,
		Dimensions:    ns.record.Dimensions,
		DocumentCount: len(ns.documents),
	}
	for _, doc := range ns.documents {
		stats.ChunkCount += len(doc.chunks)
	}
	return stats, nil
}

// cosineSimilarity computes cosine similarity between two vectors of equal
// length. Zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
