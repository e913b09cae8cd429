package store

import (
	"github.com/ragout/ragout/internal/domain"
)

// Store defines the interface for namespaced vector storage. The namespace is
// a mandatory key on every operation so per-user isolation is structural, not
// conventional.
type Store interface {
	// Namespace management. EnsureNamespace creates the namespace on first
	// use and fixes its dimensionality; a later call with different
	// dimensions fails with ErrDimensionMismatch. DeleteNamespace is
	// idempotent.
	EnsureNamespace(name string, dimensions int) (*NamespaceRecord, error)
	GetNamespace(name string) (*NamespaceRecord, error)
	ListNamespaces() ([]NamespaceRecord, error)
	DeleteNamespace(name string) error

	// Document operations. BeginDocument upserts the document record keyed
	// by (namespace, source id), drops any chunks from a prior ingestion,
	// and clears the stored content hash, so re-ingesting a document
	// replaces rather than duplicates and an interrupted ingestion never
	// looks complete. PutChunks appends a batch of chunks with their
	// embeddings to an open document. FinishDocument records the content
	// hash once every chunk has been committed.
	BeginDocument(namespace, sourceID string) (int64, error)
	PutChunks(docID int64, chunks []domain.Chunk, embeddings [][]float32) error
	FinishDocument(docID int64, hash string) error
	GetDocument(namespace, sourceID string) (*DocumentRecord, error)
	DeleteDocument(namespace, sourceID string) error

	// Search returns up to k entries nearest to the query embedding by
	// cosine similarity, ranked descending, ties broken by ingestion order
	// (earlier wins). An unknown or empty namespace yields an empty
	// result, not an error.
	Search(namespace string, query []float32, k int) (domain.RetrievalResult, error)

	// Stats
	Stats(namespace string) (*NamespaceStats, error)

	Close() error
}
