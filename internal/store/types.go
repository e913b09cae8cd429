// Package store provides namespaced vector storage and similarity search.
// The durable backend uses SQLite with the sqlite-vec extension; an
// in-memory backend covers tests and ephemeral deployments.
package store

import "time"

// NamespaceRecord represents one isolation unit (one end user). All chunks
// and embeddings live under exactly one namespace, and searches never cross
// namespaces.
type NamespaceRecord struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Dimensions int       `json:"dimensions"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DocumentRecord represents an ingested document.
type DocumentRecord struct {
	ID          int64     `json:"id"`
	Namespace   string    `json:"namespace"`
	SourceID    string    `json:"source_id"`
	Hash        string    `json:"hash"` // Content hash (xxh64:...)
	ChunkCount  int       `json:"chunk_count"`
	IngestedAt  time.Time `json:"ingested_at"`
	NamespaceID int64     `json:"-"`
}

// NamespaceStats contains statistics about a namespace.
type NamespaceStats struct {
	Namespace     string `json:"namespace"`
	Dimensions    int    `json:"dimensions"`
	DocumentCount int    `json:"document_count"`
	ChunkCount    int    `json:"chunk_count"`
}
