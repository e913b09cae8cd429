// Package domain defines the data model and error taxonomy shared by the
// ragout pipeline components.
package domain

// Document is a piece of source text ingested under a namespace. It exists
// only during ingestion; once chunked, only the derived chunks persist.
type Document struct {
	Namespace string `json:"namespace"`
	SourceID  string `json:"source_id"` // e.g. the uploaded filename
	Text      string `json:"text"`
}

// Chunk is a bounded-size segment of a document. Index is the chunk's
// position within its document; indices are contiguous and order-preserving.
type Chunk struct {
	Namespace string `json:"namespace"`
	SourceID  string `json:"source_id"`
	Index     int    `json:"index"`
	Text      string `json:"text"`
}

// ScoredChunk pairs a chunk with its similarity score (0-1, higher is closer).
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// RetrievalResult is an ordered sequence of scored chunks, ranked by
// descending similarity.
type RetrievalResult []ScoredChunk
