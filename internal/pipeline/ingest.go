// Package pipeline wires the chunker, embedder, store, retriever, and
// synthesizer into the two end-to-end flows: ingestion and question answering.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"

	"github.com/ragout/ragout/internal/chunker"
	"github.com/ragout/ragout/internal/domain"
	"github.com/ragout/ragout/internal/embeddings"
	"github.com/ragout/ragout/internal/store"
)

// IngestionPipeline chunks, embeds, and stores documents. Ingestions into the
// same namespace are serialized; different namespaces proceed concurrently.
type IngestionPipeline struct {
	chunker   *chunker.Chunker
	embedder  embeddings.Service
	store     store.Store
	batchSize int
	locks     namespaceLocks
}

// IngestResult summarizes one ingestion.
type IngestResult struct {
	Namespace string `json:"namespace"`
	SourceID  string `json:"source_id"`
	Chunks    int    `json:"chunks"`

	// Skipped is true when the document's content hash matched the stored
	// one and nothing was re-embedded.
	Skipped bool `json:"skipped"`
}

// NewIngestionPipeline creates an ingestion pipeline.
func NewIngestionPipeline(c *chunker.Chunker, embedder embeddings.Service, s store.Store, batchSize int) *IngestionPipeline {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &IngestionPipeline{
		chunker:   c,
		embedder:  embedder,
		store:     s,
		batchSize: batchSize,
	}
}

// Ingest runs a document through chunking, embedding, and storage. A document
// whose content hash matches the stored one is skipped. An empty document
// stores nothing and is not an error. When a batch fails partway through, the
// returned error is a PartialIngestionError listing stored and failed chunk
// indices.
func (p *IngestionPipeline) Ingest(ctx context.Context, doc domain.Document) (*IngestResult, error) {
	if doc.Namespace == "" {
		return nil, fmt.Errorf("%w: namespace must not be empty", domain.ErrInvalidArgument)
	}
	if doc.SourceID == "" {
		return nil, fmt.Errorf("%w: source id must not be empty", domain.ErrInvalidArgument)
	}

	unlock := p.locks.lock(doc.Namespace)
	defer unlock()

	hash := contentHash(doc.Text)

	existing, err := p.store.GetDocument(doc.Namespace, doc.SourceID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Hash == hash {
		log.Debug("Document unchanged, skipping", "namespace", doc.Namespace, "source", doc.SourceID)
		return &IngestResult{
			Namespace: doc.Namespace,
			SourceID:  doc.SourceID,
			Chunks:    existing.ChunkCount,
			Skipped:   true,
		}, nil
	}

	texts := p.chunker.Split(doc.Text)

	if _, err := p.store.EnsureNamespace(doc.Namespace, p.embedder.Dimensions()); err != nil {
		return nil, err
	}

	docID, err := p.store.BeginDocument(doc.Namespace, doc.SourceID)
	if err != nil {
		return nil, err
	}

	if len(texts) == 0 {
		log.Debug("Document is empty, nothing to store", "namespace", doc.Namespace, "source", doc.SourceID)
		if err := p.store.FinishDocument(docID, hash); err != nil {
			return nil, err
		}
		return &IngestResult{Namespace: doc.Namespace, SourceID: doc.SourceID}, nil
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			Namespace: doc.Namespace,
			SourceID:  doc.SourceID,
			Index:     i,
			Text:      text,
		}
	}

	log.Debug("Ingesting document",
		"namespace", doc.Namespace, "source", doc.SourceID, "chunks", len(chunks))

	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		if err := p.ingestBatch(ctx, docID, batch); err != nil {
			return nil, partialError(doc.SourceID, chunks, start, err)
		}
	}

	// The hash is recorded only after the last batch commits; a partial
	// ingestion keeps a blank hash so re-running picks it back up.
	if err := p.store.FinishDocument(docID, hash); err != nil {
		return nil, err
	}

	return &IngestResult{
		Namespace: doc.Namespace,
		SourceID:  doc.SourceID,
		Chunks:    len(chunks),
	}, nil
}

func (p *IngestionPipeline) ingestBatch(ctx context.Context, docID int64, batch []domain.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	return p.store.PutChunks(docID, batch, vectors)
}

// partialError builds a PartialIngestionError: chunks before failedFrom were
// committed, the rest were not.
func partialError(sourceID string, chunks []domain.Chunk, failedFrom int, cause error) error {
	perr := &domain.PartialIngestionError{SourceID: sourceID, Cause: cause}
	for _, c := range chunks[:failedFrom] {
		perr.Stored = append(perr.Stored, c.Index)
	}
	for _, c := range chunks[failedFrom:] {
		perr.Failed = append(perr.Failed, c.Index)
	}
	return perr
}

// contentHash returns the xxh64 digest of the document text in the form
// stored alongside document records.
func contentHash(text string) string {
	return fmt.Sprintf("xxh64:%016x", xxhash.Sum64String(text))
}

// namespaceLocks hands out one mutex per namespace.
type namespaceLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (n *namespaceLocks) lock(namespace string) (unlock func()) {
	n.mu.Lock()
	if n.locks == nil {
		n.locks = make(map[string]*sync.Mutex)
	}
	l, ok := n.locks[namespace]
	if !ok {
		l = &sync.Mutex{}
		n.locks[namespace] = l
	}
	n.mu.Unlock()

	l.Lock()
	return l.Unlock
}
