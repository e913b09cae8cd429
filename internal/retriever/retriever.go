// Package retriever turns a natural-language question into the top-k most
// similar chunks from one namespace.
package retriever

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/ragout/ragout/internal/domain"
	"github.com/ragout/ragout/internal/embeddings"
	"github.com/ragout/ragout/internal/store"
)

// Options tune a retrieval.
type Options struct {
	// TopK is the maximum number of chunks to return. Zero means the
	// retriever's default.
	TopK int

	// MinScore drops results scoring below the threshold. Zero keeps all.
	MinScore float64
}

// Retriever embeds queries and searches the vector store. Searches are scoped
// to a single namespace per call.
type Retriever struct {
	embedder embeddings.Service
	store    store.Store
	topK     int
	minScore float64
}

// New creates a retriever with the given defaults.
func New(embedder embeddings.Service, s store.Store, topK int, minScore float64) *Retriever {
	if topK <= 0 {
		topK = 4
	}
	return &Retriever{
		embedder: embedder,
		store:    s,
		topK:     topK,
		minScore: minScore,
	}
}

// Retrieve embeds the question and returns up to TopK chunks from the
// namespace, ranked by descending similarity. An unknown or empty namespace
// yields an empty result.
func (r *Retriever) Retrieve(ctx context.Context, namespace, question string, opts Options) (domain.RetrievalResult, error) {
	if namespace == "" {
		return nil, fmt.Errorf("%w: namespace must not be empty", domain.ErrInvalidArgument)
	}
	if question == "" {
		return nil, fmt.Errorf("%w: question must not be empty", domain.ErrInvalidArgument)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = r.topK
	}
	minScore := opts.MinScore
	if minScore == 0 {
		minScore = r.minScore
	}

	// Skip the embedding call entirely when there is nothing to search.
	stats, err := r.store.Stats(namespace)
	if err != nil {
		return nil, err
	}
	if stats == nil || stats.ChunkCount == 0 {
		return nil, nil
	}

	query, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.store.Search(namespace, query, topK)
	if err != nil {
		return nil, err
	}

	if minScore > 0 {
		filtered := results[:0]
		for _, sc := range results {
			if sc.Score >= minScore {
				filtered = append(filtered, sc)
			}
		}
		results = filtered
	}

	log.Debug("Retrieved chunks", "namespace", namespace, "count", len(results), "top_k", topK)
	return results, nil
}
