package cli

import (
	"fmt"

	"github.com/ragout/ragout/internal/chunker"
	"github.com/ragout/ragout/internal/config"
	"github.com/ragout/ragout/internal/embeddings"
	"github.com/ragout/ragout/internal/llm"
	"github.com/ragout/ragout/internal/pipeline"
	"github.com/ragout/ragout/internal/retriever"
	"github.com/ragout/ragout/internal/retry"
	"github.com/ragout/ragout/internal/store"
)

// openStore opens the configured vector store backend.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		st, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		return st, nil
	}
}

// retryPolicy builds the provider retry policy from configuration.
func retryPolicy(cfg *config.Config) retry.Policy {
	p := retry.Default()
	if cfg.Providers.RetryAttempts > 0 {
		p.MaxAttempts = cfg.Providers.RetryAttempts
	}
	if cfg.Providers.RetryBase > 0 {
		p.BaseDelay = cfg.Providers.RetryBase
	}
	if cfg.Providers.RetryMax > 0 {
		p.MaxDelay = cfg.Providers.RetryMax
	}
	return p
}

// newIngestionPipeline wires the ingestion flow from configuration.
func newIngestionPipeline(cfg *config.Config, st store.Store) (*pipeline.IngestionPipeline, error) {
	emb, err := embeddings.NewService(cfg, retryPolicy(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding service: %w", err)
	}

	c, err := chunker.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	return pipeline.NewIngestionPipeline(c, emb, st, cfg.Embeddings.BatchSize), nil
}

// newQueryPipeline wires the question-answering flow from configuration.
func newQueryPipeline(cfg *config.Config, st store.Store) (*pipeline.QueryPipeline, error) {
	policy := retryPolicy(cfg)

	emb, err := embeddings.NewService(cfg, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding service: %w", err)
	}

	llmService, err := llm.NewService(cfg, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM service: %w", err)
	}

	r := retriever.New(emb, st, cfg.Retrieval.TopK, cfg.Retrieval.MinScore)
	synth := llm.NewSynthesizer(llmService, llm.SynthesizerOptions{
		EmptyContext:    cfg.Answer.EmptyContext,
		MaxContextChars: cfg.Answer.MaxContextChars,
		Temperature:     cfg.Answer.Temperature,
		MaxTokens:       cfg.Answer.MaxTokens,
	})

	return pipeline.NewQueryPipeline(r, synth, cfg.Answer.FallbackNamespace), nil
}
