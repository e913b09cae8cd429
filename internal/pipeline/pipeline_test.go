package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragout/ragout/internal/chunker"
	"github.com/ragout/ragout/internal/config"
	"github.com/ragout/ragout/internal/domain"
	"github.com/ragout/ragout/internal/embeddings"
	"github.com/ragout/ragout/internal/llm"
	"github.com/ragout/ragout/internal/retriever"
	"github.com/ragout/ragout/internal/store"
)

// stubEmbedder returns a vector keyed on the first word of each text, so
// tests control similarity by word choice. failAfter > 0 makes every batch
// call past the first N fail.
type stubEmbedder struct {
	mu         sync.Mutex
	batchCalls int
	failAfter  int
}

var stubVectors = map[string][]float32{
	"cats":  {1, 0, 0, 0},
	"dogs":  {0, 1, 0, 0},
	"birds": {0, 0, 1, 0},
}

func stubVector(text string) []float32 {
	word, _, _ := strings.Cut(text, " ")
	if v, ok := stubVectors[word]; ok {
		return v
	}
	return []float32{0.5, 0.5, 0.5, 0.5}
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batchCalls++
	calls := e.batchCalls
	failAfter := e.failAfter
	e.mu.Unlock()

	if failAfter > 0 && calls > failAfter {
		return nil, domain.ErrProviderUnavailable
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = stubVector(t)
	}
	return out, nil
}

func (e *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return stubVector(text), nil
}

func (e *stubEmbedder) Dimensions() int               { return 4 }
func (e *stubEmbedder) Provider() embeddings.Provider { return "stub" }
func (e *stubEmbedder) ModelName() string             { return "stub-model" }

func (e *stubEmbedder) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batchCalls
}

// heal stops the embedder from failing further batches.
func (e *stubEmbedder) heal() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failAfter = 0
}

func newIngestion(t *testing.T, emb embeddings.Service, s store.Store, batchSize int) *IngestionPipeline {
	t.Helper()
	c, err := chunker.New(20, 5)
	require.NoError(t, err)
	return NewIngestionPipeline(c, emb, s, batchSize)
}

func TestIngestStoresChunks(t *testing.T) {
	s := store.NewMemoryStore()
	p := newIngestion(t, &stubEmbedder{}, s, 64)

	result, err := p.Ingest(context.Background(), domain.Document{
		Namespace: "alice",
		SourceID:  "pets.txt",
		Text:      strings.Repeat("cats and dogs ", 10),
	})
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Greater(t, result.Chunks, 1)

	stats, err := s.Stats("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)
	assert.Equal(t, result.Chunks, stats.ChunkCount)
}

func TestIngestValidatesArguments(t *testing.T) {
	p := newIngestion(t, &stubEmbedder{}, store.NewMemoryStore(), 64)

	_, err := p.Ingest(context.Background(), domain.Document{SourceID: "a.txt", Text: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = p.Ingest(context.Background(), domain.Document{Namespace: "alice", Text: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestIngestEmptyDocument(t *testing.T) {
	emb := &stubEmbedder{}
	s := store.NewMemoryStore()
	p := newIngestion(t, emb, s, 64)

	result, err := p.Ingest(context.Background(), domain.Document{
		Namespace: "alice",
		SourceID:  "empty.txt",
		Text:      "",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Chunks)
	assert.Equal(t, 0, emb.calls())

	// The document record exists even though no chunks do.
	doc, err := s.GetDocument("alice", "empty.txt")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, 0, doc.ChunkCount)
}

func TestIngestSkipsUnchangedContent(t *testing.T) {
	emb := &stubEmbedder{}
	p := newIngestion(t, emb, store.NewMemoryStore(), 64)
	doc := domain.Document{Namespace: "alice", SourceID: "a.txt", Text: "cats purr loudly"}

	first, err := p.Ingest(context.Background(), doc)
	require.NoError(t, err)
	assert.False(t, first.Skipped)
	callsAfterFirst := emb.calls()

	second, err := p.Ingest(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Equal(t, callsAfterFirst, emb.calls())
}

func TestIngestReplacesChangedContent(t *testing.T) {
	s := store.NewMemoryStore()
	p := newIngestion(t, &stubEmbedder{}, s, 64)

	_, err := p.Ingest(context.Background(), domain.Document{
		Namespace: "alice", SourceID: "a.txt", Text: strings.Repeat("cats ", 20),
	})
	require.NoError(t, err)

	result, err := p.Ingest(context.Background(), domain.Document{
		Namespace: "alice", SourceID: "a.txt", Text: "dogs bark",
	})
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 1, result.Chunks)

	stats, err := s.Stats("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ChunkCount)
}

func TestIngestPartialFailure(t *testing.T) {
	emb := &stubEmbedder{failAfter: 1}
	s := store.NewMemoryStore()
	p := newIngestion(t, emb, s, 2)

	// 20-rune chunks with overlap 5 over 100 runes: 7 chunks, 4 batches of 2.
	_, err := p.Ingest(context.Background(), domain.Document{
		Namespace: "alice",
		SourceID:  "big.txt",
		Text:      strings.Repeat("x", 100),
	})
	require.Error(t, err)

	var perr *domain.PartialIngestionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "big.txt", perr.SourceID)
	assert.Equal(t, []int{0, 1}, perr.Stored)
	assert.Equal(t, []int{2, 3, 4, 5, 6}, perr.Failed)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

	// The stored prefix is queryable.
	stats, err := s.Stats("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ChunkCount)
}

// A failed ingestion must not leave the document looking complete: re-running
// the ingest once the provider recovers has to store every chunk instead of
// skipping on the content hash.
func TestIngestRetryAfterPartialFailure(t *testing.T) {
	emb := &stubEmbedder{failAfter: 1}
	s := store.NewMemoryStore()
	p := newIngestion(t, emb, s, 2)

	doc := domain.Document{
		Namespace: "alice",
		SourceID:  "big.txt",
		Text:      strings.Repeat("x", 100), // 7 chunks at window 20/overlap 5
	}

	_, err := p.Ingest(context.Background(), doc)
	var perr *domain.PartialIngestionError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, []int{0, 1}, perr.Stored)

	// The interrupted document carries no content hash.
	rec, err := s.GetDocument("alice", "big.txt")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Empty(t, rec.Hash)

	emb.heal()

	result, err := p.Ingest(context.Background(), doc)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 7, result.Chunks)

	stats, err := s.Stats("alice")
	require.NoError(t, err)
	assert.Equal(t, 7, stats.ChunkCount)

	// A third run now skips on the recorded hash.
	third, err := p.Ingest(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, third.Skipped)
}

func TestIngestConcurrentNamespacesStayIsolated(t *testing.T) {
	s := store.NewMemoryStore()
	p := newIngestion(t, &stubEmbedder{}, s, 64)

	namespaces := []string{"alice", "bob", "carol", "dave"}
	var wg sync.WaitGroup
	errs := make([]error, len(namespaces))

	for i, ns := range namespaces {
		wg.Add(1)
		go func(i int, ns string) {
			defer wg.Done()
			_, errs[i] = p.Ingest(context.Background(), domain.Document{
				Namespace: ns,
				SourceID:  "doc.txt",
				Text:      "cats in " + ns,
			})
		}(i, ns)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "namespace %s", namespaces[i])
	}

	for _, ns := range namespaces {
		results, err := s.Search(ns, stubVectors["cats"], 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Contains(t, results[0].Chunk.Text, ns)
	}
}

func newQuery(t *testing.T, s store.Store, fallback string) *QueryPipeline {
	t.Helper()

	emb := &stubEmbedder{}
	r := retriever.New(emb, s, 4, 0)
	opts := llm.DefaultSynthesizerOptions()
	opts.EmptyContext = config.EmptyContextRefuse
	synth := llm.NewSynthesizer(&echoLLM{}, opts)
	return NewQueryPipeline(r, synth, fallback)
}

// echoLLM answers with the user prompt so tests can inspect the context the
// synthesizer assembled.
type echoLLM struct{}

func (e *echoLLM) Complete(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (string, error) {
	return messages[len(messages)-1].Content, nil
}

func (e *echoLLM) Provider() llm.Provider { return "echo" }
func (e *echoLLM) ModelName() string      { return "echo-model" }

func TestAskAnswersFromOwnNamespace(t *testing.T) {
	s := store.NewMemoryStore()
	ingest := newIngestion(t, &stubEmbedder{}, s, 64)
	_, err := ingest.Ingest(context.Background(), domain.Document{
		Namespace: "alice", SourceID: "pets.txt", Text: "cats purr",
	})
	require.NoError(t, err)

	q := newQuery(t, s, "")

	answer, err := q.Ask(context.Background(), "alice", "cats do what")
	require.NoError(t, err)
	assert.True(t, answer.Grounded)
	assert.Contains(t, answer.Text, "cats purr")
}

func TestAskEmptyNamespaceRefuses(t *testing.T) {
	q := newQuery(t, store.NewMemoryStore(), "")

	answer, err := q.Ask(context.Background(), "nobody", "anything")
	require.NoError(t, err)
	assert.Equal(t, llm.RefusalAnswer, answer.Text)
	assert.False(t, answer.Grounded)
}

func TestAskFallsBackToSharedNamespace(t *testing.T) {
	s := store.NewMemoryStore()
	ingest := newIngestion(t, &stubEmbedder{}, s, 64)
	_, err := ingest.Ingest(context.Background(), domain.Document{
		Namespace: "library", SourceID: "manual.pdf", Text: "dogs bark at night",
	})
	require.NoError(t, err)

	q := newQuery(t, s, "library")

	answer, err := q.Ask(context.Background(), "alice", "dogs do what")
	require.NoError(t, err)
	assert.True(t, answer.Grounded)
	assert.Contains(t, answer.Text, "dogs bark at night")
}

func TestContentHashFormat(t *testing.T) {
	h := contentHash("hello")
	assert.True(t, strings.HasPrefix(h, "xxh64:"))
	assert.Len(t, h, len("xxh64:")+16)
	assert.Equal(t, h, contentHash("hello"))
	assert.NotEqual(t, h, contentHash("hello!"))
}

func TestPartialErrorClassification(t *testing.T) {
	chunks := []domain.Chunk{{Index: 0}, {Index: 1}, {Index: 2}}
	err := partialError("a.txt", chunks, 1, errors.New("boom"))

	var perr *domain.PartialIngestionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, []int{0}, perr.Stored)
	assert.Equal(t, []int{1, 2}, perr.Failed)
}
