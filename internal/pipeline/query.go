package pipeline

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/ragout/ragout/internal/llm"
	"github.com/ragout/ragout/internal/retriever"
)

// QueryPipeline answers questions against one namespace's documents.
type QueryPipeline struct {
	retriever   *retriever.Retriever
	synthesizer *llm.Synthesizer

	// fallbackNamespace, when set, is searched whenever the caller's own
	// namespace yields nothing. It holds a shared pre-loaded library.
	fallbackNamespace string
}

// NewQueryPipeline creates a query pipeline.
func NewQueryPipeline(r *retriever.Retriever, s *llm.Synthesizer, fallbackNamespace string) *QueryPipeline {
	return &QueryPipeline{
		retriever:         r,
		synthesizer:       s,
		fallbackNamespace: fallbackNamespace,
	}
}

// Ask retrieves context for the question from the namespace and synthesizes a
// grounded answer. A namespace with no matching content is not an error; the
// synthesizer's empty-context policy decides the reply.
func (p *QueryPipeline) Ask(ctx context.Context, namespace, question string) (*llm.Answer, error) {
	results, err := p.retriever.Retrieve(ctx, namespace, question, retriever.Options{})
	if err != nil {
		return nil, err
	}

	if len(results) == 0 && p.fallbackNamespace != "" && p.fallbackNamespace != namespace {
		log.Debug("Falling back to shared namespace",
			"namespace", namespace, "fallback", p.fallbackNamespace)
		results, err = p.retriever.Retrieve(ctx, p.fallbackNamespace, question, retriever.Options{})
		if err != nil {
			return nil, err
		}
	}

	return p.synthesizer.Synthesize(ctx, question, results)
}
