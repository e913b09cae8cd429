package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/ragout/ragout/internal/config"
	"github.com/ragout/ragout/internal/domain"
)

// Synthesizer generates answers to questions using retrieved chunks as
// grounding context.
type Synthesizer struct {
	llm  Service
	opts SynthesizerOptions
}

// SynthesizerOptions configures answer generation.
type SynthesizerOptions struct {
	// EmptyContext selects the behavior when retrieval found nothing:
	// config.EmptyContextRefuse or config.EmptyContextGeneral.
	EmptyContext string

	// MaxContextChars bounds the total size of chunk text sent to the
	// model. Lowest-ranked chunks are dropped first.
	MaxContextChars int

	Temperature float64
	MaxTokens   int
}

// DefaultSynthesizerOptions returns sensible defaults.
func DefaultSynthesizerOptions() SynthesizerOptions {
	return SynthesizerOptions{
		EmptyContext:    config.DefaultEmptyContextPolicy,
		MaxContextChars: config.DefaultMaxContextChars,
		Temperature:     config.DefaultAnswerTemperature,
		MaxTokens:       config.DefaultAnswerMaxTokens,
	}
}

// Answer contains the generated answer and the chunks it was grounded on.
type Answer struct {
	Text    string                 `json:"text"`
	Sources domain.RetrievalResult `json:"sources"`

	// Grounded is false when the answer was produced without document
	// context (empty namespace under the "general" policy).
	Grounded bool `json:"grounded"`
}

// RefusalAnswer is returned under the "refuse" policy when no relevant
// context exists.
const RefusalAnswer = "I couldn't find anything relevant in your documents. Upload a document first, or try rephrasing the question."

// NewSynthesizer creates an answer synthesizer on top of an LLM service.
func NewSynthesizer(llm Service, opts SynthesizerOptions) *Synthesizer {
	if opts.EmptyContext == "" {
		opts.EmptyContext = config.DefaultEmptyContextPolicy
	}
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = config.DefaultMaxContextChars
	}
	return &Synthesizer{llm: llm, opts: opts}
}

// Synthesize generates an answer to the question grounded on the retrieved
// chunks. With no chunks it either refuses or answers from general knowledge,
// depending on the configured policy; it never returns an error for an empty
// context.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, results domain.RetrievalResult) (*Answer, error) {
	if question == "" {
		return nil, fmt.Errorf("%w: question must not be empty", domain.ErrInvalidArgument)
	}

	if len(results) == 0 {
		return s.answerWithoutContext(ctx, question)
	}

	included := s.fitContextBudget(results)
	contextBlock := buildContext(included)

	messages := []Message{
		{Role: "system", Content: groundedSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("%s\n\nQuestion: %s", contextBlock, question)},
	}

	text, err := s.llm.Complete(ctx, messages, CompletionOptions{
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &Answer{Text: text, Sources: included, Grounded: true}, nil
}

// answerWithoutContext applies the empty-context policy.
func (s *Synthesizer) answerWithoutContext(ctx context.Context, question string) (*Answer, error) {
	if s.opts.EmptyContext == config.EmptyContextRefuse {
		return &Answer{Text: RefusalAnswer}, nil
	}

	log.Debug("Answering from general knowledge", "policy", s.opts.EmptyContext)

	messages := []Message{
		{Role: "system", Content: generalSystemPrompt},
		{Role: "user", Content: question},
	}

	text, err := s.llm.Complete(ctx, messages, CompletionOptions{
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &Answer{
		Text: "No document context was found, so this answer comes from general knowledge.\n\n" + text,
	}, nil
}

// fitContextBudget drops lowest-ranked chunks until the total text fits
// MaxContextChars (measured in runes, matching the chunker). The top-ranked
// chunk is always kept, truncated if needed.
func (s *Synthesizer) fitContextBudget(results domain.RetrievalResult) domain.RetrievalResult {
	var total int
	for i, sc := range results {
		total += utf8.RuneCountInString(sc.Chunk.Text)
		if total > s.opts.MaxContextChars {
			if i == 0 {
				truncated := results[0]
				runes := []rune(truncated.Chunk.Text)
				truncated.Chunk.Text = string(runes[:s.opts.MaxContextChars])
				log.Debug("Truncated top chunk to fit context budget", "budget", s.opts.MaxContextChars)
				return domain.RetrievalResult{truncated}
			}
			log.Debug("Dropped chunks to fit context budget", "kept", i, "dropped", len(results)-i)
			return results[:i]
		}
	}
	return results
}

// buildContext creates the document context block sent to the model.
func buildContext(results domain.RetrievalResult) string {
	var sb strings.Builder

	sb.WriteString("Here are the relevant excerpts from the user's documents:\n\n")

	for i, sc := range results {
		sb.WriteString(fmt.Sprintf("--- Excerpt [%d] from %s ---\n", i+1, sc.Chunk.SourceID))
		sb.WriteString(sc.Chunk.Text)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// System prompt for grounded answers.
const groundedSystemPrompt = `You are a helpful assistant. Your name is Ragoût.

You answer questions about documents the user has uploaded. Relevant excerpts
from those documents are provided with each question.

Rules:
1. Use ONLY factual information from the provided excerpts
2. Quote the passage that supports your answer, citing it as [Excerpt N]
3. Name the source document when it matters
4. If the excerpts do not contain enough information to answer, say "I don't know"
5. Be thorough and detailed

Format your answer in markdown when appropriate.`

// System prompt when no document context exists.
const generalSystemPrompt = `You are a helpful assistant. Your name is Ragoût.

The user has not uploaded any documents relevant to this question, so answer
from general knowledge. Be accurate and concise, and say so when you are
unsure.`
