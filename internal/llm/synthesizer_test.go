package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragout/ragout/internal/config"
	"github.com/ragout/ragout/internal/domain"
)

// fakeLLM records the last prompt and returns a fixed completion.
type fakeLLM struct {
	lastMessages []Message
	response     string
	calls        int
}

func (f *fakeLLM) Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	f.calls++
	f.lastMessages = messages
	return f.response, nil
}

func (f *fakeLLM) Provider() Provider { return "fake" }
func (f *fakeLLM) ModelName() string  { return "fake-model" }

func scoredChunk(source, text string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{Namespace: "alice", SourceID: source, Text: text},
		Score: score,
	}
}

func TestSynthesizeGroundedAnswer(t *testing.T) {
	fake := &fakeLLM{response: "grounded answer"}
	s := NewSynthesizer(fake, DefaultSynthesizerOptions())

	results := domain.RetrievalResult{
		scoredChunk("recipe.pdf", "simmer the stew for two hours", 0.9),
		scoredChunk("recipe.pdf", "season with thyme", 0.7),
	}

	answer, err := s.Synthesize(context.Background(), "how long to simmer?", results)
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", answer.Text)
	assert.True(t, answer.Grounded)
	assert.Len(t, answer.Sources, 2)

	require.Len(t, fake.lastMessages, 2)
	assert.Equal(t, "system", fake.lastMessages[0].Role)

	user := fake.lastMessages[1].Content
	assert.Contains(t, user, "simmer the stew for two hours")
	assert.Contains(t, user, "Excerpt [1] from recipe.pdf")
	assert.Contains(t, user, "Question: how long to simmer?")
}

func TestSynthesizeValidatesQuestion(t *testing.T) {
	s := NewSynthesizer(&fakeLLM{}, DefaultSynthesizerOptions())

	_, err := s.Synthesize(context.Background(), "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSynthesizeEmptyContextRefuses(t *testing.T) {
	fake := &fakeLLM{response: "should not be called"}
	opts := DefaultSynthesizerOptions()
	opts.EmptyContext = config.EmptyContextRefuse
	s := NewSynthesizer(fake, opts)

	answer, err := s.Synthesize(context.Background(), "anything?", nil)
	require.NoError(t, err)
	assert.Equal(t, RefusalAnswer, answer.Text)
	assert.False(t, answer.Grounded)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, 0, fake.calls)
}

func TestSynthesizeEmptyContextGeneral(t *testing.T) {
	fake := &fakeLLM{response: "from general knowledge"}
	opts := DefaultSynthesizerOptions()
	opts.EmptyContext = config.EmptyContextGeneral
	s := NewSynthesizer(fake, opts)

	answer, err := s.Synthesize(context.Background(), "what is a roux?", nil)
	require.NoError(t, err)
	assert.Contains(t, answer.Text, "from general knowledge")
	assert.Contains(t, answer.Text, "No document context was found")
	assert.False(t, answer.Grounded)
	assert.Equal(t, 1, fake.calls)
}

func TestSynthesizeContextBudgetDropsLowestRanked(t *testing.T) {
	fake := &fakeLLM{response: "ok"}
	opts := DefaultSynthesizerOptions()
	opts.MaxContextChars = 25
	s := NewSynthesizer(fake, opts)

	results := domain.RetrievalResult{
		scoredChunk("a.txt", strings.Repeat("x", 20), 0.9),
		scoredChunk("a.txt", strings.Repeat("y", 20), 0.5),
	}

	answer, err := s.Synthesize(context.Background(), "q", results)
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, 0.9, answer.Sources[0].Score)
	assert.NotContains(t, fake.lastMessages[1].Content, "y")
}

func TestSynthesizeContextBudgetTruncatesTopChunk(t *testing.T) {
	fake := &fakeLLM{response: "ok"}
	opts := DefaultSynthesizerOptions()
	opts.MaxContextChars = 10
	s := NewSynthesizer(fake, opts)

	results := domain.RetrievalResult{
		scoredChunk("a.txt", strings.Repeat("z", 50), 0.9),
	}

	answer, err := s.Synthesize(context.Background(), "q", results)
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Len(t, answer.Sources[0].Chunk.Text, 10)
}
