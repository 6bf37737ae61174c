package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsight/backend/internal/corpus"
	"github.com/docsight/backend/internal/index"
)

type stubGenerator struct {
	condensed       string
	answer          string
	condenseErr     error
	answerErr       error
	condenseCalls   int
	lastTranscript  string
	lastAnswerQuery string
	lastContext     string
}

func (s *stubGenerator) Condense(_ context.Context, transcript, question string) (string, error) {
	s.condenseCalls++
	s.lastTranscript = transcript
	if s.condenseErr != nil {
		return "", s.condenseErr
	}
	if s.condensed != "" {
		return s.condensed, nil
	}
	return question, nil
}

func (s *stubGenerator) Answer(_ context.Context, question, contextText string) (string, error) {
	s.lastAnswerQuery = question
	s.lastContext = contextText
	if s.answerErr != nil {
		return "", s.answerErr
	}
	return s.answer, nil
}

type stubQueryEmbedder struct {
	calls int
	err   error
}

func (s *stubQueryEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

type batchEmbedder struct{}

func (batchEmbedder) GenerateBatchEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1, 0}
	}
	return out, nil
}

type mapCache struct {
	data map[string][]float32
	hits int
	sets int
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]float32{}} }

func (c *mapCache) GetEmbedding(_ context.Context, key string) ([]float32, bool) {
	v, ok := c.data[key]
	if ok {
		c.hits++
	}
	return v, ok
}

func (c *mapCache) SetEmbedding(_ context.Context, key string, vector []float32) {
	c.sets++
	c.data[key] = vector
}

func testManager(t *testing.T) *index.Manager {
	t.Helper()
	docs := []corpus.Document{
		{ID: "d1", SourcePath: "d1.txt", RawText: "The widget comes in blue and green."},
		{ID: "d2", SourcePath: "d2.txt", RawText: "Shipping takes five business days."},
	}
	m := index.NewManager(func(ctx context.Context) (*index.Index, error) {
		return index.Build(ctx, docs, batchEmbedder{}, index.Options{})
	})
	_, err := m.Get(context.Background())
	require.NoError(t, err)
	return m
}

func TestRespondFirstTurnSkipsCondense(t *testing.T) {
	gen := &stubGenerator{answer: "It comes in blue."}
	engine := NewEngine(gen, &stubQueryEmbedder{}, testManager(t), 2)

	resp, next, err := engine.Respond(context.Background(), NewHistory("hi"), "What colors are available?")
	require.NoError(t, err)

	assert.Equal(t, 0, gen.condenseCalls)
	assert.Equal(t, "What colors are available?", resp.Condensed)
	assert.Equal(t, "It comes in blue.", resp.Answer)
	assert.Equal(t, 3, next.Len())

	last, _ := next.Last()
	assert.Equal(t, RoleAssistant, last.Role)
	assert.Equal(t, "It comes in blue.", last.Content)
}

func TestRespondFollowUpCondensesWithTranscript(t *testing.T) {
	gen := &stubGenerator{condensed: "What colors does the widget come in?", answer: "Blue and green."}
	engine := NewEngine(gen, &stubQueryEmbedder{}, testManager(t), 2)

	history := NewHistory("hi").
		Append(RoleUser, "Tell me about the widget.").
		Append(RoleAssistant, "It is our flagship product.")

	resp, next, err := engine.Respond(context.Background(), history, "what colors?")
	require.NoError(t, err)

	assert.Equal(t, 1, gen.condenseCalls)
	assert.Contains(t, gen.lastTranscript, "Tell me about the widget.")
	assert.Equal(t, "What colors does the widget come in?", resp.Condensed)
	assert.Equal(t, "What colors does the widget come in?", gen.lastAnswerQuery)
	assert.Equal(t, 5, next.Len())

	// User turn keeps the original utterance, not the condensed one.
	turns := next.Turns()
	assert.Equal(t, "what colors?", turns[3].Content)
	assert.Equal(t, RoleUser, turns[3].Role)
}

func TestRespondTurnCountInvariant(t *testing.T) {
	gen := &stubGenerator{answer: "answer"}
	engine := NewEngine(gen, &stubQueryEmbedder{}, testManager(t), 2)

	history := NewHistory("hi")
	for n := 1; n <= 4; n++ {
		var err error
		_, history, err = engine.Respond(context.Background(), history, "question")
		require.NoError(t, err)
		assert.Equal(t, 2*n+1, history.Len())
	}
}

func TestRespondGenerationFailureLeavesHistoryUntouched(t *testing.T) {
	gen := &stubGenerator{answerErr: errors.New("model overloaded")}
	engine := NewEngine(gen, &stubQueryEmbedder{}, testManager(t), 2)

	history := NewHistory("hi").
		Append(RoleUser, "first").
		Append(RoleAssistant, "reply")

	_, next, err := engine.Respond(context.Background(), history, "second")
	require.Error(t, err)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "generate", genErr.Stage)

	assert.Equal(t, history.Turns(), next.Turns())
}

func TestRespondCondenseFailure(t *testing.T) {
	gen := &stubGenerator{condenseErr: errors.New("timeout")}
	engine := NewEngine(gen, &stubQueryEmbedder{}, testManager(t), 2)

	history := NewHistory("hi").
		Append(RoleUser, "first").
		Append(RoleAssistant, "reply")

	_, next, err := engine.Respond(context.Background(), history, "follow up")
	require.Error(t, err)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "condense", genErr.Stage)
	assert.Equal(t, history.Len(), next.Len())
}

func TestRespondEmbedFailure(t *testing.T) {
	gen := &stubGenerator{answer: "unused"}
	engine := NewEngine(gen, &stubQueryEmbedder{err: errors.New("embedding down")}, testManager(t), 2)

	_, next, err := engine.Respond(context.Background(), NewHistory("hi"), "question")
	require.Error(t, err)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "embed", genErr.Stage)
	assert.Equal(t, 1, next.Len())
}

func TestRespondRejectsEmptyMessage(t *testing.T) {
	gen := &stubGenerator{}
	engine := NewEngine(gen, &stubQueryEmbedder{}, testManager(t), 2)

	_, _, err := engine.Respond(context.Background(), NewHistory("hi"), "   ")
	require.Error(t, err)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "validate", genErr.Stage)
}

func TestRespondUsesEmbeddingCache(t *testing.T) {
	gen := &stubGenerator{answer: "cached answer"}
	embedder := &stubQueryEmbedder{}
	cache := newMapCache()
	engine := NewEngine(gen, embedder, testManager(t), 2).WithCache(cache)

	_, _, err := engine.Respond(context.Background(), NewHistory("hi"), "same question")
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, 1, cache.sets)

	_, _, err = engine.Respond(context.Background(), NewHistory("hi"), "same question")
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, 1, cache.hits)
}

func TestRespondSourcesReferenceIndex(t *testing.T) {
	gen := &stubGenerator{answer: "answer"}
	engine := NewEngine(gen, &stubQueryEmbedder{}, testManager(t), 2)

	resp, _, err := engine.Respond(context.Background(), NewHistory("hi"), "question")
	require.NoError(t, err)

	require.Len(t, resp.Sources, 2)
	for _, src := range resp.Sources {
		assert.Contains(t, []string{"d1", "d2"}, src.DocumentID)
	}
	assert.Contains(t, gen.lastContext, "[1]")
}
