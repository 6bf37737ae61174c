package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docsight/backend/internal/index"
	"github.com/docsight/backend/internal/metrics"
	"github.com/docsight/backend/pkg/logger"
	"github.com/docsight/backend/pkg/utils"
)

// GenerationError reports a failed attempt to produce an assistant turn. The
// turn that triggered it is not recorded: history stays exactly as it was
// before the attempt.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("turn generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator is the slice of the LLM client the engine needs for text.
type Generator interface {
	Condense(ctx context.Context, transcript, question string) (string, error)
	Answer(ctx context.Context, question, contextText string) (string, error)
}

// Embedder turns the condensed query into a vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingCache is an optional read-through cache for query embeddings.
// Misses and cache errors are equivalent: the engine just embeds again.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, key string) ([]float32, bool)
	SetEmbedding(ctx context.Context, key string, vector []float32)
}

// Source identifies a retrieved chunk that grounded an answer.
type Source struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Score      float32 `json:"score"`
}

// Response is the outcome of one successful turn.
type Response struct {
	Answer    string
	Condensed string
	Context   string
	Sources   []Source
}

// Engine runs the condense-retrieve-generate loop for a single turn.
type Engine struct {
	generator Generator
	embedder  Embedder
	indexes   *index.Manager
	cache     EmbeddingCache
	topK      int
}

func NewEngine(generator Generator, embedder Embedder, indexes *index.Manager, topK int) *Engine {
	if topK <= 0 {
		topK = 4
	}
	return &Engine{
		generator: generator,
		embedder:  embedder,
		indexes:   indexes,
		topK:      topK,
	}
}

// WithCache attaches an embedding cache. Safe to skip entirely.
func (e *Engine) WithCache(cache EmbeddingCache) *Engine {
	e.cache = cache
	return e
}

// Respond runs one turn: condense the utterance against the history, retrieve
// grounding chunks, generate an answer, then append both the user turn and the
// assistant turn. On any error the returned History equals the input History.
func (e *Engine) Respond(ctx context.Context, history History, utterance string) (*Response, History, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, history, &GenerationError{Stage: "validate", Err: fmt.Errorf("empty message")}
	}

	start := time.Now()

	condensed := utterance
	if history.HasUserTurn() {
		condenseStart := time.Now()
		rewritten, err := e.generator.Condense(ctx, history.Transcript(), utterance)
		if err != nil {
			return nil, history, &GenerationError{Stage: "condense", Err: err}
		}
		metrics.CondenseDuration.Observe(time.Since(condenseStart).Seconds())
		condensed = rewritten
	}

	vector, err := e.embedQuery(ctx, condensed)
	if err != nil {
		return nil, history, &GenerationError{Stage: "embed", Err: err}
	}

	idx, err := e.indexes.Get(ctx)
	if err != nil {
		return nil, history, err
	}

	matches := idx.Search(vector, e.topK)

	contextText := formatContext(matches)
	answer, err := e.generator.Answer(ctx, condensed, contextText)
	if err != nil {
		return nil, history, &GenerationError{Stage: "generate", Err: err}
	}

	sources := make([]Source, len(matches))
	for i, m := range matches {
		sources[i] = Source{
			DocumentID: m.Record.DocumentID,
			ChunkID:    m.Record.ChunkID,
			Score:      m.Score,
		}
	}

	next := history.Append(RoleUser, utterance).Append(RoleAssistant, answer)

	logger.Info("Turn completed",
		zap.Int("retrieved_chunks", len(matches)),
		zap.Int("history_turns", next.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Response{
		Answer:    answer,
		Condensed: condensed,
		Context:   contextText,
		Sources:   sources,
	}, next, nil
}

func (e *Engine) embedQuery(ctx context.Context, condensed string) ([]float32, error) {
	key := utils.HashString(condensed)

	if e.cache != nil {
		if vector, ok := e.cache.GetEmbedding(ctx, key); ok {
			metrics.CacheHits.WithLabelValues("embedding").Inc()
			return vector, nil
		}
		metrics.CacheMisses.WithLabelValues("embedding").Inc()
	}

	vector, err := e.embedder.GenerateEmbedding(ctx, condensed)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.SetEmbedding(ctx, key, vector)
	}

	return vector, nil
}

func formatContext(matches []index.Match) string {
	if len(matches) == 0 {
		return "(no relevant context found)"
	}

	var b strings.Builder
	for i, m := range matches {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, m.Record.Text)
	}
	return b.String()
}
