package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/docsight/backend/internal/corpus"
	"github.com/docsight/backend/pkg/logger"
)

// BuildError reports a failed index construction. Construction failure is
// fatal: callers must not fall back to answering without grounding.
type BuildError struct {
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("index build failed: %v", e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Embedder is the slice of the LLM client the index needs.
type Embedder interface {
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Record is one embedded chunk held by the index.
type Record struct {
	DocumentID string
	ChunkID    string
	Seq        int
	Text       string
	Vector     []float32
}

// Match is a search hit with its cosine similarity score.
type Match struct {
	Record Record
	Score  float32
}

// Options configures index construction.
type Options struct {
	SentencesPerChunk int
	OverlapSentences  int
	EmbedBatchSize    int
}

// Index is an in-memory similarity index over embedded document chunks.
// It is immutable after Build, which makes concurrent Search calls from
// multiple sessions safe without locking. There is no partial update path:
// a stale index is replaced by building a fresh one.
type Index struct {
	dim     int
	records []Record
}

// Build chunks every document, embeds the chunks and assembles the index.
// Construction is expensive (network calls per batch) and is intended to run
// at most once per process lifetime; see Manager.
func Build(ctx context.Context, docs []corpus.Document, embedder Embedder, opts Options) (*Index, error) {
	if len(docs) == 0 {
		return nil, &BuildError{Err: fmt.Errorf("no documents to index")}
	}

	start := time.Now()
	chunker := NewChunker(opts.SentencesPerChunk, opts.OverlapSentences)

	var chunks []Chunk
	for _, doc := range docs {
		docChunks, err := chunker.Chunk(doc)
		if err != nil {
			return nil, &BuildError{Err: err}
		}
		chunks = append(chunks, docChunks...)
	}

	if len(chunks) == 0 {
		return nil, &BuildError{Err: fmt.Errorf("corpus produced no chunks")}
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	batchSize := opts.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 64
	}

	var vectors [][]float32
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := embedder.GenerateBatchEmbeddings(ctx, texts[i:end])
		if err != nil {
			return nil, &BuildError{Err: err}
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(chunks) {
		return nil, &BuildError{Err: fmt.Errorf("embedding count mismatch: got %d, expected %d", len(vectors), len(chunks))}
	}

	dim := len(vectors[0])
	records := make([]Record, len(chunks))
	for i, ch := range chunks {
		if len(vectors[i]) != dim {
			return nil, &BuildError{Err: fmt.Errorf("inconsistent embedding dimension at chunk %d", i)}
		}
		records[i] = Record{
			DocumentID: ch.DocumentID,
			ChunkID:    ch.ChunkID,
			Seq:        ch.Seq,
			Text:       ch.Text,
			Vector:     normalize(vectors[i]),
		}
	}

	logger.Info("Vector index built",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(records)),
		zap.Int("dimension", dim),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Index{dim: dim, records: records}, nil
}

// Search returns the top-k records by cosine similarity, descending.
func (ix *Index) Search(vector []float32, k int) []Match {
	if k <= 0 || len(ix.records) == 0 {
		return nil
	}

	query := normalize(vector)

	matches := make([]Match, len(ix.records))
	for i, rec := range ix.records {
		matches[i] = Match{Record: rec, Score: dot(rec.Vector, query)}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k]
}

func (ix *Index) Len() int { return len(ix.records) }

func (ix *Index) Dimension() int { return ix.dim }

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
