package index

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsight/backend/internal/corpus"
)

func sentenceDoc(id string, n int) corpus.Document {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "This is sentence number %d. ", i)
	}
	return corpus.Document{ID: id, SourcePath: id + ".txt", RawText: b.String()}
}

func TestChunkShortDocument(t *testing.T) {
	c := NewChunker(5, 1)

	chunks, err := c.Chunk(sentenceDoc("doc1", 3))
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "doc1", chunks[0].DocumentID)
	assert.Equal(t, "doc1_chunk_0", chunks[0].ChunkID)
	assert.Equal(t, 0, chunks[0].Seq)
}

func TestChunkOverlap(t *testing.T) {
	c := NewChunker(3, 1)

	chunks, err := c.Chunk(sentenceDoc("doc1", 7))
	require.NoError(t, err)
	require.True(t, len(chunks) >= 2)

	// The first sentence of each chunk repeats the tail of the previous one.
	for i := 1; i < len(chunks); i++ {
		first := chunks[i].Text
		if idx := strings.Index(first, "."); idx >= 0 {
			first = first[:idx+1]
		}
		assert.Contains(t, chunks[i-1].Text, first,
			"chunk %d should start with the overlap sentence", i)
	}

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Seq)
		assert.Equal(t, fmt.Sprintf("doc1_chunk_%d", i), ch.ChunkID)
	}
}

func TestChunkEmptyDocument(t *testing.T) {
	c := NewChunker(5, 1)

	chunks, err := c.Chunk(corpus.Document{ID: "empty", RawText: "   "})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkUnsegmentableTextFallsBack(t *testing.T) {
	c := NewChunker(5, 1)

	chunks, err := c.Chunk(corpus.Document{ID: "raw", RawText: "no punctuation just words"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "no punctuation just words", chunks[0].Text)
}

func TestNewChunkerClampsOverlap(t *testing.T) {
	c := NewChunker(2, 5)

	chunks, err := c.Chunk(sentenceDoc("doc1", 6))
	require.NoError(t, err)
	// Overlap clamped below window size, so chunking must terminate.
	assert.True(t, len(chunks) > 1)
}
