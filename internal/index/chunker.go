package index

import (
	"fmt"
	"strings"

	prose "github.com/jdkato/prose/v2"

	"github.com/docsight/backend/internal/corpus"
)

// Chunk is a slice of one source document. Every chunk points back at exactly
// one Document through DocumentID.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Seq        int
	Text       string
}

// Chunker splits documents into overlapping sentence windows.
type Chunker struct {
	sentencesPerChunk int
	overlapSentences  int
}

func NewChunker(sentencesPerChunk, overlapSentences int) *Chunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &Chunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
	}
}

func (c *Chunker) Chunk(doc corpus.Document) ([]Chunk, error) {
	sentences, err := splitSentences(doc.RawText)
	if err != nil {
		return nil, fmt.Errorf("failed to segment document %s: %w", doc.SourcePath, err)
	}
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []Chunk
	i := 0
	seq := 0
	for i < len(sentences) {
		end := i + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}

		text := strings.Join(sentences[i:end], " ")
		chunks = append(chunks, Chunk{
			DocumentID: doc.ID,
			ChunkID:    fmt.Sprintf("%s_chunk_%d", doc.ID, seq),
			Seq:        seq,
			Text:       text,
		})

		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
		seq++
	}

	return chunks, nil
}

func splitSentences(text string) ([]string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}

	doc, err := prose.NewDocument(trimmed,
		prose.WithSegmentation(true),
		prose.WithTokenization(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, err
	}

	raw := doc.Sentences()
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		t := strings.TrimSpace(s.Text)
		if t != "" {
			sentences = append(sentences, t)
		}
	}

	if len(sentences) == 0 {
		sentences = []string{trimmed}
	}

	return sentences, nil
}
