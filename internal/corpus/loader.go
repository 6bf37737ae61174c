package corpus

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/docsight/backend/pkg/logger"
	"github.com/docsight/backend/pkg/utils"
)

// Document is one normalized unit of source text loaded from the corpus.
// Documents are immutable once loaded.
type Document struct {
	ID         string
	SourcePath string
	RawText    string
	Metadata   map[string]string
}

// LoadError reports a failed corpus load. Loading a missing or empty
// directory is fatal to startup: the index must never be built on zero
// documents.
type LoadError struct {
	Dir string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("corpus load failed for %s: %v", e.Dir, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

var whitespaceRe = regexp.MustCompile(`\s+`)

// Load recursively reads every readable text file under dir into a Document.
// The walk order is deterministic (filepath.WalkDir is lexical), so loading
// the same directory twice yields the same document set.
func Load(dir string) ([]Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Dir: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &LoadError{Dir: dir, Err: fmt.Errorf("not a directory")}
	}

	var docs []Document

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Skipping unreadable corpus file",
				zap.String("path", path),
				zap.Error(err),
			)
			return nil
		}

		text := decode(path, data)
		if strings.TrimSpace(text) == "" {
			logger.Debug("Skipping empty corpus file", zap.String("path", path))
			return nil
		}

		docs = append(docs, Document{
			ID:         utils.HashString(path),
			SourcePath: path,
			RawText:    text,
			Metadata: map[string]string{
				"source_path": path,
				"file_name":   d.Name(),
			},
		})
		return nil
	})
	if err != nil {
		return nil, &LoadError{Dir: dir, Err: err}
	}

	if len(docs) == 0 {
		return nil, &LoadError{Dir: dir, Err: fmt.Errorf("no readable documents found")}
	}

	logger.Info("Corpus loaded",
		zap.String("dir", dir),
		zap.Int("documents", len(docs)),
	)

	return docs, nil
}

// decode turns file bytes into plain text. HTML files are stripped to their
// visible text; anything that does not look like text is dropped.
func decode(path string, data []byte) string {
	if bytes.ContainsRune(data, 0) || !utf8.Valid(data) {
		return ""
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return htmlToText(data)
	default:
		return string(data)
	}
}

func htmlToText(data []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}

	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
