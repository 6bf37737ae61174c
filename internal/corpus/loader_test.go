package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", []byte("Alpha document content."))
	writeFile(t, dir, "nested/deeper/b.md", []byte("Beta document content."))

	docs, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	texts := []string{docs[0].RawText, docs[1].RawText}
	assert.Contains(t, texts, "Alpha document content.")
	assert.Contains(t, texts, "Beta document content.")
}

func TestLoadSkipsEmptyAndBinary(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "real.txt", []byte("Real content here."))
	writeFile(t, dir, "empty.txt", []byte("   \n\t"))
	writeFile(t, dir, "blob.bin", []byte{0x00, 0x01, 0x02, 0xff})

	docs, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Real content here.", docs[0].RawText)
}

func TestLoadHTMLStripsMarkup(t *testing.T) {
	dir := t.TempDir()
	html := `<html><head><style>body{color:red}</style></head>
<body><nav>menu</nav><p>Visible product text.</p><script>alert(1)</script></body></html>`
	writeFile(t, dir, "page.html", []byte(html))

	docs, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Contains(t, docs[0].RawText, "Visible product text.")
	assert.NotContains(t, docs[0].RawText, "alert")
	assert.NotContains(t, docs[0].RawText, "menu")
	assert.NotContains(t, docs[0].RawText, "color:red")
}

func TestLoadMissingDir(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)

	var loadErr *LoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestLoadEmptyCorpusFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "blank.txt", []byte(""))

	_, err := Load(dir)
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, dir, loadErr.Dir)
}

func TestLoadDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", []byte("Second file."))
	writeFile(t, dir, "a.txt", []byte("First file."))

	first, err := Load(dir)
	require.NoError(t, err)
	second, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].SourcePath, second[i].SourcePath)
	}
	// Lexical walk order: a.txt before b.txt.
	assert.Equal(t, "First file.", first[0].RawText)
}
