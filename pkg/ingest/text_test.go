package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewTextConverter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := NewTextConverter(TextConverterConfig{})
		require.NoError(t, err)
		assert.Equal(t, 500, c.minChunkSize)
		assert.Equal(t, 1000, c.maxChunkSize)
		assert.Equal(t, 50, c.overlap)
	})

	t.Run("min exceeds max", func(t *testing.T) {
		_, err := NewTextConverter(TextConverterConfig{MinChunkSize: 2000, MaxChunkSize: 1000})
		require.Error(t, err)
	})

	t.Run("overlap too large", func(t *testing.T) {
		_, err := NewTextConverter(TextConverterConfig{MaxChunkSize: 100, Overlap: 100})
		require.Error(t, err)
	})
}

func TestConvertPlainText(t *testing.T) {
	c, err := NewTextConverter(TextConverterConfig{})
	require.NoError(t, err)

	path := writeTestFile(t, "notes.txt", "line one\nline two\n")

	doc, err := c.Convert(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "notes.txt", doc.Title)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "line one\nline two", doc.Sections[0].Text)
	assert.Empty(t, doc.Sections[0].Heading)
}

func TestConvertMarkdownSections(t *testing.T) {
	c, err := NewTextConverter(TextConverterConfig{})
	require.NoError(t, err)

	content := "# Title\nintro text\n## Details\nmore text\n"
	path := writeTestFile(t, "doc.md", content)

	doc, err := c.Convert(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Title", doc.Title)
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "Title", doc.Sections[0].Heading)
	assert.Equal(t, "intro text", doc.Sections[0].Text)
	assert.Equal(t, "Details", doc.Sections[1].Heading)
	assert.Equal(t, "more text", doc.Sections[1].Text)
}

func TestConvertRejectsBinary(t *testing.T) {
	c, err := NewTextConverter(TextConverterConfig{})
	require.NoError(t, err)

	path := writeTestFile(t, "image.bin", "PNG\x00\x01\x02 binary junk")

	_, err = c.Convert(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "readable text")
}

func TestConvertMissingFile(t *testing.T) {
	c, err := NewTextConverter(TextConverterConfig{})
	require.NoError(t, err)

	_, err = c.Convert(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}

func TestChunkSplitsLongSections(t *testing.T) {
	c, err := NewTextConverter(TextConverterConfig{MinChunkSize: 10, MaxChunkSize: 100, Overlap: 5})
	require.NoError(t, err)

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("a reasonably sized line of text\n")
	}
	doc := &Document{Sections: []Section{{Text: b.String()}}}

	chunks, err := c.Chunk(context.Background(), doc)
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.NotEmpty(t, ch.Text)
		// A chunk may exceed max by at most one line plus overlap
		assert.LessOrEqual(t, len(ch.Text), 100+40)
	}
}

func TestChunkNilDocument(t *testing.T) {
	c, err := NewTextConverter(TextConverterConfig{})
	require.NoError(t, err)

	_, err = c.Chunk(context.Background(), nil)
	require.Error(t, err)
}

func TestChunkShortSectionKept(t *testing.T) {
	c, err := NewTextConverter(TextConverterConfig{})
	require.NoError(t, err)

	doc := &Document{Sections: []Section{{Text: "tiny"}}}

	chunks, err := c.Chunk(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "tiny", chunks[0].Text)
}

func TestContextualize(t *testing.T) {
	c, err := NewTextConverter(TextConverterConfig{})
	require.NoError(t, err)
	ctx := context.Background()

	doc := &Document{
		Title: "Manual",
		Sections: []Section{
			{Heading: "Setup", Text: "install the thing first"},
		},
	}

	t.Run("chunk in a headed section", func(t *testing.T) {
		got, err := c.Contextualize(ctx, doc, Chunk{Text: "install the thing first"})
		require.NoError(t, err)
		assert.Equal(t, "Manual > Setup\ninstall the thing first", got)
	})

	t.Run("nil document passes through", func(t *testing.T) {
		got, err := c.Contextualize(ctx, nil, Chunk{Text: "bare"})
		require.NoError(t, err)
		assert.Equal(t, "bare", got)
	})
}
