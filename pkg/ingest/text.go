package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// TextConverter handles plain-text and markdown files. It splits markdown at
// headings so chunks can be contextualized with the section they came from.
type TextConverter struct {
	minChunkSize int
	maxChunkSize int
	overlap      int
}

// TextConverterConfig holds converter configuration.
type TextConverterConfig struct {
	MinChunkSize int // defaults to 500
	MaxChunkSize int // defaults to 1000
	Overlap      int // defaults to 50
}

// NewTextConverter creates a text converter.
func NewTextConverter(cfg TextConverterConfig) (*TextConverter, error) {
	minSize := cfg.MinChunkSize
	if minSize <= 0 {
		minSize = 500
	}
	maxSize := cfg.MaxChunkSize
	if maxSize <= 0 {
		maxSize = 1000
	}
	overlap := cfg.Overlap
	if overlap <= 0 {
		overlap = 50
	}
	if minSize > maxSize {
		return nil, fmt.Errorf("min chunk size %d exceeds max %d", minSize, maxSize)
	}
	if overlap >= maxSize {
		return nil, fmt.Errorf("overlap %d must be smaller than max chunk size %d", overlap, maxSize)
	}

	return &TextConverter{
		minChunkSize: minSize,
		maxChunkSize: maxSize,
		overlap:      overlap,
	}, nil
}

// Convert reads the file and splits it into sections at markdown headings.
// Binary content is rejected so a garbled PDF or image does not end up stored
// as memory text.
func (c *TextConverter) Convert(_ context.Context, path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if isBinary(content) {
		return nil, fmt.Errorf("file %s does not contain readable text", filepath.Base(path))
	}

	doc := &Document{Title: filepath.Base(path)}

	var current Section
	flush := func() {
		if strings.TrimSpace(current.Text) != "" {
			current.Text = strings.TrimSpace(current.Text)
			doc.Sections = append(doc.Sections, current)
		}
	}

	for _, line := range strings.Split(string(content), "\n") {
		if heading, ok := markdownHeading(line); ok {
			flush()
			current = Section{Heading: heading}
			if len(doc.Sections) == 0 && doc.Title == filepath.Base(path) {
				doc.Title = heading
			}
			continue
		}
		current.Text += line + "\n"
	}
	flush()

	return doc, nil
}

// Chunk splits each section into pieces between the configured minimum and
// maximum sizes, carrying a small overlap between consecutive chunks so
// sentences cut at a boundary stay retrievable from both sides.
func (c *TextConverter) Chunk(_ context.Context, doc *Document) ([]Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}

	var chunks []Chunk
	for _, section := range doc.Sections {
		for _, text := range c.split(section.Text) {
			chunks = append(chunks, Chunk{Text: text})
		}
	}
	return chunks, nil
}

// Contextualize prefixes the chunk with the document title and the heading of
// the section it belongs to, when one matches.
func (c *TextConverter) Contextualize(_ context.Context, doc *Document, chunk Chunk) (string, error) {
	if doc == nil {
		return chunk.Text, nil
	}

	var parts []string
	if doc.Title != "" {
		parts = append(parts, doc.Title)
	}
	for _, section := range doc.Sections {
		if section.Heading != "" && strings.Contains(section.Text, firstLine(chunk.Text)) {
			if section.Heading != doc.Title {
				parts = append(parts, section.Heading)
			}
			break
		}
	}
	if len(parts) == 0 {
		return chunk.Text, nil
	}
	return strings.Join(parts, " > ") + "\n" + chunk.Text, nil
}

func (c *TextConverter) split(text string) []string {
	var out []string
	var current strings.Builder

	for _, line := range strings.Split(text, "\n") {
		lineLen := len(line) + 1

		if current.Len() > 0 && current.Len()+lineLen > c.maxChunkSize {
			out = append(out, strings.TrimSpace(current.String()))

			prev := current.String()
			current.Reset()
			if len(prev) > c.overlap {
				current.WriteString(prev[len(prev)-c.overlap:])
			}
		}

		current.WriteString(line)
		current.WriteString("\n")
	}

	if current.Len() >= c.minChunkSize || len(out) == 0 {
		if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func markdownHeading(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	heading := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
	if heading == "" {
		return "", false
	}
	return heading, true
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

// isBinary reports whether content looks like binary data rather than text.
func isBinary(content []byte) bool {
	if bytes.IndexByte(content, 0) >= 0 {
		return true
	}
	sample := content
	if len(sample) > 8000 {
		sample = sample[:8000]
		// Back off a partial rune cut at the sample boundary.
		for i := 0; i < utf8.UTFMax-1 && len(sample) > 0 && !utf8.Valid(sample); i++ {
			sample = sample[:len(sample)-1]
		}
	}
	return !utf8.Valid(sample)
}
