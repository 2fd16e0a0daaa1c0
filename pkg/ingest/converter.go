// Package ingest turns uploaded files into user-scoped, embedded fragments.
//
// The pipeline degrades instead of failing: a file that cannot be converted
// still produces one fragment explaining why, so a later retrieval for that
// filename never comes back silently empty.
package ingest

import "context"

// Document is the structured result of converting a file.
type Document struct {
	// Title is a human-readable document title, usually derived from the
	// first heading or the filename.
	Title string
	// Sections holds the document text split at structural boundaries, in
	// original order. A converter that finds no structure returns a single
	// section.
	Sections []Section
}

// Section is one structural unit of a converted document.
type Section struct {
	Heading string
	Text    string
}

// Chunk is one retrieval-sized piece of a document.
type Chunk struct {
	Text string
}

// Converter turns a file into a structured document and splits it into
// retrieval-sized chunks.
type Converter interface {
	// Convert parses the file at path into a structured document.
	Convert(ctx context.Context, path string) (*Document, error)
	// Chunk splits a converted document into ordered chunks.
	Chunk(ctx context.Context, doc *Document) ([]Chunk, error)
}

// Contextualizer optionally enriches a chunk with surrounding-document
// context before it is embedded. Converters that can situate a chunk within
// the document (section headings, title) implement this alongside Converter.
type Contextualizer interface {
	// Contextualize returns the chunk text enriched with document context.
	Contextualize(ctx context.Context, doc *Document, chunk Chunk) (string, error)
}
