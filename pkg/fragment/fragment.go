// Package fragment defines the atomic unit of stored memory and the
// vector-store interface it is persisted through. A Fragment is an embedded,
// user-scoped, immutable piece of text: either one side of a conversational
// turn or one chunk of an ingested document.
package fragment

import "fmt"

// Source identifies what kind of text a fragment holds.
const (
	SourceUser      = "user"
	SourceAssistant = "assistant"
	SourceDocument  = "document"
)

// Metadata carries the user-scoping and ordering fields attached to every
// fragment. UserID is required and immutable; Timestamp is set for
// conversational fragments only (zero means absent, which sorts first);
// Filename and ChunkIndex are set for document fragments.
type Metadata struct {
	UserID     string
	Timestamp  float64 // unix seconds
	Filename   string
	ChunkIndex int
	Source     string
	Error      string // conversion failure reason, set on fallback fragments
}

// Fragment is one stored memory entry. ID is assigned by the store at write
// time; Vector must match the store's configured dimension.
type Fragment struct {
	ID     string
	Text   string
	Vector []float32
	Meta   Metadata
}

// NewUserTurn builds the fragment for the user side of a conversational turn.
func NewUserTurn(userID, text string, ts float64) Fragment {
	return Fragment{
		Text: "user: " + text,
		Meta: Metadata{
			UserID:    userID,
			Timestamp: ts,
			Source:    SourceUser,
		},
	}
}

// NewAssistantTurn builds the fragment for the assistant side of a turn.
func NewAssistantTurn(userID, text string, ts float64) Fragment {
	return Fragment{
		Text: "assistant: " + text,
		Meta: Metadata{
			UserID:    userID,
			Timestamp: ts,
			Source:    SourceAssistant,
		},
	}
}

// NewDocumentChunk builds a fragment for one chunk of an ingested file.
// Indices are dense and 0-based within a single ingestion run.
func NewDocumentChunk(userID, filename string, index int, text string) Fragment {
	return Fragment{
		Text: text,
		Meta: Metadata{
			UserID:     userID,
			Filename:   filename,
			ChunkIndex: index,
			Source:     SourceDocument,
		},
	}
}

// NewConversionFailure builds the placeholder fragment written when a file
// could not be converted at all, so retrieval still surfaces the upload.
func NewConversionFailure(userID, filename, reason string) Fragment {
	return Fragment{
		Text: fmt.Sprintf("Document %s could not be processed: %s", filename, reason),
		Meta: Metadata{
			UserID:     userID,
			Filename:   filename,
			ChunkIndex: 0,
			Source:     SourceDocument,
			Error:      reason,
		},
	}
}

// NewEmptyExtraction builds the placeholder fragment written when conversion
// succeeded but no usable text survived chunking.
func NewEmptyExtraction(userID, filename string) Fragment {
	return Fragment{
		Text: fmt.Sprintf("Document %s was processed, but no text could be extracted. It may contain only images.", filename),
		Meta: Metadata{
			UserID:     userID,
			Filename:   filename,
			ChunkIndex: 0,
			Source:     SourceDocument,
		},
	}
}
