// Package document turns resource files into indexable documents.
//
// Each supported file type has a Processor that reads one file and
// emits one or more Documents with metadata describing their origin.
// The Registry dispatches on file extension; files with unsupported
// extensions are skipped by the caller, and a failing file never
// aborts an indexing batch.
package document

import "context"

// Document is one indexable chunk of content extracted from a resource
// file. Metadata values are strings so they survive the round trip
// through the vector store and back into prompt context.
type Document struct {
	Content  string
	Metadata map[string]string
}

// Processor converts a single resource file into documents.
type Processor interface {
	Process(ctx context.Context, path string) ([]Document, error)
}
