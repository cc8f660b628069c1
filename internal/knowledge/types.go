package knowledge

import "time"

// VectorDimension is the embedding width stored in the documents table.
// It must match the vector(N) column in db/migrations and the output
// dimensionality requested from the embedder.
const VectorDimension = 768

// Document represents a single piece of indexed content.
// Metadata is map[string]string so every value round-trips cleanly
// through JSONB and back into prompt context.
type Document struct {
	ID        string            // Unique within its collection
	Content   string            // Document text content
	Metadata  map[string]string // Origin info (source, type, page, chunk)
	CreatedAt time.Time         // Indexing timestamp
}

// QueryResult holds similarity search results as parallel slices,
// nearest document first. Documents[i] and Metadatas[i] describe the
// same stored document.
type QueryResult struct {
	Documents []string
	Metadatas []map[string]string
}

// Sample is a peek at stored content without a similarity query,
// in insertion order. Used to summarize what a collection contains.
type Sample struct {
	Documents []string
	Metadatas []map[string]string
}

// CollectionInfo describes a stored collection.
type CollectionInfo struct {
	Name     string
	Metadata map[string]string
}
