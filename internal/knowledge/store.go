package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
)

// Sentinel errors returned by Store operations.
var (
	// ErrCollectionNotFound indicates the named collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrLengthMismatch indicates the parallel document/metadata/id slices
	// passed to Add have different lengths.
	ErrLengthMismatch = errors.New("documents, metadatas and ids must have equal length")
)

// queryTimeout bounds a single vector search, including the query
// embedding call, to prevent long-running searches from blocking.
const queryTimeout = 10 * time.Second

// embedBatchSize caps how many documents go into a single embedding
// request during Add.
const embedBatchSize = 64

// CollectionRow is the raw storage form of a collection as the Querier
// sees it. Metadata is JSONB bytes.
type CollectionRow struct {
	Name     string
	Metadata []byte
}

// DocumentRow is the raw storage form of a document as the Querier sees
// it. Metadata is JSONB bytes; Embedding may be zero-valued in results
// from sampling queries that do not select it.
type DocumentRow struct {
	ID        string
	Content   string
	Metadata  []byte
	Embedding pgvector.Vector
}

// Querier defines the database operations Store depends on.
// Following Go best practices the interface is defined by the consumer,
// not the provider, so Store depends on an abstraction rather than a
// concrete pool. Tests substitute a mock; production uses PGQuerier.
type Querier interface {
	// UpsertCollection creates the collection or updates its metadata.
	UpsertCollection(ctx context.Context, name string, metadata []byte) error

	// GetCollection returns the collection row, or pgx.ErrNoRows-wrapped
	// ErrCollectionNotFound when absent.
	GetCollection(ctx context.Context, name string) (CollectionRow, error)

	// DeleteCollection removes the collection and, via cascade, its
	// documents. Returns whether a collection was actually deleted.
	DeleteCollection(ctx context.Context, name string) (bool, error)

	// ListCollections returns all collections ordered by name.
	ListCollections(ctx context.Context) ([]CollectionRow, error)

	// UpsertDocuments inserts or replaces documents in a collection.
	UpsertDocuments(ctx context.Context, collection string, rows []DocumentRow) error

	// SearchDocuments returns the limit nearest documents to the
	// embedding by cosine distance, nearest first.
	SearchDocuments(ctx context.Context, collection string, embedding pgvector.Vector, limit int) ([]DocumentRow, error)

	// SampleDocuments returns up to limit documents in insertion order.
	SampleDocuments(ctx context.Context, collection string, limit int) ([]DocumentRow, error)

	// CountDocuments counts documents in a collection.
	CountDocuments(ctx context.Context, collection string) (int64, error)
}

// Store manages named collections of embedded documents.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store over the given querier and embedder.
//
// Example (production):
//
//	store := knowledge.New(knowledge.NewPGQuerier(pool), embedder, logger)
//
// Example (testing):
//
//	store := knowledge.New(mockQuerier, mockEmbedder, log.NewNop())
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// GetOrCreateCollection returns a handle to the named collection,
// creating it (with the given metadata) when it does not exist yet.
// When the collection already exists its metadata is replaced.
func (s *Store) GetOrCreateCollection(ctx context.Context, name string, metadata map[string]string) (*Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name must not be empty")
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal collection metadata: %w", err)
	}

	if err := s.queries.UpsertCollection(ctx, name, metadataJSON); err != nil {
		return nil, fmt.Errorf("failed to create collection %q: %w", name, err)
	}

	s.logger.Debug("collection ready", "collection", name)
	return &Collection{name: name, store: s}, nil
}

// GetCollection returns a handle to an existing collection without
// creating it. Returns ErrCollectionNotFound when absent.
func (s *Store) GetCollection(ctx context.Context, name string) (*Collection, error) {
	if _, err := s.queries.GetCollection(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to get collection %q: %w", name, err)
	}
	return &Collection{name: name, store: s}, nil
}

// DeleteCollection removes the collection and all of its documents.
// Deleting a collection that does not exist is not an error; re-indexing
// starts with a delete regardless of prior state.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	deleted, err := s.queries.DeleteCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", name, err)
	}

	if deleted {
		s.logger.Debug("deleted collection", "collection", name)
	}
	return nil
}

// ListCollections returns all stored collections ordered by name.
func (s *Store) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	rows, err := s.queries.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	infos := make([]CollectionInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, CollectionInfo{
			Name:     row.Name,
			Metadata: s.parseMetadata(row.Name, row.Metadata),
		})
	}
	return infos, nil
}

// Collection is a handle to one named collection inside a Store.
// Handles are cheap; they carry no state beyond the name.
//
// Collection is safe for concurrent use by multiple goroutines.
type Collection struct {
	name  string
	store *Store
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Add embeds and stores documents. The three slices are parallel:
// documents[i] is stored under ids[i] with metadatas[i]. Existing ids
// are replaced. Embeddings are generated in batches, so a single Add of
// a large corpus makes a handful of embedder calls rather than one per
// document.
func (c *Collection) Add(ctx context.Context, documents []string, metadatas []map[string]string, ids []string) error {
	if len(documents) != len(metadatas) || len(documents) != len(ids) {
		return fmt.Errorf("%w: %d documents, %d metadatas, %d ids",
			ErrLengthMismatch, len(documents), len(metadatas), len(ids))
	}
	if len(documents) == 0 {
		return nil
	}

	for start := 0; start < len(documents); start += embedBatchSize {
		end := min(start+embedBatchSize, len(documents))

		vectors, err := c.store.embed(ctx, documents[start:end])
		if err != nil {
			return fmt.Errorf("failed to embed documents: %w", err)
		}

		rows := make([]DocumentRow, 0, end-start)
		for i := start; i < end; i++ {
			metadataJSON, err := json.Marshal(orEmpty(metadatas[i]))
			if err != nil {
				return fmt.Errorf("failed to marshal metadata for %q: %w", ids[i], err)
			}
			rows = append(rows, DocumentRow{
				ID:        ids[i],
				Content:   documents[i],
				Metadata:  metadataJSON,
				Embedding: vectors[i-start],
			})
		}

		if err := c.store.queries.UpsertDocuments(ctx, c.name, rows); err != nil {
			return fmt.Errorf("failed to store documents in %q: %w", c.name, err)
		}
	}

	c.store.logger.Debug("added documents", "collection", c.name, "count", len(documents))
	return nil
}

// Query runs a similarity search and returns the k nearest documents,
// nearest first, as parallel content/metadata slices. An empty
// collection yields an empty result, not an error.
func (c *Collection) Query(ctx context.Context, text string, k int) (QueryResult, error) {
	if k <= 0 {
		return QueryResult{}, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	vectors, err := c.store.embed(queryCtx, []string{text})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return QueryResult{}, fmt.Errorf("query embedding timeout: %w", err)
		}
		return QueryResult{}, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := c.store.queries.SearchDocuments(queryCtx, c.name, vectors[0], k)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return QueryResult{}, fmt.Errorf("search query timeout: %w", err)
		}
		return QueryResult{}, fmt.Errorf("search failed in %q: %w", c.name, err)
	}

	result := QueryResult{
		Documents: make([]string, 0, len(rows)),
		Metadatas: make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		result.Documents = append(result.Documents, row.Content)
		result.Metadatas = append(result.Metadatas, c.store.parseMetadata(row.ID, row.Metadata))
	}
	return result, nil
}

// Get returns up to limit documents in insertion order, without a
// similarity query. Useful for summarizing what the collection holds.
func (c *Collection) Get(ctx context.Context, limit int) (Sample, error) {
	if limit <= 0 {
		return Sample{}, nil
	}

	rows, err := c.store.queries.SampleDocuments(ctx, c.name, limit)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to sample %q: %w", c.name, err)
	}

	sample := Sample{
		Documents: make([]string, 0, len(rows)),
		Metadatas: make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		sample.Documents = append(sample.Documents, row.Content)
		sample.Metadatas = append(sample.Metadatas, c.store.parseMetadata(row.ID, row.Metadata))
	}
	return sample, nil
}

// Count returns the number of documents in the collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	count, err := c.store.queries.CountDocuments(ctx, c.name)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents in %q: %w", c.name, err)
	}
	return int(count), nil
}

// embed generates one vector per input text through the configured
// embedder, preserving order.
func (s *Store) embed(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	input := make([]*ai.Document, len(texts))
	for i, text := range texts {
		input[i] = &ai.Document{Content: []*ai.Part{ai.NewTextPart(text)}}
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: input})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	vectors := make([]pgvector.Vector, len(texts))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding returned for input %d", i)
		}
		vectors[i] = pgvector.NewVector(emb.Embedding)
	}
	return vectors, nil
}

// parseMetadata unmarshals JSONB metadata, degrading to an empty map on
// corruption so a single bad row cannot break a whole result set.
func (s *Store) parseMetadata(id string, raw []byte) map[string]string {
	var metadata map[string]string
	if err := json.Unmarshal(raw, &metadata); err != nil {
		s.logger.Warn("failed to parse metadata", "document_id", id, "error", err)
		return map[string]string{}
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	return metadata
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
