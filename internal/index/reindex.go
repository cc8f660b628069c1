package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sabia-ai/sabia/internal/document"
	"github.com/sabia-ai/sabia/internal/knowledge"
)

// Collection is the slice of the vector store the reindexer writes to.
type Collection interface {
	Add(ctx context.Context, documents []string, metadatas []map[string]string, ids []string) error
}

// Store is the collection-management surface the reindexer needs.
type Store interface {
	GetOrCreateCollection(ctx context.Context, name string, metadata map[string]string) (Collection, error)
	DeleteCollection(ctx context.Context, name string) error
}

// KnowledgeStore adapts *knowledge.Store to the Store interface.
type KnowledgeStore struct {
	Store *knowledge.Store
}

// GetOrCreateCollection implements Store.
func (k KnowledgeStore) GetOrCreateCollection(ctx context.Context, name string, metadata map[string]string) (Collection, error) {
	return k.Store.GetOrCreateCollection(ctx, name, metadata)
}

// DeleteCollection implements Store.
func (k KnowledgeStore) DeleteCollection(ctx context.Context, name string) error {
	return k.Store.DeleteCollection(ctx, name)
}

// Reindexer rebuilds the vector collection from the resources directory
// when the fingerprint changed.
type Reindexer struct {
	store      Store
	registry   *document.Registry
	collection string
	resources  string
	statePath  string
	logger     *slog.Logger
}

// NewReindexer wires a Reindexer.
func NewReindexer(store Store, registry *document.Registry, collectionName, resourcesDir, statePath string, logger *slog.Logger) *Reindexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reindexer{
		store:      store,
		registry:   registry,
		collection: collectionName,
		resources:  resourcesDir,
		statePath:  statePath,
		logger:     logger,
	}
}

// Result summarizes a Run.
type Result struct {
	Reindexed bool // false when the fingerprint matched and nothing was done
	Documents int  // documents inserted (0 is valid: state is still saved)
	Skipped   int  // files that failed processing and were skipped
}

// Run compares the resource fingerprint against the persisted one and
// rebuilds the collection on mismatch: delete the old collection, create
// a fresh one, process every supported file, bulk-insert the documents,
// then persist the new fingerprint. The fingerprint is only saved after
// the insert succeeded, so a failed rebuild is retried on the next Run.
//
// A file that fails to process is logged and skipped; it never aborts
// the batch. Zero processed documents still leaves a fresh empty
// collection and saves the state.
func (r *Reindexer) Run(ctx context.Context, force bool) (Result, error) {
	current, err := ComputeState(r.resources)
	if err != nil {
		return Result{}, err
	}

	if !force && !NeedsReindex(current, LoadState(r.statePath)) {
		r.logger.Debug("resources unchanged, skipping reindex", "files", len(current))
		return Result{}, nil
	}

	ctx, span := otel.Tracer("sabia/index").Start(ctx, "index.Run",
		trace.WithAttributes(attribute.Int("index.files", len(current))))
	defer span.End()

	r.logger.Info("reindexing resources", "dir", r.resources, "files", len(current))

	if err := r.store.DeleteCollection(ctx, r.collection); err != nil {
		return Result{}, fmt.Errorf("failed to delete collection: %w", err)
	}

	coll, err := r.store.GetOrCreateCollection(ctx, r.collection, map[string]string{
		"description": "Adaptive learning content collection",
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to create collection: %w", err)
	}

	docs, skipped := r.processAll(ctx)

	if len(docs) > 0 {
		contents := make([]string, len(docs))
		metadatas := make([]map[string]string, len(docs))
		ids := make([]string, len(docs))
		for i, doc := range docs {
			contents[i] = doc.Content
			metadatas[i] = doc.Metadata
			ids[i] = uuid.NewString()
		}
		if err := coll.Add(ctx, contents, metadatas, ids); err != nil {
			return Result{}, fmt.Errorf("failed to index documents: %w", err)
		}
	}

	if err := SaveState(r.statePath, current); err != nil {
		return Result{}, fmt.Errorf("failed to persist index state: %w", err)
	}

	r.logger.Info("reindex complete", "documents", len(docs), "skipped", skipped)
	return Result{Reindexed: true, Documents: len(docs), Skipped: skipped}, nil
}

// processAll runs the processors over every supported file in the
// resources directory, in name order so document order is stable.
func (r *Reindexer) processAll(ctx context.Context) (docs []document.Document, skipped int) {
	entries, err := os.ReadDir(r.resources)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Error("failed to read resources directory", "dir", r.resources, "error", err)
		}
		return nil, 0
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		processor, ok := r.registry.ForPath(name)
		if !ok {
			r.logger.Info("skipping unsupported file type", "file", name)
			continue
		}

		fileDocs, err := processor.Process(ctx, filepath.Join(r.resources, name))
		if err != nil {
			r.logger.Error("failed to process file", "file", name, "error", err)
			skipped++
			continue
		}
		docs = append(docs, fileDocs...)
	}
	return docs, skipped
}
