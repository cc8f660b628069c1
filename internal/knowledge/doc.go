// Package knowledge provides the vector store for indexed learning content.
//
// The store keeps documents in PostgreSQL with the pgvector extension.
// Content is grouped into named collections; each document carries its
// text, an embedding generated by the configured AI embedder, and string
// metadata describing its origin (source file, content type, page or
// chunk position).
//
// # Architecture
//
// Document storage and retrieval flow:
//
//	Document (content + metadata)
//	     |
//	     v
//	Embedding Generation (via AI Embedder)
//	     |
//	     v
//	Vector Storage (PostgreSQL + pgvector)
//	     |
//	     | (when searching)
//	     v
//	Query Embedding
//	     |
//	     v
//	Vector Similarity Search
//	     |
//	     v
//	Ranked Documents (nearest first)
//
// The package is layered for testability:
//
//   - Store manages collections (get-or-create, delete, list)
//   - Collection adds documents and runs similarity queries
//   - Querier abstracts the SQL layer so tests can substitute mocks
//
// # Database Backend
//
// Requires PostgreSQL 14+ with pgvector 0.5.0+. Schema lives under
// db/migrations and is applied with golang-migrate:
//
//	collections table:
//	    name        TEXT PRIMARY KEY
//	    metadata    JSONB
//	    created_at  TIMESTAMPTZ
//
//	documents table:
//	    collection  TEXT REFERENCES collections ON DELETE CASCADE
//	    id          TEXT
//	    content     TEXT NOT NULL
//	    embedding   vector(768)
//	    metadata    JSONB
//	    created_at  TIMESTAMPTZ
//	    PRIMARY KEY (collection, id)
//
// # Security Considerations
//
// All SQL uses parameterized pgx queries; metadata is always marshaled
// with json.Marshal before storage. User input never reaches the query
// text directly.
//
// # Thread Safety
//
// Store, Collection, and the pgx-backed Querier are all safe for
// concurrent use by multiple goroutines.
package knowledge
