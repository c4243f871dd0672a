// Package store is a thin adapter over the external document store. The
// rest of the service depends only on get/set/merge and equality queries;
// there are no transactions across documents, so callers mutating shared
// array fields must re-read the document immediately before merging.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Store is the document-store surface the orchestrator depends on.
// Documents are JSON values addressed by (collection, id). Query supports
// equality predicates on top-level fields only.
type Store interface {
	// Get decodes the document into out, which must be a pointer.
	Get(ctx context.Context, collection, id string, out any) error
	// Set writes the full document, creating or replacing it.
	Set(ctx context.Context, collection, id string, doc any) error
	// Merge shallow-merges partial into an existing document's top-level
	// fields. Returns ErrNotFound if the document does not exist.
	Merge(ctx context.Context, collection, id string, partial map[string]any) error
	// Query decodes all documents matching every equality predicate into
	// out, which must be a pointer to a slice.
	Query(ctx context.Context, collection string, eq map[string]any, out any) error
}
