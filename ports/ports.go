// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/mkowalczyk/schemasync/domain/param"
	"github.com/mkowalczyk/schemasync/domain/schemadoc"
)

// ErrNotFound is returned by stores when a document or repository does
// not exist in the requested context.
var ErrNotFound = errors.New("not found")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Storage Ports
// -----------------------------------------------------------------------------

// StorageContext selects which branch or version of storage an operation
// targets. Backends without a branching concept treat every context as
// the default one.
type StorageContext struct {
	Branch string
}

// DefaultContext is the implicit context for branch-less backends.
var DefaultContext = StorageContext{}

// DocumentStore persists schema documents. Implementations must scope
// every failure to the single document it concerns; batch semantics are
// built on top by the application layer.
type DocumentStore interface {
	// List returns the names of all documents in the context.
	List(ctx context.Context, sc StorageContext) ([]string, error)

	// Read loads one document by name. Returns ErrNotFound if absent.
	Read(ctx context.Context, name string, sc StorageContext) (schemadoc.Document, error)

	// Write stores a document under name. The message is an optional
	// change note for backends that record history; others ignore it.
	Write(ctx context.Context, name string, doc schemadoc.Document, sc StorageContext, message string) error
}

// RepositoryStore persists the parameter repository as a whole.
type RepositoryStore interface {
	// Read loads the repository. A missing repository reads as empty,
	// not as an error.
	Read(ctx context.Context, sc StorageContext) (param.Repository, error)

	// Write stores the full repository.
	Write(ctx context.Context, repo param.Repository, sc StorageContext, message string) error
}
