// Package memory provides in-memory implementations of the storage
// ports, used in tests and as the default backend when no persistent
// storage is configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mkowalczyk/schemasync/domain/schemadoc"
	"github.com/mkowalczyk/schemasync/ports"
)

// DocumentStore is an in-memory implementation of ports.DocumentStore.
// Documents are kept per storage context so branch-aware callers can be
// tested against it.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[ports.StorageContext]map[string]schemadoc.Document
}

// NewDocumentStore creates an empty in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs: make(map[ports.StorageContext]map[string]schemadoc.Document),
	}
}

// List returns the sorted names of all documents in the context.
func (s *DocumentStore) List(ctx context.Context, sc ports.StorageContext) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.docs[sc]))
	for name := range s.docs[sc] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Read loads one document by name.
func (s *DocumentStore) Read(ctx context.Context, name string, sc ports.StorageContext) (schemadoc.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[sc][name]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return doc.Clone(), nil
}

// Write stores a document under name. The change note is ignored.
func (s *DocumentStore) Write(ctx context.Context, name string, doc schemadoc.Document, sc ports.StorageContext, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docs[sc] == nil {
		s.docs[sc] = make(map[string]schemadoc.Document)
	}
	s.docs[sc][name] = doc.Clone()
	return nil
}

var _ ports.DocumentStore = (*DocumentStore)(nil)
