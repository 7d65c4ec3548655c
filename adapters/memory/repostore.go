package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mkowalczyk/schemasync/domain/param"
	"github.com/mkowalczyk/schemasync/ports"
)

// RepositoryStore is an in-memory implementation of ports.RepositoryStore.
type RepositoryStore struct {
	mu    sync.RWMutex
	repos map[ports.StorageContext]param.Repository
}

// NewRepositoryStore creates an empty in-memory repository store.
func NewRepositoryStore() *RepositoryStore {
	return &RepositoryStore{
		repos: make(map[ports.StorageContext]param.Repository),
	}
}

// Read loads the repository. A missing repository reads as empty.
func (s *RepositoryStore) Read(ctx context.Context, sc ports.StorageContext) (param.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repo, ok := s.repos[sc]
	if !ok {
		return param.Repository{}, nil
	}
	return cloneRepo(repo), nil
}

// Write stores the full repository. The change note is ignored.
func (s *RepositoryStore) Write(ctx context.Context, repo param.Repository, sc ports.StorageContext, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.repos[sc] = cloneRepo(repo)
	return nil
}

// cloneRepo deep-copies via the wire codec; repositories are small and
// this keeps the copy in lockstep with the JSON shape.
func cloneRepo(repo param.Repository) param.Repository {
	data, err := json.Marshal(repo)
	if err != nil {
		// Parameter marshaling cannot fail for decoded repositories.
		panic(err)
	}
	var out param.Repository
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	if out == nil {
		out = param.Repository{}
	}
	return out
}

var _ ports.RepositoryStore = (*RepositoryStore)(nil)
