// Package fsdir provides storage ports backed by a directory of JSON
// files: one file per schema document plus a repository file. This
// mirrors the flat bucket layout used by object-storage deployments, so
// a bucket can be synced to disk and used directly. The backend has no
// branching concept; every storage context maps to the same directory.
package fsdir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mkowalczyk/schemasync/domain/param"
	"github.com/mkowalczyk/schemasync/domain/schemadoc"
	"github.com/mkowalczyk/schemasync/ports"
)

// DefaultRepoFile is the repository filename when none is configured.
const DefaultRepoFile = "repo.json"

// Store implements both storage ports over a directory.
type Store struct {
	dir      string
	repoFile string
}

// New creates a store rooted at dir. The directory is created if absent.
// repoFile names the repository file inside dir; empty means
// DefaultRepoFile.
func New(dir, repoFile string) (*Store, error) {
	if repoFile == "" {
		repoFile = DefaultRepoFile
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{dir: dir, repoFile: repoFile}, nil
}

// List returns the names of all document files, sorted. The repository
// file is not a document and is excluded.
func (s *Store) List(ctx context.Context, sc ports.StorageContext) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || name == s.repoFile {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Read loads one document by filename.
func (s *Store) Read(ctx context.Context, name string, sc ports.StorageContext) (schemadoc.Document, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", name, err)
	}

	var doc schemadoc.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", name, err)
	}
	return doc, nil
}

// Write stores a document, replacing any previous file. Writes go
// through a temp file and rename so a crash never leaves a torn
// document behind. The change note is ignored; directories keep no
// history.
func (s *Store) Write(ctx context.Context, name string, doc schemadoc.Document, sc ports.StorageContext, message string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document %s: %w", name, err)
	}
	return s.writeFile(filepath.Base(name), data)
}

// ReadRepository loads the repository file. Missing reads as empty.
func (s *Store) ReadRepository(ctx context.Context, sc ports.StorageContext) (param.Repository, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, s.repoFile))
	if errors.Is(err, fs.ErrNotExist) {
		return param.Repository{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read repository: %w", err)
	}

	var repo param.Repository
	if err := json.Unmarshal(data, &repo); err != nil {
		return nil, fmt.Errorf("decode repository: %w", err)
	}
	return repo.Clean(), nil
}

// WriteRepository stores the full repository file.
func (s *Store) WriteRepository(ctx context.Context, repo param.Repository, sc ports.StorageContext, message string) error {
	data, err := json.MarshalIndent(repo, "", "  ")
	if err != nil {
		return fmt.Errorf("encode repository: %w", err)
	}
	return s.writeFile(s.repoFile, data)
}

func (s *Store) writeFile(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// RepoStore adapts the store to ports.RepositoryStore.
type RepoStore struct {
	store *Store
}

// Repository returns the repository-store view of the directory.
func (s *Store) Repository() *RepoStore { return &RepoStore{store: s} }

// Read loads the repository file.
func (r *RepoStore) Read(ctx context.Context, sc ports.StorageContext) (param.Repository, error) {
	return r.store.ReadRepository(ctx, sc)
}

// Write stores the repository file.
func (r *RepoStore) Write(ctx context.Context, repo param.Repository, sc ports.StorageContext, message string) error {
	return r.store.WriteRepository(ctx, repo, sc, message)
}

var (
	_ ports.DocumentStore   = (*Store)(nil)
	_ ports.RepositoryStore = (*RepoStore)(nil)
)
