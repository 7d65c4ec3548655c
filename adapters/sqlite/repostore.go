package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mkowalczyk/schemasync/domain/param"
	"github.com/mkowalczyk/schemasync/ports"
)

// RepositoryStore is a SQLite implementation of ports.RepositoryStore.
type RepositoryStore struct {
	db *DB
}

// NewRepositoryStore creates a repository store on an open database.
func NewRepositoryStore(db *DB) *RepositoryStore {
	return &RepositoryStore{db: db}
}

// Read loads the repository for the context. A missing row reads as an
// empty repository: a fresh branch starts with no parameters.
func (s *RepositoryStore) Read(ctx context.Context, sc ports.StorageContext) (param.Repository, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		"SELECT content FROM repository WHERE branch = ?", sc.Branch).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return param.Repository{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read repository: %w", err)
	}

	var repo param.Repository
	if err := json.Unmarshal([]byte(content), &repo); err != nil {
		return nil, fmt.Errorf("decode repository: %w", err)
	}
	return repo.Clean(), nil
}

// Write stores the full repository for the context.
func (s *RepositoryStore) Write(ctx context.Context, repo param.Repository, sc ports.StorageContext, message string) error {
	content, err := json.Marshal(repo)
	if err != nil {
		return fmt.Errorf("encode repository: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO repository (branch, content, message, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (branch) DO UPDATE SET
			content = excluded.content,
			message = excluded.message,
			updated_at = CURRENT_TIMESTAMP
	`, sc.Branch, string(content), message)
	if err != nil {
		return fmt.Errorf("write repository: %w", err)
	}
	return nil
}

var _ ports.RepositoryStore = (*RepositoryStore)(nil)
