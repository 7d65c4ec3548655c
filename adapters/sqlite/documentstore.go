package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mkowalczyk/schemasync/domain/schemadoc"
	"github.com/mkowalczyk/schemasync/ports"
)

// DocumentStore is a SQLite implementation of ports.DocumentStore.
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a document store on an open database.
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// List returns the names of all documents in the context, sorted.
func (s *DocumentStore) List(ctx context.Context, sc ports.StorageContext) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM documents WHERE branch = ? ORDER BY name", sc.Branch)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan document name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Read loads one document by name.
func (s *DocumentStore) Read(ctx context.Context, name string, sc ports.StorageContext) (schemadoc.Document, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		"SELECT content FROM documents WHERE branch = ? AND name = ?", sc.Branch, name).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", name, err)
	}

	var doc schemadoc.Document
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", name, err)
	}
	return doc, nil
}

// Write stores a document, replacing any previous content.
func (s *DocumentStore) Write(ctx context.Context, name string, doc schemadoc.Document, sc ports.StorageContext, message string) error {
	content, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", name, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (branch, name, content, message, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (branch, name) DO UPDATE SET
			content = excluded.content,
			message = excluded.message,
			updated_at = CURRENT_TIMESTAMP
	`, sc.Branch, name, string(content), message)
	if err != nil {
		return fmt.Errorf("write document %s: %w", name, err)
	}
	return nil
}

var _ ports.DocumentStore = (*DocumentStore)(nil)
