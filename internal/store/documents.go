package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/docomatic/docomatic/internal/models"
)

// CreateDocument inserts a document and any initial sections within one
// transaction. Section order and parentage are taken as given; the service
// layer validates them first.
func (db *DB) CreateDocument(ctx context.Context, doc models.Document, sections []models.Section) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, title, metadata, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
	`, doc.ID, doc.Title, metaJSON(doc.Meta), doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert document: %w", err)
	}

	if len(sections) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sections (id, document_id, parent_section_id, heading, body, order_index, metadata, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("store: prepare section insert: %w", err)
		}
		defer stmt.Close()
		for _, s := range sections {
			if _, err := stmt.ExecContext(ctx, s.ID, doc.ID, nullStr(s.ParentID),
				s.Heading, s.Body, s.OrderIndex, metaJSON(s.Meta), s.CreatedAt, s.UpdatedAt); err != nil {
				return fmt.Errorf("store: insert initial section: %w", err)
			}
		}
	}

	return tx.Commit()
}

// GetDocument returns the document with the given id, or nil when absent.
func (db *DB) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var (
		d    models.Document
		meta string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, title, metadata, version, created_at, updated_at
		FROM documents WHERE id = ?
	`, id).Scan(&d.ID, &d.Title, &meta, &d.Version, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get document: %w", err)
	}
	d.Meta = parseMeta(meta)
	return &d, nil
}

// UpdateDocument writes title and metadata with an optimistic version
// check. doc.Version is the version the caller read; a mismatch returns
// ErrVersionConflict.
func (db *DB) UpdateDocument(ctx context.Context, doc models.Document) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE documents
		SET title = ?, metadata = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, doc.Title, metaJSON(doc.Meta), doc.UpdatedAt, doc.ID, doc.Version)
	if err != nil {
		return fmt.Errorf("store: update document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update document: %w", err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// DeleteDocument removes a document. Sections and links cascade through
// foreign keys; FTS rows follow via triggers in FTS5-enabled builds.
func (db *DB) DeleteDocument(ctx context.Context, id string) (bool, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("store: delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: delete document: %w", err)
	}
	return n > 0, nil
}

// ListDocuments returns paginated documents with an optional
// case-insensitive title substring filter, newest first, plus the total
// match count.
func (db *DB) ListDocuments(ctx context.Context, titlePattern string, limit, offset int) ([]models.DocumentListItem, int, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	like := "%" + titlePattern + "%"

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM documents WHERE title LIKE ?`, like).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count documents: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, created_at, updated_at
		FROM documents
		WHERE title LIKE ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, like, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var out []models.DocumentListItem
	for rows.Next() {
		var d models.DocumentListItem
		if err := rows.Scan(&d.ID, &d.Title, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}
