//go:build !sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/docomatic/docomatic/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; full-text search uses LIKE over heading and body.
	return nil
}

// SearchSections performs a case-insensitive substring search over section
// headings and bodies (fallback when FTS5 is not compiled in). Results are
// ordered newest first with section id as deterministic tiebreak.
func (db *DB) SearchSections(ctx context.Context, query, documentID string, limit, offset int) ([]models.Section, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	like := "%" + query + "%"

	q := `
		SELECT ` + sectionCols + `
		FROM sections
		WHERE (heading LIKE ? OR body LIKE ?)`
	args := []any{like, like}
	if documentID != "" {
		q += ` AND document_id = ?`
		args = append(args, documentID)
	}
	q += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: search sections: %w", err)
	}
	return collectSections(rows)
}
