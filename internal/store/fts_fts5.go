//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/docomatic/docomatic/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS sections_fts USING fts5(
			heading,
			body,
			content = 'sections',
			content_rowid = 'rowid',
			tokenize = 'unicode61 remove_diacritics 2'
		);

		CREATE TRIGGER IF NOT EXISTS sections_fts_ai AFTER INSERT ON sections BEGIN
			INSERT INTO sections_fts (rowid, heading, body)
			VALUES (new.rowid, new.heading, new.body);
		END;

		CREATE TRIGGER IF NOT EXISTS sections_fts_ad AFTER DELETE ON sections BEGIN
			INSERT INTO sections_fts (sections_fts, rowid, heading, body)
			VALUES ('delete', old.rowid, old.heading, old.body);
		END;

		CREATE TRIGGER IF NOT EXISTS sections_fts_au AFTER UPDATE OF heading, body ON sections BEGIN
			INSERT INTO sections_fts (sections_fts, rowid, heading, body)
			VALUES ('delete', old.rowid, old.heading, old.body);
			INSERT INTO sections_fts (rowid, heading, body)
			VALUES (new.rowid, new.heading, new.body);
		END;
	`)
	return err
}

// SearchSections performs an FTS5 full-text search over section headings
// and bodies, ranked by bm25 with section id as deterministic tiebreak.
func (db *DB) SearchSections(ctx context.Context, query, documentID string, limit, offset int) ([]models.Section, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT s.id, s.document_id, s.parent_section_id, s.heading, s.body,
		       s.order_index, s.metadata, s.version, s.created_at, s.updated_at
		FROM sections_fts f
		JOIN sections s ON s.rowid = f.rowid
		WHERE sections_fts MATCH ?`
	args := []any{query}
	if documentID != "" {
		q += ` AND s.document_id = ?`
		args = append(args, documentID)
	}
	q += ` ORDER BY bm25(sections_fts), s.id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: search sections: %w", err)
	}
	return collectSections(rows)
}
