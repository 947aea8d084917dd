package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/docomatic/docomatic/internal/models"
)

const linkCols = `id, document_id, section_id, system, target, metadata, created_at, updated_at`

func scanLink(row interface{ Scan(...any) error }) (*models.Link, error) {
	var (
		l       models.Link
		section sql.NullString
		meta    string
	)
	err := row.Scan(&l.ID, &l.DocumentID, &section, &l.System, &l.Target,
		&meta, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.SectionID = strPtr(section)
	l.Meta = parseMeta(meta)
	return &l, nil
}

func collectLinks(rows *sql.Rows) ([]models.Link, error) {
	defer rows.Close()
	var out []models.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// CreateLink inserts a link within one transaction. A link with the same
// owner, system, and target returns ErrDuplicateLink; duplicate creation
// is rejected rather than treated as an upsert.
func (db *DB) CreateLink(ctx context.Context, link models.Link) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var dup int
	if link.SectionID != nil {
		err = tx.QueryRowContext(ctx, `
			SELECT count(*) FROM links
			WHERE section_id = ? AND system = ? AND target = ?
		`, *link.SectionID, link.System, link.Target).Scan(&dup)
	} else {
		err = tx.QueryRowContext(ctx, `
			SELECT count(*) FROM links
			WHERE document_id = ? AND section_id IS NULL AND system = ? AND target = ?
		`, link.DocumentID, link.System, link.Target).Scan(&dup)
	}
	if err != nil {
		return fmt.Errorf("store: check duplicate link: %w", err)
	}
	if dup > 0 {
		return ErrDuplicateLink
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO links (`+linkCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, link.ID, link.DocumentID, nullStr(link.SectionID), link.System, link.Target,
		metaJSON(link.Meta), link.CreatedAt, link.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert link: %w", err)
	}
	return tx.Commit()
}

// GetLink returns the link with the given id, or nil when absent.
func (db *DB) GetLink(ctx context.Context, id string) (*models.Link, error) {
	l, err := scanLink(db.conn.QueryRowContext(ctx,
		`SELECT `+linkCols+` FROM links WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get link: %w", err)
	}
	return l, nil
}

// DeleteLink removes a link by id.
func (db *DB) DeleteLink(ctx context.Context, id string) (bool, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("store: delete link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: delete link: %w", err)
	}
	return n > 0, nil
}

// LinksForSection returns all links attached to a section, oldest first.
func (db *DB) LinksForSection(ctx context.Context, sectionID string) ([]models.Link, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+linkCols+` FROM links WHERE section_id = ? ORDER BY created_at, id`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("store: links for section: %w", err)
	}
	return collectLinks(rows)
}

// LinksForDocument returns links attached at document level (not through a
// section), oldest first.
func (db *DB) LinksForDocument(ctx context.Context, documentID string) ([]models.Link, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+linkCols+` FROM links WHERE document_id = ? AND section_id IS NULL ORDER BY created_at, id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("store: links for document: %w", err)
	}
	return collectLinks(rows)
}

// LinksByTarget is the reverse index: every link pointing at one external
// resource, computed as a plain query over links.
func (db *DB) LinksByTarget(ctx context.Context, system, target string) ([]models.Link, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+linkCols+` FROM links WHERE system = ? AND target = ? ORDER BY created_at, id`, system, target)
	if err != nil {
		return nil, fmt.Errorf("store: links by target: %w", err)
	}
	return collectLinks(rows)
}

// LinksByType returns links for one system, oldest first.
func (db *DB) LinksByType(ctx context.Context, system string, limit int) ([]models.Link, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+linkCols+` FROM links WHERE system = ? ORDER BY created_at, id LIMIT ?`, system, limit)
	if err != nil {
		return nil, fmt.Errorf("store: links by type: %w", err)
	}
	return collectLinks(rows)
}

// UpdateLinkMeta replaces a link's metadata.
func (db *DB) UpdateLinkMeta(ctx context.Context, id string, meta map[string]any) (bool, error) {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE links SET metadata = ?, updated_at = ? WHERE id = ?
	`, metaJSON(meta), time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("store: update link metadata: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: update link metadata: %w", err)
	}
	return n > 0, nil
}

// AllLinks returns every link, used by report generation.
func (db *DB) AllLinks(ctx context.Context) ([]models.Link, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+linkCols+` FROM links ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("store: all links: %w", err)
	}
	return collectLinks(rows)
}

// OrphanedLinkIDs returns ids of links whose owner row no longer exists.
// Foreign keys normally prevent this; the audit query backs the link
// report's integrity check regardless.
func (db *DB) OrphanedLinkIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT l.id
		FROM links l
		LEFT JOIN documents d ON d.id = l.document_id
		LEFT JOIN sections s ON s.id = l.section_id
		WHERE d.id IS NULL OR (l.section_id IS NOT NULL AND s.id IS NULL)
		ORDER BY l.id
	`)
	if err != nil {
		return nil, fmt.Errorf("store: orphaned links: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
