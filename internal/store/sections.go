package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/docomatic/docomatic/internal/models"
)

const sectionCols = `id, document_id, parent_section_id, heading, body, order_index, metadata, version, created_at, updated_at`

func scanSection(row interface{ Scan(...any) error }) (*models.Section, error) {
	var (
		s      models.Section
		parent sql.NullString
		meta   string
	)
	err := row.Scan(&s.ID, &s.DocumentID, &parent, &s.Heading, &s.Body,
		&s.OrderIndex, &meta, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.ParentID = strPtr(parent)
	s.Meta = parseMeta(meta)
	return &s, nil
}

func collectSections(rows *sql.Rows) ([]models.Section, error) {
	defer rows.Close()
	var out []models.Section
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// siblingScope returns the WHERE fragment and args selecting the sibling
// set of a (document, parent) pair. Root siblings are scoped by document.
func siblingScope(documentID string, parentID *string) (string, []any) {
	if parentID == nil {
		return `document_id = ? AND parent_section_id IS NULL`, []any{documentID}
	}
	return `parent_section_id = ?`, []any{*parentID}
}

// nextOrderIndex computes max(sibling order_index)+1, or 0 with no siblings.
func nextOrderIndex(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, documentID string, parentID *string) (int, error) {
	scope, args := siblingScope(documentID, parentID)
	var next int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(order_index) + 1, 0) FROM sections WHERE `+scope, args...).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("store: next order index: %w", err)
	}
	return next, nil
}

// shiftSiblings makes room at orderIndex by bumping every sibling at or
// after it. Keeps sibling order_index values unique without renumbering the
// whole set.
func shiftSiblings(ctx context.Context, tx *sql.Tx, documentID string, parentID *string, orderIndex int, excludeID string) error {
	scope, args := siblingScope(documentID, parentID)
	var occupied int
	checkArgs := append(append([]any{}, args...), orderIndex, excludeID)
	err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM sections WHERE `+scope+` AND order_index = ? AND id != ?`,
		checkArgs...).Scan(&occupied)
	if err != nil {
		return fmt.Errorf("store: check sibling slot: %w", err)
	}
	if occupied == 0 {
		return nil
	}
	shiftArgs := append(append([]any{}, args...), orderIndex, excludeID)
	_, err = tx.ExecContext(ctx,
		`UPDATE sections SET order_index = order_index + 1 WHERE `+scope+` AND order_index >= ? AND id != ?`,
		shiftArgs...)
	if err != nil {
		return fmt.Errorf("store: shift siblings: %w", err)
	}
	return nil
}

// CreateSection inserts a section within one transaction. With autoIndex
// the order_index is assigned as max(sibling)+1; otherwise the requested
// index is honored and colliding siblings are shifted up.
func (db *DB) CreateSection(ctx context.Context, sec models.Section, autoIndex bool) (*models.Section, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if autoIndex {
		next, err := nextOrderIndex(ctx, tx, sec.DocumentID, sec.ParentID)
		if err != nil {
			return nil, err
		}
		sec.OrderIndex = next
	} else {
		if err := shiftSiblings(ctx, tx, sec.DocumentID, sec.ParentID, sec.OrderIndex, sec.ID); err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sections (`+sectionCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`, sec.ID, sec.DocumentID, nullStr(sec.ParentID), sec.Heading, sec.Body,
		sec.OrderIndex, metaJSON(sec.Meta), sec.CreatedAt, sec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: insert section: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	sec.Version = 1
	return &sec, nil
}

// GetSection returns the section with the given id, or nil when absent.
func (db *DB) GetSection(ctx context.Context, id string) (*models.Section, error) {
	s, err := scanSection(db.conn.QueryRowContext(ctx,
		`SELECT `+sectionCols+` FROM sections WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get section: %w", err)
	}
	return s, nil
}

// GetChildren returns the direct children of a section ordered by
// order_index with id as tiebreak.
func (db *DB) GetChildren(ctx context.Context, parentID string) ([]models.Section, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+sectionCols+` FROM sections WHERE parent_section_id = ? ORDER BY order_index, id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("store: get children: %w", err)
	}
	return collectSections(rows)
}

// SectionsByDocument returns every section of a document ordered by
// order_index then id, suitable for in-memory tree assembly.
func (db *DB) SectionsByDocument(ctx context.Context, documentID string) ([]models.Section, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+sectionCols+` FROM sections WHERE document_id = ? ORDER BY order_index, id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("store: sections by document: %w", err)
	}
	return collectSections(rows)
}

// UpdateSection writes heading, body, order_index, and metadata with an
// optimistic version check. An order_index that collides with a sibling
// returns ErrOrderConflict; a stale version returns ErrVersionConflict.
func (db *DB) UpdateSection(ctx context.Context, sec models.Section) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	scope, args := siblingScope(sec.DocumentID, sec.ParentID)
	var occupied int
	checkArgs := append(append([]any{}, args...), sec.OrderIndex, sec.ID)
	err = tx.QueryRowContext(ctx,
		`SELECT count(*) FROM sections WHERE `+scope+` AND order_index = ? AND id != ?`,
		checkArgs...).Scan(&occupied)
	if err != nil {
		return fmt.Errorf("store: check sibling slot: %w", err)
	}
	if occupied > 0 {
		return ErrOrderConflict
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE sections
		SET heading = ?, body = ?, order_index = ?, metadata = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, sec.Heading, sec.Body, sec.OrderIndex, metaJSON(sec.Meta), sec.UpdatedAt, sec.ID, sec.Version)
	if err != nil {
		return fmt.Errorf("store: update section: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update section: %w", err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return tx.Commit()
}

// MoveSection re-parents a section within one transaction. Destination
// siblings are shifted when the requested order_index is occupied; with
// autoIndex the section lands after the last destination sibling. The
// version check makes concurrent moves of the same section fail with
// ErrVersionConflict instead of corrupting ordering.
func (db *DB) MoveSection(ctx context.Context, id string, newParentID *string, orderIndex int, autoIndex bool, version int64) (*models.Section, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	cur, err := scanSection(tx.QueryRowContext(ctx,
		`SELECT `+sectionCols+` FROM sections WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: move section: %w", err)
	}

	if autoIndex {
		next, err := nextOrderIndexExcluding(ctx, tx, cur.DocumentID, newParentID, id)
		if err != nil {
			return nil, err
		}
		orderIndex = next
	} else {
		if err := shiftSiblings(ctx, tx, cur.DocumentID, newParentID, orderIndex, id); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE sections
		SET parent_section_id = ?, order_index = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, nullStr(newParentID), orderIndex, now, id, version)
	if err != nil {
		return nil, fmt.Errorf("store: move section: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("store: move section: %w", err)
	}
	if n == 0 {
		return nil, ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}

	cur.ParentID = newParentID
	cur.OrderIndex = orderIndex
	cur.Version = version + 1
	cur.UpdatedAt = now
	return cur, nil
}

// nextOrderIndexExcluding is nextOrderIndex with one section left out of
// the sibling set, used when that section is the one being moved.
func nextOrderIndexExcluding(ctx context.Context, tx *sql.Tx, documentID string, parentID *string, excludeID string) (int, error) {
	scope, args := siblingScope(documentID, parentID)
	args = append(args, excludeID)
	var next int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(order_index) + 1, 0) FROM sections WHERE `+scope+` AND id != ?`, args...).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("store: next order index: %w", err)
	}
	return next, nil
}

// DeleteSection removes a section. Descendants and attached links cascade
// through foreign keys.
func (db *DB) DeleteSection(ctx context.Context, id string) (bool, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM sections WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("store: delete section: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: delete section: %w", err)
	}
	return n > 0, nil
}

// HasChildren reports whether any section names this one as parent.
func (db *DB) HasChildren(ctx context.Context, id string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM sections WHERE parent_section_id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: has children: %w", err)
	}
	return n > 0, nil
}

// ReorderSections renumbers a full sibling set to match orderedIDs
// (0..n-1) within one transaction. The service layer verifies membership
// before calling.
func (db *DB) ReorderSections(ctx context.Context, documentID string, parentID *string, orderedIDs []string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE sections SET order_index = ?, version = version + 1, updated_at = ?
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("store: prepare reorder: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, id := range orderedIDs {
		if _, err := stmt.ExecContext(ctx, i, now, id); err != nil {
			return fmt.Errorf("store: reorder section %s: %w", id, err)
		}
	}
	return tx.Commit()
}
