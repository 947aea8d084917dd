// Package store implements the SQLite-backed entity store for documents,
// sections, and links. Every multi-statement operation runs inside a single
// transaction; callers never observe partial writes.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/docomatic/docomatic/internal/models"
)

// Sentinel conditions the service layer translates into domain errors.
var (
	// ErrVersionConflict reports an optimistic concurrency failure: the row
	// was modified between read and write.
	ErrVersionConflict = errors.New("store: version conflict")
	// ErrDuplicateLink reports a link with the same owner, system, and
	// target already exists.
	ErrDuplicateLink = errors.New("store: duplicate link")
	// ErrOrderConflict reports an explicit order_index that collides with a
	// sibling.
	ErrOrderConflict = errors.New("store: order index conflict")
)

// DB wraps a sql.DB with entity-store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Store defines the persistence contract the service facade depends on.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with fakes.
type Store interface {
	// Documents.
	CreateDocument(ctx context.Context, doc models.Document, sections []models.Section) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	UpdateDocument(ctx context.Context, doc models.Document) error
	DeleteDocument(ctx context.Context, id string) (bool, error)
	ListDocuments(ctx context.Context, titlePattern string, limit, offset int) ([]models.DocumentListItem, int, error)

	// Sections.
	CreateSection(ctx context.Context, sec models.Section, autoIndex bool) (*models.Section, error)
	GetSection(ctx context.Context, id string) (*models.Section, error)
	GetChildren(ctx context.Context, parentID string) ([]models.Section, error)
	SectionsByDocument(ctx context.Context, documentID string) ([]models.Section, error)
	UpdateSection(ctx context.Context, sec models.Section) error
	MoveSection(ctx context.Context, id string, newParentID *string, orderIndex int, autoIndex bool, version int64) (*models.Section, error)
	DeleteSection(ctx context.Context, id string) (bool, error)
	HasChildren(ctx context.Context, id string) (bool, error)
	ReorderSections(ctx context.Context, documentID string, parentID *string, orderedIDs []string) error
	SearchSections(ctx context.Context, query, documentID string, limit, offset int) ([]models.Section, error)

	// Links.
	CreateLink(ctx context.Context, link models.Link) error
	GetLink(ctx context.Context, id string) (*models.Link, error)
	DeleteLink(ctx context.Context, id string) (bool, error)
	LinksForSection(ctx context.Context, sectionID string) ([]models.Link, error)
	LinksForDocument(ctx context.Context, documentID string) ([]models.Link, error)
	LinksByTarget(ctx context.Context, system, target string) ([]models.Link, error)
	LinksByType(ctx context.Context, system string, limit int) ([]models.Link, error)
	UpdateLinkMeta(ctx context.Context, id string, meta map[string]any) (bool, error)
	AllLinks(ctx context.Context) ([]models.Link, error)
	OrphanedLinkIDs(ctx context.Context) ([]string, error)

	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// metaJSON serializes an entity metadata map for storage. Empty maps and
// nil both round-trip to "{}".
func metaJSON(m map[string]any) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func parseMeta(raw string) map[string]any {
	if raw == "" || raw == "{}" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return map[string]any{}
	}
	return m
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
