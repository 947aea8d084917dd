package store

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	version    INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sections (
	id                TEXT PRIMARY KEY,
	document_id       TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	parent_section_id TEXT REFERENCES sections(id) ON DELETE CASCADE,
	heading           TEXT NOT NULL,
	body              TEXT NOT NULL DEFAULT '',
	order_index       INTEGER NOT NULL DEFAULT 0,
	metadata          TEXT NOT NULL DEFAULT '{}',
	version           INTEGER NOT NULL DEFAULT 1,
	created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS links (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	section_id  TEXT REFERENCES sections(id) ON DELETE CASCADE,
	system      TEXT NOT NULL,
	target      TEXT NOT NULL,
	metadata    TEXT NOT NULL DEFAULT '{}',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sections_document ON sections(document_id);
CREATE INDEX IF NOT EXISTS idx_sections_parent   ON sections(parent_section_id);
CREATE INDEX IF NOT EXISTS idx_sections_order    ON sections(order_index);
CREATE INDEX IF NOT EXISTS idx_links_document    ON links(document_id);
CREATE INDEX IF NOT EXISTS idx_links_section     ON links(section_id);
CREATE INDEX IF NOT EXISTS idx_links_target      ON links(system, target);
`
