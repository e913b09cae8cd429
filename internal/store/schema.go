package store

import (
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
)

const currentSchemaVersion = 1

// Schema definitions
const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);
`

const metaTable = `
CREATE TABLE IF NOT EXISTS store_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const namespacesTable = `
CREATE TABLE IF NOT EXISTS namespaces (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL,
	dimensions INTEGER NOT NULL,
	created_at DATETIME DEFAULT (datetime('now')),
	updated_at DATETIME DEFAULT (datetime('now'))
);
`

const documentsTable = `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	namespace_id INTEGER NOT NULL REFERENCES namespaces(id) ON DELETE CASCADE,
	source_id TEXT NOT NULL,
	hash TEXT NOT NULL,
	ingested_at DATETIME DEFAULT (datetime('now')),
	UNIQUE(namespace_id, source_id)
);

CREATE INDEX IF NOT EXISTS idx_documents_namespace_id ON documents(namespace_id);
`

const chunksTable = `
CREATE TABLE IF NOT EXISTS chunks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	content TEXT NOT NULL,
	UNIQUE(document_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
`

// createVectorTable creates the sqlite-vec virtual table. Cosine is the fixed
// similarity metric; distances from vec0 are 1 - cosine similarity.
func createVectorTable(db *sql.DB, dimensions int) error {
	query := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS chunk_vectors USING vec0(
			chunk_id INTEGER PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		);
	`, dimensions)

	_, err := db.Exec(query)
	return err
}

// initSchema initializes the database schema.
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaVersionTable); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		version = 0
	} else if err != nil {
		return fmt.Errorf("failed to check schema version: %w", err)
	}

	if version >= currentSchemaVersion {
		log.Debug("Schema is up to date", "version", version)
		return nil
	}

	log.Debug("Migrating schema", "from", version, "to", currentSchemaVersion)

	if version < 1 {
		if err := migrateV1(db); err != nil {
			return fmt.Errorf("failed to migrate to v1: %w", err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema.
func migrateV1(db *sql.DB) error {
	log.Debug("Applying migration v1")

	tables := []string{metaTable, namespacesTable, documentsTable, chunksTable}
	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// The vector table needs the embedding dimensionality, which is only
	// known once the first namespace is created.

	if _, err := db.Exec("INSERT OR REPLACE INTO schema_version (version) VALUES (?)", 1); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	return nil
}

// storeDimensions returns the dimensionality the store was initialized with,
// or 0 when no namespace has been created yet.
func storeDimensions(db *sql.DB) (int, error) {
	var value int
	err := db.QueryRow("SELECT value FROM store_meta WHERE key = 'dimensions'").Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read store dimensions: %w", err)
	}
	return value, nil
}

// ensureVectorTable creates the vector table on first use and records the
// store-wide dimensionality.
func ensureVectorTable(db *sql.DB, dimensions int) error {
	existing, err := storeDimensions(db)
	if err != nil {
		return err
	}
	if existing != 0 {
		return nil
	}

	log.Debug("Creating vector table", "dimensions", dimensions)
	if err := createVectorTable(db, dimensions); err != nil {
		return fmt.Errorf("failed to create vector table: %w", err)
	}

	if _, err := db.Exec("INSERT OR REPLACE INTO store_meta (key, value) VALUES ('dimensions', ?)", dimensions); err != nil {
		return fmt.Errorf("failed to record store dimensions: %w", err)
	}
	return nil
}
