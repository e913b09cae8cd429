package store

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ragout/ragout/internal/domain"
)

// SQLiteStore implements Store using SQLite with the sqlite-vec extension.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

func init() {
	sqlite_vec.Auto()
}

// NewSQLiteStore opens (or creates) a store at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite handles one writer at a time; serialize through a single conn.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Debug("Opened vector store", "path", path)

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// EnsureNamespace creates the namespace if it does not exist and returns its
// record. The first namespace fixes the store-wide embedding dimensionality;
// any later namespace (or a repeat call) with different dimensions fails with
// ErrDimensionMismatch.
func (s *SQLiteStore) EnsureNamespace(name string, dimensions int) (*NamespaceRecord, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: namespace must not be empty", domain.ErrInvalidArgument)
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getNamespace(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Dimensions != dimensions {
			return nil, fmt.Errorf("%w: namespace %q has %d dimensions, got %d",
				domain.ErrDimensionMismatch, name, existing.Dimensions, dimensions)
		}
		return existing, nil
	}

	storeDims, err := storeDimensions(s.db)
	if err != nil {
		return nil, err
	}
	if storeDims != 0 && storeDims != dimensions {
		return nil, fmt.Errorf("%w: store holds %d-dimensional vectors, got %d",
			domain.ErrDimensionMismatch, storeDims, dimensions)
	}

	if err := ensureVectorTable(s.db, dimensions); err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(
		"INSERT INTO namespaces (name, dimensions) VALUES (?, ?)", name, dimensions,
	); err != nil {
		return nil, fmt.Errorf("failed to create namespace: %w", err)
	}

	log.Debug("Created namespace", "namespace", name, "dimensions", dimensions)

	return s.getNamespace(name)
}

// GetNamespace returns the namespace record, or nil when it does not exist.
func (s *SQLiteStore) GetNamespace(name string) (*NamespaceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getNamespace(name)
}

func (s *SQLiteStore) getNamespace(name string) (*NamespaceRecord, error) {
	var ns NamespaceRecord
	err := s.db.QueryRow(`
		SELECT id, name, dimensions, created_at, updated_at
		FROM namespaces WHERE name = ?
	`, name).Scan(&ns.ID, &ns.Name, &ns.Dimensions, &ns.CreatedAt, &ns.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get namespace: %w", err)
	}
	return &ns, nil
}

// ListNamespaces returns all namespaces ordered by name.
func (s *SQLiteStore) ListNamespaces() ([]NamespaceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, name, dimensions, created_at, updated_at
		FROM namespaces ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	defer rows.Close()

	var namespaces []NamespaceRecord
	for rows.Next() {
		var ns NamespaceRecord
		if err := rows.Scan(&ns.ID, &ns.Name, &ns.Dimensions, &ns.CreatedAt, &ns.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan namespace: %w", err)
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces, rows.Err()
}

// DeleteNamespace removes a namespace and everything under it. Deleting a
// namespace that does not exist is a no-op.
func (s *SQLiteStore) DeleteNamespace(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, err := s.getNamespace(name)
	if err != nil {
		return err
	}
	if ns == nil {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// vec0 tables do not participate in foreign keys; clear vectors manually.
	if _, err := tx.Exec(`
		DELETE FROM chunk_vectors WHERE chunk_id IN (
			SELECT c.id FROM chunks c
			JOIN documents d ON c.document_id = d.id
			WHERE d.namespace_id = ?
		)
	`, ns.ID); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM namespaces WHERE id = ?", ns.ID); err != nil {
		return fmt.Errorf("failed to delete namespace: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	log.Debug("Deleted namespace", "namespace", name)
	return nil
}

// BeginDocument upserts the document record for (namespace, sourceID),
// clears any chunks from a prior ingestion, and blanks the stored hash so an
// interrupted ingestion cannot pass the unchanged-content check. The
// namespace must already exist.
func (s *SQLiteStore) BeginDocument(namespace, sourceID string) (int64, error) {
	if sourceID == "" {
		return 0, fmt.Errorf("%w: source id must not be empty", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, err := s.getNamespace(namespace)
	if err != nil {
		return 0, err
	}
	if ns == nil {
		return 0, fmt.Errorf("%w: namespace %q does not exist", domain.ErrInvalidArgument, namespace)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var docID int64
	err = tx.QueryRow(
		"SELECT id FROM documents WHERE namespace_id = ? AND source_id = ?",
		ns.ID, sourceID,
	).Scan(&docID)

	if err == sql.ErrNoRows {
		result, err := tx.Exec(
			"INSERT INTO documents (namespace_id, source_id, hash) VALUES (?, ?, '')",
			ns.ID, sourceID,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert document: %w", err)
		}
		docID, err = result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to get document id: %w", err)
		}
	} else if err != nil {
		return 0, fmt.Errorf("failed to look up document: %w", err)
	} else {
		if _, err := tx.Exec(`
			DELETE FROM chunk_vectors WHERE chunk_id IN (
				SELECT id FROM chunks WHERE document_id = ?
			)
		`, docID); err != nil {
			return 0, fmt.Errorf("failed to delete old vectors: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM chunks WHERE document_id = ?", docID); err != nil {
			return 0, fmt.Errorf("failed to delete old chunks: %w", err)
		}
		if _, err := tx.Exec(
			"UPDATE documents SET hash = '', ingested_at = datetime('now') WHERE id = ?",
			docID,
		); err != nil {
			return 0, fmt.Errorf("failed to update document: %w", err)
		}
	}

	if _, err := tx.Exec(
		"UPDATE namespaces SET updated_at = datetime('now') WHERE id = ?", ns.ID,
	); err != nil {
		return 0, fmt.Errorf("failed to touch namespace: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	return docID, nil
}

// PutChunks appends a batch of chunks with their embeddings to a document
// opened by BeginDocument.
func (s *SQLiteStore) PutChunks(docID int64, chunks []domain.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %d chunks but %d embeddings",
			domain.ErrInvalidArgument, len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	storeDims, err := storeDimensions(s.db)
	if err != nil {
		return err
	}
	for i, emb := range embeddings {
		if len(emb) != storeDims {
			return fmt.Errorf("%w: embedding %d has %d dimensions, store holds %d",
				domain.ErrDimensionMismatch, i, len(emb), storeDims)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	chunkStmt, err := tx.Prepare(
		"INSERT INTO chunks (document_id, chunk_index, content) VALUES (?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer chunkStmt.Close()

	vecStmt, err := tx.Prepare(
		"INSERT INTO chunk_vectors (chunk_id, embedding) VALUES (?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare vector insert: %w", err)
	}
	defer vecStmt.Close()

	for i, chunk := range chunks {
		result, err := chunkStmt.Exec(docID, chunk.Index, chunk.Text)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.Index, err)
		}
		chunkID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get chunk id: %w", err)
		}

		blob, err := serializeEmbedding(embeddings[i])
		if err != nil {
			return fmt.Errorf("failed to serialize embedding: %w", err)
		}
		if _, err := vecStmt.Exec(chunkID, blob); err != nil {
			return fmt.Errorf("failed to insert vector: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// FinishDocument records the content hash for a fully ingested document.
// Until this runs, the document's hash stays blank and a re-ingest will
// process it again.
func (s *SQLiteStore) FinishDocument(docID int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("UPDATE documents SET hash = ? WHERE id = ?", hash, docID)
	if err != nil {
		return fmt.Errorf("failed to finish document: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: document %d does not exist", domain.ErrInvalidArgument, docID)
	}
	return nil
}

// GetDocument returns the document record, or nil when it does not exist.
func (s *SQLiteStore) GetDocument(namespace, sourceID string) (*DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc DocumentRecord
	err := s.db.QueryRow(`
		SELECT d.id, n.name, d.source_id, d.hash, d.ingested_at, d.namespace_id,
			(SELECT COUNT(*) FROM chunks WHERE document_id = d.id)
		FROM documents d
		JOIN namespaces n ON d.namespace_id = n.id
		WHERE n.name = ? AND d.source_id = ?
	`, namespace, sourceID).Scan(
		&doc.ID, &doc.Namespace, &doc.SourceID, &doc.Hash,
		&doc.IngestedAt, &doc.NamespaceID, &doc.ChunkCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// DeleteDocument removes a document and its chunks. Idempotent.
func (s *SQLiteStore) DeleteDocument(namespace, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.getDocumentLocked(namespace, sourceID)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM chunk_vectors WHERE chunk_id IN (
			SELECT id FROM chunks WHERE document_id = ?
		)
	`, doc.ID); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM documents WHERE id = ?", doc.ID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) getDocumentLocked(namespace, sourceID string) (*DocumentRecord, error) {
	var doc DocumentRecord
	err := s.db.QueryRow(`
		SELECT d.id, d.source_id FROM documents d
		JOIN namespaces n ON d.namespace_id = n.id
		WHERE n.name = ? AND d.source_id = ?
	`, namespace, sourceID).Scan(&doc.ID, &doc.SourceID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// Search returns up to k chunks nearest to the query embedding within one
// namespace, ranked by cosine similarity descending. Ties break toward the
// earlier-ingested chunk. An unknown or empty namespace yields no results.
func (s *SQLiteStore) Search(namespace string, query []float32, k int) (domain.RetrievalResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, err := s.getNamespace(namespace)
	if err != nil {
		return nil, err
	}
	if ns == nil {
		return nil, nil
	}
	if len(query) != ns.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, namespace %q holds %d",
			domain.ErrDimensionMismatch, len(query), namespace, ns.Dimensions)
	}

	blob, err := serializeEmbedding(query)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query: %w", err)
	}

	// vec0 applies the k nearest-neighbor selection before our namespace
	// filter, so oversample and trim after joining.
	fetchK := k * 10
	if fetchK > 1000 {
		fetchK = 1000
	}

	rows, err := s.db.Query(`
		SELECT d.source_id, c.chunk_index, c.content, cv.distance
		FROM chunk_vectors cv
		JOIN chunks c ON c.id = cv.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE cv.embedding MATCH ? AND k = ?
			AND d.namespace_id = ?
		ORDER BY cv.distance ASC, c.id ASC
		LIMIT ?
	`, blob, fetchK, ns.ID, k)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	var results domain.RetrievalResult
	for rows.Next() {
		var sc domain.ScoredChunk
		var distance float64
		if err := rows.Scan(&sc.Chunk.SourceID, &sc.Chunk.Index, &sc.Chunk.Text, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		sc.Chunk.Namespace = namespace
		sc.Score = 1 - distance
		results = append(results, sc)
	}
	return results, rows.Err()
}

// Stats returns counts for one namespace, or nil when it does not exist.
func (s *SQLiteStore) Stats(namespace string) (*NamespaceStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, err := s.getNamespace(namespace)
	if err != nil {
		return nil, err
	}
	if ns == nil {
		return nil, nil
	}

	stats := &NamespaceStats{Namespace: namespace, Dimensions: ns.Dimensions}

	err = s.db.QueryRow(
		"SELECT COUNT(*) FROM documents WHERE namespace_id = ?", ns.ID,
	).Scan(&stats.DocumentCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	err = s.db.QueryRow(`
		SELECT COUNT(*) FROM chunks c
		JOIN documents d ON c.document_id = d.id
		WHERE d.namespace_id = ?
	`, ns.ID).Scan(&stats.ChunkCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	return stats, nil
}

// serializeEmbedding converts a float32 slice to the little-endian byte blob
// sqlite-vec expects.
func serializeEmbedding(embedding []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	for _, v := range embedding {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// deserializeEmbedding converts a byte blob back to a float32 slice.
func deserializeEmbedding(blob []byte) []float32 {
	embedding := make([]float32, len(blob)/4)
	for i := range embedding {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		embedding[i] = math.Float32frombits(bits)
	}
	return embedding
}
