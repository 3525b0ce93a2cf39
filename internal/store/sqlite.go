package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/aineshm/searchlayer/internal/domain"
	"github.com/aineshm/searchlayer/internal/retrieval"
)

// CurrentSchemaVersion is the store's compiled schema version (spec §4.9:
// "readers refuse to open a store whose version differs ... until an
// explicit migration is invoked").
const CurrentSchemaVersion = 1

// ErrSchemaMismatch is returned by Open when an existing store's schema
// version differs from CurrentSchemaVersion.
type ErrSchemaMismatch struct {
	Found, Want int
}

func (e ErrSchemaMismatch) Error() string {
	return fmt.Sprintf("store schema version %d does not match compiled version %d; run an explicit migration", e.Found, e.Want)
}

// SQLiteStore is the relational persistence layer (spec §4.9, §6 persisted
// layout): schema_meta, documents, chunks, chunks_fts, embeddings,
// index_manifests, runs. Grounded on the teacher's internal/store/
// sqlite_bm25.go for the modernc.org/sqlite WAL-mode opening pattern and
// integrity-check-before-open discipline, generalized from a single FTS5
// keyword index into the full content-addressed store the spec names.
type SQLiteStore struct {
	mu       sync.Mutex
	db       *sql.DB
	path     string
	lock     *flock.Flock
	retryCfg RetryConfig
}

// NewSQLiteStore opens or creates a store at path. An empty path opens an
// in-memory store, used by tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	var lockPath string
	if path != "" {
		dsn = path
		lockPath = path + ".lock"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, path: path, retryCfg: DefaultRetryConfig()}
	if lockPath != "" {
		s.lock = flock.New(lockPath)
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.checkSchemaVersion(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_meta (
		version INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS documents (
		doc_id       TEXT PRIMARY KEY,
		source_path  TEXT NOT NULL,
		source_type  TEXT NOT NULL,
		title        TEXT NOT NULL,
		content_hash TEXT NOT NULL UNIQUE,
		created_at   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		chunk_id     TEXT PRIMARY KEY,
		doc_id       TEXT NOT NULL REFERENCES documents(doc_id) ON DELETE CASCADE,
		chunk_text   TEXT NOT NULL,
		start_offset INTEGER NOT NULL,
		end_offset   INTEGER NOT NULL,
		page         INTEGER,
		section      TEXT
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
		chunk_id UNINDEXED,
		chunk_text,
		tokenize='unicode61'
	);

	CREATE TABLE IF NOT EXISTS embeddings (
		vector_id  INTEGER NOT NULL,
		chunk_id   TEXT NOT NULL REFERENCES chunks(chunk_id) ON DELETE CASCADE,
		model_name TEXT NOT NULL,
		dim        INTEGER NOT NULL,
		vector     BLOB NOT NULL,
		PRIMARY KEY (model_name, chunk_id)
	);

	CREATE TABLE IF NOT EXISTS index_manifests (
		index_id            INTEGER PRIMARY KEY AUTOINCREMENT,
		model_name          TEXT NOT NULL,
		dim                 INTEGER NOT NULL,
		chunk_count         INTEGER NOT NULL,
		chunk_snapshot_hash TEXT NOT NULL,
		index_file_path     TEXT NOT NULL,
		active              INTEGER NOT NULL DEFAULT 0,
		created_at          TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		run_id     TEXT PRIMARY KEY,
		query      TEXT NOT NULL,
		intent     TEXT NOT NULL,
		tool_trace TEXT NOT NULL,
		latency_ms REAL NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_meta`).Scan(&count); err != nil {
		return fmt.Errorf("count schema_meta: %w", err)
	}
	if count == 0 {
		if _, err := s.db.Exec(`INSERT INTO schema_meta (version) VALUES (?)`, CurrentSchemaVersion); err != nil {
			return fmt.Errorf("seed schema_meta: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) checkSchemaVersion() error {
	var version int
	if err := s.db.QueryRow(`SELECT version FROM schema_meta LIMIT 1`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != CurrentSchemaVersion {
		return ErrSchemaMismatch{Found: version, Want: CurrentSchemaVersion}
	}
	return nil
}

// InsertDocument inserts doc, or resolves it to the existing row sharing its
// content hash. The second return value reports whether this call actually
// inserted a new row, so callers (the ingest summary) can distinguish a
// fresh document from a re-ingested one.
func (s *SQLiteStore) InsertDocument(ctx context.Context, doc domain.Document) (domain.Document, bool, error) {
	if doc.DocID == "" {
		doc.DocID = deriveDocID(doc.ContentHash)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	inserted := false
	err := withRetry(ctx, s.retryCfg, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		var existing string
		err := s.db.QueryRowContext(ctx, `SELECT doc_id FROM documents WHERE content_hash = ?`, doc.ContentHash).Scan(&existing)
		if err == nil {
			doc.DocID = existing
			inserted = false
			return nil
		}
		if err != sql.ErrNoRows {
			return err
		}

		_, err = s.db.ExecContext(ctx,
			`INSERT INTO documents (doc_id, source_path, source_type, title, content_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			doc.DocID, doc.SourcePath, doc.SourceType, doc.Title, doc.ContentHash, doc.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		return domain.Document{}, false, fmt.Errorf("insert document: %w", err)
	}
	return doc, inserted, nil
}

// deriveDocID derives a stable document id from its content hash (spec §3:
// "doc_id deterministic from hash").
func deriveDocID(contentHash string) string {
	return "doc_" + contentHash
}

// InsertChunks inserts chunks and mirrors their text into the chunks_fts
// full-text table (spec §4.9: "insert chunks (mirrored to FTS)").
func (s *SQLiteStore) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return withRetry(ctx, s.retryCfg, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		for _, c := range chunks {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO chunks (chunk_id, doc_id, chunk_text, start_offset, end_offset, page, section) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				c.ChunkID, c.DocID, c.ChunkText, c.StartOffset, c.EndOffset, c.Page, c.Section); err != nil {
				return fmt.Errorf("insert chunk %s: %w", c.ChunkID, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE chunk_id = ?`, c.ChunkID); err != nil {
				return fmt.Errorf("clear fts mirror for %s: %w", c.ChunkID, err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO chunks_fts (chunk_id, chunk_text) VALUES (?, ?)`, c.ChunkID, c.ChunkText); err != nil {
				return fmt.Errorf("mirror chunk %s to fts: %w", c.ChunkID, err)
			}
		}
		return tx.Commit()
	})
}

// AllChunksOrdered returns every stored chunk in deterministic chunk_id
// order (spec §4.9: "get-all-chunks in deterministic id order").
func (s *SQLiteStore) AllChunksOrdered(ctx context.Context) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id, doc_id, chunk_text, start_offset, end_offset, page, section FROM chunks ORDER BY chunk_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.ChunkText, &c.StartOffset, &c.EndOffset, &c.Page, &c.Section); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ChunkSnapshotHash computes SHA-256 over sorted chunk ids with a separator
// (spec §3: "snapshot hash = SHA-256 over sorted chunk ids").
func (s *SQLiteStore) ChunkSnapshotHash(ctx context.Context) (string, error) {
	s.mu.Lock()
	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id FROM chunks`)
	s.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("query chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	sort.Strings(ids)
	h := sha256.New()
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CurrentChunkSnapshotHash implements retrieval.ManifestSource.
func (s *SQLiteStore) CurrentChunkSnapshotHash(ctx context.Context) (string, error) {
	return s.ChunkSnapshotHash(ctx)
}

// ReplaceEmbeddings clears and rewrites the embedding rows for one model
// (spec §3: "rewritten atomically on index build").
func (s *SQLiteStore) ReplaceEmbeddings(ctx context.Context, modelName string, embeddings []domain.Embedding) error {
	return withRetry(ctx, s.retryCfg, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE model_name = ?`, modelName); err != nil {
			return fmt.Errorf("clear embeddings: %w", err)
		}
		for _, e := range embeddings {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO embeddings (vector_id, chunk_id, model_name, dim, vector) VALUES (?, ?, ?, ?, ?)`,
				e.VectorID, e.ChunkID, modelName, e.Dim, encodeVector(e.Vector)); err != nil {
				return fmt.Errorf("insert embedding for %s: %w", e.ChunkID, err)
			}
		}
		return tx.Commit()
	})
}

// EmbeddingCount implements retrieval.ManifestSource.
func (s *SQLiteStore) EmbeddingCount(ctx context.Context, modelName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings WHERE model_name = ?`, modelName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

// ActivateManifest deactivates any previously-active manifest and inserts
// the new one as active, holding a file lock (path + ".lock") around the
// row swap; an in-memory store takes no lock. The index file save and
// rename the caller performs happen before this call, outside the lock.
func (s *SQLiteStore) ActivateManifest(ctx context.Context, manifest domain.IndexManifest) (domain.IndexManifest, error) {
	if s.lock != nil {
		if err := s.lock.Lock(); err != nil {
			return domain.IndexManifest{}, fmt.Errorf("acquire manifest lock: %w", err)
		}
		defer s.lock.Unlock()
	}

	err := withRetry(ctx, s.retryCfg, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `UPDATE index_manifests SET active = 0 WHERE active = 1`); err != nil {
			return fmt.Errorf("deactivate previous manifest: %w", err)
		}

		createdAt := manifest.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO index_manifests (model_name, dim, chunk_count, chunk_snapshot_hash, index_file_path, active, created_at) VALUES (?, ?, ?, ?, ?, 1, ?)`,
			manifest.ModelName, manifest.Dim, manifest.ChunkCount, manifest.ChunkSnapshotHash, manifest.IndexFilePath, createdAt.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert manifest: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		manifest.IndexID = id
		manifest.Active = true
		manifest.CreatedAt = createdAt
		return tx.Commit()
	})
	if err != nil {
		return domain.IndexManifest{}, err
	}
	return manifest, nil
}

// ActiveManifest implements retrieval.ManifestSource.
func (s *SQLiteStore) ActiveManifest(ctx context.Context) (*domain.IndexManifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m domain.IndexManifest
	var createdAt string
	var active int
	row := s.db.QueryRowContext(ctx,
		`SELECT index_id, model_name, dim, chunk_count, chunk_snapshot_hash, index_file_path, active, created_at FROM index_manifests WHERE active = 1 LIMIT 1`)
	err := row.Scan(&m.IndexID, &m.ModelName, &m.Dim, &m.ChunkCount, &m.ChunkSnapshotHash, &m.IndexFilePath, &active, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query active manifest: %w", err)
	}
	m.Active = active == 1
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &m, nil
}

// ChunksByIDs implements retrieval.ChunkFetcher, preserving caller order
// (spec §4.9: "fetch chunks by ids (preserving caller order)").
func (s *SQLiteStore) ChunksByIDs(ctx context.Context, ids []string) ([]retrieval.ChunkRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	placeholders := make([]byte, 0, len(ids)*2)
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT c.chunk_id, c.doc_id, c.chunk_text, c.page, d.source_path FROM chunks c JOIN documents d ON d.doc_id = c.doc_id WHERE c.chunk_id IN (%s)`, string(placeholders))
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("query chunks by ids: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]retrieval.ChunkRow, len(ids))
	for rows.Next() {
		var r retrieval.ChunkRow
		if err := rows.Scan(&r.ChunkID, &r.DocID, &r.ChunkText, &r.Page, &r.SourcePath); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		byID[r.ChunkID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]retrieval.ChunkRow, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// LogRun appends a completed query's run record (spec §3 Run Record:
// append-only).
func (s *SQLiteStore) LogRun(ctx context.Context, rec domain.RunRecord) error {
	if rec.RunID == "" {
		rec.RunID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return withRetry(ctx, s.retryCfg, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO runs (run_id, query, intent, tool_trace, latency_ms, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			rec.RunID, rec.Query, rec.Intent, string(rec.ToolTrace), rec.LatencyMS, rec.CreatedAt.Format(time.RFC3339Nano))
		return err
	})
}

// Close releases the store's database handle.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

// AllEmbeddings returns every stored embedding row for a model, the shape
// the index-build command needs to repopulate an HNSWIndex from scratch.
func (s *SQLiteStore) AllEmbeddings(ctx context.Context, modelName string) ([]domain.Embedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT vector_id, chunk_id, dim, vector FROM embeddings WHERE model_name = ? ORDER BY vector_id ASC`, modelName)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	var out []domain.Embedding
	for rows.Next() {
		var e domain.Embedding
		var buf []byte
		if err := rows.Scan(&e.VectorID, &e.ChunkID, &e.Dim, &buf); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		e.ModelName = modelName
		e.Vector = decodeVector(buf)
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ retrieval.ManifestSource = (*SQLiteStore)(nil)
var _ retrieval.ChunkFetcher = (*SQLiteStore)(nil)

// marshalToolTrace is a small helper cmd/searchlayer uses to persist a
// tool trace map as the runs table's JSON column.
func marshalToolTrace(trace map[string]any) ([]byte, error) {
	return json.Marshal(trace)
}
