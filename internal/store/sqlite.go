package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure Go driver, no CGO
)

// SQLiteIndex implements Index on SQLite FTS5.
// WAL mode lets a CLI search read while a watcher process writes.
type SQLiteIndex struct {
	mu        sync.RWMutex
	db        *sql.DB
	path      string
	closed    bool
	stopWords map[string]struct{}
}

var _ Index = (*SQLiteIndex)(nil)

const (
	sqliteSchemaVersion = 2
	// deleteChunkSize bounds the ids bound into one DELETE statement.
	deleteChunkSize = 500
)

// validateSQLiteIntegrity checks an existing database before it is opened.
// A missing file is valid.
func validateSQLiteIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
                       WHERE type='table' AND name='entries'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("FTS5 table 'entries' missing")
	}

	return nil
}

// NewSQLiteIndex opens or creates an FTS5 index at path.
// An empty path creates an in-memory index. A corrupt database is removed
// and recreated empty; the next refresh repopulates it.
func NewSQLiteIndex(path string, config Config) (*SQLiteIndex, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if validErr := validateSQLiteIntegrity(path); validErr != nil {
			slog.Warn("sqlite_index_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, fmt.Errorf("index corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")

			slog.Info("sqlite_index_cleared", slog.String("path", path))
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// single connection: one writer, and :memory: databases are per-connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	idx := &SQLiteIndex{
		db:        db,
		path:      path,
		stopWords: BuildStopWordMap(config.StopWords),
	}
	if err := idx.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return idx, nil
}

func (s *SQLiteIndex) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	-- content holds pre-tokenized text; id and kind are stored only
	CREATE VIRTUAL TABLE IF NOT EXISTS entries USING fts5(
		id UNINDEXED,
		kind UNINDEXED,
		content,
		tokenize='unicode61'
	);

	-- rid is the entries rowid; id is UNINDEXED in FTS5
	CREATE TABLE IF NOT EXISTS entry_ids (
		id  TEXT PRIMARY KEY,
		rid INTEGER NOT NULL
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (2);
	`
	if err := s.dropLegacySchema(); err != nil {
		return err
	}
	_, err := s.db.Exec(schema)
	return err
}

// dropLegacySchema removes tables from version 1, whose entry_ids had no
// rowid column. The next refresh repopulates them.
func (s *SQLiteIndex) dropLegacySchema() error {
	var version sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil || !version.Valid {
		// no schema_version table yet: fresh database
		return nil
	}
	if version.Int64 >= sqliteSchemaVersion {
		return nil
	}

	slog.Info("sqlite_index_schema_upgrade",
		slog.String("path", s.path),
		slog.Int64("from", version.Int64),
		slog.Int("to", sqliteSchemaVersion))
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS entries`,
		`DROP TABLE IF EXISTS entry_ids`,
		`DELETE FROM schema_version`,
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to upgrade schema: %w", err)
		}
	}
	return nil
}

// Index adds or replaces documents in one transaction.
func (s *SQLiteIndex) Index(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// FTS5 tables have no REPLACE; delete the previous row by rowid
	lookupStmt, err := tx.PrepareContext(ctx, `SELECT rid FROM entry_ids WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare lookup statement: %w", err)
	}
	defer lookupStmt.Close()

	deleteStmt, err := tx.PrepareContext(ctx, `DELETE FROM entries WHERE rowid = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}
	defer deleteStmt.Close()

	insertStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries(id, kind, content) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer insertStmt.Close()

	idStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO entry_ids(id, rid) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare id statement: %w", err)
	}
	defer idStmt.Close()

	for _, doc := range docs {
		tokens := FilterStopWords(Tokenize(doc.Content), s.stopWords)

		var rid int64
		switch err := lookupStmt.QueryRowContext(ctx, doc.ID).Scan(&rid); {
		case err == nil:
			if _, err := deleteStmt.ExecContext(ctx, rid); err != nil {
				return fmt.Errorf("failed to delete existing entry %s: %w", doc.ID, err)
			}
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to look up entry %s: %w", doc.ID, err)
		}

		res, err := insertStmt.ExecContext(ctx, doc.ID, doc.Kind, strings.Join(tokens, " "))
		if err != nil {
			return fmt.Errorf("failed to index entry %s: %w", doc.ID, err)
		}
		rid, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read rowid of %s: %w", doc.ID, err)
		}
		if _, err := idStmt.ExecContext(ctx, doc.ID, rid); err != nil {
			return fmt.Errorf("failed to track entry %s: %w", doc.ID, err)
		}
	}

	return tx.Commit()
}

// Search runs an FTS5 prefix query over the tokenized query terms.
func (s *SQLiteIndex) Search(ctx context.Context, queryStr string, limit int) ([]*Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}

	tokens := FilterStopWords(Tokenize(queryStr), s.stopWords)
	if len(tokens) == 0 {
		return []*Hit{}, nil
	}

	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"*`
	}

	// bm25() is negative, lower is better
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, bm25(entries) AS score
		FROM entries
		WHERE content MATCH ?
		ORDER BY score
		LIMIT ?
	`, strings.Join(terms, " "), limit)
	if err != nil {
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return []*Hit{}, nil
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	var hits []*Hit
	for rows.Next() {
		var h Hit
		var score float64
		if err := rows.Scan(&h.ID, &h.Kind, &score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		h.Score = -score
		h.MatchedTerms = tokens
		hits = append(hits, &h)
	}

	return hits, rows.Err()
}

// Delete removes entries by ID.
func (s *SQLiteIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// chunked to stay under SQLite's bound-variable limit
	for start := 0; start < len(ids); start += deleteChunkSize {
		chunk := ids[start:min(start+deleteChunkSize, len(ids))]
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		in := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")

		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			"DELETE FROM entries WHERE rowid IN (SELECT rid FROM entry_ids WHERE id IN (%s))", in), args...); err != nil {
			return fmt.Errorf("failed to delete entries: %w", err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM entry_ids WHERE id IN (%s)", in), args...); err != nil {
			return fmt.Errorf("failed to delete entry ids: %w", err)
		}
	}

	return tx.Commit()
}

// AllIDs returns every indexed ID in lexical order.
func (s *SQLiteIndex) AllIDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}

	rows, err := s.db.Query(`SELECT id FROM entry_ids ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Clear removes every entry.
func (s *SQLiteIndex) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_ids`); err != nil {
		return fmt.Errorf("failed to clear entry ids: %w", err)
	}

	return tx.Commit()
}

// Stats returns index statistics.
func (s *SQLiteIndex) Stats() *Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return &Stats{}
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM entry_ids`).Scan(&count); err != nil {
		return &Stats{}
	}
	return &Stats{DocumentCount: count}
}

// Close checkpoints the WAL and closes the database. Idempotent.
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}
