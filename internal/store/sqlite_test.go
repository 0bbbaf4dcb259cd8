package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedDocs(n int) []*Document {
	docs := make([]*Document, n)
	for i := range docs {
		docs[i] = &Document{
			ID:      fmt.Sprintf("/data/file%05d.txt", i),
			Content: fmt.Sprintf("file%05d.txt data", i),
			Kind:    KindFile,
		}
	}
	return docs
}

func ftsRowCount(t *testing.T, idx *SQLiteIndex) int {
	t.Helper()
	var n int
	require.NoError(t, idx.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n))
	return n
}

func TestSQLiteIndex_ReindexReplacesRowByRowid(t *testing.T) {
	// Given: an index holding two documents
	idx, err := NewSQLiteIndex("", DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, []*Document{
		{ID: "/a", Content: "alpha", Kind: KindFile},
		{ID: "/b", Content: "bravo", Kind: KindFile},
	}))

	// When: one of them is indexed again twice in one batch
	require.NoError(t, idx.Index(ctx, []*Document{
		{ID: "/a", Content: "charlie", Kind: KindFile},
		{ID: "/a", Content: "delta", Kind: KindFile},
	}))

	// Then: exactly one full-text row per id remains, with the last content
	assert.Equal(t, 2, ftsRowCount(t, idx))
	hits, err := idx.Search(ctx, "delta", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a"}, hitIDs(hits))
	hits, err = idx.Search(ctx, "bravo", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"/b"}, hitIDs(hits))
}

func TestSQLiteIndex_DeleteBeyondVariableLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("indexes 40000 documents")
	}

	// Given: more documents than SQLite accepts bound variables per statement
	idx, err := NewSQLiteIndex("", DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()
	ctx := context.Background()

	docs := numberedDocs(40000)
	for start := 0; start < len(docs); start += 1000 {
		require.NoError(t, idx.Index(ctx, docs[start:start+1000]))
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}

	// When: deleting all of them at once
	err = idx.Delete(ctx, ids)

	// Then: the delete succeeds and nothing is left
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Stats().DocumentCount)
	assert.Equal(t, 0, ftsRowCount(t, idx))
}

func TestSQLiteIndex_DeleteKeepsOtherEntries(t *testing.T) {
	idx, err := NewSQLiteIndex("", DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()
	ctx := context.Background()
	docs := numberedDocs(1200)
	require.NoError(t, idx.Index(ctx, docs))

	stale := make([]string, 0, 1100)
	for _, d := range docs[:1100] {
		stale = append(stale, d.ID)
	}
	require.NoError(t, idx.Delete(ctx, stale))

	assert.Equal(t, 100, idx.Stats().DocumentCount)
	assert.Equal(t, 100, ftsRowCount(t, idx))
	hits, err := idx.Search(ctx, "file01150", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/file01150.txt"}, hitIDs(hits))
}

func TestSQLiteIndex_UpgradesLegacySchema(t *testing.T) {
	// Given: a database written with the first schema, without rowids
	path := filepath.Join(t.TempDir(), "files.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE schema_version (version INTEGER PRIMARY KEY);
		CREATE VIRTUAL TABLE entries USING fts5(id UNINDEXED, kind UNINDEXED, content, tokenize='unicode61');
		CREATE TABLE entry_ids (id TEXT PRIMARY KEY);
		INSERT INTO schema_version (version) VALUES (1);
		INSERT INTO entries(id, kind, content) VALUES ('/old', 'file', 'old');
		INSERT INTO entry_ids(id) VALUES ('/old');
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// When: opening it
	idx, err := NewSQLiteIndex(path, DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	// Then: it starts empty and accepts new documents
	assert.Equal(t, 0, idx.Stats().DocumentCount)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, []*Document{{ID: "/new", Content: "new", Kind: KindFile}}))
	require.NoError(t, idx.Index(ctx, []*Document{{ID: "/new", Content: "newer", Kind: KindFile}}))
	assert.Equal(t, 1, ftsRowCount(t, idx))
}
