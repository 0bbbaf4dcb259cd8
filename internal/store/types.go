// Package store provides the keyword index behind the files provider.
// Two backends implement Index: SQLite FTS5 (default) and Bleve.
package store

import "context"

// Kinds of indexed entries.
const (
	KindFile = "file"
	KindDir  = "dir"
)

// Document is one entry to index. ID is the absolute path.
type Document struct {
	ID      string
	Content string // text to tokenize: base name plus parent directory names
	Kind    string
}

// Hit is a single search result.
type Hit struct {
	ID           string
	Kind         string
	Score        float64 // higher is better
	MatchedTerms []string
}

// Stats describes the index contents.
type Stats struct {
	DocumentCount int
}

// Index is a keyword index with BM25 scoring and prefix matching on
// query terms.
type Index interface {
	// Index adds or replaces documents.
	Index(ctx context.Context, docs []*Document) error

	// Search returns entries matching every query term, best first.
	Search(ctx context.Context, query string, limit int) ([]*Hit, error)

	// Delete removes entries by ID.
	Delete(ctx context.Context, ids []string) error

	// AllIDs returns every indexed ID.
	AllIDs() ([]string, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error

	Stats() *Stats
	Close() error
}

// Config configures tokenization shared by both backends.
type Config struct {
	// StopWords are dropped from documents and queries.
	StopWords []string
}

// DefaultConfig returns the default index configuration.
func DefaultConfig() Config {
	return Config{StopWords: DefaultStopWords}
}

// DefaultStopWords are words too common in file names to be useful.
var DefaultStopWords = []string{"the", "and", "of", "copy", "new"}
