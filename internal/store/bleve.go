package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search/query"
)

const (
	// NameTokenizerName is the registered name of the path-aware tokenizer.
	NameTokenizerName = "indelve_name_tokenizer"

	// NameAnalyzerName is the analyzer applied to indexed content.
	NameAnalyzerName = "indelve_name_analyzer"

	contentField = "content"
	kindField    = "kind"
)

func init() {
	_ = registry.RegisterTokenizer(NameTokenizerName, nameTokenizerConstructor)
}

// BleveIndex implements Index on Bleve v2. Bleve holds an exclusive lock on
// its directory, so only one process can open it at a time.
type BleveIndex struct {
	mu        sync.RWMutex
	index     bleve.Index
	path      string
	closed    bool
	stopWords map[string]struct{}
}

var _ Index = (*BleveIndex)(nil)

type bleveEntry struct {
	Content string `json:"content"`
	Kind    string `json:"kind"`
}

// validateBleveIntegrity checks index_meta.json of an existing index.
func validateBleveIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	data, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// NewBleveIndex opens or creates a Bleve index at path.
// An empty path creates an in-memory index.
func NewBleveIndex(path string, config Config) (*BleveIndex, error) {
	stopWords := BuildStopWordMap(config.StopWords)

	indexMapping, err := newIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
		}

		if validErr := validateBleveIntegrity(path); validErr != nil {
			slog.Warn("bleve_index_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("index corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	return &BleveIndex{
		index:     idx,
		path:      path,
		stopWords: stopWords,
	}, nil
}

func newIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(NameAnalyzerName, map[string]any{
		"type":      custom.Name,
		"tokenizer": NameTokenizerName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	contentMapping := bleve.NewTextFieldMapping()
	contentMapping.Analyzer = NameAnalyzerName
	contentMapping.Store = false

	kindMapping := bleve.NewTextFieldMapping()
	kindMapping.Analyzer = keyword.Name
	kindMapping.Store = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt(contentField, contentMapping)
	docMapping.AddFieldMappingsAt(kindField, kindMapping)

	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = NameAnalyzerName
	return indexMapping, nil
}

// Index adds or replaces documents in one batch.
func (b *BleveIndex) Index(_ context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, doc := range docs {
		tokens := FilterStopWords(Tokenize(doc.Content), b.stopWords)
		entry := bleveEntry{Content: strings.Join(tokens, " "), Kind: doc.Kind}
		if err := batch.Index(doc.ID, entry); err != nil {
			return fmt.Errorf("failed to index entry %s: %w", doc.ID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Search requires every query term to match a term or a term prefix.
func (b *BleveIndex) Search(ctx context.Context, queryStr string, limit int) ([]*Hit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	tokens := FilterStopWords(Tokenize(queryStr), b.stopWords)
	if len(tokens) == 0 {
		return []*Hit{}, nil
	}

	clauses := make([]query.Query, 0, len(tokens))
	for _, t := range tokens {
		exact := bleve.NewTermQuery(t)
		exact.SetField(contentField)
		prefix := bleve.NewPrefixQuery(t)
		prefix.SetField(contentField)
		clauses = append(clauses, bleve.NewDisjunctionQuery(exact, prefix))
	}

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(clauses...))
	req.Size = limit
	req.Fields = []string{kindField}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]*Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		kind, _ := h.Fields[kindField].(string)
		hits = append(hits, &Hit{
			ID:           h.ID,
			Kind:         kind,
			Score:        h.Score,
			MatchedTerms: tokens,
		})
	}
	return hits, nil
}

// Delete removes entries by ID.
func (b *BleveIndex) Delete(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}
	return b.deleteLocked(ids)
}

func (b *BleveIndex) deleteLocked(ids []string) error {
	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	return nil
}

// AllIDs returns every indexed ID.
func (b *BleveIndex) AllIDs() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	return b.allIDsLocked()
}

func (b *BleveIndex) allIDsLocked() ([]string, error) {
	count, err := b.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	req.Fields = []string{}

	result, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list ids: %w", err)
	}

	ids := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// Clear removes every entry.
func (b *BleveIndex) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	ids, err := b.allIDsLocked()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return b.deleteLocked(ids)
}

// Stats returns index statistics.
func (b *BleveIndex) Stats() *Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return &Stats{}
	}

	count, _ := b.index.DocCount()
	return &Stats{DocumentCount: int(count)}
}

// Close closes the index. Idempotent.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

func nameTokenizerConstructor(_ map[string]any, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &nameTokenizer{}, nil
}

// nameTokenizer feeds Tokenize output to Bleve. Content is already
// tokenized at index time, so positions are sequential.
type nameTokenizer struct{}

func (t *nameTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	lower := strings.ToLower(text)
	tokens := Tokenize(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	offset := 0
	for i, token := range tokens {
		start := strings.Index(lower[offset:], token)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)

		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
		if end <= len(text) {
			offset = end
		}
	}
	return result
}
