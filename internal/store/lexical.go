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
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/aineshm/searchlayer/internal/retrieval"
)

// Tokenizer/analyzer names registered with bleve for the lexical index's
// custom analysis chain (spec §5: "tokenization uses a fixed case-folded
// regex").
const (
	lexicalTokenizerName = "searchlayer_tokenizer"
	lexicalStopName       = "searchlayer_stop"
	lexicalAnalyzerName   = "searchlayer_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(lexicalTokenizerName, tokenizerConstructor)
	_ = registry.RegisterTokenFilter(lexicalStopName, stopFilterConstructor)
}

// BleveIndex wraps bleve for full-text chunk search, the concrete backend
// behind the Lexical Retriever (spec §4.2) and the store's full-text mirror
// (spec §6 persisted layout names a SQLite chunks_fts mirror alongside this
// index; bleve remains the index actually searched).
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	config BM25Config
	closed bool
}

type lexicalDoc struct {
	Content string `json:"content"`
}

// validateIndexIntegrity checks a bleve index directory is structurally
// sound before opening it, so a corrupted index is rebuilt rather than
// silently served stale or erroring opaquely.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unexpected end of JSON") ||
		strings.Contains(errStr, "error parsing mapping JSON") ||
		strings.Contains(errStr, "failed to load segment") ||
		strings.Contains(errStr, "error opening bolt") ||
		strings.Contains(errStr, "no such file or directory") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// NewBleveIndex creates or opens a lexical index. An empty path yields an
// in-memory index, used by tests.
func NewBleveIndex(path string, config BM25Config) (*BleveIndex, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if validErr := validateIndexIntegrity(path); validErr != nil {
			slog.Warn("lexical_index_corrupted", slog.String("path", path), slog.String("error", validErr.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("lexical index corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
			slog.Info("lexical_index_cleared", slog.String("path", path), slog.String("reason", "corruption detected, please reindex"))
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil && isCorruptionError(err) {
			slog.Warn("lexical_index_open_failed", slog.String("path", path), slog.String("error", err.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("lexical index corrupted, cannot clear: %w (original: %v)", removeErr, err)
			}
			slog.Info("lexical_index_cleared", slog.String("path", path), slog.String("reason", "open failed with corruption, please reindex"))
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	return &BleveIndex{index: idx, path: path, config: config}, nil
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(lexicalAnalyzerName, map[string]any{
		"type":      custom.Name,
		"tokenizer": lexicalTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			lexicalStopName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = lexicalAnalyzerName
	return indexMapping, nil
}

// IndexChunks adds or updates chunk text in the index, keyed by chunk id.
func (b *BleveIndex) IndexChunks(ctx context.Context, chunkIDs []string, chunkTexts []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	if len(chunkIDs) != len(chunkTexts) {
		return fmt.Errorf("chunk ids and texts length mismatch: %d vs %d", len(chunkIDs), len(chunkTexts))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for i, id := range chunkIDs {
		if err := batch.Index(id, lexicalDoc{Content: chunkTexts[i]}); err != nil {
			return fmt.Errorf("failed to index chunk %s: %w", id, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Search implements retrieval.LexicalIndex: a bleve match query over the
// content field, scores reported as-is (bleve already reports positive
// relevance scores, no negation needed as spec §4.2 requires for a raw
// BM25 distance).
func (b *BleveIndex) Search(ctx context.Context, expression string, topK int) ([]retrieval.LexicalHit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if strings.TrimSpace(expression) == "" {
		return []retrieval.LexicalHit{}, nil
	}

	matchQuery := bleve.NewMatchQuery(expression)
	matchQuery.SetField("content")

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = topK

	result, err := b.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]retrieval.LexicalHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, retrieval.LexicalHit{ChunkID: hit.ID, Score: hit.Score})
	}
	return hits, nil
}

// Delete removes chunks from the index by id.
func (b *BleveIndex) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, id := range chunkIDs {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// AllIDs returns every indexed chunk id, used for store/index consistency
// checks between the SQLite chunk table and this index.
func (b *BleveIndex) AllIDs() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	docCount, _ := b.index.DocCount()
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(docCount)
	req.Fields = []string{}

	result, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search for all IDs: %w", err)
	}

	ids := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// DocCount returns the number of indexed chunks.
func (b *BleveIndex) DocCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}
	count, _ := b.index.DocCount()
	return int(count)
}

// Close releases the index's resources.
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

var _ retrieval.LexicalIndex = (*BleveIndex)(nil)

func tokenizerConstructor(config map[string]any, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &searchlayerTokenizer{}, nil
}

type searchlayerTokenizer struct{}

func (t *searchlayerTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := Tokenize(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0

	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(token))
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
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}

	return result
}

func stopFilterConstructor(config map[string]any, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &searchlayerStopFilter{stopWords: buildStopWordSet(DefaultStopWords)}, nil
}

type searchlayerStopFilter struct {
	stopWords map[string]struct{}
}

func (f *searchlayerStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		term := strings.ToLower(string(token.Term))
		if _, isStop := f.stopWords[term]; !isStop {
			result = append(result, token)
		}
	}
	return result
}
