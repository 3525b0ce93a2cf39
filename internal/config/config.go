// Package config loads the sealed Config (spec §6's configuration surface)
// from layered sources: hardcoded defaults, an optional YAML file, then
// SEARCHLAYER_* environment overrides, in increasing precedence. Grounded
// on the teacher's internal/config/config.go layered-load pattern and
// internal/router/policy.go's strict-decode convention.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete, sealed configuration for the search layer.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Answer    AnswerConfig    `yaml:"answer"`
	Verifier  VerifierConfig  `yaml:"verifier"`
	Router    RouterConfig    `yaml:"router"`
}

// StorageConfig configures where the Store's files live (spec §6 "Storage").
type StorageConfig struct {
	DataDir       string `yaml:"data_dir"`
	DBPath        string `yaml:"db_path"`
	IndexDir      string `yaml:"index_dir"`
	IndexFilePath string `yaml:"index_file_path"`
}

// IngestionConfig holds ingestion advisory limits (spec §6 "Ingestion
// advisory"); the ingestion pipeline itself is an external collaborator,
// but the Store/CLI surface these knobs since they bound what it accepts.
type IngestionConfig struct {
	ChunkSize       int      `yaml:"chunk_size"`
	ChunkOverlap    int      `yaml:"chunk_overlap"`
	MaxDocBytes     int64    `yaml:"max_doc_bytes"`
	MaxPDFPages     int      `yaml:"max_pdf_pages"`
	BlockedSuffixes []string `yaml:"blocked_suffixes"`
	NormalizeText   bool     `yaml:"normalize_text"`
}

// EmbeddingConfig configures the embedder (spec §6 "Embedding").
type EmbeddingConfig struct {
	Backend       string `yaml:"backend"`
	ModelName     string `yaml:"model_name"`
	ModelRevision string `yaml:"model_revision"`
	EmbedDim      int    `yaml:"embed_dim"`
	EmbedBatchSize int   `yaml:"embed_batch_size"`
}

// RetrievalConfig configures hybrid retrieval (spec §6 "Retrieval",
// spec.md §4.4 "rrf_k default 60").
type RetrievalConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	RRFK        int `yaml:"rrf_k"`
}

// AnswerConfig configures the extractive synthesizer's acceptance floors
// (spec §6 "Answering thresholds").
type AnswerConfig struct {
	MinTopicOverlap       int     `yaml:"answer_min_topic_overlap"`
	MinSupportability     float64 `yaml:"answer_min_supportability"`
	MinCitationSpanQuality float64 `yaml:"answer_min_citation_span_quality"`
}

// VerifierConfig configures the verifier's gate floors (spec §6 "Verifier
// thresholds").
type VerifierConfig struct {
	QueryAlignmentMin      float64 `yaml:"query_alignment_min"`
	CriticalCoverageMin    float64 `yaml:"critical_coverage_min"`
	ClaimSupportMin        float64 `yaml:"claim_support_min"`
	CitationSpanQualityMin float64 `yaml:"citation_span_quality_min"`
	AggregateMin           float64 `yaml:"aggregate_min"`
}

// RouterConfig points at an optional external policy table (spec §6
// "Router: optional policy file path", spec.md §4.1/§9).
type RouterConfig struct {
	PolicyFile string `yaml:"policy_file"`
}

var defaultBlockedSuffixes = []string{".exe", ".bin", ".so", ".dll", ".dylib"}

// Default returns the configuration's hardcoded defaults.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir:       defaultDataDir(),
			DBPath:        "searchlayer.db",
			IndexDir:      "index",
			IndexFilePath: "index/vectors.hnsw",
		},
		Ingestion: IngestionConfig{
			ChunkSize:       1500,
			ChunkOverlap:    200,
			MaxDocBytes:     20 * 1024 * 1024,
			MaxPDFPages:     500,
			BlockedSuffixes: defaultBlockedSuffixes,
			NormalizeText:   true,
		},
		Embedding: EmbeddingConfig{
			Backend:        "hash",
			ModelName:      "static-256",
			ModelRevision:  "v1",
			EmbedDim:       256,
			EmbedBatchSize: 32,
		},
		Retrieval: RetrievalConfig{
			DefaultTopK: 12,
			RRFK:        60,
		},
		Answer: AnswerConfig{
			MinTopicOverlap:        1,
			MinSupportability:      0.35,
			MinCitationSpanQuality: 0.40,
		},
		Verifier: VerifierConfig{
			QueryAlignmentMin:      0.30,
			CriticalCoverageMin:    0.50,
			ClaimSupportMin:        0.60,
			CitationSpanQualityMin: 0.45,
			AggregateMin:           0.55,
		},
		Router: RouterConfig{PolicyFile: ""},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".searchlayer")
	}
	return filepath.Join(home, ".searchlayer")
}

// Load builds a Config from defaults, an optional YAML file at path (skipped
// if path is empty or the file doesn't exist), and SEARCHLAYER_* environment
// overrides, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadYAML strict-decodes path into cfg, rejecting unknown keys so a typo
// in the config file surfaces as an error rather than a silently ignored
// field (same convention as internal/router.LoadPolicy).
func (c *Config) loadYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies SEARCHLAYER_* environment variable overrides,
// the highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SEARCHLAYER_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("SEARCHLAYER_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("SEARCHLAYER_INDEX_DIR"); v != "" {
		c.Storage.IndexDir = v
	}
	if v := os.Getenv("SEARCHLAYER_INDEX_FILE_PATH"); v != "" {
		c.Storage.IndexFilePath = v
	}

	if v := os.Getenv("SEARCHLAYER_EMBED_BACKEND"); v != "" {
		c.Embedding.Backend = v
	}
	if v := os.Getenv("SEARCHLAYER_EMBED_MODEL_NAME"); v != "" {
		c.Embedding.ModelName = v
	}
	if v := os.Getenv("SEARCHLAYER_EMBED_MODEL_REVISION"); v != "" {
		c.Embedding.ModelRevision = v
	}
	if v := os.Getenv("SEARCHLAYER_EMBED_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Embedding.EmbedDim = n
		}
	}
	if v := os.Getenv("SEARCHLAYER_EMBED_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Embedding.EmbedBatchSize = n
		}
	}

	if v := os.Getenv("SEARCHLAYER_DEFAULT_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retrieval.DefaultTopK = n
		}
	}
	if v := os.Getenv("SEARCHLAYER_RRF_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retrieval.RRFK = n
		}
	}

	if v := os.Getenv("SEARCHLAYER_ROUTER_POLICY_FILE"); v != "" {
		c.Router.PolicyFile = v
	}
}

// Validate checks invariants that would otherwise surface as confusing
// downstream failures (a zero chunk size wedging the chunker, an
// out-of-range threshold silently always-passing or always-failing a gate).
func (c *Config) Validate() error {
	if c.Ingestion.ChunkSize <= 0 {
		return fmt.Errorf("ingestion.chunk_size must be positive, got %d", c.Ingestion.ChunkSize)
	}
	if c.Ingestion.ChunkOverlap < 0 || c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return fmt.Errorf("ingestion.chunk_overlap must be in [0, chunk_size), got %d", c.Ingestion.ChunkOverlap)
	}
	if c.Embedding.EmbedDim <= 0 {
		return fmt.Errorf("embedding.embed_dim must be positive, got %d", c.Embedding.EmbedDim)
	}
	if c.Embedding.EmbedBatchSize <= 0 {
		return fmt.Errorf("embedding.embed_batch_size must be positive, got %d", c.Embedding.EmbedBatchSize)
	}
	if c.Retrieval.DefaultTopK <= 0 {
		return fmt.Errorf("retrieval.default_top_k must be positive, got %d", c.Retrieval.DefaultTopK)
	}
	if c.Retrieval.RRFK <= 0 {
		return fmt.Errorf("retrieval.rrf_k must be positive, got %d", c.Retrieval.RRFK)
	}

	for name, v := range map[string]float64{
		"answer.answer_min_topic_overlap":             float64(c.Answer.MinTopicOverlap),
		"answer.answer_min_supportability":             c.Answer.MinSupportability,
		"answer.answer_min_citation_span_quality":      c.Answer.MinCitationSpanQuality,
		"verifier.query_alignment_min":                 c.Verifier.QueryAlignmentMin,
		"verifier.critical_coverage_min":               c.Verifier.CriticalCoverageMin,
		"verifier.claim_support_min":                   c.Verifier.ClaimSupportMin,
		"verifier.citation_span_quality_min":           c.Verifier.CitationSpanQualityMin,
		"verifier.aggregate_min":                       c.Verifier.AggregateMin,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, v)
		}
	}

	if c.Embedding.Backend != "hash" {
		return fmt.Errorf("embedding.backend must be 'hash', got %q", c.Embedding.Backend)
	}

	for _, sfx := range c.Ingestion.BlockedSuffixes {
		if !strings.HasPrefix(sfx, ".") {
			return fmt.Errorf("ingestion.blocked_suffixes entries must start with '.', got %q", sfx)
		}
	}

	return nil
}
