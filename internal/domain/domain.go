// Package domain holds the core records shared by every stage of the
// query-time pipeline: store rows, transient retrieval values, and the
// draft/verification records produced while answering a query.
package domain

import "time"

// ContentType mirrors the teacher's store content classification, kept
// for chunks that originate from code-shaped sources.
type ContentType string

const (
	ContentTypeCode     ContentType = "code"
	ContentTypeMarkdown ContentType = "markdown"
	ContentTypeText     ContentType = "text"
)

// Document is an ingested source file. doc_id is derived from ContentHash
// so re-ingesting the same bytes is a no-op.
type Document struct {
	DocID       string
	SourcePath  string
	SourceType  string
	Title       string
	ContentHash string
	CreatedAt   time.Time
}

// Chunk is a contiguous text window from a Document, the unit of retrieval.
type Chunk struct {
	ChunkID     string
	DocID       string
	ChunkText   string
	StartOffset int
	EndOffset   int
	Page        *int
	Section     *string
}

// Embedding is one dense vector row bound to a Chunk under a given model
// identity. VectorID indexes into the vector index file in insertion order.
type Embedding struct {
	VectorID  int
	ChunkID   string
	ModelName string
	Dim       int
	Vector    []float32
}

// IndexManifest binds a built vector index snapshot to the chunk set it was
// built from. At most one manifest is Active at a time; the retriever
// refuses to serve vector results when the manifest's snapshot hash no
// longer matches the store's current chunk set.
type IndexManifest struct {
	IndexID           int64
	ModelName         string
	Dim               int
	ChunkCount        int
	ChunkSnapshotHash string
	IndexFilePath     string
	Active            bool
	CreatedAt         time.Time
}

// ScoredChunk is a transient, per-query retrieval result.
type ScoredChunk struct {
	ChunkID    string
	DocID      string
	Score      float64
	ChunkText  string
	SourcePath string
	Page       *int
}

// Citation points at the span of a ScoredChunk's text that supports a Claim.
type Citation struct {
	ClaimID        string
	ChunkID        string
	SourcePath     string
	Page           *int
	QuoteSpanStart int
	QuoteSpanEnd   int
}

// Claim is one assertion in a DraftAnswer, backed by one or more Citations.
type Claim struct {
	ClaimID              string
	Text                 string
	Citations            []Citation
	OverlapScore         float64
	CitationSpanQuality  float64
	SourceCount          int
	SupportabilityScore  float64
}

// DraftAnswer is the Extractive Synthesizer's output: a deterministic
// bullet list of Claims plus the queries that produced the evidence.
type DraftAnswer struct {
	AnswerText      string
	Claims          []Claim
	SearchedQueries []string
}

// VerdictCode is the Verifier's terminal classification of a draft.
type VerdictCode string

const (
	VerdictSupported        VerdictCode = "supported"
	VerdictQueryMismatch    VerdictCode = "query_mismatch"
	VerdictConflictDetected VerdictCode = "conflict_detected"
	VerdictCitationGap      VerdictCode = "citation_gap"
	VerdictUnsupportedClaim VerdictCode = "unsupported_claim"
	VerdictInsufficientEvid VerdictCode = "insufficient_evidence"
)

// VerificationIssue records one specific defect found while scoring a claim.
type VerificationIssue struct {
	Type    string
	ClaimID string
	Detail  string
}

// VerificationResult is the Verifier's full output for one draft.
type VerificationResult struct {
	Passed         bool
	VerdictCode    VerdictCode
	Confidence     float64
	Abstain        bool
	AbstainReason  string
	Issues         []VerificationIssue
	Conflicts      []string
	DecisionPath   []string
	SearchedQueries []string
}

// RepairOutcome records what happened during a bounded repair attempt.
type RepairOutcome string

const (
	RepairNone             RepairOutcome = "none"
	RepairSkippedIneligible RepairOutcome = "skipped_ineligible"
	RepairNoop             RepairOutcome = "noop"
	RepairSuccessful       RepairOutcome = "successful"
	RepairHarmful          RepairOutcome = "harmful"
	RepairUnsuccessful     RepairOutcome = "unsuccessful"
)

// RunRecord is the append-only log of one completed query.
type RunRecord struct {
	RunID     string
	Query     string
	Intent    string
	ToolTrace []byte
	LatencyMS float64
	CreatedAt time.Time
}

// OrchestrationResult is the final value returned for one query.
type OrchestrationResult struct {
	Mode         string
	Intent       string
	Chunks       []ScoredChunk
	DraftAnswer  *DraftAnswer
	Verification *VerificationResult
	ToolTrace    map[string]any
	LatencyMS    float64
}

// IngestSummary is the `ingest` command's output (spec §6: "ingest
// (produces an ingest summary)"). Ingestion's own chunking/normalization
// is an external collaborator; this records what the Store did with the
// already-chunked documents handed to it.
type IngestSummary struct {
	DocumentsAdded        int      `json:"documents_added"`
	DocumentsAlreadyKnown int      `json:"documents_already_known"`
	ChunksAdded           int      `json:"chunks_added"`
	DocumentsSkipped      int      `json:"documents_skipped"`
	SkipReasons           []string `json:"skip_reasons,omitempty"`
}

// IndexSummary is the `index` command's output (spec §6: "index (produces
// an index summary + manifest)").
type IndexSummary struct {
	ChunksIndexedLexical int           `json:"chunks_indexed_lexical"`
	ChunksEmbedded       int           `json:"chunks_embedded"`
	VectorIndexSize      int           `json:"vector_index_size"`
	Manifest             IndexManifest `json:"manifest"`
}
