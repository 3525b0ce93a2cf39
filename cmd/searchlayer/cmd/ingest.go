package cmd

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aineshm/searchlayer/internal/config"
	"github.com/aineshm/searchlayer/internal/domain"
	"github.com/aineshm/searchlayer/internal/output"
)

// ingestChunk is one normalized chunk as produced by the upstream
// ingestion/chunking collaborator (spec §6 corpus input interface).
type ingestChunk struct {
	ChunkID     string  `json:"chunk_id"`
	Text        string  `json:"text"`
	StartOffset int     `json:"start_offset"`
	EndOffset   int     `json:"end_offset"`
	Page        *int    `json:"page,omitempty"`
	Section     *string `json:"section,omitempty"`
}

// ingestDocument is one line of the ingest file: a document plus its
// already-chunked contents.
type ingestDocument struct {
	SourcePath string        `json:"source_path"`
	SourceType string        `json:"source_type"`
	Title      string        `json:"title"`
	Chunks     []ingestChunk `json:"chunks"`
}

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <chunks.jsonl>",
		Short: "Load pre-chunked documents into the store",
		Long: `ingest consumes the corpus input interface (spec §6): a file of
one JSON object per line, each naming a document's source_path,
source_type, title, and its already-normalized chunks (chunk_id, text,
start_offset, end_offset, optional page/section).

Chunking and normalization happen upstream of this tool; ingest only
persists what it is handed and reports an ingest summary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args[0])
		},
	}
	return cmd
}

func runIngest(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open ingest file: %w", err)
	}
	defer f.Close()

	summary := domain.IngestSummary{}
	ctx := cmd.Context()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var doc ingestDocument
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			summary.DocumentsSkipped++
			summary.SkipReasons = append(summary.SkipReasons, fmt.Sprintf("line %d: invalid json: %v", lineNo, err))
			continue
		}

		if reason, skip := rejectDocument(cfg, doc); skip {
			summary.DocumentsSkipped++
			summary.SkipReasons = append(summary.SkipReasons, fmt.Sprintf("%s: %s", doc.SourcePath, reason))
			continue
		}

		contentHash := hashChunks(doc.Chunks)
		inserted, isNew, err := a.store.InsertDocument(ctx, domain.Document{
			SourcePath:  doc.SourcePath,
			SourceType:  doc.SourceType,
			Title:       doc.Title,
			ContentHash: contentHash,
		})
		if err != nil {
			return fmt.Errorf("insert document %s: %w", doc.SourcePath, err)
		}
		if isNew {
			summary.DocumentsAdded++
		} else {
			summary.DocumentsAlreadyKnown++
		}

		chunks := make([]domain.Chunk, 0, len(doc.Chunks))
		for _, c := range doc.Chunks {
			chunks = append(chunks, domain.Chunk{
				ChunkID:     c.ChunkID,
				DocID:       inserted.DocID,
				ChunkText:   c.Text,
				StartOffset: c.StartOffset,
				EndOffset:   c.EndOffset,
				Page:        c.Page,
				Section:     c.Section,
			})
		}
		if err := a.store.InsertChunks(ctx, chunks); err != nil {
			return fmt.Errorf("insert chunks for %s: %w", doc.SourcePath, err)
		}
		summary.ChunksAdded += len(chunks)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ingest file: %w", err)
	}

	out := output.New(cmd.OutOrStdout())
	out.Success(fmt.Sprintf("ingested %d document(s), %d chunk(s)", summary.DocumentsAdded, summary.ChunksAdded))
	if summary.DocumentsSkipped > 0 {
		out.Warning(fmt.Sprintf("skipped %d document(s)", summary.DocumentsSkipped))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// rejectDocument applies the ingestion advisory limits from config (spec
// §6 "Ingestion advisory"): a blocked file extension or a document whose
// total chunk text exceeds max_doc_bytes is skipped rather than failing
// the whole ingest run (spec §7: "Skip + counted reason in ingest
// summary").
func rejectDocument(cfg *config.Config, doc ingestDocument) (string, bool) {
	ext := strings.ToLower(filepath.Ext(doc.SourcePath))
	for _, blocked := range cfg.Ingestion.BlockedSuffixes {
		if ext == blocked {
			return fmt.Sprintf("blocked suffix %q", ext), true
		}
	}

	var total int64
	for _, c := range doc.Chunks {
		total += int64(len(c.Text))
	}
	if cfg.Ingestion.MaxDocBytes > 0 && total > cfg.Ingestion.MaxDocBytes {
		return fmt.Sprintf("document exceeds max_doc_bytes (%d > %d)", total, cfg.Ingestion.MaxDocBytes), true
	}
	return "", false
}

func hashChunks(chunks []ingestChunk) string {
	h := sha256.New()
	for _, c := range chunks {
		h.Write([]byte(c.ChunkID))
		h.Write([]byte{0})
		h.Write([]byte(c.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

