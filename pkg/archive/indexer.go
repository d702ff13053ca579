package archive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mlange/insight/pkg/research"
)

// Embedder produces vector embeddings for text chunks.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Splitter cuts long text into overlapping chunks for embedding.
type Splitter interface {
	SplitText(text string) ([]string, error)
}

// IndexEvidence chunks, embeds, and stores the evidence of a finished run.
// Each fragment carries the source URL, title, and originating sub-question
// as metadata, so the chat tools can recover provenance.
func IndexEvidence(ctx context.Context, store *EvidenceArchive, embedder Embedder, splitter Splitter, records []research.EvidenceRecord, logger *slog.Logger) error {
	if len(records) == 0 {
		return nil
	}

	var chunks []string
	var metadata []map[string]any
	for _, rec := range records {
		parts, err := splitter.SplitText(rec.Summary)
		if err != nil {
			return fmt.Errorf("failed to split evidence text: %w", err)
		}
		for _, part := range parts {
			chunks = append(chunks, part)
			metadata = append(metadata, map[string]any{
				"source":   rec.SourceURL,
				"title":    rec.Title,
				"subquery": rec.SourceQuery,
			})
		}
	}
	if len(chunks) == 0 {
		return nil
	}

	embeddings, err := embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return fmt.Errorf("failed to embed evidence chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	fragments := make([]Fragment, len(chunks))
	for i, chunk := range chunks {
		fragments[i] = Fragment{
			Content:   chunk,
			Metadata:  metadata[i],
			Embedding: embeddings[i],
		}
	}

	if err := store.AddFragments(ctx, fragments); err != nil {
		return fmt.Errorf("failed to store evidence fragments: %w", err)
	}

	logger.Info("archived run evidence", "records", len(records), "fragments", len(fragments))
	return nil
}
