package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mlange/insight/pkg/archive"
	"github.com/mlange/insight/pkg/config"
	"github.com/mlange/insight/pkg/database"
	"github.com/mlange/insight/pkg/embeddings"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

// EvidenceToolset exposes the archived run evidence to the chat agent.
type EvidenceToolset struct {
	DB       *database.PostgresDB
	Embedder *embeddings.GoogleEmbedder
	config   *config.Config
}

func NewEvidenceToolset(db *database.PostgresDB, embedder *embeddings.GoogleEmbedder, config *config.Config) *EvidenceToolset {
	return &EvidenceToolset{
		DB:       db,
		Embedder: embedder,
		config:   config,
	}
}

func (t *EvidenceToolset) Name() string {
	return "evidence_tools"
}

func (t *EvidenceToolset) Tools(ctx agent.ReadonlyContext) ([]tool.Tool, error) {
	searchTool, err := functiontool.New[SearchEvidenceArgs, SearchEvidenceResp](
		functiontool.Config{
			Name:        "search_evidence",
			Description: "Search the archived research evidence using semantic search.",
		},
		t.searchEvidenceTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search tool: %w", err)
	}

	findBySourceTool, err := functiontool.New[FindSourceArgs, FindSourceResp](
		functiontool.Config{
			Name:        "find_evidence_by_source",
			Description: "Find all archived evidence collected from a specific source URL.",
		},
		t.findEvidenceBySourceTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create find_by_source tool: %w", err)
	}

	findByMetadataTool, err := functiontool.New[FindMetadataArgs, FindMetadataResp](
		functiontool.Config{
			Name:        "find_evidence_by_metadata",
			Description: "Find archived evidence using logical filters ($and, $or, $not) on metadata.",
		},
		t.findEvidenceByMetadataTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create find_by_metadata tool: %w", err)
	}

	return []tool.Tool{searchTool, findBySourceTool, findByMetadataTool}, nil
}

type SearchEvidenceArgs struct {
	Query  string `json:"query" description:"The search query"`
	TopK   int    `json:"topK,omitempty" description:"Number of results to return (default 5)"`
	Source string `json:"source,omitempty" description:"Optional source URL filter"`
}

type SearchEvidenceResp struct {
	Results string `json:"results"`
}

func (t *EvidenceToolset) searchEvidenceTool(ctx tool.Context, args SearchEvidenceArgs) (SearchEvidenceResp, error) {
	return t.SearchEvidence(ctx, args)
}

func (t *EvidenceToolset) SearchEvidence(ctx context.Context, args SearchEvidenceArgs) (SearchEvidenceResp, error) {
	if args.TopK == 0 {
		args.TopK = 5
	}

	slog.Info("searching archived evidence", "query", args.Query, "topK", args.TopK, "source", args.Source)

	queryEmbedding, err := t.Embedder.EmbedText(ctx, args.Query)
	if err != nil {
		return SearchEvidenceResp{}, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	store, err := archive.New(t.DB.Pool, t.config.CollectionName)
	if err != nil {
		return SearchEvidenceResp{}, fmt.Errorf("invalid collection name: %w", err)
	}

	results, err := store.SimilaritySearch(ctx, queryEmbedding, args.TopK, args.Source)
	if err != nil {
		return SearchEvidenceResp{}, fmt.Errorf("failed to search: %w", err)
	}

	var formatted []string
	for _, result := range results {
		source := "unknown"
		if s, ok := result.Fragment.Metadata["source"].(string); ok {
			source = s
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("[Source]: %s\n[Content]: %s", source, result.Fragment.Content))
		for k, v := range result.Fragment.Metadata {
			if k == "source" {
				continue
			}
			sb.WriteString(fmt.Sprintf("\n[%s]: %v", k, v))
		}
		formatted = append(formatted, sb.String())
	}

	return SearchEvidenceResp{Results: strings.Join(formatted, "\n\n")}, nil
}

type FindSourceArgs struct {
	Source string `json:"source" description:"The source URL to find evidence for"`
}

type FindSourceResp struct {
	Content string `json:"content"`
}

func (t *EvidenceToolset) findEvidenceBySourceTool(ctx tool.Context, args FindSourceArgs) (FindSourceResp, error) {
	return t.FindEvidenceBySource(ctx, args)
}

func (t *EvidenceToolset) FindEvidenceBySource(ctx context.Context, args FindSourceArgs) (FindSourceResp, error) {
	store, err := archive.New(t.DB.Pool, t.config.CollectionName)
	if err != nil {
		return FindSourceResp{}, fmt.Errorf("invalid collection name: %w", err)
	}

	results, err := store.GetBySource(ctx, args.Source)
	if err != nil {
		return FindSourceResp{}, fmt.Errorf("failed to find evidence: %w", err)
	}

	var formatted []string
	for _, result := range results {
		formatted = append(formatted, result.Content)
	}

	return FindSourceResp{Content: strings.Join(formatted, "\n\n")}, nil
}

type FindMetadataArgs struct {
	Filter map[string]any `json:"filter" description:"JSON filter object with logical operators ($and, $or, $not)"`
}

type FindMetadataResp struct {
	Content string `json:"content"`
}

func (t *EvidenceToolset) findEvidenceByMetadataTool(ctx tool.Context, args FindMetadataArgs) (FindMetadataResp, error) {
	return t.FindEvidenceByMetadata(ctx, args)
}

func (t *EvidenceToolset) FindEvidenceByMetadata(ctx context.Context, args FindMetadataArgs) (FindMetadataResp, error) {
	store, err := archive.New(t.DB.Pool, t.config.CollectionName)
	if err != nil {
		return FindMetadataResp{}, fmt.Errorf("invalid collection name: %w", err)
	}

	results, err := store.GetByMetadata(ctx, args.Filter)
	if err != nil {
		return FindMetadataResp{}, fmt.Errorf("failed to find evidence: %w", err)
	}

	var formatted []string
	for _, result := range results {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("[Content]: %s", result.Content))
		for k, v := range result.Metadata {
			sb.WriteString(fmt.Sprintf("\n[%s]: %v", k, v))
		}
		formatted = append(formatted, sb.String())
	}

	return FindMetadataResp{Content: strings.Join(formatted, "\n\n")}, nil
}
