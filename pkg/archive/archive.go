// Package archive stores collected evidence as embedded fragments in
// pgvector, so that finished research runs stay queryable for follow-up
// questions.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Fragment is one embedded chunk of evidence text with its source metadata.
type Fragment struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// EvidenceArchive handles the pgvector operations for one collection table.
type EvidenceArchive struct {
	pool      *pgxpool.Pool
	tableName string
}

// isValidTableName confines table names to safe identifier characters so the
// name can be interpolated into DDL/DML. Names must start with a lowercase
// letter or underscore and stay within PostgreSQL's 63-character limit.
func isValidTableName(name string) bool {
	matched, _ := regexp.MatchString(`^[a-z_][a-zA-Z0-9_]{0,62}$`, name)
	return matched
}

// New opens an archive over the given collection table.
func New(pool *pgxpool.Pool, tableName string) (*EvidenceArchive, error) {
	if !isValidTableName(tableName) {
		return nil, fmt.Errorf("invalid table name: must contain only alphanumeric characters and underscores, start with a letter or underscore, and be 1-63 characters long")
	}
	return &EvidenceArchive{
		pool:      pool,
		tableName: tableName,
	}, nil
}

// AddFragments inserts fragments with their embeddings in a single batch.
func (a *EvidenceArchive) AddFragments(ctx context.Context, fragments []Fragment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (content, metadata, embedding)
		VALUES ($1, $2, $3)
	`, pgx.Identifier{a.tableName}.Sanitize())

	batch := &pgx.Batch{}
	for _, frag := range fragments {
		metadataJSON, err := json.Marshal(frag.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		batch.Queue(query, frag.Content, metadataJSON, pgvector.NewVector(frag.Embedding))
	}

	br := a.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range fragments {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert fragment: %w", err)
		}
	}

	return nil
}

// ScoredFragment is a similarity search hit.
type ScoredFragment struct {
	Fragment Fragment
	Score    float64
}

// SimilaritySearch returns the topK fragments closest to queryEmbedding by
// cosine distance, optionally restricted to a single source URL.
func (a *EvidenceArchive) SimilaritySearch(ctx context.Context, queryEmbedding []float32, topK int, sourceFilter string) ([]ScoredFragment, error) {
	var query string
	var args []any

	embedding := pgvector.NewVector(queryEmbedding)

	if sourceFilter != "" {
		query = fmt.Sprintf(`
			SELECT id, content, metadata, 1 - (embedding <=> $1) as similarity
			FROM %s
			WHERE metadata->>'source' = $2
			ORDER BY embedding <=> $1
			LIMIT $3
		`, pgx.Identifier{a.tableName}.Sanitize())
		args = []any{embedding, sourceFilter, topK}
	} else {
		query = fmt.Sprintf(`
			SELECT id, content, metadata, 1 - (embedding <=> $1) as similarity
			FROM %s
			ORDER BY embedding <=> $1
			LIMIT $2
		`, pgx.Identifier{a.tableName}.Sanitize())
		args = []any{embedding, topK}
	}

	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var results []ScoredFragment
	for rows.Next() {
		var frag Fragment
		var metadataJSON []byte
		var similarity float64

		if err := rows.Scan(&frag.ID, &frag.Content, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &frag.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}

		results = append(results, ScoredFragment{Fragment: frag, Score: similarity})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// GetBySource retrieves every fragment collected from one source URL.
func (a *EvidenceArchive) GetBySource(ctx context.Context, source string) ([]Fragment, error) {
	query := fmt.Sprintf(`
		SELECT id, content, metadata
		FROM %s
		WHERE metadata->>'source' = $1
	`, pgx.Identifier{a.tableName}.Sanitize())

	return a.queryFragments(ctx, query, source)
}

// GetByMetadata retrieves fragments matching a JSON filter. The filter
// supports the logical operators $and, $or and $not; plain keys are
// containment matches against the metadata column.
func (a *EvidenceArchive) GetByMetadata(ctx context.Context, filter map[string]any) ([]Fragment, error) {
	var args []any
	whereClause, err := a.buildMetadataQuery(filter, &args)
	if err != nil {
		return nil, fmt.Errorf("failed to build metadata query: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, content, metadata
		FROM %s
		WHERE %s
	`, pgx.Identifier{a.tableName}.Sanitize(), whereClause)

	return a.queryFragments(ctx, query, args...)
}

func (a *EvidenceArchive) queryFragments(ctx context.Context, query string, args ...any) ([]Fragment, error) {
	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var fragments []Fragment
	for rows.Next() {
		var frag Fragment
		var metadataJSON []byte

		if err := rows.Scan(&frag.ID, &frag.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &frag.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}

		fragments = append(fragments, frag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return fragments, nil
}

// buildMetadataQuery recursively renders filter into a WHERE clause,
// appending parameter values to args.
func (a *EvidenceArchive) buildMetadataQuery(filter map[string]any, args *[]any) (string, error) {
	if len(filter) == 0 {
		return "TRUE", nil
	}

	var conditions []string

	for key, value := range filter {
		switch key {
		case "$and", "$or":
			list, ok := value.([]any)
			if !ok {
				return "", fmt.Errorf("value for %s must be a list of conditions", key)
			}
			var subConditions []string
			for _, item := range list {
				subMap, ok := item.(map[string]any)
				if !ok {
					return "", fmt.Errorf("item in %s list must be a JSON object", key)
				}
				subQuery, err := a.buildMetadataQuery(subMap, args)
				if err != nil {
					return "", err
				}
				subConditions = append(subConditions, "("+subQuery+")")
			}

			if len(subConditions) == 0 {
				continue
			}

			op := " AND "
			if key == "$or" {
				op = " OR "
			}
			conditions = append(conditions, "("+strings.Join(subConditions, op)+")")

		case "$not":
			subMap, ok := value.(map[string]any)
			if !ok {
				return "", fmt.Errorf("value for $not must be a JSON object")
			}
			subQuery, err := a.buildMetadataQuery(subMap, args)
			if err != nil {
				return "", err
			}
			conditions = append(conditions, "NOT ("+subQuery+")")

		default:
			// Plain key: containment match, metadata @> '{"key": value}'.
			pair := map[string]any{key: value}
			jsonBytes, err := json.Marshal(pair)
			if err != nil {
				return "", fmt.Errorf("failed to marshal metadata pair: %w", err)
			}
			*args = append(*args, jsonBytes)
			conditions = append(conditions, fmt.Sprintf("metadata @> $%d", len(*args)))
		}
	}

	if len(conditions) == 0 {
		return "TRUE", nil
	}

	return strings.Join(conditions, " AND "), nil
}
