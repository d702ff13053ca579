package research

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mlange/insight/pkg/profiles"
)

// Plan asks the reasoner to decompose the question into searchable
// sub-questions. The loop must never stall for lack of something to search,
// so every failure mode (call error, unparsable response, missing or empty
// subqueries field) falls back to the original question verbatim.
func Plan(ctx context.Context, r Reasoner, profile *profiles.Profile, question string, logger *slog.Logger) []string {
	fallback := []string{question}

	resp, err := r.GenerateJSON(ctx, profile.AssistantSystemPrompt, profile.PlanPrompt(question))
	if err != nil {
		logger.Error("planning call failed, falling back to the original question", "error", err)
		return fallback
	}

	var parsed struct {
		Subqueries []any `json:"subqueries"`
	}
	if err := json.Unmarshal([]byte(resp), &parsed); err != nil {
		logger.Error("failed to decode planning response, falling back to the original question", "error", err)
		return fallback
	}

	subqueries := filterStrings(parsed.Subqueries)
	if len(subqueries) == 0 {
		logger.Warn("planning response had no usable subqueries, falling back to the original question")
		return fallback
	}

	logger.Info("generated initial sub-questions", "count", len(subqueries))
	return subqueries
}

// filterStrings keeps the non-blank string entries of a loosely-typed list.
func filterStrings(items []any) []string {
	var out []string
	for _, item := range items {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
