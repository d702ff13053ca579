package research

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mlange/insight/pkg/profiles"
)

// Reflect asks the reasoner whether the collected evidence suffices, which
// sources to discard, and what to search next. Each field of the response is
// validated independently; a malformed field degrades to its zero value, and
// a failed call returns the zero verdict so the loop proceeds to its
// iteration-limit fallback instead of crashing.
func Reflect(ctx context.Context, r Reasoner, profile *profiles.Profile, question, boundedContext string, logger *slog.Logger) Verdict {
	verdict := Verdict{IrrelevantURLs: make(map[string]bool)}

	resp, err := r.GenerateJSON(ctx, profile.AssistantSystemPrompt, profile.ReflectionPrompt(question, boundedContext))
	if err != nil {
		logger.Error("reflection call failed, keeping default verdict", "error", err)
		return verdict
	}

	var parsed struct {
		CanAnswer      json.RawMessage `json:"can_answer"`
		IrrelevantURLs json.RawMessage `json:"irrelevant_urls"`
		NewSubqueries  json.RawMessage `json:"new_subqueries"`
	}
	if err := json.Unmarshal([]byte(resp), &parsed); err != nil {
		logger.Error("failed to decode reflection response, keeping default verdict", "error", err)
		return verdict
	}

	if len(parsed.CanAnswer) > 0 {
		var b bool
		if err := json.Unmarshal(parsed.CanAnswer, &b); err != nil {
			logger.Warn("can_answer is not a boolean, defaulting to false", "raw", string(parsed.CanAnswer))
		} else {
			verdict.CanAnswer = b
		}
	}

	if len(parsed.IrrelevantURLs) > 0 {
		var items []any
		if err := json.Unmarshal(parsed.IrrelevantURLs, &items); err != nil {
			logger.Warn("irrelevant_urls is not a list, defaulting to empty", "raw", string(parsed.IrrelevantURLs))
		} else {
			for _, url := range filterStrings(items) {
				verdict.IrrelevantURLs[url] = true
			}
		}
	}

	if len(parsed.NewSubqueries) > 0 {
		var items []any
		if err := json.Unmarshal(parsed.NewSubqueries, &items); err != nil {
			logger.Warn("new_subqueries is not a list, defaulting to empty", "raw", string(parsed.NewSubqueries))
		} else {
			verdict.NewSubqueries = filterStrings(items)
		}
	}

	return verdict
}
