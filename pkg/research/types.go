// Package research implements the iterative research loop: plan sub-questions,
// search the web, accumulate and deduplicate evidence, reflect on sufficiency,
// and converge to the final synthesis prompt.
package research

import (
	"context"
	"errors"
	"time"
)

// ErrNoEvidence is returned when a run finishes without collecting a single
// evidence record. It is the only run-ending error the loop produces; every
// collaborator failure resolves to a fallback instead.
var ErrNoEvidence = errors.New("no evidence collected")

// Searcher is the web search collaborator. It returns the provider's raw
// result objects; implementations report transport or decoding problems via
// err, and the engine treats a failed search the same as an empty one.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]map[string]any, error)
}

// Reasoner makes a single structured-output LLM call and returns the raw
// response text, expected to be one JSON object.
type Reasoner interface {
	GenerateJSON(ctx context.Context, system, prompt string) (string, error)
}

// EvidenceRecord is one normalized unit of retrieved information, keyed by
// its source URL.
type EvidenceRecord struct {
	SourceQuery string `json:"subquery"`
	SourceURL   string `json:"url"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Snippet     string `json:"snippet"`
}

// Verdict is the outcome of one reflection pass.
type Verdict struct {
	CanAnswer      bool
	IrrelevantURLs map[string]bool
	NewSubqueries  []string
}

// Config holds the per-run tunables. Zero values fall back to the defaults
// below via normalize.
type Config struct {
	MaxIterations int
	SearchCount   int
	// SearchPacing is a courtesy delay between consecutive search calls to
	// throttle the provider. It has no bearing on correctness.
	SearchPacing       time.Duration
	ContextBudget      int
	SummaryLimit       int
	MinAnalysisRecords int
}

const (
	defaultMaxIterations      = 3
	defaultSearchCount        = 5
	defaultContextBudget      = 10000
	defaultSummaryLimit       = 250
	defaultMinAnalysisRecords = 4
)

func (c Config) normalize() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = defaultMaxIterations
	}
	if c.SearchCount <= 0 {
		c.SearchCount = defaultSearchCount
	}
	if c.ContextBudget <= 0 {
		c.ContextBudget = defaultContextBudget
	}
	if c.SummaryLimit <= 0 {
		c.SummaryLimit = defaultSummaryLimit
	}
	if c.MinAnalysisRecords <= 0 {
		c.MinAnalysisRecords = defaultMinAnalysisRecords
	}
	return c
}

// Outcome is the result of a completed run.
type Outcome struct {
	SynthesisPrompt string
	Evidence        []EvidenceRecord
	AnalysisSummary string
	CanAnswer       bool
	Iterations      int
}

// State is a progress snapshot passed to the engine's update hook.
type State struct {
	Query           string   `json:"query"`
	Iteration       int      `json:"iteration"`
	MaxIterations   int      `json:"max_iterations"`
	EvidenceCount   int      `json:"evidence_count"`
	SearchedQueries []string `json:"searched_queries"`
	CanAnswer       bool     `json:"can_answer"`
}
