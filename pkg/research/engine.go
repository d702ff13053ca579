package research

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mlange/insight/pkg/profiles"
)

// Engine drives one research run: plan, search, accumulate, reflect, repeat
// until the reflector is satisfied or the iteration budget runs out, then
// assemble the synthesis prompt. An Engine instance owns all of its run's
// mutable state; concurrent runs each need their own Engine.
type Engine struct {
	Cfg      Config
	Profile  *profiles.Profile
	Searcher Searcher
	Reasoner Reasoner
	Logger   *slog.Logger

	// OnUpdate, when set, receives a progress snapshot at each iteration
	// boundary. Used by the server to persist run state.
	OnUpdate func(State)
}

// NewEngine wires an engine for one run.
func NewEngine(cfg Config, profile *profiles.Profile, searcher Searcher, reasoner Reasoner, logger *slog.Logger) (*Engine, error) {
	if profile == nil {
		return nil, fmt.Errorf("nil industry profile")
	}
	if searcher == nil || reasoner == nil {
		return nil, fmt.Errorf("engine requires both a searcher and a reasoner")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Cfg:      cfg.normalize(),
		Profile:  profile,
		Searcher: searcher,
		Reasoner: reasoner,
		Logger:   logger,
	}, nil
}

// Run executes the loop for query and returns the assembled outcome. The only
// error conditions are context cancellation and ErrNoEvidence; collaborator
// failures are absorbed by the documented fallbacks along the way.
func (e *Engine) Run(ctx context.Context, query string) (*Outcome, error) {
	e.Logger.Info("starting research run", "industry", e.Profile.Name, "query", query)

	memory := NewMemory()
	history := make(map[string]bool)
	var pending []string
	var searched []string
	canAnswer := false
	iterations := 0

	for i := 0; i < e.Cfg.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.Logger.Info("starting iteration", "iteration", i+1, "max", e.Cfg.MaxIterations)

		if i == 0 {
			pending = Plan(ctx, e.Reasoner, e.Profile, query, e.Logger)
		} else if len(pending) == 0 {
			e.Logger.Info("reflection suggested no new sub-questions, ending iteration cycle")
			break
		}

		var toSearch []string
		for _, q := range pending {
			if q != "" && !history[q] {
				history[q] = true
				toSearch = append(toSearch, q)
			}
		}
		if len(toSearch) == 0 && i > 0 {
			e.Logger.Info("all suggested sub-questions already searched, moving to reflection")
		}

		newCount := 0
		for j, subquery := range toSearch {
			if j > 0 && e.Cfg.SearchPacing > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(e.Cfg.SearchPacing):
				}
			}

			searched = append(searched, subquery)

			raw, err := e.Searcher.Search(ctx, subquery, e.Cfg.SearchCount)
			if err != nil {
				// Indistinguishable from a genuinely empty result set.
				e.Logger.Error("web search failed", "subquery", subquery, "error", err)
				raw = nil
			}
			for _, rec := range Ingest(subquery, raw) {
				if memory.Append(rec) {
					newCount++
				}
			}
		}
		e.Logger.Info("search pass complete", "new_results", newCount, "memory_size", memory.Len())

		boundedCtx := memory.BoundedContext(e.Cfg.ContextBudget, e.Cfg.SummaryLimit)
		verdict := Reflect(ctx, e.Reasoner, e.Profile, query, boundedCtx, e.Logger)

		// Prune before checking the verdict: a final synthesis must not carry
		// evidence the reflector explicitly flagged as irrelevant.
		if len(verdict.IrrelevantURLs) > 0 {
			before := memory.Len()
			memory.PruneURLs(verdict.IrrelevantURLs)
			e.Logger.Info("pruned irrelevant evidence", "before", before, "after", memory.Len())
		}

		canAnswer = verdict.CanAnswer
		pending = verdict.NewSubqueries
		iterations = i + 1

		e.notify(State{
			Query:           query,
			Iteration:       iterations,
			MaxIterations:   e.Cfg.MaxIterations,
			EvidenceCount:   memory.Len(),
			SearchedQueries: searched,
			CanAnswer:       canAnswer,
		})

		if canAnswer {
			e.Logger.Info("reflection judged the evidence sufficient")
			break
		}
		if i == e.Cfg.MaxIterations-1 {
			e.Logger.Warn("iteration budget exhausted, proceeding to synthesis with possibly incomplete evidence")
		}
	}

	if memory.Len() == 0 {
		e.Logger.Error("no evidence collected, cannot produce a report", "iterations", iterations)
		return nil, ErrNoEvidence
	}

	analysis := ""
	if memory.Len() >= e.Cfg.MinAnalysisRecords {
		e.Logger.Info("enough evidence collected, running data scan", "records", memory.Len())
		analysis = Analyze(memory.Summaries(), e.Profile.AnalyzerKeywords)
	} else {
		e.Logger.Info("too little evidence for a meaningful scan, skipping analysis")
	}

	return &Outcome{
		SynthesisPrompt: assemble(e.Profile, query, memory, analysis),
		Evidence:        memory.Records(),
		AnalysisSummary: analysis,
		CanAnswer:       canAnswer,
		Iterations:      iterations,
	}, nil
}

// assemble builds the final synthesis prompt from the full evidence context
// and the optional analysis summary. An analysis that found nothing is
// omitted rather than surfaced as a hollow section.
func assemble(profile *profiles.Profile, query string, memory *Memory, analysis string) string {
	section := ""
	if analysis != "" && analysis != NoQuantifiableData {
		section = fmt.Sprintf("\n\nSupplementary data scan summary:\n%s\n", analysis)
	}
	return profile.SynthesisPrompt(query, memory.FullContext(), section)
}

func (e *Engine) notify(state State) {
	if e.OnUpdate != nil {
		e.OnUpdate(state)
	}
}
