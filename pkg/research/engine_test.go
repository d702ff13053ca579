package research

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// fakeSearcher serves canned results keyed by query and records every call.
type fakeSearcher struct {
	results map[string][]map[string]any
	err     error
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, count int) ([]map[string]any, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func hit(url, summary string) map[string]any {
	return map[string]any{"url": url, "name": "title of " + url, "summary": summary}
}

func plan(subqueries ...string) string {
	quoted := make([]string, len(subqueries))
	for i, q := range subqueries {
		quoted[i] = `"` + q + `"`
	}
	return `{"subqueries": [` + strings.Join(quoted, ", ") + `]}`
}

func verdict(canAnswer bool, irrelevant, next []string) string {
	quote := func(items []string) string {
		quoted := make([]string, len(items))
		for i, s := range items {
			quoted[i] = `"` + s + `"`
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	}
	answer := "false"
	if canAnswer {
		answer = "true"
	}
	return `{"can_answer": ` + answer + `, "irrelevant_urls": ` + quote(irrelevant) +
		`, "new_subqueries": ` + quote(next) + `}`
}

func newTestEngine(t *testing.T, cfg Config, s Searcher, r Reasoner) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, testProfile(t), s, r, discard())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func TestNewEngineValidation(t *testing.T) {
	s := &fakeSearcher{}
	r := &fakeReasoner{}
	if _, err := NewEngine(Config{}, nil, s, r, discard()); err == nil {
		t.Error("expected error for nil profile")
	}
	if _, err := NewEngine(Config{}, testProfile(t), nil, r, discard()); err == nil {
		t.Error("expected error for nil searcher")
	}
	if _, err := NewEngine(Config{}, testProfile(t), s, nil, discard()); err == nil {
		t.Error("expected error for nil reasoner")
	}
}

func TestRunSufficientOnFirstIteration(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]map[string]any{
		"sub a": {hit("http://a", "alpha facts")},
		"sub b": {hit("http://b", "beta facts")},
	}}
	reasoner := &fakeReasoner{responses: []string{
		plan("sub a", "sub b"),
		verdict(true, nil, nil),
	}}
	engine := newTestEngine(t, Config{MaxIterations: 1}, searcher, reasoner)

	out, err := engine.Run(context.Background(), "the question")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !out.CanAnswer || out.Iterations != 1 {
		t.Errorf("CanAnswer = %v, Iterations = %d, want true, 1", out.CanAnswer, out.Iterations)
	}
	if len(out.Evidence) != 2 {
		t.Fatalf("len(Evidence) = %d, want 2", len(out.Evidence))
	}
	if out.AnalysisSummary != "" {
		t.Errorf("AnalysisSummary = %q, want empty below the record threshold", out.AnalysisSummary)
	}
	for _, s := range []string{"the question", "http://a", "alpha facts", "http://b"} {
		if !strings.Contains(out.SynthesisPrompt, s) {
			t.Errorf("SynthesisPrompt missing %q", s)
		}
	}
	if strings.Contains(out.SynthesisPrompt, "Supplementary data scan summary") {
		t.Error("SynthesisPrompt should omit the analysis section when no scan ran")
	}
}

func TestRunPrunesIrrelevantEvidence(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]map[string]any{
		"sub a": {hit("http://keep", "useful"), hit("http://drop", "noise")},
	}}
	reasoner := &fakeReasoner{responses: []string{
		plan("sub a"),
		verdict(true, []string{"http://drop"}, nil),
	}}
	engine := newTestEngine(t, Config{MaxIterations: 1}, searcher, reasoner)

	out, err := engine.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out.Evidence) != 1 || out.Evidence[0].SourceURL != "http://keep" {
		t.Errorf("Evidence = %v, want only http://keep", out.Evidence)
	}
	if strings.Contains(out.SynthesisPrompt, "http://drop") {
		t.Error("pruned source leaked into the synthesis prompt")
	}
}

func TestRunBudgetExhaustionStillSynthesizes(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]map[string]any{
		"sub a": {hit("http://a", "partial")},
		"sub b": {hit("http://b", "more partial")},
	}}
	reasoner := &fakeReasoner{responses: []string{
		plan("sub a"),
		verdict(false, nil, []string{"sub b"}),
		verdict(false, nil, []string{"sub c"}),
	}}
	engine := newTestEngine(t, Config{MaxIterations: 2}, searcher, reasoner)

	out, err := engine.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.CanAnswer {
		t.Error("CanAnswer = true, want false after budget exhaustion")
	}
	if out.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", out.Iterations)
	}
	if len(out.Evidence) != 2 {
		t.Errorf("len(Evidence) = %d, want 2", len(out.Evidence))
	}
	// The sub-question suggested on the final pass is never searched.
	want := []string{"sub a", "sub b"}
	if !reflect.DeepEqual(searcher.queries, want) {
		t.Errorf("queries = %v, want %v", searcher.queries, want)
	}
}

func TestRunStopsWhenReflectionSuggestsNothing(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]map[string]any{
		"sub a": {hit("http://a", "something")},
	}}
	reasoner := &fakeReasoner{responses: []string{
		plan("sub a"),
		verdict(false, nil, nil),
	}}
	engine := newTestEngine(t, Config{MaxIterations: 3}, searcher, reasoner)

	out, err := engine.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1 when nothing is left to search", out.Iterations)
	}
	if reasoner.calls != 2 {
		t.Errorf("reasoner calls = %d, want 2 (plan + one reflection)", reasoner.calls)
	}
}

func TestRunNeverRepeatsASubquery(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]map[string]any{
		"sub a": {hit("http://a", "one")},
		"sub b": {hit("http://b", "two")},
	}}
	// The reflector keeps re-suggesting already-searched questions.
	reasoner := &fakeReasoner{responses: []string{
		plan("sub a", "sub a"),
		verdict(false, nil, []string{"sub a", "sub b"}),
		verdict(false, nil, []string{"sub a", "sub b"}),
		verdict(false, nil, []string{"sub a"}),
	}}
	engine := newTestEngine(t, Config{MaxIterations: 3}, searcher, reasoner)

	out, err := engine.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"sub a", "sub b"}
	if !reflect.DeepEqual(searcher.queries, want) {
		t.Errorf("queries = %v, want %v", searcher.queries, want)
	}
	if out.Iterations != 3 {
		t.Errorf("Iterations = %d, want 3", out.Iterations)
	}
}

func TestRunNoEvidence(t *testing.T) {
	searcher := &fakeSearcher{}
	reasoner := &fakeReasoner{responses: []string{
		plan("sub a"),
		verdict(false, nil, nil),
	}}
	engine := newTestEngine(t, Config{MaxIterations: 3}, searcher, reasoner)

	out, err := engine.Run(context.Background(), "q")
	if !errors.Is(err, ErrNoEvidence) {
		t.Fatalf("Run() error = %v, want ErrNoEvidence", err)
	}
	if out != nil {
		t.Errorf("Outcome = %v, want nil", out)
	}
}

func TestRunSearchFailureTreatedAsEmpty(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("provider down")}
	reasoner := &fakeReasoner{responses: []string{
		plan("sub a"),
		verdict(false, nil, nil),
	}}
	engine := newTestEngine(t, Config{MaxIterations: 2}, searcher, reasoner)

	if _, err := engine.Run(context.Background(), "q"); !errors.Is(err, ErrNoEvidence) {
		t.Fatalf("Run() error = %v, want ErrNoEvidence", err)
	}
}

func TestRunPlannerFailureSearchesOriginalQuestion(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]map[string]any{
		"the original question": {hit("http://a", "direct answer")},
	}}
	reasoner := &fakeReasoner{
		responses: []string{"", verdict(true, nil, nil)},
		errs:      []error{errors.New("llm unavailable"), nil},
	}
	engine := newTestEngine(t, Config{MaxIterations: 1}, searcher, reasoner)

	out, err := engine.Run(context.Background(), "the original question")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if want := []string{"the original question"}; !reflect.DeepEqual(searcher.queries, want) {
		t.Errorf("queries = %v, want %v", searcher.queries, want)
	}
	if len(out.Evidence) != 1 {
		t.Errorf("len(Evidence) = %d, want 1", len(out.Evidence))
	}
}

func TestRunDeduplicatesAcrossIterations(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]map[string]any{
		"sub a": {hit("http://shared", "seen first")},
		"sub b": {hit("http://shared", "seen again"), hit("http://fresh", "new info")},
	}}
	reasoner := &fakeReasoner{responses: []string{
		plan("sub a"),
		verdict(false, nil, []string{"sub b"}),
		verdict(true, nil, nil),
	}}
	engine := newTestEngine(t, Config{MaxIterations: 2}, searcher, reasoner)

	out, err := engine.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out.Evidence) != 2 {
		t.Fatalf("len(Evidence) = %d, want 2", len(out.Evidence))
	}
	if out.Evidence[0].Summary != "seen first" {
		t.Errorf("first record Summary = %q, the original must win on a duplicate URL", out.Evidence[0].Summary)
	}
}

func TestRunAnalysisAboveThreshold(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]map[string]any{
		"sub a": {
			hit("http://1", "growth of 12% in 2024"),
			hit("http://2", "about 3,500 firms"),
			hit("http://3", "margin near 8%"),
			hit("http://4", "revenue of 42 million"),
		},
	}}
	reasoner := &fakeReasoner{responses: []string{
		plan("sub a"),
		verdict(true, nil, nil),
	}}
	engine := newTestEngine(t, Config{MaxIterations: 1, MinAnalysisRecords: 4}, searcher, reasoner)

	out, err := engine.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.AnalysisSummary, "Brief data scan summary") {
		t.Errorf("AnalysisSummary = %q, want a scan summary at 4 records", out.AnalysisSummary)
	}
	if !strings.Contains(out.SynthesisPrompt, "Supplementary data scan summary") {
		t.Error("SynthesisPrompt missing the analysis section")
	}
}

func TestRunReportsProgress(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]map[string]any{
		"sub a": {hit("http://a", "one")},
		"sub b": {hit("http://b", "two")},
	}}
	reasoner := &fakeReasoner{responses: []string{
		plan("sub a"),
		verdict(false, nil, []string{"sub b"}),
		verdict(true, nil, nil),
	}}
	engine := newTestEngine(t, Config{MaxIterations: 3}, searcher, reasoner)

	var states []State
	engine.OnUpdate = func(s State) { states = append(states, s) }

	if _, err := engine.Run(context.Background(), "q"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("got %d progress updates, want 2", len(states))
	}
	if states[0].Iteration != 1 || states[0].EvidenceCount != 1 || states[0].CanAnswer {
		t.Errorf("first state = %+v", states[0])
	}
	if states[1].Iteration != 2 || states[1].EvidenceCount != 2 || !states[1].CanAnswer {
		t.Errorf("second state = %+v", states[1])
	}
	if want := []string{"sub a", "sub b"}; !reflect.DeepEqual(states[1].SearchedQueries, want) {
		t.Errorf("SearchedQueries = %v, want %v", states[1].SearchedQueries, want)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := newTestEngine(t, Config{}, &fakeSearcher{}, &fakeReasoner{})
	if _, err := engine.Run(ctx, "q"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}
