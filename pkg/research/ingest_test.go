package research

import "testing"

func TestIngest(t *testing.T) {
	tests := []struct {
		name string
		raw  []map[string]any
		want int
	}{
		{"nil input", nil, 0},
		{"missing url", []map[string]any{{"summary": "text"}}, 0},
		{"empty url", []map[string]any{{"url": "", "summary": "text"}}, 0},
		{"url without text", []map[string]any{{"url": "http://a"}}, 0},
		{"url with summary", []map[string]any{{"url": "http://a", "summary": "text"}}, 1},
		{"url with snippet only", []map[string]any{{"url": "http://a", "snippet": "snip"}}, 1},
		{"non-string url", []map[string]any{{"url": 42, "summary": "text"}}, 0},
		{"non-string summary falls back to snippet", []map[string]any{{"url": "http://a", "summary": 1.5, "snippet": "snip"}}, 1},
		{"mixed batch keeps good entries", []map[string]any{
			{"url": "http://a", "summary": "one"},
			{"garbage": true},
			{"url": "http://b", "snippet": "two"},
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ingest("sub", tt.raw)
			if len(got) != tt.want {
				t.Errorf("Ingest() returned %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestIngestFieldMapping(t *testing.T) {
	raw := []map[string]any{{
		"url":     "http://a",
		"name":    "Page Title",
		"summary": "the summary",
		"snippet": "the snippet",
	}}

	got := Ingest("sub-question", raw)
	if len(got) != 1 {
		t.Fatalf("Ingest() returned %d records, want 1", len(got))
	}
	r := got[0]
	if r.SourceQuery != "sub-question" || r.SourceURL != "http://a" ||
		r.Title != "Page Title" || r.Summary != "the summary" || r.Snippet != "the snippet" {
		t.Errorf("unexpected record: %+v", r)
	}
}

func TestIngestPrefersSummaryOverSnippet(t *testing.T) {
	raw := []map[string]any{{"url": "http://a", "summary": "primary", "snippet": "fallback"}}
	got := Ingest("q", raw)
	if got[0].Summary != "primary" {
		t.Errorf("Summary = %q, want %q", got[0].Summary, "primary")
	}
}
