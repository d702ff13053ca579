package research

import (
	"fmt"
	"strings"
	"testing"
)

func rec(url, summary string) EvidenceRecord {
	return EvidenceRecord{SourceQuery: "q", SourceURL: url, Summary: summary}
}

func TestMemoryAppendDeduplicates(t *testing.T) {
	m := NewMemory()

	if !m.Append(rec("http://a", "first")) {
		t.Fatal("first append should report new")
	}
	if m.Append(rec("http://a", "second")) {
		t.Error("duplicate URL should report not new")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
	if got := m.Records()[0].Summary; got != "first" {
		t.Errorf("duplicate append mutated the store: summary = %q", got)
	}
}

func TestMemoryAppendRejectsUnusable(t *testing.T) {
	tests := []struct {
		name string
		rec  EvidenceRecord
	}{
		{"missing url", rec("", "text")},
		{"missing summary", rec("http://a", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemory()
			if m.Append(tt.rec) {
				t.Error("append should reject the record")
			}
			if m.Len() != 0 {
				t.Errorf("Len() = %d, want 0", m.Len())
			}
		})
	}
}

func TestMemoryPruneURLs(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 4; i++ {
		m.Append(rec(fmt.Sprintf("http://s%d", i), fmt.Sprintf("summary %d", i)))
	}

	m.PruneURLs(map[string]bool{"http://s1": true, "http://s3": true, "http://absent": true})

	records := m.Records()
	if len(records) != 2 {
		t.Fatalf("Len() = %d, want 2", len(records))
	}
	if records[0].SourceURL != "http://s0" || records[1].SourceURL != "http://s2" {
		t.Errorf("survivor order broken: %q, %q", records[0].SourceURL, records[1].SourceURL)
	}

	// Second prune with the same set is a no-op.
	m.PruneURLs(map[string]bool{"http://s1": true, "http://s3": true})
	if m.Len() != 2 {
		t.Errorf("repeated prune changed the store: Len() = %d", m.Len())
	}

	// Empty set is a no-op.
	m.PruneURLs(nil)
	if m.Len() != 2 {
		t.Errorf("empty prune changed the store: Len() = %d", m.Len())
	}
}

func TestMemoryPrunedURLNotReadmitted(t *testing.T) {
	m := NewMemory()
	m.Append(rec("http://a", "text"))
	m.PruneURLs(map[string]bool{"http://a": true})

	if m.Append(rec("http://a", "text again")) {
		t.Error("pruned URL should stay excluded for the rest of the run")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestBoundedContextEmpty(t *testing.T) {
	m := NewMemory()
	if got := m.BoundedContext(10000, 250); got != emptyContextNotice {
		t.Errorf("BoundedContext on empty store = %q", got)
	}
}

func TestBoundedContextKeepsNewestUnderBudget(t *testing.T) {
	m := NewMemory()
	long := strings.Repeat("x", 200)
	for i := 0; i < 10; i++ {
		m.Append(rec(fmt.Sprintf("http://s%d", i), long))
	}

	// Each formatted item estimates to ~100+; a budget of 250 keeps roughly
	// the two most recent records.
	got := m.BoundedContext(250, 250)

	if !strings.Contains(got, "http://s9") {
		t.Error("most recent record must survive truncation")
	}
	if strings.Contains(got, "http://s0") {
		t.Error("oldest record should have been truncated away")
	}
	// Kept entries come back in chronological order.
	i8 := strings.Index(got, "http://s8")
	i9 := strings.Index(got, "http://s9")
	if i8 >= 0 && i8 > i9 {
		t.Error("bounded context not in chronological order")
	}
}

func TestBoundedContextTruncatesSummaries(t *testing.T) {
	m := NewMemory()
	m.Append(rec("http://a", strings.Repeat("a", 300)))

	got := m.BoundedContext(10000, 250)
	if strings.Contains(got, strings.Repeat("a", 251)) {
		t.Error("summary not truncated to the limit")
	}
	if !strings.Contains(got, strings.Repeat("a", 250)+"...") {
		t.Error("truncated summary should end with ellipsis")
	}
}

func TestFullContextChronological(t *testing.T) {
	m := NewMemory()
	m.Append(EvidenceRecord{SourceQuery: "q1", SourceURL: "http://a", Title: "A", Summary: "alpha"})
	m.Append(EvidenceRecord{SourceQuery: "q2", SourceURL: "http://b", Title: "B", Summary: "beta"})

	got := m.FullContext()
	if strings.Index(got, "http://a") > strings.Index(got, "http://b") {
		t.Error("full context not chronological")
	}
	for _, want := range []string{"Source URL: http://a", "Related sub-question: q1", "Title: A", "Summary: alpha"} {
		if !strings.Contains(got, want) {
			t.Errorf("full context missing %q", want)
		}
	}
}
