package research

import (
	"strings"
	"testing"
)

func TestAnalyze(t *testing.T) {
	t.Run("no quantifiable data returns sentinel", func(t *testing.T) {
		got := Analyze([]string{"nothing measurable here"}, nil)
		if got != NoQuantifiableData {
			t.Errorf("Analyze() = %q, want sentinel", got)
		}
	})

	t.Run("numbers with thousands separators", func(t *testing.T) {
		got := Analyze([]string{"revenue of 1,200 units and 800 more"}, nil)
		if !strings.Contains(got, "Scanned 2 numeric values. Mean: 1000.00, Min: 800.00, Max: 1200.00") {
			t.Errorf("unexpected numeric line in %q", got)
		}
	})

	t.Run("percentages", func(t *testing.T) {
		got := Analyze([]string{"grew 10% then fell -4.5 %"}, nil)
		if !strings.Contains(got, "Scanned 2 percentage values. Mean: 2.75%, Min: -4.50%, Max: 10.00%") {
			t.Errorf("unexpected percentage line in %q", got)
		}
	})

	t.Run("keyword frequencies capped and ordered", func(t *testing.T) {
		text := "cloud cloud cloud ai ai edge edge edge data saas iot ml"
		keywords := []string{"cloud", "ai", "edge", "data", "saas", "iot", "ml", "missing"}
		got := Analyze([]string{text}, keywords)
		if !strings.Contains(got, "Top keyword frequencies: cloud(3), edge(3), ai(2), data(1), iot(1)") {
			t.Errorf("unexpected keyword line in %q", got)
		}
	})

	t.Run("keyword matching is case-insensitive", func(t *testing.T) {
		got := Analyze([]string{"AI and more AI"}, []string{"ai"})
		if !strings.Contains(got, "ai(2)") {
			t.Errorf("expected ai(2) in %q", got)
		}
	})

	t.Run("keywords alone are enough", func(t *testing.T) {
		got := Analyze([]string{"cloud everywhere"}, []string{"cloud"})
		if got == NoQuantifiableData {
			t.Fatal("keyword hit should count as quantifiable")
		}
		if !strings.Contains(got, "No numeric values suitable for statistics were found.") {
			t.Errorf("expected empty-numbers line in %q", got)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		texts := []string{"50% market, 1,000 firms, cloud ai cloud"}
		keywords := []string{"cloud", "ai"}
		first := Analyze(texts, keywords)
		for i := 0; i < 5; i++ {
			if got := Analyze(texts, keywords); got != first {
				t.Fatalf("run %d differs:\n%q\nvs\n%q", i, got, first)
			}
		}
	})
}
