package research

import (
	"fmt"
	"strings"
)

// emptyContextNotice stands in for the bounded context when no evidence has
// been collected yet, so the reflection prompt is never handed a blank block.
const emptyContextNotice = "No relevant information has been collected yet."

// Memory is the ordered, URL-deduplicated evidence store for one research
// run. It is owned by a single run and is not safe for concurrent use.
//
// URLs are tracked monotonically: once a URL has been seen, later appends for
// it are rejected even if the record was pruned in between, so a source the
// reflector flagged as irrelevant cannot sneak back in.
type Memory struct {
	records []EvidenceRecord
	seen    map[string]bool
}

func NewMemory() *Memory {
	return &Memory{seen: make(map[string]bool)}
}

// Append inserts rec and reports whether it was new. Records without a source
// URL or usable summary are rejected.
func (m *Memory) Append(rec EvidenceRecord) bool {
	if rec.SourceURL == "" || rec.Summary == "" || m.seen[rec.SourceURL] {
		return false
	}
	m.seen[rec.SourceURL] = true
	m.records = append(m.records, rec)
	return true
}

// PruneURLs removes every record whose source URL is in urls, preserving the
// order of survivors. Pruning an absent URL is a no-op.
func (m *Memory) PruneURLs(urls map[string]bool) {
	if len(urls) == 0 {
		return
	}
	kept := m.records[:0]
	for _, rec := range m.records {
		if !urls[rec.SourceURL] {
			kept = append(kept, rec)
		}
	}
	m.records = kept
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	return len(m.records)
}

// Records returns a copy of the stored records in insertion order.
func (m *Memory) Records() []EvidenceRecord {
	out := make([]EvidenceRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Summaries returns the summary text of every record in insertion order.
func (m *Memory) Summaries() []string {
	out := make([]string, len(m.records))
	for i, rec := range m.records {
		out[i] = rec.Summary
	}
	return out
}

// BoundedContext renders a size-limited view of the evidence for reflection.
// It walks records newest-first so that, when the budget forces truncation,
// the most recently retrieved evidence survives, then reverses the kept
// entries back into chronological order. Size is estimated as half the
// character count, a rough token proxy.
func (m *Memory) BoundedContext(maxSizeEstimate, summaryLimit int) string {
	if len(m.records) == 0 {
		return emptyContextNotice
	}

	var items []string
	estimate := 0
	for i := len(m.records) - 1; i >= 0; i-- {
		rec := m.records[i]
		item := fmt.Sprintf("  - Query '%s': %s... (source: %s)\n",
			rec.SourceQuery, truncate(rec.Summary, summaryLimit), rec.SourceURL)
		estimate += len(item) / 2
		if estimate > maxSizeEstimate {
			break
		}
		items = append(items, item)
	}

	var b strings.Builder
	for i := len(items) - 1; i >= 0; i-- {
		b.WriteString(items[i])
	}
	return b.String()
}

// FullContext renders every record chronologically with no truncation. Used
// once, to build the synthesis prompt.
func (m *Memory) FullContext() string {
	blocks := make([]string, len(m.records))
	for i, rec := range m.records {
		blocks[i] = fmt.Sprintf("Source URL: %s\nRelated sub-question: %s\nTitle: %s\nSummary: %s",
			rec.SourceURL, rec.SourceQuery, rec.Title, rec.Summary)
	}
	return strings.Join(blocks, "\n\n")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
