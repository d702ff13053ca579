package research

// Ingest normalizes raw provider results into evidence records. The provider
// gives no schema guarantee, so every field is type-checked and anything
// unusable is skipped silently rather than failing the batch. A result is
// kept only when it has a non-empty URL and at least one of summary or
// snippet; summary wins when both are present.
func Ingest(subquery string, raw []map[string]any) []EvidenceRecord {
	var records []EvidenceRecord
	for _, item := range raw {
		url := stringField(item, "url")
		if url == "" {
			continue
		}
		summary := stringField(item, "summary")
		snippet := stringField(item, "snippet")
		text := summary
		if text == "" {
			text = snippet
		}
		if text == "" {
			continue
		}
		records = append(records, EvidenceRecord{
			SourceQuery: subquery,
			SourceURL:   url,
			Title:       stringField(item, "name"),
			Summary:     text,
			Snippet:     snippet,
		})
	}
	return records
}

func stringField(item map[string]any, key string) string {
	if v, ok := item[key].(string); ok {
		return v
	}
	return ""
}
