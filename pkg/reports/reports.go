// Package reports persists finished research reports as text files.
package reports

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/mlange/insight/pkg/profiles"
)

const querySlugLimit = 30

var (
	unsafeChars = regexp.MustCompile(`[^\w\s-]`)
	separators  = regexp.MustCompile(`[-\s]+`)
)

// Save writes content to a new file under dir and returns the file path. The
// filename combines the profile's prefix, a slug of the query, and a short
// random fragment to avoid collisions between runs of the same query.
func Save(dir string, profile *profiles.Profile, query, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	name := fmt.Sprintf("%s%s_%s.txt", profile.FilenamePrefix, slugify(query), uuid.NewString()[:8])
	path := filepath.Join(dir, name)

	header := fmt.Sprintf("Topic: %s\nQuestion: %s\n\n========== Report ==========\n\n",
		profile.Name, query)
	if err := os.WriteFile(path, []byte(header+content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	return path, nil
}

// slugify reduces a query to a short, filesystem-safe fragment.
func slugify(query string) string {
	s := strings.TrimSpace(strings.ToLower(query))
	s = unsafeChars.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	runes := []rune(s)
	if len(runes) > querySlugLimit {
		s = strings.Trim(string(runes[:querySlugLimit]), "_")
	}
	if s == "" {
		s = "report"
	}
	return s
}
