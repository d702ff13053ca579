package research

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// NoQuantifiableData is the analyzer's sentinel for an empty scan. The
// context assembler omits the analysis section when it sees this value.
const NoQuantifiableData = "No quantifiable data suitable for a scan was found in the collected information."

var (
	numberPattern     = regexp.MustCompile(`\d{1,3}(?:,\d{3})*(?:\.\d+)?|\d+(?:\.\d+)?`)
	percentagePattern = regexp.MustCompile(`[+-]?\d+(?:\.\d+)?\s*%`)
)

// Analyze performs a basic regex scan over the given texts: numeric values,
// percentage values, and frequencies of the profile's keywords. It is a pure
// function; the same inputs always produce the same summary string.
func Analyze(texts []string, keywords []string) string {
	fullText := strings.Join(texts, " ")

	var numbers []float64
	for _, match := range numberPattern.FindAllString(fullText, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
		if err == nil {
			numbers = append(numbers, v)
		}
	}

	var percentages []float64
	for _, match := range percentagePattern.FindAllString(fullText, -1) {
		raw := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(match), "%"))
		v, err := strconv.ParseFloat(raw, 64)
		if err == nil {
			percentages = append(percentages, v)
		}
	}

	counts := countKeywords(fullText, keywords)

	var b strings.Builder
	b.WriteString("Brief data scan summary:\n")
	found := false

	if len(numbers) > 0 {
		found = true
		mean, min, max := stats(numbers)
		fmt.Fprintf(&b, "- Scanned %d numeric values. Mean: %.2f, Min: %.2f, Max: %.2f\n",
			len(numbers), mean, min, max)
	} else {
		b.WriteString("- No numeric values suitable for statistics were found.\n")
	}

	if len(percentages) > 0 {
		found = true
		mean, min, max := stats(percentages)
		fmt.Fprintf(&b, "- Scanned %d percentage values. Mean: %.2f%%, Min: %.2f%%, Max: %.2f%%\n",
			len(percentages), mean, min, max)
	} else {
		b.WriteString("- No explicit percentage values were found.\n")
	}

	if len(counts) > 0 {
		found = true
		top := topKeywords(counts, 5)
		parts := make([]string, len(top))
		for i, kc := range top {
			parts[i] = fmt.Sprintf("%s(%d)", kc.keyword, kc.count)
		}
		fmt.Fprintf(&b, "- Top keyword frequencies: %s\n", strings.Join(parts, ", "))
	} else if len(keywords) > 0 {
		b.WriteString("- No relevant keywords were found.\n")
	}

	if !found {
		return NoQuantifiableData
	}
	return b.String()
}

type keywordCount struct {
	keyword string
	count   int
}

func countKeywords(text string, keywords []string) map[string]int {
	counts := make(map[string]int)
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if n := strings.Count(lower, strings.ToLower(kw)); n > 0 {
			counts[kw] = n
		}
	}
	return counts
}

// topKeywords returns up to n keywords by descending count, alphabetical on
// ties so the output is deterministic.
func topKeywords(counts map[string]int, n int) []keywordCount {
	all := make([]keywordCount, 0, len(counts))
	for kw, c := range counts {
		all = append(all, keywordCount{kw, c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].keyword < all[j].keyword
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

func stats(values []float64) (mean, min, max float64) {
	min, max = values[0], values[0]
	sum := 0.0
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return sum / float64(len(values)), min, max
}
