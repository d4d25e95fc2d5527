package titles

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultTitle is returned when no meaningful words can be extracted.
const DefaultTitle = "Emerging Technology Cluster"

// fallbackSample limits how many texts the fallback scans.
const fallbackSample = 5

var capitalizedWord = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

// FallbackTitle builds a title without calling a model: it collects
// capitalized words from the first few texts and joins the three most
// common ones. Ties break in first-seen order so the output is
// deterministic.
func FallbackTitle(texts []string) string {
	counts := make(map[string]int)
	var order []string
	for i, text := range texts {
		if i >= fallbackSample {
			break
		}
		for _, word := range capitalizedWord.FindAllString(text, -1) {
			if counts[word] == 0 {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	if len(order) == 0 {
		return DefaultTitle
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > 3 {
		order = order[:3]
	}
	return strings.Join(order, " / ")
}
