package search

import "strings"

// minKeywordLen filters out short tokens that carry no topical meaning.
const minKeywordLen = 3

// stopwords are common English words excluded from keyword matching.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"that": {}, "the": {}, "to": {}, "was": {}, "will": {}, "with": {},
}

// normalizeText lowercases the text, replaces punctuation with spaces, and
// collapses runs of whitespace into single spaces.
func normalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 0x80:
			// Non-ASCII letters pass through untouched.
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// extractKeywords returns the set of meaningful tokens in the text:
// normalized words of at least minKeywordLen runes that are not stopwords.
func extractKeywords(text string) map[string]struct{} {
	keywords := make(map[string]struct{})
	for _, token := range strings.Fields(normalizeText(text)) {
		if len([]rune(token)) < minKeywordLen {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		keywords[token] = struct{}{}
	}
	return keywords
}

// keywordList flattens a keyword set for reporting.
func keywordList(keywords map[string]struct{}) []string {
	out := make([]string, 0, len(keywords))
	for kw := range keywords {
		out = append(out, kw)
	}
	return out
}

// keywordOverlap computes |query ∩ cluster| / |query|. An empty query
// keyword set scores 0.
func keywordOverlap(query, cluster map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	shared := 0
	for kw := range query {
		if _, ok := cluster[kw]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(query))
}
