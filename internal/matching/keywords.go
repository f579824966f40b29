// internal/matching/keywords.go
package matching

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {}, "all": {},
	"any": {}, "can": {}, "had": {}, "her": {}, "was": {}, "one": {}, "our": {}, "out": {},
	"day": {}, "get": {}, "has": {}, "him": {}, "his": {}, "how": {}, "its": {}, "may": {},
	"new": {}, "now": {}, "old": {}, "see": {}, "two": {}, "who": {}, "boy": {}, "did": {},
	"she": {}, "use": {}, "way": {}, "with": {}, "this": {}, "that": {}, "from": {}, "they": {},
	"have": {}, "been": {}, "were": {}, "will": {}, "your": {}, "what": {}, "when": {}, "them": {},
	"than": {}, "then": {}, "some": {}, "into": {}, "only": {}, "also": {}, "just": {}, "very": {},
	"about": {}, "there": {}, "their": {}, "which": {}, "would": {}, "could": {}, "should": {},
}

// ExtractKeywords returns the distinct, case-folded keywords of a listing's
// title, description and keyword metadata. Stop words and tokens of two
// characters or fewer are dropped.
func ExtractKeywords(l *Listing) map[string]struct{} {
	var b strings.Builder
	b.WriteString(l.Title)
	b.WriteByte(' ')
	b.WriteString(l.Description)
	for _, k := range l.Keywords {
		b.WriteByte(' ')
		b.WriteString(k)
	}

	out := make(map[string]struct{})
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(b.String()), -1) {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

// jaccard returns |a∩b| / |a∪b|, or 0 when either set is empty.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func stringSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		out[v] = struct{}{}
	}
	return out
}
