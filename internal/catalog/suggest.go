package catalog

import (
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// suggestThreshold is the minimum cosine similarity for a "did you mean" hint.
const suggestThreshold = 0.5

var tokenSplitPattern = regexp.MustCompile(`[^\pL\pN]+`)

// termVector is a term-frequency vector over a title's tokens.
type termVector struct {
	terms map[string]float64
	norm  float64
}

func newTermVector(text string) termVector {
	terms := make(map[string]float64)
	for _, token := range tokenize(text) {
		terms[token]++
	}
	var norm float64
	for _, count := range terms {
		norm += count * count
	}
	return termVector{terms: terms, norm: math.Sqrt(norm)}
}

// tokenize folds case and splits on anything that is not a letter or digit.
// Tokens shorter than three runes are dropped.
func tokenize(text string) []string {
	folded := cases.Fold().String(text)
	raw := tokenSplitPattern.Split(folded, -1)
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		if len([]rune(token)) < 3 {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

func cosineSimilarity(a, b termVector) float64 {
	if a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for term, count := range a.terms {
		dot += count * b.terms[term]
	}
	return dot / (a.norm * b.norm)
}

// Suggest returns the title most similar to ref, or "" when nothing is close.
// Ties keep the earlier prompt.
func (c *Catalog) Suggest(ref string) string {
	query := newTermVector(strings.TrimSpace(ref))
	best, bestScore := "", suggestThreshold
	for _, prompt := range c.prompts {
		score := cosineSimilarity(query, newTermVector(prompt.Title))
		if score >= bestScore && (best == "" || score > bestScore) {
			best, bestScore = prompt.Title, score
		}
	}
	return best
}
