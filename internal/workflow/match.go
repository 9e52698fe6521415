package workflow

import (
	"sort"
	"strings"

	"example.com/grocer/services/assistant/internal/models"
)

// jaccardThreshold is the minimum token-set overlap for a name to count
// as a catalog match when no substring match exists.
const jaccardThreshold = 0.5

// normalizeTokens lowercases a name, strips punctuation and splits it
// into a token set.
func normalizeTokens(name string) map[string]struct{} {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, name)

	tokens := make(map[string]struct{})
	for _, t := range strings.Fields(cleaned) {
		tokens[t] = struct{}{}
	}
	return tokens
}

// jaccard returns |a∩b| / |a∪b| and the intersection size.
func jaccard(a, b map[string]struct{}) (float64, int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0
	}

	overlap := 0
	for t := range a {
		if _, ok := b[t]; ok {
			overlap++
		}
	}
	union := len(a) + len(b) - overlap
	return float64(overlap) / float64(union), overlap
}

// matchScore scores how well a catalog name matches a requested name.
// A case-insensitive substring containment in either direction is a full
// match; otherwise the token-set Jaccard decides. Deterministic by
// construction: same strings, same score.
func matchScore(requested, catalogName string) (score float64, overlap int) {
	req := strings.ToLower(strings.TrimSpace(requested))
	cat := strings.ToLower(strings.TrimSpace(catalogName))
	if req == "" || cat == "" {
		return 0, 0
	}
	if strings.Contains(cat, req) || strings.Contains(req, cat) {
		return 1, len(normalizeTokens(requested))
	}
	return jaccard(normalizeTokens(requested), normalizeTokens(catalogName))
}

// bestMatch picks the catalog candidate that matches the requested name,
// or nil when no candidate clears the threshold. Ties break on higher
// token overlap, then alphabetical product name, so resolution is stable
// across runs.
func bestMatch(requested string, candidates []models.Product) *models.Product {
	type scored struct {
		product *models.Product
		score   float64
		overlap int
	}

	var ranked []scored
	for i := range candidates {
		score, overlap := matchScore(requested, candidates[i].Name)
		if score >= jaccardThreshold {
			ranked = append(ranked, scored{product: &candidates[i], score: score, overlap: overlap})
		}
	}
	if len(ranked) == 0 {
		return nil
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].overlap != ranked[j].overlap {
			return ranked[i].overlap > ranked[j].overlap
		}
		return ranked[i].product.Name < ranked[j].product.Name
	})
	return ranked[0].product
}

// nearestCategory infers a category for a name that matched nothing.
// The weakest nonzero token overlap against the candidate pool is enough
// to anchor substitute suggestions; zero overlap everywhere means no
// category can be inferred.
func nearestCategory(requested string, candidates []models.Product) string {
	bestScore := 0.0
	bestName := ""
	category := ""
	for i := range candidates {
		score, _ := matchScore(requested, candidates[i].Name)
		if score > bestScore || (score == bestScore && score > 0 && candidates[i].Name < bestName) {
			bestScore = score
			bestName = candidates[i].Name
			category = candidates[i].Category
		}
	}
	return category
}
