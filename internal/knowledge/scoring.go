package knowledge

import (
	"sort"
	"strings"
)

// Scoring weights. A chunk matching several search terms is worth more than
// the sum of its matches, and direct mentions of the player's location or a
// present character outrank plain keyword hits.
const (
	multiTermMultiplier = 1.5
	locationBoost       = 2.0
	characterBoost      = 1.5
)

// ScoreChunk computes the relevance of a chunk's text against lowercased
// search terms and the labels of the query entities.
//
// Postcondition: Returns 0 when nothing matches; scoring is a pure function
// of its inputs.
func ScoreChunk(text string, terms []string, boostEntities []Entity) float64 {
	lower := strings.ToLower(text)

	matched := 0
	for _, term := range terms {
		if term != "" && strings.Contains(lower, term) {
			matched++
		}
	}
	score := float64(matched)
	if matched > 1 {
		score *= multiTermMultiplier
	}

	for _, e := range boostEntities {
		label := strings.ToLower(e.Label)
		if label == "" || !strings.Contains(lower, label) {
			continue
		}
		switch e.Type {
		case EntityLocation:
			score += locationBoost
		case EntityCharacter:
			score += characterBoost
		}
	}
	return score
}

// RankChunks orders scored chunks by descending score, ties broken by
// ascending chunk ID, and truncates to limit.
//
// Postcondition: Returns a non-nil slice of at most limit chunks; limit <= 0
// yields an empty slice.
func RankChunks(chunks []Chunk, limit int) []Chunk {
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].ID < chunks[j].ID
	})
	if limit < 0 {
		limit = 0
	}
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}
	if chunks == nil {
		chunks = []Chunk{}
	}
	return chunks
}

// NormalizeTerms lowercases, trims, and de-duplicates search terms,
// returning them sorted for deterministic iteration.
func NormalizeTerms(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			seen[k] = struct{}{}
		}
	}
	terms := make([]string, 0, len(seen))
	for k := range seen {
		terms = append(terms, k)
	}
	sort.Strings(terms)
	return terms
}
