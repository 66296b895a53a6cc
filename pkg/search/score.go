package search

import "strings"

// subsequenceScore converts a sahilm/fuzzy match score to the 0-100 scale.
// The library reports penalties, so lower is better there and scores grow
// very large for sparse matches in long strings; normalizing by target
// length gives a penalty ratio that maps onto score bands.
func subsequenceScore(fuzzyScore, queryLen, targetLen int) int {
	if fuzzyScore == 0 {
		return 100
	}

	penaltyRatio := float64(fuzzyScore) / float64(targetLen)

	var score int
	switch {
	case penaltyRatio < 1.0:
		score = 95 + int((1.0-penaltyRatio)*5.0)
	case penaltyRatio < 10.0:
		score = 80 + int((10.0-penaltyRatio)*1.5)
	case penaltyRatio < 100.0:
		score = 60 + int((100.0-penaltyRatio)*0.2)
	default:
		score = int(60.0 * (1000.0 / (penaltyRatio + 900.0)))
	}

	// Targets close in length to the query are more precise hits.
	lengthRatio := float64(targetLen) / float64(queryLen)
	if lengthRatio >= 1.0 && lengthRatio <= 3.0 {
		score += 5
	} else if lengthRatio > 10.0 {
		score -= 5
	}

	return clampScore(score)
}

// commentScore scores a substring hit inside a comment. Both inputs must
// already be lowercased and the comment must contain the query.
func commentScore(query, comment string) int {
	score := 70

	if strings.HasPrefix(comment, query) {
		score += 15
	} else {
		idx := strings.Index(comment, query)
		if idx > 0 && (comment[idx-1] == ' ' || comment[idx-1] == '\t') {
			score += 10
		}
	}

	for _, word := range strings.Fields(comment) {
		if word == query {
			score += 10
			break
		}
	}

	// A hit buried in a long comment says little about the definition.
	if len(comment) > len(query)*10 {
		score -= 5
	}

	return clampScore(score)
}

func clampScore(score int) int {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}
