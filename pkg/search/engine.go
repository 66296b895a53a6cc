package search

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	sahilfuzzy "github.com/sahilm/fuzzy"
)

// Engine runs queries against a snapshot of entries. It holds no state of
// its own; the caller owns the entry list and its locking.
type Engine struct{}

// NewEngine creates an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Search runs all four passes over entries and returns at most limit
// results with score >= minScore, sorted by descending score. An empty
// query matches nothing.
func (e *Engine) Search(entries []Entry, query string, limit, minScore int) []Result {
	if query == "" {
		return nil
	}

	var results []Result
	seen := make(map[string]bool)
	queryLower := strings.ToLower(query)

	for _, result := range e.searchNames(entries, query, minScore) {
		if !seen[result.Name] {
			results = append(results, result)
			seen[result.Name] = true
		}
	}

	if len(results) < limit {
		results = append(results, e.searchFields(entries, queryLower, minScore, seen)...)
	}
	if len(results) < limit {
		results = append(results, e.searchRPCs(entries, queryLower, minScore, seen)...)
	}
	if len(results) < limit {
		results = append(results, e.searchComments(entries, queryLower, minScore, seen)...)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results
}

// searchNames matches the query against definition names with three
// strategies: case-insensitive substring, edit distance on the simple name,
// and subsequence matching. Earlier strategies claim an entry first.
func (e *Engine) searchNames(entries []Entry, query string, minScore int) []Result {
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.FullName
	}

	queryLower := strings.ToLower(query)
	var results []Result
	seen := make(map[int]bool)

	for i, name := range names {
		nameLower := strings.ToLower(name)

		idx := strings.Index(nameLower, queryLower)
		if idx < 0 {
			continue
		}

		var score int
		switch {
		case strings.HasSuffix(nameLower, queryLower):
			score = 100
		case idx == 0:
			score = 98
		case nameLower[idx-1] == '.':
			score = 97
		default:
			score = 95
		}

		// Long fully qualified names are less likely to be what the
		// caller meant.
		if float64(len(name))/float64(len(query)) > 5.0 {
			score -= 3
		}

		if score >= minScore {
			results = append(results, newResult(entries[i], score, "name"))
			seen[i] = true
		}
	}

	for i, name := range names {
		if seen[i] {
			continue
		}

		simpleName := name
		if lastDot := strings.LastIndex(name, "."); lastDot >= 0 {
			simpleName = name[lastDot+1:]
		}
		if simpleName == "" {
			continue
		}

		score := editDistanceScore(queryLower, strings.ToLower(simpleName))
		if score >= 70 && score >= minScore {
			results = append(results, newResult(entries[i], score, "name"))
			seen[i] = true
		}
	}

	for _, match := range sahilfuzzy.Find(query, names) {
		if seen[match.Index] {
			continue
		}

		score := subsequenceScore(match.Score, len(query), len(match.Str))
		if score >= minScore {
			results = append(results, newResult(entries[match.Index], score, "name"))
			seen[match.Index] = true
		}
	}

	return results
}

// searchFields matches the query against field names of messages not yet
// claimed by an earlier pass.
func (e *Engine) searchFields(entries []Entry, queryLower string, minScore int, seen map[string]bool) []Result {
	var results []Result

	for _, entry := range entries {
		if seen[entry.FullName] || entry.Kind != KindMessage || entry.Message == nil {
			continue
		}

		var bestScore int
		var bestField string

		for _, field := range entry.Message.Fields {
			score := memberScore(queryLower, field.Name)
			if score == 100 {
				bestScore, bestField = 100, field.Name
				break
			}
			if score > bestScore {
				bestScore, bestField = score, field.Name
			}
		}

		if bestScore >= minScore && bestField != "" {
			result := newResult(entry, bestScore, "field")
			result.MatchedField = bestField
			results = append(results, result)
			seen[entry.FullName] = true
		}
	}

	return results
}

// searchRPCs matches the query against RPC names of services not yet
// claimed by an earlier pass.
func (e *Engine) searchRPCs(entries []Entry, queryLower string, minScore int, seen map[string]bool) []Result {
	var results []Result

	for _, entry := range entries {
		if seen[entry.FullName] || entry.Kind != KindService || entry.Service == nil {
			continue
		}

		var bestScore int
		var bestRPC string

		for _, rpc := range entry.Service.RPCs {
			score := memberScore(queryLower, rpc.Name)
			if score == 100 {
				bestScore, bestRPC = 100, rpc.Name
				break
			}
			if score > bestScore {
				bestScore, bestRPC = score, rpc.Name
			}
		}

		if bestScore >= minScore && bestRPC != "" {
			result := newResult(entry, bestScore, "rpc")
			result.MatchedRPC = bestRPC
			results = append(results, result)
			seen[entry.FullName] = true
		}
	}

	return results
}

// searchComments substring-matches the query against doc comments of
// entries not yet claimed by an earlier pass.
func (e *Engine) searchComments(entries []Entry, queryLower string, minScore int, seen map[string]bool) []Result {
	var results []Result

	for _, entry := range entries {
		if seen[entry.FullName] {
			continue
		}

		comment := entry.comment()
		if comment == "" {
			continue
		}

		commentLower := strings.ToLower(comment)
		if !strings.Contains(commentLower, queryLower) {
			continue
		}

		score := commentScore(queryLower, commentLower)
		if score >= minScore {
			results = append(results, newResult(entry, score, "comment"))
			seen[entry.FullName] = true
		}
	}

	return results
}

// memberScore scores a query against one member name (a field or an RPC):
// exact 100, substring 95, otherwise edit-distance similarity when it
// clears the 70 floor.
func memberScore(queryLower, member string) int {
	memberLower := strings.ToLower(member)

	if memberLower == queryLower {
		return 100
	}
	if strings.Contains(memberLower, queryLower) {
		return 95
	}

	if score := editDistanceScore(queryLower, memberLower); score >= 70 {
		return score
	}
	return 0
}

// editDistanceScore converts Levenshtein similarity to a 0-100 score.
func editDistanceScore(a, b string) int {
	if a == "" && b == "" {
		return 0
	}
	similarity, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return int(similarity * 100)
}
