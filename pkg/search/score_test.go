package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubsequenceScore(t *testing.T) {
	tests := []struct {
		name       string
		fuzzyScore int
		queryLen   int
		targetLen  int
		want       int
	}{
		{name: "exact match", fuzzyScore: 0, queryLen: 11, targetLen: 11, want: 100},
		// penalty ratio 0.5 -> 95 band, plus the close-length bonus, capped.
		{name: "dense match close length", fuzzyScore: 6, queryLen: 6, targetLen: 12, want: 100},
		// penalty ratio 5 -> 80 band (87), plus close-length bonus.
		{name: "moderate gaps", fuzzyScore: 50, queryLen: 5, targetLen: 10, want: 92},
		// penalty ratio 50 -> 60 band (70), length ratio 4 gives no bonus.
		{name: "sparse match", fuzzyScore: 1000, queryLen: 5, targetLen: 20, want: 70},
		// penalty ratio 500 -> decay band, very long target penalized.
		{name: "very sparse match", fuzzyScore: 15000, queryLen: 2, targetLen: 30, want: 37},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := subsequenceScore(tt.fuzzyScore, tt.queryLen, tt.targetLen)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

func TestCommentScore(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		comment string
		want    int
	}{
		{name: "prefix and exact word", query: "handles", comment: "handles user lookups", want: 95},
		{name: "word boundary and exact word", query: "user", comment: "handles user lookups", want: 90},
		{name: "embedded substring only", query: "user", comment: "superuser management", want: 70},
		{
			name:    "long comment penalty",
			query:   "user",
			comment: "this service coordinates user accounts across every region and keeps them in sync",
			want:    85,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, commentScore(tt.query, tt.comment))
		})
	}
}
