// Package search implements fuzzy matching over indexed proto definitions.
//
// A query runs through four passes in priority order: definition names,
// message field names, service RPC names, and comments. Each pass scores
// candidates on a 0-100 scale and a definition is claimed by the first pass
// that matches it, so a name hit is never downgraded to a comment hit.
package search

import "github.com/umuterturk/mcp-proto/pkg/schema"

// Entry kinds. Every indexed definition becomes exactly one Entry.
const (
	KindService = "service"
	KindMessage = "message"
	KindEnum    = "enum"
)

// Entry is one searchable definition. Exactly one of Service, Message, or
// Enum is set, matching Kind.
type Entry struct {
	FullName string
	Kind     string
	FilePath string
	Service  *schema.Service
	Message  *schema.Message
	Enum     *schema.Enum
}

// Result is a scored search hit with enough metadata to display without a
// follow-up lookup.
type Result struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	File         string   `json:"file"`
	Score        int      `json:"score"`
	MatchType    string   `json:"match_type"`
	Comment      string   `json:"comment,omitempty"`
	RPCs         []string `json:"rpcs,omitempty"`
	RPCCount     int      `json:"rpc_count,omitempty"`
	Fields       []string `json:"fields,omitempty"`
	FieldCount   int      `json:"field_count,omitempty"`
	Values       []string `json:"values,omitempty"`
	ValueCount   int      `json:"value_count,omitempty"`
	MatchedRPC   string   `json:"matched_rpc,omitempty"`
	MatchedField string   `json:"matched_field,omitempty"`
}

// newResult builds a Result for an entry with kind-specific metadata.
func newResult(entry Entry, score int, matchType string) Result {
	result := Result{
		Name:      entry.FullName,
		Type:      entry.Kind,
		File:      entry.FilePath,
		Score:     score,
		MatchType: matchType,
	}

	switch entry.Kind {
	case KindService:
		if entry.Service != nil {
			result.RPCCount = len(entry.Service.RPCs)
			result.RPCs = make([]string, len(entry.Service.RPCs))
			for i, rpc := range entry.Service.RPCs {
				result.RPCs[i] = rpc.Name
			}
			result.Comment = entry.Service.Comment
		}
	case KindMessage:
		if entry.Message != nil {
			result.FieldCount = len(entry.Message.Fields)
			result.Fields = make([]string, len(entry.Message.Fields))
			for i, field := range entry.Message.Fields {
				result.Fields[i] = field.Name
			}
			result.Comment = entry.Message.Comment
		}
	case KindEnum:
		if entry.Enum != nil {
			result.ValueCount = len(entry.Enum.Values)
			result.Values = make([]string, len(entry.Enum.Values))
			for i, value := range entry.Enum.Values {
				result.Values[i] = value.Name
			}
			result.Comment = entry.Enum.Comment
		}
	}

	return result
}

// comment returns the entry's own doc comment, if any.
func (e Entry) comment() string {
	switch e.Kind {
	case KindService:
		if e.Service != nil {
			return e.Service.Comment
		}
	case KindMessage:
		if e.Message != nil {
			return e.Message.Comment
		}
	case KindEnum:
		if e.Enum != nil {
			return e.Enum.Comment
		}
	}
	return ""
}
