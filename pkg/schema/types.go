// Package schema defines the data model for parsed Protocol Buffer files
// and a best-effort, pattern-based parser that extracts services, messages,
// and enums from .proto source without building a full AST.
package schema

// Field represents a single field declaration inside a message, or an enum
// value when Type is "enum_value".
type Field struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Number  int    `json:"number"`
	Label   string `json:"label,omitempty"` // optional, required, repeated
	Comment string `json:"comment,omitempty"`
}

// Message represents a top-level message definition.
type Message struct {
	Name     string  `json:"name"`
	FullName string  `json:"full_name"`
	Fields   []Field `json:"fields"`
	Comment  string  `json:"comment,omitempty"`
}

// Enum represents a top-level enum definition. Values reuse Field with the
// synthetic type "enum_value".
type Enum struct {
	Name     string  `json:"name"`
	FullName string  `json:"full_name"`
	Values   []Field `json:"values"`
	Comment  string  `json:"comment,omitempty"`
}

// RPC represents a single method declared inside a service block.
type RPC struct {
	Name              string `json:"name"`
	RequestType       string `json:"request_type"`
	ResponseType      string `json:"response_type"`
	RequestStreaming  bool   `json:"request_streaming"`
	ResponseStreaming bool   `json:"response_streaming"`
	Comment           string `json:"comment,omitempty"`
}

// Service represents a service definition and its RPCs.
type Service struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	RPCs     []RPC  `json:"rpcs"`
	Comment  string `json:"comment,omitempty"`
}

// File is the parse result for one .proto file.
type File struct {
	Path     string    `json:"path"`
	Package  string    `json:"package"`
	Syntax   string    `json:"syntax"`
	Services []Service `json:"services"`
	Messages []Message `json:"messages"`
	Enums    []Enum    `json:"enums"`
	Imports  []string  `json:"imports"`
}
