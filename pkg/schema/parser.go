package schema

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var (
	syntaxRegex  = regexp.MustCompile(`syntax\s*=\s*["'](\w+)["']`)
	packageRegex = regexp.MustCompile(`package\s+([\w.]+)\s*;`)
	importRegex  = regexp.MustCompile(`import\s+(?:public\s+|weak\s+)?["']([^"']+)["']`)
	serviceRegex = regexp.MustCompile(`service\s+(\w+)\s*\{([^}]*)\}`)
	rpcRegex     = regexp.MustCompile(`rpc\s+(\w+)\s*\(\s*(stream\s+)?([\w.]+)\s*\)\s*returns\s*\(\s*(stream\s+)?([\w.]+)\s*\)`)
	messageRegex = regexp.MustCompile(`message\s+(\w+)\s*\{([^}]*(?:\{[^}]*\}[^}]*)*)\}`)
	fieldRegex   = regexp.MustCompile(`(optional|required|repeated)?\s*([\w.]+)\s+(\w+)\s*=\s*(\d+)`)
	enumRegex    = regexp.MustCompile(`enum\s+(\w+)\s*\{([^}]*)\}`)
	enumValRegex = regexp.MustCompile(`(\w+)\s*=\s*(\d+)`)
	commentRegex = regexp.MustCompile(`//(.*)$`)
)

// Parser extracts proto definitions with compiled regular expressions.
// It deliberately does not implement the proto grammar: nested blocks,
// options, extensions, and multi-line declarations are out of scope, and
// declarations the patterns miss are silently omitted.
type Parser struct {
	currentPackage string
}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile reads and parses a single .proto file. Only read failures
// return an error; malformed content just yields a sparser File.
func (p *Parser) ParseFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return p.parse(path, string(raw)), nil
}

// Parse parses proto source that is already in memory. The path is only
// recorded for attribution.
func (p *Parser) Parse(path, content string) *File {
	return p.parse(path, content)
}

func (p *Parser) parse(path, content string) *File {
	file := &File{Path: path}

	lines := p.preprocess(content)

	file.Syntax = p.extractSyntax(content)
	file.Package = p.extractPackage(content)
	p.currentPackage = file.Package
	file.Imports = p.extractImports(content)

	file.Services = p.extractServices(lines, content)
	file.Messages = p.extractMessages(lines, content)
	file.Enums = p.extractEnums(lines, content)

	return file
}

// sourceLine is one code line with the comment text associated to it:
// any run of standalone // lines immediately above it, plus its own
// trailing comment, joined with single spaces.
type sourceLine struct {
	line    string
	comment string
}

func (p *Parser) preprocess(content string) []sourceLine {
	rawLines := strings.Split(content, "\n")
	out := make([]sourceLine, 0, len(rawLines))
	var pending []string

	for _, raw := range rawLines {
		var comment string
		if m := commentRegex.FindStringSubmatch(raw); m != nil {
			comment = strings.TrimSpace(m[1])
		}
		code := strings.TrimSpace(commentRegex.ReplaceAllString(raw, ""))

		if code == "" && comment != "" {
			pending = append(pending, comment)
			continue
		}

		full := strings.Join(pending, " ")
		if comment != "" {
			if full != "" {
				full += " " + comment
			} else {
				full = comment
			}
		}
		out = append(out, sourceLine{line: code, comment: full})
		pending = nil
	}

	return out
}

func (p *Parser) extractSyntax(content string) string {
	if m := syntaxRegex.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return "proto2"
}

func (p *Parser) extractPackage(content string) string {
	if m := packageRegex.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return ""
}

func (p *Parser) extractImports(content string) []string {
	matches := importRegex.FindAllStringSubmatch(content, -1)
	imports := make([]string, 0, len(matches))
	for _, m := range matches {
		imports = append(imports, m[1])
	}
	return imports
}

func (p *Parser) qualify(name string) string {
	if p.currentPackage == "" {
		return name
	}
	return p.currentPackage + "." + name
}

func (p *Parser) extractServices(lines []sourceLine, content string) []Service {
	var services []Service
	for _, m := range serviceRegex.FindAllStringSubmatch(content, -1) {
		name, body := m[1], m[2]
		services = append(services, Service{
			Name:     name,
			FullName: p.qualify(name),
			Comment:  p.commentForConstruct(lines, name, "service"),
			RPCs:     p.extractRPCs(body),
		})
	}
	return services
}

func (p *Parser) extractRPCs(serviceBody string) []RPC {
	var rpcs []RPC
	for _, m := range rpcRegex.FindAllStringSubmatch(serviceBody, -1) {
		rpcs = append(rpcs, RPC{
			Name:              m[1],
			RequestType:       m[3],
			ResponseType:      m[5],
			RequestStreaming:  m[2] != "",
			ResponseStreaming: m[4] != "",
			Comment:           p.commentInBody(serviceBody, m[1]),
		})
	}
	return rpcs
}

func (p *Parser) extractMessages(lines []sourceLine, content string) []Message {
	var messages []Message
	for _, m := range messageRegex.FindAllStringSubmatch(content, -1) {
		name, body := m[1], m[2]
		messages = append(messages, Message{
			Name:     name,
			FullName: p.qualify(name),
			Comment:  p.commentForConstruct(lines, name, "message"),
			Fields:   p.extractFields(body),
		})
	}
	return messages
}

func (p *Parser) extractFields(messageBody string) []Field {
	var fields []Field
	for _, m := range fieldRegex.FindAllStringSubmatch(messageBody, -1) {
		label, fieldType, fieldName, numStr := m[1], m[2], m[3], m[4]

		// The field pattern also matches the headers of nested blocks.
		if fieldType == "message" || fieldType == "enum" || fieldType == "service" {
			continue
		}

		number, _ := strconv.Atoi(numStr)
		fields = append(fields, Field{
			Name:    fieldName,
			Type:    fieldType,
			Number:  number,
			Label:   label,
			Comment: p.commentInBody(messageBody, fieldName),
		})
	}
	return fields
}

func (p *Parser) extractEnums(lines []sourceLine, content string) []Enum {
	var enums []Enum
	for _, m := range enumRegex.FindAllStringSubmatch(content, -1) {
		name, body := m[1], m[2]
		enums = append(enums, Enum{
			Name:     name,
			FullName: p.qualify(name),
			Comment:  p.commentForConstruct(lines, name, "enum"),
			Values:   p.extractEnumValues(body),
		})
	}
	return enums
}

func (p *Parser) extractEnumValues(enumBody string) []Field {
	var values []Field
	for _, m := range enumValRegex.FindAllStringSubmatch(enumBody, -1) {
		number, _ := strconv.Atoi(m[2])
		values = append(values, Field{
			Name:    m[1],
			Type:    "enum_value",
			Number:  number,
			Comment: p.commentInBody(enumBody, m[1]),
		})
	}
	return values
}

// commentForConstruct locates the declaration line containing both keyword
// and name, then collects the comment block above it plus any inline
// comment. Matching is by substring, so comments can mis-attach when names
// overlap; that is an accepted limitation of the pattern approach.
func (p *Parser) commentForConstruct(lines []sourceLine, name, keyword string) string {
	for i, sl := range lines {
		if !strings.Contains(sl.line, keyword) || !strings.Contains(sl.line, name) {
			continue
		}

		var comments []string
		for j := i - 1; j >= 0; j-- {
			if lines[j].line != "" && lines[j].comment == "" {
				break
			}
			if lines[j].comment != "" {
				comments = append([]string{lines[j].comment}, comments...)
			}
		}
		if sl.comment != "" {
			comments = append(comments, sl.comment)
		}
		return strings.Join(comments, " ")
	}
	return ""
}

// commentInBody finds the comment for a name inside an already-extracted
// block body: the inline comment on the name's line wins, else the comment
// on the line directly above.
func (p *Parser) commentInBody(body, name string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if !strings.Contains(line, name) {
			continue
		}
		if m := commentRegex.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1])
		}
		if i > 0 {
			if m := commentRegex.FindStringSubmatch(lines[i-1]); m != nil {
				return strings.TrimSpace(m[1])
			}
		}
	}
	return ""
}
