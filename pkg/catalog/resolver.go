package catalog

import (
	"strings"

	"github.com/umuterturk/mcp-proto/pkg/schema"
)

// Scalar proto types that never resolve to a definition.
var primitiveTypes = map[string]bool{
	"string":   true,
	"int32":    true,
	"int64":    true,
	"uint32":   true,
	"uint64":   true,
	"sint32":   true,
	"sint64":   true,
	"fixed32":  true,
	"fixed64":  true,
	"sfixed32": true,
	"sfixed64": true,
	"bool":     true,
	"bytes":    true,
	"float":    true,
	"double":   true,
}

func isPrimitiveType(typeName string) bool {
	return primitiveTypes[typeName]
}

// resolveServiceTypes expands every request and response type of a service,
// recursing into their field types. A single visited set spans all RPCs, so
// a type shared between methods expands once. The caller must hold at least
// a read lock.
func (c *Catalog) resolveServiceTypes(service *schema.Service, maxDepth int) map[string]interface{} {
	if maxDepth <= 0 {
		return nil
	}

	resolved := make(map[string]interface{})
	visited := make(map[string]bool)
	contextPackage := service.FullName

	for _, rpc := range service.RPCs {
		for _, typeName := range []string{rpc.RequestType, rpc.ResponseType} {
			if visited[typeName] {
				continue
			}
			msg := c.findMessageByType(typeName, contextPackage)
			if msg == nil {
				continue
			}
			visited[typeName] = true
			resolved[typeName] = c.messageToMap(msg)

			for k, v := range c.resolveMessageTypes(msg, maxDepth-1, visited) {
				resolved[k] = v
			}
		}
	}

	return resolved
}

// resolveMessageTypes expands the non-primitive field types of a message,
// recursing up to maxDepth hops. Each type name is marked visited before
// its own expansion, which both deduplicates shared types and terminates
// reference cycles. Types that resolve to nothing are silently dropped.
// The caller must hold at least a read lock.
func (c *Catalog) resolveMessageTypes(message *schema.Message, maxDepth int, visited map[string]bool) map[string]interface{} {
	if maxDepth <= 0 {
		return nil
	}
	if visited == nil {
		visited = make(map[string]bool)
	}

	resolved := make(map[string]interface{})
	contextPackage := message.FullName

	for _, field := range message.Fields {
		fieldType := field.Type

		if isPrimitiveType(fieldType) {
			continue
		}
		if visited[fieldType] {
			continue
		}
		visited[fieldType] = true

		if msg := c.findMessageByType(fieldType, contextPackage); msg != nil {
			resolved[fieldType] = c.messageToMap(msg)
			for k, v := range c.resolveMessageTypes(msg, maxDepth-1, visited) {
				resolved[k] = v
			}
			continue
		}

		if enum := c.findEnumByType(fieldType, contextPackage); enum != nil {
			resolved[fieldType] = c.enumToMap(enum)
		}
	}

	return resolved
}

// findMessageByType resolves a type name to a message. Strategies in order:
// exact fully qualified name, the name qualified with the context's
// package, then the first message whose simple name or suffix matches.
// The last strategy depends on map iteration order when several packages
// declare the same simple name.
func (c *Catalog) findMessageByType(typeName, contextPackage string) *schema.Message {
	if msg, exists := c.messages[typeName]; exists {
		return msg
	}

	if contextPackage != "" {
		packagePrefix := contextPackage
		// The context is a definition's full name; its package is
		// everything before the last component.
		if lastDot := strings.LastIndex(contextPackage, "."); lastDot != -1 {
			packagePrefix = contextPackage[:lastDot]
		}
		if packagePrefix != "" {
			if msg, exists := c.messages[packagePrefix+"."+typeName]; exists {
				return msg
			}
		}
	}

	for fullName, msg := range c.messages {
		if msg.Name == typeName || strings.HasSuffix(fullName, "."+typeName) {
			return msg
		}
	}

	return nil
}

// findEnumByType resolves a type name to an enum, with the same strategy
// order as findMessageByType.
func (c *Catalog) findEnumByType(typeName, contextPackage string) *schema.Enum {
	if enum, exists := c.enums[typeName]; exists {
		return enum
	}

	if contextPackage != "" {
		packagePrefix := contextPackage
		if lastDot := strings.LastIndex(contextPackage, "."); lastDot != -1 {
			packagePrefix = contextPackage[:lastDot]
		}
		if packagePrefix != "" {
			if enum, exists := c.enums[packagePrefix+"."+typeName]; exists {
				return enum
			}
		}
	}

	for fullName, enum := range c.enums {
		if enum.Name == typeName || strings.HasSuffix(fullName, "."+typeName) {
			return enum
		}
	}

	return nil
}

func (c *Catalog) messageToMap(message *schema.Message) map[string]interface{} {
	fields := make([]map[string]interface{}, len(message.Fields))
	for i, field := range message.Fields {
		fields[i] = map[string]interface{}{
			"name":    field.Name,
			"type":    field.Type,
			"number":  field.Number,
			"label":   field.Label,
			"comment": field.Comment,
		}
	}

	return map[string]interface{}{
		"kind":      "message",
		"name":      message.Name,
		"full_name": message.FullName,
		"comment":   message.Comment,
		"fields":    fields,
		"file":      c.findFileForDefinition(message.FullName, "message"),
	}
}

func (c *Catalog) enumToMap(enum *schema.Enum) map[string]interface{} {
	values := make([]map[string]interface{}, len(enum.Values))
	for i, value := range enum.Values {
		values[i] = map[string]interface{}{
			"name":    value.Name,
			"number":  value.Number,
			"comment": value.Comment,
		}
	}

	return map[string]interface{}{
		"kind":      "enum",
		"name":      enum.Name,
		"full_name": enum.FullName,
		"comment":   enum.Comment,
		"values":    values,
		"file":      c.findFileForDefinition(enum.FullName, "enum"),
	}
}
