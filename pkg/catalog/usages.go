package catalog

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/umuterturk/mcp-proto/pkg/schema"
)

// TypeUsage records one place an RPC reaches a type: through which
// service and method, on the request or response side, and along which
// chain of field names. Depth 0 means the RPC's request or response type
// is the target itself.
type TypeUsage struct {
	ServiceName  string   `json:"service_name"`
	RPCName      string   `json:"rpc_name"`
	UsageContext string   `json:"usage_context"`
	FieldPath    []string `json:"field_path"`
	Depth        int      `json:"depth"`
}

// Usage context values.
const (
	ContextRequest  = "Request"
	ContextResponse = "Response"
)

// FindTypeUsages walks every RPC's request and response graph and reports
// each field path that reaches the named type. The name may be simple or
// fully qualified. A path is abandoned where it would re-enter a message
// already on it, so usages behind a reference cycle's re-entry point are
// not reported. Returns a NotFoundError when the type exists nowhere in
// the catalog.
func (c *Catalog) FindTypeUsages(ctx context.Context, typeName string) ([]TypeUsage, error) {
	_, span := tracer.Start(ctx, "catalog.FindTypeUsages")
	defer span.End()
	span.SetAttributes(attribute.String("type", typeName))

	c.mu.RLock()
	defer c.mu.RUnlock()

	target, ok := c.lookupTypeLocked(typeName)
	if !ok {
		span.SetStatus(codes.Error, "not found")
		c.recordLookup("type", "not_found")
		return nil, &NotFoundError{Kind: "type", Name: typeName}
	}

	var usages []TypeUsage
	for _, entry := range c.entries {
		if entry.Kind != "service" || entry.Service == nil {
			continue
		}
		service := entry.Service
		for _, rpc := range service.RPCs {
			usages = c.collectUsages(usages, service, rpc, ContextRequest, rpc.RequestType, target)
			usages = c.collectUsages(usages, service, rpc, ContextResponse, rpc.ResponseType, target)
		}
	}

	span.SetAttributes(attribute.Int("usages", len(usages)))
	c.recordLookup("type", "ok")
	return usages, nil
}

// typeIdentity names a type both ways so field references written with or
// without a package qualifier can be recognized.
type typeIdentity struct {
	fullName   string
	simpleName string
}

// lookupTypeLocked resolves a user-supplied name to a known message or
// enum, with the getters' fallback order: exact key, suffix, simple name.
func (c *Catalog) lookupTypeLocked(name string) (typeIdentity, bool) {
	if msg, exists := c.messages[name]; exists {
		return typeIdentity{fullName: msg.FullName, simpleName: msg.Name}, true
	}
	if enum, exists := c.enums[name]; exists {
		return typeIdentity{fullName: enum.FullName, simpleName: enum.Name}, true
	}
	for fullName, msg := range c.messages {
		if endsWith(fullName, "."+name) || msg.Name == name {
			return typeIdentity{fullName: msg.FullName, simpleName: msg.Name}, true
		}
	}
	for fullName, enum := range c.enums {
		if endsWith(fullName, "."+name) || enum.Name == name {
			return typeIdentity{fullName: enum.FullName, simpleName: enum.Name}, true
		}
	}
	return typeIdentity{}, false
}

// matches reports whether a field's type reference denotes the target.
// Qualified references are compared against the full name, bare ones
// against the simple name; a suffix match covers partially qualified
// references. Same-named types in other packages can collide here, the
// price of indexing without import resolution.
func (t typeIdentity) matches(fieldType string) bool {
	return fieldType == t.fullName ||
		fieldType == t.simpleName ||
		strings.HasSuffix(fieldType, "."+t.simpleName)
}

// collectUsages checks one RPC direction: a direct hit on the root type,
// otherwise a DFS through the root message's fields.
func (c *Catalog) collectUsages(usages []TypeUsage, service *schema.Service, rpc schema.RPC, usageContext, rootType string, target typeIdentity) []TypeUsage {
	if target.matches(rootType) {
		return append(usages, TypeUsage{
			ServiceName:  service.Name,
			RPCName:      rpc.Name,
			UsageContext: usageContext,
			FieldPath:    []string{},
			Depth:        0,
		})
	}

	root := c.findMessageByType(rootType, service.FullName)
	if root == nil {
		return usages
	}

	onPath := map[string]bool{root.FullName: true}
	return c.walkFields(usages, service, rpc, usageContext, root, nil, 0, onPath, target)
}

// walkFields descends through message fields depth-first, recording a
// usage for every field whose type denotes the target. onPath holds the
// messages currently being expanded, which terminates cycles.
func (c *Catalog) walkFields(usages []TypeUsage, service *schema.Service, rpc schema.RPC, usageContext string, msg *schema.Message, path []string, depth int, onPath map[string]bool, target typeIdentity) []TypeUsage {
	for _, field := range msg.Fields {
		if isPrimitiveType(field.Type) {
			continue
		}

		fieldPath := append(append([]string{}, path...), field.Name)

		if target.matches(field.Type) {
			usages = append(usages, TypeUsage{
				ServiceName:  service.Name,
				RPCName:      rpc.Name,
				UsageContext: usageContext,
				FieldPath:    fieldPath,
				Depth:        depth + 1,
			})
			continue
		}

		child := c.findMessageByType(field.Type, msg.FullName)
		if child == nil || onPath[child.FullName] {
			continue
		}

		onPath[child.FullName] = true
		usages = c.walkFields(usages, service, rpc, usageContext, child, fieldPath, depth+1, onPath, target)
		delete(onPath, child.FullName)
	}

	return usages
}
