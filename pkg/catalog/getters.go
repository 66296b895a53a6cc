package catalog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// GetService retrieves a service by name: exact fully qualified name first,
// then the first service whose name ends in "."+name or whose simple name
// equals it. With resolveTypes, every request and response type reachable
// within maxDepth hops is expanded under "resolved_types".
func (c *Catalog) GetService(ctx context.Context, name string, resolveTypes bool, maxDepth int) (map[string]interface{}, error) {
	_, span := tracer.Start(ctx, "catalog.GetService")
	defer span.End()
	span.SetAttributes(attribute.String("name", name), attribute.Int("max_depth", maxDepth))

	key := cacheKey("service", name, resolveTypes, maxDepth)
	if cached, ok := c.cache.Get(key); ok {
		c.recordLookup("service", "ok")
		return cached, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	service, exists := c.services[name]
	if !exists {
		for fullName, svc := range c.services {
			if endsWith(fullName, "."+name) || svc.Name == name {
				service = svc
				break
			}
		}
	}

	if service == nil {
		span.SetStatus(codes.Error, "not found")
		c.recordLookup("service", "not_found")
		return nil, &NotFoundError{Kind: "service", Name: name}
	}

	result := map[string]interface{}{
		"name":      service.Name,
		"full_name": service.FullName,
		"comment":   service.Comment,
		"file":      c.findFileForDefinition(service.FullName, "service"),
	}

	rpcs := make([]map[string]interface{}, len(service.RPCs))
	for i, rpc := range service.RPCs {
		rpcs[i] = map[string]interface{}{
			"name":               rpc.Name,
			"request_type":       rpc.RequestType,
			"response_type":      rpc.ResponseType,
			"request_streaming":  rpc.RequestStreaming,
			"response_streaming": rpc.ResponseStreaming,
			"comment":            rpc.Comment,
		}
	}
	result["rpcs"] = rpcs

	if resolveTypes && maxDepth > 0 {
		start := time.Now()
		resolvedTypes := c.resolveServiceTypes(service, maxDepth)
		if len(resolvedTypes) > 0 {
			result["resolved_types"] = resolvedTypes
		}
		if c.metrics != nil {
			c.metrics.ResolveDuration.Observe(time.Since(start).Seconds())
		}
	}

	c.cache.Add(key, result)
	c.recordLookup("service", "ok")
	return result, nil
}

// GetMessage retrieves a message by name, with the same fallback matching
// as GetService. With resolveTypes, non-primitive field types reachable
// within maxDepth hops are expanded under "resolved_types".
func (c *Catalog) GetMessage(ctx context.Context, name string, resolveTypes bool, maxDepth int) (map[string]interface{}, error) {
	_, span := tracer.Start(ctx, "catalog.GetMessage")
	defer span.End()
	span.SetAttributes(attribute.String("name", name), attribute.Int("max_depth", maxDepth))

	key := cacheKey("message", name, resolveTypes, maxDepth)
	if cached, ok := c.cache.Get(key); ok {
		c.recordLookup("message", "ok")
		return cached, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	message, exists := c.messages[name]
	if !exists {
		for fullName, msg := range c.messages {
			if endsWith(fullName, "."+name) || msg.Name == name {
				message = msg
				break
			}
		}
	}

	if message == nil {
		span.SetStatus(codes.Error, "not found")
		c.recordLookup("message", "not_found")
		return nil, &NotFoundError{Kind: "message", Name: name}
	}

	result := map[string]interface{}{
		"name":      message.Name,
		"full_name": message.FullName,
		"comment":   message.Comment,
		"file":      c.findFileForDefinition(message.FullName, "message"),
	}

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
	result["fields"] = fields

	if resolveTypes && maxDepth > 0 {
		start := time.Now()
		resolvedTypes := c.resolveMessageTypes(message, maxDepth, nil)
		if len(resolvedTypes) > 0 {
			result["resolved_types"] = resolvedTypes
		}
		if c.metrics != nil {
			c.metrics.ResolveDuration.Observe(time.Since(start).Seconds())
		}
	}

	c.cache.Add(key, result)
	c.recordLookup("message", "ok")
	return result, nil
}

// GetEnum retrieves an enum by name, with the same fallback matching as
// GetService. Enums have no types to resolve.
func (c *Catalog) GetEnum(ctx context.Context, name string) (map[string]interface{}, error) {
	_, span := tracer.Start(ctx, "catalog.GetEnum")
	defer span.End()
	span.SetAttributes(attribute.String("name", name))

	key := cacheKey("enum", name, false, 0)
	if cached, ok := c.cache.Get(key); ok {
		c.recordLookup("enum", "ok")
		return cached, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	enum, exists := c.enums[name]
	if !exists {
		for fullName, e := range c.enums {
			if endsWith(fullName, "."+name) || e.Name == name {
				enum = e
				break
			}
		}
	}

	if enum == nil {
		span.SetStatus(codes.Error, "not found")
		c.recordLookup("enum", "not_found")
		return nil, &NotFoundError{Kind: "enum", Name: name}
	}

	result := map[string]interface{}{
		"name":      enum.Name,
		"full_name": enum.FullName,
		"comment":   enum.Comment,
		"file":      c.findFileForDefinition(enum.FullName, "enum"),
	}

	values := make([]map[string]interface{}, len(enum.Values))
	for i, value := range enum.Values {
		values[i] = map[string]interface{}{
			"name":    value.Name,
			"number":  value.Number,
			"comment": value.Comment,
		}
	}
	result["values"] = values

	c.cache.Add(key, result)
	c.recordLookup("enum", "ok")
	return result, nil
}

func (c *Catalog) recordLookup(kind, status string) {
	if c.metrics != nil {
		c.metrics.LookupsTotal.WithLabelValues(kind, status).Inc()
	}
}

func endsWith(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
