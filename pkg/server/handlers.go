package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Tool parameter defaults.
const (
	defaultSearchLimit  = 20
	defaultMinScore     = 60
	defaultMaxDepth     = 10
	defaultResolveTypes = true
)

func (s *Server) handleListTools() interface{} {
	tools := []map[string]interface{}{
		{
			"name": "search_proto",
			"description": "Fuzzy search across all proto definitions (services, messages, enums). " +
				"Searches in names, fields, RPC methods, and comments. " +
				"Returns structured results with match scores.",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Search query - can be partial name, keyword, or field name",
					},
					"limit": map[string]interface{}{
						"type":        "number",
						"description": "Maximum number of results (default: 20)",
						"default":     defaultSearchLimit,
					},
					"min_score": map[string]interface{}{
						"type":        "number",
						"description": "Minimum match score 0-100 (default: 60)",
						"default":     defaultMinScore,
					},
				},
				"required": []string{"query"},
			},
		},
		{
			"name": "get_service_definition",
			"description": "Get complete service definition including all RPC methods with " +
				"their request/response types and comments. " +
				"Automatically resolves nested types recursively. " +
				"Accepts both simple names (e.g. 'UserService') and " +
				"fully qualified names (e.g. 'api.v1.UserService').",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Service name, simple or fully qualified",
					},
					"resolve_types": map[string]interface{}{
						"type":        "boolean",
						"description": "Recursively resolve request/response types (default: true)",
						"default":     defaultResolveTypes,
					},
					"max_depth": map[string]interface{}{
						"type":        "number",
						"description": "Maximum recursion depth for type resolution (default: 10)",
						"default":     defaultMaxDepth,
					},
				},
				"required": []string{"name"},
			},
		},
		{
			"name": "get_message_definition",
			"description": "Get complete message definition with all fields, types, and comments. " +
				"Automatically resolves nested types recursively. " +
				"Accepts both simple names (e.g. 'User') and " +
				"fully qualified names (e.g. 'api.v1.User').",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Message or enum name, simple or fully qualified",
					},
					"resolve_types": map[string]interface{}{
						"type":        "boolean",
						"description": "Recursively resolve field types (default: true)",
						"default":     defaultResolveTypes,
					},
					"max_depth": map[string]interface{}{
						"type":        "number",
						"description": "Maximum recursion depth for type resolution (default: 10)",
						"default":     defaultMaxDepth,
					},
				},
				"required": []string{"name"},
			},
		},
		{
			"name": "find_type_usages",
			"description": "Find all services and RPC methods that use a given type (message or enum). " +
				"Searches recursively through nested types to find deep dependencies. " +
				"Returns which services, RPCs, and field paths use the type. " +
				"Useful for impact analysis.",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"type_name": map[string]interface{}{
						"type":        "string",
						"description": "Message or enum name to find usages for, simple or fully qualified",
					},
				},
				"required": []string{"type_name"},
			},
		},
		{
			"name":        "get_stats",
			"description": "Get statistics about the indexed proto files: counts of files, services, messages, enums, and searchable entries.",
			"inputSchema": map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}

	return map[string]interface{}{"tools": tools}
}

func (s *Server) handleToolCall(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var call struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	}
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, fmt.Errorf("invalid tool call params: %w", err)
	}

	s.logger.WithField("tool", call.Name).Info("executing tool")

	var content string
	var err error
	switch call.Name {
	case "search_proto":
		content, err = s.handleSearchProto(ctx, call.Arguments)
	case "get_service_definition":
		content, err = s.handleGetService(ctx, call.Arguments)
	case "get_message_definition":
		content, err = s.handleGetMessage(ctx, call.Arguments)
	case "find_type_usages":
		content, err = s.handleFindTypeUsages(ctx, call.Arguments)
	case "get_stats":
		content, err = s.handleGetStats(ctx)
	default:
		return nil, fmt.Errorf("unknown tool: %s (available tools: search_proto, get_service_definition, get_message_definition, find_type_usages, get_stats)", call.Name)
	}
	if err != nil {
		s.logger.WithField("tool", call.Name).WithError(err).Error("tool execution failed")
		return nil, err
	}

	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": content},
		},
	}, nil
}

func (s *Server) handleSearchProto(ctx context.Context, args map[string]interface{}) (string, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return "", fmt.Errorf("query parameter is required")
	}

	limit := defaultSearchLimit
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}
	minScore := defaultMinScore
	if ms, ok := args["min_score"].(float64); ok {
		minScore = int(ms)
	}

	results := s.catalog.Search(ctx, query, limit, minScore)

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}

	summary := fmt.Sprintf("Found %d results for query '%s':\n\n", len(results), query)
	return summary + string(data), nil
}

func (s *Server) handleGetService(ctx context.Context, args map[string]interface{}) (string, error) {
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return "", fmt.Errorf("name parameter is required")
	}
	resolveTypes := defaultResolveTypes
	if rt, ok := args["resolve_types"].(bool); ok {
		resolveTypes = rt
	}
	maxDepth := defaultMaxDepth
	if md, ok := args["max_depth"].(float64); ok {
		maxDepth = int(md)
	}

	service, err := s.catalog.GetService(ctx, name, resolveTypes, maxDepth)
	if err != nil {
		return "", fmt.Errorf("service not found: %s", name)
	}

	data, err := json.MarshalIndent(service, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal service: %w", err)
	}

	var summary strings.Builder
	fmt.Fprintf(&summary, "Service: %s\n", service["full_name"])
	fmt.Fprintf(&summary, "File: %s\n", service["file"])
	if rpcs, ok := service["rpcs"].([]map[string]interface{}); ok {
		fmt.Fprintf(&summary, "RPCs: %d\n", len(rpcs))
	}
	if resolved, ok := service["resolved_types"].(map[string]interface{}); ok && len(resolved) > 0 {
		fmt.Fprintf(&summary, "Resolved Types: %d\n", len(resolved))
	}
	summary.WriteString("\nFull Definition:\n\n")

	return summary.String() + string(data), nil
}

func (s *Server) handleGetMessage(ctx context.Context, args map[string]interface{}) (string, error) {
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return "", fmt.Errorf("name parameter is required")
	}
	resolveTypes := defaultResolveTypes
	if rt, ok := args["resolve_types"].(bool); ok {
		resolveTypes = rt
	}
	maxDepth := defaultMaxDepth
	if md, ok := args["max_depth"].(float64); ok {
		maxDepth = int(md)
	}

	message, err := s.catalog.GetMessage(ctx, name, resolveTypes, maxDepth)
	if err != nil {
		return "", fmt.Errorf("message not found: %s", name)
	}

	data, err := json.MarshalIndent(message, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	var summary strings.Builder
	fmt.Fprintf(&summary, "Message: %s\n", message["full_name"])
	fmt.Fprintf(&summary, "File: %s\n", message["file"])
	if fields, ok := message["fields"].([]map[string]interface{}); ok {
		fmt.Fprintf(&summary, "Fields: %d\n", len(fields))
	}
	if resolved, ok := message["resolved_types"].(map[string]interface{}); ok && len(resolved) > 0 {
		fmt.Fprintf(&summary, "Resolved Types: %d\n", len(resolved))
	}
	summary.WriteString("\nFull Definition:\n\n")

	return summary.String() + string(data), nil
}

func (s *Server) handleFindTypeUsages(ctx context.Context, args map[string]interface{}) (string, error) {
	typeName, ok := args["type_name"].(string)
	if !ok || typeName == "" {
		return "", fmt.Errorf("type_name parameter is required")
	}

	usages, err := s.catalog.FindTypeUsages(ctx, typeName)
	if err != nil {
		return "", fmt.Errorf("failed to find usages: %w", err)
	}

	data, err := json.MarshalIndent(usages, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal usages: %w", err)
	}

	var summary strings.Builder
	fmt.Fprintf(&summary, "Found %d usage(s) of type '%s':\n\n", len(usages), typeName)

	if len(usages) > 0 {
		byService := make(map[string][]string)
		var order []string
		for _, usage := range usages {
			line := fmt.Sprintf("  - RPC: %s (%s)", usage.RPCName, usage.UsageContext)
			if len(usage.FieldPath) > 0 {
				line += " via " + strings.Join(usage.FieldPath, ".")
			}
			if _, seen := byService[usage.ServiceName]; !seen {
				order = append(order, usage.ServiceName)
			}
			byService[usage.ServiceName] = append(byService[usage.ServiceName], line)
		}

		summary.WriteString("Services using this type:\n")
		for _, serviceName := range order {
			fmt.Fprintf(&summary, "- %s:\n", serviceName)
			for _, line := range byService[serviceName] {
				summary.WriteString(line + "\n")
			}
		}
		summary.WriteString("\nDetailed Results:\n\n")
	}

	return summary.String() + string(data), nil
}

func (s *Server) handleGetStats(ctx context.Context) (string, error) {
	stats := s.catalog.GetStats()

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal stats: %w", err)
	}

	summary := fmt.Sprintf("Indexed %d files: %d services, %d messages, %d enums.\n\n",
		stats.TotalFiles, stats.TotalServices, stats.TotalMessages, stats.TotalEnums)
	return summary + string(data), nil
}
