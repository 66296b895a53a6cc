package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umuterturk/mcp-proto/pkg/catalog"
	"github.com/umuterturk/mcp-proto/pkg/observability"
)

const userProto = `syntax = "proto3";

package api.v1;

// A registered user account.
message User {
	int64 id = 1;
	string email = 2;
}

message GetUserRequest {
	int64 user_id = 1;
}

message GetUserResponse {
	User user = 1;
}

// Manages user accounts.
service UserService {
	rpc GetUser(GetUserRequest) returns (GetUserResponse);
}
`

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := catalog.New(observability.NewLogger(observability.ErrorLevel, io.Discard))
	dir := t.TempDir()
	path := filepath.Join(dir, "user.proto")
	require.NoError(t, os.WriteFile(path, []byte(userProto), 0o644))
	require.NoError(t, c.IndexFile(context.Background(), path))
	return c
}

// runRequests feeds line-delimited requests through a server and decodes
// every response line it writes.
func runRequests(t *testing.T, c *catalog.Catalog, requests ...string) []map[string]interface{} {
	t.Helper()

	input := strings.Join(requests, "\n") + "\n"
	var output bytes.Buffer
	s := New(c, observability.NewLogger(observability.ErrorLevel, io.Discard),
		WithIO(strings.NewReader(input), &output))

	require.NoError(t, s.Run(context.Background()))

	var responses []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(output.String()), "\n") {
		if line == "" {
			continue
		}
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func toolText(t *testing.T, resp map[string]interface{}) string {
	t.Helper()
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok, "expected a result, got %v", resp)
	content := result["content"].([]interface{})
	require.Len(t, content, 1)
	block := content[0].(map[string]interface{})
	assert.Equal(t, "text", block["type"])
	return block["text"].(string)
}

func TestInitialize(t *testing.T) {
	responses := runRequests(t, newTestCatalog(t),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	require.Len(t, responses, 1)

	result := responses[0]["result"].(map[string]interface{})
	assert.Equal(t, "2024-11-05", result["protocolVersion"])

	info := result["serverInfo"].(map[string]interface{})
	assert.Equal(t, "mcp-proto", info["name"])
}

func TestListTools(t *testing.T) {
	responses := runRequests(t, newTestCatalog(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Len(t, responses, 1)

	result := responses[0]["result"].(map[string]interface{})
	tools := result["tools"].([]interface{})
	require.Len(t, tools, 5)

	var names []string
	for _, tool := range tools {
		names = append(names, tool.(map[string]interface{})["name"].(string))
	}
	assert.Equal(t, []string{
		"search_proto",
		"get_service_definition",
		"get_message_definition",
		"find_type_usages",
		"get_stats",
	}, names)
}

func TestPing(t *testing.T) {
	responses := runRequests(t, newTestCatalog(t),
		`{"jsonrpc":"2.0","id":7,"method":"ping"}`)
	require.Len(t, responses, 1)
	assert.Equal(t, float64(7), responses[0]["id"])
	assert.NotNil(t, responses[0]["result"])
	assert.Nil(t, responses[0]["error"])
}

func TestParseError(t *testing.T) {
	responses := runRequests(t, newTestCatalog(t), `{not json`)
	require.Len(t, responses, 1)

	rpcErr := responses[0]["error"].(map[string]interface{})
	assert.Equal(t, float64(-32700), rpcErr["code"])
	assert.Equal(t, "Parse error", rpcErr["message"])
}

func TestMethodNotFound(t *testing.T) {
	responses := runRequests(t, newTestCatalog(t),
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`)
	require.Len(t, responses, 1)

	rpcErr := responses[0]["error"].(map[string]interface{})
	assert.Equal(t, float64(-32601), rpcErr["code"])
}

func TestNotificationGetsNoResponse(t *testing.T) {
	responses := runRequests(t, newTestCatalog(t),
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.Len(t, responses, 1)
	assert.Equal(t, float64(1), responses[0]["id"])
}

func TestSearchProtoTool(t *testing.T) {
	responses := runRequests(t, newTestCatalog(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"search_proto","arguments":{"query":"user"}}}`)
	require.Len(t, responses, 1)

	text := toolText(t, responses[0])
	assert.Contains(t, text, "results for query 'user'")
	assert.Contains(t, text, "api.v1.UserService")
}

func TestSearchProtoMissingQuery(t *testing.T) {
	responses := runRequests(t, newTestCatalog(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"search_proto","arguments":{}}}`)
	require.Len(t, responses, 1)

	rpcErr := responses[0]["error"].(map[string]interface{})
	assert.Equal(t, float64(-32603), rpcErr["code"])
	assert.Contains(t, rpcErr["message"], "query parameter is required")
}

func TestGetServiceDefinitionTool(t *testing.T) {
	responses := runRequests(t, newTestCatalog(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_service_definition","arguments":{"name":"UserService"}}}`)
	require.Len(t, responses, 1)

	text := toolText(t, responses[0])
	assert.Contains(t, text, "Service: api.v1.UserService")
	assert.Contains(t, text, "RPCs: 1")
	assert.Contains(t, text, "Resolved Types: 3")
	assert.Contains(t, text, `"GetUser"`)
}

func TestGetMessageDefinitionTool(t *testing.T) {
	responses := runRequests(t, newTestCatalog(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_message_definition","arguments":{"name":"User","resolve_types":false}}}`)
	require.Len(t, responses, 1)

	text := toolText(t, responses[0])
	assert.Contains(t, text, "Message: api.v1.User")
	assert.Contains(t, text, "Fields: 2")
	assert.NotContains(t, text, "Resolved Types")
}

func TestGetServiceDefinitionNotFound(t *testing.T) {
	responses := runRequests(t, newTestCatalog(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_service_definition","arguments":{"name":"OrderService"}}}`)
	require.Len(t, responses, 1)

	rpcErr := responses[0]["error"].(map[string]interface{})
	assert.Equal(t, float64(-32603), rpcErr["code"])
	assert.Contains(t, rpcErr["message"], "service not found: OrderService")
}

func TestFindTypeUsagesTool(t *testing.T) {
	responses := runRequests(t, newTestCatalog(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"find_type_usages","arguments":{"type_name":"User"}}}`)
	require.Len(t, responses, 1)

	text := toolText(t, responses[0])
	assert.Contains(t, text, "Found 1 usage(s) of type 'User'")
	assert.Contains(t, text, "RPC: GetUser (Response) via user")
}

func TestGetStatsTool(t *testing.T) {
	responses := runRequests(t, newTestCatalog(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_stats","arguments":{}}}`)
	require.Len(t, responses, 1)

	text := toolText(t, responses[0])
	assert.Contains(t, text, "Indexed 1 files: 1 services, 3 messages, 0 enums.")
	assert.Contains(t, text, `"total_files": 1`)
}

func TestUnknownTool(t *testing.T) {
	responses := runRequests(t, newTestCatalog(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"drop_tables","arguments":{}}}`)
	require.Len(t, responses, 1)

	rpcErr := responses[0]["error"].(map[string]interface{})
	assert.Equal(t, float64(-32603), rpcErr["code"])
	assert.Contains(t, rpcErr["message"], "unknown tool: drop_tables")
}

func TestRequestsAnsweredInOrder(t *testing.T) {
	responses := runRequests(t, newTestCatalog(t),
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":3,"method":"ping"}`)
	require.Len(t, responses, 3)
	for i, resp := range responses {
		assert.Equal(t, float64(i+1), resp["id"])
	}
}
