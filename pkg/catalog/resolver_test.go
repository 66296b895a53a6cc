package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolvedTypes(t *testing.T, result map[string]interface{}) map[string]interface{} {
	t.Helper()
	raw, ok := result["resolved_types"]
	if !ok {
		return nil
	}
	return raw.(map[string]interface{})
}

func TestResolvePrimitivesNeverResolved(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	writeProto(t, dir, "scalars.proto", `syntax = "proto3";
package api.v1;
message Scalars {
	string a = 1;
	int32 b = 2;
	int64 c = 3;
	uint32 d = 4;
	uint64 e = 5;
	sint32 f = 6;
	sint64 g = 7;
	fixed32 h = 8;
	fixed64 i = 9;
	sfixed32 j = 10;
	sfixed64 k = 11;
	bool l = 12;
	bytes m = 13;
	float n = 14;
	double o = 15;
}
`)
	_, err := c.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)

	result, err := c.GetMessage(context.Background(), "Scalars", true, 10)
	require.NoError(t, err)
	assert.Nil(t, resolvedTypes(t, result), "scalar fields must not produce resolved types")
}

func TestResolveChainDepthLimit(t *testing.T) {
	// M0 -> M1 -> M2 -> M3 -> M4, each hop through one field.
	c := newTestCatalog()
	dir := t.TempDir()
	content := `syntax = "proto3";
package chain.v1;
`
	for i := 0; i < 5; i++ {
		if i < 4 {
			content += fmt.Sprintf("message M%d {\n\tM%d next = 1;\n}\n", i, i+1)
		} else {
			content += fmt.Sprintf("message M%d {\n\tstring leaf = 1;\n}\n", i)
		}
	}
	writeProto(t, dir, "chain.proto", content)
	_, err := c.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)

	tests := []struct {
		maxDepth int
		want     int
	}{
		{maxDepth: 1, want: 1},
		{maxDepth: 2, want: 2},
		{maxDepth: 3, want: 3},
		{maxDepth: 4, want: 4},
		{maxDepth: 10, want: 4},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("depth_%d", tt.maxDepth), func(t *testing.T) {
			result, err := c.GetMessage(context.Background(), "M0", true, tt.maxDepth)
			require.NoError(t, err)
			assert.Len(t, resolvedTypes(t, result), tt.want)
		})
	}
}

func TestResolveDepthZeroDisablesResolution(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	writeProto(t, dir, "user.proto", userProto)
	_, err := c.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)

	result, err := c.GetMessage(context.Background(), "GetUserResponse", true, 0)
	require.NoError(t, err)
	assert.Nil(t, resolvedTypes(t, result))

	result, err = c.GetMessage(context.Background(), "GetUserResponse", false, 10)
	require.NoError(t, err)
	assert.Nil(t, resolvedTypes(t, result))
}

func TestResolveTwoCycle(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	writeProto(t, dir, "cycle.proto", `syntax = "proto3";
package cycle.v1;
message A {
	B b = 1;
}
message B {
	A a = 1;
}
`)
	_, err := c.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)

	result, err := c.GetMessage(context.Background(), "A", true, 10)
	require.NoError(t, err)

	resolved := resolvedTypes(t, result)
	// Both sides of the cycle appear exactly once and expansion terminates.
	require.Len(t, resolved, 2)
	assert.Contains(t, resolved, "A")
	assert.Contains(t, resolved, "B")
}

func TestResolveSelfReference(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	writeProto(t, dir, "tree.proto", `syntax = "proto3";
package tree.v1;
message Node {
	string value = 1;
	Node left = 2;
	Node right = 3;
}
`)
	_, err := c.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)

	result, err := c.GetMessage(context.Background(), "Node", true, 10)
	require.NoError(t, err)

	resolved := resolvedTypes(t, result)
	require.Len(t, resolved, 1)
	assert.Contains(t, resolved, "Node")
}

func TestResolveQualifiedTypeBeatsSimpleNameCollision(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	writeProto(t, dir, "money_a.proto", `syntax = "proto3";
package alpha.v1;
message Money {
	string currency = 1;
}
`)
	writeProto(t, dir, "money_b.proto", `syntax = "proto3";
package beta.v1;
message Money {
	int64 minor_units = 1;
}
`)
	writeProto(t, dir, "order.proto", `syntax = "proto3";
package shop.v1;
message Order {
	beta.v1.Money total = 1;
}
`)
	_, err := c.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)

	result, err := c.GetMessage(context.Background(), "Order", true, 10)
	require.NoError(t, err)

	resolved := resolvedTypes(t, result)
	require.Contains(t, resolved, "beta.v1.Money")
	money := resolved["beta.v1.Money"].(map[string]interface{})
	assert.Equal(t, "beta.v1.Money", money["full_name"])
}

func TestResolveEnumField(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	writeProto(t, dir, "order.proto", `syntax = "proto3";
package shop.v1;
enum Status {
	STATUS_UNSPECIFIED = 0;
	STATUS_PAID = 1;
}
message Order {
	Status status = 1;
}
`)
	_, err := c.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)

	result, err := c.GetMessage(context.Background(), "Order", true, 10)
	require.NoError(t, err)

	resolved := resolvedTypes(t, result)
	require.Contains(t, resolved, "Status")
	status := resolved["Status"].(map[string]interface{})
	assert.Equal(t, "enum", status["kind"])
	values := status["values"].([]map[string]interface{})
	assert.Len(t, values, 2)
}

func TestResolveUnknownTypeSilentlyDropped(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	writeProto(t, dir, "order.proto", `syntax = "proto3";
package shop.v1;
message Order {
	google.protobuf.Timestamp created_at = 1;
	string id = 2;
}
`)
	_, err := c.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)

	result, err := c.GetMessage(context.Background(), "Order", true, 10)
	require.NoError(t, err)
	assert.Nil(t, resolvedTypes(t, result))
}

func TestResolveServiceTypesSpansAllRPCs(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	writeProto(t, dir, "user.proto", userProto)
	writeProto(t, dir, "user_service.proto", userServiceProto)
	_, err := c.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)

	result, err := c.GetService(context.Background(), "UserService", true, 10)
	require.NoError(t, err)

	resolved := resolvedTypes(t, result)
	// Request, response, and the User message inside the response.
	require.Len(t, resolved, 3)
	assert.Contains(t, resolved, "GetUserRequest")
	assert.Contains(t, resolved, "GetUserResponse")
	assert.Contains(t, resolved, "User")
}

func TestResolveServiceDepthOne(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	writeProto(t, dir, "user.proto", userProto)
	writeProto(t, dir, "user_service.proto", userServiceProto)
	_, err := c.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)

	result, err := c.GetService(context.Background(), "UserService", true, 1)
	require.NoError(t, err)

	resolved := resolvedTypes(t, result)
	// Only the RPC's own types fit in one hop; User stays unexpanded.
	require.Len(t, resolved, 2)
	assert.NotContains(t, resolved, "User")
}
