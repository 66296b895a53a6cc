package catalog

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umuterturk/mcp-proto/pkg/observability"
)

func newTestCatalog(opts ...Option) *Catalog {
	return New(observability.NewLogger(observability.ErrorLevel, io.Discard), opts...)
}

func writeProto(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

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
`

const userServiceProto = `syntax = "proto3";

package api.v1;

// Manages user accounts.
service UserService {
	rpc GetUser(GetUserRequest) returns (GetUserResponse);
}
`

func TestIndexDirectory(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	writeProto(t, dir, "user.proto", userProto)
	writeProto(t, dir, "nested/user_service.proto", userServiceProto)
	writeProto(t, dir, "notes.txt", "not a proto file")

	count, err := c.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	stats := c.GetStats()
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, 1, stats.TotalServices)
	assert.Equal(t, 3, stats.TotalMessages)
	assert.Equal(t, 0, stats.TotalEnums)
	assert.Equal(t, 4, stats.TotalSearchableEntries)
	assert.False(t, c.Empty())
}

func TestIndexDirectoryMissingRoot(t *testing.T) {
	c := newTestCatalog()
	_, err := c.IndexDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to walk directory")
}

func TestIndexDirectoryIgnoresProtoNamedDirectory(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "weird.proto"), 0o755))
	writeProto(t, dir, "user.proto", userProto)

	count, err := c.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIndexFileAndRemoveFile(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	path := writeProto(t, dir, "user.proto", userProto)

	require.NoError(t, c.IndexFile(context.Background(), path))
	assert.Equal(t, 3, c.GetStats().TotalMessages)

	c.RemoveFile(context.Background(), path)
	stats := c.GetStats()
	assert.Equal(t, 0, stats.TotalFiles)
	assert.Equal(t, 0, stats.TotalMessages)
	assert.Equal(t, 0, stats.TotalSearchableEntries)
	assert.True(t, c.Empty())
}

func TestIndexFileUnreadable(t *testing.T) {
	c := newTestCatalog()
	err := c.IndexFile(context.Background(), filepath.Join(t.TempDir(), "missing.proto"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse file")
}

func TestRemoveFileUnknownPathIsNoop(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	path := writeProto(t, dir, "user.proto", userProto)
	require.NoError(t, c.IndexFile(context.Background(), path))

	c.RemoveFile(context.Background(), filepath.Join(dir, "other.proto"))
	assert.Equal(t, 1, c.GetStats().TotalFiles)
}

func TestRemoveFileKeepsOtherFiles(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	userPath := writeProto(t, dir, "user.proto", userProto)
	svcPath := writeProto(t, dir, "user_service.proto", userServiceProto)
	require.NoError(t, c.IndexFile(context.Background(), userPath))
	require.NoError(t, c.IndexFile(context.Background(), svcPath))

	c.RemoveFile(context.Background(), userPath)

	stats := c.GetStats()
	assert.Equal(t, 1, stats.TotalFiles)
	assert.Equal(t, 1, stats.TotalServices)
	assert.Equal(t, 0, stats.TotalMessages)

	_, err := c.GetService(context.Background(), "UserService", false, 0)
	assert.NoError(t, err)
	_, err = c.GetMessage(context.Background(), "User", false, 0)
	assert.Error(t, err)
}

func TestReindexSameFileReplacesDefinitions(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	path := writeProto(t, dir, "user.proto", userProto+`
message Legacy {
	string note = 1;
}
`)
	require.NoError(t, c.IndexFile(context.Background(), path))
	require.Equal(t, 4, c.GetStats().TotalSearchableEntries)

	// Rewrite the file without Legacy; re-indexing is remove-then-add, so
	// the dropped message must stop being served.
	writeProto(t, dir, "user.proto", userProto)
	require.NoError(t, c.IndexFile(context.Background(), path))

	stats := c.GetStats()
	assert.Equal(t, 1, stats.TotalFiles)
	assert.Equal(t, 3, stats.TotalMessages)
	assert.Equal(t, 3, stats.TotalSearchableEntries)

	_, err := c.GetMessage(context.Background(), "api.v1.Legacy", false, 0)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = c.GetMessage(context.Background(), "api.v1.User", false, 0)
	assert.NoError(t, err)
}

func TestReindexDirectoryDoesNotDuplicateEntries(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	writeProto(t, dir, "user.proto", userProto)
	writeProto(t, dir, "user_service.proto", userServiceProto)

	for i := 0; i < 3; i++ {
		_, err := c.IndexDirectory(context.Background(), dir)
		require.NoError(t, err)
	}

	assert.Equal(t, 4, c.GetStats().TotalSearchableEntries)
}

func TestNameCollisionLastWriterWins(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	writeProto(t, dir, "a.proto", `syntax = "proto3";
package api.v1;
message Thing {
	string from_a = 1;
}
`)
	writeProto(t, dir, "b.proto", `syntax = "proto3";
package api.v1;
message Thing {
	string from_b = 1;
}
`)

	pathA := filepath.Join(dir, "a.proto")
	pathB := filepath.Join(dir, "b.proto")
	require.NoError(t, c.IndexFile(context.Background(), pathA))
	require.NoError(t, c.IndexFile(context.Background(), pathB))

	stats := c.GetStats()
	// One map slot, but both declarations stay searchable.
	assert.Equal(t, 1, stats.TotalMessages)
	assert.Equal(t, 2, stats.TotalSearchableEntries)

	result, err := c.GetMessage(context.Background(), "api.v1.Thing", false, 0)
	require.NoError(t, err)
	fields := result["fields"].([]map[string]interface{})
	require.Len(t, fields, 1)
	assert.Equal(t, "from_b", fields[0]["name"])
}

func TestSearchThroughCatalog(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	writeProto(t, dir, "user.proto", userProto)
	writeProto(t, dir, "user_service.proto", userServiceProto)
	_, err := c.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)

	results := c.Search(context.Background(), "UserService", 20, 60)
	require.NotEmpty(t, results)
	assert.Equal(t, "api.v1.UserService", results[0].Name)
	assert.Equal(t, filepath.Join(dir, "user_service.proto"), results[0].File)

	assert.Empty(t, c.Search(context.Background(), "", 20, 60))
}

func TestSearchReflectsRemoval(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	path := writeProto(t, dir, "user.proto", userProto)
	require.NoError(t, c.IndexFile(context.Background(), path))

	require.NotEmpty(t, c.Search(context.Background(), "User", 20, 60))
	c.RemoveFile(context.Background(), path)
	assert.Empty(t, c.Search(context.Background(), "User", 20, 60))
}

func TestFiles(t *testing.T) {
	c := newTestCatalog()
	dir := t.TempDir()
	path := writeProto(t, dir, "user.proto", userProto)
	require.NoError(t, c.IndexFile(context.Background(), path))

	assert.Equal(t, []string{path}, c.Files())
}
