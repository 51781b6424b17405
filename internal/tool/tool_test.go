package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryDefs(t *testing.T) {
	r := DefaultRegistry(t.TempDir())

	defs := r.Defs()
	require.Len(t, defs, 3)
	assert.Equal(t, "read_file", defs[0].Name)
	assert.Equal(t, "write_file", defs[1].Name)
	assert.Equal(t, "list_files", defs[2].Name)
	for _, def := range defs {
		assert.NotEmpty(t, def.Description)
		assert.True(t, json.Valid(def.Parameters))
	}
}

func TestRunUnknownTool(t *testing.T) {
	r := DefaultRegistry(t.TempDir())
	_, err := r.Run(context.Background(), "summon_editor", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestWriteThenReadFile(t *testing.T) {
	dir := t.TempDir()
	r := DefaultRegistry(dir)
	ctx := context.Background()

	out, err := r.Run(ctx, "write_file", json.RawMessage(`{"path":"chapters/one.md","content":"It begins."}`))
	require.NoError(t, err)
	assert.Contains(t, out, "chapters/one.md")

	got, err := r.Run(ctx, "read_file", json.RawMessage(`{"path":"chapters/one.md"}`))
	require.NoError(t, err)
	assert.Equal(t, "It begins.", got)
}

func TestReadMissingFile(t *testing.T) {
	r := DefaultRegistry(t.TempDir())
	_, err := r.Run(context.Background(), "read_file", json.RawMessage(`{"path":"nope.md"}`))
	assert.Error(t, err)
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "chapters"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "outline.md"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chapters", "one.md"), []byte("y"), 0644))

	r := DefaultRegistry(dir)
	out, err := r.Run(context.Background(), "list_files", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Contains(t, out, "outline.md")
	assert.Contains(t, out, filepath.Join("chapters", "one.md"))
}

func TestPathEscapeRejected(t *testing.T) {
	r := DefaultRegistry(t.TempDir())
	ctx := context.Background()

	_, err := r.Run(ctx, "read_file", json.RawMessage(`{"path":"../outside.md"}`))
	assert.Error(t, err)

	_, err = r.Run(ctx, "write_file", json.RawMessage(`{"path":"/etc/passwd","content":"no"}`))
	assert.Error(t, err)
}
