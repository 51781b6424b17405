package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/author-ai/author/pkg/types"
)

func TestStoragePutGet(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, s.Put(ctx, []string{"thing", "a"}, record{Name: "alpha", Count: 3}))

	var got record
	require.NoError(t, s.Get(ctx, []string{"thing", "a"}, &got))
	assert.Equal(t, "alpha", got.Name)
	assert.Equal(t, 3, got.Count)
}

func TestStorageGetMissing(t *testing.T) {
	s := New(t.TempDir())
	var v map[string]any
	assert.ErrorIs(t, s.Get(context.Background(), []string{"thing", "missing"}, &v), ErrNotFound)
}

func TestStorageDelete(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []string{"thing", "a"}, map[string]int{"x": 1}))
	require.True(t, s.Exists(ctx, []string{"thing", "a"}))

	require.NoError(t, s.Delete(ctx, []string{"thing", "a"}))
	assert.False(t, s.Exists(ctx, []string{"thing", "a"}))

	// Deleting again is a no-op.
	assert.NoError(t, s.Delete(ctx, []string{"thing", "a"}))
}

func TestStorageList(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []string{"thing", "a"}, 1))
	require.NoError(t, s.Put(ctx, []string{"thing", "b"}, 2))

	keys, err := s.List(ctx, []string{"thing"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)

	empty, err := s.List(ctx, []string{"nothing"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestThreadStoreCreateAndGet(t *testing.T) {
	ts := NewThreadStore(New(t.TempDir()))
	ctx := context.Background()

	thread, err := ts.CreateThread(ctx, "/work/novel", "Chapter planning", types.ModeFiction)
	require.NoError(t, err)
	require.NotEmpty(t, thread.ID)
	assert.NotZero(t, thread.Time.Created)

	got, err := ts.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, thread.ID, got.ID)
	assert.Equal(t, "Chapter planning", got.Title)
	assert.Equal(t, types.ModeFiction, got.Mode)
}

func TestThreadStoreDefaultMode(t *testing.T) {
	ts := NewThreadStore(New(t.TempDir()))

	thread, err := ts.CreateThread(context.Background(), "/work", "untitled", "")
	require.NoError(t, err)
	assert.Equal(t, types.ModeFiction, thread.Mode)
}

func TestThreadStoreListOrder(t *testing.T) {
	ts := NewThreadStore(New(t.TempDir()))
	ctx := context.Background()

	first, err := ts.CreateThread(ctx, "/work", "first", types.ModeFiction)
	require.NoError(t, err)
	second, err := ts.CreateThread(ctx, "/work", "second", types.ModeAcademic)
	require.NoError(t, err)

	// Touch the first thread so it becomes the most recently updated.
	first.Title = "first, revised"
	require.NoError(t, ts.UpdateThread(ctx, first))

	threads, err := ts.ListThreads(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, first.ID, threads[0].ID)
	assert.Equal(t, second.ID, threads[1].ID)
}

func TestThreadStoreMessages(t *testing.T) {
	ts := NewThreadStore(New(t.TempDir()))
	ctx := context.Background()

	thread, err := ts.CreateThread(ctx, "/work", "draft", types.ModeFiction)
	require.NoError(t, err)

	require.NoError(t, ts.AppendMessage(ctx, thread.ID, &types.Message{Role: "user", Content: "write the opening"}))
	require.NoError(t, ts.AppendMessage(ctx, thread.ID, &types.Message{Role: "assistant", Content: "It begins."}))

	msgs, err := ts.ListMessages(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.NotEmpty(t, msgs[0].ID, "an id is assigned on append")

	// Appending bumps the thread's updated time.
	got, err := ts.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Time.Updated, thread.Time.Updated)
}

func TestThreadStoreDeleteThread(t *testing.T) {
	ts := NewThreadStore(New(t.TempDir()))
	ctx := context.Background()

	thread, err := ts.CreateThread(ctx, "/work", "doomed", types.ModeFiction)
	require.NoError(t, err)
	require.NoError(t, ts.AppendMessage(ctx, thread.ID, &types.Message{Role: "user", Content: "hello"}))

	require.NoError(t, ts.DeleteThread(ctx, thread.ID))

	_, err = ts.GetThread(ctx, thread.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	msgs, err := ts.ListMessages(ctx, thread.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
