package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/author-ai/author/internal/logging"
	"github.com/author-ai/author/pkg/types"
)

// Key layout: thread/<id>.json and message/<threadID>/<messageID>.json.
// Message ids are ULIDs, so lexicographic key order is creation order.
const (
	threadPrefix  = "thread"
	messagePrefix = "message"
)

// ThreadStore persists threads and their message history. It satisfies the
// session engine's Store interface.
type ThreadStore struct {
	storage *Storage
}

// NewThreadStore creates a thread store over the given storage.
func NewThreadStore(storage *Storage) *ThreadStore {
	return &ThreadStore{storage: storage}
}

// CreateThread creates and persists a new thread. An empty mode defaults to
// fiction.
func (s *ThreadStore) CreateThread(ctx context.Context, directory, title, mode string) (*types.Thread, error) {
	if mode == "" {
		mode = types.ModeFiction
	}
	now := time.Now().UnixMilli()
	thread := &types.Thread{
		ID:        ulid.Make().String(),
		Directory: directory,
		Title:     title,
		Mode:      mode,
		Time:      types.ThreadTime{Created: now, Updated: now},
	}
	if err := s.storage.Put(ctx, []string{threadPrefix, thread.ID}, thread); err != nil {
		return nil, fmt.Errorf("failed to persist thread: %w", err)
	}
	return thread, nil
}

// GetThread loads one thread. Missing threads return ErrNotFound.
func (s *ThreadStore) GetThread(ctx context.Context, threadID string) (*types.Thread, error) {
	var thread types.Thread
	if err := s.storage.Get(ctx, []string{threadPrefix, threadID}, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// ListThreads returns every thread, most recently updated first.
func (s *ThreadStore) ListThreads(ctx context.Context) ([]*types.Thread, error) {
	var threads []*types.Thread
	err := s.storage.Scan(ctx, []string{threadPrefix}, func(key string, data json.RawMessage) error {
		var thread types.Thread
		if err := json.Unmarshal(data, &thread); err != nil {
			logging.Warn().Err(err).Str("thread", key).Msg("skipping unreadable thread file")
			return nil
		}
		threads = append(threads, &thread)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(threads, func(i, j int) bool {
		return threads[i].Time.Updated > threads[j].Time.Updated
	})
	return threads, nil
}

// UpdateThread persists modified thread metadata and bumps its updated time.
func (s *ThreadStore) UpdateThread(ctx context.Context, thread *types.Thread) error {
	thread.Time.Updated = time.Now().UnixMilli()
	return s.storage.Put(ctx, []string{threadPrefix, thread.ID}, thread)
}

// DeleteThread removes a thread and its entire message history.
func (s *ThreadStore) DeleteThread(ctx context.Context, threadID string) error {
	if err := s.storage.DeleteDir(ctx, []string{messagePrefix, threadID}); err != nil {
		return err
	}
	return s.storage.Delete(ctx, []string{threadPrefix, threadID})
}

// AppendMessage persists one message and bumps the owning thread's updated
// time. A message without an id is assigned one.
func (s *ThreadStore) AppendMessage(ctx context.Context, threadID string, msg *types.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	msg.ThreadID = threadID

	if err := s.storage.Put(ctx, []string{messagePrefix, threadID, msg.ID}, msg); err != nil {
		return fmt.Errorf("failed to persist message: %w", err)
	}

	var thread types.Thread
	if err := s.storage.Get(ctx, []string{threadPrefix, threadID}, &thread); err == nil {
		thread.Time.Updated = time.Now().UnixMilli()
		if err := s.storage.Put(ctx, []string{threadPrefix, threadID}, &thread); err != nil {
			return fmt.Errorf("failed to update thread: %w", err)
		}
	}
	return nil
}

// ListMessages returns a thread's messages in creation order.
func (s *ThreadStore) ListMessages(ctx context.Context, threadID string) ([]*types.Message, error) {
	keys, err := s.storage.List(ctx, []string{messagePrefix, threadID})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	messages := make([]*types.Message, 0, len(keys))
	for _, key := range keys {
		var msg types.Message
		if err := s.storage.Get(ctx, []string{messagePrefix, threadID, key}, &msg); err != nil {
			continue
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}
