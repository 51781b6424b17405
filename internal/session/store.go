package session

import (
	"context"
	"encoding/json"

	"github.com/author-ai/author/internal/transport"
	"github.com/author-ai/author/pkg/types"
)

// Store is the persistence collaborator. The engine appends the user message
// on send and exactly one assistant message when a turn reaches Complete; it
// never persists partial turns.
type Store interface {
	AppendMessage(ctx context.Context, threadID string, msg *types.Message) error
	ListMessages(ctx context.Context, threadID string) ([]*types.Message, error)
}

// ToolRunner is the tool-execution collaborator. The engine only tracks the
// streamed declaration of tool calls; executing them is someone else's job.
type ToolRunner interface {
	// Defs lists the tools to declare to the model.
	Defs() []transport.ToolDef
	// Run executes a finalized tool call and returns its result text.
	Run(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// NoopToolRunner declares no tools and executes nothing. It is the default
// collaborator when the host application wires no tool layer.
type NoopToolRunner struct{}

func (NoopToolRunner) Defs() []transport.ToolDef { return nil }

func (NoopToolRunner) Run(ctx context.Context, name string, args json.RawMessage) (string, error) {
	return "", nil
}
