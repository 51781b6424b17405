// Package session owns the lifecycle of model turns.
//
// A turn is modeled by three cooperating pieces:
//
//   - Machine: the per-turn state machine. Idle → Streaming → exactly one of
//     Complete, Error or Cancelled. It accumulates the assistant text and
//     tool calls and is the single authority on whether a turn is live.
//   - Registry: at most one active session per thread. Concurrent sends to
//     a busy thread are rejected with ErrAlreadyStreaming, and Cancel does
//     not return until the transport reader has confirmed the connection is
//     closed.
//   - Runner: drives one turn end to end — opens the transport stream,
//     feeds the decoder and mapper, folds events into the machine, forwards
//     them to the relay, executes finalized tool calls and persists the
//     final assistant message.
//
// The package depends on collaborator interfaces (Store, ToolRunner) rather
// than concrete storage or tool implementations.
package session
