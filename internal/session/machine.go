package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/author-ai/author/internal/logging"
	"github.com/author-ai/author/internal/stream"
	"github.com/author-ai/author/pkg/types"
)

// Status is the lifecycle state of one in-flight model turn.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusError, StatusCancelled:
		return true
	}
	return false
}

// ErrNotIdle is returned by Start on a machine that already ran.
var ErrNotIdle = errors.New("session is not idle")

// ErrDuplicateToolCall is returned when a ToolCallStart repeats an open id.
// Reported, not fatal: the duplicate is dropped and the session continues.
var ErrDuplicateToolCall = errors.New("tool call id already open")

// toolCall accumulates one streamed tool invocation.
type toolCall struct {
	id     string
	name   string
	args   strings.Builder
	final  json.RawMessage
	failed bool
	result *string
	closed bool
}

// Machine owns the lifecycle of one in-flight model turn: accumulated text,
// open tool calls, and the terminal state. It is the single authority on
// whether a turn is streaming; callers query it instead of keeping their own
// flags.
//
// Transitions: Idle → Streaming → {Complete, Error, Cancelled}. The three
// terminal states are mutually exclusive and entered at most once; events
// applied after a terminal transition are logged and discarded.
type Machine struct {
	mu sync.Mutex

	threadID  string
	status    Status
	text      strings.Builder
	calls     map[string]*toolCall
	order     []string
	failure   *stream.Error
	startedAt time.Time
	endedAt   time.Time
}

// NewMachine creates a machine in Idle for the given thread.
func NewMachine(threadID string) *Machine {
	return &Machine{
		threadID: threadID,
		status:   StatusIdle,
		calls:    make(map[string]*toolCall),
	}
}

// Start transitions Idle → Streaming. Any other source state is an error.
func (m *Machine) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusIdle {
		return fmt.Errorf("%w: status is %s", ErrNotIdle, m.status)
	}
	m.status = StatusStreaming
	m.startedAt = time.Now()
	return nil
}

// Apply folds one stream event into the session and returns the events to
// forward outward, in order. Events arriving after a terminal transition are
// rejected (logged, not applied) so the terminal transition happens at most
// once. A returned *stream.Error with a fatal kind means the machine has
// already moved to Error; non-fatal errors (invalid tool arguments, duplicate
// starts) leave the session streaming.
func (m *Machine) Apply(ev stream.Event) ([]stream.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusStreaming {
		logging.Debug().
			Str("threadID", m.threadID).
			Str("status", string(m.status)).
			Msg("event rejected: session not streaming")
		return nil, nil
	}

	switch e := ev.(type) {
	case stream.TextDelta:
		m.text.WriteString(e.Text)
		return []stream.Event{e}, nil

	case stream.ToolCallStart:
		if _, exists := m.calls[e.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateToolCall, e.ID)
		}
		m.calls[e.ID] = &toolCall{id: e.ID, name: e.Name}
		m.order = append(m.order, e.ID)
		return []stream.Event{e}, nil

	case stream.ToolCallDelta:
		call, ok := m.calls[e.ID]
		if !ok {
			err := &stream.Error{
				Kind:    stream.KindOrderingViolation,
				Message: fmt.Sprintf("argument delta for unknown tool call %q", e.ID),
			}
			m.failLocked(err)
			return nil, err
		}
		call.args.WriteString(e.Args)
		return []stream.Event{e}, nil

	case stream.ToolCallEnd:
		call, ok := m.calls[e.ID]
		if !ok {
			err := &stream.Error{
				Kind:    stream.KindOrderingViolation,
				Message: fmt.Sprintf("end for unknown tool call %q", e.ID),
			}
			m.failLocked(err)
			return nil, err
		}
		call.closed = true
		buf := call.args.String()
		if buf == "" {
			buf = "{}"
		}
		if !json.Valid([]byte(buf)) {
			// One bad tool call must not discard accumulated text: mark the
			// call failed and keep streaming.
			call.failed = true
			return []stream.Event{e}, &stream.Error{
				Kind:    stream.KindToolArgsInvalid,
				Message: fmt.Sprintf("tool call %s arguments are not valid JSON", e.ID),
			}
		}
		call.final = json.RawMessage(buf)
		return []stream.Event{e}, nil

	case stream.Done:
		m.finishLocked(StatusComplete)
		return []stream.Event{e}, nil
	}

	logging.Warn().Str("threadID", m.threadID).Msgf("unhandled stream event %T", ev)
	return nil, nil
}

// Finish transitions to the given terminal status. It is an idempotent no-op
// when the machine is already terminal.
func (m *Machine) Finish(status Status) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finishLocked(status)
}

// Fail records a fatal stream error and moves to Error, preserving whatever
// text and tool calls had accumulated.
func (m *Machine) Fail(err *stream.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLocked(err)
}

// Cancel is the only externally triggered transition out of Streaming. No
// final message is synthesized for a cancelled turn.
func (m *Machine) Cancel() {
	m.Finish(StatusCancelled)
}

func (m *Machine) finishLocked(status Status) bool {
	if m.status.Terminal() {
		return false
	}
	if !status.Terminal() {
		return false
	}
	m.status = status
	m.endedAt = time.Now()
	return true
}

func (m *Machine) failLocked(err *stream.Error) {
	if m.finishLocked(StatusError) {
		m.failure = err
	}
}

// ThreadID returns the owning thread id.
func (m *Machine) ThreadID() string {
	return m.threadID
}

// Status returns the current lifecycle state.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Text returns the accumulated assistant text so far.
func (m *Machine) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text.String()
}

// Failure returns the fatal error that moved the machine to Error, if any.
func (m *Machine) Failure() *stream.Error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failure
}

// ToolCalls returns the tool calls in start order.
func (m *Machine) ToolCalls() []types.ToolCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.toolCallsLocked()
}

func (m *Machine) toolCallsLocked() []types.ToolCall {
	out := make([]types.ToolCall, 0, len(m.order))
	for _, id := range m.order {
		c := m.calls[id]
		out = append(out, types.ToolCall{
			ID:     c.id,
			Name:   c.name,
			Args:   c.final,
			Result: c.result,
			Failed: c.failed,
		})
	}
	return out
}

// SetToolResult records the collaborator's result for a finalized call.
func (m *Machine) SetToolResult(id, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.calls[id]; ok {
		c.result = &result
	}
}

// FinalMessage builds the assistant message for a terminal machine. For an
// errored turn the partial text is kept and marked incomplete; a cancelled
// turn produces no message at all.
func (m *Machine) FinalMessage() *types.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.status.Terminal() || m.status == StatusCancelled {
		return nil
	}

	msg := &types.Message{
		ID:        ulid.Make().String(),
		ThreadID:  m.threadID,
		Role:      "assistant",
		Content:   m.text.String(),
		ToolCalls: m.toolCallsLocked(),
		Time:      types.MessageTime{Created: time.Now().UnixMilli()},
	}
	if m.status == StatusError {
		msg.Incomplete = true
		if m.failure != nil {
			msg.Error = &types.MessageError{
				Kind:    string(m.failure.Kind),
				Message: m.failure.Message,
			}
		}
	}
	return msg
}
