package stream

// Event is a domain event decoded from the provider stream. The set is
// closed: a session folds exactly these shapes and nothing else.
type Event interface {
	streamEvent()
}

// TextDelta is an incremental fragment of assistant text.
type TextDelta struct {
	Text string
}

func (TextDelta) streamEvent() {}

// ToolCallStart announces a new tool call with its name.
type ToolCallStart struct {
	ID   string
	Name string
}

func (ToolCallStart) streamEvent() {}

// ToolCallDelta carries an argument fragment for an open tool call.
type ToolCallDelta struct {
	ID   string
	Args string
}

func (ToolCallDelta) streamEvent() {}

// ToolCallEnd closes a tool call; its argument buffer is complete.
type ToolCallEnd struct {
	ID string
}

func (ToolCallEnd) streamEvent() {}

// Done is the stream terminator. It is emitted exactly once, last.
type Done struct{}

func (Done) streamEvent() {}
