package relay

import "strings"

// Channel names the destination of a cross-boundary event. Channels are a
// closed enum grouped into two families: "agent:" for incremental stream
// progress and "session:" for thread-level lifecycle. New channels must be
// added here; free-form strings never cross the boundary.
type Channel string

const (
	StreamStarted   Channel = "agent:stream-started"
	TextDelta       Channel = "agent:text-delta"
	ToolCallStarted Channel = "agent:tool-call-started"
	ToolCallDelta   Channel = "agent:tool-call-delta"
	ToolCallEnded   Channel = "agent:tool-call-ended"
	StreamCompleted Channel = "agent:stream-completed"
	StreamError     Channel = "agent:stream-error"

	// MessageFull is the non-streaming fallback: the complete assistant
	// message for consumers that do not process incremental deltas.
	MessageFull   Channel = "session:message"
	ThreadUpdated Channel = "session:thread-updated"
)

// allowedPrefixes enumerates the known channel families. Validation is by
// prefix, not exact match: an exact-match whitelist once silently broke
// streaming end to end when a new event name was added without updating the
// list. Prefix families keep additions deliverable while still rejecting
// arbitrary, un-enumerated names.
var allowedPrefixes = []string{"agent:", "session:"}

// Allowed reports whether the channel belongs to a known family.
func (c Channel) Allowed() bool {
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(string(c), p) {
			return true
		}
	}
	return false
}
