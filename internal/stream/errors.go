package stream

// ErrorKind is the closed taxonomy of stream processing failures.
type ErrorKind string

const (
	// KindMalformedPayload: a data frame could not be parsed as JSON.
	// Session-fatal; swallowing it silently truncates responses.
	KindMalformedPayload ErrorKind = "malformed_payload"
	// KindOrderingViolation: an event referenced an unknown tool-call id,
	// which indicates protocol desynchronization. Session-fatal.
	KindOrderingViolation ErrorKind = "ordering_violation"
	// KindToolArgsInvalid: a tool call's arguments failed to parse at
	// finalize time. Only that call is marked failed; the session continues.
	KindToolArgsInvalid ErrorKind = "tool_args_invalid"
	// KindTransportFailure: the connection failed mid-stream. Session-fatal,
	// but accumulated text and tool calls are preserved.
	KindTransportFailure ErrorKind = "transport_failure"
)

// Fatal reports whether an error of this kind terminates the session.
func (k ErrorKind) Fatal() bool {
	return k != KindToolArgsInvalid
}

// Error is a classified stream failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}
