package stream

// FrameKind classifies a decoded wire line.
type FrameKind int

const (
	// FrameData carries one JSON delta payload.
	FrameData FrameKind = iota
	// FrameComment is a provider keep-alive or an unrecognized line. Comments
	// are forwarded so callers can log them but carry no domain meaning.
	FrameComment
	// FrameTerminator is the "[DONE]" end-of-stream marker.
	FrameTerminator
)

// Frame is a single decoded protocol unit. Frames are ephemeral: produced and
// consumed within one decode cycle, never persisted.
type Frame struct {
	Kind    FrameKind
	Payload []byte
}
