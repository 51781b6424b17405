package relay

import "github.com/author-ai/author/pkg/types"

// Payload shapes published on each channel. Every payload carries the thread
// id so consumers can filter without parsing channel-specific fields.

// StreamStartedPayload is published on StreamStarted.
type StreamStartedPayload struct {
	ThreadID string `json:"threadID"`
}

// TextDeltaPayload is published on TextDelta for each text fragment.
type TextDeltaPayload struct {
	ThreadID string `json:"threadID"`
	Text     string `json:"text"`
}

// ToolCallStartedPayload is published on ToolCallStarted.
type ToolCallStartedPayload struct {
	ThreadID string `json:"threadID"`
	CallID   string `json:"callID"`
	Name     string `json:"name"`
}

// ToolCallDeltaPayload is published on ToolCallDelta for each argument fragment.
type ToolCallDeltaPayload struct {
	ThreadID string `json:"threadID"`
	CallID   string `json:"callID"`
	Args     string `json:"args"`
}

// ToolCallEndedPayload is published on ToolCallEnded. Failed marks a call
// whose arguments did not parse at finalize time.
type ToolCallEndedPayload struct {
	ThreadID string `json:"threadID"`
	CallID   string `json:"callID"`
	Failed   bool   `json:"failed,omitempty"`
}

// StreamCompletedPayload is published on StreamCompleted when a turn reaches
// its Complete state.
type StreamCompletedPayload struct {
	ThreadID string           `json:"threadID"`
	Content  string           `json:"content"`
	Calls    []types.ToolCall `json:"toolCalls,omitempty"`
}

// StreamErrorPayload is published on StreamError. PartialText carries
// whatever had accumulated before the failure; a partial answer is delivered
// rather than discarded.
type StreamErrorPayload struct {
	ThreadID    string `json:"threadID"`
	Kind        string `json:"kind"`
	Message     string `json:"message"`
	PartialText string `json:"partialText,omitempty"`
	Incomplete  bool   `json:"incomplete"`
}

// MessagePayload is published on MessageFull.
type MessagePayload struct {
	ThreadID string         `json:"threadID"`
	Message  *types.Message `json:"message"`
}

// ThreadPayload is published on ThreadUpdated whenever a thread is created
// or its metadata changes.
type ThreadPayload struct {
	ThreadID string        `json:"threadID"`
	Thread   *types.Thread `json:"thread"`
}
