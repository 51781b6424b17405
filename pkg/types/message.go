package types

import "encoding/json"

// Message is one persisted conversation entry. The engine appends exactly one
// assistant message per completed turn; user messages are appended on send.
type Message struct {
	ID        string        `json:"id"`
	ThreadID  string        `json:"threadID"`
	Role      string        `json:"role"` // "user" | "assistant"
	Content   string        `json:"content"`
	ToolCalls []ToolCall    `json:"toolCalls,omitempty"`
	// Incomplete marks a partial answer salvaged from a turn that ended in
	// error. Partial text is delivered rather than discarded.
	Incomplete bool          `json:"incomplete,omitempty"`
	Error      *MessageError `json:"error,omitempty"`
	Time       MessageTime   `json:"time"`
}

// MessageTime holds message timestamps in Unix milliseconds.
type MessageTime struct {
	Created int64 `json:"created"`
}

// MessageError records why an assistant message is incomplete.
type MessageError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ToolCall is a finalized tool invocation declared by the model during a
// turn. Args is nil and Failed is true when the streamed argument buffer did
// not parse as JSON at finalize time.
type ToolCall struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args,omitempty"`
	Result *string         `json:"result,omitempty"`
	Failed bool            `json:"failed,omitempty"`
}
