// Package types contains the shared data model for the Author engine.
package types

// Author modes supported by the engine. The mode shapes the system prompt
// sent with every turn; it is otherwise opaque to the streaming core.
const (
	ModeFiction    = "fiction"
	ModeNonFiction = "non-fiction"
	ModeAcademic   = "academic"
)

// Thread is a persisted conversation. One thread has at most one in-flight
// model turn at any instant; history lives in the thread's messages.
type Thread struct {
	ID        string     `json:"id"`
	Directory string     `json:"directory"`
	Title     string     `json:"title"`
	Mode      string     `json:"mode"`
	Time      ThreadTime `json:"time"`
}

// ThreadTime holds thread timestamps in Unix milliseconds.
type ThreadTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
}
