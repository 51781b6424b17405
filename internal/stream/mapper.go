package stream

import (
	"encoding/json"
	"fmt"
)

// FinishPredicate decides whether a provider finish reason closes the open
// tool calls of the current turn. Finish signaling is not uniform across
// OpenAI-compatible providers, so the rule is pluggable rather than
// hard-coded; DefaultFinishPredicate assumes the OpenAI contract.
type FinishPredicate func(finishReason string) bool

// DefaultFinishPredicate treats any finish reason reported on a choice as
// closing its open tool calls: under the OpenAI schema, argument streaming
// for a call never continues past the choice's finish marker.
func DefaultFinishPredicate(finishReason string) bool {
	switch finishReason {
	case "stop", "tool_calls", "end_turn", "length", "max_tokens":
		return true
	}
	return false
}

// chatChunk mirrors the OpenAI chat-completions streaming delta schema.
// Unknown fields are ignored for forward compatibility.
type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Mapper interprets decoded frames as domain events. It tracks which tool
// calls are open so that argument chunks lacking an id (the provider repeats
// only the index after the opening chunk) resolve to the right call, and so
// the finish marker can close every open call in start order.
type Mapper struct {
	finish  FinishPredicate
	byIndex map[int]string
	opened  map[string]bool
	open    []string
}

// NewMapper creates a mapper. A nil predicate selects DefaultFinishPredicate.
func NewMapper(finish FinishPredicate) *Mapper {
	if finish == nil {
		finish = DefaultFinishPredicate
	}
	return &Mapper{
		finish:  finish,
		byIndex: make(map[int]string),
		opened:  make(map[string]bool),
	}
}

// Map interprets one frame. Comment frames map to nothing. A terminator maps
// to Done. A data frame maps to the events its delta carries, in wire order;
// a payload that does not parse as JSON is a mapping error of kind
// KindMalformedPayload and the caller must treat the stream as terminated.
func (m *Mapper) Map(f Frame) ([]Event, error) {
	switch f.Kind {
	case FrameComment:
		return nil, nil
	case FrameTerminator:
		return []Event{Done{}}, nil
	}

	var chunk chatChunk
	if err := json.Unmarshal(f.Payload, &chunk); err != nil {
		return nil, &Error{
			Kind:    KindMalformedPayload,
			Message: fmt.Sprintf("frame is not valid JSON: %v", err),
		}
	}
	if len(chunk.Choices) == 0 {
		return nil, nil
	}

	choice := chunk.Choices[0]
	var events []Event

	if choice.Delta.Content != "" {
		events = append(events, TextDelta{Text: choice.Delta.Content})
	}

	for _, tc := range choice.Delta.ToolCalls {
		id := tc.ID
		if id == "" {
			id = m.byIndex[tc.Index]
		} else {
			m.byIndex[tc.Index] = id
		}
		if tc.Function.Name != "" && !m.opened[id] {
			m.opened[id] = true
			m.open = append(m.open, id)
			events = append(events, ToolCallStart{ID: id, Name: tc.Function.Name})
		}
		if tc.Function.Arguments != "" {
			// An unresolvable id passes through empty; the session reports
			// it as an ordering violation.
			events = append(events, ToolCallDelta{ID: id, Args: tc.Function.Arguments})
		}
	}

	if choice.FinishReason != nil && m.finish(*choice.FinishReason) {
		for _, id := range m.open {
			events = append(events, ToolCallEnd{ID: id})
		}
		m.open = nil
	}

	return events, nil
}
