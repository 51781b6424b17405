// Package stream turns the provider's byte stream into domain events.
//
// The pipeline has two stages. The Decoder reassembles raw network chunks
// into wire frames; it owns all buffering, so chunk boundaries never leak
// into the rest of the engine — feeding the same bytes in any fragmentation
// yields the same frames. The Mapper interprets data frames under the
// chat-completions delta schema and emits TextDelta, ToolCallStart,
// ToolCallDelta, ToolCallEnd and Done events, tracking open tool calls so
// that id-less argument chunks resolve to the right call.
//
// Failures are classified by ErrorKind. Everything except invalid tool
// arguments is session-fatal; the session layer decides what surviving
// state to salvage.
package stream
