package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder_SingleDataLine(t *testing.T) {
	d := NewDecoder()

	frames := d.Feed([]byte("data: {\"x\":1}\n\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, FrameData, frames[0].Kind)
	assert.Equal(t, `{"x":1}`, string(frames[0].Payload))
	assert.Equal(t, 0, d.Buffered())
}

func TestDecoder_TrimsExactlyOneLeadingSpace(t *testing.T) {
	d := NewDecoder()

	frames := d.Feed([]byte("data:  two spaces\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, " two spaces", string(frames[0].Payload))

	frames = d.Feed([]byte("data:none\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, "none", string(frames[0].Payload))
}

func TestDecoder_Terminator(t *testing.T) {
	d := NewDecoder()

	frames := d.Feed([]byte("data: [DONE]\n\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, FrameTerminator, frames[0].Kind)
}

func TestDecoder_CommentAndUnrecognizedLines(t *testing.T) {
	d := NewDecoder()

	frames := d.Feed([]byte(": keep-alive\nevent: ping\n"))
	require.Len(t, frames, 2)
	assert.Equal(t, FrameComment, frames[0].Kind)
	assert.Equal(t, " keep-alive", string(frames[0].Payload))
	// Unknown field prefixes classify as comments, never as errors.
	assert.Equal(t, FrameComment, frames[1].Kind)
	assert.Equal(t, "event: ping", string(frames[1].Payload))
}

func TestDecoder_CRLFLineEndings(t *testing.T) {
	d := NewDecoder()

	frames := d.Feed([]byte("data: {\"a\":1}\r\n\r\ndata: [DONE]\r\n"))
	require.Len(t, frames, 2)
	assert.Equal(t, `{"a":1}`, string(frames[0].Payload))
	assert.Equal(t, FrameTerminator, frames[1].Kind)
}

func TestDecoder_PartialLineHeldAcrossFeeds(t *testing.T) {
	d := NewDecoder()

	// Split exactly after the colon-space: nothing may be produced until the
	// newline arrives in the second chunk.
	frames := d.Feed([]byte("data: "))
	assert.Empty(t, frames)
	assert.Equal(t, 6, d.Buffered())

	frames = d.Feed([]byte("{\"choices\":[]}\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, FrameData, frames[0].Kind)
	assert.Equal(t, `{"choices":[]}`, string(frames[0].Payload))
}

func TestDecoder_PayloadSplitMidJSON(t *testing.T) {
	d := NewDecoder()

	frames := d.Feed([]byte(`data: {"choices":[{"delta":{"con`))
	assert.Empty(t, frames)

	frames = d.Feed([]byte("tent\":\"hi\"}}]}\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, `{"choices":[{"delta":{"content":"hi"}}]}`, string(frames[0].Payload))
}

// Chunk-boundary independence: splitting the input at every byte offset must
// produce the same frame sequence as decoding it in a single call.
func TestDecoder_ChunkBoundaryIndependence(t *testing.T) {
	input := []byte(": hello\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
		"data: [DONE]\n\n")

	want := NewDecoder().Feed(input)
	require.NotEmpty(t, want)

	for split := 0; split <= len(input); split++ {
		d := NewDecoder()
		got := d.Feed(input[:split])
		got = append(got, d.Feed(input[split:])...)

		require.Len(t, got, len(want), "split at %d", split)
		for i := range want {
			assert.Equal(t, want[i].Kind, got[i].Kind, "split at %d, frame %d", split, i)
			assert.Equal(t, string(want[i].Payload), string(got[i].Payload), "split at %d, frame %d", split, i)
		}
	}
}

func TestDecoder_ByteAtATime(t *testing.T) {
	input := []byte("data: {\"a\":1}\n\ndata: [DONE]\n\n")

	d := NewDecoder()
	var frames []Frame
	for i := range input {
		frames = append(frames, d.Feed(input[i:i+1])...)
	}

	require.Len(t, frames, 2)
	assert.Equal(t, `{"a":1}`, string(frames[0].Payload))
	assert.Equal(t, FrameTerminator, frames[1].Kind)
}

func TestDecoder_PayloadSurvivesLaterFeeds(t *testing.T) {
	d := NewDecoder()

	frames := d.Feed([]byte("data: first\n"))
	require.Len(t, frames, 1)
	saved := string(frames[0].Payload)

	// Later feeds reuse the internal buffer; earlier payloads must not alias it.
	d.Feed([]byte("data: secondsecondsecond\n"))
	assert.Equal(t, saved, string(frames[0].Payload))
}
