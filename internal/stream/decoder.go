package stream

import "bytes"

var (
	dataPrefix = []byte("data:")
	doneMarker = []byte("[DONE]")
)

// Decoder reassembles the SSE-like wire format used by OpenAI-compatible
// providers into discrete frames. Network reads fragment the byte stream at
// arbitrary offsets, so the decoder buffers across Feed calls and never
// classifies a line until its terminating newline has been observed.
type Decoder struct {
	buf []byte
}

// NewDecoder returns a decoder with an empty line buffer.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk to the internal buffer and returns every frame completed
// by it. Bytes after the last newline stay buffered for the next call.
func (d *Decoder) Feed(chunk []byte) []Frame {
	d.buf = append(d.buf, chunk...)

	var frames []Frame
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return frames
		}
		line := bytes.TrimSuffix(d.buf[:i], []byte("\r"))
		if f, ok := classify(line); ok {
			frames = append(frames, f)
		}
		d.buf = d.buf[i+1:]
	}
}

// Buffered reports how many bytes of an incomplete line are held back.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// classify turns one complete line into a frame. Empty lines are event
// separators and produce nothing. Lines with an unrecognized field prefix are
// treated as comments: provider wire formats add forward-compatible fields,
// and the decoder must not fail on them.
func classify(line []byte) (Frame, bool) {
	switch {
	case len(line) == 0:
		return Frame{}, false
	case line[0] == ':':
		return Frame{Kind: FrameComment, Payload: copyBytes(line[1:])}, true
	case bytes.HasPrefix(line, dataPrefix):
		payload := line[len(dataPrefix):]
		if len(payload) > 0 && payload[0] == ' ' {
			payload = payload[1:]
		}
		if bytes.Equal(payload, doneMarker) {
			return Frame{Kind: FrameTerminator}, true
		}
		return Frame{Kind: FrameData, Payload: copyBytes(payload)}, true
	default:
		return Frame{Kind: FrameComment, Payload: copyBytes(line)}, true
	}
}

// copyBytes detaches a payload from the decoder's reusable buffer.
func copyBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
