// Package sse implements the text/event-stream frame protocol spoken by
// the agent backend: blank-line-delimited blocks, each carrying an
// optional "event:" line and zero or more "data:" lines.
package sse

import "strings"

// EventType tags a decoded frame.
type EventType string

const (
	// EventStart signals that the backend accepted the run.
	EventStart EventType = "start"
	// EventDelta carries an incremental fragment of assistant text.
	// Frames without an "event:" line decode as deltas.
	EventDelta EventType = "delta"
	// EventEnd marks the natural end of a run.
	EventEnd EventType = "end"
	// EventError carries an application-level error message.
	EventError EventType = "error"
)

// Frame is one decoded unit of the stream protocol.
type Frame struct {
	Event EventType
	Data  string
}

// Decoder reassembles frames from arbitrarily chunked stream text.
// Chunk boundaries may fall anywhere, including mid-line or inside the
// frame delimiter itself; a trailing partial block is buffered until a
// later chunk completes it. Decoding a stream chunk-by-chunk yields the
// same frame sequence as decoding it in one piece.
type Decoder struct {
	buf strings.Builder
}

// NewDecoder returns a Decoder with an empty buffer.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Push appends one chunk and returns every frame completed by it, in
// arrival order. Frames are never reordered or dropped.
func (d *Decoder) Push(chunk string) []Frame {
	d.buf.WriteString(chunk)

	var frames []Frame
	rest := d.buf.String()
	for {
		block, remainder, ok := cutDelimiter(rest)
		if !ok {
			break
		}
		frames = append(frames, parseBlock(block))
		rest = remainder
	}
	d.buf.Reset()
	d.buf.WriteString(rest)
	return frames
}

// Flush decodes whatever partial block remains once the stream has ended.
// It reports false when the buffer holds nothing but whitespace.
func (d *Decoder) Flush() (Frame, bool) {
	rest := d.buf.String()
	d.buf.Reset()
	if strings.TrimSpace(rest) == "" {
		return Frame{}, false
	}
	return parseBlock(rest), true
}

// cutDelimiter splits off the first frame block. The delimiter is a blank
// line: "\n\n", or "\r\n\r\n" for transports that emit CRLF line endings.
func cutDelimiter(s string) (block, rest string, ok bool) {
	lf := strings.Index(s, "\n\n")
	crlf := strings.Index(s, "\r\n\r\n")
	switch {
	case lf == -1 && crlf == -1:
		return "", "", false
	case crlf != -1 && (lf == -1 || crlf < lf):
		return s[:crlf], s[crlf+4:], true
	default:
		return s[:lf], s[lf+2:], true
	}
}

// parseBlock inspects each line of a completed block. An "event:" line
// sets the frame type (last occurrence wins); every "data:" line appends
// its remainder to the payload with no separator in between. A block with
// no recognizable tags decodes as an empty delta rather than an error.
func parseBlock(block string) Frame {
	frame := Frame{Event: EventDelta}
	var data strings.Builder
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case strings.HasPrefix(line, "event:"):
			frame.Event = EventType(strings.TrimSpace(line[len("event:"):]))
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(line[len("data:"):], " "))
		}
	}
	frame.Data = data.String()
	return frame
}
