package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/halvik/showrunner/internal/sse"
)

// maxErrorBodySize caps how much of a failed stream response is read for
// the diagnostic message.
const maxErrorBodySize = 1 << 20

// Callbacks receives stream lifecycle notifications. Nil fields are
// skipped. OnDelta is invoked once per decoded delta frame, in byte-arrival
// order; OnEnd fires exactly once per run, after the last delta.
type Callbacks struct {
	OnStart func()
	OnDelta func(text string)
	OnEnd   func()
	OnError func(message string)
}

func (cb Callbacks) start() {
	if cb.OnStart != nil {
		cb.OnStart()
	}
}

func (cb Callbacks) delta(text string) {
	if cb.OnDelta != nil {
		cb.OnDelta(text)
	}
}

func (cb Callbacks) fail(message string) {
	if cb.OnError != nil {
		cb.OnError(message)
	}
}

// Run drives exactly one streaming exchange for req. It posts the request,
// feeds response chunks through the frame decoder, and translates frames
// into callbacks. An error frame does not stop the read loop; the stream
// is drained so content after the error is not lost. The response body is
// released on every exit path.
func (c *Client) Run(ctx context.Context, req StreamRequest, cb Callbacks) error {
	body, err := json.Marshal(req)
	if err != nil {
		msg := fmt.Sprintf("encode stream request: %v", err)
		cb.fail(msg)
		return fmt.Errorf("stream %s: %w", req.AgentKey, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/agents/stream", bytes.NewReader(body))
	if err != nil {
		cb.fail(fmt.Sprintf("build stream request: %v", err))
		return fmt.Errorf("stream %s: build request: %w", req.AgentKey, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient().Do(httpReq)
	if err != nil {
		cb.fail(fmt.Sprintf("stream request failed: %v", err))
		return fmt.Errorf("stream %s: %w", req.AgentKey, err)
	}
	if resp.Body == nil {
		cb.fail(fmt.Sprintf("stream failed: status=%d with no body", resp.StatusCode))
		return fmt.Errorf("stream %s: status=%d with no body", req.AgentKey, resp.StatusCode)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close stream body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		msg := fmt.Sprintf("stream failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(diag)))
		cb.fail(msg)
		return fmt.Errorf("stream %s: %s", req.AgentKey, msg)
	}

	cb.start()

	// ended guards the terminal callback: an explicit end frame and the
	// loop exit must not both invoke OnEnd.
	ended := false
	finish := func() {
		if ended {
			return
		}
		ended = true
		if cb.OnEnd != nil {
			cb.OnEnd()
		}
	}

	handle := func(frame sse.Frame) {
		switch frame.Event {
		case sse.EventStart:
			// Already signaled via OnStart.
		case sse.EventEnd:
			finish()
		case sse.EventError:
			cb.fail(frame.Data)
		default:
			cb.delta(frame.Data)
		}
	}

	dec := sse.NewDecoder()
	buf := make([]byte, 4096)
	var readErr error
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			for _, frame := range dec.Push(string(buf[:n])) {
				handle(frame)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
				cb.fail(fmt.Sprintf("stream read failed: %v", err))
			}
			break
		}
	}
	if frame, ok := dec.Flush(); ok {
		handle(frame)
	}
	finish()

	if readErr != nil {
		return fmt.Errorf("stream %s: read: %w", req.AgentKey, readErr)
	}
	return nil
}
