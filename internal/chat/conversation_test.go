package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/halvik/showrunner/internal/agent"
)

// scriptedStreamer plays back a fixed set of deltas, optionally an error
// frame, then ends. If gate is non-nil the run blocks on it first.
type scriptedStreamer struct {
	deltas []string
	errMsg string
	gate   chan struct{}

	mu   sync.Mutex
	runs int
	last agent.StreamRequest
}

func (s *scriptedStreamer) Run(ctx context.Context, req agent.StreamRequest, cb agent.Callbacks) error {
	s.mu.Lock()
	s.runs++
	s.last = req
	s.mu.Unlock()

	if s.gate != nil {
		<-s.gate
	}
	if cb.OnStart != nil {
		cb.OnStart()
	}
	for _, d := range s.deltas {
		if cb.OnDelta != nil {
			cb.OnDelta(d)
		}
	}
	if s.errMsg != "" && cb.OnError != nil {
		cb.OnError(s.errMsg)
	}
	if cb.OnEnd != nil {
		cb.OnEnd()
	}
	return nil
}

func (s *scriptedStreamer) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *scriptedStreamer) lastRequest() agent.StreamRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func waitForState(t *testing.T, c *Conversation, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %q, still %q", want, c.State())
}

func TestSubmitAppendsDeltasInOrder(t *testing.T) {
	t.Parallel()

	streamer := &scriptedStreamer{deltas: []string{"FADE ", "IN", ":"}}
	conv := New(Config{Kind: agent.KindScriptwriter, AgentKey: "scriptwriter"}, streamer)

	if err := conv.Submit(context.Background(), "write an opening"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	turns := conv.Turns()
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].Role != RoleUser || turns[0].Content != "write an opening" {
		t.Errorf("unexpected user turn: %+v", turns[0])
	}
	if turns[1].Role != RoleAssistant || turns[1].Content != "FADE IN:" {
		t.Errorf("assistant turn = %+v, want concatenated deltas", turns[1])
	}
	if conv.State() != StateIdle {
		t.Errorf("state = %q, want idle after the run settles", conv.State())
	}
	if got := streamer.lastRequest(); got.AgentKey != "scriptwriter" || got.Prompt != "write an opening" {
		t.Errorf("unexpected stream request: %+v", got)
	}
}

func TestSubmitRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	streamer := &scriptedStreamer{}
	conv := New(Config{Kind: agent.KindScriptwriter, AgentKey: "scriptwriter"}, streamer)

	if err := conv.Submit(context.Background(), "   \n\t"); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
	if len(conv.Turns()) != 0 {
		t.Error("rejected input must not append turns")
	}
	if streamer.runCount() != 0 {
		t.Error("rejected input must not start a run")
	}
}

func TestSubmitRejectsWhileSending(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	streamer := &scriptedStreamer{deltas: []string{"slow reply"}, gate: gate}
	conv := New(Config{Kind: agent.KindSceneWriter, AgentKey: "scene-writer"}, streamer)

	done := make(chan error, 1)
	go func() {
		done <- conv.Submit(context.Background(), "first")
	}()
	waitForState(t, conv, StateSending)

	if err := conv.Submit(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	if got := len(conv.Turns()); got != 2 {
		t.Errorf("turn count = %d, want 2 (no second placeholder)", got)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	if streamer.runCount() != 1 {
		t.Errorf("run count = %d, want exactly 1", streamer.runCount())
	}
}

func TestStreamErrorPreservesPartialContent(t *testing.T) {
	t.Parallel()

	streamer := &scriptedStreamer{deltas: []string{"partial "}, errMsg: "agent crashed"}
	conv := New(Config{Kind: agent.KindScriptwriter, AgentKey: "scriptwriter"}, streamer)

	if err := conv.Submit(context.Background(), "go"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	turns := conv.Turns()
	if turns[len(turns)-1].Content != "partial " {
		t.Errorf("assistant content = %q, want partial content preserved", turns[len(turns)-1].Content)
	}
	if conv.LastError() != "agent crashed" {
		t.Errorf("last error = %q", conv.LastError())
	}
	if conv.State() != StateIdle {
		t.Errorf("state = %q, want idle so the surface is never stuck", conv.State())
	}
}

func TestDeltaAfterSettleIsDropped(t *testing.T) {
	t.Parallel()

	conv := New(Config{Kind: agent.KindScriptwriter, AgentKey: "scriptwriter"}, &scriptedStreamer{})
	if err := conv.Submit(context.Background(), "go"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	before := conv.Turns()
	conv.applyDelta("late delta")
	after := conv.Turns()
	if after[len(after)-1].Content != before[len(before)-1].Content {
		t.Error("delta applied after the run settled")
	}
}

func TestLoadFromPersistedMapsRoles(t *testing.T) {
	t.Parallel()

	conv := New(Config{Kind: agent.KindSceneWriter, AgentKey: "scene-writer"}, &scriptedStreamer{})
	conv.LoadFromPersisted([]agent.Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "system", Content: "be terse"},
	})

	turns := conv.Turns()
	if len(turns) != 3 {
		t.Fatalf("got %d turns, want 3", len(turns))
	}
	want := []Role{RoleUser, RoleAssistant, RoleAssistant}
	for i, turn := range turns {
		if turn.Role != want[i] {
			t.Errorf("turn %d role = %q, want %q", i, turn.Role, want[i])
		}
	}
}

func TestClearForgetsTurnsAndSession(t *testing.T) {
	t.Parallel()

	conv := New(Config{Kind: agent.KindScriptwriter, AgentKey: "scriptwriter"}, &scriptedStreamer{})
	conv.LoadFromPersisted([]agent.Message{{Role: "user", Content: "x"}})
	conv.SetActiveSession("s1")

	conv.Clear()
	if len(conv.Turns()) != 0 {
		t.Error("turns not cleared")
	}
	if conv.ActiveSession() != "" {
		t.Error("active session not forgotten")
	}
}

func TestOnChangeFiresPerDelta(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	changes := 0
	streamer := &scriptedStreamer{deltas: []string{"a", "b", "c"}}
	conv := New(Config{
		Kind:     agent.KindScriptwriter,
		AgentKey: "scriptwriter",
		OnChange: func() {
			mu.Lock()
			changes++
			mu.Unlock()
		},
	}, streamer)

	if err := conv.Submit(context.Background(), "go"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	// submit, three deltas, settle
	if changes < 5 {
		t.Errorf("change notifications = %d, want at least 5", changes)
	}
}
