package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/halvik/showrunner/internal/agent"
)

// fakeSessionAPI serves canned per-kind lists and records call order.
type fakeSessionAPI struct {
	mu       sync.Mutex
	lists    map[agent.Kind][]agent.SessionSummary
	listErrs map[agent.Kind]error
	messages map[string][]agent.Message
	delErr   error
	calls    []string
}

func newFakeSessionAPI() *fakeSessionAPI {
	return &fakeSessionAPI{
		lists:    make(map[agent.Kind][]agent.SessionSummary),
		listErrs: make(map[agent.Kind]error),
		messages: make(map[string][]agent.Message),
	}
}

func (f *fakeSessionAPI) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeSessionAPI) ListSessions(ctx context.Context, kind agent.Kind) ([]agent.SessionSummary, error) {
	f.record("list:" + string(kind))
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErrs[kind]; err != nil {
		return nil, err
	}
	return f.lists[kind], nil
}

func (f *fakeSessionAPI) GetSession(ctx context.Context, kind agent.Kind, sessionID string) ([]agent.Message, error) {
	f.record("get:" + sessionID)
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs, ok := f.messages[sessionID]
	if !ok {
		return nil, errors.New("session not found")
	}
	return msgs, nil
}

func (f *fakeSessionAPI) DeleteSession(ctx context.Context, kind agent.Kind, sessionID string) error {
	f.record("delete:" + sessionID)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.delErr
}

func newTestConvs() map[agent.Kind]*Conversation {
	return map[agent.Kind]*Conversation{
		agent.KindScriptwriter: New(Config{Kind: agent.KindScriptwriter, AgentKey: "scriptwriter"}, &scriptedStreamer{}),
		agent.KindSceneWriter:  New(Config{Kind: agent.KindSceneWriter, AgentKey: "scene-writer"}, &scriptedStreamer{}),
	}
}

func TestCombinedMergeOrdering(t *testing.T) {
	t.Parallel()

	api := newFakeSessionAPI()
	api.lists[agent.KindScriptwriter] = []agent.SessionSummary{
		{SessionID: "sw-10", LastActivity: 10},
		{SessionID: "sw-30", LastActivity: 30},
	}
	api.lists[agent.KindSceneWriter] = []agent.SessionSummary{
		{SessionID: "sc-20", LastActivity: 20},
		{SessionID: "sc-none"},
	}

	dir := NewDirectory(api, newTestConvs(), nil)
	dir.Refresh(context.Background())

	got := dir.Combined()
	wantIDs := []string{"sw-30", "sc-20", "sw-10", "sc-none"}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d entries, want %d", len(got), len(wantIDs))
	}
	for i, want := range wantIDs {
		if got[i].SessionID != want {
			t.Errorf("entry %d = %s, want %s", i, got[i].SessionID, want)
		}
	}
	if got[0].Kind != agent.KindScriptwriter || got[1].Kind != agent.KindSceneWriter {
		t.Error("entries lost their originating agent kind")
	}
}

func TestRefreshKeepsPreviousListOnFailure(t *testing.T) {
	t.Parallel()

	api := newFakeSessionAPI()
	api.lists[agent.KindScriptwriter] = []agent.SessionSummary{{SessionID: "sw-1", LastActivity: 1}}
	api.lists[agent.KindSceneWriter] = []agent.SessionSummary{{SessionID: "sc-1", LastActivity: 2}}

	dir := NewDirectory(api, newTestConvs(), nil)
	dir.Refresh(context.Background())
	if len(dir.Combined()) != 2 {
		t.Fatal("initial refresh did not populate both lists")
	}

	// Scene-writer backend goes down; its list must survive the refresh.
	api.mu.Lock()
	api.listErrs[agent.KindSceneWriter] = errors.New("upstream 502")
	api.lists[agent.KindScriptwriter] = []agent.SessionSummary{
		{SessionID: "sw-1", LastActivity: 1},
		{SessionID: "sw-2", LastActivity: 3},
	}
	api.mu.Unlock()

	dir.Refresh(context.Background())
	got := dir.Combined()
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3 (stale scene-writer list retained)", len(got))
	}
	found := false
	for _, e := range got {
		if e.SessionID == "sc-1" {
			found = true
		}
	}
	if !found {
		t.Error("scene-writer session dropped after its fetch failed")
	}
}

func TestOpenRehydratesConversation(t *testing.T) {
	t.Parallel()

	api := newFakeSessionAPI()
	api.messages["s1"] = []agent.Message{
		{Role: "user", Content: "pitch me a heist"},
		{Role: "assistant", Content: "Three retired safecrackers..."},
	}

	convs := newTestConvs()
	dir := NewDirectory(api, convs, nil)
	if err := dir.Open(context.Background(), agent.KindScriptwriter, "s1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	conv := convs[agent.KindScriptwriter]
	if got := len(conv.Turns()); got != 2 {
		t.Fatalf("conversation has %d turns, want 2", got)
	}
	if conv.ActiveSession() != "s1" {
		t.Errorf("active session = %q, want s1", conv.ActiveSession())
	}
}

func TestRemoveClearsActiveSessionBeforeRefresh(t *testing.T) {
	t.Parallel()

	api := newFakeSessionAPI()
	convs := newTestConvs()
	conv := convs[agent.KindSceneWriter]
	conv.LoadFromPersisted([]agent.Message{{Role: "user", Content: "x"}})
	conv.SetActiveSession("s9")

	dir := NewDirectory(api, convs, nil)
	if err := dir.Remove(context.Background(), agent.KindSceneWriter, "s9"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if conv.ActiveSession() != "" || len(conv.Turns()) != 0 {
		t.Error("removing the open session must clear its conversation")
	}

	api.mu.Lock()
	calls := append([]string(nil), api.calls...)
	api.mu.Unlock()
	if len(calls) == 0 || calls[0] != "delete:s9" {
		t.Fatalf("calls = %v, want deletion first", calls)
	}
	sawList := false
	for _, call := range calls[1:] {
		if call == "list:scriptwriter" || call == "list:scene-writer" {
			sawList = true
		}
	}
	if !sawList {
		t.Error("Remove did not refresh the directory after deleting")
	}
}

func TestRemoveFailureSkipsRefresh(t *testing.T) {
	t.Parallel()

	api := newFakeSessionAPI()
	api.delErr = errors.New("backend unavailable")

	dir := NewDirectory(api, newTestConvs(), nil)
	if err := dir.Remove(context.Background(), agent.KindScriptwriter, "s1"); err == nil {
		t.Fatal("expected the deletion failure to surface")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	for _, call := range api.calls {
		if call == "list:scriptwriter" || call == "list:scene-writer" {
			t.Fatal("directory refreshed even though deletion failed")
		}
	}
}

func TestRemoveLeavesOtherSessionsAlone(t *testing.T) {
	t.Parallel()

	api := newFakeSessionAPI()
	convs := newTestConvs()
	conv := convs[agent.KindScriptwriter]
	conv.LoadFromPersisted([]agent.Message{{Role: "user", Content: "keep me"}})
	conv.SetActiveSession("other")

	dir := NewDirectory(api, convs, nil)
	if err := dir.Remove(context.Background(), agent.KindScriptwriter, "s1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if conv.ActiveSession() != "other" || len(conv.Turns()) != 1 {
		t.Error("removing an unrelated session must not clear the surface")
	}
}
