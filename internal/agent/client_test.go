package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListSessions(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/agents/scriptwriter/sessions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(sessionListResponse{
			Success: true,
			Sessions: []SessionSummary{
				{SessionID: "s1", LastActivity: 100, Preview: "opening scene"},
				{SessionID: "s2"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	sessions, err := client.ListSessions(context.Background(), KindScriptwriter)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].SessionID != "s1" || sessions[0].LastActivity != 100 {
		t.Errorf("unexpected first session: %+v", sessions[0])
	}
	if sessions[1].LastActivity != 0 {
		t.Errorf("missing last_activity should decode to 0, got %d", sessions[1].LastActivity)
	}
}

func TestListSessionsBackendFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sessionListResponse{Success: false, Error: "store offline"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	if _, err := client.ListSessions(context.Background(), KindSceneWriter); err == nil {
		t.Fatal("expected an error when success=false")
	}
}

func TestGetSession(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/agents/scene-writer/sessions/abc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(sessionDetailResponse{
			Success:   true,
			SessionID: "abc",
			Messages: []Message{
				{Role: "user", Content: "write the heist scene"},
				{Role: "assistant", Content: "INT. VAULT - NIGHT"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	messages, err := client.GetSession(context.Background(), KindSceneWriter, "abc")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(messages) != 2 || messages[1].Content != "INT. VAULT - NIGHT" {
		t.Fatalf("unexpected messages: %+v", messages)
	}
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()

	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		_ = json.NewEncoder(w).Encode(sessionDeleteResponse{Success: true})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	if err := client.DeleteSession(context.Background(), KindScriptwriter, "s1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", gotMethod)
	}
}

func TestGetSessionHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	if _, err := client.GetSession(context.Background(), KindScriptwriter, "missing"); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}

func TestKindValid(t *testing.T) {
	t.Parallel()

	for _, kind := range Kinds() {
		if !kind.Valid() {
			t.Errorf("%s should be valid", kind)
		}
	}
	if Kind("roadmap").Valid() {
		t.Error("unknown kind should not be valid")
	}
}
