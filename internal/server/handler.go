// Package server implements the reference agent backend: the HTTP surface
// the console client talks to, with SSE streaming and SQLite persistence.
package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/halvik/showrunner/internal/agent"
	"github.com/halvik/showrunner/internal/store"
)

const maxStreamRequestBytes = 1 << 20 // 1 MiB

// Handler serves the agent endpoints.
type Handler struct {
	repo    store.Repository
	gen     Generator
	limiter *RateLimiter
}

// NewHandler creates an agent handler. The limiter may be nil, which
// disables throttling (tests use that).
func NewHandler(repo store.Repository, gen Generator, limiter *RateLimiter) *Handler {
	return &Handler{repo: repo, gen: gen, limiter: limiter}
}

// RegisterRoutes mounts the agent endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/agents/stream", h.HandleStream)
	r.Get("/api/agents/{kind}/sessions", h.HandleListSessions)
	r.Get("/api/agents/{kind}/sessions/{id}", h.HandleGetSession)
	r.Delete("/api/agents/{kind}/sessions/{id}", h.HandleDeleteSession)
}

// HandleStream runs one agent turn and streams the reply via SSE: a start
// frame, tagless delta frames carrying the reply text, then an end frame.
// A generator failure is reported as an error frame and ends the stream.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxStreamRequestBytes)

	var req agent.StreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := agent.Kind(req.AgentKey)
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown agent_key %q", req.AgentKey))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	if h.limiter != nil && !h.limiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	sessionID := newSessionID()
	if err := h.repo.AppendMessage(r.Context(), string(kind), sessionID, "user", req.Prompt); err != nil {
		slog.Error("Failed to persist user message", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "persistence failure")
		return
	}

	// Stream response via SSE.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	if err := writeSSE(w, "start", sessionID); err != nil {
		slog.Warn("failed to write SSE start frame", "error", err)
		return
	}
	flusher.Flush()

	var reply strings.Builder
	for chunk, err := range h.gen.Generate(r.Context(), req) {
		if err != nil {
			slog.Error("Generator failed mid-stream", "session_id", sessionID, "error", err)
			h.persistAssistant(r, kind, sessionID, reply.String())
			if writeErr := writeSSE(w, "error", err.Error()); writeErr != nil {
				slog.Warn("failed to write SSE error frame", "error", writeErr)
			}
			flusher.Flush()
			return
		}
		if chunk == "" {
			continue
		}
		reply.WriteString(chunk)
		if err := writeDelta(w, chunk); err != nil {
			slog.Warn("client went away mid-stream", "session_id", sessionID, "error", err)
			h.persistAssistant(r, kind, sessionID, reply.String())
			return
		}
		flusher.Flush()
	}

	h.persistAssistant(r, kind, sessionID, reply.String())
	if err := writeSSE(w, "end", ""); err != nil {
		slog.Warn("failed to write SSE end frame", "error", err)
		return
	}
	flusher.Flush()
}

// HandleListSessions returns the sessions of one agent kind, most recent
// activity first.
func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	kind := agent.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown agent kind %q", kind))
		return
	}

	sessions, err := h.repo.ListSessions(r.Context(), string(kind))
	if err != nil {
		slog.Error("Failed to list sessions", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "persistence failure")
		return
	}

	payload := make([]sessionPayload, 0, len(sessions))
	for _, s := range sessions {
		payload = append(payload, sessionPayload{
			SessionID:    s.SessionID,
			LastActivity: s.LastActivity.Unix(),
			Preview:      s.Preview,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "sessions": payload})
}

// HandleGetSession returns a session's messages in insertion order.
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	kind := agent.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown agent kind %q", kind))
		return
	}

	sessionID := chi.URLParam(r, "id")
	messages, err := h.repo.GetMessages(r.Context(), string(kind), sessionID)
	if err != nil {
		slog.Error("Failed to load session", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "persistence failure")
		return
	}

	payload := make([]messagePayload, 0, len(messages))
	for _, m := range messages {
		payload = append(payload, messagePayload{Role: m.Role, Content: m.Content})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "session_id": sessionID, "messages": payload})
}

// HandleDeleteSession removes a session and its messages.
func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	kind := agent.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown agent kind %q", kind))
		return
	}

	if err := h.repo.DeleteSession(r.Context(), string(kind), chi.URLParam(r, "id")); err != nil {
		slog.Error("Failed to delete session", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "persistence failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) persistAssistant(r *http.Request, kind agent.Kind, sessionID, content string) {
	if content == "" {
		return
	}
	if err := h.repo.AppendMessage(r.Context(), string(kind), sessionID, "assistant", content); err != nil {
		slog.Error("Failed to persist assistant message", "session_id", sessionID, "error", err)
	}
}

type sessionPayload struct {
	SessionID    string `json:"session_id"`
	LastActivity int64  `json:"last_activity"`
	Preview      string `json:"preview,omitempty"`
}

type messagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// writeDelta writes a tagless frame. Untagged frames are delta frames, so
// the common case costs no event line on the wire.
func writeDelta(w io.Writer, data string) error {
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// clientKey identifies the caller for rate limiting. RealIP middleware has
// already rewritten RemoteAddr to the client address.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func newSessionID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms.
		panic(fmt.Sprintf("session id generation: %v", err))
	}
	return "sess-" + hex.EncodeToString(buf)
}
