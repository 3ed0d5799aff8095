// Package agent provides the HTTP client for the remote content-generation
// agent service: one streaming run endpoint plus per-kind session listing,
// fetching, and deletion.
package agent

// Kind identifies which chatbot surface a session belongs to.
type Kind string

const (
	// KindScriptwriter is the script-writing agent surface.
	KindScriptwriter Kind = "scriptwriter"
	// KindSceneWriter is the scene-writing agent surface.
	KindSceneWriter Kind = "scene-writer"
)

// Kinds lists every agent kind the service exposes.
func Kinds() []Kind {
	return []Kind{KindScriptwriter, KindSceneWriter}
}

// Valid reports whether k names a known agent kind.
func (k Kind) Valid() bool {
	return k == KindScriptwriter || k == KindSceneWriter
}

// StreamRequest is the body of one streaming run. It is immutable for the
// lifetime of the request.
type StreamRequest struct {
	AgentKey     string `json:"agent_key"`
	Prompt       string `json:"prompt"`
	AgentName    string `json:"agent_name,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// SessionSummary identifies a persisted conversation on the backend.
// LastActivity is unix seconds; zero means the backend reported none.
type SessionSummary struct {
	SessionID    string `json:"session_id"`
	LastActivity int64  `json:"last_activity,omitempty"`
	Preview      string `json:"preview,omitempty"`
}

// Message is one persisted turn as returned by the session fetch endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sessionListResponse struct {
	Success  bool             `json:"success"`
	Sessions []SessionSummary `json:"sessions"`
	Error    string           `json:"error,omitempty"`
}

type sessionDetailResponse struct {
	Success   bool      `json:"success"`
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
	Error     string    `json:"error,omitempty"`
}

type sessionDeleteResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
