// Package chat holds the in-memory conversation state for the two agent
// surfaces and the directory of persisted sessions behind them.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/halvik/showrunner/internal/agent"
)

// Role identifies the author of a turn.
type Role string

const (
	// RoleUser marks a turn typed by the user.
	RoleUser Role = "user"
	// RoleAssistant marks a turn produced by the agent.
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. The last assistant turn is
// mutable while a run streams; every other turn is settled.
type Turn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// State names the conversation's run lifecycle.
type State string

const (
	// StateIdle means no run is in flight.
	StateIdle State = "idle"
	// StateSending means a run is streaming into the last turn.
	StateSending State = "sending"
)

var (
	// ErrEmptyInput is returned by Submit for input that trims to nothing.
	ErrEmptyInput = errors.New("empty input")
	// ErrBusy is returned by Submit while a previous run is still streaming.
	ErrBusy = errors.New("a run is already in flight")
)

// Streamer runs one streaming exchange against the agent backend.
type Streamer interface {
	Run(ctx context.Context, req agent.StreamRequest, cb agent.Callbacks) error
}

// Config describes one conversation surface.
type Config struct {
	Kind         agent.Kind
	AgentKey     string
	AgentName    string
	Instructions string

	// OnChange, if set, is invoked after every state mutation. It runs on
	// whichever goroutine performed the mutation and must not call back
	// into the conversation.
	OnChange func()

	Logger *slog.Logger
}

// Conversation is the state machine for one chatbot surface. The two
// surfaces are fully independent; construct one Conversation per surface
// and never share them. All methods are safe for concurrent use.
type Conversation struct {
	cfg      Config
	streamer Streamer
	logger   *slog.Logger

	mu        sync.Mutex
	turns     []Turn
	state     State
	lastErr   string
	sessionID string
}

// New creates an idle conversation with no turns.
func New(cfg Config, streamer Streamer) *Conversation {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Conversation{
		cfg:      cfg,
		streamer: streamer,
		logger:   logger,
		state:    StateIdle,
	}
}

// Kind returns which agent surface this conversation belongs to.
func (c *Conversation) Kind() agent.Kind { return c.cfg.Kind }

// State returns the current lifecycle state.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Turns returns a copy of the ordered turn list.
func (c *Conversation) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// LastError returns the error recorded by the most recent run, or "".
func (c *Conversation) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ActiveSession returns the persisted session id this surface extends, or
// "" when the conversation is unsaved.
func (c *Conversation) ActiveSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Submit appends a user turn and streams the agent's reply into a fresh
// assistant placeholder. It blocks until the run settles; callers that
// need a live UI run it on its own goroutine and watch OnChange. Input
// that trims to nothing returns ErrEmptyInput; a surface that is already
// sending returns ErrBusy, without a second placeholder or request.
func (c *Conversation) Submit(ctx context.Context, userText string) error {
	if strings.TrimSpace(userText) == "" {
		return ErrEmptyInput
	}

	c.mu.Lock()
	if c.state == StateSending {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = StateSending
	c.lastErr = ""
	c.turns = append(c.turns,
		Turn{Role: RoleUser, Content: userText},
		Turn{Role: RoleAssistant, Content: ""},
	)
	c.mu.Unlock()
	c.notify()

	req := agent.StreamRequest{
		AgentKey:     c.cfg.AgentKey,
		Prompt:       userText,
		AgentName:    c.cfg.AgentName,
		Instructions: c.cfg.Instructions,
	}

	err := c.streamer.Run(ctx, req, agent.Callbacks{
		OnDelta: c.applyDelta,
		OnEnd:   c.settle,
		OnError: c.fail,
	})
	if err != nil {
		c.logger.Warn("stream run failed", "agent", c.cfg.Kind, "error", err)
	}
	return err
}

// applyDelta appends streamed text to the last turn, which is always the
// assistant placeholder while a run is in flight. Deltas arriving after
// the run has settled are dropped.
func (c *Conversation) applyDelta(text string) {
	c.mu.Lock()
	if c.state != StateSending || len(c.turns) == 0 {
		c.mu.Unlock()
		return
	}
	c.turns[len(c.turns)-1].Content += text
	c.mu.Unlock()
	c.notify()
}

// settle returns the surface to idle. Partial content already streamed
// stays in place; nothing is rolled back.
func (c *Conversation) settle() {
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	c.notify()
}

// fail records the run error for display and idles the surface so the UI
// is never stuck in sending.
func (c *Conversation) fail(message string) {
	c.mu.Lock()
	c.lastErr = message
	c.state = StateIdle
	c.mu.Unlock()
	c.notify()
}

// LoadFromPersisted replaces the turn list with a persisted message list.
// Roles other than "user" rehydrate as assistant turns.
func (c *Conversation) LoadFromPersisted(messages []agent.Message) {
	turns := make([]Turn, 0, len(messages))
	for _, m := range messages {
		role := RoleAssistant
		if m.Role == string(RoleUser) {
			role = RoleUser
		}
		turns = append(turns, Turn{Role: role, Content: m.Content})
	}

	c.mu.Lock()
	c.turns = turns
	c.state = StateIdle
	c.lastErr = ""
	c.mu.Unlock()
	c.notify()
}

// SetActiveSession records the persisted session id this surface extends.
func (c *Conversation) SetActiveSession(sessionID string) {
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
}

// Clear empties the turn list and forgets the active session id.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.turns = nil
	c.sessionID = ""
	c.lastErr = ""
	c.state = StateIdle
	c.mu.Unlock()
	c.notify()
}

func (c *Conversation) notify() {
	if c.cfg.OnChange != nil {
		c.cfg.OnChange()
	}
}
