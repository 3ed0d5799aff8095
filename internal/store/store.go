// Package store provides data persistence for the reference agent backend.
package store

import (
	"context"
	"time"
)

// Session is a persisted conversation, scoped to one agent kind.
type Session struct {
	SessionID    string
	AgentKind    string
	Preview      string
	LastActivity time.Time
}

// Message is one persisted turn of a session.
type Message struct {
	Role    string
	Content string
}

// Repository defines the interface for persisting sessions and their
// messages.
type Repository interface {
	// ListSessions returns every session of one agent kind, most recent
	// activity first.
	ListSessions(ctx context.Context, agentKind string) ([]Session, error)

	// GetMessages returns a session's messages in insertion order. A
	// session with no messages yields an empty slice, not an error.
	GetMessages(ctx context.Context, agentKind, sessionID string) ([]Message, error)

	// AppendMessage adds one message to a session, creating the session
	// row on first write and bumping its last activity.
	AppendMessage(ctx context.Context, agentKind, sessionID, role, content string) error

	// DeleteSession removes a session and its messages. Deleting an
	// unknown session is not an error.
	DeleteSession(ctx context.Context, agentKind, sessionID string) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
