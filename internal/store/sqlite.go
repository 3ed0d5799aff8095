package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/halvik/showrunner/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT NOT NULL,
		agent_kind TEXT NOT NULL,
		preview TEXT NOT NULL DEFAULT '',
		last_activity INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (agent_kind, session_id)
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_activity ON sessions(agent_kind, last_activity);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		agent_kind TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(agent_kind, session_id, id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListSessions returns every session of one agent kind, most recent first.
func (s *SQLiteStore) ListSessions(ctx context.Context, agentKind string) ([]Session, error) {
	query := `
		SELECT session_id, agent_kind, preview, last_activity
		FROM sessions WHERE agent_kind = ?
		ORDER BY last_activity DESC, session_id`

	rows, err := s.db.QueryContext(ctx, query, agentKind)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close session rows", "error", closeErr)
		}
	}()

	var sessions []Session
	for rows.Next() {
		var session Session
		var lastActivity int64
		if err := rows.Scan(&session.SessionID, &session.AgentKind, &session.Preview, &lastActivity); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		session.LastActivity = time.Unix(lastActivity, 0)
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// GetMessages returns a session's messages in insertion order.
func (s *SQLiteStore) GetMessages(ctx context.Context, agentKind, sessionID string) ([]Message, error) {
	query := `
		SELECT role, content FROM messages
		WHERE agent_kind = ? AND session_id = ?
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, agentKind, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close message rows", "error", closeErr)
		}
	}()

	messages := []Message{}
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// AppendMessage adds one message and upserts the owning session row. The
// session preview is taken from the first user message and kept short.
func (s *SQLiteStore) AppendMessage(ctx context.Context, agentKind, sessionID, role, content string) error {
	now := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	preview := ""
	if role == "user" {
		preview = content
		if len(preview) > 120 {
			preview = preview[:120]
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (session_id, agent_kind, preview, last_activity, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(agent_kind, session_id) DO UPDATE SET
			preview = CASE WHEN sessions.preview = '' THEN excluded.preview ELSE sessions.preview END,
			last_activity = excluded.last_activity`,
		sessionID, agentKind, preview, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (session_id, agent_kind, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, agentKind, role, content, now,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// DeleteSession removes a session and its messages.
// Implements retry logic with exponential backoff to handle SQLITE_BUSY errors.
func (s *SQLiteStore) DeleteSession(ctx context.Context, agentKind, sessionID string) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := s.deleteSessionOnce(ctx, agentKind, sessionID)
		if err == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // exponential backoff: 100ms, 200ms, 400ms
			slog.Debug("DeleteSession hit SQLITE_BUSY, retrying",
				"session_id", sessionID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		return fmt.Errorf("delete session %s after %d attempts: %w", sessionID, i+1, err)
	}

	return nil
}

func (s *SQLiteStore) deleteSessionOnce(ctx context.Context, agentKind, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE agent_kind = ? AND session_id = ?`, agentKind, sessionID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE agent_kind = ? AND session_id = ?`, agentKind, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
