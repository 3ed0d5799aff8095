package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/halvik/showrunner/internal/agent"
)

// SessionAPI is the slice of the agent client the directory consumes.
type SessionAPI interface {
	ListSessions(ctx context.Context, kind agent.Kind) ([]agent.SessionSummary, error)
	GetSession(ctx context.Context, kind agent.Kind, sessionID string) ([]agent.Message, error)
	DeleteSession(ctx context.Context, kind agent.Kind, sessionID string) error
}

// Entry is one row of the combined session feed: a session summary tagged
// with its originating agent kind. Entries are derived, never mutated.
type Entry struct {
	SessionID    string
	Kind         agent.Kind
	LastActivity int64
	Preview      string
}

// Directory tracks the persisted sessions of both agent kinds and
// rehydrates conversations from them. Each kind's list survives the other
// kind's outages: a failed refresh leaves the previous list in place.
type Directory struct {
	api    SessionAPI
	convs  map[agent.Kind]*Conversation
	logger *slog.Logger

	mu    sync.Mutex
	lists map[agent.Kind][]agent.SessionSummary
}

// NewDirectory creates a directory over the given conversations, one per
// agent kind.
func NewDirectory(api SessionAPI, convs map[agent.Kind]*Conversation, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{
		api:    api,
		convs:  convs,
		logger: logger,
		lists:  make(map[agent.Kind][]agent.SessionSummary),
	}
}

// Conversation returns the surface for kind, or nil if the directory was
// built without one.
func (d *Directory) Conversation(kind agent.Kind) *Conversation {
	return d.convs[kind]
}

// Refresh fetches both kinds' session lists concurrently and joins before
// returning. A kind whose fetch fails keeps its previous list; no error is
// propagated and no retry is attempted.
func (d *Directory) Refresh(ctx context.Context) {
	var wg sync.WaitGroup
	for _, kind := range agent.Kinds() {
		wg.Add(1)
		go func(kind agent.Kind) {
			defer wg.Done()
			sessions, err := d.api.ListSessions(ctx, kind)
			if err != nil {
				d.logger.Warn("session list refresh failed, keeping previous list", "agent", kind, "error", err)
				return
			}
			d.mu.Lock()
			d.lists[kind] = sessions
			d.mu.Unlock()
		}(kind)
	}
	wg.Wait()
}

// Combined merges both lists into one feed sorted by last activity,
// newest first. A summary without a timestamp sorts as oldest. The result
// is recomputed deterministically from the two source lists on every call.
func (d *Directory) Combined() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()

	var entries []Entry
	for _, kind := range agent.Kinds() {
		for _, s := range d.lists[kind] {
			entries = append(entries, Entry{
				SessionID:    s.SessionID,
				Kind:         kind,
				LastActivity: s.LastActivity,
				Preview:      s.Preview,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].LastActivity != entries[j].LastActivity {
			return entries[i].LastActivity > entries[j].LastActivity
		}
		if entries[i].Kind != entries[j].Kind {
			return entries[i].Kind < entries[j].Kind
		}
		return entries[i].SessionID < entries[j].SessionID
	})
	return entries
}

// Open fetches one session's persisted messages, rehydrates that kind's
// conversation from them, and records the session as the surface's active
// one. Later submits on the surface extend this session server-side.
func (d *Directory) Open(ctx context.Context, kind agent.Kind, sessionID string) error {
	conv, ok := d.convs[kind]
	if !ok {
		return fmt.Errorf("open session: no conversation for agent %q", kind)
	}

	messages, err := d.api.GetSession(ctx, kind, sessionID)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	conv.LoadFromPersisted(messages)
	conv.SetActiveSession(sessionID)
	return nil
}

// Remove deletes one session from the backend. If it is the surface's
// active session, the conversation is cleared before the directory
// refreshes, so a stale entry is never shown. A failed deletion is
// returned without refreshing.
func (d *Directory) Remove(ctx context.Context, kind agent.Kind, sessionID string) error {
	if err := d.api.DeleteSession(ctx, kind, sessionID); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}

	if conv, ok := d.convs[kind]; ok && conv.ActiveSession() == sessionID {
		conv.Clear()
	}

	d.Refresh(ctx)
	return nil
}
