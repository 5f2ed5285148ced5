// Package session keeps per-session chat transcripts.
package session

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Roles recorded in a transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// summaryWindow is how many trailing entries Summarize renders.
const summaryWindow = 5

// Entry is one message in a transcript.
type Entry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is an append-only transcript store keyed by session id.
type Store interface {
	Append(ctx context.Context, sessionID, role, content string) error
	// History returns the last limit entries in chronological order.
	// A limit <= 0 returns the whole transcript.
	History(ctx context.Context, sessionID string, limit int) ([]Entry, error)
	Clear(ctx context.Context, sessionID string) error
	Summarize(ctx context.Context, sessionID string) (string, error)
	Sessions(ctx context.Context) ([]string, error)
}

// Memory is an in-process Store. Transcripts live for the lifetime of the
// value.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]Entry
	now      func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string][]Entry), now: time.Now}
}

func (m *Memory) Append(_ context.Context, sessionID, role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], Entry{
		Role:      role,
		Content:   content,
		CreatedAt: m.now().UTC(),
	})
	return nil
}

func (m *Memory) History(_ context.Context, sessionID string, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := m.sessions[sessionID]
	if limit > 0 && limit < len(h) {
		h = h[len(h)-limit:]
	}
	out := make([]Entry, len(h))
	copy(out, h)
	return out, nil
}

func (m *Memory) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *Memory) Summarize(ctx context.Context, sessionID string) (string, error) {
	h, err := m.History(ctx, sessionID, summaryWindow)
	if err != nil {
		return "", err
	}
	return Summary(h), nil
}

func (m *Memory) Sessions(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Summary renders the trailing entries as "Role: content" lines.
func Summary(entries []Entry) string {
	if len(entries) == 0 {
		return "No prior context."
	}
	if len(entries) > summaryWindow {
		entries = entries[len(entries)-summaryWindow:]
	}
	title := cases.Title(language.English)
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = title.String(e.Role) + ": " + e.Content
	}
	return strings.Join(lines, "\n")
}
