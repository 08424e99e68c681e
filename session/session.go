// Package session models per-chat conversation state and its persistence.
// The store owns the canonical record; callers mutate transient copies and
// write them back through Set.
package session

import (
	"context"
	"errors"

	"github.com/m3rciful/woltwatch/wolt"
)

// State identifies the conversation step a chat is in.
type State string

const (
	// StateAwaitingQuery means the bot expects a venue search query.
	StateAwaitingQuery State = "awaiting_query"
	// StateAwaitingSelection means a result list was shown and the bot
	// expects a numeric pick or a page advance.
	StateAwaitingSelection State = "awaiting_selection"
	// StateTracking means a venue was selected while offline and the
	// watcher is polling it.
	StateTracking State = "tracking"
)

// ErrUnavailable wraps store failures so callers can distinguish persistence
// outages from domain conditions.
var ErrUnavailable = errors.New("session store unavailable")

// Session is the per-chat conversation record.
// Venues is non-empty only while awaiting a selection; Tracked is set only
// while a venue is being watched.
type Session struct {
	State   State        `json:"state"`
	Venues  []wolt.Venue `json:"venues,omitempty"`
	PageNum int          `json:"page_num"`
	Tracked *wolt.Venue  `json:"tracked,omitempty"`
}

// Tracked pairs a chat with the venue its watcher job polls.
type Tracked struct {
	ChatID int64
	Venue  wolt.Venue
}

// Store persists one Session per chat.
type Store interface {
	// Get returns the session for a chat, or nil when none exists.
	Get(ctx context.Context, chatID int64) (*Session, error)
	// Set writes the session, replacing any previous record.
	Set(ctx context.Context, chatID int64, s *Session) error
	// Clear removes the session; clearing an absent session is not an error.
	Clear(ctx context.Context, chatID int64) error
	// Tracking lists chats whose sessions are in the tracking state,
	// used to re-derive watcher jobs after a restart.
	Tracking(ctx context.Context) ([]Tracked, error)
}
