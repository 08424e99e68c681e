// Package flow implements the conversation state machine: it maps an inbound
// message and the chat's stored session to outbound replies, session
// mutations, and watcher scheduling.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/m3rciful/woltwatch/core/logger"
	"github.com/m3rciful/woltwatch/session"
	"github.com/m3rciful/woltwatch/wolt"
)

// ErrInvalidSelection marks a numeric reply outside the shown range.
var ErrInvalidSelection = errors.New("selection out of range")

// Directory is the venue search and status surface consumed by the flow.
type Directory interface {
	Search(ctx context.Context, query string) ([]wolt.Venue, error)
	IsOnline(ctx context.Context, venue wolt.Venue) (bool, error)
}

// Messenger delivers outbound text to a chat.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Scheduler manages the per-chat availability poll job.
type Scheduler interface {
	Schedule(chatID int64, venue wolt.Venue)
	Cancel(chatID int64)
}

// Flow drives one conversation per chat over the session store.
type Flow struct {
	store     session.Store
	directory Directory
	scheduler Scheduler
	messenger Messenger
	locks     *session.KeyedMutex
	pageSize  int
}

// New wires a Flow. The keyed mutex must be the same instance the watcher
// uses so message handling and poll ticks for one chat never interleave.
func New(store session.Store, directory Directory, scheduler Scheduler, messenger Messenger, locks *session.KeyedMutex, pageSize int) *Flow {
	if pageSize <= 0 {
		pageSize = wolt.DefaultPageSize
	}
	return &Flow{
		store:     store,
		directory: directory,
		scheduler: scheduler,
		messenger: messenger,
		locks:     locks,
		pageSize:  pageSize,
	}
}

// HandleStart resets the conversation: any active watch is cancelled and the
// chat is prompted for a fresh venue query.
func (f *Flow) HandleStart(ctx context.Context, chatID int64) error {
	unlock := f.locks.Lock(chatID)
	defer unlock()
	return f.reset(ctx, chatID)
}

// HandleCancel stops an active watch, or clears whatever is in progress.
func (f *Flow) HandleCancel(ctx context.Context, chatID int64) error {
	unlock := f.locks.Lock(chatID)
	defer unlock()

	sess, err := f.store.Get(ctx, chatID)
	if err != nil {
		return f.failStore(ctx, chatID, err)
	}
	if sess == nil || sess.State == session.StateAwaitingQuery {
		return f.send(ctx, chatID, msgNothingToCancel)
	}

	f.scheduler.Cancel(chatID)
	if err := f.store.Clear(ctx, chatID); err != nil {
		return f.failStore(ctx, chatID, err)
	}
	if sess.State == session.StateTracking && sess.Tracked != nil {
		return f.send(ctx, chatID, msgStoppedWatching(sess.Tracked.Title))
	}
	return f.send(ctx, chatID, msgCancelled)
}

// HandleHelp describes the bot.
func (f *Flow) HandleHelp(ctx context.Context, chatID int64) error {
	return f.send(ctx, chatID, msgHelp)
}

// HandleText dispatches a free-text message on the chat's current state.
func (f *Flow) HandleText(ctx context.Context, chatID int64, text string) error {
	unlock := f.locks.Lock(chatID)
	defer unlock()

	sess, err := f.store.Get(ctx, chatID)
	if err != nil {
		return f.failStore(ctx, chatID, err)
	}
	if sess == nil {
		// First contact behaves like /start.
		return f.reset(ctx, chatID)
	}

	switch sess.State {
	case session.StateAwaitingQuery:
		return f.handleQuery(ctx, chatID, text)
	case session.StateAwaitingSelection:
		if isNumeric(text) {
			return f.handleSelection(ctx, chatID, sess, text)
		}
		return f.handlePageAdvance(ctx, chatID, sess)
	case session.StateTracking:
		title := ""
		if sess.Tracked != nil {
			title = sess.Tracked.Title
		}
		return f.send(ctx, chatID, msgTrackingReminder(title))
	default:
		logger.FLOW.Warn("unknown session state, resetting",
			slog.String("event", "flow.dispatch"),
			slog.Int64("chat_id", chatID),
			slog.String("state", string(sess.State)),
		)
		return f.reset(ctx, chatID)
	}
}

func (f *Flow) reset(ctx context.Context, chatID int64) error {
	f.scheduler.Cancel(chatID)
	if err := f.store.Set(ctx, chatID, &session.Session{State: session.StateAwaitingQuery}); err != nil {
		return f.failStore(ctx, chatID, err)
	}
	if err := f.send(ctx, chatID, msgWelcome); err != nil {
		return err
	}
	return f.send(ctx, chatID, msgAskQuery)
}

func (f *Flow) handleQuery(ctx context.Context, chatID int64, query string) error {
	venues, err := f.directory.Search(ctx, query)
	if err != nil {
		// Upstream failure: keep the session so the user can retry the query.
		logger.FLOW.Error("search failed",
			slog.String("event", "flow.query"),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return f.send(ctx, chatID, msgUpstreamFailure)
	}

	if len(venues) == 0 {
		logger.FLOW.Info("no venues matched",
			slog.String("event", "flow.query"),
			slog.String("status", "ok"),
			slog.Int64("chat_id", chatID),
			slog.String("query", logger.SanitizeLimit(query, 128)),
		)
		if err := f.store.Clear(ctx, chatID); err != nil {
			return f.failStore(ctx, chatID, err)
		}
		return f.send(ctx, chatID, msgNoMatch)
	}

	sess := &session.Session{
		State:  session.StateAwaitingSelection,
		Venues: venues,
	}
	if err := f.store.Set(ctx, chatID, sess); err != nil {
		return f.failStore(ctx, chatID, err)
	}

	logger.FLOW.Info("venues listed",
		slog.String("event", "flow.query"),
		slog.String("status", "ok"),
		slog.Int64("chat_id", chatID),
		slog.Int("results", len(venues)),
	)
	return f.send(ctx, chatID, wolt.BuildPrompt(venues, 0, f.pageSize))
}

func (f *Flow) handleSelection(ctx context.Context, chatID int64, sess *session.Session, text string) error {
	pick, err := strconv.Atoi(text)
	if err != nil || pick < 1 || pick > len(sess.Venues) {
		logger.FLOW.Info("selection out of range",
			slog.String("event", "flow.select"),
			slog.Int64("chat_id", chatID),
			slog.String("input", logger.SanitizeLimit(text, 32)),
			slog.Int("venues", len(sess.Venues)),
			slog.String("err", ErrInvalidSelection.Error()),
		)
		return f.send(ctx, chatID, msgInvalidSelection(len(sess.Venues)))
	}

	// The pick resolves against the list captured at search time.
	venue := sess.Venues[pick-1]

	online, err := f.directory.IsOnline(ctx, venue)
	if err != nil {
		// Leave the selection list intact so the same pick can be retried.
		logger.FLOW.Error("status check failed",
			slog.String("event", "flow.select"),
			slog.Int64("chat_id", chatID),
			slog.String("venue", venue.RawID),
			slog.String("err", err.Error()),
		)
		return f.send(ctx, chatID, msgUpstreamFailure)
	}

	if online {
		if err := f.store.Clear(ctx, chatID); err != nil {
			return f.failStore(ctx, chatID, err)
		}
		logger.FLOW.Info("venue already online",
			slog.String("event", "flow.select"),
			slog.String("status", "ok"),
			slog.Int64("chat_id", chatID),
			slog.String("venue", venue.RawID),
		)
		return f.send(ctx, chatID, msgAlreadyOnline)
	}

	next := &session.Session{State: session.StateTracking, Tracked: &venue}
	if err := f.store.Set(ctx, chatID, next); err != nil {
		return f.failStore(ctx, chatID, err)
	}
	f.scheduler.Schedule(chatID, venue)

	logger.FLOW.Info("tracking started",
		slog.String("event", "flow.select"),
		slog.String("status", "ok"),
		slog.Int64("chat_id", chatID),
		slog.String("venue", venue.RawID),
	)
	return f.send(ctx, chatID, msgWillUpdate)
}

func (f *Flow) handlePageAdvance(ctx context.Context, chatID int64, sess *session.Session) error {
	nextPage := sess.PageNum + 1
	page, _ := wolt.Paginate(sess.Venues, nextPage, f.pageSize)
	if len(page) == 0 {
		// Keep the cursor so the shown range stays selectable.
		return f.send(ctx, chatID, msgNoMorePages)
	}

	sess.PageNum = nextPage
	if err := f.store.Set(ctx, chatID, sess); err != nil {
		return f.failStore(ctx, chatID, err)
	}
	return f.send(ctx, chatID, wolt.BuildPrompt(sess.Venues, nextPage, f.pageSize))
}

func (f *Flow) send(ctx context.Context, chatID int64, text string) error {
	if err := f.messenger.Send(ctx, chatID, text); err != nil {
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return nil
}

func (f *Flow) failStore(ctx context.Context, chatID int64, err error) error {
	logger.FLOW.Error("session store failure",
		slog.String("event", "flow.store"),
		slog.Int64("chat_id", chatID),
		slog.String("err", err.Error()),
	)
	_ = f.send(ctx, chatID, msgStoreFailure)
	return err
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
