// Package watch runs the per-chat availability poll jobs: each tracked venue
// is re-checked on a fixed interval until it comes online, then the chat is
// notified exactly once and the job retires itself.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/m3rciful/woltwatch/core/logger"
	"github.com/m3rciful/woltwatch/session"
	"github.com/m3rciful/woltwatch/wolt"
)

const notifyOnline = "The venue is now online!\n" +
	"To search for another venue please reply /start"

// StatusChecker reports whether a venue is online and delivery-enabled.
type StatusChecker interface {
	IsOnline(ctx context.Context, venue wolt.Venue) (bool, error)
}

// Messenger delivers the availability notification.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) error
}

type jobEntry struct {
	entryID cron.EntryID
	jobID   uuid.UUID
	venue   wolt.Venue
}

// Watcher schedules at most one recurring status-check job per chat.
type Watcher struct {
	runner    *cron.Cron
	store     session.Store
	checker   StatusChecker
	messenger Messenger
	locks     *session.KeyedMutex
	interval  time.Duration

	mu   sync.Mutex
	jobs map[int64]jobEntry
}

// New builds a Watcher. The keyed mutex must be shared with the conversation
// flow so ticks and message handling for one chat are serialized.
func New(store session.Store, checker StatusChecker, messenger Messenger, locks *session.KeyedMutex, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Watcher{
		runner:    cron.New(),
		store:     store,
		checker:   checker,
		messenger: messenger,
		locks:     locks,
		interval:  interval,
		jobs:      make(map[int64]jobEntry),
	}
}

// Start launches the cron runner.
func (w *Watcher) Start() {
	w.runner.Start()
}

// Stop halts the cron runner and waits for running ticks to finish.
func (w *Watcher) Stop() {
	<-w.runner.Stop().Done()
}

// Schedule starts the recurring status check for a chat, replacing any prior
// job for the same chat.
func (w *Watcher) Schedule(chatID int64, venue wolt.Venue) {
	jobID := uuid.New()

	w.mu.Lock()
	if prev, ok := w.jobs[chatID]; ok {
		w.runner.Remove(prev.entryID)
	}
	entryID := w.runner.Schedule(cron.Every(w.interval), cron.FuncJob(func() {
		w.tick(chatID, jobID, venue)
	}))
	w.jobs[chatID] = jobEntry{entryID: entryID, jobID: jobID, venue: venue}
	w.mu.Unlock()

	logger.WATCH.Info("job scheduled",
		slog.String("event", "watch.schedule"),
		slog.Int64("chat_id", chatID),
		slog.String("job_id", jobID.String()),
		slog.String("venue", venue.RawID),
		slog.Duration("interval", w.interval),
	)
}

// Cancel removes the poll job for a chat, if one is active.
func (w *Watcher) Cancel(chatID int64) {
	w.mu.Lock()
	entry, ok := w.jobs[chatID]
	if ok {
		w.runner.Remove(entry.entryID)
		delete(w.jobs, chatID)
	}
	w.mu.Unlock()

	if ok {
		logger.WATCH.Info("job cancelled",
			slog.String("event", "watch.cancel"),
			slog.Int64("chat_id", chatID),
			slog.String("job_id", entry.jobID.String()),
		)
	}
}

// Resume re-derives poll jobs from sessions left in the tracking state by a
// previous process.
func (w *Watcher) Resume(ctx context.Context) error {
	tracked, err := w.store.Tracking(ctx)
	if err != nil {
		return err
	}
	for _, t := range tracked {
		w.Schedule(t.ChatID, t.Venue)
	}
	logger.WATCH.Info("jobs resumed",
		slog.String("event", "watch.resume"),
		slog.Int("jobs", len(tracked)),
	)
	return nil
}

// cancelIf removes the chat's job only when it still belongs to the given
// generation, so a stale tick never cancels a newer job.
func (w *Watcher) cancelIf(chatID int64, jobID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, ok := w.jobs[chatID]
	if !ok || entry.jobID != jobID {
		return
	}
	w.runner.Remove(entry.entryID)
	delete(w.jobs, chatID)
}

// current reports whether the given generation is still the chat's active job.
func (w *Watcher) current(chatID int64, jobID uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, ok := w.jobs[chatID]
	return ok && entry.jobID == jobID
}

func (w *Watcher) tick(chatID int64, jobID uuid.UUID, venue wolt.Venue) {
	if !w.current(chatID, jobID) {
		return
	}

	unlock := w.locks.Lock(chatID)
	defer unlock()

	ctx := context.Background()

	sess, err := w.store.Get(ctx, chatID)
	if err != nil {
		if errors.Is(err, session.ErrUnavailable) {
			// Store outage: keep the job and retry next interval.
			logger.WATCH.Warn("store unavailable, skipping tick",
				slog.String("event", "watch.tick"),
				slog.String("status", "skip"),
				slog.Int64("chat_id", chatID),
				slog.String("err", err.Error()),
			)
			return
		}
		logger.WATCH.Error("session read failed",
			slog.String("event", "watch.tick"),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return
	}

	if sess == nil || sess.State != session.StateTracking ||
		sess.Tracked == nil || sess.Tracked.RawID != venue.RawID {
		// The session moved on without us; retire quietly.
		logger.WATCH.Info("job stale, retiring",
			slog.String("event", "watch.tick"),
			slog.String("status", "cancelled"),
			slog.Int64("chat_id", chatID),
			slog.String("job_id", jobID.String()),
		)
		w.cancelIf(chatID, jobID)
		return
	}

	online, err := w.checker.IsOnline(ctx, venue)
	if err != nil {
		// Treat a failed check as still offline and retry next interval.
		logger.WATCH.Warn("status check failed",
			slog.String("event", "watch.tick"),
			slog.String("status", "retry"),
			slog.Int64("chat_id", chatID),
			slog.String("venue", venue.RawID),
			slog.String("err", err.Error()),
		)
		return
	}
	if !online {
		logger.WATCH.Debug("venue still offline",
			slog.String("event", "watch.tick"),
			slog.String("status", "ok"),
			slog.Int64("chat_id", chatID),
			slog.String("venue", venue.RawID),
		)
		return
	}

	// Notify before clearing: if the send fails the session stays in
	// tracking and the next tick retries (at-least-once delivery).
	if err := w.messenger.Send(ctx, chatID, notifyOnline); err != nil {
		logger.WATCH.Warn("notification failed",
			slog.String("event", "watch.notify"),
			slog.String("status", "retry"),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return
	}
	if err := w.store.Clear(ctx, chatID); err != nil {
		logger.WATCH.Error("session clear failed",
			slog.String("event", "watch.notify"),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return
	}
	w.cancelIf(chatID, jobID)

	logger.WATCH.Info("venue online, job done",
		slog.String("event", "watch.notify"),
		slog.String("status", "ok"),
		slog.Int64("chat_id", chatID),
		slog.String("venue", venue.RawID),
		slog.String("job_id", jobID.String()),
	)
}
