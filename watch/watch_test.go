package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/woltwatch/session"
	"github.com/m3rciful/woltwatch/wolt"
)

type scriptedChecker struct {
	mu      sync.Mutex
	results []bool
	err     error
	calls   int
}

func (c *scriptedChecker) IsOnline(_ context.Context, _ wolt.Venue) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	if len(c.results) == 0 {
		return false, nil
	}
	res := c.results[0]
	c.results = c.results[1:]
	return res, nil
}

type recordingMessenger struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *recordingMessenger) Send(_ context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, fmt.Sprintf("%d:%s", chatID, text))
	return nil
}

func (m *recordingMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type failingStore struct{}

func (failingStore) Get(context.Context, int64) (*session.Session, error) {
	return nil, fmt.Errorf("%w: down", session.ErrUnavailable)
}
func (failingStore) Set(context.Context, int64, *session.Session) error {
	return fmt.Errorf("%w: down", session.ErrUnavailable)
}
func (failingStore) Clear(context.Context, int64) error {
	return fmt.Errorf("%w: down", session.ErrUnavailable)
}
func (failingStore) Tracking(context.Context) ([]session.Tracked, error) {
	return nil, fmt.Errorf("%w: down", session.ErrUnavailable)
}

func trackedSession(v wolt.Venue) *session.Session {
	return &session.Session{State: session.StateTracking, Tracked: &v}
}

func newTestWatcher(store session.Store, checker StatusChecker, messenger Messenger) *Watcher {
	return New(store, checker, messenger, session.NewKeyedMutex(), time.Minute)
}

// fire runs the chat's current job generation once, bypassing the cron clock.
func fire(t *testing.T, w *Watcher, chatID int64) {
	t.Helper()
	w.mu.Lock()
	entry, ok := w.jobs[chatID]
	w.mu.Unlock()
	if !ok {
		t.Fatalf("no active job for chat %d", chatID)
	}
	w.tick(chatID, entry.jobID, entry.venue)
}

func activeJobs(w *Watcher) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.jobs)
}

func TestTickNotifiesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	venue := wolt.Venue{Title: "Gina", RawID: "venue-gina"}
	_ = store.Set(ctx, 7, trackedSession(venue))

	checker := &scriptedChecker{results: []bool{false, false, true}}
	messenger := &recordingMessenger{}
	w := newTestWatcher(store, checker, messenger)
	w.Schedule(7, venue)

	fire(t, w, 7)
	fire(t, w, 7)
	if messenger.count() != 0 {
		t.Fatalf("notified while offline: %v", messenger.sent)
	}

	fire(t, w, 7)
	if messenger.count() != 1 {
		t.Fatalf("sent %d notifications, want 1", messenger.count())
	}
	if checker.calls != 3 {
		t.Fatalf("checker called %d times, want 3", checker.calls)
	}

	if sess, _ := store.Get(ctx, 7); sess != nil {
		t.Fatalf("session not cleared: %+v", sess)
	}
	if activeJobs(w) != 0 {
		t.Fatalf("job not removed, %d active", activeJobs(w))
	}
}

func TestTickAfterResetRetiresQuietly(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	venue := wolt.Venue{Title: "Gina", RawID: "venue-gina"}
	_ = store.Set(ctx, 7, trackedSession(venue))

	checker := &scriptedChecker{results: []bool{true}}
	messenger := &recordingMessenger{}
	w := newTestWatcher(store, checker, messenger)
	w.Schedule(7, venue)

	// Simulate a /start reset racing the job: session no longer tracking.
	_ = store.Set(ctx, 7, &session.Session{State: session.StateAwaitingQuery})

	fire(t, w, 7)
	if messenger.count() != 0 {
		t.Fatalf("stale job must not notify: %v", messenger.sent)
	}
	if checker.calls != 0 {
		t.Fatal("stale job must not hit the directory")
	}
	if activeJobs(w) != 0 {
		t.Fatal("stale job must self-cancel")
	}
}

func TestTickVenueMismatchRetires(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	oldVenue := wolt.Venue{Title: "Old", RawID: "venue-old"}
	newVenue := wolt.Venue{Title: "New", RawID: "venue-new"}
	_ = store.Set(ctx, 7, trackedSession(newVenue))

	messenger := &recordingMessenger{}
	w := newTestWatcher(store, &scriptedChecker{results: []bool{true}}, messenger)

	w.mu.Lock()
	w.jobs[7] = jobEntry{jobID: uuid.New(), venue: oldVenue}
	entry := w.jobs[7]
	w.mu.Unlock()

	w.tick(7, entry.jobID, oldVenue)
	if messenger.count() != 0 {
		t.Fatalf("mismatched job must not notify: %v", messenger.sent)
	}
	if activeJobs(w) != 0 {
		t.Fatal("mismatched job must self-cancel")
	}
}

func TestScheduleReplacesPriorJob(t *testing.T) {
	store := session.NewMemoryStore()
	messenger := &recordingMessenger{}
	w := newTestWatcher(store, &scriptedChecker{}, messenger)

	first := wolt.Venue{Title: "First", RawID: "venue-first"}
	second := wolt.Venue{Title: "Second", RawID: "venue-second"}
	w.Schedule(7, first)

	w.mu.Lock()
	firstJobID := w.jobs[7].jobID
	w.mu.Unlock()

	w.Schedule(7, second)
	if activeJobs(w) != 1 {
		t.Fatalf("expected single job, got %d", activeJobs(w))
	}

	// A leftover tick of the replaced generation must be a no-op.
	w.tick(7, firstJobID, first)
	if messenger.count() != 0 {
		t.Fatalf("replaced job must not act: %v", messenger.sent)
	}
	if activeJobs(w) != 1 {
		t.Fatal("replaced tick must not cancel the new job")
	}
}

func TestTickStatusErrorRetriesNextInterval(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	venue := wolt.Venue{Title: "Gina", RawID: "venue-gina"}
	_ = store.Set(ctx, 7, trackedSession(venue))

	checker := &scriptedChecker{err: errors.New("wolt down")}
	messenger := &recordingMessenger{}
	w := newTestWatcher(store, checker, messenger)
	w.Schedule(7, venue)

	fire(t, w, 7)
	if messenger.count() != 0 {
		t.Fatal("errored tick must not notify")
	}
	if activeJobs(w) != 1 {
		t.Fatal("errored tick must keep the job")
	}
}

func TestTickStoreOutageKeepsJob(t *testing.T) {
	venue := wolt.Venue{Title: "Gina", RawID: "venue-gina"}
	checker := &scriptedChecker{results: []bool{true}}
	messenger := &recordingMessenger{}
	w := newTestWatcher(failingStore{}, checker, messenger)
	w.Schedule(7, venue)

	fire(t, w, 7)
	if messenger.count() != 0 {
		t.Fatal("tick during store outage must not notify")
	}
	if checker.calls != 0 {
		t.Fatal("tick during store outage must not check status")
	}
	if activeJobs(w) != 1 {
		t.Fatal("job must survive a store outage")
	}
}

func TestNotifyFailureRetries(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	venue := wolt.Venue{Title: "Gina", RawID: "venue-gina"}
	_ = store.Set(ctx, 7, trackedSession(venue))

	checker := &scriptedChecker{results: []bool{true, true}}
	messenger := &recordingMessenger{err: errors.New("telegram down")}
	w := newTestWatcher(store, checker, messenger)
	w.Schedule(7, venue)

	fire(t, w, 7)
	if activeJobs(w) != 1 {
		t.Fatal("failed notification must keep the job for retry")
	}

	messenger.mu.Lock()
	messenger.err = nil
	messenger.mu.Unlock()

	fire(t, w, 7)
	if messenger.count() != 1 {
		t.Fatalf("sent %d notifications, want 1", messenger.count())
	}
	if activeJobs(w) != 0 {
		t.Fatal("job must retire after successful notification")
	}
}

func TestResumeReschedulesTrackingSessions(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	_ = store.Set(ctx, 1, trackedSession(wolt.Venue{Title: "A", RawID: "venue-a"}))
	_ = store.Set(ctx, 2, &session.Session{State: session.StateAwaitingQuery})
	_ = store.Set(ctx, 3, trackedSession(wolt.Venue{Title: "C", RawID: "venue-c"}))

	w := newTestWatcher(store, &scriptedChecker{}, &recordingMessenger{})
	if err := w.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if activeJobs(w) != 2 {
		t.Fatalf("resumed %d jobs, want 2", activeJobs(w))
	}
}
