package session

import (
	"context"
	"sync"
	"testing"

	"github.com/m3rciful/woltwatch/wolt"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected absent session, got %+v", got)
	}

	sess := &Session{
		State:  StateAwaitingSelection,
		Venues: []wolt.Venue{{Title: "A", RawID: "venue-a"}},
	}
	if err := store.Set(ctx, 1, sess); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err = store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.State != StateAwaitingSelection || len(got.Venues) != 1 {
		t.Fatalf("got %+v", got)
	}

	// The store must own its copy; caller mutations cannot leak in.
	sess.Venues[0].Title = "mutated"
	got2, _ := store.Get(ctx, 1)
	if got2.Venues[0].Title != "A" {
		t.Fatalf("store returned aliased data: %+v", got2.Venues[0])
	}

	if err := store.Clear(ctx, 1); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, _ = store.Get(ctx, 1)
	if got != nil {
		t.Fatalf("expected cleared session, got %+v", got)
	}
}

func TestMemoryStoreTracking(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	venue := wolt.Venue{Title: "A", RawID: "venue-a"}
	_ = store.Set(ctx, 1, &Session{State: StateTracking, Tracked: &venue})
	_ = store.Set(ctx, 2, &Session{State: StateAwaitingQuery})

	tracked, err := store.Tracking(ctx)
	if err != nil {
		t.Fatalf("Tracking: %v", err)
	}
	if len(tracked) != 1 || tracked[0].ChatID != 1 || tracked[0].Venue.RawID != "venue-a" {
		t.Fatalf("tracked = %+v", tracked)
	}
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := NewKeyedMutex()
	const workers = 8
	const iters = 200

	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				unlock := km.Lock(42)
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	if counter != workers*iters {
		t.Fatalf("counter = %d, want %d", counter, workers*iters)
	}
}
