package session

import "sync"

// KeyedMutex serializes work per chat id. Message handling and watcher ticks
// for the same chat must hold the chat's lock across their read-modify-write
// of the session record.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewKeyedMutex constructs an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the lock for a chat, creating it on first use, and returns
// the matching unlock function.
func (k *KeyedMutex) Lock(chatID int64) func() {
	k.mu.Lock()
	l, ok := k.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		k.locks[chatID] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
