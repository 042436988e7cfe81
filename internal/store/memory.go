package store

import (
	"sync"
)

// DefaultHistorySize is the number of banners kept by [NewMemoryStore].
const DefaultHistorySize = 50

const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// The current banner is replaced wholesale on every Set, mirroring how the
// panel's message area is redrawn. A bounded history keeps the most recent
// banners for late joiners and debugging.
//
// Subscribers receive updates via buffered channels (buffer size 100). Updates
// are sent non-blocking; if a subscriber's buffer is full, the update is
// dropped for that subscriber.
type MemoryStore struct {
	mu          sync.RWMutex
	current     Banner
	hasCurrent  bool
	history     []Banner
	historySize int
	subscribers map[chan Banner]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a store keeping [DefaultHistorySize] banners.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithHistory(DefaultHistorySize)
}

// NewMemoryStoreWithHistory creates a store keeping at most size banners of
// history. A size below 1 keeps only the current banner.
func NewMemoryStoreWithHistory(size int) *MemoryStore {
	if size < 1 {
		size = 1
	}
	return &MemoryStore{
		history:     make([]Banner, 0, size),
		historySize: size,
		subscribers: make(map[chan Banner]struct{}),
	}
}

// Set stores the banner as current and notifies all subscribers.
func (m *MemoryStore) Set(banner Banner) {
	m.mu.Lock()
	m.current = banner
	m.hasCurrent = true
	if len(m.history) == m.historySize {
		copy(m.history, m.history[1:])
		m.history = m.history[:len(m.history)-1]
	}
	m.history = append(m.history, banner)
	m.mu.Unlock()

	m.notifySubscribers(banner)
}

// Current returns the most recently set banner.
func (m *MemoryStore) Current() (Banner, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.hasCurrent
}

// History returns a copy of the retained banners, oldest first.
func (m *MemoryStore) History() []Banner {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Banner, len(m.history))
	copy(out, m.history)
	return out
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Banner {
	ch := make(chan Banner, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Banner) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the banner to all active subscribers without blocking.
func (m *MemoryStore) notifySubscribers(banner Banner) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- banner:
		default:
			// subscriber is slow, drop the message
		}
	}
}
