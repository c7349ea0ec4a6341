package memory

import (
	"sync"
	"time"

	"github.com/davigomz/kora/pkg/logger"
)

// ShortTermMemory is the volatile per-user recency cache. Entries hold at
// most cap messages (FIFO trim) and expire ttl after their last touch; a
// read also refreshes the clock (sliding TTL). A background sweep purges
// expired entries so memory stays bounded even for users that never return.
type ShortTermMemory struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry

	cap        int
	ttl        time.Duration
	sweepEvery time.Duration

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type cacheEntry struct {
	messages    []ConversationMessage
	lastTouched time.Time
	accessCount int
}

func NewShortTermMemory(cap int, ttl, sweepEvery time.Duration) *ShortTermMemory {
	if cap <= 0 {
		cap = 5
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if sweepEvery <= 0 {
		sweepEvery = 5 * time.Minute
	}

	m := &ShortTermMemory{
		entries:    make(map[string]*cacheEntry),
		cap:        cap,
		ttl:        ttl,
		sweepEvery: sweepEvery,
		stopCh:     make(chan struct{}),
	}

	m.wg.Add(1)
	go m.runSweeper()
	return m
}

// Add appends a message to the user's entry, creating it on first use, and
// trims the oldest messages once the cap is exceeded.
func (m *ShortTermMemory) Add(userID string, msg ConversationMessage) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[userID]
	if !ok {
		entry = &cacheEntry{}
		m.entries[userID] = entry
	}
	entry.messages = append(entry.messages, msg)
	if excess := len(entry.messages) - m.cap; excess > 0 {
		entry.messages = append(entry.messages[:0:0], entry.messages[excess:]...)
	}
	entry.lastTouched = now
	entry.accessCount++
}

// Get returns a copy of the user's cached messages, or nil when the entry is
// absent or expired. Expired entries are purged on discovery. A live read
// refreshes the entry's TTL.
func (m *ShortTermMemory) Get(userID string) []ConversationMessage {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[userID]
	if !ok {
		return nil
	}
	if now.Sub(entry.lastTouched) > m.ttl {
		delete(m.entries, userID)
		return nil
	}
	entry.lastTouched = now
	entry.accessCount++

	out := make([]ConversationMessage, len(entry.messages))
	copy(out, entry.messages)
	return out
}

// Clear drops a single user's entry.
func (m *ShortTermMemory) Clear(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
}

// ClearAll drops every entry.
func (m *ShortTermMemory) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*cacheEntry)
}

// Size returns the number of live entries.
func (m *ShortTermMemory) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close stops the sweep goroutine. Safe to call more than once.
func (m *ShortTermMemory) Close() {
	m.closeOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
	})
}

func (m *ShortTermMemory) runSweeper() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

func (m *ShortTermMemory) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for userID, entry := range m.entries {
		if now.Sub(entry.lastTouched) > m.ttl {
			delete(m.entries, userID)
			purged++
		}
	}
	if purged > 0 {
		log := logger.For("shortterm")
		log.Debug().Int("purged", purged).Int("live", len(m.entries)).Msg("cache sweep")
	}
}
