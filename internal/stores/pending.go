package stores

import (
	"sync"
	"time"
)

// PendingEntry is one in-flight registration keyed by its verification code.
type PendingEntry struct {
	Code              string
	RequestID         string
	RequestingAccount string
	ExternalAccountID string
	CreatedAt         time.Time
	// ExpiresAt is zero when the entry never expires.
	ExpiresAt time.Time
}

func (e PendingEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// PendingTable holds pending registrations in memory. Codes are unique among
// live entries; an expired entry does not block reuse of its code.
type PendingTable struct {
	mu      sync.Mutex
	entries map[string]PendingEntry
}

func NewPendingTable() *PendingTable {
	return &PendingTable{
		entries: make(map[string]PendingEntry),
	}
}

// Reserve inserts entry under entry.Code unless a live entry already holds
// that code. It reports whether the insert happened.
func (t *PendingTable) Reserve(entry PendingEntry, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.entries[entry.Code]; ok && !existing.expired(now) {
		return false
	}
	t.entries[entry.Code] = entry
	return true
}

// Lookup returns the live entry for code. An expired entry is evicted and
// reported through the expired flag.
func (t *PendingTable) Lookup(code string, now time.Time) (entry PendingEntry, found bool, expired bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[code]
	if !ok {
		return PendingEntry{}, false, false
	}
	if entry.expired(now) {
		delete(t.entries, code)
		return entry, false, true
	}
	return entry, true, false
}

func (t *PendingTable) Remove(code string) {
	t.mu.Lock()
	delete(t.entries, code)
	t.mu.Unlock()
}

// Sweep evicts every entry expired at now and returns them.
func (t *PendingTable) Sweep(now time.Time) []PendingEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var evicted []PendingEntry
	for code, entry := range t.entries {
		if entry.expired(now) {
			delete(t.entries, code)
			evicted = append(evicted, entry)
		}
	}
	return evicted
}

func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
