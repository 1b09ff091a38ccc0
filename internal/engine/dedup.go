package engine

import (
	"sync"
	"time"
)

// DedupKey identifies one class of physical occurrence: the same event type,
// for the same subject, at the same location.
type DedupKey struct {
	EventType string
	Subject   string
	Location  string
}

type dedupEntry struct {
	lastEmittedAt time.Time
	insertedAt    time.Time
}

// Deduper suppresses repeat emissions of the same event key within a per-call
// window. One instance is shared by every event type and by the notification
// gate; the map is the only shared mutable state in the decision core.
type Deduper struct {
	mu        sync.Mutex
	entries   map[DedupKey]*dedupEntry
	retention time.Duration
	clock     Clock
}

// NewDeduper creates a deduper whose Sweep drops entries idle longer than
// retention. Retention must exceed every suppression window passed to
// ShouldEmit.
func NewDeduper(retention time.Duration, clock Clock) *Deduper {
	return &Deduper{
		entries:   make(map[DedupKey]*dedupEntry),
		retention: retention,
		clock:     clock,
	}
}

// ShouldEmit reports whether a new emission is allowed for the key and, if so,
// records the emission timestamp. Suppression anchors to the first emission of
// a burst: suppressed hits do not slide the window, so sustained per-frame
// detection still yields at most one emission per window per key.
func (d *Deduper) ShouldEmit(eventType, subject, location string, window time.Duration) bool {
	key := DedupKey{EventType: eventType, Subject: subject, Location: location}
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.entries[key]
	if ok && now.Sub(entry.lastEmittedAt) <= window {
		return false
	}
	if ok {
		entry.lastEmittedAt = now
	} else {
		d.entries[key] = &dedupEntry{lastEmittedAt: now, insertedAt: now}
	}
	return true
}

// Sweep removes entries past the retention ceiling and returns how many were
// dropped. It only removes entries whose last emission is also older than
// retention, so it can never flip an in-window decision. The host invokes it
// on a low-frequency timer.
func (d *Deduper) Sweep() int {
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for key, entry := range d.entries {
		if now.Sub(entry.insertedAt) > d.retention && now.Sub(entry.lastEmittedAt) > d.retention {
			delete(d.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the current number of suppression entries.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
