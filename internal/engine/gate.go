package engine

import (
	"time"

	"github.com/your-org/sitewatch/internal/models"
)

// notifKeyPrefix keeps the gate's suppression entries separate from the
// event-level ones in the shared deduper.
const notifKeyPrefix = "notif:"

// clockSkewTolerance bounds how far in the future a detection timestamp may
// sit before it is treated as "now". Camera clocks drift.
const clockSkewTolerance = 2 * time.Second

// Gate decides whether an event is fresh enough and non-duplicate enough to
// fan out to notification recipients. Both guards are independent of whether
// the underlying event record was persisted.
type Gate struct {
	dedup         *Deduper
	clock         Clock
	recencyWindow time.Duration
	dedupWindow   time.Duration
}

func NewGate(dedup *Deduper, clock Clock, recencyWindow, dedupWindow time.Duration) *Gate {
	return &Gate{
		dedup:         dedup,
		clock:         clock,
		recencyWindow: recencyWindow,
		dedupWindow:   dedupWindow,
	}
}

// ShouldNotify passes an event through the recency guard (late-arriving or
// backfilled events never trigger a storm) and the dedup guard (re-detection
// every frame never yields one notification per frame).
func (g *Gate) ShouldNotify(event *models.Event) bool {
	now := g.clock.Now()

	ts := event.DetectedAt
	if ts.After(now.Add(clockSkewTolerance)) {
		ts = now
	}
	age := now.Sub(ts)
	if age < 0 {
		age = -age
	}
	if age > g.recencyWindow {
		return false
	}

	return g.dedup.ShouldEmit(notifKeyPrefix+event.Type, event.SubjectName, event.CameraID.String(), g.dedupWindow)
}
