package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/sitewatch/internal/models"
)

func testEvent(clock Clock, cameraID uuid.UUID) *models.Event {
	return &models.Event{
		ID:          uuid.New(),
		Type:        models.EventTypePPE,
		CameraID:    cameraID,
		SubjectName: "Alice",
		Severity:    models.SeverityMedium,
		DetectedAt:  clock.Now(),
	}
}

func TestGateRecencyGuard(t *testing.T) {
	clock := newFakeClock(testStart())
	gate := NewGate(NewDeduper(time.Hour, clock), clock, 60*time.Second, 10*time.Second)
	cam := uuid.New()

	ev := testEvent(clock, cam)
	assert.True(t, gate.ShouldNotify(ev))

	// Same age check on a stale event: a backfilled batch import must not
	// trigger a storm.
	stale := testEvent(clock, uuid.New())
	stale.DetectedAt = clock.Now().Add(-2 * time.Minute)
	assert.False(t, gate.ShouldNotify(stale))
}

func TestGateFutureTimestampTreatedAsNow(t *testing.T) {
	clock := newFakeClock(testStart())
	gate := NewGate(NewDeduper(time.Hour, clock), clock, 60*time.Second, 10*time.Second)

	// A camera clock five minutes ahead would fail the recency check read
	// literally; skew handling clamps it to now instead.
	ev := testEvent(clock, uuid.New())
	ev.DetectedAt = clock.Now().Add(5 * time.Minute)
	assert.True(t, gate.ShouldNotify(ev))
}

func TestGateDedupGuard(t *testing.T) {
	clock := newFakeClock(testStart())
	gate := NewGate(NewDeduper(time.Hour, clock), clock, 60*time.Second, 10*time.Second)
	cam := uuid.New()

	require.True(t, gate.ShouldNotify(testEvent(clock, cam)))

	// Re-detection of the same occurrence every second: suppressed.
	clock.Advance(time.Second)
	ev := testEvent(clock, cam)
	assert.False(t, gate.ShouldNotify(ev))

	clock.Advance(10 * time.Second)
	assert.True(t, gate.ShouldNotify(testEvent(clock, cam)))
}

func TestGateKeyspaceIsSeparateFromEventDedup(t *testing.T) {
	clock := newFakeClock(testStart())
	dedup := NewDeduper(time.Hour, clock)
	gate := NewGate(dedup, clock, 60*time.Second, 10*time.Second)
	cam := uuid.New()

	ev := testEvent(clock, cam)

	// An event-level emission for the same type/subject/location must not
	// consume the gate's budget, and vice versa.
	require.True(t, dedup.ShouldEmit(ev.Type, ev.SubjectName, cam.String(), time.Minute))
	assert.True(t, gate.ShouldNotify(ev))
	assert.False(t, dedup.ShouldEmit(ev.Type, ev.SubjectName, cam.String(), time.Minute))
}
