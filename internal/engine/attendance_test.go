package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/sitewatch/internal/models"
)

func TestDayAggregatorMergeIntervalAbsorbsRapidDetections(t *testing.T) {
	agg := NewDayAggregator(30*time.Second, time.UTC)
	bob := uuid.New()
	site := uuid.New()
	cam := uuid.New()
	t0 := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	res := agg.Record(bob, site, cam, t0)
	assert.True(t, res.NewDay)
	assert.Equal(t, 1, res.Record.DetectionCount)

	// t=20s: inside the merge interval, no-op.
	res = agg.Record(bob, site, cam, t0.Add(20*time.Second))
	assert.False(t, res.NewDay)
	assert.True(t, res.Merged)
	assert.Equal(t, 1, res.Record.DetectionCount)
	assert.Equal(t, t0, res.Record.LastSeenAt)

	// t=40s: the merge anchor did not slide at t=20, so this one counts.
	res = agg.Record(bob, site, cam, t0.Add(40*time.Second))
	assert.False(t, res.NewDay)
	assert.False(t, res.Merged)
	assert.Equal(t, 2, res.Record.DetectionCount)
	assert.Equal(t, t0.Add(40*time.Second), res.Record.LastSeenAt)
}

func TestDayAggregatorOneRecordPerDay(t *testing.T) {
	agg := NewDayAggregator(30*time.Second, time.UTC)
	alice := uuid.New()
	site := uuid.New()
	cam := uuid.New()
	t0 := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	first := agg.Record(alice, site, cam, t0)
	require.True(t, first.NewDay)

	// Detections throughout the day mutate the same record.
	for i := 1; i <= 8; i++ {
		res := agg.Record(alice, site, cam, t0.Add(time.Duration(i)*time.Hour))
		assert.False(t, res.NewDay)
		assert.Equal(t, first.Record.ID, res.Record.ID)
		assert.Equal(t, t0, res.Record.FirstSeenAt)
	}
	assert.Equal(t, 1, agg.Len())

	// Next calendar day always opens a fresh record.
	res := agg.Record(alice, site, cam, t0.Add(24*time.Hour))
	assert.True(t, res.NewDay)
	assert.NotEqual(t, first.Record.ID, res.Record.ID)
	assert.Equal(t, 1, res.Record.DetectionCount)
	assert.Equal(t, 2, agg.Len())
}

func TestDayAggregatorNewDayWinsOverMergeInterval(t *testing.T) {
	agg := NewDayAggregator(30*time.Second, time.UTC)
	alice := uuid.New()
	site := uuid.New()
	cam := uuid.New()

	// 10 seconds before and after midnight.
	before := time.Date(2025, 6, 2, 23, 59, 50, 0, time.UTC)
	after := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	res := agg.Record(alice, site, cam, before)
	require.True(t, res.NewDay)

	res = agg.Record(alice, site, cam, after)
	assert.True(t, res.NewDay)
	assert.Equal(t, "2025-06-03", res.Record.Day)
}

func TestDayAggregatorSiteLocalDayBoundary(t *testing.T) {
	// UTC+10: 23:00 UTC on June 2 is already June 3 locally.
	loc := time.FixedZone("UTC+10", 10*3600)
	agg := NewDayAggregator(30*time.Second, loc)
	alice := uuid.New()

	res := agg.Record(alice, uuid.New(), uuid.New(), time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, "2025-06-03", res.Record.Day)
}

func TestDayAggregatorTracksCameraSet(t *testing.T) {
	agg := NewDayAggregator(time.Second, time.UTC)
	alice := uuid.New()
	site := uuid.New()
	camA := uuid.New()
	camB := uuid.New()
	t0 := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	agg.Record(alice, site, camA, t0)
	agg.Record(alice, site, camB, t0.Add(time.Minute))
	res := agg.Record(alice, site, camA, t0.Add(2*time.Minute))

	assert.ElementsMatch(t, []uuid.UUID{camA, camB}, res.Record.CamerasSeen)
	assert.Equal(t, 3, res.Record.DetectionCount)
}

func TestDayAggregatorSeedRestoresDayState(t *testing.T) {
	agg := NewDayAggregator(30*time.Second, time.UTC)
	alice := uuid.New()
	site := uuid.New()
	cam := uuid.New()
	t0 := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	seeded := models.AttendanceDayRecord{
		ID:             uuid.New(),
		IdentityID:     alice,
		SiteID:         site,
		Day:            "2025-06-02",
		FirstSeenAt:    t0,
		LastSeenAt:     t0.Add(time.Hour),
		DetectionCount: 5,
		CamerasSeen:    []uuid.UUID{cam},
	}
	agg.Seed([]models.AttendanceDayRecord{seeded})

	// A later detection the same day continues the seeded record instead of
	// opening a second one.
	res := agg.Record(alice, site, cam, t0.Add(2*time.Hour))
	assert.False(t, res.NewDay)
	assert.Equal(t, seeded.ID, res.Record.ID)
	assert.Equal(t, 6, res.Record.DetectionCount)
	assert.Equal(t, t0, res.Record.FirstSeenAt)
}

func TestDayAggregatorEvictBefore(t *testing.T) {
	agg := NewDayAggregator(time.Second, time.UTC)
	alice := uuid.New()
	site := uuid.New()
	cam := uuid.New()

	agg.Record(alice, site, cam, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	agg.Record(alice, site, cam, time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))
	require.Equal(t, 2, agg.Len())

	removed := agg.EvictBefore("2025-06-02")
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, agg.Len())
}

func TestDayAggregatorReturnsCopies(t *testing.T) {
	agg := NewDayAggregator(time.Second, time.UTC)
	alice := uuid.New()
	t0 := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	res := agg.Record(alice, uuid.New(), uuid.New(), t0)
	res.Record.DetectionCount = 99
	res.Record.CamerasSeen[0] = uuid.New()

	again := agg.Record(alice, uuid.New(), uuid.New(), t0.Add(time.Minute))
	assert.Equal(t, 2, again.Record.DetectionCount)
}
