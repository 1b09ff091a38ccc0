package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/sitewatch/internal/models"
)

const dayFormat = "2006-01-02"

type dayKey struct {
	identityID uuid.UUID
	day        string
}

// AttendanceResult reports what one detection did to the day ledger.
type AttendanceResult struct {
	Record models.AttendanceDayRecord
	// NewDay is true when this detection created the day's record.
	NewDay bool
	// Merged is true when the detection fell inside the micro-merge
	// interval and the record was left untouched.
	Merged bool
}

// DayAggregator folds timestamped attendance detections into at most one
// record per identity per site-local calendar day.
type DayAggregator struct {
	mu      sync.Mutex
	records map[dayKey]*models.AttendanceDayRecord
	// lastRecorded tracks the most recent non-merged detection per identity,
	// across days, for micro-duplicate suppression.
	lastRecorded  map[uuid.UUID]time.Time
	mergeInterval time.Duration
	loc           *time.Location
}

func NewDayAggregator(mergeInterval time.Duration, loc *time.Location) *DayAggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &DayAggregator{
		records:       make(map[dayKey]*models.AttendanceDayRecord),
		lastRecorded:  make(map[uuid.UUID]time.Time),
		mergeInterval: mergeInterval,
		loc:           loc,
	}
}

// Record folds one detection into the day ledger. A detection on a new
// calendar day always creates a record, even inside the merge interval; a
// detection within the merge interval of the previous one on the same day is
// absorbed without touching the record. The merge anchor does not slide on
// absorbed detections.
func (a *DayAggregator) Record(identityID, siteID, cameraID uuid.UUID, ts time.Time) AttendanceResult {
	day := ts.In(a.loc).Format(dayFormat)
	key := dayKey{identityID: identityID, day: day}

	a.mu.Lock()
	defer a.mu.Unlock()

	rec, exists := a.records[key]
	if !exists {
		rec = &models.AttendanceDayRecord{
			ID:             uuid.New(),
			IdentityID:     identityID,
			SiteID:         siteID,
			Day:            day,
			FirstSeenAt:    ts,
			LastSeenAt:     ts,
			DetectionCount: 1,
			CamerasSeen:    []uuid.UUID{cameraID},
			UpdatedAt:      ts,
		}
		a.records[key] = rec
		a.lastRecorded[identityID] = ts
		return AttendanceResult{Record: copyRecord(rec), NewDay: true}
	}

	if last, ok := a.lastRecorded[identityID]; ok && ts.Sub(last) < a.mergeInterval {
		return AttendanceResult{Record: copyRecord(rec), Merged: true}
	}

	if ts.After(rec.LastSeenAt) {
		rec.LastSeenAt = ts
	}
	rec.DetectionCount++
	if !containsCamera(rec.CamerasSeen, cameraID) {
		rec.CamerasSeen = append(rec.CamerasSeen, cameraID)
	}
	rec.UpdatedAt = ts
	a.lastRecorded[identityID] = ts
	return AttendanceResult{Record: copyRecord(rec)}
}

// Seed preloads day records, typically the current day's rows from storage
// after a worker restart, so the one-record-per-day invariant survives
// process boundaries.
func (a *DayAggregator) Seed(records []models.AttendanceDayRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range records {
		rec := records[i]
		key := dayKey{identityID: rec.IdentityID, day: rec.Day}
		a.records[key] = &rec
		if last, ok := a.lastRecorded[rec.IdentityID]; !ok || rec.LastSeenAt.After(last) {
			a.lastRecorded[rec.IdentityID] = rec.LastSeenAt
		}
	}
}

// EvictBefore drops in-memory records for days before the given site-local
// day and returns how many were removed. Persisted rows are untouched; this
// only bounds the working set.
func (a *DayAggregator) EvictBefore(day string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	removed := 0
	for key := range a.records {
		if key.day < day {
			delete(a.records, key)
			removed++
		}
	}
	return removed
}

// DayOf returns the site-local calendar day for a timestamp.
func (a *DayAggregator) DayOf(ts time.Time) string {
	return ts.In(a.loc).Format(dayFormat)
}

// Len returns the number of day records currently held.
func (a *DayAggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

func copyRecord(rec *models.AttendanceDayRecord) models.AttendanceDayRecord {
	out := *rec
	out.CamerasSeen = append([]uuid.UUID(nil), rec.CamerasSeen...)
	return out
}

func containsCamera(cameras []uuid.UUID, id uuid.UUID) bool {
	for _, c := range cameras {
		if c == id {
			return true
		}
	}
	return false
}
