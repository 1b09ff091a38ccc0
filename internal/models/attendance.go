package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceDayRecord summarizes one person's presence on one site-local
// calendar day. Exactly one record exists per (identity, day); it is created on
// the first detection of the day and mutated on every later one.
type AttendanceDayRecord struct {
	ID         uuid.UUID `json:"id" db:"id"`
	IdentityID uuid.UUID `json:"identity_id" db:"identity_id"`
	SiteID     uuid.UUID `json:"site_id" db:"site_id"`
	// Day is the site-local calendar date in YYYY-MM-DD form.
	Day            string      `json:"day" db:"day"`
	FirstSeenAt    time.Time   `json:"first_seen_at" db:"first_seen_at"`
	LastSeenAt     time.Time   `json:"last_seen_at" db:"last_seen_at"`
	DetectionCount int         `json:"detection_count" db:"detection_count"`
	CamerasSeen    []uuid.UUID `json:"cameras_seen" db:"cameras_seen"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// AttendanceSummary is the per-person multi-day rollup produced for reports.
type AttendanceSummary struct {
	IdentityID  uuid.UUID `json:"identity_id"`
	Name        string    `json:"name"`
	DaysPresent int       `json:"days_present"`
	TotalCount  int       `json:"total_count"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}
