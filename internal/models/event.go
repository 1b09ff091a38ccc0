package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the decision pipeline.
const (
	EventTypeAttendance = "attendance"
	EventTypePPE        = "ppe"
	EventTypeAccess     = "access"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Event is a ClassifiedEvent that survived the per-type dedup window and was
// handed to the persistence sink.
type Event struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Type       string     `json:"type" db:"type"`
	CameraID   uuid.UUID  `json:"camera_id" db:"camera_id"`
	SiteID     uuid.UUID  `json:"site_id" db:"site_id"`
	IdentityID *uuid.UUID `json:"identity_id,omitempty" db:"identity_id"`
	// SubjectName is the matched display name, or "unknown".
	SubjectName      string    `json:"subject_name" db:"subject_name"`
	Severity         Severity  `json:"severity" db:"severity"`
	Distance         float32   `json:"distance" db:"distance"`
	Confidence       float32   `json:"confidence" db:"confidence"`
	MissingEquipment []string  `json:"missing_equipment,omitempty" db:"missing_equipment"`
	DetectedAt       time.Time `json:"detected_at" db:"detected_at"`
	SnapshotKey      string    `json:"snapshot_key,omitempty" db:"snapshot_key"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// Notification is the rendered fan-out request for an event that passed the
// notification gate. Transport (bot, SMS, email) is an external dispatcher
// consuming the NOTIFICATIONS stream.
type Notification struct {
	EventType   string    `json:"event_type"`
	CameraID    uuid.UUID `json:"camera_id"`
	SiteID      uuid.UUID `json:"site_id"`
	SubjectName string    `json:"subject_name"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	Recipients  []string  `json:"recipients"`
	DetectedAt  time.Time `json:"detected_at"`
}
