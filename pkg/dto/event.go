package dto

import "github.com/google/uuid"

type EventResponse struct {
	ID               uuid.UUID  `json:"id"`
	Type             string     `json:"type"`
	CameraID         uuid.UUID  `json:"camera_id"`
	SiteID           uuid.UUID  `json:"site_id"`
	IdentityID       *uuid.UUID `json:"identity_id,omitempty"`
	SubjectName      string     `json:"subject_name"`
	Severity         string     `json:"severity"`
	Distance         float32    `json:"distance"`
	Confidence       float32    `json:"confidence"`
	MissingEquipment []string   `json:"missing_equipment,omitempty"`
	DetectedAt       string     `json:"detected_at"`
	SnapshotURL      string     `json:"snapshot_url,omitempty"`
	CreatedAt        string     `json:"created_at"`
}

type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Total  int             `json:"total"`
}

// WSEvent is a WebSocket message for real-time event delivery.
type WSEvent struct {
	Type     string        `json:"type"` // event, status
	CameraID uuid.UUID     `json:"camera_id"`
	Data     EventResponse `json:"data,omitempty"`
	Status   string        `json:"status,omitempty"`
}
