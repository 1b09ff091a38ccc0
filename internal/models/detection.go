package models

import (
	"time"

	"github.com/google/uuid"
)

// Detection is the message published to NATS by a detection source for one
// observed face in one frame. Ephemeral: consumed once, never persisted.
type Detection struct {
	CameraID   uuid.UUID  `json:"camera_id"`
	SiteID     uuid.UUID  `json:"site_id"`
	CapturedAt time.Time  `json:"captured_at"`
	BBox       [4]float32 `json:"bbox"` // x1, y1, x2, y2
	Embedding  []float32  `json:"embedding"`
	// MissingEquipment lists protective items the source's PPE model judged
	// absent for this person (e.g. HeadProtection, Gloves, Vest).
	MissingEquipment []string `json:"missing_equipment,omitempty"`
	// SnapshotKey is the MinIO object key of the face crop, if the source
	// uploaded one.
	SnapshotKey string `json:"snapshot_key,omitempty"`
}
