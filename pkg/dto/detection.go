package dto

import (
	"time"

	"github.com/google/uuid"
)

// PushDetectionRequest is one pre-extracted detection submitted by an edge
// node. The embedding comes from the edge's own extractor; this service only
// resolves and classifies it.
type PushDetectionRequest struct {
	CameraID         uuid.UUID  `json:"camera_id" binding:"required"`
	SiteID           uuid.UUID  `json:"site_id" binding:"required"`
	CapturedAt       *time.Time `json:"captured_at"`
	BBox             [4]float32 `json:"bbox"`
	Embedding        []float32  `json:"embedding" binding:"required"`
	MissingEquipment []string   `json:"missing_equipment"`
	// Snapshot is an optional base64-encoded JPEG stored for later review.
	Snapshot []byte `json:"snapshot"`
}

type PushDetectionResponse struct {
	Status      string `json:"status"`
	SnapshotKey string `json:"snapshot_key,omitempty"`
}
