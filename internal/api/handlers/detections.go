package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/sitewatch/internal/models"
	"github.com/your-org/sitewatch/internal/observability"
	"github.com/your-org/sitewatch/internal/queue"
	"github.com/your-org/sitewatch/internal/storage"
	"github.com/your-org/sitewatch/pkg/dto"
)

// DetectionHandler accepts pre-extracted detections from edge nodes and
// enqueues them for the decision worker.
type DetectionHandler struct {
	db       *storage.PostgresStore
	minio    *storage.MinIOStore
	producer *queue.Producer
}

func NewDetectionHandler(db *storage.PostgresStore, minio *storage.MinIOStore, producer *queue.Producer) *DetectionHandler {
	return &DetectionHandler{db: db, minio: minio, producer: producer}
}

func (h *DetectionHandler) Push(c *gin.Context) {
	var req dto.PushDetectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cam, err := h.db.GetCamera(c.Request.Context(), req.CameraID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if cam == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera not found"})
		return
	}
	if !cam.Enabled {
		observability.DetectionsDropped.WithLabelValues("camera_disabled").Inc()
		c.JSON(http.StatusConflict, gin.H{"error": "camera disabled"})
		return
	}

	capturedAt := time.Now().UTC()
	if req.CapturedAt != nil {
		capturedAt = *req.CapturedAt
	}

	det := models.Detection{
		CameraID:         req.CameraID,
		SiteID:           req.SiteID,
		CapturedAt:       capturedAt,
		BBox:             req.BBox,
		Embedding:        req.Embedding,
		MissingEquipment: req.MissingEquipment,
	}

	if len(req.Snapshot) > 0 {
		key := storage.SnapshotKey(req.CameraID, capturedAt)
		if err := h.minio.PutObject(c.Request.Context(), key, req.Snapshot, "image/jpeg"); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store snapshot failed"})
			return
		}
		det.SnapshotKey = key
	}

	if err := h.producer.PublishDetection(c.Request.Context(), det.CameraID.String(), det); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, dto.PushDetectionResponse{
		Status:      "queued",
		SnapshotKey: det.SnapshotKey,
	})
}
