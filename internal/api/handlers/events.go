package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/sitewatch/internal/models"
	"github.com/your-org/sitewatch/internal/storage"
	"github.com/your-org/sitewatch/pkg/dto"
)

type EventHandler struct {
	db    *storage.PostgresStore
	minio *storage.MinIOStore
}

func NewEventHandler(db *storage.PostgresStore, minio *storage.MinIOStore) *EventHandler {
	return &EventHandler{db: db, minio: minio}
}

func (h *EventHandler) List(c *gin.Context) {
	var filter storage.EventFilter

	if camStr := c.Query("camera_id"); camStr != "" {
		id, err := uuid.Parse(camStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera_id"})
			return
		}
		filter.CameraID = &id
	}
	if identStr := c.Query("identity_id"); identStr != "" {
		id, err := uuid.Parse(identStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity_id"})
			return
		}
		filter.IdentityID = &id
	}
	filter.Type = c.Query("type")
	filter.Severity = c.Query("severity")
	filter.UnknownOnly = c.Query("unknown") == "true" || c.Query("unknown") == "1"

	if fromStr := c.Query("from"); fromStr != "" {
		if t, err := time.Parse(time.RFC3339, fromStr); err == nil {
			filter.From = &t
		}
	}
	if toStr := c.Query("to"); toStr != "" {
		if t, err := time.Parse(time.RFC3339, toStr); err == nil {
			filter.To = &t
		}
	}

	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	events, total, err := h.db.QueryEvents(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		resp = append(resp, EventResponse(&events[i]))
	}

	c.JSON(http.StatusOK, dto.EventListResponse{Events: resp, Total: total})
}

func (h *EventHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	ev, err := h.db.GetEvent(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ev == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	c.JSON(http.StatusOK, EventResponse(ev))
}

// Snapshot proxies the detection snapshot image from MinIO.
func (h *EventHandler) Snapshot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	ev, err := h.db.GetEvent(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ev == nil || ev.SnapshotKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}

	data, err := h.minio.GetObject(c.Request.Context(), ev.SnapshotKey)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

// EventResponse maps a stored event to its API shape. Exported because the
// API main reuses it for WebSocket broadcast payloads.
func EventResponse(ev *models.Event) dto.EventResponse {
	r := dto.EventResponse{
		ID:               ev.ID,
		Type:             ev.Type,
		CameraID:         ev.CameraID,
		SiteID:           ev.SiteID,
		IdentityID:       ev.IdentityID,
		SubjectName:      ev.SubjectName,
		Severity:         string(ev.Severity),
		Distance:         ev.Distance,
		Confidence:       ev.Confidence,
		MissingEquipment: ev.MissingEquipment,
		DetectedAt:       ev.DetectedAt.Format(time.RFC3339),
		CreatedAt:        ev.CreatedAt.Format(time.RFC3339),
	}
	if ev.SnapshotKey != "" {
		r.SnapshotURL = "/v1/events/" + ev.ID.String() + "/snapshot"
	}
	return r
}
