package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/sitewatch/internal/models"
	"github.com/your-org/sitewatch/internal/storage"
	"github.com/your-org/sitewatch/pkg/dto"
)

type CameraHandler struct {
	db  *storage.PostgresStore
	dir *storage.CameraDirectory
}

func NewCameraHandler(db *storage.PostgresStore, dir *storage.CameraDirectory) *CameraHandler {
	return &CameraHandler{db: db, dir: dir}
}

func (h *CameraHandler) Create(c *gin.Context) {
	var req dto.CreateCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cam := &models.Camera{
		SiteID:     req.SiteID,
		Name:       req.Name,
		Location:   req.Location,
		Restricted: req.Restricted,
		Recipients: req.Recipients,
		Enabled:    true,
	}
	if req.Enabled != nil {
		cam.Enabled = *req.Enabled
	}

	if err := h.db.CreateCamera(c.Request.Context(), cam); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, cameraResponse(cam))
}

func (h *CameraHandler) List(c *gin.Context) {
	cams, err := h.db.ListCameras(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.CameraResponse, 0, len(cams))
	for i := range cams {
		resp = append(resp, cameraResponse(&cams[i]))
	}

	c.JSON(http.StatusOK, dto.CameraListResponse{Cameras: resp, Total: len(resp)})
}

func (h *CameraHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera id"})
		return
	}

	cam, err := h.db.GetCamera(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if cam == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera not found"})
		return
	}

	c.JSON(http.StatusOK, cameraResponse(cam))
}

func (h *CameraHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera id"})
		return
	}

	cam, err := h.db.GetCamera(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if cam == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera not found"})
		return
	}

	var req dto.UpdateCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		cam.Name = *req.Name
	}
	if req.Location != nil {
		cam.Location = *req.Location
	}
	if req.Restricted != nil {
		cam.Restricted = *req.Restricted
	}
	if req.Recipients != nil {
		cam.Recipients = req.Recipients
	}
	if req.Enabled != nil {
		cam.Enabled = *req.Enabled
	}

	if err := h.db.UpdateCamera(c.Request.Context(), cam); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.dir.Invalidate(cam.ID)

	c.JSON(http.StatusOK, cameraResponse(cam))
}

func (h *CameraHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera id"})
		return
	}

	if err := h.db.DeleteCamera(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.dir.Invalidate(id)

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func cameraResponse(cam *models.Camera) dto.CameraResponse {
	return dto.CameraResponse{
		ID:         cam.ID,
		SiteID:     cam.SiteID,
		Name:       cam.Name,
		Location:   cam.Location,
		Restricted: cam.Restricted,
		Recipients: cam.Recipients,
		Enabled:    cam.Enabled,
		CreatedAt:  cam.CreatedAt.Format(time.RFC3339),
	}
}
