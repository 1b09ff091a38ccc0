package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/sitewatch/internal/storage"
	"github.com/your-org/sitewatch/pkg/dto"
)

const dayLayout = "2006-01-02"

type AttendanceHandler struct {
	db *storage.PostgresStore
}

func NewAttendanceHandler(db *storage.PostgresStore) *AttendanceHandler {
	return &AttendanceHandler{db: db}
}

// List returns per-day attendance records, newest day first.
func (h *AttendanceHandler) List(c *gin.Context) {
	var identityID *uuid.UUID
	if identStr := c.Query("identity_id"); identStr != "" {
		id, err := uuid.Parse(identStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity_id"})
			return
		}
		identityID = &id
	}

	from := c.Query("from")
	to := c.Query("to")
	for _, day := range []string{from, to} {
		if day == "" {
			continue
		}
		if _, err := time.Parse(dayLayout, day); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be YYYY-MM-DD"})
			return
		}
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	recs, err := h.db.QueryAttendanceDays(c.Request.Context(), identityID, from, to, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.AttendanceDayResponse, 0, len(recs))
	for _, rec := range recs {
		cameras := make([]string, 0, len(rec.CamerasSeen))
		for _, cam := range rec.CamerasSeen {
			cameras = append(cameras, cam.String())
		}
		resp = append(resp, dto.AttendanceDayResponse{
			ID:             rec.ID,
			IdentityID:     rec.IdentityID,
			SiteID:         rec.SiteID,
			Day:            rec.Day,
			FirstSeenAt:    rec.FirstSeenAt.Format(time.RFC3339),
			LastSeenAt:     rec.LastSeenAt.Format(time.RFC3339),
			DetectionCount: rec.DetectionCount,
			CamerasSeen:    cameras,
		})
	}

	c.JSON(http.StatusOK, dto.AttendanceListResponse{Records: resp, Total: len(resp)})
}

// Summary rolls attendance up per person over a date range. Defaults to the
// last 30 days.
func (h *AttendanceHandler) Summary(c *gin.Context) {
	to := c.DefaultQuery("to", time.Now().UTC().Format(dayLayout))
	from := c.DefaultQuery("from", time.Now().UTC().AddDate(0, 0, -30).Format(dayLayout))
	for _, day := range []string{from, to} {
		if _, err := time.Parse(dayLayout, day); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be YYYY-MM-DD"})
			return
		}
	}

	summaries, err := h.db.AttendanceSummary(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.AttendanceSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, dto.AttendanceSummaryResponse{
			IdentityID:  s.IdentityID,
			Name:        s.Name,
			DaysPresent: s.DaysPresent,
			TotalCount:  s.TotalCount,
			FirstSeenAt: s.FirstSeenAt.Format(time.RFC3339),
			LastSeenAt:  s.LastSeenAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, dto.AttendanceSummaryListResponse{From: from, To: to, Summaries: resp})
}
