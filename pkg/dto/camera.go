package dto

import "github.com/google/uuid"

type CreateCameraRequest struct {
	SiteID     uuid.UUID `json:"site_id" binding:"required"`
	Name       string    `json:"name" binding:"required"`
	Location   string    `json:"location"`
	Restricted bool      `json:"restricted"`
	Recipients []string  `json:"recipients"`
	Enabled    *bool     `json:"enabled"`
}

type UpdateCameraRequest struct {
	Name       *string  `json:"name"`
	Location   *string  `json:"location"`
	Restricted *bool    `json:"restricted"`
	Recipients []string `json:"recipients"`
	Enabled    *bool    `json:"enabled"`
}

type CameraResponse struct {
	ID         uuid.UUID `json:"id"`
	SiteID     uuid.UUID `json:"site_id"`
	Name       string    `json:"name"`
	Location   string    `json:"location"`
	Restricted bool      `json:"restricted"`
	Recipients []string  `json:"recipients"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  string    `json:"created_at"`
}

type CameraListResponse struct {
	Cameras []CameraResponse `json:"cameras"`
	Total   int              `json:"total"`
}
