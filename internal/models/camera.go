package models

import (
	"time"

	"github.com/google/uuid"
)

// Camera is one registered detection source.
type Camera struct {
	ID       uuid.UUID `json:"id" db:"id"`
	SiteID   uuid.UUID `json:"site_id" db:"site_id"`
	Name     string    `json:"name" db:"name"`
	Location string    `json:"location" db:"location"`
	// Restricted marks the camera's zone as off-limits for unresolved or
	// ineligible identities.
	Restricted bool `json:"restricted" db:"restricted"`
	// Recipients receive notifications for events raised from this camera.
	Recipients []string  `json:"recipients" db:"recipients"`
	Enabled    bool      `json:"enabled" db:"enabled"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
