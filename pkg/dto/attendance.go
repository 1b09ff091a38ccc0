package dto

import "github.com/google/uuid"

type AttendanceDayResponse struct {
	ID             uuid.UUID `json:"id"`
	IdentityID     uuid.UUID `json:"identity_id"`
	SiteID         uuid.UUID `json:"site_id"`
	Day            string    `json:"day"`
	FirstSeenAt    string    `json:"first_seen_at"`
	LastSeenAt     string    `json:"last_seen_at"`
	DetectionCount int       `json:"detection_count"`
	CamerasSeen    []string  `json:"cameras_seen"`
}

type AttendanceListResponse struct {
	Records []AttendanceDayResponse `json:"records"`
	Total   int                     `json:"total"`
}

type AttendanceSummaryResponse struct {
	IdentityID  uuid.UUID `json:"identity_id"`
	Name        string    `json:"name"`
	DaysPresent int       `json:"days_present"`
	TotalCount  int       `json:"total_count"`
	FirstSeenAt string    `json:"first_seen_at"`
	LastSeenAt  string    `json:"last_seen_at"`
}

type AttendanceSummaryListResponse struct {
	From      string                      `json:"from"`
	To        string                      `json:"to"`
	Summaries []AttendanceSummaryResponse `json:"summaries"`
}
