package dto

import (
	"encoding/json"

	"github.com/google/uuid"
)

type CreateIdentityRequest struct {
	SiteID   uuid.UUID       `json:"site_id" binding:"required"`
	Name     string          `json:"name" binding:"required"`
	Metadata json.RawMessage `json:"metadata"`
}

type UpdateEligibilityRequest struct {
	Eligible *bool `json:"eligible" binding:"required"`
}

type IdentityResponse struct {
	ID             uuid.UUID       `json:"id"`
	SiteID         uuid.UUID       `json:"site_id"`
	Name           string          `json:"name"`
	Eligible       bool            `json:"eligible"`
	Metadata       json.RawMessage `json:"metadata"`
	EmbeddingCount int             `json:"embedding_count"`
	CreatedAt      string          `json:"created_at"`
}

type IdentityListResponse struct {
	Identities []IdentityResponse `json:"identities"`
	Total      int                `json:"total"`
}

type AddEmbeddingRequest struct {
	Embedding []float32 `json:"embedding" binding:"required"`
	Quality   float32   `json:"quality"`
}

type SearchIdentitiesRequest struct {
	Embedding   []float32 `json:"embedding" binding:"required"`
	MaxDistance *float64  `json:"max_distance"`
	Limit       int       `json:"limit"`
}

type IdentitySearchResult struct {
	IdentityID uuid.UUID `json:"identity_id"`
	Name       string    `json:"name"`
	Eligible   bool      `json:"eligible"`
	Distance   float64   `json:"distance"`
}

type ReferenceEmbeddingResponse struct {
	ID         uuid.UUID `json:"id"`
	IdentityID uuid.UUID `json:"identity_id"`
	Quality    float32   `json:"quality"`
	SourceKey  string    `json:"source_key,omitempty"`
	CreatedAt  string    `json:"created_at"`
}
