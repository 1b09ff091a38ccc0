package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Identity is one person known to the directory. Detections matching an
// identity with Eligible=false are treated as unauthorized.
type Identity struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	SiteID    uuid.UUID       `json:"site_id" db:"site_id"`
	Name      string          `json:"name" db:"name"`
	Eligible  bool            `json:"eligible" db:"eligible"`
	Metadata  json.RawMessage `json:"metadata" db:"metadata"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// ReferenceEmbedding is one enrolled face vector for an identity.
// An identity may carry up to MaxReferenceEmbeddings of them.
type ReferenceEmbedding struct {
	ID         uuid.UUID `json:"id" db:"id"`
	IdentityID uuid.UUID `json:"identity_id" db:"identity_id"`
	Embedding  []float32 `json:"embedding" db:"embedding"`
	Quality    float32   `json:"quality" db:"quality"`
	SourceKey  string    `json:"source_key" db:"source_key"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// MaxReferenceEmbeddings caps how many reference photos one identity may have.
const MaxReferenceEmbeddings = 5
