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

type IdentityHandler struct {
	db *storage.PostgresStore
	// dim is the reference embedding dimension enforced on enrollment.
	dim int
	// threshold is the default max cosine distance for Search.
	threshold float64
}

func NewIdentityHandler(db *storage.PostgresStore, dim int, threshold float64) *IdentityHandler {
	return &IdentityHandler{db: db, dim: dim, threshold: threshold}
}

func (h *IdentityHandler) Create(c *gin.Context) {
	var req dto.CreateIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ident, err := h.db.CreateIdentity(c.Request.Context(), req.SiteID, req.Name, req.Metadata)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, identityResponse(ident, 0))
}

func (h *IdentityHandler) List(c *gin.Context) {
	idents, err := h.db.ListIdentities(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.IdentityResponse, 0, len(idents))
	for _, ident := range idents {
		count, _ := h.db.CountReferenceEmbeddings(c.Request.Context(), ident.ID)
		resp = append(resp, identityResponse(&ident, count))
	}

	c.JSON(http.StatusOK, dto.IdentityListResponse{Identities: resp, Total: len(resp)})
}

func (h *IdentityHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}

	ident, err := h.db.GetIdentity(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ident == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "identity not found"})
		return
	}

	count, _ := h.db.CountReferenceEmbeddings(c.Request.Context(), id)
	c.JSON(http.StatusOK, identityResponse(ident, count))
}

func (h *IdentityHandler) SetEligibility(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}

	var req dto.UpdateEligibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.SetIdentityEligibility(c.Request.Context(), id, *req.Eligible); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *IdentityHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}

	if err := h.db.DeleteIdentity(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// AddEmbedding enrolls one pre-extracted reference vector for an identity.
func (h *IdentityHandler) AddEmbedding(c *gin.Context) {
	identityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}

	var req dto.AddEmbeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Embedding) != h.dim {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "embedding dimension mismatch"})
		return
	}

	ident, err := h.db.GetIdentity(c.Request.Context(), identityID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ident == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "identity not found"})
		return
	}

	ref, err := h.db.AddReferenceEmbedding(c.Request.Context(), identityID, req.Embedding, req.Quality, "")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.ReferenceEmbeddingResponse{
		ID:         ref.ID,
		IdentityID: ref.IdentityID,
		Quality:    ref.Quality,
		SourceKey:  ref.SourceKey,
		CreatedAt:  ref.CreatedAt.Format(time.RFC3339),
	})
}

func (h *IdentityHandler) ListEmbeddings(c *gin.Context) {
	identityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}

	refs, err := h.db.ListReferenceEmbeddings(c.Request.Context(), identityID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.ReferenceEmbeddingResponse, 0, len(refs))
	for _, ref := range refs {
		resp = append(resp, dto.ReferenceEmbeddingResponse{
			ID:         ref.ID,
			IdentityID: ref.IdentityID,
			Quality:    ref.Quality,
			SourceKey:  ref.SourceKey,
			CreatedAt:  ref.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"embeddings": resp, "total": len(resp)})
}

func (h *IdentityHandler) DeleteEmbedding(c *gin.Context) {
	identityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}
	refID, err := uuid.Parse(c.Param("embeddingId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid embedding id"})
		return
	}

	if err := h.db.DeleteReferenceEmbedding(c.Request.Context(), identityID, refID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Search finds enrolled identities near a probe embedding. Useful for checking
// what the matcher would resolve before a camera ever sees the person.
func (h *IdentityHandler) Search(c *gin.Context) {
	var req dto.SearchIdentitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Embedding) != h.dim {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "embedding dimension mismatch"})
		return
	}

	maxDistance := h.threshold
	if req.MaxDistance != nil {
		maxDistance = *req.MaxDistance
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}

	matches, err := h.db.SearchIdentities(c.Request.Context(), req.Embedding, maxDistance, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results := make([]dto.IdentitySearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, dto.IdentitySearchResult{
			IdentityID: m.IdentityID,
			Name:       m.Name,
			Eligible:   m.Eligible,
			Distance:   m.Distance,
		})
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "total": len(results)})
}

func identityResponse(ident *models.Identity, embeddingCount int) dto.IdentityResponse {
	return dto.IdentityResponse{
		ID:             ident.ID,
		SiteID:         ident.SiteID,
		Name:           ident.Name,
		Eligible:       ident.Eligible,
		Metadata:       ident.Metadata,
		EmbeddingCount: embeddingCount,
		CreatedAt:      ident.CreatedAt.Format(time.RFC3339),
	}
}
