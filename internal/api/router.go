package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/sitewatch/internal/api/handlers"
	"github.com/your-org/sitewatch/internal/api/ws"
	"github.com/your-org/sitewatch/internal/auth"
	"github.com/your-org/sitewatch/internal/queue"
	"github.com/your-org/sitewatch/internal/storage"
)

type RouterConfig struct {
	APIKey    string
	DB        *storage.PostgresStore
	MinIO     *storage.MinIOStore
	Producer  *queue.Producer
	CameraDir *storage.CameraDirectory
	Hub       *ws.Hub
	// EmbeddingDim is the reference vector dimension enforced on enrollment.
	EmbeddingDim int
	// MatchThreshold is the default max cosine distance for identity search.
	MatchThreshold float64
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Identities & reference embeddings
	identityH := handlers.NewIdentityHandler(cfg.DB, cfg.EmbeddingDim, cfg.MatchThreshold)
	v1.POST("/identities", identityH.Create)
	v1.POST("/identities/search", identityH.Search)
	v1.GET("/identities", identityH.List)
	v1.GET("/identities/:id", identityH.Get)
	v1.PATCH("/identities/:id/eligibility", identityH.SetEligibility)
	v1.DELETE("/identities/:id", identityH.Delete)
	v1.POST("/identities/:id/embeddings", identityH.AddEmbedding)
	v1.GET("/identities/:id/embeddings", identityH.ListEmbeddings)
	v1.DELETE("/identities/:id/embeddings/:embeddingId", identityH.DeleteEmbedding)

	// Cameras
	cameraH := handlers.NewCameraHandler(cfg.DB, cfg.CameraDir)
	v1.POST("/cameras", cameraH.Create)
	v1.GET("/cameras", cameraH.List)
	v1.GET("/cameras/:id", cameraH.Get)
	v1.PATCH("/cameras/:id", cameraH.Update)
	v1.DELETE("/cameras/:id", cameraH.Delete)

	// Detections (edge push)
	detectionH := handlers.NewDetectionHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	v1.POST("/detections", detectionH.Push)

	// Events
	eventH := handlers.NewEventHandler(cfg.DB, cfg.MinIO)
	v1.GET("/events", eventH.List)
	v1.GET("/events/:id", eventH.Get)
	v1.GET("/events/:id/snapshot", eventH.Snapshot)

	// Attendance
	attendanceH := handlers.NewAttendanceHandler(cfg.DB)
	v1.GET("/attendance/days", attendanceH.List)
	v1.GET("/attendance/summary", attendanceH.Summary)

	return r
}
