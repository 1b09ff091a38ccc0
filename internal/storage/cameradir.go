package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/sitewatch/internal/models"
)

type cameraCacheEntry struct {
	camera    *models.Camera
	fetchedAt time.Time
}

// CameraDirectory serves camera lookups for the pipeline with a short
// read-through cache, so detection processing does not hit Postgres per frame.
// Negative lookups are cached too.
type CameraDirectory struct {
	store *PostgresStore
	ttl   time.Duration

	mu    sync.Mutex
	cache map[uuid.UUID]cameraCacheEntry
}

func NewCameraDirectory(store *PostgresStore, ttl time.Duration) *CameraDirectory {
	return &CameraDirectory{
		store: store,
		ttl:   ttl,
		cache: make(map[uuid.UUID]cameraCacheEntry),
	}
}

func (d *CameraDirectory) Camera(ctx context.Context, id uuid.UUID) (*models.Camera, error) {
	d.mu.Lock()
	entry, ok := d.cache[id]
	d.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < d.ttl {
		return entry.camera, nil
	}

	cam, err := d.store.GetCamera(ctx, id)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.cache[id] = cameraCacheEntry{camera: cam, fetchedAt: time.Now()}
	d.mu.Unlock()
	return cam, nil
}

// Invalidate drops one camera from the cache after a registry change.
func (d *CameraDirectory) Invalidate(id uuid.UUID) {
	d.mu.Lock()
	delete(d.cache, id)
	d.mu.Unlock()
}
