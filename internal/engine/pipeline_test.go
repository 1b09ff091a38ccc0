package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/sitewatch/internal/models"
)

type fakeSink struct {
	mu         sync.Mutex
	events     []models.Event
	attendance []models.AttendanceDayRecord
}

func (s *fakeSink) SaveEvent(_ context.Context, ev *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *ev)
	return nil
}

func (s *fakeSink) UpsertAttendance(_ context.Context, rec *models.AttendanceDayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendance = append(s.attendance, *rec)
	return nil
}

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []models.Notification
}

func (n *fakeNotifier) Notify(_ context.Context, notif *models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, *notif)
	return nil
}

type fakeCameras struct {
	cams map[uuid.UUID]*models.Camera
}

func (f *fakeCameras) Camera(_ context.Context, id uuid.UUID) (*models.Camera, error) {
	return f.cams[id], nil
}

type pipelineFixture struct {
	pipeline *Pipeline
	registry *Registry
	sink     *fakeSink
	notifier *fakeNotifier
	clock    *fakeClock
	alice    uuid.UUID
	floorCam *models.Camera
	gateCam  *models.Camera
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	clock := newFakeClock(testStart())
	registry := NewRegistry()
	alice := uuid.New()
	registry.Replace([]IdentityReference{
		{ID: alice, Name: "Alice", Eligible: true, Embeddings: [][]float32{vecAtDistance(0.2)}},
	})

	site := uuid.New()
	floorCam := &models.Camera{
		ID: uuid.New(), SiteID: site, Name: "Floor-1",
		Recipients: []string{"safety-channel"}, Enabled: true,
	}
	gateCam := &models.Camera{
		ID: uuid.New(), SiteID: site, Name: "ServerRoom",
		Restricted: true, Recipients: []string{"security-channel"}, Enabled: true,
	}

	dedup := NewDeduper(time.Hour, clock)
	sink := &fakeSink{}
	notifier := &fakeNotifier{}

	windows := map[string]time.Duration{
		models.EventTypeAttendance: 60 * time.Second,
		models.EventTypePPE:        10 * time.Second,
		models.EventTypeAccess:     10 * time.Second,
	}

	pipeline := NewPipeline(PipelineOptions{
		Matcher:    NewMatcher(registry, testDim, 0.6),
		Classifier: NewClassifier(),
		Dedup:      dedup,
		Attendance: NewDayAggregator(30*time.Second, time.UTC),
		Gate:       NewGate(dedup, clock, 60*time.Second, 10*time.Second),
		Cameras:    &fakeCameras{cams: map[uuid.UUID]*models.Camera{floorCam.ID: floorCam, gateCam.ID: gateCam}},
		Events:     sink,
		Notifier:   notifier,
		Window:     func(eventType string) time.Duration { return windows[eventType] },
		Clock:      clock,
	})

	return &pipelineFixture{
		pipeline: pipeline,
		registry: registry,
		sink:     sink,
		notifier: notifier,
		clock:    clock,
		alice:    alice,
		floorCam: floorCam,
		gateCam:  gateCam,
	}
}

func (f *pipelineFixture) detection(cam *models.Camera, missing ...string) models.Detection {
	return models.Detection{
		CameraID:         cam.ID,
		SiteID:           cam.SiteID,
		CapturedAt:       f.clock.Now(),
		Embedding:        probeVec(),
		MissingEquipment: missing,
	}
}

func TestPipelineMatchedCompliantDetectionMarksAttendance(t *testing.T) {
	f := newPipelineFixture(t)

	events, err := f.pipeline.Process(context.Background(), f.detection(f.floorCam))
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, models.EventTypeAttendance, ev.Type)
	assert.Equal(t, "Alice", ev.SubjectName)
	assert.Equal(t, models.SeverityLow, ev.Severity)
	require.NotNil(t, ev.IdentityID)
	assert.Equal(t, f.alice, *ev.IdentityID)

	require.Len(t, f.sink.attendance, 1)
	assert.Equal(t, 1, f.sink.attendance[0].DetectionCount)

	require.Len(t, f.notifier.notifications, 1)
	assert.Equal(t, []string{"safety-channel"}, f.notifier.notifications[0].Recipients)
}

func TestPipelineRepeatFramesAreAbsorbed(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.pipeline.Process(context.Background(), f.detection(f.floorCam))
	require.NoError(t, err)

	// Same person one second later: attendance micro-merge, no day event,
	// no second upsert.
	f.clock.Advance(time.Second)
	events, err := f.pipeline.Process(context.Background(), f.detection(f.floorCam))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Len(t, f.sink.attendance, 1)
	assert.Len(t, f.sink.events, 1)
	assert.Len(t, f.notifier.notifications, 1)
}

func TestPipelinePPEViolation(t *testing.T) {
	f := newPipelineFixture(t)

	events, err := f.pipeline.Process(context.Background(), f.detection(f.floorCam, "Gloves"))
	require.NoError(t, err)
	require.Len(t, events, 2) // attendance + ppe

	var ppe *models.Event
	for i := range events {
		if events[i].Type == models.EventTypePPE {
			ppe = &events[i]
		}
	}
	require.NotNil(t, ppe)
	assert.Equal(t, models.SeverityMedium, ppe.Severity)
	assert.Equal(t, []string{"Gloves"}, ppe.MissingEquipment)

	// Same violation re-detected five seconds later: inside the ppe window.
	f.clock.Advance(5 * time.Second)
	events, err = f.pipeline.Process(context.Background(), f.detection(f.floorCam, "Gloves"))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPipelinePersistenceAndNotificationAreDecoupled(t *testing.T) {
	f := newPipelineFixture(t)

	// A backfilled detection two minutes old: the events are still
	// persisted, but the recency guard blocks every notification.
	det := f.detection(f.floorCam, "Gloves", "Vest")
	det.CapturedAt = f.clock.Now().Add(-2 * time.Minute)

	events, err := f.pipeline.Process(context.Background(), det)
	require.NoError(t, err)
	require.Len(t, events, 2) // attendance + ppe
	assert.Len(t, f.sink.events, 2)
	assert.Empty(t, f.notifier.notifications)
}

func TestPipelineUnknownInRestrictedZoneRaisesAccessEvent(t *testing.T) {
	f := newPipelineFixture(t)

	det := f.detection(f.gateCam)
	det.Embedding = vecAtDistance(0.9) // far from every enrolled identity

	events, err := f.pipeline.Process(context.Background(), det)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, models.EventTypeAccess, ev.Type)
	assert.Equal(t, UnknownSubject, ev.SubjectName)
	assert.Equal(t, models.SeverityHigh, ev.Severity)
	assert.Nil(t, ev.IdentityID)

	require.Len(t, f.notifier.notifications, 1)
	assert.Equal(t, []string{"security-channel"}, f.notifier.notifications[0].Recipients)

	// No attendance for unknowns.
	assert.Empty(t, f.sink.attendance)
}

func TestPipelineUnknownInOpenZoneIsSilent(t *testing.T) {
	f := newPipelineFixture(t)

	det := f.detection(f.floorCam)
	det.Embedding = vecAtDistance(0.9)

	events, err := f.pipeline.Process(context.Background(), det)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Empty(t, f.sink.events)
}

func TestPipelineIneligibleIdentityIsUnauthorized(t *testing.T) {
	f := newPipelineFixture(t)
	f.registry.Replace([]IdentityReference{
		{ID: f.alice, Name: "Alice", Eligible: false, Embeddings: [][]float32{vecAtDistance(0.2)}},
	})

	events, err := f.pipeline.Process(context.Background(), f.detection(f.gateCam))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventTypeAccess, events[0].Type)
	assert.Empty(t, f.sink.attendance)
}

func TestPipelineInvalidEmbeddingIsRejected(t *testing.T) {
	f := newPipelineFixture(t)

	det := f.detection(f.floorCam)
	det.Embedding = []float32{1, 2}

	_, err := f.pipeline.Process(context.Background(), det)
	require.ErrorIs(t, err, ErrInvalidEmbedding)
	assert.Empty(t, f.sink.events)
	assert.Empty(t, f.sink.attendance)
}

func TestPipelineUnregisteredCameraStillProcesses(t *testing.T) {
	f := newPipelineFixture(t)

	det := models.Detection{
		CameraID:   uuid.New(), // not in the directory
		SiteID:     uuid.New(),
		CapturedAt: f.clock.Now(),
		Embedding:  probeVec(),
	}

	events, err := f.pipeline.Process(context.Background(), det)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventTypeAttendance, events[0].Type)
	// Unknown camera carries no recipient list.
	require.Len(t, f.notifier.notifications, 1)
	assert.Empty(t, f.notifier.notifications[0].Recipients)
}

func TestPipelineZeroTimestampUsesClock(t *testing.T) {
	f := newPipelineFixture(t)

	det := f.detection(f.floorCam)
	det.CapturedAt = time.Time{}

	events, err := f.pipeline.Process(context.Background(), det)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, f.clock.Now(), events[0].DetectedAt)
}
