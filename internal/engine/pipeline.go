package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/sitewatch/internal/models"
	"github.com/your-org/sitewatch/internal/observability"
)

// UnknownSubject is the subject key used for detections that resolve to no
// eligible identity.
const UnknownSubject = "unknown"

// EventSink is the external persistence collaborator. The core does not know
// the storage schema.
type EventSink interface {
	SaveEvent(ctx context.Context, event *models.Event) error
	UpsertAttendance(ctx context.Context, rec *models.AttendanceDayRecord) error
}

// NotificationSink is the external dispatch collaborator (bot, SMS, email).
type NotificationSink interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// CameraDirectory resolves camera metadata (restricted flag, recipients).
// A nil camera with nil error means the camera is not registered.
type CameraDirectory interface {
	Camera(ctx context.Context, id uuid.UUID) (*models.Camera, error)
}

// WindowFn returns the event-level dedup window for an event type.
type WindowFn func(eventType string) time.Duration

// Pipeline orchestrates the full decision path for one detection:
// match → classify → dedup/aggregate → gate → sinks.
type Pipeline struct {
	matcher    *Matcher
	classifier *Classifier
	dedup      *Deduper
	attendance *DayAggregator
	gate       *Gate
	cameras    CameraDirectory
	events     EventSink
	notifier   NotificationSink
	window     WindowFn
	clock      Clock
}

type PipelineOptions struct {
	Matcher    *Matcher
	Classifier *Classifier
	Dedup      *Deduper
	Attendance *DayAggregator
	Gate       *Gate
	Cameras    CameraDirectory
	Events     EventSink
	Notifier   NotificationSink
	Window     WindowFn
	Clock      Clock
}

func NewPipeline(opts PipelineOptions) *Pipeline {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock()
	}
	return &Pipeline{
		matcher:    opts.Matcher,
		classifier: opts.Classifier,
		dedup:      opts.Dedup,
		attendance: opts.Attendance,
		gate:       opts.Gate,
		cameras:    opts.Cameras,
		events:     opts.Events,
		notifier:   opts.Notifier,
		window:     opts.Window,
		clock:      clock,
	}
}

// Process runs one detection end to end and returns the events that survived
// the event-level dedup gate. ErrInvalidEmbedding means the detection must be
// dropped by the host; any other error is an I/O failure worth retrying.
func (p *Pipeline) Process(ctx context.Context, det models.Detection) ([]models.Event, error) {
	match, err := p.matcher.Match(det.Embedding)
	if err != nil {
		return nil, err
	}
	observability.DetectionsProcessed.WithLabelValues(det.CameraID.String()).Inc()

	cam, err := p.cameras.Camera(ctx, det.CameraID)
	if err != nil {
		return nil, fmt.Errorf("resolve camera %s: %w", det.CameraID, err)
	}
	if cam == nil {
		// Unregistered source: process with no zone policy and no recipients.
		slog.Warn("detection from unregistered camera", "camera_id", det.CameraID)
		cam = &models.Camera{ID: det.CameraID, SiteID: det.SiteID}
	}

	ts := p.effectiveTime(det.CapturedAt)

	if match.IdentityID != nil {
		observability.IdentitiesMatched.WithLabelValues(det.CameraID.String()).Inc()
	}

	var emitted []models.Event

	// Attendance: matched, eligible identities only.
	if match.IdentityID != nil {
		res := p.attendance.Record(*match.IdentityID, det.SiteID, det.CameraID, ts)
		if !res.Merged {
			if err := p.events.UpsertAttendance(ctx, &res.Record); err != nil {
				return emitted, fmt.Errorf("upsert attendance: %w", err)
			}
		}
		if res.NewDay {
			ev := p.buildEvent(models.EventTypeAttendance, det, &match, models.SeverityLow, ts)
			if err := p.emit(ctx, ev, cam, &emitted); err != nil {
				return emitted, err
			}
		}
	}

	// PPE violation.
	if len(det.MissingEquipment) > 0 {
		severity := p.classifier.Classify(ObservedState{
			MissingEquipment: det.MissingEquipment,
			UnknownIdentity:  match.IdentityID == nil,
			RestrictedArea:   cam.Restricted,
		})
		ev := p.buildEvent(models.EventTypePPE, det, &match, severity, ts)
		if err := p.emit(ctx, ev, cam, &emitted); err != nil {
			return emitted, err
		}
	}

	// Unauthorized access: unresolved (or ineligible, which resolves the
	// same way) identities inside restricted zones.
	if match.IdentityID == nil && cam.Restricted {
		severity := p.classifier.Classify(ObservedState{
			UnknownIdentity: true,
			RestrictedArea:  true,
		})
		ev := p.buildEvent(models.EventTypeAccess, det, &match, severity, ts)
		if err := p.emit(ctx, ev, cam, &emitted); err != nil {
			return emitted, err
		}
	}

	return emitted, nil
}

// emit passes one classified event through the event-level dedup window,
// persists survivors, and fans out through the notification gate.
func (p *Pipeline) emit(ctx context.Context, ev *models.Event, cam *models.Camera, out *[]models.Event) error {
	if !p.dedup.ShouldEmit(ev.Type, ev.SubjectName, ev.CameraID.String(), p.window(ev.Type)) {
		observability.EventsSuppressed.WithLabelValues(ev.Type).Inc()
		return nil
	}

	if err := p.events.SaveEvent(ctx, ev); err != nil {
		return fmt.Errorf("save %s event: %w", ev.Type, err)
	}
	observability.EventsEmitted.WithLabelValues(ev.Type, string(ev.Severity)).Inc()
	*out = append(*out, *ev)

	if !p.gate.ShouldNotify(ev) {
		observability.NotificationsSuppressed.WithLabelValues(ev.Type).Inc()
		return nil
	}

	n := renderNotification(ev, cam)
	if err := p.notifier.Notify(ctx, n); err != nil {
		// A dead transport must not fail the detection; the event record
		// is already durable.
		slog.Error("dispatch notification", "error", err, "type", ev.Type, "camera_id", ev.CameraID)
		return nil
	}
	observability.NotificationsSent.WithLabelValues(ev.Type).Inc()
	return nil
}

func (p *Pipeline) buildEvent(eventType string, det models.Detection, match *MatchResult, severity models.Severity, ts time.Time) *models.Event {
	subject := UnknownSubject
	if match.IdentityID != nil {
		subject = match.Name
	}
	distance := match.Distance
	if math.IsInf(distance, 1) {
		distance = 2 // maximum cosine distance; empty registry case
	}
	return &models.Event{
		ID:               uuid.New(),
		Type:             eventType,
		CameraID:         det.CameraID,
		SiteID:           det.SiteID,
		IdentityID:       match.IdentityID,
		SubjectName:      subject,
		Severity:         severity,
		Distance:         float32(distance),
		Confidence:       float32(match.Confidence),
		MissingEquipment: det.MissingEquipment,
		DetectedAt:       ts,
		SnapshotKey:      det.SnapshotKey,
	}
}

// effectiveTime applies the clock-skew rule: timestamps beyond a small future
// tolerance, and zero timestamps, are treated as now.
func (p *Pipeline) effectiveTime(ts time.Time) time.Time {
	now := p.clock.Now()
	if ts.IsZero() || ts.After(now.Add(clockSkewTolerance)) {
		return now
	}
	return ts
}

func renderNotification(ev *models.Event, cam *models.Camera) *models.Notification {
	location := cam.Name
	if location == "" {
		location = ev.CameraID.String()
	}

	var msg string
	switch ev.Type {
	case models.EventTypeAttendance:
		msg = fmt.Sprintf("%s arrived at %s", ev.SubjectName, location)
	case models.EventTypePPE:
		msg = fmt.Sprintf("[%s] %s missing %s at %s",
			strings.ToUpper(string(ev.Severity)), ev.SubjectName,
			strings.Join(ev.MissingEquipment, ", "), location)
	case models.EventTypeAccess:
		msg = fmt.Sprintf("[%s] unauthorized person detected at %s",
			strings.ToUpper(string(ev.Severity)), location)
	default:
		msg = fmt.Sprintf("[%s] %s event for %s at %s",
			strings.ToUpper(string(ev.Severity)), ev.Type, ev.SubjectName, location)
	}

	return &models.Notification{
		EventType:   ev.Type,
		CameraID:    ev.CameraID,
		SiteID:      ev.SiteID,
		SubjectName: ev.SubjectName,
		Severity:    ev.Severity,
		Message:     msg,
		Recipients:  cam.Recipients,
		DetectedAt:  ev.DetectedAt,
	}
}
