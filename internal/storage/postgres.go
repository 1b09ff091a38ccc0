package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/sitewatch/internal/config"
	"github.com/your-org/sitewatch/internal/engine"
	"github.com/your-org/sitewatch/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Identities ---

func (s *PostgresStore) CreateIdentity(ctx context.Context, siteID uuid.UUID, name string, metadata json.RawMessage) (*models.Identity, error) {
	if metadata == nil {
		metadata = json.RawMessage("{}")
	}
	ident := &models.Identity{
		ID:       uuid.New(),
		SiteID:   siteID,
		Name:     name,
		Eligible: true,
		Metadata: metadata,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO identities (id, site_id, name, eligible, metadata) VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`,
		ident.ID, ident.SiteID, ident.Name, ident.Eligible, ident.Metadata,
	).Scan(&ident.CreatedAt, &ident.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return ident, nil
}

func (s *PostgresStore) GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	ident := &models.Identity{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, site_id, name, eligible, metadata, created_at, updated_at FROM identities WHERE id = $1`, id,
	).Scan(&ident.ID, &ident.SiteID, &ident.Name, &ident.Eligible, &ident.Metadata, &ident.CreatedAt, &ident.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return ident, nil
}

func (s *PostgresStore) ListIdentities(ctx context.Context) ([]models.Identity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, site_id, name, eligible, metadata, created_at, updated_at FROM identities ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var idents []models.Identity
	for rows.Next() {
		var ident models.Identity
		if err := rows.Scan(&ident.ID, &ident.SiteID, &ident.Name, &ident.Eligible,
			&ident.Metadata, &ident.CreatedAt, &ident.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		idents = append(idents, ident)
	}
	return idents, nil
}

func (s *PostgresStore) SetIdentityEligibility(ctx context.Context, id uuid.UUID, eligible bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE identities SET eligible = $1, updated_at = now() WHERE id = $2`, eligible, id)
	if err != nil {
		return fmt.Errorf("set eligibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("identity not found")
	}
	return nil
}

func (s *PostgresStore) DeleteIdentity(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("identity not found")
	}
	return nil
}

// --- Reference embeddings ---

func (s *PostgresStore) CountReferenceEmbeddings(ctx context.Context, identityID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reference_embeddings WHERE identity_id = $1`, identityID,
	).Scan(&count)
	return count, err
}

func (s *PostgresStore) AddReferenceEmbedding(ctx context.Context, identityID uuid.UUID, embedding []float32, quality float32, sourceKey string) (*models.ReferenceEmbedding, error) {
	count, err := s.CountReferenceEmbeddings(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("count reference embeddings: %w", err)
	}
	if count >= models.MaxReferenceEmbeddings {
		return nil, fmt.Errorf("identity already has %d reference embeddings", models.MaxReferenceEmbeddings)
	}

	ref := &models.ReferenceEmbedding{
		ID:         uuid.New(),
		IdentityID: identityID,
		Embedding:  embedding,
		Quality:    quality,
		SourceKey:  sourceKey,
	}
	vec := pgvector.NewVector(embedding)
	err = s.pool.QueryRow(ctx,
		`INSERT INTO reference_embeddings (id, identity_id, embedding, quality, source_key) VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		ref.ID, ref.IdentityID, vec, ref.Quality, ref.SourceKey,
	).Scan(&ref.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add reference embedding: %w", err)
	}
	return ref, nil
}

func (s *PostgresStore) ListReferenceEmbeddings(ctx context.Context, identityID uuid.UUID) ([]models.ReferenceEmbedding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, identity_id, quality, source_key, created_at FROM reference_embeddings WHERE identity_id = $1 ORDER BY created_at`,
		identityID)
	if err != nil {
		return nil, fmt.Errorf("list reference embeddings: %w", err)
	}
	defer rows.Close()

	var refs []models.ReferenceEmbedding
	for rows.Next() {
		var ref models.ReferenceEmbedding
		if err := rows.Scan(&ref.ID, &ref.IdentityID, &ref.Quality, &ref.SourceKey, &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reference embedding: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (s *PostgresStore) DeleteReferenceEmbedding(ctx context.Context, identityID, refID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM reference_embeddings WHERE id = $1 AND identity_id = $2`, refID, identityID)
	if err != nil {
		return fmt.Errorf("delete reference embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reference embedding not found")
	}
	return nil
}

// IdentityMatch is one row from SearchIdentities, ordered by distance.
type IdentityMatch struct {
	IdentityID uuid.UUID
	Name       string
	Eligible   bool
	Distance   float64
}

// SearchIdentities finds the identities whose reference embeddings sit within
// maxDistance (cosine) of the probe vector, closest first.
func (s *PostgresStore) SearchIdentities(ctx context.Context, embedding []float32, maxDistance float64, limit int) ([]IdentityMatch, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (i.id) i.id, i.name, i.eligible, re.embedding <=> $1 AS distance
		FROM reference_embeddings re
		JOIN identities i ON i.id = re.identity_id
		WHERE re.embedding <=> $1 <= $2
		ORDER BY i.id, distance`,
		vec, maxDistance)
	if err != nil {
		return nil, fmt.Errorf("search identities: %w", err)
	}
	defer rows.Close()

	var matches []IdentityMatch
	for rows.Next() {
		var m IdentityMatch
		if err := rows.Scan(&m.IdentityID, &m.Name, &m.Eligible, &m.Distance); err != nil {
			return nil, fmt.Errorf("scan identity match: %w", err)
		}
		matches = append(matches, m)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// LoadIdentityRefs builds the matcher's registry snapshot: every identity
// with its reference vectors, in registration order.
func (s *PostgresStore) LoadIdentityRefs(ctx context.Context) ([]engine.IdentityReference, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.name, i.eligible, re.embedding
		FROM identities i
		LEFT JOIN reference_embeddings re ON re.identity_id = i.id
		ORDER BY i.created_at, re.created_at`)
	if err != nil {
		return nil, fmt.Errorf("load identity refs: %w", err)
	}
	defer rows.Close()

	var refs []engine.IdentityReference
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			id       uuid.UUID
			name     string
			eligible bool
			vec      *pgvector.Vector
		)
		if err := rows.Scan(&id, &name, &eligible, &vec); err != nil {
			return nil, fmt.Errorf("scan identity ref: %w", err)
		}
		i, ok := index[id]
		if !ok {
			i = len(refs)
			index[id] = i
			refs = append(refs, engine.IdentityReference{ID: id, Name: name, Eligible: eligible})
		}
		if vec != nil {
			refs[i].Embeddings = append(refs[i].Embeddings, vec.Slice())
		}
	}
	return refs, nil
}

// --- Cameras ---

func (s *PostgresStore) CreateCamera(ctx context.Context, cam *models.Camera) error {
	cam.ID = uuid.New()
	if cam.Recipients == nil {
		cam.Recipients = []string{}
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO cameras (id, site_id, name, location, restricted, recipients, enabled)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`,
		cam.ID, cam.SiteID, cam.Name, cam.Location, cam.Restricted, cam.Recipients, cam.Enabled,
	).Scan(&cam.CreatedAt, &cam.UpdatedAt)
}

func (s *PostgresStore) GetCamera(ctx context.Context, id uuid.UUID) (*models.Camera, error) {
	cam := &models.Camera{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, site_id, name, location, restricted, recipients, enabled, created_at, updated_at
		 FROM cameras WHERE id = $1`, id,
	).Scan(&cam.ID, &cam.SiteID, &cam.Name, &cam.Location, &cam.Restricted,
		&cam.Recipients, &cam.Enabled, &cam.CreatedAt, &cam.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get camera: %w", err)
	}
	return cam, nil
}

func (s *PostgresStore) ListCameras(ctx context.Context) ([]models.Camera, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, site_id, name, location, restricted, recipients, enabled, created_at, updated_at
		 FROM cameras ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list cameras: %w", err)
	}
	defer rows.Close()

	var cams []models.Camera
	for rows.Next() {
		var cam models.Camera
		if err := rows.Scan(&cam.ID, &cam.SiteID, &cam.Name, &cam.Location, &cam.Restricted,
			&cam.Recipients, &cam.Enabled, &cam.CreatedAt, &cam.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan camera: %w", err)
		}
		cams = append(cams, cam)
	}
	return cams, nil
}

func (s *PostgresStore) UpdateCamera(ctx context.Context, cam *models.Camera) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cameras SET name = $1, location = $2, restricted = $3, recipients = $4, enabled = $5, updated_at = now()
		 WHERE id = $6`,
		cam.Name, cam.Location, cam.Restricted, cam.Recipients, cam.Enabled, cam.ID)
	if err != nil {
		return fmt.Errorf("update camera: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("camera not found")
	}
	return nil
}

func (s *PostgresStore) DeleteCamera(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cameras WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete camera: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("camera not found")
	}
	return nil
}

// --- Events ---

func (s *PostgresStore) CreateEvent(ctx context.Context, ev *models.Event) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.MissingEquipment == nil {
		ev.MissingEquipment = []string{}
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO events (id, type, camera_id, site_id, identity_id, subject_name, severity, distance, confidence, missing_equipment, detected_at, snapshot_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING created_at`,
		ev.ID, ev.Type, ev.CameraID, ev.SiteID, ev.IdentityID, ev.SubjectName, ev.Severity,
		ev.Distance, ev.Confidence, ev.MissingEquipment, ev.DetectedAt, ev.SnapshotKey,
	).Scan(&ev.CreatedAt)
}

func (s *PostgresStore) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	ev := &models.Event{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, type, camera_id, site_id, identity_id, subject_name, severity, distance, confidence, missing_equipment, detected_at, snapshot_key, created_at
		 FROM events WHERE id = $1`, id,
	).Scan(&ev.ID, &ev.Type, &ev.CameraID, &ev.SiteID, &ev.IdentityID, &ev.SubjectName, &ev.Severity,
		&ev.Distance, &ev.Confidence, &ev.MissingEquipment, &ev.DetectedAt, &ev.SnapshotKey, &ev.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// EventFilter narrows QueryEvents. Zero values mean "no constraint".
type EventFilter struct {
	CameraID    *uuid.UUID
	IdentityID  *uuid.UUID
	Type        string
	Severity    string
	UnknownOnly bool
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

func (s *PostgresStore) QueryEvents(ctx context.Context, f EventFilter) ([]models.Event, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}

	where := " WHERE 1=1"
	args := []interface{}{}
	n := 0
	add := func(clause string, val interface{}) {
		n++
		where += fmt.Sprintf(" AND %s $%d", clause, n)
		args = append(args, val)
	}

	if f.CameraID != nil {
		add("camera_id =", *f.CameraID)
	}
	if f.IdentityID != nil {
		add("identity_id =", *f.IdentityID)
	}
	if f.Type != "" {
		add("type =", f.Type)
	}
	if f.Severity != "" {
		add("severity =", f.Severity)
	}
	if f.UnknownOnly {
		where += " AND identity_id IS NULL"
	}
	if f.From != nil {
		add("detected_at >=", *f.From)
	}
	if f.To != nil {
		add("detected_at <=", *f.To)
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	query := `SELECT id, type, camera_id, site_id, identity_id, subject_name, severity, distance, confidence, missing_equipment, detected_at, snapshot_key, created_at
		FROM events` + where +
		fmt.Sprintf(" ORDER BY detected_at DESC LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var ev models.Event
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.CameraID, &ev.SiteID, &ev.IdentityID, &ev.SubjectName,
			&ev.Severity, &ev.Distance, &ev.Confidence, &ev.MissingEquipment, &ev.DetectedAt,
			&ev.SnapshotKey, &ev.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, total, nil
}

// --- Attendance ---

func (s *PostgresStore) UpsertAttendanceDay(ctx context.Context, rec *models.AttendanceDayRecord) error {
	cameras := make([]string, len(rec.CamerasSeen))
	for i, c := range rec.CamerasSeen {
		cameras[i] = c.String()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attendance_days (id, identity_id, site_id, day, first_seen_at, last_seen_at, detection_count, cameras_seen, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (identity_id, day) DO UPDATE SET
			first_seen_at = LEAST(attendance_days.first_seen_at, EXCLUDED.first_seen_at),
			last_seen_at = GREATEST(attendance_days.last_seen_at, EXCLUDED.last_seen_at),
			detection_count = GREATEST(attendance_days.detection_count, EXCLUDED.detection_count),
			cameras_seen = EXCLUDED.cameras_seen,
			updated_at = now()`,
		rec.ID, rec.IdentityID, rec.SiteID, rec.Day, rec.FirstSeenAt, rec.LastSeenAt,
		rec.DetectionCount, cameras)
	if err != nil {
		return fmt.Errorf("upsert attendance day: %w", err)
	}
	return nil
}

// AttendanceDaysForDay returns every record for one site-local day, used to
// reseed the aggregator after a worker restart.
func (s *PostgresStore) AttendanceDaysForDay(ctx context.Context, day string) ([]models.AttendanceDayRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, identity_id, site_id, day, first_seen_at, last_seen_at, detection_count, cameras_seen, updated_at
		 FROM attendance_days WHERE day = $1`, day)
	if err != nil {
		return nil, fmt.Errorf("attendance days for day: %w", err)
	}
	defer rows.Close()
	return scanAttendanceDays(rows)
}

func (s *PostgresStore) QueryAttendanceDays(ctx context.Context, identityID *uuid.UUID, from, to string, limit, offset int) ([]models.AttendanceDayRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	where := " WHERE 1=1"
	args := []interface{}{}
	n := 0
	add := func(clause string, val interface{}) {
		n++
		where += fmt.Sprintf(" AND %s $%d", clause, n)
		args = append(args, val)
	}
	if identityID != nil {
		add("identity_id =", *identityID)
	}
	if from != "" {
		add("day >=", from)
	}
	if to != "" {
		add("day <=", to)
	}
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx,
		`SELECT id, identity_id, site_id, day, first_seen_at, last_seen_at, detection_count, cameras_seen, updated_at
		 FROM attendance_days`+where+
			fmt.Sprintf(" ORDER BY day DESC, identity_id LIMIT $%d OFFSET $%d", n+1, n+2),
		args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance days: %w", err)
	}
	defer rows.Close()
	return scanAttendanceDays(rows)
}

// AttendanceSummary rolls day records up per person over a date range.
func (s *PostgresStore) AttendanceSummary(ctx context.Context, from, to string) ([]models.AttendanceSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.identity_id, i.name,
		       COUNT(*) AS days_present,
		       SUM(a.detection_count) AS total_count,
		       MIN(a.first_seen_at) AS first_seen_at,
		       MAX(a.last_seen_at) AS last_seen_at
		FROM attendance_days a
		JOIN identities i ON i.id = a.identity_id
		WHERE a.day >= $1 AND a.day <= $2
		GROUP BY a.identity_id, i.name
		ORDER BY i.name`, from, to)
	if err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.AttendanceSummary
	for rows.Next() {
		var sum models.AttendanceSummary
		if err := rows.Scan(&sum.IdentityID, &sum.Name, &sum.DaysPresent, &sum.TotalCount,
			&sum.FirstSeenAt, &sum.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan attendance summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

func scanAttendanceDays(rows pgx.Rows) ([]models.AttendanceDayRecord, error) {
	var recs []models.AttendanceDayRecord
	for rows.Next() {
		var rec models.AttendanceDayRecord
		var cameras []string
		if err := rows.Scan(&rec.ID, &rec.IdentityID, &rec.SiteID, &rec.Day, &rec.FirstSeenAt,
			&rec.LastSeenAt, &rec.DetectionCount, &cameras, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan attendance day: %w", err)
		}
		for _, c := range cameras {
			id, err := uuid.Parse(c)
			if err != nil {
				continue
			}
			rec.CamerasSeen = append(rec.CamerasSeen, id)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
