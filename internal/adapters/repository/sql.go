package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/okian/nexus-ssn/internal/domain/cohort"
	"github.com/okian/nexus-ssn/internal/domain/model"
	"github.com/okian/nexus-ssn/pkg/logger"
)

// Driver names a supported SQL backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

const defaultMaxConns = 10

// SQLStore implements Store over database/sql. Placeholders use the $N form
// understood by both pgx and modernc sqlite.
type SQLStore struct {
	db       *sql.DB
	driver   Driver
	maxConns int
	logger   logger.Logger
}

// Open connects, pings and ensures the schema exists.
func Open(ctx context.Context, driver Driver, dsn string, opts ...Option) (*SQLStore, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite"
		if dsn == "" {
			dsn = "file:nexus.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx"
		if dsn == "" {
			return nil, fmt.Errorf("%w: postgres requires a dsn", ErrUnsupportedDriver)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	s := &SQLStore{driver: driver, maxConns: defaultMaxConns}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("repository")
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(s.maxConns)
	if driver == DriverSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent batch writes.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s.db = db

	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	schema := schemaSQLite
	if s.driver == DriverPostgres {
		schema = schemaPostgres
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// PutAssessment inserts a.
func (s *SQLStore) PutAssessment(ctx context.Context, a model.Assessment) error {
	if a.ID == "" || a.Subject == "" {
		return fmt.Errorf("%w: id and subject are required", ErrInvalidAssessment)
	}

	var payload string
	if a.Payload != nil {
		buf, err := a.Payload.Encode()
		if err != nil {
			return fmt.Errorf("encode payload of %s: %w", a.ID, err)
		}
		payload = string(buf)
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assessments (id, subject, version, student_id, global_score, confidence_index, payload_json, ssn, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.Subject, a.Version, a.StudentID,
		nullFloat(a.GlobalScore), nullFloat(a.ConfidenceIndex), payload, nullFloat(a.SSN),
		created.UnixMilli(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicate, a.ID)
	}
	if err != nil {
		return fmt.Errorf("insert assessment %s: %w", a.ID, err)
	}
	return nil
}

const assessmentColumns = `id, subject, version, student_id, global_score, confidence_index, payload_json, ssn, created_at`

// FetchAssessment returns nil when id is unknown.
func (s *SQLStore) FetchAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assessmentColumns+` FROM assessments WHERE id=$1`, id)
	a, err := s.scanAssessment(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		// Callers name the operation and the id.
		return nil, fmt.Errorf("select assessment: %w", err)
	}
	return a, nil
}

// FetchRawScores returns graded global scores of the cohort.
func (s *SQLStore) FetchRawScores(ctx context.Context, key cohort.Key) ([]float64, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if key.Version == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT global_score FROM assessments WHERE subject=$1 AND global_score IS NOT NULL ORDER BY seq`,
			key.Type)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT global_score FROM assessments WHERE subject=$1 AND version=$2 AND global_score IS NOT NULL ORDER BY seq`,
			key.Type, key.Version)
	}
	if err != nil {
		return nil, fmt.Errorf("query raw scores: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan raw score: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw scores: %w", err)
	}
	return out, nil
}

// FetchAssessmentsNeedingRescoring returns graded assessments of the type.
func (s *SQLStore) FetchAssessmentsNeedingRescoring(ctx context.Context, assessmentType string) ([]model.Assessment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assessmentColumns+` FROM assessments WHERE subject=$1 AND global_score IS NOT NULL ORDER BY seq`,
		assessmentType)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()

	var out []model.Assessment
	for rows.Next() {
		a, err := s.scanAssessment(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}
	return out, nil
}

// WriteStandardizedScore sets the SSN of an existing assessment.
func (s *SQLStore) WriteStandardizedScore(ctx context.Context, assessmentID string, ssn float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE assessments SET ssn=$1 WHERE id=$2`, ssn, assessmentID)
	if err != nil {
		return fmt.Errorf("write ssn of %s: %w", assessmentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write ssn of %s: %w", assessmentID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, assessmentID)
	}
	return nil
}

// ResolveLinkedStudent returns "" for unknown or anonymous assessments.
func (s *SQLStore) ResolveLinkedStudent(ctx context.Context, assessmentID string) (string, error) {
	var student string
	err := s.db.QueryRowContext(ctx, `SELECT student_id FROM assessments WHERE id=$1`, assessmentID).Scan(&student)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve student of %s: %w", assessmentID, err)
	}
	return student, nil
}

// AppendProgressionPoint inserts a history row.
func (s *SQLStore) AppendProgressionPoint(ctx context.Context, p model.ProgressionPoint) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO progression_history (id, student_id, ssn, recorded_at) VALUES ($1,$2,$3,$4)`,
		p.ID, p.StudentID, p.SSN, p.RecordedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("append progression point: %w", err)
	}
	return nil
}

// FetchProgressionHistory returns the history, oldest first.
func (s *SQLStore) FetchProgressionHistory(ctx context.Context, studentID string) ([]model.ProgressionPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, ssn, recorded_at FROM progression_history WHERE student_id=$1 ORDER BY recorded_at, seq`,
		studentID)
	if err != nil {
		return nil, fmt.Errorf("query progression history: %w", err)
	}
	defer rows.Close()

	var out []model.ProgressionPoint
	for rows.Next() {
		var (
			p  model.ProgressionPoint
			ms int64
		)
		if err := rows.Scan(&p.ID, &p.StudentID, &p.SSN, &ms); err != nil {
			return nil, fmt.Errorf("scan progression point: %w", err)
		}
		p.RecordedAt = time.UnixMilli(ms).UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progression history: %w", err)
	}
	return out, nil
}

// AppendProjectionPoint inserts a projection row with its input snapshot as JSON.
func (s *SQLStore) AppendProjectionPoint(ctx context.Context, p model.ProjectionPoint) error {
	input, err := json.Marshal(p.Input)
	if err != nil {
		return fmt.Errorf("encode projection input: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projection_history (id, student_id, ssn_projected, confidence, model_version, input_json, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.StudentID, p.SSNProjected, p.Confidence, p.ModelVersion, string(input), p.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("append projection point: %w", err)
	}
	return nil
}

// FetchProjectionHistory returns persisted projections, oldest first.
func (s *SQLStore) FetchProjectionHistory(ctx context.Context, studentID string) ([]model.ProjectionPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, ssn_projected, confidence, model_version, input_json, created_at
		FROM projection_history WHERE student_id=$1 ORDER BY created_at, seq`,
		studentID)
	if err != nil {
		return nil, fmt.Errorf("query projection history: %w", err)
	}
	defer rows.Close()

	var out []model.ProjectionPoint
	for rows.Next() {
		var (
			p     model.ProjectionPoint
			input string
			ms    int64
		)
		if err := rows.Scan(&p.ID, &p.StudentID, &p.SSNProjected, &p.Confidence, &p.ModelVersion, &input, &ms); err != nil {
			return nil, fmt.Errorf("scan projection point: %w", err)
		}
		if err := json.Unmarshal([]byte(input), &p.Input); err != nil {
			return nil, fmt.Errorf("decode projection input %s: %w", p.ID, err)
		}
		p.CreatedAt = time.UnixMilli(ms).UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projection history: %w", err)
	}
	return out, nil
}

// CountAssessments returns the number of stored assessments.
func (s *SQLStore) CountAssessments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assessments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count assessments: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanAssessment reads one row. A payload that does not fully decode is
// logged and kept with whatever fields were readable.
func (s *SQLStore) scanAssessment(ctx context.Context, row scanner) (*model.Assessment, error) {
	var (
		a                       model.Assessment
		global, confidence, ssn sql.NullFloat64
		payload                 string
		created                 int64
	)
	if err := row.Scan(&a.ID, &a.Subject, &a.Version, &a.StudentID, &global, &confidence, &payload, &ssn, &created); err != nil {
		return nil, err
	}
	a.GlobalScore = floatPtr(global)
	a.ConfidenceIndex = floatPtr(confidence)
	a.SSN = floatPtr(ssn)
	a.CreatedAt = time.UnixMilli(created).UTC()

	p, err := model.DecodePayload([]byte(payload))
	if err != nil {
		s.logger.Warn(ctx, "stored payload partially unreadable",
			logger.String("assessment_id", a.ID),
			logger.Error(err))
	}
	a.Payload = p
	return &a, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return model.Float64(v.Float64)
}

// isUniqueViolation recognises duplicate-key errors from both drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

var _ Store = (*SQLStore)(nil)
