package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/Gere2/AIGNITE/internal/models"
)

// timeLayout is fixed width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps assessments in a single SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens (or creates) <dataDir>/assessments.db and runs migrations.
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, unavailable("create data dir", err)
	}

	dbPath := filepath.Join(dataDir, "assessments.db")
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?"+sqlitePragmas)
	if err != nil {
		return nil, unavailable("open assessments db", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, unavailable("ping assessments db", err)
	}
	if _, err := db.Exec(SQLiteSchema); err != nil {
		db.Close()
		return nil, unavailable("migrate assessments db", err)
	}

	return &SQLiteStore{db: db, path: dbPath, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Insert stores rec and its prediction, replacing the row at manualID when
// one is given.
func (s *SQLiteStore) Insert(ctx context.Context, rec models.AttributeRecord, pred models.Prediction, manualID int64) (*models.PredictionRecord, error) {
	if err := checkManualID(manualID); err != nil {
		return nil, err
	}
	created := s.now().UTC()
	args := insertArgs(rec, pred, created.Format(timeLayout))

	var id int64
	var err error
	if manualID > 0 {
		err = s.db.QueryRowContext(ctx,
			`INSERT OR REPLACE INTO fire_assessments (`+selectColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			append([]any{manualID}, args...)...,
		).Scan(&id)
	} else {
		err = s.db.QueryRowContext(ctx,
			`INSERT INTO fire_assessments (heat_source, materials, structural_status, detector, detector_type, area, risk, prob_low, prob_medium, prob_high, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			args...,
		).Scan(&id)
	}
	if err != nil {
		return nil, unavailable("insert assessment", err)
	}
	return newRecord(id, rec, pred, created), nil
}

// FetchAll lists assessments newest first, at most limit when limit > 0.
func (s *SQLiteStore) FetchAll(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM fire_assessments ORDER BY created_at DESC, id DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, unavailable("list assessments", err)
	}
	defer rows.Close()

	records := []models.PredictionRecord{}
	for rows.Next() {
		rec, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list assessments", err)
	}
	return records, nil
}

// FetchByID returns the assessment with id, or nil if there is none.
func (s *SQLiteStore) FetchByID(ctx context.Context, id int64) (*models.PredictionRecord, error) {
	rec, err := scanSQLite(s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM fire_assessments WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteByID removes the assessment with id and reports whether it existed.
func (s *SQLiteStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM fire_assessments WHERE id = ?`, id)
	if err != nil {
		return false, unavailable("delete assessment", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, unavailable("delete assessment", err)
	}
	return n > 0, nil
}

// Stats counts assessments per risk label and per UTC day.
func (s *SQLiteStore) Stats(ctx context.Context) (*models.Stats, error) {
	stats := newStats()

	rows, err := s.db.QueryContext(ctx, `SELECT risk, COUNT(*) FROM fire_assessments GROUP BY risk`)
	if err != nil {
		return nil, unavailable("count by risk", err)
	}
	defer rows.Close()
	for rows.Next() {
		var risk string
		var n int64
		if err := rows.Scan(&risk, &n); err != nil {
			return nil, unavailable("scan risk count", err)
		}
		stats.ByLabel[risk] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("count by risk", err)
	}

	days, err := s.db.QueryContext(ctx,
		`SELECT substr(created_at, 1, 10) AS day, COUNT(*) FROM fire_assessments GROUP BY day ORDER BY day`,
	)
	if err != nil {
		return nil, unavailable("count by day", err)
	}
	defer days.Close()
	for days.Next() {
		var d models.DayCount
		if err := days.Scan(&d.Day, &d.Count); err != nil {
			return nil, unavailable("scan day count", err)
		}
		stats.ByDay = append(stats.ByDay, d)
	}
	if err := days.Err(); err != nil {
		return nil, unavailable("count by day", err)
	}
	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanSQLite scans one row. sql.ErrNoRows is returned unwrapped.
func scanSQLite(sc scanner) (models.PredictionRecord, error) {
	var r row
	var created string
	err := sc.Scan(r.dest(&created)...)
	if err == sql.ErrNoRows {
		return models.PredictionRecord{}, err
	}
	if err != nil {
		return models.PredictionRecord{}, unavailable("scan assessment", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return models.PredictionRecord{}, fmt.Errorf("assessment %d: bad created_at %q: %w", r.id, created, err)
	}
	return r.record(createdAt)
}
