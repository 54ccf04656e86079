package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gere2/AIGNITE/internal/models"
)

// PostgresStore keeps assessments in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects to dsn and runs migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, unavailable("postgres pool init", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, unavailable("postgres ping", err)
	}
	if _, err := pool.Exec(ctx, PostgresSchema); err != nil {
		pool.Close()
		return nil, unavailable("migrate postgres", err)
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Insert stores rec and its prediction. A manual id is upserted and the id
// sequence is moved past it in the same transaction.
func (s *PostgresStore) Insert(ctx context.Context, rec models.AttributeRecord, pred models.Prediction, manualID int64) (*models.PredictionRecord, error) {
	if err := checkManualID(manualID); err != nil {
		return nil, err
	}
	// timestamptz keeps microseconds.
	created := s.now().UTC().Truncate(time.Microsecond)
	args := insertArgs(rec, pred, created)

	if manualID <= 0 {
		var id int64
		err := s.pool.QueryRow(ctx, `
			INSERT INTO fire_assessments (heat_source, materials, structural_status, detector, detector_type, area, risk, prob_low, prob_medium, prob_high, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id
		`, args...).Scan(&id)
		if err != nil {
			return nil, unavailable("insert assessment", err)
		}
		return newRecord(id, rec, pred, created), nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, unavailable("begin tx", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO fire_assessments (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			heat_source = EXCLUDED.heat_source,
			materials = EXCLUDED.materials,
			structural_status = EXCLUDED.structural_status,
			detector = EXCLUDED.detector,
			detector_type = EXCLUDED.detector_type,
			area = EXCLUDED.area,
			risk = EXCLUDED.risk,
			prob_low = EXCLUDED.prob_low,
			prob_medium = EXCLUDED.prob_medium,
			prob_high = EXCLUDED.prob_high,
			created_at = EXCLUDED.created_at
	`, append([]any{manualID}, args...)...)
	if err != nil {
		return nil, unavailable("upsert assessment", err)
	}

	// Keep the sequence ahead of manual ids so auto ids never land on one.
	_, err = tx.Exec(ctx,
		`SELECT setval('fire_assessments_id_seq', GREATEST($1::bigint, (SELECT last_value FROM fire_assessments_id_seq)))`,
		manualID,
	)
	if err != nil {
		return nil, unavailable("advance id sequence", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, unavailable("commit", err)
	}
	return newRecord(manualID, rec, pred, created), nil
}

// FetchAll lists assessments newest first, at most limit when limit > 0.
func (s *PostgresStore) FetchAll(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM fire_assessments ORDER BY created_at DESC, id DESC`
	var rows pgx.Rows
	var err error
	if limit > 0 {
		rows, err = s.pool.Query(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = s.pool.Query(ctx, query)
	}
	if err != nil {
		return nil, unavailable("list assessments", err)
	}
	defer rows.Close()

	records := []models.PredictionRecord{}
	for rows.Next() {
		rec, err := scanPostgres(rows)
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
func (s *PostgresStore) FetchByID(ctx context.Context, id int64) (*models.PredictionRecord, error) {
	rec, err := scanPostgres(s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM fire_assessments WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteByID removes the assessment with id and reports whether it existed.
func (s *PostgresStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM fire_assessments WHERE id = $1`, id)
	if err != nil {
		return false, unavailable("delete assessment", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Stats counts assessments per risk label and per UTC day.
func (s *PostgresStore) Stats(ctx context.Context) (*models.Stats, error) {
	stats := newStats()

	rows, err := s.pool.Query(ctx, `SELECT risk, COUNT(*) FROM fire_assessments GROUP BY risk`)
	if err != nil {
		return nil, unavailable("count by risk", err)
	}
	for rows.Next() {
		var risk string
		var n int64
		if err := rows.Scan(&risk, &n); err != nil {
			rows.Close()
			return nil, unavailable("scan risk count", err)
		}
		stats.ByLabel[risk] = n
		stats.Total += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, unavailable("count by risk", err)
	}

	days, err := s.pool.Query(ctx, `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM fire_assessments GROUP BY day ORDER BY day
	`)
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

// scanPostgres scans one row. pgx.ErrNoRows is returned unwrapped.
func scanPostgres(sc scanner) (models.PredictionRecord, error) {
	var r row
	var created time.Time
	err := sc.Scan(r.dest(&created)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.PredictionRecord{}, err
	}
	if err != nil {
		return models.PredictionRecord{}, unavailable("scan assessment", err)
	}
	return r.record(created)
}
