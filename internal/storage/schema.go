package storage

// SQLiteSchema is the SQL schema for the assessments.db database.
// AUTOINCREMENT keeps auto ids above every id ever used, manual ones included.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS fire_assessments (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    heat_source       TEXT NOT NULL,
    materials         TEXT NOT NULL,
    structural_status TEXT NOT NULL,
    detector          TEXT NOT NULL,
    detector_type     TEXT NOT NULL,
    area              REAL NOT NULL,
    risk              TEXT NOT NULL CHECK(risk IN ('Low', 'Medium', 'High')),
    prob_low          REAL NOT NULL,
    prob_medium       REAL NOT NULL,
    prob_high         REAL NOT NULL,
    created_at        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fire_assessments_created ON fire_assessments(created_at DESC, id DESC);
`

// PostgresSchema is the same relation for PostgreSQL. The BIGSERIAL column
// owns the fire_assessments_id_seq sequence.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS fire_assessments (
    id                BIGSERIAL PRIMARY KEY,
    heat_source       TEXT NOT NULL,
    materials         TEXT NOT NULL,
    structural_status TEXT NOT NULL,
    detector          TEXT NOT NULL,
    detector_type     TEXT NOT NULL,
    area              DOUBLE PRECISION NOT NULL,
    risk              TEXT NOT NULL CHECK(risk IN ('Low', 'Medium', 'High')),
    prob_low          DOUBLE PRECISION NOT NULL,
    prob_medium       DOUBLE PRECISION NOT NULL,
    prob_high         DOUBLE PRECISION NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fire_assessments_created ON fire_assessments(created_at DESC, id DESC);
`

// sqlitePragmas configures each pooled SQLite connection.
const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=cache_size(-64000)"

const selectColumns = `id, heat_source, materials, structural_status, detector, detector_type, area, risk, prob_low, prob_medium, prob_high, created_at`
