// Package storage persists assessments. SQLite is the default back-end;
// PostgreSQL is used when a postgres DSN is configured.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Gere2/AIGNITE/internal/models"
)

var (
	// ErrStoreUnavailable wraps every failure of the backing database.
	ErrStoreUnavailable = errors.New("prediction store unavailable")
	// ErrIDOutOfRange is returned for a manual id above MaxManualID.
	ErrIDOutOfRange = errors.New("manual id out of range")
)

// MaxManualID is the largest id a caller may pick. Ids above it stay free for
// auto assignment.
const MaxManualID int64 = 1<<53 - 1

// Store is the sole owner of the persisted assessments.
type Store interface {
	// Insert persists rec with its prediction. manualID <= 0 assigns the next
	// auto id; a positive manualID replaces any row at that id in full.
	// manualID > MaxManualID fails with ErrIDOutOfRange.
	Insert(ctx context.Context, rec models.AttributeRecord, pred models.Prediction, manualID int64) (*models.PredictionRecord, error)
	// FetchAll returns records newest first. limit <= 0 returns all of them.
	FetchAll(ctx context.Context, limit int) ([]models.PredictionRecord, error)
	// FetchByID returns nil, nil when no record has that id.
	FetchByID(ctx context.Context, id int64) (*models.PredictionRecord, error)
	// DeleteByID reports whether a row existed and was removed.
	DeleteByID(ctx context.Context, id int64) (bool, error)
	Stats(ctx context.Context) (*models.Stats, error)
	Close() error
}

// Open picks the back-end from dsn: postgres:// and postgresql:// URLs go to
// PostgreSQL, anything else opens <dataDir>/assessments.db.
func Open(ctx context.Context, dsn, dataDir string) (Store, error) {
	if IsPostgresDSN(dsn) {
		return OpenPostgres(ctx, dsn)
	}
	return OpenSQLite(dataDir)
}

// IsPostgresDSN reports whether dsn selects the PostgreSQL back-end.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func checkManualID(id int64) error {
	if id > MaxManualID {
		return fmt.Errorf("%w: %d exceeds %d", ErrIDOutOfRange, id, MaxManualID)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func joinMaterials(materials []string) string {
	return strings.Join(materials, models.MaterialSeparator)
}

func splitMaterials(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, models.MaterialSeparator)
}

// row is one fire_assessments row minus created_at, whose type differs
// between back-ends.
type row struct {
	id         int64
	heatSource string
	materials  string
	status     string
	det        string
	detType    string
	area       float64
	risk       string
	low        float64
	medium     float64
	high       float64
}

func (r *row) dest(createdAt any) []any {
	return []any{&r.id, &r.heatSource, &r.materials, &r.status, &r.det, &r.detType,
		&r.area, &r.risk, &r.low, &r.medium, &r.high, createdAt}
}

func (r *row) record(createdAt time.Time) (models.PredictionRecord, error) {
	label, err := models.ParseRiskLabel(r.risk)
	if err != nil {
		return models.PredictionRecord{}, fmt.Errorf("assessment %d: %w", r.id, err)
	}
	return models.PredictionRecord{
		ID: r.id,
		Attributes: models.AttributeRecord{
			HeatSource:       r.heatSource,
			Materials:        splitMaterials(r.materials),
			StructuralStatus: r.status,
			Detector:         r.det,
			DetectorType:     r.detType,
			Area:             r.area,
		},
		Prediction: models.Prediction{
			Label:         label,
			Probabilities: models.Probabilities{Low: r.low, Medium: r.medium, High: r.high},
		},
		CreatedAt: createdAt.UTC(),
	}, nil
}

// insertArgs lists the values for every column after id, in selectColumns order.
func insertArgs(rec models.AttributeRecord, pred models.Prediction, createdAt any) []any {
	p := pred.Probabilities
	return []any{rec.HeatSource, joinMaterials(rec.Materials), rec.StructuralStatus,
		rec.Detector, rec.DetectorType, rec.Area, pred.Label.String(),
		p.Low, p.Medium, p.High, createdAt}
}

func newRecord(id int64, rec models.AttributeRecord, pred models.Prediction, createdAt time.Time) *models.PredictionRecord {
	rec.Materials = splitMaterials(joinMaterials(rec.Materials))
	return &models.PredictionRecord{ID: id, Attributes: rec, Prediction: pred, CreatedAt: createdAt}
}

// newStats returns stats with every label present at zero.
func newStats() *models.Stats {
	s := &models.Stats{ByLabel: make(map[string]int64, models.NumLabels), ByDay: []models.DayCount{}}
	for _, l := range models.Labels {
		s.ByLabel[l.String()] = 0
	}
	return s
}
