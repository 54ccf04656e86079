// Package assess ties validation, prediction, persistence and event
// publishing together behind one service used by every transport.
package assess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Gere2/AIGNITE/internal/encoder"
	"github.com/Gere2/AIGNITE/internal/metrics"
	"github.com/Gere2/AIGNITE/internal/models"
	"github.com/Gere2/AIGNITE/internal/notify"
	"github.com/Gere2/AIGNITE/internal/predictor"
	"github.com/Gere2/AIGNITE/internal/registry"
	"github.com/Gere2/AIGNITE/internal/storage"
	"github.com/Gere2/AIGNITE/internal/validate"
	"github.com/Gere2/AIGNITE/internal/vocab"
)

var (
	ErrValidationFailed = errors.New("validation failed")
	ErrNotFound         = errors.New("assessment not found")
)

// ValidationError carries every violation found in a record.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// Options holds the optional collaborators of a Service.
type Options struct {
	Publisher notify.Publisher
	Logger    *slog.Logger
}

// Service is safe for concurrent use. The registry and vocabulary are shared
// read-only; the store serialises its own writes.
type Service struct {
	reg       *registry.Registry
	vocab     *vocab.Vocabulary
	validator *validate.Validator
	store     storage.Store
	pub       notify.Publisher
	log       *slog.Logger
	now       func() time.Time
}

func New(reg *registry.Registry, voc *vocab.Vocabulary, store storage.Store, opts Options) *Service {
	s := &Service{
		reg:       reg,
		vocab:     voc,
		validator: validate.New(voc),
		store:     store,
		pub:       opts.Publisher,
		log:       opts.Logger,
		now:       time.Now,
	}
	if s.pub == nil {
		s.pub = notify.Nop{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Normalize returns rec with every code in canonical form.
func Normalize(rec models.AttributeRecord) models.AttributeRecord {
	rec.HeatSource = vocab.Canonical(rec.HeatSource)
	materials := make([]string, len(rec.Materials))
	for i, m := range rec.Materials {
		materials[i] = vocab.Canonical(m)
	}
	rec.Materials = materials
	rec.StructuralStatus = vocab.Canonical(rec.StructuralStatus)
	rec.Detector = vocab.Canonical(rec.Detector)
	rec.DetectorType = vocab.Canonical(rec.DetectorType)
	return rec
}

// Validate checks rec against the vocabulary without predicting.
func (s *Service) Validate(rec models.AttributeRecord) (bool, []string) {
	return s.validator.Validate(Normalize(rec))
}

// Assess validates and predicts without persisting anything.
func (s *Service) Assess(ctx context.Context, rec models.AttributeRecord) (models.Prediction, error) {
	rec = Normalize(rec)
	if ok, violations := s.validator.Validate(rec); !ok {
		metrics.ValidationFailures.Inc()
		s.log.DebugContext(ctx, "record rejected", "violations", len(violations))
		return models.Prediction{}, &ValidationError{Violations: violations}
	}

	start := time.Now()
	pred, err := predictor.Predict(rec, s.reg.Schema(), s.reg.Classify)
	if errors.Is(err, predictor.ErrEmptySelection) {
		metrics.EmptySelections.Inc()
		return models.Prediction{}, err
	}
	if err != nil {
		return models.Prediction{}, fmt.Errorf("predict: %w", err)
	}
	metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	metrics.Predictions.WithLabelValues(pred.Label.String()).Inc()
	return pred, nil
}

// Record assesses rec and persists the result. manualID <= 0 lets the store
// assign the id; a positive manualID replaces any record already there and
// may not exceed storage.MaxManualID.
func (s *Service) Record(ctx context.Context, rec models.AttributeRecord, manualID int64) (*models.PredictionRecord, error) {
	if manualID > storage.MaxManualID {
		_, violations := s.Validate(rec)
		violations = append([]string{fmt.Sprintf("id must not exceed %d", storage.MaxManualID)}, violations...)
		metrics.ValidationFailures.Inc()
		return nil, &ValidationError{Violations: violations}
	}

	pred, err := s.Assess(ctx, rec)
	if err != nil {
		return nil, err
	}

	saved, err := s.store.Insert(ctx, Normalize(rec), pred, manualID)
	metrics.StoreResult("insert", err)
	if err != nil {
		s.log.ErrorContext(ctx, "store insert failed", "manual_id", manualID, "error", err)
		return nil, err
	}
	s.log.InfoContext(ctx, "assessment recorded",
		"id", saved.ID, "label", saved.Prediction.Label.String(), "manual", manualID > 0)

	s.publish(ctx, notify.Recorded(saved))
	return saved, nil
}

// Get returns ErrNotFound when no record has id.
func (s *Service) Get(ctx context.Context, id int64) (*models.PredictionRecord, error) {
	rec, err := s.store.FetchByID(ctx, id)
	metrics.StoreResult("fetch", err)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return rec, nil
}

// List returns records newest first. limit <= 0 returns all of them.
func (s *Service) List(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	records, err := s.store.FetchAll(ctx, limit)
	metrics.StoreResult("list", err)
	return records, err
}

// Delete reports whether a record existed and was removed.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	removed, err := s.store.DeleteByID(ctx, id)
	metrics.StoreResult("delete", err)
	if err != nil {
		return false, err
	}
	if removed {
		s.log.InfoContext(ctx, "assessment deleted", "id", id)
		s.publish(ctx, notify.Deleted(id, s.now()))
	}
	return removed, nil
}

func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	stats, err := s.store.Stats(ctx)
	metrics.StoreResult("stats", err)
	return stats, err
}

// Explain shows how rec maps onto the model's columns.
func (s *Service) Explain(rec models.AttributeRecord) encoder.Encoding {
	return encoder.Explain(Normalize(rec), s.reg.Schema())
}

// Vocabulary returns the code tables records are validated against.
func (s *Service) Vocabulary() *vocab.Vocabulary { return s.vocab }

// ModelInfo describes the loaded artifact.
func (s *Service) ModelInfo() registry.Info { return s.reg.Info() }

// publish is best effort: a broker outage never fails a committed write.
func (s *Service) publish(ctx context.Context, ev notify.Event) {
	if err := s.pub.Publish(ctx, ev); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		s.log.WarnContext(ctx, "event publish failed", "type", ev.Type, "id", ev.ID, "error", err)
		return
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
}
