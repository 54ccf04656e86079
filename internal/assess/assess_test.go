package assess

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gere2/AIGNITE/internal/logging"
	"github.com/Gere2/AIGNITE/internal/models"
	"github.com/Gere2/AIGNITE/internal/notify"
	"github.com/Gere2/AIGNITE/internal/predictor"
	"github.com/Gere2/AIGNITE/internal/registry/registrytest"
	"github.com/Gere2/AIGNITE/internal/storage"
	"github.com/Gere2/AIGNITE/internal/vocab"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func newService(t *testing.T) (*Service, *recordingPublisher, *bytes.Buffer) {
	t.Helper()
	store, err := storage.OpenSQLite(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pub := &recordingPublisher{}
	var logs bytes.Buffer
	svc := New(registrytest.Load(t), vocab.Default(), store, Options{
		Publisher: pub,
		Logger:    logging.New(&logs, "text", logging.ParseLevel("debug")),
	})
	return svc, pub, &logs
}

func fire(materials ...string) models.AttributeRecord {
	return models.AttributeRecord{
		HeatSource:       "52",
		Materials:        materials,
		StructuralStatus: "Bueno",
		Detector:         "Y",
		DetectorType:     "3",
		Area:             80,
	}
}

func TestAssessAveragesMaterials(t *testing.T) {
	svc, pub, _ := newService(t)

	pred, err := svc.Assess(context.Background(), fire("Metal", "Hormigón"))
	require.NoError(t, err)
	assert.Equal(t, models.RiskLow, pred.Label)
	assert.InDeltaSlice(t, []float64{0.5, 0.3, 0.2}, pred.Probabilities.Slice(), 1e-9)
	assert.Empty(t, pub.events, "preview must not publish")
}

func TestAssessValidationError(t *testing.T) {
	svc, _, _ := newService(t)

	rec := fire("Vidrio")
	rec.Area = 0
	_, err := svc.Assess(context.Background(), rec)
	require.ErrorIs(t, err, ErrValidationFailed)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{`unknown material code "Vidrio"`, "area must be greater than 0"}, verr.Violations)
}

func TestAssessEmptySelection(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Assess(context.Background(), fire())
	assert.ErrorIs(t, err, predictor.ErrEmptySelection)
}

func TestRecordPersistsCanonicalCodesAndPublishes(t *testing.T) {
	svc, pub, logs := newService(t)
	ctx := context.Background()

	saved, err := svc.Record(ctx, fire(" Madera ", "Metal"), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Madera", "Metal"}, saved.Attributes.Materials)

	got, err := svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Prediction, got.Prediction)
	assert.Equal(t, []string{"Madera", "Metal"}, got.Attributes.Materials)

	require.Len(t, pub.events, 1)
	assert.Equal(t, notify.EventRecorded, pub.events[0].Type)
	assert.Equal(t, saved.ID, pub.events[0].ID)
	assert.Contains(t, logs.String(), "assessment recorded")
}

func TestRecordRejectedRecordIsNotStored(t *testing.T) {
	svc, pub, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, fire("Vidrio"), 0)
	require.ErrorIs(t, err, ErrValidationFailed)

	all, err := svc.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, pub.events)
}

func TestRecordManualIDOverwrites(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, fire("Madera"), 7)
	require.NoError(t, err)
	_, err = svc.Record(ctx, fire("Metal"), 7)
	require.NoError(t, err)

	all, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(7), all[0].ID)
	assert.Equal(t, models.RiskLow, all[0].Prediction.Label)
}

func TestRecordManualIDCeiling(t *testing.T) {
	svc, pub, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, fire("Vidrio"), storage.MaxManualID+1)
	require.ErrorIs(t, err, ErrValidationFailed)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"id must not exceed 9007199254740991", `unknown material code "Vidrio"`}, verr.Violations)

	top, err := svc.Record(ctx, fire("Madera"), storage.MaxManualID)
	require.NoError(t, err)
	assert.Equal(t, storage.MaxManualID, top.ID)

	auto, err := svc.Record(ctx, fire("Metal"), 0)
	require.NoError(t, err)
	assert.Greater(t, auto.ID, storage.MaxManualID)

	// a negative id means auto assignment
	neg, err := svc.Record(ctx, fire("Metal"), -3)
	require.NoError(t, err)
	assert.Greater(t, neg.ID, auto.ID)
	assert.Len(t, pub.events, 3)
}

func TestRecordSurvivesPublishFailure(t *testing.T) {
	svc, pub, logs := newService(t)
	pub.err = errors.New("broker down")

	saved, err := svc.Record(context.Background(), fire("Madera"), 0)
	require.NoError(t, err)
	assert.Positive(t, saved.ID)
	assert.Contains(t, logs.String(), "event publish failed")
}

func TestGetMissing(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc, pub, _ := newService(t)
	ctx := context.Background()

	saved, err := svc.Record(ctx, fire("Madera"), 0)
	require.NoError(t, err)

	removed, err := svc.Delete(ctx, saved.ID+1)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = svc.Delete(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	require.Len(t, pub.events, 2)
	assert.Equal(t, notify.EventDeleted, pub.events[1].Type)
}

func TestStatsAndExplain(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	for _, m := range []string{"Madera", "Metal", "Madera"} {
		_, err := svc.Record(ctx, fire(m), 0)
		require.NoError(t, err)
	}
	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, map[string]int64{"Low": 1, "Medium": 0, "High": 2}, stats.ByLabel)

	enc := svc.Explain(fire("Madera", "Cartón"))
	assert.Equal(t, []string{"TYPE_MAT_Cartón"}, enc.Dropped)
	assert.Contains(t, enc.Active, "TYPE_MAT_Madera")
	assert.Len(t, enc.Vector, svc.ModelInfo().ColumnCount)
}
