// Package predictor resolves a record, possibly with several selected
// materials, into a single prediction.
package predictor

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/Gere2/AIGNITE/internal/encoder"
	"github.com/Gere2/AIGNITE/internal/models"
	"github.com/Gere2/AIGNITE/internal/registry"
)

// ErrEmptySelection is returned when no material is selected.
var ErrEmptySelection = errors.New("no material selected")

// ClassifyFunc runs the model on one encoded vector.
type ClassifyFunc func(models.EncodedVector) (models.Prediction, error)

// Predict classifies rec once per selected material and averages the
// distributions. Every material carries the same weight. The label is the
// highest averaged probability, with ties going to the lower risk.
func Predict(rec models.AttributeRecord, schema *registry.Schema, classify ClassifyFunc) (models.Prediction, error) {
	if len(rec.Materials) == 0 {
		return models.Prediction{}, ErrEmptySelection
	}

	if len(rec.Materials) == 1 {
		return classify(encoder.Encode(rec, schema))
	}

	mean := make([]float64, models.NumLabels)
	for _, m := range rec.Materials {
		pred, err := classify(encoder.Encode(rec.WithMaterial(m), schema))
		if err != nil {
			return models.Prediction{}, fmt.Errorf("material %q: %w", m, err)
		}
		floats.Add(mean, pred.Probabilities.Slice())
	}
	floats.Scale(1/float64(len(rec.Materials)), mean)

	probs, _ := models.ProbabilitiesFromSlice(mean)
	return models.Prediction{
		Label:         models.Labels[floats.MaxIdx(mean)],
		Probabilities: probs,
	}, nil
}
