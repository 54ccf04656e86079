// Package registry loads the trained model artifact: the classifier together
// with the column schema it was trained against. Both come from one file and
// are loaded once per process.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"github.com/Gere2/AIGNITE/internal/classifier"
	"github.com/Gere2/AIGNITE/internal/models"
)

var (
	ErrArtifactMissing = errors.New("model artifact missing")
	ErrArtifactCorrupt = errors.New("model artifact corrupt")
)

// bundle is the on-disk artifact layout written by the training job.
type bundle struct {
	Version            string          `json:"version"`
	Classes            []string        `json:"classes"`
	Columns            []string        `json:"columns"`
	CategoricalColumns []string        `json:"categorical_columns"`
	Model              classifier.Spec `json:"model"`
}

// Options holds load-time settings not stored in the artifact.
type Options struct {
	ONNXRuntimePath string
}

// Info describes the loaded artifact.
type Info struct {
	Path               string   `json:"path,omitempty"`
	Version            string   `json:"version"`
	ModelKind          string   `json:"model_kind"`
	Classes            []string `json:"classes"`
	ColumnCount        int      `json:"column_count"`
	CategoricalColumns []string `json:"categorical_columns"`
}

// Registry pairs a schema with the classifier trained on it. It is never
// mutated after construction and is safe for concurrent use.
type Registry struct {
	schema  *Schema
	model   classifier.Classifier
	perm    [models.NumLabels]int // canonical label -> model output index
	classes []string
	version string
	path    string
}

// Load reads and validates the artifact at path.
func Load(path string, opts Options) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrArtifactCorrupt, path, err)
	}

	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrArtifactCorrupt, path, err)
	}

	schema, err := NewSchema(b.Columns, b.CategoricalColumns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}
	model, err := classifier.New(b.Model, schema.Len(), len(b.Classes), classifier.Options{
		BaseDir:     filepath.Dir(path),
		RuntimePath: opts.ONNXRuntimePath,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}

	r, err := New(schema, model, b.Classes, b.Version)
	if err != nil {
		model.Close()
		return nil, err
	}
	r.path = path
	return r, nil
}

// New assembles a registry from parts. classes is the classifier's output
// order; it must name Low, Medium and High exactly once each.
func New(schema *Schema, model classifier.Classifier, classes []string, version string) (*Registry, error) {
	if len(classes) != models.NumLabels {
		return nil, fmt.Errorf("%w: expected %d classes, got %d", ErrArtifactCorrupt, models.NumLabels, len(classes))
	}
	r := &Registry{
		schema:  schema,
		model:   model,
		classes: append([]string(nil), classes...),
		version: version,
	}
	seen := [models.NumLabels]bool{}
	for i, name := range classes {
		label, err := models.ParseRiskLabel(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
		}
		if seen[label] {
			return nil, fmt.Errorf("%w: class %s listed twice", ErrArtifactCorrupt, label)
		}
		seen[label] = true
		r.perm[label] = i
	}
	return r, nil
}

// Schema returns the training-time schema.
func (r *Registry) Schema() *Schema { return r.schema }

// Classify runs the model on one encoded vector and returns the distribution
// in Low, Medium, High order. Ties go to the lower-risk label.
func (r *Registry) Classify(vec models.EncodedVector) (models.Prediction, error) {
	if len(vec) != r.schema.Len() {
		return models.Prediction{}, fmt.Errorf("classify: vector has %d columns, schema has %d", len(vec), r.schema.Len())
	}
	raw, err := r.model.PredictProba(vec)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("classify: %w", err)
	}
	if len(raw) != models.NumLabels {
		return models.Prediction{}, fmt.Errorf("classify: model returned %d probabilities", len(raw))
	}

	dist := make([]float64, models.NumLabels)
	for label, idx := range r.perm {
		p := raw[idx]
		if p < 0 || math.IsNaN(p) {
			return models.Prediction{}, fmt.Errorf("classify: model returned invalid probability %v", p)
		}
		dist[label] = p
	}
	sum := floats.Sum(dist)
	if sum <= 0 {
		return models.Prediction{}, fmt.Errorf("classify: model returned an all-zero distribution")
	}
	// float32 back-ends drift slightly from 1.
	floats.Scale(1/sum, dist)

	probs, _ := models.ProbabilitiesFromSlice(dist)
	return models.Prediction{
		Label:         models.Labels[floats.MaxIdx(dist)],
		Probabilities: probs,
	}, nil
}

// Info describes the artifact for diagnostics.
func (r *Registry) Info() Info {
	return Info{
		Path:               r.path,
		Version:            r.version,
		ModelKind:          r.model.Kind(),
		Classes:            append([]string(nil), r.classes...),
		ColumnCount:        r.schema.Len(),
		CategoricalColumns: r.schema.CategoricalColumns(),
	}
}

// Close releases model resources (ONNX sessions).
func (r *Registry) Close() error {
	return r.model.Close()
}
