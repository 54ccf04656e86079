// Package classifier evaluates trained risk models exported by the offline
// training job. Every back-end returns probabilities in the model's own class
// order; mapping onto Low/Medium/High is the registry's job.
package classifier

import (
	"fmt"
	"path/filepath"
)

// Model kinds understood by New.
const (
	KindRandomForest = "random_forest"
	KindLogistic     = "logistic"
	KindONNX         = "onnx"
)

// Classifier scores a single encoded feature vector.
type Classifier interface {
	PredictProba(x []float64) ([]float64, error)
	Kind() string
	Close() error
}

// Spec is the "model" block of an artifact bundle.
type Spec struct {
	Kind string `json:"kind"`

	// random_forest
	Trees []Tree `json:"trees,omitempty"`

	// logistic: Coefficients is [classes][features].
	Coefficients [][]float64 `json:"coefficients,omitempty"`
	Intercepts   []float64   `json:"intercepts,omitempty"`

	// onnx: Path is resolved against Options.BaseDir when relative.
	Path string `json:"path,omitempty"`
}

// Options carries load-time settings that are not part of the artifact.
type Options struct {
	BaseDir     string
	RuntimePath string
}

// New builds the classifier described by spec for nFeatures inputs and
// nClasses outputs.
func New(spec Spec, nFeatures, nClasses int, opts Options) (Classifier, error) {
	if nFeatures <= 0 || nClasses <= 0 {
		return nil, fmt.Errorf("classifier: need positive feature and class counts, got %d and %d", nFeatures, nClasses)
	}
	switch spec.Kind {
	case KindRandomForest:
		return newForest(spec.Trees, nFeatures, nClasses)
	case KindLogistic:
		return newLogistic(spec.Coefficients, spec.Intercepts, nFeatures, nClasses)
	case KindONNX:
		if spec.Path == "" {
			return nil, fmt.Errorf("classifier: onnx model path is empty")
		}
		path := spec.Path
		if !filepath.IsAbs(path) && opts.BaseDir != "" {
			path = filepath.Join(opts.BaseDir, path)
		}
		return newONNX(path, opts.RuntimePath, nFeatures, nClasses)
	case "":
		return nil, fmt.Errorf("classifier: model kind is empty")
	default:
		return nil, fmt.Errorf("classifier: unknown model kind %q", spec.Kind)
	}
}

func checkWidth(x []float64, n int) error {
	if len(x) != n {
		return fmt.Errorf("classifier: expected %d features, got %d", n, len(x))
	}
	return nil
}
