package models

import (
	"fmt"
	"strings"
	"time"
)

// Source column names used by the training job. Encoded feature columns are
// built as "<column>_<code>".
const (
	FieldHeatSource       = "HEAT_SOURC"
	FieldMaterial         = "TYPE_MAT"
	FieldStructuralStatus = "STRUC_STAT"
	FieldDetector         = "DETECTOR"
	FieldDetectorType     = "DET_TYPE"
	FieldArea             = "AREA"
)

// MaterialSeparator joins multiple selected materials in the persisted record.
const MaterialSeparator = ","

// RiskLabel is one of the three ordered risk classes.
type RiskLabel int

const (
	RiskLow RiskLabel = iota
	RiskMedium
	RiskHigh
)

// NumLabels is the size of every probability distribution.
const NumLabels = 3

// Labels lists the risk classes in canonical (and tie-break) order.
var Labels = [NumLabels]RiskLabel{RiskLow, RiskMedium, RiskHigh}

func (l RiskLabel) String() string {
	switch l {
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	default:
		return fmt.Sprintf("RiskLabel(%d)", int(l))
	}
}

// Valid reports whether l is one of the three known classes.
func (l RiskLabel) Valid() bool {
	return l >= RiskLow && l <= RiskHigh
}

// ParseRiskLabel accepts English or Spanish class names, case-insensitive.
// Training artifacts from the original pipeline use Bajo/Medio/Alto.
func ParseRiskLabel(s string) (RiskLabel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "bajo":
		return RiskLow, nil
	case "medium", "medio":
		return RiskMedium, nil
	case "high", "alto":
		return RiskHigh, nil
	}
	return 0, fmt.Errorf("unknown risk label %q", s)
}

func (l RiskLabel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid risk label %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *RiskLabel) UnmarshalText(b []byte) error {
	parsed, err := ParseRiskLabel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// AttributeRecord holds one incident's raw attributes as entered by the caller.
// Materials is the only field that may carry more than one selected code.
type AttributeRecord struct {
	HeatSource       string   `json:"heat_source"`
	Materials        []string `json:"materials"`
	StructuralStatus string   `json:"structural_status"`
	Detector         string   `json:"detector"`
	DetectorType     string   `json:"detector_type"`
	Area             float64  `json:"area"`
}

// WithMaterial returns a copy of r whose material selection is the single code.
func (r AttributeRecord) WithMaterial(code string) AttributeRecord {
	r.Materials = []string{code}
	return r
}

// EncodedVector is a feature vector aligned 1:1 with a schema's column order.
type EncodedVector []float64

// Probabilities is a distribution over the three risk labels.
type Probabilities struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// Slice returns the distribution in canonical label order.
func (p Probabilities) Slice() []float64 {
	return []float64{p.Low, p.Medium, p.High}
}

// Of returns the probability assigned to label l.
func (p Probabilities) Of(l RiskLabel) float64 {
	switch l {
	case RiskLow:
		return p.Low
	case RiskMedium:
		return p.Medium
	case RiskHigh:
		return p.High
	}
	return 0
}

// ProbabilitiesFromSlice builds a distribution from a canonical-order slice.
func ProbabilitiesFromSlice(v []float64) (Probabilities, error) {
	if len(v) != NumLabels {
		return Probabilities{}, fmt.Errorf("expected %d probabilities, got %d", NumLabels, len(v))
	}
	return Probabilities{Low: v[0], Medium: v[1], High: v[2]}, nil
}

// Prediction is the model's verdict for one attribute record.
type Prediction struct {
	Label         RiskLabel     `json:"label"`
	Probabilities Probabilities `json:"probabilities"`
}

// PredictionRecord is a persisted assessment.
type PredictionRecord struct {
	ID         int64           `json:"id"`
	Attributes AttributeRecord `json:"attributes"`
	Prediction Prediction      `json:"prediction"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Stats summarises the persisted assessments.
type Stats struct {
	Total   int64            `json:"total"`
	ByLabel map[string]int64 `json:"by_label"`
	ByDay   []DayCount       `json:"by_day"`
}

// DayCount is the number of assessments created on one UTC day.
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}
