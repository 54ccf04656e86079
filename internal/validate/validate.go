// Package validate checks raw attribute codes against the vocabulary tables.
package validate

import (
	"fmt"
	"math"

	"github.com/Gere2/AIGNITE/internal/models"
	"github.com/Gere2/AIGNITE/internal/vocab"
)

// Validator checks records against one vocabulary. It holds no mutable state.
type Validator struct {
	vocab *vocab.Vocabulary
}

func New(v *vocab.Vocabulary) *Validator {
	return &Validator{vocab: v}
}

// Validate reports every violation in rec, in field order. ok is true only
// when the list is empty. An empty material selection is not a violation
// here; the predictor rejects it.
func (v *Validator) Validate(rec models.AttributeRecord) (bool, []string) {
	var violations []string
	check := func(table, label, code string) {
		if !v.vocab.Contains(table, code) {
			violations = append(violations, fmt.Sprintf("unknown %s code %q", label, code))
		}
	}

	check(vocab.HeatSource, "heat source", rec.HeatSource)
	for _, m := range rec.Materials {
		check(vocab.Material, "material", m)
	}
	check(vocab.StructuralStatus, "structural status", rec.StructuralStatus)
	check(vocab.Detector, "detector", rec.Detector)
	check(vocab.DetectorType, "detector type", rec.DetectorType)

	switch {
	case !(rec.Area > 0):
		violations = append(violations, "area must be greater than 0")
	case math.IsInf(rec.Area, 1):
		violations = append(violations, "area must be finite")
	}
	return len(violations) == 0, violations
}
