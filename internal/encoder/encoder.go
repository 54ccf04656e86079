// Package encoder turns an attribute record into the one-hot feature vector a
// schema expects.
package encoder

import (
	"github.com/Gere2/AIGNITE/internal/models"
	"github.com/Gere2/AIGNITE/internal/registry"
	"github.com/Gere2/AIGNITE/internal/vocab"
)

// Encoding is the vector for one record together with the compound keys that
// produced it.
type Encoding struct {
	Vector  models.EncodedVector `json:"vector"`
	Active  []string             `json:"active"`
	Dropped []string             `json:"dropped"`
}

// Key builds the compound column name for a categorical code.
func Key(field, code string) string {
	return field + "_" + vocab.Canonical(code)
}

// Encode returns the vector for rec, aligned to schema's column order.
// Keys the schema does not know are dropped and columns the record does not
// produce stay zero.
func Encode(rec models.AttributeRecord, schema *registry.Schema) models.EncodedVector {
	return Explain(rec, schema).Vector
}

// Explain is Encode plus the list of columns set and keys dropped.
func Explain(rec models.AttributeRecord, schema *registry.Schema) Encoding {
	enc := Encoding{
		Vector:  make(models.EncodedVector, schema.Len()),
		Active:  []string{},
		Dropped: []string{},
	}

	for _, key := range compoundKeys(rec) {
		i, ok := schema.Index(key)
		if !ok {
			enc.Dropped = append(enc.Dropped, key)
			continue
		}
		if enc.Vector[i] == 0 {
			enc.Active = append(enc.Active, key)
		}
		enc.Vector[i] = 1
	}

	if i, ok := schema.Index(models.FieldArea); ok {
		enc.Vector[i] = rec.Area
		enc.Active = append(enc.Active, models.FieldArea)
	}
	return enc
}

// compoundKeys lists the one-hot keys of rec in field order. Empty codes
// produce no key.
func compoundKeys(rec models.AttributeRecord) []string {
	keys := make([]string, 0, 4+len(rec.Materials))
	add := func(field, code string) {
		if vocab.Canonical(code) == "" {
			return
		}
		keys = append(keys, Key(field, code))
	}
	add(models.FieldHeatSource, rec.HeatSource)
	for _, m := range rec.Materials {
		add(models.FieldMaterial, m)
	}
	add(models.FieldStructuralStatus, rec.StructuralStatus)
	add(models.FieldDetector, rec.Detector)
	add(models.FieldDetectorType, rec.DetectorType)
	return keys
}
