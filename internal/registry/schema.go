package registry

import (
	"fmt"
	"strings"
)

// Schema is the ordered feature-column vocabulary produced at training time.
// It is immutable: accessors hand out copies.
type Schema struct {
	columns     []string
	index       map[string]int
	categorical []string
	catSet      map[string]bool
}

// NewSchema builds a schema from the training column order and the set of
// categorical source columns.
func NewSchema(columns, categorical []string) (*Schema, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("schema has no columns")
	}
	if len(categorical) == 0 {
		return nil, fmt.Errorf("schema has no categorical columns")
	}
	s := &Schema{
		columns:     append([]string(nil), columns...),
		index:       make(map[string]int, len(columns)),
		categorical: append([]string(nil), categorical...),
		catSet:      make(map[string]bool, len(categorical)),
	}
	for i, c := range columns {
		if strings.TrimSpace(c) == "" {
			return nil, fmt.Errorf("schema column %d is empty", i)
		}
		if _, dup := s.index[c]; dup {
			return nil, fmt.Errorf("schema column %q appears twice", c)
		}
		s.index[c] = i
	}
	for _, c := range categorical {
		if s.catSet[c] {
			return nil, fmt.Errorf("categorical column %q appears twice", c)
		}
		s.catSet[c] = true
	}
	return s, nil
}

// Len is the encoded vector length.
func (s *Schema) Len() int { return len(s.columns) }

// Columns returns the column names in training order.
func (s *Schema) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Column returns the name of column i.
func (s *Schema) Column(i int) string { return s.columns[i] }

// Index returns the position of a column, or false if training never saw it.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// IsCategorical reports whether a source field was one-hot encoded.
func (s *Schema) IsCategorical(field string) bool { return s.catSet[field] }

// CategoricalColumns returns the categorical source fields.
func (s *Schema) CategoricalColumns() []string {
	return append([]string(nil), s.categorical...)
}
