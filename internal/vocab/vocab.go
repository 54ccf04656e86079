package vocab

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/Gere2/AIGNITE/internal/models"
)

//go:embed default.yaml
var defaultTables []byte

// Table keys in the vocabulary file, in validation order.
const (
	HeatSource       = "heat_source"
	Material         = "material"
	StructuralStatus = "structural_status"
	Detector         = "detector"
	DetectorType     = "detector_type"
)

var tableOrder = []string{HeatSource, Material, StructuralStatus, Detector, DetectorType}

// Entry is one code with its human-readable description.
type Entry struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Vocabulary holds the five enumerated code tables. It is read-only after
// construction and safe for concurrent use.
type Vocabulary struct {
	tables map[string][]Entry
	index  map[string]map[string]string
}

// Canonical returns the canonical string form of a categorical code: trimmed
// and NFC-normalised, so "Hormigón" typed with a combining accent matches the
// precomposed form the model was trained on.
func Canonical(code string) string {
	return norm.NFC.String(strings.TrimSpace(code))
}

// Default returns the vocabulary embedded in the binary.
func Default() *Vocabulary {
	v, err := Parse(defaultTables)
	if err != nil {
		panic(fmt.Sprintf("vocab: embedded tables: %v", err))
	}
	return v
}

// Load reads a vocabulary file. An empty path returns the embedded default.
func Load(path string) (*Vocabulary, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return Parse(data)
}

// Parse decodes vocabulary YAML. The declared order of codes is preserved so
// listings read the way the file was written.
func Parse(data []byte) (*Vocabulary, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse vocabulary: top level must be a mapping")
	}

	v := &Vocabulary{
		tables: make(map[string][]Entry, len(tableOrder)),
		index:  make(map[string]map[string]string, len(tableOrder)),
	}
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		body := root.Content[i+1]
		if body.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("parse vocabulary: table %q must be a mapping", name)
		}
		idx := make(map[string]string, len(body.Content)/2)
		var entries []Entry
		for j := 0; j+1 < len(body.Content); j += 2 {
			code := Canonical(body.Content[j].Value)
			if code == "" {
				return nil, fmt.Errorf("parse vocabulary: table %q has an empty code", name)
			}
			if strings.Contains(code, models.MaterialSeparator) {
				return nil, fmt.Errorf("parse vocabulary: code %q in %q contains %q", code, name, models.MaterialSeparator)
			}
			if _, dup := idx[code]; dup {
				return nil, fmt.Errorf("parse vocabulary: duplicate code %q in %q", code, name)
			}
			idx[code] = body.Content[j+1].Value
			entries = append(entries, Entry{Code: code, Description: body.Content[j+1].Value})
		}
		v.tables[name] = entries
		v.index[name] = idx
	}

	for _, name := range tableOrder {
		if len(v.tables[name]) == 0 {
			return nil, fmt.Errorf("parse vocabulary: table %q is missing or empty", name)
		}
	}
	return v, nil
}

// Contains reports whether code (after canonicalisation) belongs to table.
func (v *Vocabulary) Contains(table, code string) bool {
	_, ok := v.index[table][Canonical(code)]
	return ok
}

// Describe returns the description for a code, or "" if unknown.
func (v *Vocabulary) Describe(table, code string) string {
	return v.index[table][Canonical(code)]
}

// Entries returns a copy of one table in declared order.
func (v *Vocabulary) Entries(table string) []Entry {
	return append([]Entry(nil), v.tables[table]...)
}

// Tables returns a copy of all five tables keyed by table name.
func (v *Vocabulary) Tables() map[string][]Entry {
	out := make(map[string][]Entry, len(tableOrder))
	for _, name := range tableOrder {
		out[name] = v.Entries(name)
	}
	return out
}

// TableNames lists the table keys in validation order.
func TableNames() []string {
	return append([]string(nil), tableOrder...)
}
