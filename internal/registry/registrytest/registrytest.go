// Package registrytest provides a small trained artifact for tests.
//
// The forest has one tree that only looks at the material columns:
//
//	Metal     -> Low 0.7, Medium 0.2, High 0.1
//	Hormigón  -> Low 0.3, Medium 0.4, High 0.3
//	Madera    -> Low 0.1, Medium 0.2, High 0.7
//	otherwise -> Low 0.2, Medium 0.5, High 0.3
//
// Its classes are stored in scikit-learn's sorted order (Alto, Bajo, Medio).
package registrytest

import (
	_ "embed"
	"os"
	"path/filepath"
	"testing"

	"github.com/Gere2/AIGNITE/internal/registry"
)

//go:embed forest.json
var ForestArtifact []byte

// WriteArtifact writes the forest artifact into dir and returns its path.
func WriteArtifact(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "model.json")
	if err := os.WriteFile(path, ForestArtifact, 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

// Load returns a registry backed by the forest artifact.
func Load(t testing.TB) *registry.Registry {
	t.Helper()
	reg, err := registry.Load(WriteArtifact(t, t.TempDir()), registry.Options{})
	if err != nil {
		t.Fatalf("load artifact: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}
