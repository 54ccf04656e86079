package classifier

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

const leaf = -1

// Tree is one decision tree in scikit-learn's flat array layout. Node 0 is
// the root; a node is a leaf when ChildrenLeft is -1.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

type compiledTree struct {
	left, right []int
	feature     []int
	threshold   []float64
	dist        [][]float64 // normalised, leaves only
}

type forest struct {
	trees     []compiledTree
	nFeatures int
	nClasses  int
}

func newForest(trees []Tree, nFeatures, nClasses int) (*forest, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("classifier: random forest has no trees")
	}
	f := &forest{nFeatures: nFeatures, nClasses: nClasses}
	for i, t := range trees {
		ct, err := compileTree(t, nFeatures, nClasses)
		if err != nil {
			return nil, fmt.Errorf("classifier: tree %d: %w", i, err)
		}
		f.trees = append(f.trees, ct)
	}
	return f, nil
}

// compileTree checks the arrays and pre-normalises leaf distributions.
// Children must point forward, which rules out cycles.
func compileTree(t Tree, nFeatures, nClasses int) (compiledTree, error) {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return compiledTree{}, fmt.Errorf("empty tree")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return compiledTree{}, fmt.Errorf("node arrays have different lengths")
	}

	ct := compiledTree{
		left:      t.ChildrenLeft,
		right:     t.ChildrenRight,
		feature:   t.Feature,
		threshold: t.Threshold,
		dist:      make([][]float64, n),
	}
	for node := 0; node < n; node++ {
		l, r := t.ChildrenLeft[node], t.ChildrenRight[node]
		if l == leaf {
			if r != leaf {
				return compiledTree{}, fmt.Errorf("node %d has only one child", node)
			}
			v := t.Value[node]
			if len(v) != nClasses {
				return compiledTree{}, fmt.Errorf("leaf %d has %d class values, want %d", node, len(v), nClasses)
			}
			sum := floats.Sum(v)
			if sum <= 0 || floats.Min(v) < 0 {
				return compiledTree{}, fmt.Errorf("leaf %d has no usable class weight", node)
			}
			d := make([]float64, nClasses)
			floats.ScaleTo(d, 1/sum, v)
			ct.dist[node] = d
			continue
		}
		if l <= node || l >= n || r <= node || r >= n {
			return compiledTree{}, fmt.Errorf("node %d has out-of-range children %d/%d", node, l, r)
		}
		if f := t.Feature[node]; f < 0 || f >= nFeatures {
			return compiledTree{}, fmt.Errorf("node %d splits on feature %d of %d", node, f, nFeatures)
		}
	}
	return ct, nil
}

func (t *compiledTree) leafFor(x []float64) []float64 {
	node := 0
	for t.left[node] != leaf {
		if x[t.feature[node]] <= t.threshold[node] {
			node = t.left[node]
		} else {
			node = t.right[node]
		}
	}
	return t.dist[node]
}

// PredictProba averages the per-tree leaf distributions, as scikit-learn's
// RandomForestClassifier.predict_proba does.
func (f *forest) PredictProba(x []float64) ([]float64, error) {
	if err := checkWidth(x, f.nFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, f.nClasses)
	for i := range f.trees {
		floats.Add(out, f.trees[i].leafFor(x))
	}
	floats.Scale(1/float64(len(f.trees)), out)
	return out, nil
}

func (f *forest) Kind() string { return KindRandomForest }

func (f *forest) Close() error { return nil }
