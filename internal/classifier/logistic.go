package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// logistic is a multinomial logistic regression: softmax(W·x + b).
type logistic struct {
	w         *mat.Dense
	b         *mat.VecDense
	nFeatures int
	nClasses  int
}

func newLogistic(coef [][]float64, intercepts []float64, nFeatures, nClasses int) (*logistic, error) {
	if len(coef) != nClasses {
		return nil, fmt.Errorf("classifier: logistic has %d coefficient rows, want %d", len(coef), nClasses)
	}
	if len(intercepts) != nClasses {
		return nil, fmt.Errorf("classifier: logistic has %d intercepts, want %d", len(intercepts), nClasses)
	}
	data := make([]float64, 0, nClasses*nFeatures)
	for i, row := range coef {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("classifier: logistic row %d has %d coefficients, want %d", i, len(row), nFeatures)
		}
		data = append(data, row...)
	}
	return &logistic{
		w:         mat.NewDense(nClasses, nFeatures, data),
		b:         mat.NewVecDense(nClasses, append([]float64(nil), intercepts...)),
		nFeatures: nFeatures,
		nClasses:  nClasses,
	}, nil
}

func (l *logistic) PredictProba(x []float64) ([]float64, error) {
	if err := checkWidth(x, l.nFeatures); err != nil {
		return nil, err
	}
	var z mat.VecDense
	z.MulVec(l.w, mat.NewVecDense(l.nFeatures, append([]float64(nil), x...)))
	z.AddVec(&z, l.b)

	out := make([]float64, l.nClasses)
	for i := range out {
		out[i] = z.AtVec(i)
	}
	softmax(out)
	return out, nil
}

// softmax normalises v in place, shifting by the max for numerical stability.
func softmax(v []float64) {
	floats.AddConst(-floats.Max(v), v)
	for i := range v {
		v[i] = math.Exp(v[i])
	}
	floats.Scale(1/floats.Sum(v), v)
}

func (l *logistic) Kind() string { return KindLogistic }

func (l *logistic) Close() error { return nil }
