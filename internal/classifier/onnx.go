package classifier

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv manages the ONNX Runtime environment, which is process-wide by
// nature of the C library.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// Output names skl2onnx uses for class probabilities (zipmap disabled).
var probabilityOutputs = []string{"probabilities", "output_probability"}

type onnxClassifier struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	nFeatures  int64
	nClasses   int64
}

// newONNX opens an ONNX export of the classifier. The runtime library
// defaults to libonnxruntime.so next to the model file.
func newONNX(modelPath, libPath string, nFeatures, nClasses int) (*onnxClassifier, error) {
	if libPath == "" {
		libPath = filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	}
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected exactly one input tensor, got %d", len(inputs))
	}
	if dims := inputs[0].Dimensions; len(dims) != 2 || (dims[1] > 0 && dims[1] != int64(nFeatures)) {
		return nil, fmt.Errorf("onnx: input shape %v does not match %d features", dims, nFeatures)
	}
	outputName, err := pickProbabilityOutput(outputs, int64(nClasses))
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{inputs[0].Name}, []string{outputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}
	return &onnxClassifier{
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputName,
		nFeatures:  int64(nFeatures),
		nClasses:   int64(nClasses),
	}, nil
}

func pickProbabilityOutput(outputs []ort.InputOutputInfo, nClasses int64) (string, error) {
	for _, o := range outputs {
		if slices.Contains(probabilityOutputs, o.Name) {
			return o.Name, nil
		}
	}
	for _, o := range outputs {
		if len(o.Dimensions) == 2 && o.Dimensions[1] == nClasses {
			return o.Name, nil
		}
	}
	return "", fmt.Errorf("onnx: no [batch, %d] probability output among %d outputs", nClasses, len(outputs))
}

func (c *onnxClassifier) PredictProba(x []float64) ([]float64, error) {
	if err := checkWidth(x, int(c.nFeatures)); err != nil {
		return nil, err
	}
	in := make([]float32, len(x))
	for i, v := range x {
		in[i] = float32(v)
	}

	tIn, err := ort.NewTensor(ort.NewShape(1, c.nFeatures), in)
	if err != nil {
		return nil, fmt.Errorf("onnx: create input tensor: %w", err)
	}
	defer tIn.Destroy()

	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(1, c.nClasses))
	if err != nil {
		return nil, fmt.Errorf("onnx: create output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := c.session.Run([]ort.Value{tIn}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	src := tOut.GetData()
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = float64(v)
	}
	return out, nil
}

func (c *onnxClassifier) Kind() string { return KindONNX }

func (c *onnxClassifier) Close() error {
	return c.session.Destroy()
}
