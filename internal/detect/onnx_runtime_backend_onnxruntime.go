//go:build onnxruntime

package detect

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ortEnv struct {
	once sync.Once
	err  error
}

func initONNXRuntime() error {
	ortEnv.once.Do(func() {
		if lib := strings.TrimSpace(os.Getenv("NERLIGHT_ONNXRUNTIME_LIB")); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

func createONNXSession(modelPath string) (nerSession, error) {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("NERLIGHT_ONNX_BACKEND")))
	if backend == "python" {
		return newPythonONNXSession(modelPath), nil
	}
	if err := initONNXRuntime(); err != nil {
		return nil, fmt.Errorf("init onnxruntime: %w", err)
	}
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect model: %w", err)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has no outputs", modelPath)
	}
	inputNames := make([]string, 0, len(inputs))
	for _, in := range inputs {
		inputNames = append(inputNames, in.Name)
	}
	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{outputs[0].Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return &nativeONNXSession{session: session, inputNames: inputNames}, nil
}

type nativeONNXSession struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	inputNames []string
}

func (s *nativeONNXSession) Run(ctx context.Context, inputIDs, attentionMask, tokenTypeIDs []int64) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seqLen := int64(len(inputIDs))
	shape := ort.NewShape(1, seqLen)

	inputs := make([]ort.Value, 0, len(s.inputNames))
	defer func() {
		for _, v := range inputs {
			_ = v.Destroy()
		}
	}()
	for _, name := range s.inputNames {
		var data []int64
		switch {
		case strings.Contains(name, "input_ids"):
			data = inputIDs
		case strings.Contains(name, "attention_mask"):
			data = attentionMask
		case strings.Contains(name, "token_type_ids"):
			data = tokenTypeIDs
		default:
			data = make([]int64, seqLen)
		}
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", name, err)
		}
		inputs = append(inputs, t)
	}

	outputs := []ort.Value{nil}
	s.mu.Lock()
	err := s.session.Run(inputs, outputs)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnxruntime inference failed: %w", err)
	}
	defer func() { _ = outputs[0].Destroy() }()

	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	dims := tensor.GetShape()
	if len(dims) != 3 || dims[1] != seqLen {
		return nil, fmt.Errorf("unexpected logits shape %v", dims)
	}
	numLabels := int(dims[2])
	data := tensor.GetData()
	logits := make([][]float32, seqLen)
	for i := range logits {
		row := make([]float32, numLabels)
		copy(row, data[i*numLabels:(i+1)*numLabels])
		logits[i] = row
	}
	return logits, nil
}
