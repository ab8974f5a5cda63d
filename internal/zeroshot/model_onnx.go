//go:build onnx
// +build onnx

package zeroshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// onnxModel implements Model using ONNX Runtime (via yalue/onnxruntime_go).
type onnxModel struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	dir        string
	logger     *zap.Logger
	mu         sync.Mutex
}

var ortInit sync.Once
var ortInitErr error

func initRuntime() error {
	ortInit.Do(func() {
		// Allow user to provide shared library path via environment variable.
		if shlib := os.Getenv("ONNXRUNTIME_SHARED_LIB"); shlib != "" {
			ort.SetSharedLibraryPath(shlib)
		} else if shlib := os.Getenv("ORT_SHLIB"); shlib != "" {
			ort.SetSharedLibraryPath(shlib)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// LoadModel resolves a model directory (model.onnx + config.json) to an
// inference-only ONNX Runtime session. Requires build tag 'onnx'.
func LoadModel(dir string, logger *zap.Logger) (Model, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := verifyNLISchema(dir); err != nil {
		return nil, err
	}

	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("onnx runtime init failed: %w", err)
	}

	modelFile := filepath.Join(dir, "model.onnx")
	inputsInfo, outputsInfo, err := ort.GetInputOutputInfo(modelFile)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect model IO for %s: %w", modelFile, err)
	}

	// Prefer common transformer inputs order.
	preferredInputs := []string{"input_ids", "attention_mask", "token_type_ids"}
	available := map[string]bool{}
	for _, ii := range inputsInfo {
		available[strings.ToLower(ii.Name)] = true
	}
	var inputNames []string
	for _, name := range preferredInputs {
		if available[name] {
			inputNames = append(inputNames, name)
		}
	}
	// If no preferred names matched, fall back to model-declared names in
	// a stable order.
	if len(inputNames) == 0 && len(inputsInfo) > 0 {
		sorted := make([]string, 0, len(inputsInfo))
		for _, ii := range inputsInfo {
			sorted = append(sorted, ii.Name)
		}
		sort.Strings(sorted)
		inputNames = sorted
	}

	if len(outputsInfo) == 0 {
		return nil, fmt.Errorf("%w: model %s reports no outputs", ErrModelOutput, modelFile)
	}
	outputName := outputsInfo[0].Name

	session, err := ort.NewDynamicAdvancedSession(modelFile, inputNames, []string{outputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("onnx session creation failed for %s: %w", modelFile, err)
	}

	logger.Info("ONNX NLI model loaded",
		zap.String("model", modelFile),
		zap.Strings("inputs", inputNames),
		zap.String("output", outputName))

	return &onnxModel{
		session:    session,
		inputNames: inputNames,
		outputName: outputName,
		dir:        dir,
		logger:     logger,
	}, nil
}

// Path returns the model directory the session was loaded from.
func (m *onnxModel) Path() string {
	return m.dir
}

// Close releases the session. Safe to call more than once.
func (m *onnxModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	return nil
}

// Infer runs the batched forward pass and returns per-pair NLI logits.
func (m *onnxModel) Infer(ctx context.Context, batch *EncodedBatch) ([][]float32, error) {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()
	if session == nil {
		return nil, fmt.Errorf("%w: session closed", ErrModelNotLoaded)
	}

	n := batch.Size()
	if n == 0 {
		return [][]float32{}, nil
	}
	seqLen := batch.SeqLen

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	inputIDs := make([]int64, 0, n*seqLen)
	attention := make([]int64, 0, n*seqLen)
	tokenTypes := make([]int64, 0, n*seqLen)
	for i := 0; i < n; i++ {
		inputIDs = append(inputIDs, batch.InputIDs[i]...)
		attention = append(attention, batch.AttentionMask[i]...)
		tokenTypes = append(tokenTypes, batch.TokenTypeIDs[i]...)
	}

	shape := ort.NewShape(int64(n), int64(seqLen))
	idsTensor, err := ort.NewTensor[int64](shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor[int64](shape, attention)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor[int64](shape, tokenTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	inputs := make([]ort.Value, 0, len(m.inputNames))
	for _, rawName := range m.inputNames {
		switch name := strings.ToLower(rawName); {
		case strings.Contains(name, "ids") && !strings.Contains(name, "type"):
			inputs = append(inputs, idsTensor)
		case strings.Contains(name, "attention") || strings.Contains(name, "mask"):
			inputs = append(inputs, maskTensor)
		case strings.Contains(name, "token_type") || strings.Contains(name, "segment"):
			inputs = append(inputs, typeTensor)
		default:
			inputs = append(inputs, idsTensor)
		}
	}

	outputs := make([]ort.Value, 1)
	if err := session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("onnx run failed: %w", err)
	}
	if len(outputs) == 0 || outputs[0] == nil {
		return nil, fmt.Errorf("%w: onnx returned no outputs", ErrModelOutput)
	}
	defer func() {
		if outputs[0] != nil {
			_ = outputs[0].Destroy()
		}
	}()

	outTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("%w: want float32 tensor", ErrModelOutput)
	}
	data := outTensor.GetData()
	outShape := outTensor.GetShape()
	if len(outShape) != 2 {
		return nil, fmt.Errorf("%w: unsupported output shape %v", ErrModelOutput, outShape)
	}
	classes := int(outShape[1])
	if classes != numNLIClasses {
		return nil, fmt.Errorf("%w: got %d classes, want %d", ErrModelOutput, classes, numNLIClasses)
	}
	if len(data) != n*classes {
		return nil, fmt.Errorf("%w: flat data length %d for shape %v", ErrModelOutput, len(data), outShape)
	}

	logits := make([][]float32, n)
	for i := 0; i < n; i++ {
		row := make([]float32, classes)
		copy(row, data[i*classes:(i+1)*classes])
		logits[i] = row
	}
	return logits, nil
}
