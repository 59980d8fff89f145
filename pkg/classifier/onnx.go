package classifier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"phishguard/pkg/config"
)

// ONNXModel runs a scikit-learn classifier exported to ONNX. Inference is
// serialized on preallocated tensors.
type ONNXModel struct {
	name    string
	width   int
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	label   *ort.Tensor[int64]

	mu sync.Mutex
}

var initMu sync.Mutex

// InitRuntime points onnxruntime at its shared library and initializes the
// environment once per process.
func InitRuntime(libPath string) error {
	initMu.Lock()
	defer initMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath == "" {
		libPath = resolveSharedLibraryPath()
	}
	if libPath == "" {
		return fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or models.shared_library")
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// ShutdownRuntime releases the onnxruntime environment.
func ShutdownRuntime() error {
	initMu.Lock()
	defer initMu.Unlock()
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// LoadONNXModel opens the model described by cfg. The model's declared input
// width must equal width, the number of columns the caller will assemble.
func LoadONNXModel(cfg config.ModelConfig, width int) (*ONNXModel, error) {
	if cfg.Path == "" {
		return nil, errors.New("model path is empty")
	}
	if width <= 0 {
		return nil, fmt.Errorf("model %s: invalid input width %d", cfg.Path, width)
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", cfg.Path, err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("inspect model %s: %w", cfg.Path, err)
	}
	in, err := findInfo(inputs, cfg.InputName)
	if err != nil {
		return nil, fmt.Errorf("model %s input: %w", cfg.Path, err)
	}
	if got := declaredWidth(in.Dimensions); got > 0 && got != width {
		return nil, fmt.Errorf("model %s expects %d features, feature schema has %d", cfg.Path, got, width)
	}
	if _, err := findInfo(outputs, cfg.LabelOutput); err != nil {
		return nil, fmt.Errorf("model %s output: %w", cfg.Path, err)
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(width)))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	label, err := ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("allocate label tensor: %w", err)
	}
	session, err := ort.NewAdvancedSession(
		cfg.Path,
		[]string{cfg.InputName},
		[]string{cfg.LabelOutput},
		[]ort.Value{input},
		[]ort.Value{label},
		nil,
	)
	if err != nil {
		input.Destroy()
		label.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &ONNXModel{
		name:    filepath.Base(cfg.Path),
		width:   width,
		session: session,
		input:   input,
		label:   label,
	}, nil
}

// Predict implements Predictor.
func (m *ONNXModel) Predict(ctx context.Context, vector []float32) (Label, error) {
	if m == nil || m.session == nil {
		return 0, errors.New("onnx model not initialized")
	}
	if len(vector) != m.width {
		return 0, fmt.Errorf("model %s: got %d features, want %d", m.name, len(vector), m.width)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.input.GetData(), vector)
	if err := m.session.Run(); err != nil {
		return 0, fmt.Errorf("onnx run %s: %w", m.name, err)
	}
	return LabelFromClass(m.label.GetData()[0])
}

// Close releases the session and its tensors.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	if m.session != nil {
		errs = append(errs, m.session.Destroy())
		m.session = nil
	}
	if m.input != nil {
		errs = append(errs, m.input.Destroy())
	}
	if m.label != nil {
		errs = append(errs, m.label.Destroy())
	}
	return errors.Join(errs...)
}

func findInfo(infos []ort.InputOutputInfo, name string) (ort.InputOutputInfo, error) {
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
		names = append(names, info.Name)
	}
	return ort.InputOutputInfo{}, fmt.Errorf("%q not found (have %s)", name, strings.Join(names, ", "))
}

// declaredWidth reads N from a [batch, N] input; symbolic dimensions are
// reported as -1 and yield 0.
func declaredWidth(dims ort.Shape) int {
	if len(dims) != 2 || dims[1] <= 0 {
		return 0
	}
	return int(dims[1])
}

func resolveSharedLibraryPath() string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}
	names := []string{"libonnxruntime.so", "libonnxruntime.dylib", "onnxruntime.dll"}
	dirs := []string{".", "lib", "models", "/opt/homebrew/lib", "/usr/local/lib", "/usr/lib"}
	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
