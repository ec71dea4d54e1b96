package classifier

import (
	"context"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/danielpatrickdp/cutscan/internal/event"
)

// #region onnx-session
// onnxModel is one loaded session with its bound single-row tensors. The
// tensors are reused between calls, so Evaluate holds mu.
type onnxModel struct {
	mu      sync.Mutex
	cfg     ModelConfig
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func (m *onnxModel) destroy() {
	if m.session != nil {
		_ = m.session.Destroy()
	}
	if m.input != nil {
		_ = m.input.Destroy()
	}
	if m.output != nil {
		_ = m.output.Destroy()
	}
}

// #endregion onnx-session

// #region onnx-evaluator
// OnnxEvaluator runs exported classifier models through ONNX Runtime.
type OnnxEvaluator struct {
	models map[string]*onnxModel
}

// NewOnnxEvaluator initializes the runtime from libPath (empty uses the
// platform default) and opens one session per model.
func NewOnnxEvaluator(libPath string, models ...ModelConfig) (*OnnxEvaluator, error) {
	if len(models) == 0 {
		return nil, errors.Wrap(ErrModelUnavailable, "no models configured")
	}
	for _, m := range models {
		if _, err := os.Stat(m.Path); err != nil {
			return nil, errors.Wrapf(ErrModelUnavailable, "model %s: %v", m.Name, err)
		}
		if len(m.Features) == 0 {
			return nil, errors.Newf("model %s has no input features", m.Name)
		}
	}

	if !ort.IsInitialized() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrapf(ErrModelUnavailable, "onnxruntime init: %v", err)
		}
	}

	e := &OnnxEvaluator{models: make(map[string]*onnxModel, len(models))}
	for _, cfg := range models {
		m, err := openOnnxModel(cfg)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		e.models[cfg.Name] = m
	}
	return e, nil
}

func openOnnxModel(cfg ModelConfig) (*onnxModel, error) {
	if cfg.Input == "" {
		cfg.Input = "input"
	}
	if cfg.Output == "" {
		cfg.Output = "output"
	}
	m := &onnxModel{cfg: cfg}
	var err error
	m.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(cfg.Features))))
	if err != nil {
		return nil, errors.Wrapf(err, "model %s: input tensor", cfg.Name)
	}
	m.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		m.destroy()
		return nil, errors.Wrapf(err, "model %s: output tensor", cfg.Name)
	}
	m.session, err = ort.NewAdvancedSession(cfg.Path,
		[]string{cfg.Input}, []string{cfg.Output},
		[]ort.Value{m.input}, []ort.Value{m.output}, nil)
	if err != nil {
		m.destroy()
		return nil, errors.Wrapf(ErrModelUnavailable, "model %s: %v", cfg.Name, err)
	}
	return m, nil
}

// Evaluate implements Evaluator.
func (e *OnnxEvaluator) Evaluate(_ context.Context, model string, rec event.Record) (float64, error) {
	m, ok := e.models[model]
	if !ok {
		return 0, errors.Wrapf(ErrModelUnavailable, "model %q not loaded", model)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := featureVector(rec, m.cfg.Features, m.input.GetData()); err != nil {
		return 0, errors.Wrapf(err, "model %s", model)
	}
	if err := m.session.Run(); err != nil {
		return 0, errors.Wrapf(err, "model %s: run", model)
	}
	return float64(m.output.GetData()[0]), nil
}

// Features returns the input features of model.
func (e *OnnxEvaluator) Features(model string) ([]string, bool) {
	m, ok := e.models[model]
	if !ok {
		return nil, false
	}
	return append([]string(nil), m.cfg.Features...), true
}

// Close releases every session. The runtime environment stays up for the
// rest of the process.
func (e *OnnxEvaluator) Close() error {
	for name, m := range e.models {
		m.destroy()
		delete(e.models, name)
	}
	return nil
}

// #endregion onnx-evaluator
