package classifier

import (
	"context"

	"github.com/danielpatrickdp/cutscan/internal/event"
)

// #region variant
// Variant selects where a scan variable comes from. It is fixed when the
// job is configured and dispatched once per record through Source.Score.
type Variant int

const (
	// RawFeature reads a record field or derived quantity directly.
	RawFeature Variant = iota
	// ModelA is the neural network classifier output.
	ModelA
	// ModelB is the boosted decision tree output.
	ModelB
)

// Model names as registered with an Evaluator.
const (
	ModelAName = "ANN"
	ModelBName = "BDT"
)

// #endregion variant

// #region source
// Source is one scan variable.
type Source struct {
	Variant Variant
	// Feature names the record field for RawFeature.
	Feature string
	// Inputs lists the record fields a model reads, used to project the
	// dataset. Ignored for RawFeature.
	Inputs []string
}

// #endregion source

// #region evaluator
// Evaluator scores a record with a named model. It must be deterministic for
// a given record and model.
type Evaluator interface {
	Evaluate(ctx context.Context, model string, rec event.Record) (float64, error)
	Close() error
}

// ModelConfig describes one ONNX model and the order of its input features.
type ModelConfig struct {
	Name     string
	Path     string
	Input    string   // input tensor name
	Output   string   // output tensor name
	Features []string // record fields, in tensor column order
}

// #endregion evaluator
