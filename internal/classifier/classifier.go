package classifier

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/danielpatrickdp/cutscan/internal/event"
)

var (
	// ErrModelUnavailable is returned when a model cannot be loaded or
	// reached.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrNoEvaluator is returned when a model variable is scored without
	// an evaluator.
	ErrNoEvaluator = errors.New("no classifier evaluator configured")
)

// #region variant
// ParseVariant maps "raw", "ann" or "bdt" onto a Variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "raw", "feature":
		return RawFeature, nil
	case "ann", "model_a":
		return ModelA, nil
	case "bdt", "model_b":
		return ModelB, nil
	}
	return RawFeature, errors.Newf("unknown classifier variant %q", s)
}

func (v Variant) String() string {
	switch v {
	case ModelA:
		return "ann"
	case ModelB:
		return "bdt"
	}
	return "raw"
}

// Model is the evaluator model name, empty for RawFeature.
func (v Variant) Model() string {
	switch v {
	case ModelA:
		return ModelAName
	case ModelB:
		return ModelBName
	}
	return ""
}

// #endregion variant

// #region source
// Name labels the variable in reports and histograms.
func (s Source) Name() string {
	if s.Variant == RawFeature {
		return s.Feature
	}
	return s.Variant.Model()
}

// Fields lists the raw record fields the variable reads.
func (s Source) Fields() []string {
	if s.Variant == RawFeature {
		return event.Requires(s.Feature)
	}
	var out []string
	for _, f := range s.Inputs {
		out = append(out, event.Requires(f)...)
	}
	return out
}

// Validate checks the variable is resolvable.
func (s Source) Validate() error {
	switch s.Variant {
	case RawFeature:
		if s.Feature == "" {
			return errors.New("raw feature variable has no field name")
		}
	case ModelA, ModelB:
	default:
		return errors.Newf("invalid variant %d", s.Variant)
	}
	return nil
}

// Score returns the variable's value for rec.
func (s Source) Score(ctx context.Context, ev Evaluator, rec event.Record) (float64, error) {
	switch s.Variant {
	case RawFeature:
		return rec.Value(s.Feature)
	case ModelA, ModelB:
		if ev == nil {
			return 0, errors.Wrapf(ErrNoEvaluator, "variable %s", s.Name())
		}
		return ev.Evaluate(ctx, s.Variant.Model(), rec)
	}
	return 0, errors.Newf("invalid variant %d", s.Variant)
}

// #endregion source

// #region features
// featureVector reads names from rec in order, as float32 model inputs.
func featureVector(rec event.Record, names []string, dst []float32) error {
	if len(dst) != len(names) {
		return errors.AssertionFailedf("feature buffer has %d slots for %d features", len(dst), len(names))
	}
	for i, n := range names {
		v, err := rec.Value(n)
		if err != nil {
			return err
		}
		dst[i] = float32(v)
	}
	return nil
}

// #endregion features
