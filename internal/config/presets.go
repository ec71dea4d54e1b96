package config

import (
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/danielpatrickdp/cutscan/internal/classifier"
	"github.com/danielpatrickdp/cutscan/internal/event"
)

// JPsiPeak splits the energy window scan into left and right edges.
const JPsiPeak = 3.097

// MomentumFeatures are the twelve 4C-fit momentum components the models
// were trained on.
var MomentumFeatures = []string{
	"if4CPp_px", "if4CPp_py", "if4CPp_pz", "if4CPp_e",
	"if4CPm_px", "if4CPm_py", "if4CPm_pz", "if4CPm_e",
	"if4Cgamma_px", "if4Cgamma_py", "if4Cgamma_pz", "if4Cgamma_e",
}

// #region presets
var presets = map[string]func() JobConfig{
	"chisq": func() JobConfig {
		return JobConfig{
			Name:      "chisq",
			Predicate: "below",
			Variables: []VariableConfig{{Feature: "chisq4C"}},
			Axes:      []AxisConfig{{Name: "chisq4C", Low: 0, High: 200, Step: 0.01}},
			Histograms: []HistogramConfig{
				{Name: "chisq", Variable: "chisq4C", Bins: 800, Min: 0, Max: 200},
			},
		}
	},
	"energy": func() JobConfig {
		return JobConfig{
			Name:      "energy",
			Predicate: "interval",
			Variables: []VariableConfig{{Feature: "sqrt_s"}},
			Axes: []AxisConfig{
				{Name: "left", Low: 2.5, High: JPsiPeak, Step: 0.005},
				{Name: "right", Low: JPsiPeak, High: 3.5, Step: 0.005},
			},
			Histograms: []HistogramConfig{
				{Name: "sqrt_s", Variable: "sqrt_s", Bins: 800, Min: 2.8, Max: 3.5},
			},
		}
	},
	"twodim": func() JobConfig {
		return JobConfig{
			Name:      "twodim",
			Predicate: "box",
			Variables: []VariableConfig{{Feature: "sqrt_s"}, {Feature: "chisq4C"}},
			Axes: []AxisConfig{
				{Name: "left", Values: []float64{3.065}},
				{Name: "right", Values: []float64{3.112}},
				{Name: "chisq4C", Values: []float64{15.94}},
			},
			Histograms: []HistogramConfig{
				{Name: "sqrt_s", Variable: "sqrt_s", Bins: 800, Min: 2.8, Max: 3.5},
				{Name: "chisq", Variable: "chisq4C", Bins: 800, Min: 0, Max: 200},
			},
		}
	},
	"ann": func() JobConfig {
		return modelPreset("ann", classifier.ModelAName, 0, 0.92, 0, 1)
	},
	"bdt": func() JobConfig {
		return modelPreset("bdt", classifier.ModelBName, -0.8, 0.12, -0.4, 0.2)
	},
}

// modelPreset scans a model output with `score > cut`, keeping the last of
// equally significant candidates.
func modelPreset(source, model string, low, high, outMin, outMax float64) JobConfig {
	return JobConfig{
		Name:      source,
		Predicate: "above",
		Variables: []VariableConfig{{Source: source, Inputs: append([]string(nil), MomentumFeatures...)}},
		Axes:      []AxisConfig{{Name: model, Low: low, High: high, Step: 0.01}},
		TieBreak:  "last",
		Histograms: []HistogramConfig{
			{Name: "output", Variable: model, Bins: 800, Min: outMin, Max: outMax},
			{Name: "sqrt_s", Variable: "sqrt_s", Bins: 800, Min: 2.8, Max: 3.5},
			{Name: "com_energy", Variable: event.ComEnergy, Bins: 800, Min: 2.8, Max: 3.5},
			{Name: "chisq", Variable: "chisq4C", Bins: 800, Min: 0, Max: 200},
			{Name: "miss_mass", Variable: event.MissingMass, Bins: 800, Min: -0.1, Max: 0.5},
		},
	}
}

// Preset returns a built-in job by name.
func Preset(name string) (JobConfig, error) {
	mk, ok := presets[name]
	if !ok {
		return JobConfig{}, errors.Wrapf(ErrInvalidConfig, "unknown preset %q (have %v)", name, PresetNames())
	}
	return mk(), nil
}

// PresetNames lists the built-in jobs.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FromPresets builds a config scanning path with the named presets.
func FromPresets(path string, names ...string) (Config, error) {
	cfg := Config{Dataset: DatasetConfig{Path: path}}
	for _, n := range names {
		jc, err := Preset(n)
		if err != nil {
			return Config{}, err
		}
		cfg.Jobs = append(cfg.Jobs, jc)
	}
	cfg.ApplyDefaults()
	cfg.ApplyEnv()
	return cfg, nil
}

// #endregion presets
