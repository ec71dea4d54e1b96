package config

import (
	"bytes"
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/cutscan/internal/classifier"
	"github.com/danielpatrickdp/cutscan/internal/cut"
	"github.com/danielpatrickdp/cutscan/internal/dataset"
	"github.com/danielpatrickdp/cutscan/internal/eval"
	"github.com/danielpatrickdp/cutscan/internal/grid"
	"github.com/danielpatrickdp/cutscan/internal/scan"
)

// Environment overrides.
const (
	EnvORTLibrary  = "CUTSCAN_ORT_LIBRARY"
	EnvScorerAddr  = "CUTSCAN_SCORER_ADDR"
	defaultTopN    = 10
	defaultLogLvl  = "info"
	defaultLogForm = "text"
)

// ErrInvalidConfig marks every configuration error. Callers map it to a
// usage exit status.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New()

// #region load
// Load reads a YAML config file, applies defaults and environment overrides
// and validates the result, including every job's grid.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Mark(errors.Wrapf(err, "read config %s", path), ErrInvalidConfig)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Mark(errors.Wrap(err, "decode yaml"), ErrInvalidConfig)
	}
	cfg.ApplyDefaults()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset optional values.
func (c *Config) ApplyDefaults() {
	if c.Parallel == 0 {
		c.Parallel = 1
	}
	if c.Output.TopN == 0 {
		c.Output.TopN = defaultTopN
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLvl
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogForm
	}
}

// ApplyEnv lets the environment supply deployment-specific paths.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvORTLibrary); v != "" {
		c.ONNXLibrary = v
	}
	if v := os.Getenv(EnvScorerAddr); v != "" {
		c.Scorer.Address = v
	}
}

// #endregion load

// #region validate
// Validate checks struct tags, then builds every job to validate its grid
// and predicate shape. Job names must be unique.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Mark(errors.Wrap(err, "validate"), ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Jobs))
	needsModel := false
	for _, jc := range c.Jobs {
		if seen[jc.Name] {
			return errors.Wrapf(ErrInvalidConfig, "duplicate job %q", jc.Name)
		}
		seen[jc.Name] = true
		job, err := jc.Job()
		if err != nil {
			return err
		}
		for _, v := range job.Variables {
			if v.Variant != classifier.RawFeature {
				needsModel = true
			}
		}
	}
	if needsModel && len(c.Models) == 0 && c.Scorer.Address == "" {
		return errors.Wrap(ErrInvalidConfig, "model variables need models or a scorer address")
	}
	return nil
}

// #endregion validate

// #region job
// Job builds the scan job. Errors carry ErrInvalidConfig.
func (jc JobConfig) Job() (scan.Job, error) {
	fail := func(err error) (scan.Job, error) {
		return scan.Job{}, errors.Mark(errors.Wrapf(err, "job %s", jc.Name), ErrInvalidConfig)
	}
	if err := validate.Struct(jc); err != nil {
		return fail(err)
	}
	p, err := cut.Parse(jc.Predicate)
	if err != nil {
		return fail(err)
	}
	tb, err := eval.ParseTieBreak(jc.TieBreak)
	if err != nil {
		return fail(err)
	}
	job := scan.Job{Name: jc.Name, Predicate: p, TieBreak: tb}
	for _, vc := range jc.Variables {
		variant, err := classifier.ParseVariant(vc.Source)
		if err != nil {
			return fail(err)
		}
		job.Variables = append(job.Variables, classifier.Source{
			Variant: variant,
			Feature: vc.Feature,
			Inputs:  append([]string(nil), vc.Inputs...),
		})
	}
	for _, ac := range jc.Axes {
		a, err := ac.Axis()
		if err != nil {
			return fail(err)
		}
		job.Axes = append(job.Axes, a)
	}
	for _, hc := range jc.Histograms {
		job.Histograms = append(job.Histograms, scan.HistogramSpec{
			Name:     hc.Name,
			Variable: hc.Variable,
			Bins:     hc.Bins,
			Min:      hc.Min,
			Max:      hc.Max,
		})
	}
	if err := job.Validate(); err != nil {
		return fail(err)
	}
	return job, nil
}

// Axis builds a value list when Values is set and a generated grid
// otherwise.
func (ac AxisConfig) Axis() (grid.Axis, error) {
	if len(ac.Values) > 0 {
		if ac.Step != 0 || ac.Low != 0 || ac.High != 0 {
			return grid.Axis{}, errors.Wrapf(grid.ErrInvalidGrid, "axis %q mixes values with low/high/step", ac.Name)
		}
		return grid.ListAxis(ac.Name, ac.Values)
	}
	return grid.NewAxis(ac.Name, grid.Spec{Low: ac.Low, High: ac.High, Step: ac.Step})
}

// JSON is the canonical encoding stored with a run.
func (jc JobConfig) JSON() ([]byte, error) {
	return json.Marshal(jc)
}

// ParseJobJSON decodes a stored job configuration.
func ParseJobJSON(data []byte) (JobConfig, error) {
	var jc JobConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&jc); err != nil {
		return JobConfig{}, errors.Mark(errors.Wrap(err, "decode job json"), ErrInvalidConfig)
	}
	return jc, nil
}

// #endregion job

// #region dataset
// DatasetOptions projects the dataset onto the fields the jobs read,
// including each configured model's features. All fields are kept when a
// model variable has no known inputs, or when the config lists fields
// explicitly.
func (c Config) DatasetOptions() (dataset.Options, error) {
	opts := dataset.Options{
		Path:   c.Dataset.Path,
		Tree:   c.Dataset.Tree,
		Table:  c.Dataset.Table,
		Label:  c.Dataset.Label,
		Fields: c.Dataset.Fields,
	}
	if len(opts.Fields) > 0 {
		return opts, nil
	}
	features := c.modelFeatures()
	set := map[string]bool{}
	for _, jc := range c.Jobs {
		job, err := jc.Job()
		if err != nil {
			return dataset.Options{}, err
		}
		for i, v := range job.Variables {
			if fs, ok := features[v.Variant.Model()]; ok && v.Variant != classifier.RawFeature {
				job.Variables[i].Inputs = append(v.Inputs, fs...)
			}
		}
		fields, all := job.Fields()
		if all {
			return opts, nil
		}
		for _, f := range fields {
			set[f] = true
		}
	}
	for f := range set {
		opts.Fields = append(opts.Fields, f)
	}
	sort.Strings(opts.Fields)
	return opts, nil
}

func (c Config) modelFeatures() map[string][]string {
	out := make(map[string][]string, len(c.Models))
	for _, m := range c.Models {
		out[m.Name] = m.Features
	}
	return out
}

// #endregion dataset

// #region evaluator
// NeedsEvaluator reports whether any job scores a model.
func (c Config) NeedsEvaluator() bool {
	for _, jc := range c.Jobs {
		for _, v := range jc.Variables {
			s := strings.ToLower(v.Source)
			if s == "ann" || s == "bdt" {
				return true
			}
		}
	}
	return false
}

// Evaluator builds the classifier evaluator: the remote scorer when an
// address is configured, local ONNX sessions otherwise. It returns nil when
// no job scores a model.
func (c Config) Evaluator() (classifier.Evaluator, error) {
	if !c.NeedsEvaluator() {
		return nil, nil
	}
	if c.Scorer.Address != "" {
		ev, err := classifier.NewRemoteEvaluator(c.Scorer.Address, c.modelFeatures())
		if err != nil {
			return nil, err
		}
		return ev, nil
	}
	ev, err := classifier.NewOnnxEvaluator(c.ONNXLibrary, c.ClassifierModels()...)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// ClassifierModels converts the model list.
func (c Config) ClassifierModels() []classifier.ModelConfig {
	out := make([]classifier.ModelConfig, len(c.Models))
	for i, m := range c.Models {
		out[i] = classifier.ModelConfig{
			Name:     m.Name,
			Path:     m.Path,
			Input:    m.Input,
			Output:   m.Output,
			Features: append([]string(nil), m.Features...),
		}
	}
	return out
}

// #endregion evaluator

// #region serve
// LoadServe reads the models of a config file for the scoring service.
func LoadServe(path string) (ServeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ServeConfig{}, errors.Mark(errors.Wrapf(err, "read config %s", path), ErrInvalidConfig)
	}
	var sc ServeConfig
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return ServeConfig{}, errors.Mark(errors.Wrapf(err, "decode %s", path), ErrInvalidConfig)
	}
	if v := os.Getenv(EnvORTLibrary); v != "" {
		sc.ONNXLibrary = v
	}
	if err := validate.Struct(sc); err != nil {
		return ServeConfig{}, errors.Mark(errors.Wrapf(err, "validate %s", path), ErrInvalidConfig)
	}
	return sc, nil
}

// ClassifierModels converts the model list.
func (sc ServeConfig) ClassifierModels() []classifier.ModelConfig {
	return Config{Models: sc.Models}.ClassifierModels()
}

// #endregion serve
