package config

// #region config
// Config is the YAML file driving `cutscan scan`.
type Config struct {
	Dataset     DatasetConfig `yaml:"dataset" json:"dataset"`
	Models      []ModelConfig `yaml:"models,omitempty" json:"models,omitempty" validate:"dive"`
	Scorer      ScorerConfig  `yaml:"scorer,omitempty" json:"scorer,omitempty"`
	ONNXLibrary string        `yaml:"onnx_library,omitempty" json:"onnx_library,omitempty"`
	Output      OutputConfig  `yaml:"output,omitempty" json:"output,omitempty"`
	Log         LogConfig     `yaml:"log,omitempty" json:"log,omitempty"`
	Parallel    int           `yaml:"parallel,omitempty" json:"parallel,omitempty" validate:"gte=0,lte=64"`
	Jobs        []JobConfig   `yaml:"jobs" json:"jobs" validate:"required,min=1,dive"`
}

// DatasetConfig locates the labelled records.
type DatasetConfig struct {
	Path   string   `yaml:"path" json:"path" validate:"required"`
	Tree   string   `yaml:"tree,omitempty" json:"tree,omitempty"`
	Table  string   `yaml:"table,omitempty" json:"table,omitempty"`
	Label  string   `yaml:"label,omitempty" json:"label,omitempty"`
	Fields []string `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// ModelConfig is one ONNX export, or the feature order sent to the remote
// scorer for that model name.
type ModelConfig struct {
	Name     string   `yaml:"name" json:"name" validate:"required,oneof=ANN BDT"`
	Path     string   `yaml:"path,omitempty" json:"path,omitempty"`
	Input    string   `yaml:"input,omitempty" json:"input,omitempty"`
	Output   string   `yaml:"output,omitempty" json:"output,omitempty"`
	Features []string `yaml:"features" json:"features" validate:"required,min=1,dive,required"`
}

// ScorerConfig points at a remote scoring service.
type ScorerConfig struct {
	Address string `yaml:"address,omitempty" json:"address,omitempty" validate:"omitempty,hostname_port"`
}

// OutputConfig names the artifacts of a run. Empty entries are skipped.
type OutputConfig struct {
	Report      string `yaml:"report,omitempty" json:"report,omitempty"`
	ROOT        string `yaml:"root,omitempty" json:"root,omitempty"`
	Plots       string `yaml:"plots,omitempty" json:"plots,omitempty"`
	DB          string `yaml:"db,omitempty" json:"db,omitempty"`
	MetricsFile string `yaml:"metrics_file,omitempty" json:"metrics_file,omitempty"`
	TopN        int    `yaml:"top,omitempty" json:"top,omitempty" validate:"gte=0"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format,omitempty" json:"format,omitempty" validate:"omitempty,oneof=text json"`
}

// #endregion config

// #region job-config
// JobConfig is the serializable form of a scan job. It is also what the run
// store keeps, so a stored run can be rebuilt and replayed.
type JobConfig struct {
	Name       string            `yaml:"name" json:"name" validate:"required"`
	Predicate  string            `yaml:"predicate" json:"predicate" validate:"required,oneof=below above interval box"`
	Variables  []VariableConfig  `yaml:"variables" json:"variables" validate:"required,min=1,max=2,dive"`
	Axes       []AxisConfig      `yaml:"axes" json:"axes" validate:"required,min=1,max=3,dive"`
	TieBreak   string            `yaml:"tie_break,omitempty" json:"tie_break,omitempty" validate:"omitempty,oneof=first last"`
	Histograms []HistogramConfig `yaml:"histograms,omitempty" json:"histograms,omitempty" validate:"dive"`
}

// VariableConfig selects a raw field, or a model output with the fields it
// reads.
type VariableConfig struct {
	Source  string   `yaml:"source,omitempty" json:"source,omitempty" validate:"omitempty,oneof=raw feature ann bdt"`
	Feature string   `yaml:"feature,omitempty" json:"feature,omitempty"`
	Inputs  []string `yaml:"inputs,omitempty" json:"inputs,omitempty"`
}

// AxisConfig is a generated grid (low, high, step) or an explicit value
// list.
type AxisConfig struct {
	Name   string    `yaml:"name" json:"name" validate:"required"`
	Low    float64   `yaml:"low,omitempty" json:"low,omitempty"`
	High   float64   `yaml:"high,omitempty" json:"high,omitempty"`
	Step   float64   `yaml:"step,omitempty" json:"step,omitempty"`
	Values []float64 `yaml:"values,omitempty" json:"values,omitempty"`
}

// HistogramConfig books an observable histogram.
type HistogramConfig struct {
	Name     string  `yaml:"name" json:"name" validate:"required"`
	Variable string  `yaml:"variable" json:"variable" validate:"required"`
	Bins     int     `yaml:"bins" json:"bins" validate:"gt=0"`
	Min      float64 `yaml:"min" json:"min"`
	Max      float64 `yaml:"max" json:"max" validate:"gtfield=Min"`
}

// #endregion job-config

// #region serve-config
// ServeConfig is the part of a config file the scoring service reads. Other
// keys of a full scan config are ignored.
type ServeConfig struct {
	Models      []ModelConfig `yaml:"models" validate:"required,min=1,dive"`
	ONNXLibrary string        `yaml:"onnx_library,omitempty"`
	Listen      string        `yaml:"listen,omitempty" validate:"omitempty,hostname_port"`
}

// #endregion serve-config
