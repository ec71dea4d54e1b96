package replay

import (
	"github.com/danielpatrickdp/cutscan/internal/config"
	"github.com/danielpatrickdp/cutscan/internal/scan"
)

// #region result
// Mismatch is one field where a rerun disagrees with the stored run.
type Mismatch struct {
	Field string
	Want  string
	Got   string
}

// Result is the outcome of rerunning a stored scan. Matched is true when
// every compared field is identical.
type Result struct {
	RunID      string
	Job        string
	Matched    bool
	Mismatches []Mismatch
	Outcome    *scan.Outcome
}

// #endregion result

// #region fixture-types
// Fixture is a self-contained replay case: a small labelled record set, the
// job to scan it with and the expected selection.
type Fixture struct {
	Description string           `json:"description"`
	Job         config.JobConfig `json:"job"`
	Records     []FixtureRecord  `json:"records"`
	Expected    FixtureExpected  `json:"expected"`
}

// FixtureRecord is one labelled record. Label must be 0 or 1.
type FixtureRecord struct {
	Label  int64              `json:"label"`
	Fields map[string]float64 `json:"fields"`
}

// FixtureExpected is the selection the fixture pins. Index, Cut and the
// counts are ignored when Status is no_valid_candidate.
type FixtureExpected struct {
	Status       string    `json:"status"`
	Index        int       `json:"index"`
	Cut          []float64 `json:"cut"`
	Significance float64   `json:"significance"`
	TruePos      int64     `json:"true_pos"`
	FalsePos     int64     `json:"false_pos"`
	Ties         int       `json:"ties,omitempty"`
}

// #endregion fixture-types
