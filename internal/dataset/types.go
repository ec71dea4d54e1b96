package dataset

import (
	"github.com/cockroachdb/errors"

	"github.com/danielpatrickdp/cutscan/internal/event"
)

// ErrDatasetUnavailable is returned when the input cannot be opened or does
// not have the expected layout. Nothing is scanned in that case.
var ErrDatasetUnavailable = errors.New("dataset unavailable")

// #region format
// Format is a supported on-disk layout.
type Format string

const (
	FormatROOT   Format = "root"
	FormatCSV    Format = "csv"
	FormatSQLite Format = "sqlite"
)

// #endregion format

// #region options
// Options locates a dataset and selects the columns to read.
type Options struct {
	Path  string
	Tree  string // ROOT tree name, default ntp1
	Table string // SQLite table name, default events
	Label string // ground-truth column, default mcSignal
	// Fields restricts reading to these columns. Empty reads every numeric
	// column.
	Fields []string
}

// Defaults of the experiment ntuples.
const (
	DefaultTree  = "ntp1"
	DefaultTable = "events"
)

func (o Options) withDefaults() Options {
	if o.Tree == "" {
		o.Tree = DefaultTree
	}
	if o.Table == "" {
		o.Table = DefaultTable
	}
	if o.Label == "" {
		o.Label = event.DefaultLabel
	}
	return o
}

// #endregion options
