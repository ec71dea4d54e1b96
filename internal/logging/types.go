package logging

import (
	"time"

	"github.com/danielpatrickdp/cutscan/internal/confusion"
)

// #region selection-entry
// SelectionEntry is a single row in the provenance_log table: why a run
// reported the cut it did, or why it reported none.
type SelectionEntry struct {
	RunID      string
	ConfigHash string
	TieBreak   string
	Decision   string // "selected" | "no_valid_candidate"
	Reason     string
	Counts     *confusion.Counts
	CreatedAt  time.Time
}

// #endregion selection-entry

// #region format
// Format of the process log.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// #endregion format
