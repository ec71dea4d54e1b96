package report

import (
	"github.com/danielpatrickdp/cutscan/internal/classifier"
)

// #region options
// Options tune the text report.
type Options struct {
	// TopN is the number of ranked candidates listed. Zero lists none.
	TopN int
	// Curve draws the significance curve of single-axis scans.
	Curve bool
	// CurveWidth and CurveHeight size the ASCII curve in characters.
	CurveWidth  int
	CurveHeight int
	// Latency, when set, is printed under the selection.
	Latency *classifier.LatencySummary
}

// DefaultOptions lists the ten best candidates and draws the curve.
func DefaultOptions() Options {
	return Options{TopN: 10, Curve: true, CurveWidth: 72, CurveHeight: 12}
}

// #endregion options
