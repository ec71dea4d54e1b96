package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"

	"github.com/danielpatrickdp/cutscan/internal/eval"
	"github.com/danielpatrickdp/cutscan/internal/scan"
)

// #region write-text
// WriteText prints the human-readable summary of one scan.
func WriteText(w io.Writer, out *scan.Outcome, opts Options) error {
	if out == nil || out.Table == nil {
		return errors.New("report: nil outcome")
	}
	var b strings.Builder
	t := out.Table
	job := out.Job

	fmt.Fprintf(&b, "== %s: %s cut on %s ==\n", job.Name, job.Predicate, out.Source)
	fmt.Fprintf(&b, "records:     %d (signal %d, background %d)\n", out.Records, t.TotalSignal, t.TotalBackground)
	fmt.Fprintf(&b, "candidates:  %d over %d axis(es) %v\n", t.Len(), t.Lattice.Arity(), t.Lattice.Shape())
	fmt.Fprintf(&b, "significance before cut: %s\n", num(eval.SignificanceBefore(t)))

	if out.Result == nil {
		b.WriteString("best cut:    no valid candidate\n")
	} else {
		r := out.Result
		fmt.Fprintf(&b, "best cut:    %s (index %d, tie-break %s, %d tied)\n", out.Describe(), r.Index, r.TieBreak, r.Ties)
		fmt.Fprintf(&b, "S = %d  B = %d\n", r.Counts.TruePos, r.Counts.FalsePos)
		for _, m := range r.Metrics {
			fmt.Fprintf(&b, "  %-22s %s\n", m.Name, num(m.Value))
		}
	}
	if opts.Latency != nil && opts.Latency.Calls > 0 {
		l := opts.Latency
		fmt.Fprintf(&b, "classifier latency: calls=%d mean=%s p50=%s p90=%s p99=%s max=%s\n",
			l.Calls, l.Mean, l.P50, l.P90, l.P99, l.Max)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	if opts.TopN > 0 {
		if err := writeTop(w, out, opts.TopN); err != nil {
			return err
		}
	}
	if opts.Curve && t.Lattice.Arity() == 1 && t.Len() > 1 {
		c := eval.SignificanceCurve(t, out.Stats)
		plot := asciigraph.Plot(downsample(c.Y, opts.CurveWidth),
			asciigraph.Height(max(opts.CurveHeight, 2)),
			asciigraph.Caption(fmt.Sprintf("significance vs %s [%s, %s]",
				job.Axes[0].Name, num(c.X[0]), num(c.X[len(c.X)-1]))))
		if _, err := fmt.Fprintf(w, "%s\n", plot); err != nil {
			return err
		}
	}
	return nil
}

// #endregion write-text

// #region top-table
// Ranked returns the indices of rankable candidates by decreasing
// significance. Equal significances keep scan order.
func Ranked(stats []eval.Stats) []int {
	var idx []int
	for i, st := range stats {
		if st.Rankable && st.Significance > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return stats[idx[a]].Significance > stats[idx[b]].Significance
	})
	return idx
}

func writeTop(w io.Writer, out *scan.Outcome, n int) error {
	ranked := Ranked(out.Stats)
	if len(ranked) == 0 {
		return nil
	}
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	if _, err := fmt.Fprintf(w, "top %d candidates:\n", len(ranked)); err != nil {
		return err
	}
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"#", "cut", "S", "B", "significance", "sig eff", "bkg rej", "S/B"})
	tbl.SetAutoFormatHeaders(false)
	tbl.SetAlignment(tablewriter.ALIGN_RIGHT)
	names := out.Job.VariableNames()
	for rank, i := range ranked {
		c := out.Table.Counts[i]
		st := out.Stats[i]
		tbl.Append([]string{
			strconv.Itoa(rank + 1),
			out.Job.Predicate.Describe(names, out.Table.Bounds(i)),
			strconv.FormatInt(c.TruePos, 10),
			strconv.FormatInt(c.FalsePos, 10),
			num(st.Significance),
			num(st.SignalEfficiency),
			num(st.BackgroundRejection),
			num(st.SignalToBackground),
		})
	}
	tbl.Render()
	return nil
}

// #endregion top-table

// #region helpers
func num(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// downsample keeps the maximum of each bucket so the peak survives.
func downsample(ys []float64, width int) []float64 {
	if width <= 0 || len(ys) <= width {
		return ys
	}
	out := make([]float64, width)
	for i := range out {
		lo := i * len(ys) / width
		hi := (i + 1) * len(ys) / width
		m := ys[lo]
		for _, y := range ys[lo+1 : hi] {
			m = math.Max(m, y)
		}
		out[i] = m
	}
	return out
}

// #endregion helpers
