package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/cutscan/internal/eval"
	"github.com/danielpatrickdp/cutscan/internal/logging"
	"github.com/danielpatrickdp/cutscan/internal/report"
	"github.com/danielpatrickdp/cutscan/internal/store"
)

var inspectConfig struct {
	db      string
	run     string
	last    int
	top     int
	jsonOut bool
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "list stored runs or show one run in detail",
	Args:  cobra.NoArgs,
	RunE:  runInspect,
}

func init() {
	f := inspectCmd.Flags()
	f.StringVar(&inspectConfig.db, "db", "", "SQLite run store")
	f.StringVar(&inspectConfig.run, "run", "", "show a single run")
	f.IntVar(&inspectConfig.last, "last", 20, "runs listed, newest first")
	f.IntVar(&inspectConfig.top, "top", 10, "candidates shown for a single run")
	f.BoolVar(&inspectConfig.jsonOut, "json", false, "output as JSON instead of tables")
}

func runInspect(cmd *cobra.Command, _ []string) error {
	if inspectConfig.db == "" {
		return usageError("--db is required")
	}
	st, err := store.NewStore(inspectConfig.db)
	if err != nil {
		return err
	}
	defer st.Close()

	w := cmd.OutOrStdout()
	if inspectConfig.run != "" {
		return inspectRun(w, st, inspectConfig.run)
	}
	return listRuns(w, st)
}

// #region list-mode
type listRow struct {
	RunID        string    `json:"run_id"`
	Job          string    `json:"job"`
	Predicate    string    `json:"predicate"`
	Dataset      string    `json:"dataset"`
	Status       string    `json:"status"`
	Cut          []float64 `json:"cut,omitempty"`
	Significance float64   `json:"significance"`
	Records      int64     `json:"records"`
	Candidates   int       `json:"candidates"`
	CreatedAt    string    `json:"created_at"`
}

func listRuns(w io.Writer, st *store.Store) error {
	runs, err := st.ListRuns(inspectConfig.last)
	if err != nil {
		return err
	}
	rows := make([]listRow, len(runs))
	for i, r := range runs {
		full, err := st.GetRun(r.RunID)
		if err != nil {
			return err
		}
		rows[i] = listRow{
			RunID:      r.RunID,
			Job:        r.Job,
			Predicate:  r.Predicate,
			Dataset:    r.Dataset,
			Status:     r.Status,
			Records:    r.Records,
			Candidates: r.Candidates,
			CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		}
		if b := full.Best; b != nil {
			rows[i].Cut = b.Cut
			rows[i].Significance = b.Stats.Significance
		}
	}
	if inspectConfig.jsonOut {
		return printJSON(w, rows)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no runs found")
		return err
	}

	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"run", "job", "cut", "status", "best cut", "significance", "records", "created"})
	tbl.SetAutoFormatHeaders(false)
	for _, r := range rows {
		sig := "-"
		if r.Cut != nil {
			sig = formatFloat(r.Significance)
		}
		tbl.Append([]string{
			shortID(r.RunID), r.Job, r.Predicate, r.Status, formatCut(r.Cut), sig,
			strconv.FormatInt(r.Records, 10), r.CreatedAt,
		})
	}
	tbl.Render()
	return nil
}

// #endregion list-mode

// #region detail-mode
type detailOutput struct {
	Run        store.Run                `json:"run"`
	Provenance []logging.SelectionEntry `json:"provenance"`
	Top        []store.Candidate        `json:"top"`
}

func inspectRun(w io.Writer, st *store.Store, id string) error {
	run, err := st.GetRun(id)
	if err != nil {
		return err
	}
	cands, err := st.Candidates(id)
	if err != nil {
		return err
	}
	prov, err := logging.Selections(st.DB(), id)
	if err != nil {
		return err
	}
	stats := make([]eval.Stats, len(cands))
	for i, c := range cands {
		stats[i] = c.Stats
	}
	out := detailOutput{Run: run, Provenance: prov}
	for _, i := range report.Ranked(stats) {
		if len(out.Top) == inspectConfig.top {
			break
		}
		out.Top = append(out.Top, cands[i])
	}
	if inspectConfig.jsonOut {
		return jsonSafe(w, &out)
	}

	fmt.Fprintf(w, "Run:         %s\n", run.RunID)
	fmt.Fprintf(w, "Job:         %s (%s cut, tie-break %s)\n", run.Job, run.Predicate, run.TieBreak)
	fmt.Fprintf(w, "Dataset:     %s\n", run.Dataset)
	fmt.Fprintf(w, "Config hash: %s\n", run.ConfigHash)
	fmt.Fprintf(w, "Records:     %d (signal %d, background %d)\n", run.Records, run.TotalSignal, run.TotalBackground)
	fmt.Fprintf(w, "Candidates:  %d\n", run.Candidates)
	fmt.Fprintf(w, "Elapsed:     %s\n", run.Elapsed)
	fmt.Fprintf(w, "Created:     %s\n", run.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Status:      %s\n", run.Status)
	if b := run.Best; b != nil {
		fmt.Fprintf(w, "Best:        index %d cut %s, S=%d B=%d significance %s\n",
			b.Index, formatCut(b.Cut), b.Counts.TruePos, b.Counts.FalsePos, formatFloat(b.Stats.Significance))
	}
	for _, p := range prov {
		fmt.Fprintf(w, "Reason:      %s\n", p.Reason)
	}
	if len(out.Top) == 0 {
		return nil
	}

	fmt.Fprintf(w, "\nTop candidates:\n")
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"index", "cut", "S", "B", "significance", "sig eff", "bkg rej", "S/B"})
	tbl.SetAutoFormatHeaders(false)
	tbl.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, c := range out.Top {
		tbl.Append([]string{
			strconv.Itoa(c.Index), formatCut(c.Cut),
			strconv.FormatInt(c.Counts.TruePos, 10), strconv.FormatInt(c.Counts.FalsePos, 10),
			formatFloat(c.Stats.Significance), formatFloat(c.Stats.SignalEfficiency),
			formatFloat(c.Stats.BackgroundRejection), formatFloat(c.Stats.SignalToBackground),
		})
	}
	tbl.Render()
	return nil
}

// jsonSafe prints the detail output, replacing the infinite S/B ratios
// encoding/json refuses with the largest float.
func jsonSafe(w io.Writer, out *detailOutput) error {
	fix := func(c *store.Candidate) {
		if math.IsInf(c.Stats.SignalToBackground, 1) {
			c.Stats.SignalToBackground = math.MaxFloat64
		}
	}
	if out.Run.Best != nil {
		best := *out.Run.Best
		fix(&best)
		out.Run.Best = &best
	}
	for i := range out.Top {
		fix(&out.Top[i])
	}
	return printJSON(w, out)
}

// #endregion detail-mode
