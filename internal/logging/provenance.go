package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/danielpatrickdp/cutscan/internal/confusion"
	"github.com/danielpatrickdp/cutscan/internal/scan"
	"github.com/danielpatrickdp/cutscan/internal/store"
)

// #region log-selection
// LogSelection writes a provenance entry to the provenance_log table.
func LogSelection(db *sql.DB, entry SelectionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	var counts interface{}
	if entry.Counts != nil {
		b, err := json.Marshal(entry.Counts)
		if err != nil {
			return errors.Wrap(err, "marshal counts")
		}
		counts = string(b)
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (run_id, config_hash, tie_break, decision, reason, counts_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		nullIfEmpty(entry.ConfigHash),
		entry.TieBreak,
		entry.Decision,
		nullIfEmpty(entry.Reason),
		counts,
		entry.CreatedAt.UTC().Format(store.TimeLayout),
	)
	if err != nil {
		return errors.Wrap(err, "log selection")
	}
	return nil
}

// #endregion log-selection

// #region entry-from-run
// EntryFor explains the selection of a stored run.
func EntryFor(run store.Run, out *scan.Outcome) SelectionEntry {
	e := SelectionEntry{
		RunID:      run.RunID,
		ConfigHash: run.ConfigHash,
		TieBreak:   run.TieBreak,
		Decision:   run.Status,
	}
	switch {
	case out.Result != nil:
		r := out.Result
		c := r.Counts
		e.Counts = &c
		e.Reason = fmt.Sprintf("%s: significance %.6g is the maximum over %d candidates; %d tied, kept the %s",
			out.Describe(), r.Stats.Significance, out.Table.Len(), r.Ties, r.TieBreak)
	case out.Table.TotalSignal == 0:
		e.Reason = fmt.Sprintf("no signal records among %d; every candidate has significance 0", out.Records)
	default:
		e.Reason = fmt.Sprintf("no candidate of %d accepts a signal record", out.Table.Len())
	}
	return e
}

// #endregion entry-from-run

// #region selections
// Selections reads back the provenance entries of a run, oldest first.
func Selections(db *sql.DB, runID string) ([]SelectionEntry, error) {
	rows, err := db.Query(
		`SELECT run_id, config_hash, tie_break, decision, reason, counts_json, created_at
		 FROM provenance_log WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "selections of %s", runID)
	}
	defer rows.Close()

	var out []SelectionEntry
	for rows.Next() {
		var e SelectionEntry
		var hash, reason, counts sql.NullString
		var created string
		if err := rows.Scan(&e.RunID, &hash, &e.TieBreak, &e.Decision, &reason, &counts, &created); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		e.ConfigHash, e.Reason = hash.String, reason.String
		if counts.Valid {
			var c confusion.Counts
			if err := json.Unmarshal([]byte(counts.String), &c); err != nil {
				return nil, errors.Wrap(err, "decode counts")
			}
			e.Counts = &c
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion selections

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
