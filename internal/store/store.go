package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/cutscan/internal/eval"
	"github.com/danielpatrickdp/cutscan/internal/scan"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS scan_runs (
	run_id           TEXT PRIMARY KEY,
	job              TEXT NOT NULL,
	predicate        TEXT NOT NULL,
	dataset          TEXT NOT NULL,
	config_json      TEXT NOT NULL,
	config_hash      TEXT NOT NULL,
	records          INTEGER NOT NULL,
	total_signal     INTEGER NOT NULL,
	total_background INTEGER NOT NULL,
	candidates       INTEGER NOT NULL,
	tie_break        TEXT NOT NULL,
	status           TEXT NOT NULL,
	best_index       INTEGER,
	elapsed_ns       INTEGER NOT NULL,
	created_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS scan_candidates (
	run_id               TEXT NOT NULL,
	idx                  INTEGER NOT NULL,
	cut                  BLOB NOT NULL,
	true_pos             INTEGER NOT NULL,
	false_pos            INTEGER NOT NULL,
	true_neg             INTEGER NOT NULL,
	false_neg            INTEGER NOT NULL,
	significance         REAL NOT NULL,
	signal_efficiency    REAL NOT NULL,
	background_rejection REAL NOT NULL,
	signal_to_background REAL,
	rankable             INTEGER NOT NULL,
	PRIMARY KEY (run_id, idx),
	FOREIGN KEY (run_id) REFERENCES scan_runs(run_id)
);

CREATE TABLE IF NOT EXISTS provenance_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	config_hash   TEXT,
	tie_break     TEXT NOT NULL,
	decision      TEXT NOT NULL,
	reason        TEXT,
	counts_json   TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES scan_runs(run_id)
);

CREATE INDEX IF NOT EXISTS scan_runs_hash ON scan_runs(config_hash);
`

// #endregion schema

// #region store-struct
// Store keeps scan history in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}
	// pragmas are per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pragma")
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pragma fk")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an already migrated database.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region from-outcome
// ConfigHash is the hex xxhash of a job configuration.
func ConfigHash(config []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(config))
}

// RunFromOutcome flattens a scan outcome into a run and its candidate table.
// config is the JSON form of the job configuration that produced it.
func RunFromOutcome(out *scan.Outcome, config []byte) (Run, []Candidate) {
	t := out.Table
	run := Run{
		Job:             out.Job.Name,
		Predicate:       string(out.Job.Predicate),
		Dataset:         out.Source,
		ConfigJSON:      string(config),
		ConfigHash:      ConfigHash(config),
		Records:         out.Records,
		TotalSignal:     t.TotalSignal,
		TotalBackground: t.TotalBackground,
		Candidates:      t.Len(),
		TieBreak:        string(out.Job.TieBreak),
		Status:          StatusNoValidCandidate,
		Elapsed:         out.Elapsed,
	}
	if run.TieBreak == "" {
		run.TieBreak = string(eval.TieFirst)
	}
	cands := make([]Candidate, t.Len())
	for i := range cands {
		cands[i] = Candidate{Index: i, Cut: t.Bounds(i), Counts: t.Counts[i], Stats: out.Stats[i]}
	}
	if out.Result != nil {
		run.Status = StatusSelected
		best := cands[out.Result.Index]
		run.Best = &best
	}
	return run, cands
}

// #endregion from-outcome

// #region save-run
// SaveRun stores run and its candidates in one transaction. A run id and
// creation time are assigned when missing.
func (s *Store) SaveRun(run Run, cands []Candidate) (Run, error) {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	var bestIdx interface{}
	if run.Best != nil {
		bestIdx = run.Best.Index
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Run{}, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO scan_runs (run_id, job, predicate, dataset, config_json, config_hash, records,
		 total_signal, total_background, candidates, tie_break, status, best_index, elapsed_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Job, run.Predicate, run.Dataset, run.ConfigJSON, run.ConfigHash, run.Records,
		run.TotalSignal, run.TotalBackground, run.Candidates, run.TieBreak, run.Status, bestIdx,
		int64(run.Elapsed), run.CreatedAt.UTC().Format(TimeLayout),
	)
	if err != nil {
		return Run{}, errors.Wrap(err, "insert run")
	}

	stmt, err := tx.Prepare(
		`INSERT INTO scan_candidates (run_id, idx, cut, true_pos, false_pos, true_neg, false_neg,
		 significance, signal_efficiency, background_rejection, signal_to_background, rankable)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, errors.Wrap(err, "prepare candidates")
	}
	defer stmt.Close()
	for _, c := range cands {
		var ratio interface{}
		if !math.IsInf(c.Stats.SignalToBackground, 0) {
			ratio = c.Stats.SignalToBackground
		}
		_, err := stmt.Exec(run.RunID, c.Index, encodeCut(c.Cut),
			c.Counts.TruePos, c.Counts.FalsePos, c.Counts.TrueNeg, c.Counts.FalseNeg,
			c.Stats.Significance, c.Stats.SignalEfficiency, c.Stats.BackgroundRejection, ratio,
			c.Stats.Rankable)
		if err != nil {
			return Run{}, errors.Wrapf(err, "insert candidate %d", c.Index)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, errors.Wrap(err, "commit")
	}
	return run, nil
}

// #endregion save-run

// #region get-run
const runColumns = `run_id, job, predicate, dataset, config_json, config_hash, records, total_signal,
	total_background, candidates, tie_break, status, best_index, elapsed_ns, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (Run, sql.NullInt64, error) {
	var run Run
	var best sql.NullInt64
	var elapsed int64
	var created string
	err := row.Scan(&run.RunID, &run.Job, &run.Predicate, &run.Dataset, &run.ConfigJSON, &run.ConfigHash,
		&run.Records, &run.TotalSignal, &run.TotalBackground, &run.Candidates, &run.TieBreak,
		&run.Status, &best, &elapsed, &created)
	if err != nil {
		return Run{}, best, err
	}
	run.Elapsed = time.Duration(elapsed)
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return run, best, nil
}

// GetRun reads one run including its best candidate.
func (s *Store) GetRun(id string) (Run, error) {
	run, best, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM scan_runs WHERE run_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, errors.Wrapf(ErrRunNotFound, "%s", id)
	}
	if err != nil {
		return Run{}, errors.Wrapf(err, "get run %s", id)
	}
	if best.Valid {
		c, err := s.candidate(id, int(best.Int64))
		if err != nil {
			return Run{}, err
		}
		run.Best = &c
	}
	return run, nil
}

// #endregion get-run

// #region list-runs
// ListRuns returns the most recent runs, newest first. Best candidates are
// not loaded.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM scan_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, _, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// #endregion list-runs

// #region candidates
const candidateColumns = `idx, cut, true_pos, false_pos, true_neg, false_neg, significance,
	signal_efficiency, background_rejection, signal_to_background, rankable`

func scanCandidate(row rowScanner) (Candidate, error) {
	var c Candidate
	var blob []byte
	var ratio sql.NullFloat64
	err := row.Scan(&c.Index, &blob, &c.Counts.TruePos, &c.Counts.FalsePos, &c.Counts.TrueNeg,
		&c.Counts.FalseNeg, &c.Stats.Significance, &c.Stats.SignalEfficiency,
		&c.Stats.BackgroundRejection, &ratio, &c.Stats.Rankable)
	if err != nil {
		return Candidate{}, err
	}
	c.Cut = decodeCut(blob)
	switch {
	case ratio.Valid:
		c.Stats.SignalToBackground = ratio.Float64
	case c.Counts.TruePos > 0:
		c.Stats.SignalToBackground = math.Inf(1)
	}
	return c, nil
}

func (s *Store) candidate(runID string, idx int) (Candidate, error) {
	c, err := scanCandidate(s.db.QueryRow(
		`SELECT `+candidateColumns+` FROM scan_candidates WHERE run_id = ? AND idx = ?`, runID, idx))
	if err != nil {
		return Candidate{}, errors.Wrapf(err, "run %s candidate %d", runID, idx)
	}
	return c, nil
}

// Candidates returns the full candidate table of a run in scan order.
func (s *Store) Candidates(runID string) ([]Candidate, error) {
	rows, err := s.db.Query(
		`SELECT `+candidateColumns+` FROM scan_candidates WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "candidates of %s", runID)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// #endregion candidates

// #region cut-encoding
// Cut bounds are stored as little-endian float64 bits so they read back
// bit-identical.
func encodeCut(v []float64) []byte {
	buf := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeCut(b []byte) []float64 {
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v
}

// #endregion cut-encoding
