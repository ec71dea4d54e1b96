package dataset

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/danielpatrickdp/cutscan/internal/event"
)

// #region write
// Write stores records at path in the format its extension names. Columns
// are taken from the first record's schema; the label is written as an
// integer column.
func Write(path string, opts Options, recs []event.Record) error {
	opts = opts.withDefaults()
	if len(recs) == 0 {
		return errors.New("no records to write")
	}
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	var names []string
	for _, n := range recs[0].Schema().Names() {
		if n != opts.Label {
			names = append(names, n)
		}
	}
	switch format {
	case FormatROOT:
		return writeROOT(path, opts, names, recs)
	case FormatCSV:
		return writeCSV(path, opts, names, recs)
	case FormatSQLite:
		return writeSQLite(path, opts, names, recs)
	}
	return errors.Newf("unsupported format %q", format)
}

func rowValues(rec event.Record, names []string, dst []float64) error {
	for i, n := range names {
		v, err := rec.Value(n)
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}

func labelInt(rec event.Record) int32 {
	if rec.Signal() {
		return 1
	}
	return 0
}

// #endregion write

// #region write-root
func writeROOT(path string, opts Options, names []string, recs []event.Record) (err error) {
	f, err := groot.Create(path)
	if err != nil {
		return errors.Wrap(err, "create root file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close root file")
		}
	}()

	var label int32
	vals := make([]float64, len(names))
	wvars := []rtree.WriteVar{{Name: opts.Label, Value: &label}}
	for i, n := range names {
		wvars = append(wvars, rtree.WriteVar{Name: n, Value: &vals[i]})
	}
	w, err := rtree.NewWriter(f, opts.Tree, wvars)
	if err != nil {
		return errors.Wrap(err, "create tree writer")
	}
	for i, rec := range recs {
		if err := rowValues(rec, names, vals); err != nil {
			return errors.Wrapf(err, "record %d", i)
		}
		label = labelInt(rec)
		if _, err := w.Write(); err != nil {
			return errors.Wrapf(err, "write entry %d", i)
		}
	}
	return errors.Wrap(w.Close(), "close tree writer")
}

// #endregion write-root

// #region write-csv
func writeCSV(path string, opts Options, names []string, recs []event.Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create csv")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{opts.Label}, names...)); err != nil {
		return err
	}
	vals := make([]float64, len(names))
	row := make([]string, len(names)+1)
	for i, rec := range recs {
		if err := rowValues(rec, names, vals); err != nil {
			return errors.Wrapf(err, "record %d", i)
		}
		row[0] = strconv.Itoa(int(labelInt(rec)))
		for j, v := range vals {
			row[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// #endregion write-csv

// #region write-sqlite
func writeSQLite(path string, opts Options, names []string, recs []event.Record) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return errors.Wrap(err, "open db")
	}
	defer db.Close()

	cols := []string{quoteIdent(opts.Label) + " INTEGER NOT NULL"}
	for _, n := range names {
		cols = append(cols, quoteIdent(n)+" REAL")
	}
	table := quoteIdent(opts.Table)
	if _, err := db.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(cols, ", "))); err != nil {
		return errors.Wrap(err, "create table")
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)+1), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, placeholders))
	if err != nil {
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	vals := make([]float64, len(names))
	args := make([]interface{}, len(names)+1)
	for i, rec := range recs {
		if err := rowValues(rec, names, vals); err != nil {
			return errors.Wrapf(err, "record %d", i)
		}
		args[0] = labelInt(rec)
		for j, v := range vals {
			if math.IsNaN(v) {
				args[j+1] = nil
			} else {
				args[j+1] = v
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return errors.Wrapf(err, "insert record %d", i)
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// #endregion write-sqlite
