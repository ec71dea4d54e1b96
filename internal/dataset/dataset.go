package dataset

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/danielpatrickdp/cutscan/internal/event"
)

// #region open
// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".root":
		return FormatROOT, nil
	case ".csv":
		return FormatCSV, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	}
	return "", errors.Wrapf(ErrDatasetUnavailable, "unrecognised extension in %q", path)
}

// Open validates the dataset layout and returns a restartable source. The
// file is reopened on every Scan.
func Open(opts Options, logger *slog.Logger) (event.Source, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(opts.Path); err != nil {
		return nil, errors.Wrapf(ErrDatasetUnavailable, "%v", err)
	}
	format, err := DetectFormat(opts.Path)
	if err != nil {
		return nil, err
	}

	var src interface {
		event.Source
		check() (int64, error)
	}
	switch format {
	case FormatROOT:
		src = &rootSource{opts: opts}
	case FormatCSV:
		src = &csvSource{opts: opts}
	case FormatSQLite:
		src = &sqliteSource{opts: opts}
	}
	n, err := src.check()
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "%s", opts.Path), ErrDatasetUnavailable)
	}
	logger.Info("dataset opened", "path", opts.Path, "format", string(format), "entries", n, "fields", len(opts.Fields))
	return src, nil
}

// #endregion open

// #region columns
// selectColumns resolves the columns to read from the available ones. The
// label column is always read and never part of the returned list.
func selectColumns(available []string, opts Options) ([]string, error) {
	have := make(map[string]bool, len(available))
	for _, n := range available {
		have[n] = true
	}
	if !have[opts.Label] {
		return nil, errors.Newf("no label column %q", opts.Label)
	}
	if len(opts.Fields) == 0 {
		out := make([]string, 0, len(available))
		for _, n := range available {
			if n != opts.Label {
				out = append(out, n)
			}
		}
		return out, nil
	}
	seen := make(map[string]bool, len(opts.Fields))
	out := make([]string, 0, len(opts.Fields))
	for _, n := range opts.Fields {
		if n == opts.Label || seen[n] {
			continue
		}
		if !have[n] {
			return nil, errors.Newf("no column %q", n)
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}

// #endregion columns

// #region name
// OptionsFromName inverts Source.Name: "path:tree" for ROOT, "path:table"
// for SQLite, the bare path for CSV.
func OptionsFromName(name string) Options {
	i := strings.LastIndex(name, ":")
	if i <= 0 {
		return Options{Path: name}
	}
	path, sub := name[:i], name[i+1:]
	format, err := DetectFormat(path)
	if err != nil || strings.ContainsAny(sub, `/\`) {
		return Options{Path: name}
	}
	switch format {
	case FormatROOT:
		return Options{Path: path, Tree: sub}
	case FormatSQLite:
		return Options{Path: path, Table: sub}
	}
	return Options{Path: name}
}

// #endregion name
