package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/danielpatrickdp/cutscan/internal/event"
)

// #region csv-source
// csvSource reads a headed, comma separated table.
type csvSource struct {
	opts Options
}

func (s *csvSource) Name() string {
	return s.opts.Path
}

func (s *csvSource) open() (*os.File, *csv.Reader, []string, error) {
	f, err := os.Open(s.opts.Path)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "open csv")
	}
	r := csv.NewReader(f)
	r.ReuseRecord = true
	r.Comment = '#'
	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, nil, nil, errors.Wrap(err, "read csv header")
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}
	return f, r, names, nil
}

// plan returns the schema plus, per schema column, its csv column index.
// The label's csv index comes last.
func (s *csvSource) plan(header []string) (*event.Schema, []int, error) {
	cols, err := selectColumns(header, s.opts)
	if err != nil {
		return nil, nil, err
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := pos[h]; dup {
			return nil, nil, errors.Newf("duplicate csv column %q", h)
		}
		pos[h] = i
	}
	schema, err := event.NewSchema(cols...)
	if err != nil {
		return nil, nil, err
	}
	idx := make([]int, 0, len(cols)+1)
	for _, c := range cols {
		idx = append(idx, pos[c])
	}
	idx = append(idx, pos[s.opts.Label])
	return schema, idx, nil
}

func (s *csvSource) check() (int64, error) {
	f, r, header, err := s.open()
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if _, _, err := s.plan(header); err != nil {
		return 0, err
	}
	var n int64
	for {
		_, err := r.Read()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return 0, errors.Wrapf(err, "row %d", n+1)
		}
		n++
	}
}

func (s *csvSource) Scan(ctx context.Context, fn func(event.Record) error) error {
	f, r, header, err := s.open()
	if err != nil {
		return errors.Mark(err, ErrDatasetUnavailable)
	}
	defer f.Close()
	schema, idx, err := s.plan(header)
	if err != nil {
		return errors.Mark(err, ErrDatasetUnavailable)
	}

	labelAt := len(idx) - 1
	vals := make([]float64, labelAt)
	for row := int64(1); ; row++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "row %d", row)
		}
		for i := 0; i < labelAt; i++ {
			vals[i], err = strconv.ParseFloat(strings.TrimSpace(fields[idx[i]]), 64)
			if err != nil {
				return errors.Wrapf(err, "row %d column %q", row, header[idx[i]])
			}
		}
		label, err := strconv.ParseInt(strings.TrimSpace(fields[idx[labelAt]]), 10, 64)
		if err != nil {
			return errors.Wrapf(event.ErrBadLabel, "row %d: %v", row, err)
		}
		signal, err := event.LabelFromInt(label)
		if err != nil {
			return errors.Wrapf(err, "row %d", row)
		}
		rec, err := event.NewRecord(schema, vals, signal)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// #endregion csv-source
