package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/cutscan/internal/event"
)

// #region sqlite-source
// sqliteSource reads one table of a SQLite database. NULL values read as
// NaN.
type sqliteSource struct {
	opts Options
}

func (s *sqliteSource) Name() string {
	return s.opts.Path + ":" + s.opts.Table
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *sqliteSource) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.opts.Path)
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}
	return db, nil
}

func (s *sqliteSource) columns(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", quoteIdent(s.opts.Table)))
	if err != nil {
		return nil, errors.Wrapf(err, "table %q", s.opts.Table)
	}
	defer rows.Close()
	return rows.Columns()
}

func (s *sqliteSource) check() (int64, error) {
	ctx := context.Background()
	db, err := s.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()
	available, err := s.columns(ctx, db)
	if err != nil {
		return 0, err
	}
	if _, err := selectColumns(available, s.opts); err != nil {
		return 0, err
	}
	var n int64
	if err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(s.opts.Table))).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count rows")
	}
	return n, nil
}

func (s *sqliteSource) Scan(ctx context.Context, fn func(event.Record) error) error {
	db, err := s.open()
	if err != nil {
		return errors.Mark(err, ErrDatasetUnavailable)
	}
	defer db.Close()
	available, err := s.columns(ctx, db)
	if err != nil {
		return errors.Mark(err, ErrDatasetUnavailable)
	}
	cols, err := selectColumns(available, s.opts)
	if err != nil {
		return errors.Mark(err, ErrDatasetUnavailable)
	}
	schema, err := event.NewSchema(cols...)
	if err != nil {
		return err
	}

	quoted := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		quoted = append(quoted, quoteIdent(c))
	}
	quoted = append(quoted, quoteIdent(s.opts.Label))
	// rowid keeps the read order stable between passes
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(quoted, ", "), quoteIdent(s.opts.Table))
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return errors.Wrap(err, "query events")
	}
	defer rows.Close()

	vals := make([]float64, len(cols))
	dest := make([]sql.NullFloat64, len(cols))
	ptrs := make([]interface{}, len(cols)+1)
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	var label sql.NullInt64
	ptrs[len(cols)] = &label

	for row := int64(1); rows.Next(); row++ {
		if err := rows.Scan(ptrs...); err != nil {
			return errors.Wrapf(err, "row %d", row)
		}
		for i, d := range dest {
			if d.Valid {
				vals[i] = d.Float64
			} else {
				vals[i] = math.NaN()
			}
		}
		if !label.Valid {
			return errors.Wrapf(event.ErrBadLabel, "row %d: NULL label", row)
		}
		signal, err := event.LabelFromInt(label.Int64)
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
	return errors.Wrap(rows.Err(), "iterate events")
}

// #endregion sqlite-source
