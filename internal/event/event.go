package event

import (
	"context"
	"math"
	"sort"

	"github.com/cockroachdb/errors"
)

// #region schema
// NewSchema builds a schema from distinct field names, in column order.
func NewSchema(names ...string) (*Schema, error) {
	idx := make(map[string]int, len(names))
	for i, n := range names {
		if n == "" {
			return nil, errors.Newf("column %d has no name", i)
		}
		if _, dup := idx[n]; dup {
			return nil, errors.Newf("duplicate column %q", n)
		}
		idx[n] = i
	}
	return &Schema{names: append([]string(nil), names...), index: idx}, nil
}

// Names returns the field names in column order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.names...)
}

// Index returns the column of name.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Len is the number of columns.
func (s *Schema) Len() int {
	return len(s.names)
}

// #endregion schema

// #region record
// NewRecord builds a record over schema. values is copied.
func NewRecord(schema *Schema, values []float64, signal bool) (Record, error) {
	if schema == nil {
		return Record{}, errors.New("nil schema")
	}
	if len(values) != schema.Len() {
		return Record{}, errors.Newf("record has %d values, schema has %d columns", len(values), schema.Len())
	}
	return Record{schema: schema, values: append([]float64(nil), values...), signal: signal}, nil
}

// FromMap builds a standalone record with its own schema, fields sorted by
// name.
func FromMap(fields map[string]float64, signal bool) Record {
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names)
	idx := make(map[string]int, len(names))
	vals := make([]float64, len(names))
	for i, n := range names {
		idx[n] = i
		vals[i] = fields[n]
	}
	return Record{schema: &Schema{names: names, index: idx}, values: vals, signal: signal}
}

// Value resolves name against the raw fields first, then against the
// derived kinematic quantities.
func (r Record) Value(name string) (float64, error) {
	if r.schema != nil {
		if i, ok := r.schema.index[name]; ok {
			return r.values[i], nil
		}
	}
	if d, ok := derived[name]; ok {
		return d.eval(r)
	}
	return math.NaN(), errors.Wrapf(ErrUnknownField, "%q", name)
}

// Signal reports the ground-truth label.
func (r Record) Signal() bool {
	return r.signal
}

// Fields returns a copy of the raw fields.
func (r Record) Fields() map[string]float64 {
	out := make(map[string]float64, len(r.values))
	if r.schema == nil {
		return out
	}
	for i, n := range r.schema.names {
		out[n] = r.values[i]
	}
	return out
}

// Schema returns the record's schema.
func (r Record) Schema() *Schema {
	return r.schema
}

// #endregion record

// #region label
// LabelFromInt maps an integer ground-truth column onto signal/background.
func LabelFromInt(v int64) (bool, error) {
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, errors.Wrapf(ErrBadLabel, "got %d", v)
}

// LabelFromFloat accepts only the exact values 0 and 1, for sources that
// store the label as a floating point column.
func LabelFromFloat(v float64) (bool, error) {
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, errors.Wrapf(ErrBadLabel, "got %g", v)
}

// #endregion label

// #region slice-source
// SliceSource serves records from memory.
type SliceSource struct {
	Label   string
	Records []Record
}

// Name implements Source.
func (s *SliceSource) Name() string {
	if s.Label == "" {
		return "memory"
	}
	return s.Label
}

// Scan implements Source.
func (s *SliceSource) Scan(ctx context.Context, fn func(Record) error) error {
	for _, r := range s.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// #endregion slice-source
