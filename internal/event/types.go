package event

import (
	"context"

	"github.com/cockroachdb/errors"
)

var (
	// ErrBadLabel is returned when a ground-truth label is neither 0 nor 1.
	ErrBadLabel = errors.New("label must be 0 or 1")
	// ErrUnknownField is returned when a record has no field of that name.
	ErrUnknownField = errors.New("unknown field")
)

// DefaultLabel is the ground-truth column of the experiment ntuples.
const DefaultLabel = "mcSignal"

// #region schema
// Schema maps field names to column positions. Records read from one
// source share a single schema.
type Schema struct {
	names []string
	index map[string]int
}

// #endregion schema

// #region record
// Record is one labelled event. It is immutable once built: Fields returns
// a copy and no method mutates the backing values.
type Record struct {
	schema *Schema
	values []float64
	signal bool
}

// #endregion record

// #region source
// Source yields records sequentially. Every call to Scan restarts from the
// first record; returning an error from fn stops the iteration and Scan
// returns that error.
type Source interface {
	Name() string
	Scan(ctx context.Context, fn func(Record) error) error
}

// #endregion source
