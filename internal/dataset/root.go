package dataset

import (
	"context"

	"github.com/cockroachdb/errors"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/danielpatrickdp/cutscan/internal/event"
)

// #region root-source
// rootSource reads a flat ROOT ntuple. Only scalar numeric branches are
// visible; every type is widened to float64.
type rootSource struct {
	opts Options
}

func (s *rootSource) Name() string {
	return s.opts.Path + ":" + s.opts.Tree
}

func (s *rootSource) openTree() (*groot.File, rtree.Tree, error) {
	f, err := groot.Open(s.opts.Path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open root file")
	}
	obj, err := f.Get(s.opts.Tree)
	if err != nil {
		f.Close()
		return nil, nil, errors.Wrapf(err, "get tree %q", s.opts.Tree)
	}
	t, ok := obj.(rtree.Tree)
	if !ok {
		f.Close()
		return nil, nil, errors.Newf("%q is a %T, not a tree", s.opts.Tree, obj)
	}
	return f, t, nil
}

// scalarVars lists the tree's scalar numeric branches.
func scalarVars(t rtree.Tree) []rtree.ReadVar {
	var out []rtree.ReadVar
	for _, rv := range rtree.NewReadVars(t) {
		if _, ok := widen(rv.Value); ok {
			out = append(out, rv)
		}
	}
	return out
}

func (s *rootSource) plan(t rtree.Tree) (*event.Schema, []rtree.ReadVar, int, error) {
	vars := scalarVars(t)
	byName := make(map[string]rtree.ReadVar, len(vars))
	names := make([]string, 0, len(vars))
	for _, rv := range vars {
		byName[rv.Name] = rv
		names = append(names, rv.Name)
	}
	cols, err := selectColumns(names, s.opts)
	if err != nil {
		return nil, nil, 0, err
	}
	schema, err := event.NewSchema(cols...)
	if err != nil {
		return nil, nil, 0, err
	}
	read := make([]rtree.ReadVar, 0, len(cols)+1)
	for _, c := range cols {
		read = append(read, byName[c])
	}
	read = append(read, byName[s.opts.Label])
	return schema, read, len(cols), nil
}

func (s *rootSource) check() (int64, error) {
	f, t, err := s.openTree()
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if _, _, _, err := s.plan(t); err != nil {
		return 0, err
	}
	return t.Entries(), nil
}

func (s *rootSource) Scan(ctx context.Context, fn func(event.Record) error) error {
	f, t, err := s.openTree()
	if err != nil {
		return errors.Mark(err, ErrDatasetUnavailable)
	}
	defer f.Close()

	schema, read, labelAt, err := s.plan(t)
	if err != nil {
		return errors.Mark(err, ErrDatasetUnavailable)
	}
	r, err := rtree.NewReader(t, read)
	if err != nil {
		return errors.Wrap(err, "new tree reader")
	}
	defer r.Close()

	vals := make([]float64, labelAt)
	return r.Read(func(rc rtree.RCtx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := 0; i < labelAt; i++ {
			vals[i], _ = widen(read[i].Value)
		}
		raw, _ := widen(read[labelAt].Value)
		signal, err := event.LabelFromFloat(raw)
		if err != nil {
			return errors.Wrapf(err, "entry %d", rc.Entry)
		}
		rec, err := event.NewRecord(schema, vals, signal)
		if err != nil {
			return err
		}
		return fn(rec)
	})
}

// #endregion root-source

// #region widen
// widen dereferences a scalar branch value.
func widen(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case *float64:
		return *v, true
	case *float32:
		return float64(*v), true
	case *int64:
		return float64(*v), true
	case *int32:
		return float64(*v), true
	case *int16:
		return float64(*v), true
	case *int8:
		return float64(*v), true
	case *uint64:
		return float64(*v), true
	case *uint32:
		return float64(*v), true
	case *uint16:
		return float64(*v), true
	case *uint8:
		return float64(*v), true
	case *bool:
		if *v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// #endregion widen
