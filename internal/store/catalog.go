package store

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/crossbind/internal/decisor"
	"github.com/roach88/crossbind/internal/ir"
)

// Build is one compiled model as stored in the catalog.
type Build struct {
	ModelHash       string
	IRVersion       string
	CompilerVersion string
	Source          string // where the model came from, e.g. a CUE directory
	Callables       []Callable
}

// Callable is the frozen dispatch artifact of one callable.
type Callable struct {
	Name       string
	TreeHash   string
	Rendered   string
	Depth      int
	HasReverse bool
	Overloads  []Overload
}

// Overload is one candidate of a callable, in declaration order.
type Overload struct {
	Position  int
	Hash      string
	Minimal   string
	Signature string
	Expanded  []string
	Kind      ir.FunctionKind
}

// NewBuild assembles the catalog rows of a model and its decision trees.
// Callables are sorted by name.
func NewBuild(model *ir.Model, trees map[string]*decisor.Tree, source string) (Build, error) {
	hash, err := ir.ModelHash(model)
	if err != nil {
		return Build{}, fmt.Errorf("new build: %w", err)
	}
	b := Build{
		ModelHash:       hash,
		IRVersion:       ir.IRVersion,
		CompilerVersion: ir.CompilerVersion,
		Source:          source,
	}
	for _, name := range slices.Sorted(maps.Keys(trees)) {
		t := trees[name]
		c := Callable{
			Name:       name,
			TreeHash:   t.Hash,
			Rendered:   t.Rendered,
			Depth:      t.Depth(),
			HasReverse: t.HasReverse(),
		}
		for i, cand := range t.Candidates {
			ov := model.Overload(cand.ID)
			if ov == nil {
				return Build{}, fmt.Errorf("new build: %s: overload #%d not in model", name, cand.ID)
			}
			h, err := ir.OverloadHash(ov)
			if err != nil {
				return Build{}, fmt.Errorf("new build: %w", err)
			}
			c.Overloads = append(c.Overloads, Overload{
				Position:  i,
				Hash:      h,
				Minimal:   cand.Minimal,
				Signature: cand.Signature,
				Expanded:  cand.Expanded,
				Kind:      ov.Kind,
			})
		}
		b.Callables = append(b.Callables, c)
	}
	return b, nil
}
