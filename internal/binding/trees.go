package binding

import (
	"context"
	"fmt"

	"github.com/roach88/crossbind/internal/convert"
	"github.com/roach88/crossbind/internal/decisor"
	"github.com/roach88/crossbind/internal/dispatch"
	"github.com/roach88/crossbind/internal/ir"
	"github.com/roach88/crossbind/internal/ownership"
)

// unbound resolves every signature to a native that fails when called.
// Building trees only consults the registry's checks.
type unbound struct{}

func (unbound) Lookup(minimal string) (dispatch.NativeFunc, bool) {
	return func(context.Context, *dispatch.NativeCall) (any, error) {
		return nil, fmt.Errorf("%s: no native library loaded", minimal)
	}, true
}

// BuildTrees builds the decision trees of model without a native library,
// the way Load does. The model is frozen if it is not already.
func BuildTrees(model *ir.Model) (map[string]*decisor.Tree, error) {
	if !model.Frozen() {
		model.Freeze()
	}
	reg := convert.New(model)
	if err := convert.Populate(reg, ownership.NewTracker(model)); err != nil {
		return nil, fmt.Errorf("build trees: %w", err)
	}
	if err := registerConstructors(reg, unbound{}); err != nil {
		return nil, fmt.Errorf("build trees: %w", err)
	}
	reg.Seal()
	return decisor.NewBuilder(reg).BuildAll()
}
