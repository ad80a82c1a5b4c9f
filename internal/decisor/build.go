package decisor

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/crossbind/internal/convert"
	"github.com/roach88/crossbind/internal/ir"
)

// Builder builds decision trees over a frozen model and a populated registry.
type Builder struct {
	model *ir.Model
	reg   *convert.Registry
}

// NewBuilder creates a builder. Type-check predicates come from reg.
func NewBuilder(reg *convert.Registry) *Builder {
	return &Builder{model: reg.Model(), reg: reg}
}

// BuildAll builds the tree of every callable in the model. All build
// errors are collected and returned joined; the map is nil on error.
func (b *Builder) BuildAll() (map[string]*Tree, error) {
	trees := make(map[string]*Tree)
	var errs []error
	for _, callable := range b.model.Callables() {
		t, err := b.Build(callable)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		trees[callable] = t
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return trees, nil
}

// Build builds the decision tree of one callable.
func (b *Builder) Build(callable string) (*Tree, error) {
	all := b.model.Overloads(callable)
	if len(all) == 0 {
		return nil, &BuildError{Code: ErrCodeUnknownCallable, Callable: callable, Message: "no overloads"}
	}

	t := &Tree{
		Callable:        callable,
		Defaults:        make(map[ir.OverloadID][]*ir.DefaultValue),
		visibleDefaults: make(map[ir.OverloadID][]bool),
	}

	var forward, reverse []*ir.Overload
	seen := make(map[string]ir.OverloadID)
	for _, ov := range all {
		minimal := ir.MinimalSignature(ov)
		if first, dup := seen[minimal]; dup {
			slog.Debug("duplicate overload signature, keeping first",
				"callable", callable,
				"signature", minimal,
				"kept", first,
				"dropped", ov.ID,
			)
			continue
		}
		seen[minimal] = ov.ID

		if err := b.prepareArguments(t, ov); err != nil {
			return nil, err
		}
		t.Candidates = append(t.Candidates, Candidate{
			ID:        ov.ID,
			Minimal:   minimal,
			Signature: ir.ScriptSignature(ov),
			Expanded:  ir.ExpandedSignatures(ov),
			Reverse:   ov.Reverse,
		})
		if ov.Reverse {
			reverse = append(reverse, ov)
		} else {
			forward = append(forward, ov)
		}
	}

	var err error
	if len(forward) > 0 {
		if t.Root, err = b.build(callable, forward, 0); err != nil {
			return nil, err
		}
	}
	if len(reverse) > 0 {
		if t.Reverse, err = b.build(callable, reverse, 0); err != nil {
			return nil, err
		}
	}

	t.Rendered = Render(t)
	t.Hash = ir.TreeHash(callable, t.Rendered)
	return t, nil
}

// prepareArguments validates the declared arguments of an overload and
// parses its default expressions.
func (b *Builder) prepareArguments(t *Tree, ov *ir.Overload) error {
	defaults := make([]*ir.DefaultValue, len(ov.Args))
	for i, a := range ov.Args {
		if a.Type == ir.TypeVarargs && i != len(ov.Args)-1 {
			return &BuildError{
				Code:       ErrCodeUnknownType,
				Callable:   ov.Callable,
				Message:    "variadic tail must be the last argument",
				Signatures: []string{ir.MinimalSignature(ov)},
			}
		}
		if a.Removed && !a.HasDefault() {
			return &BuildError{
				Code:       ErrCodeRemovedArgumentWithoutDefault,
				Callable:   ov.Callable,
				Message:    fmt.Sprintf("argument %d (%s) is removed but has no default value", i+1, a.Name),
				Signatures: []string{ir.MinimalSignature(ov)},
			}
		}
		if !a.HasDefault() {
			continue
		}
		dv, err := b.model.ParseDefault(a.Default, a.EffectiveType())
		if err != nil {
			return &BuildError{
				Code:       ErrCodeInvalidDefault,
				Callable:   ov.Callable,
				Message:    fmt.Sprintf("argument %d (%s): %v", i+1, a.Name, err),
				Signatures: []string{ir.MinimalSignature(ov)},
			}
		}
		defaults[i] = &dv
	}
	t.Defaults[ov.ID] = defaults

	vis := ov.VisibleArgs()
	mask := make([]bool, len(vis))
	for p, i := range vis {
		mask[p] = ov.Args[i].HasDefault()
	}
	t.visibleDefaults[ov.ID] = mask
	return nil
}

// fixedArgs is the number of visible arguments before a variadic tail.
func fixedArgs(ov *ir.Overload) int {
	n := len(ov.VisibleArgs())
	if ov.IsVarargs() {
		n--
	}
	return n
}

type group struct {
	pred    *Predicate
	members []*ir.Overload
}

func (b *Builder) build(callable string, cands []*ir.Overload, pos int) (*Node, error) {
	if len(cands) == 1 {
		leaf, err := b.leaf(cands[0], pos)
		if err != nil {
			return nil, err
		}
		return &Node{Pos: pos, Leaf: leaf}, nil
	}

	node := &Node{Pos: pos}
	count, err := b.countBoundary(callable, cands, pos)
	if err != nil {
		return nil, err
	}
	node.Count = count

	var typed, tails []*ir.Overload
	for _, ov := range cands {
		switch {
		case ov.IsVarargs() && pos >= fixedArgs(ov):
			tails = append(tails, ov)
		case ov.IsVarargs() || ov.MaxArgs() > pos:
			typed = append(typed, ov)
		}
	}

	if len(tails) > 1 {
		return nil, ambiguous(callable, fmt.Sprintf("variadic tails from argument %d", pos), tails)
	}
	if len(tails) == 1 {
		if node.Rest, err = b.leaf(tails[0], pos); err != nil {
			return nil, err
		}
	}

	types := make([]ir.TypeID, len(typed))
	for i, ov := range typed {
		arg, _ := ov.VisibleArg(pos)
		types[i] = arg.EffectiveType()
	}

	var groups []*group
	index := make(map[string]*group)
	for i, ov := range typed {
		pred, err := b.predicate(types[i], types)
		if err != nil {
			return nil, &BuildError{
				Code:       ErrCodeUnknownType,
				Callable:   callable,
				Message:    fmt.Sprintf("argument %d: %v", pos+1, err),
				Signatures: []string{ir.MinimalSignature(ov)},
			}
		}
		g, ok := index[pred.Key]
		if !ok {
			g = &group{pred: pred}
			index[pred.Key] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, ov)
	}

	if err := b.implicitOverlap(callable, pos, groups); err != nil {
		return nil, err
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, c := groups[i].pred, groups[j].pred
		if a.Tier != c.Tier {
			return a.Tier < c.Tier
		}
		return a.depth > c.depth
	})

	for _, g := range groups {
		child, err := b.build(callable, g.members, pos+1)
		if err != nil {
			return nil, err
		}
		node.Branches = append(node.Branches, &Branch{Pred: g.pred, Child: child})
	}
	return node, nil
}

// implicitOverlap rejects two implicit-conversion branches at one position
// that accept a common source type: branch order alone would pick one.
func (b *Builder) implicitOverlap(callable string, pos int, groups []*group) error {
	type sources struct {
		g    *group
		keys map[string]ir.TypeID
	}
	var seen []sources
	for _, g := range groups {
		if g.pred.Tier != TierImplicit {
			continue
		}
		cur := sources{g: g, keys: make(map[string]ir.TypeID)}
		for _, c := range b.reg.Implicit(g.pred.Type) {
			cur.keys[b.sourceKey(c.Source)] = c.Source
		}
		for _, prev := range seen {
			if src, ok := overlap(prev.keys, cur.keys); ok {
				return ambiguous(callable,
					fmt.Sprintf("argument %d, implicitly convertible from %s to both", pos+1, src),
					[]*ir.Overload{prev.g.members[0], g.members[0]})
			}
		}
		seen = append(seen, cur)
	}
	return nil
}

// sourceKey folds numeric sources of one class together: a script integer
// passes the check of every integer width.
func (b *Builder) sourceKey(src ir.TypeID) string {
	if nk := b.reg.NumericKey(src); nk != "" {
		return "numeric:" + nk
	}
	return string(src)
}

func overlap(a, c map[string]ir.TypeID) (ir.TypeID, bool) {
	for k, src := range a {
		if _, ok := c[k]; ok {
			return src, true
		}
		if k == string(ir.TypeAny) && len(c) > 0 {
			return src, true
		}
	}
	if _, ok := c[string(ir.TypeAny)]; ok && len(a) > 0 {
		return ir.TypeAny, true
	}
	return "", false
}

// countBoundary ranks the overloads that accept exactly pos arguments: an
// overload needing no defaults first, then one filling defaults, then a
// variadic one. Two overloads with the same exact arity cannot be told
// apart by any call.
func (b *Builder) countBoundary(callable string, cands []*ir.Overload, pos int) ([]ir.OverloadID, error) {
	type ranked struct {
		ov   *ir.Overload
		rank int
	}
	var rs []ranked
	for _, ov := range cands {
		if !ov.AcceptsCount(pos) {
			continue
		}
		rank := 1
		switch {
		case ov.IsVarargs():
			rank = 2
		case ov.MaxArgs() == pos:
			rank = 0
		}
		rs = append(rs, ranked{ov, rank})
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].rank < rs[j].rank })

	if len(rs) > 1 && rs[0].rank == rs[1].rank {
		if rs[0].rank == 0 {
			return nil, ambiguous(callable, fmt.Sprintf("calls with %d arguments", pos), []*ir.Overload{rs[0].ov, rs[1].ov})
		}
		slog.Debug("count boundary resolved by declaration order",
			"callable", callable,
			"argc", pos,
			"selected", ir.MinimalSignature(rs[0].ov),
			"shadowed", ir.MinimalSignature(rs[1].ov),
		)
	}

	ids := make([]ir.OverloadID, len(rs))
	for i, r := range rs {
		ids[i] = r.ov.ID
	}
	return ids, nil
}

func (b *Builder) leaf(ov *ir.Overload, from int) (*Leaf, error) {
	l := &Leaf{Overload: ov.ID, From: from, Min: ov.MinArgs(), Max: ov.MaxArgs()}
	for p := from; p < fixedArgs(ov); p++ {
		arg, _ := ov.VisibleArg(p)
		t := arg.EffectiveType()
		pred, err := b.predicate(t, []ir.TypeID{t})
		if err != nil {
			return nil, &BuildError{
				Code:       ErrCodeUnknownType,
				Callable:   ov.Callable,
				Message:    fmt.Sprintf("argument %d: %v", p+1, err),
				Signatures: []string{ir.MinimalSignature(ov)},
			}
		}
		l.Checks = append(l.Checks, pred)
	}
	if ov.IsVarargs() {
		l.Varargs = anyPredicate(ir.TypeVarargs)
	}
	return l, nil
}

func anyPredicate(t ir.TypeID) *Predicate {
	return &Predicate{Key: "any", Tier: TierAny, Type: t, check: func(ir.Value) bool { return true }}
}

// predicate computes the check for type t at a position where siblings are
// the types of every remaining candidate.
func (b *Builder) predicate(t ir.TypeID, siblings []ir.TypeID) (*Predicate, error) {
	if t == ir.TypeAny || t == ir.TypeVarargs {
		return anyPredicate(t), nil
	}
	entry, ok := b.model.Type(t)
	if !ok {
		return nil, fmt.Errorf("unknown type %q", t)
	}
	implicit := len(b.reg.Implicit(t)) > 0
	if !b.reg.Known(t) && !implicit {
		return nil, fmt.Errorf("no converter registered for %q", t)
	}

	identity := string(t)
	if nk := b.reg.NumericKey(t); nk != "" {
		if b.reg.SoleNumeric(t, siblings) {
			return &Predicate{Key: "numeric:" + string(t), Tier: TierNumeric, Type: t, check: convert.NumericLike}, nil
		}
		identity = nk
	} else if entry.String {
		identity = "str"
	}

	if implicit {
		return &Predicate{Key: "implicit:" + identity, Tier: TierImplicit, Type: t, check: b.reg.ConvertibleCheck(t)}, nil
	}
	p := &Predicate{Key: "exact:" + identity, Tier: TierExact, Type: t, check: b.reg.ExactCheck(t)}
	switch entry.Kind {
	case ir.KindObject, ir.KindValue:
		p.depth = b.model.Depth(t) + 1
	case ir.KindSmartPointer:
		if len(entry.Instantiations) == 1 {
			p.depth = b.model.Depth(entry.Instantiations[0]) + 1
		}
	}
	return p, nil
}

func ambiguous(callable, where string, ovs []*ir.Overload) *BuildError {
	sigs := make([]string, len(ovs))
	for i, ov := range ovs {
		sigs[i] = ir.ScriptSignature(ov)
	}
	return &BuildError{
		Code:       ErrCodeAmbiguousOverload,
		Callable:   callable,
		Message:    "overloads cannot be distinguished for " + where,
		Signatures: sigs,
	}
}
