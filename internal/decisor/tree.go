package decisor

import (
	"github.com/roach88/crossbind/internal/convert"
	"github.com/roach88/crossbind/internal/ir"
)

// Tier orders the branches of a node.
type Tier int

const (
	TierExact Tier = iota
	TierNumeric
	TierImplicit
	TierAny
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierNumeric:
		return "numeric"
	case TierImplicit:
		return "implicit"
	case TierAny:
		return "any"
	}
	return "unknown"
}

// Predicate is a type check at one argument position. Overloads whose
// checks share a Key are structurally identical there and share a branch.
type Predicate struct {
	Key  string
	Tier Tier
	Type ir.TypeID // first declared type mapped to this predicate

	depth int
	check convert.CheckFunc
}

// Match reports whether v passes the check. A Missing slot left by keyword
// resolution passes every check; the selected overload's defaults fill it.
func (p *Predicate) Match(v ir.Value) bool {
	if _, ok := v.(ir.Missing); ok {
		return true
	}
	return p.check(v)
}

func (p *Predicate) String() string {
	return p.Key
}

// Branch is one (predicate, subtree) pair of a node.
type Branch struct {
	Pred  *Predicate
	Child *Node
}

// Node dispatches on argument position Pos.
type Node struct {
	Pos int

	// Count lists, best first, the overloads selected when exactly Pos
	// arguments were supplied.
	Count []ir.OverloadID

	Branches []*Branch

	// Rest is the variadic overload whose tail starts at Pos, tried after
	// every branch.
	Rest *Leaf

	// Leaf is set when a single overload remains; the node has nothing else.
	Leaf *Leaf
}

// Leaf checks all remaining positions of one overload.
type Leaf struct {
	Overload ir.OverloadID
	From     int
	Min, Max int // Max < 0: unbounded
	Checks   []*Predicate
	Varargs  *Predicate
}

// Candidate is one overload of a tree with its frozen signature strings.
type Candidate struct {
	ID        ir.OverloadID
	Minimal   string
	Signature string
	Expanded  []string
	Reverse   bool
}

// Tree is the immutable decision tree of one callable.
type Tree struct {
	Callable   string
	Candidates []Candidate

	Root    *Node
	Reverse *Node // nil unless the callable has reverse operator overloads

	// Defaults holds the parsed default of each declared argument, nil
	// where the argument has none.
	Defaults map[ir.OverloadID][]*ir.DefaultValue

	Rendered string
	Hash     string

	visibleDefaults map[ir.OverloadID][]bool
}

// Select walks the tree with the actual arguments and returns the unique
// matching overload. A failed subtree falls back to the next sibling
// branch. reverse selects the reverse-operator tree.
func (t *Tree) Select(args []ir.Value, reverse bool) (ir.OverloadID, bool) {
	root := t.Root
	if reverse {
		root = t.Reverse
	}
	if root == nil {
		return ir.NoOverload, false
	}
	return t.walk(root, args)
}

func (t *Tree) walk(n *Node, args []ir.Value) (ir.OverloadID, bool) {
	if n.Leaf != nil {
		if t.leafMatch(n.Leaf, args) {
			return n.Leaf.Overload, true
		}
		return ir.NoOverload, false
	}
	if len(args) <= n.Pos {
		for _, id := range n.Count {
			if t.defaultsCover(id, args) {
				return id, true
			}
		}
		return ir.NoOverload, false
	}

	v := args[n.Pos]
	for _, br := range n.Branches {
		if !br.Pred.Match(v) {
			continue
		}
		if id, ok := t.walk(br.Child, args); ok {
			return id, true
		}
	}
	if n.Rest != nil && t.leafMatch(n.Rest, args) {
		return n.Rest.Overload, true
	}
	return ir.NoOverload, false
}

func (t *Tree) leafMatch(l *Leaf, args []ir.Value) bool {
	n := len(args)
	if n < l.Min || (l.Max >= 0 && n > l.Max) {
		return false
	}
	for p := l.From; p < n; p++ {
		pred := l.Varargs
		if i := p - l.From; i < len(l.Checks) {
			pred = l.Checks[i]
		}
		if pred == nil || !pred.Match(args[p]) {
			return false
		}
	}
	return t.defaultsCover(l.Overload, args)
}

// defaultsCover reports whether every Missing slot in args has a default
// in the overload.
func (t *Tree) defaultsCover(id ir.OverloadID, args []ir.Value) bool {
	mask := t.visibleDefaults[id]
	for p, v := range args {
		if _, ok := v.(ir.Missing); !ok {
			continue
		}
		if p >= len(mask) || !mask[p] {
			return false
		}
	}
	return true
}

// CandidateSignatures lists every candidate call shape, defaulted trailing
// arguments expanded, in declaration order.
func (t *Tree) CandidateSignatures() []string {
	var out []string
	for _, c := range t.Candidates {
		out = append(out, c.Expanded...)
	}
	return out
}

// Candidate returns the candidate entry of an overload.
func (t *Tree) Candidate(id ir.OverloadID) (Candidate, bool) {
	for _, c := range t.Candidates {
		if c.ID == id {
			return c, true
		}
	}
	return Candidate{}, false
}

// HasReverse reports whether the callable has reverse operator overloads.
func (t *Tree) HasReverse() bool {
	return t.Reverse != nil
}

// Depth returns the deepest argument position any node or leaf checks.
func (t *Tree) Depth() int {
	d := depth(t.Root)
	if r := depth(t.Reverse); r > d {
		d = r
	}
	return d
}

func depth(n *Node) int {
	if n == nil {
		return 0
	}
	if n.Leaf != nil {
		return n.Leaf.From + len(n.Leaf.Checks)
	}
	d := n.Pos
	for _, br := range n.Branches {
		if cd := depth(br.Child); cd > d {
			d = cd
		}
	}
	if n.Rest != nil {
		if rd := n.Rest.From + len(n.Rest.Checks); rd > d {
			d = rd
		}
	}
	return d
}
