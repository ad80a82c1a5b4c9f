package decisor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/crossbind/internal/ir"
)

// Render returns a stable text dump of a tree. The dump is what the catalog
// stores and what the tree hash covers.
//
//	callable Widget.resize
//	  #3 Widget.resize(int w, int h = 0)
//	tree
//	  leaf #3 argc 1..2
//	    arg0 numeric:int
//	    arg1 numeric:int
func Render(t *Tree) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "callable %s\n", t.Callable)
	for _, c := range t.Candidates {
		fmt.Fprintf(&sb, "  #%d %s", c.ID, c.Signature)
		if c.Reverse {
			sb.WriteString(" [reverse]")
		}
		sb.WriteByte('\n')
	}

	sb.WriteString("tree\n")
	if t.Root == nil {
		sb.WriteString("  (none)\n")
	} else {
		renderNode(&sb, t.Root, 1)
	}
	if t.Reverse != nil {
		sb.WriteString("reverse\n")
		renderNode(&sb, t.Reverse, 1)
	}
	return sb.String()
}

func renderNode(sb *strings.Builder, n *Node, depth int) {
	ind := strings.Repeat("  ", depth)
	if n.Leaf != nil {
		renderLeaf(sb, n.Leaf, depth)
		return
	}
	if len(n.Count) > 0 {
		fmt.Fprintf(sb, "%sargc %d -> %s\n", ind, n.Pos, describe(n.Count))
	}
	for _, br := range n.Branches {
		fmt.Fprintf(sb, "%sarg%d %s\n", ind, n.Pos, br.Pred.Key)
		renderNode(sb, br.Child, depth+1)
	}
	if n.Rest != nil {
		fmt.Fprintf(sb, "%sarg%d.. varargs\n", ind, n.Pos)
		renderLeaf(sb, n.Rest, depth+1)
	}
}

func renderLeaf(sb *strings.Builder, l *Leaf, depth int) {
	ind := strings.Repeat("  ", depth)
	max := "*"
	if l.Max >= 0 {
		max = strconv.Itoa(l.Max)
	}
	fmt.Fprintf(sb, "%sleaf #%d argc %d..%s\n", ind, l.Overload, l.Min, max)
	for i, c := range l.Checks {
		fmt.Fprintf(sb, "%s  arg%d %s\n", ind, l.From+i, c.Key)
	}
	if l.Varargs != nil {
		fmt.Fprintf(sb, "%s  arg%d.. any\n", ind, l.From+len(l.Checks))
	}
}

func describe(ids []ir.OverloadID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, " ")
}
