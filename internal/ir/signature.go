package ir

import (
	"fmt"
	"strings"
)

// MinimalSignature is the native-side identity of an overload: the callable
// followed by every declared argument type, removed ones included.
//
//	Widget.resize(int,int)
//
// Native implementations are registered under this key, and keep-alive
// slots without an explicit key derive theirs from it.
func MinimalSignature(ov *Overload) string {
	var sb strings.Builder
	sb.WriteString(ov.Callable)
	if ov.Reverse {
		sb.WriteString("@reverse")
	}
	sb.WriteByte('(')
	for i, a := range ov.Args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(string(a.Type))
	}
	sb.WriteByte(')')
	return sb.String()
}

// ScriptSignature is the script-visible signature of an overload, with
// argument names and default expressions.
//
//	Widget.resize(int w, int h = 0)
func ScriptSignature(ov *Overload) string {
	var parts []string
	for _, i := range ov.VisibleArgs() {
		a := ov.Args[i]
		if a.Type == TypeVarargs {
			parts = append(parts, string(TypeVarargs))
			continue
		}
		p := string(a.EffectiveType())
		if a.Name != "" {
			p += " " + a.Name
		}
		if a.HasDefault() {
			p += " = " + a.Default
		}
		parts = append(parts, p)
	}
	return fmt.Sprintf("%s(%s)", displayName(ov), strings.Join(parts, ", "))
}

// ExpandedSignatures lists one script signature per accepted argument count,
// so an overload with defaulted trailing arguments shows every call shape.
//
//	f(int a, int b = 1) -> ["f(int)", "f(int, int)"]
func ExpandedSignatures(ov *Overload) []string {
	vis := ov.VisibleArgs()
	fixed := len(vis)
	if ov.IsVarargs() {
		fixed--
	}
	out := make([]string, 0, fixed-ov.MinArgs()+1)
	for n := ov.MinArgs(); n <= fixed; n++ {
		parts := make([]string, 0, n+1)
		for _, i := range vis[:n] {
			parts = append(parts, string(ov.Args[i].EffectiveType()))
		}
		if ov.IsVarargs() {
			parts = append(parts, string(TypeVarargs))
		}
		out = append(out, fmt.Sprintf("%s(%s)", displayName(ov), strings.Join(parts, ", ")))
	}
	return out
}

func displayName(ov *Overload) string {
	if ov.Callable != "" {
		return ov.Callable
	}
	return ov.Name
}
