package ownership

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/crossbind/internal/ir"
)

// Heuristics configures the inferred ownership rules.
type Heuristics struct {
	// ParentArgument names the constructor argument that owns the new
	// object. Empty disables the rule.
	ParentArgument string

	// ReturnValue enables "self owns the returned object".
	ReturnValue bool

	// ParentAccessorPrefix excludes accessors exposing an existing parent
	// from the return-value rule. Non-accessor methods are not excluded.
	ParentAccessorPrefix string
}

// DefaultHeuristics returns the conventional configuration.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		ParentArgument:       "parent",
		ReturnValue:          true,
		ParentAccessorPrefix: "parent",
	}
}

// StepKind is the operation of a plan step.
type StepKind string

const (
	StepToNative    StepKind = "to_native"
	StepToScript    StepKind = "to_script"
	StepInvalidate  StepKind = "invalidate"
	StepAddOwner    StepKind = "add_owner"
	StepRemoveOwner StepKind = "remove_owner"
	StepKeepAlive   StepKind = "keep_alive"
)

// Rule records why a step exists.
type Rule string

const (
	RuleExplicit        Rule = "explicit"
	RuleParentHeuristic Rule = "parent_heuristic"
	RuleReturnHeuristic Rule = "return_heuristic"
)

// Step is one post-call ownership operation, expressed in call roles.
type Step struct {
	Kind   StepKind
	Rule   Rule
	Target ir.Role
	Owner  ir.Role // add_owner, remove_owner; keep_alive holder

	Action ir.EdgeAction // keep_alive
	Key    string        // keep_alive
}

func (s Step) String() string {
	switch s.Kind {
	case StepAddOwner, StepRemoveOwner:
		return fmt.Sprintf("%s %s -> %s (%s)", s.Kind, s.Owner, s.Target, s.Rule)
	case StepKeepAlive:
		return fmt.Sprintf("%s %s %s on %s key=%s", s.Kind, s.Action, s.Target, s.Owner, s.Key)
	}
	return fmt.Sprintf("%s %s (%s)", s.Kind, s.Target, s.Rule)
}

// KeepAliveKey is the key used by a keep-alive directive without an
// explicit one: the minimal signature and the 1-based argument index.
func KeepAliveKey(ov *ir.Overload, role ir.Role) string {
	return fmt.Sprintf("%s:%d", ir.MinimalSignature(ov), int(role))
}

// Plan computes the post-call steps of an overload.
func Plan(m *ir.Model, ov *ir.Overload, h Heuristics) []Step {
	var steps []Step

	// Explicit directives.
	for i, a := range ov.Args {
		steps = appendDirectives(steps, ir.ArgRole(i+1), a.Ownership, a.Owner)
	}
	steps = appendDirectives(steps, ir.RoleReturn, ov.ReturnOwnership, ov.ReturnOwner)

	if s, ok := parentHeuristic(m, ov, h); ok {
		steps = append(steps, s)
	}
	if s, ok := returnHeuristic(m, ov, h, steps); ok {
		steps = append(steps, s)
	}

	for i, a := range ov.Args {
		if a.RefCount != nil {
			steps = append(steps, keepAliveStep(ov, ir.ArgRole(i+1), a.RefCount))
		}
	}
	if ov.ReturnRefCount != nil {
		steps = append(steps, keepAliveStep(ov, ir.RoleReturn, ov.ReturnRefCount))
	}
	return steps
}

func appendDirectives(steps []Step, role ir.Role, own ir.Ownership, owner *ir.OwnerDirective) []Step {
	switch own {
	case ir.OwnershipToNative:
		steps = append(steps, Step{Kind: StepToNative, Rule: RuleExplicit, Target: role})
	case ir.OwnershipToScript:
		steps = append(steps, Step{Kind: StepToScript, Rule: RuleExplicit, Target: role})
	case ir.OwnershipInvalidate:
		steps = append(steps, Step{Kind: StepInvalidate, Rule: RuleExplicit, Target: role})
	}
	if owner != nil {
		kind := StepAddOwner
		if owner.Action == ir.ActionRemove {
			kind = StepRemoveOwner
		}
		steps = append(steps, Step{Kind: kind, Rule: RuleExplicit, Target: role, Owner: owner.Owner})
	}
	return steps
}

// parentHeuristic: a constructor argument named by convention, of a type
// taking part in parent/child tracking and without a directive of its own,
// owns the new object.
func parentHeuristic(m *ir.Model, ov *ir.Overload, h Heuristics) (Step, bool) {
	if ov.Kind != ir.FuncConstructor || h.ParentArgument == "" {
		return Step{}, false
	}
	for i, a := range ov.Args {
		if a.Name != h.ParentArgument || a.Removed {
			continue
		}
		if a.Ownership != ir.OwnershipDefault || a.Owner != nil {
			return Step{}, false
		}
		te, ok := m.Type(a.EffectiveType())
		if !ok || te.Kind != ir.KindObject || !te.ParentTracked {
			return Step{}, false
		}
		return Step{Kind: StepAddOwner, Rule: RuleParentHeuristic, Target: ir.RoleSelf, Owner: ir.ArgRole(i + 1)}, true
	}
	return Step{}, false
}

// returnHeuristic: a method returning a wrapped pointer-like object keeps
// it owned by self, unless something already governs the return value or
// the method is a plain accessor exposing an existing parent.
func returnHeuristic(m *ir.Model, ov *ir.Overload, h Heuristics, prior []Step) (Step, bool) {
	if !h.ReturnValue || !ov.HasSelf() || ov.IsVoid() {
		return Step{}, false
	}
	if ov.ModifiedReturn != "" || ov.ReturnConversion != "" {
		return Step{}, false
	}
	if ov.Accessor && h.ParentAccessorPrefix != "" && strings.HasPrefix(ov.Name, h.ParentAccessorPrefix) {
		return Step{}, false
	}
	for _, s := range prior {
		if s.Target == ir.RoleReturn || (s.Kind == StepAddOwner && s.Owner == ir.RoleReturn) {
			return Step{}, false
		}
	}
	te, ok := m.Type(ov.EffectiveReturn())
	if !ok || !te.PointerLike() {
		return Step{}, false
	}
	return Step{Kind: StepAddOwner, Rule: RuleReturnHeuristic, Target: ir.RoleReturn, Owner: ir.RoleSelf}, true
}

func keepAliveStep(ov *ir.Overload, role ir.Role, d *ir.RefCountDirective) Step {
	key := d.Key
	if key == "" {
		key = KeepAliveKey(ov, role)
	}
	action := d.Action
	if action == "" {
		action = ir.ActionAdd
	}
	return Step{Kind: StepKeepAlive, Rule: RuleExplicit, Target: role, Owner: ir.RoleSelf, Action: action, Key: key}
}

// CallSite holds the script values of a completed call, by role.
type CallSite struct {
	Self   ir.Value
	Args   []ir.Value // by declared index; nil for removed arguments
	Return ir.Value
}

func (c CallSite) value(r ir.Role) ir.Value {
	switch {
	case r == ir.RoleSelf:
		return c.Self
	case r == ir.RoleReturn:
		return c.Return
	case r.IsArg() && r.ArgIndex() < len(c.Args):
		return c.Args[r.ArgIndex()]
	}
	return nil
}

func (c CallSite) object(r ir.Role) *ir.Object {
	o, _ := c.value(r).(*ir.Object)
	return o
}

// Apply runs plan steps against a completed call. Steps whose roles hold
// no wrapper (None, a plain value) are skipped. Every step runs; failures
// are joined.
func (t *Tracker) Apply(steps []Step, site CallSite) error {
	var errs []error
	for _, s := range steps {
		if err := t.applyStep(s, site); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

func (t *Tracker) applyStep(s Step, site CallSite) error {
	if s.Kind == StepKeepAlive {
		holder := site.object(s.Owner)
		if holder == nil {
			slog.Debug("keep-alive without a holder, skipped", "step", s.String())
			return nil
		}
		return t.KeepAlive(holder.ID, s.Key, s.Action, site.value(s.Target))
	}

	target := site.object(s.Target)
	if target == nil {
		return nil
	}
	switch s.Kind {
	case StepToNative:
		return t.TransferToNative(target.ID)
	case StepToScript:
		return t.TransferToScript(target.ID)
	case StepInvalidate:
		return t.Invalidate(target.ID)
	case StepAddOwner:
		owner := site.object(s.Owner)
		if owner == nil {
			// Parenting to None releases the object to the script side.
			if ir.IsNone(site.value(s.Owner)) {
				return t.ReleaseOwner(target.ID)
			}
			return nil
		}
		return t.SetOwner(owner.ID, target.ID)
	case StepRemoveOwner:
		owner := site.object(s.Owner)
		if owner == nil {
			return t.ReleaseOwner(target.ID)
		}
		return t.RemoveOwner(owner.ID, target.ID)
	}
	return fmt.Errorf("unknown step kind %q", s.Kind)
}
