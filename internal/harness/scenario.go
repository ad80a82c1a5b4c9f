package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/crossbind/internal/ownership"
)

// Scenario is one dispatch scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file and
	// the journal session.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Library names the sample native library, see testutil.Libraries.
	Library string `yaml:"library"`

	// Heuristics overrides the default ownership heuristics.
	Heuristics *Heuristics `yaml:"heuristics,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace, journal and library state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Heuristics toggles the inferred ownership rules. Unset fields keep
// their defaults.
type Heuristics struct {
	ParentArgument *string `yaml:"parent_argument,omitempty"`
	ReturnValue    *bool   `yaml:"return_value,omitempty"`
}

func (s *Scenario) heuristics(base ownership.Heuristics) ownership.Heuristics {
	h := base
	if s.Heuristics == nil {
		return h
	}
	if s.Heuristics.ParentArgument != nil {
		h.ParentArgument = *s.Heuristics.ParentArgument
	}
	if s.Heuristics.ReturnValue != nil {
		h.ReturnValue = *s.Heuristics.ReturnValue
	}
	return h
}

// Step is one scenario step. Exactly one of Call, Override, Virtual,
// Collect, Destroy and Owner is set.
type Step struct {
	// Call is the callable to dispatch, e.g. "Widget.resize".
	Call    string         `yaml:"call,omitempty"`
	Self    string         `yaml:"self,omitempty"`
	Args    []any          `yaml:"args,omitempty"`
	Kwargs  map[string]any `yaml:"kwargs,omitempty"`
	Reverse bool           `yaml:"reverse,omitempty"`

	// Bind names the returned wrapper for later steps.
	Bind string `yaml:"bind,omitempty"`

	Override *OverrideStep `yaml:"override,omitempty"`
	Virtual  *VirtualStep  `yaml:"virtual,omitempty"`
	Collect  string        `yaml:"collect,omitempty"`
	Destroy  string        `yaml:"destroy,omitempty"`
	Owner    *OwnerStep    `yaml:"owner,omitempty"`

	// Expect checks the outcome. Without it any script error fails the
	// scenario.
	Expect *Expect `yaml:"expect,omitempty"`
}

// OverrideStep installs a script override returning a fixed value.
type OverrideStep struct {
	Self    string `yaml:"self"`
	Method  string `yaml:"method"`
	Returns any    `yaml:"returns,omitempty"`
	Remove  bool   `yaml:"remove,omitempty"`
}

// VirtualStep calls a virtual method the way native code would.
type VirtualStep struct {
	Self string `yaml:"self"`
	// Method is the callable, e.g. "Widget.sizeHint".
	Method string `yaml:"method"`
}

// OwnerStep checks the owner of Object. An empty Is expects no owner.
type OwnerStep struct {
	Object string `yaml:"object"`
	Is     string `yaml:"is"`
}

// Expect specifies the expected step outcome.
type Expect struct {
	// Value is compared with ir.Equal; absent means unchecked.
	Value *yaml.Node `yaml:"value,omitempty"`

	// Type is the script type name of the result, e.g. "Point".
	Type string `yaml:"type,omitempty"`

	// Error is the expected error kind, e.g. "NoMatchingOverload".
	Error string `yaml:"error,omitempty"`

	// Message must be a substring of the error message.
	Message string `yaml:"message,omitempty"`

	// Destroyed is the expected result of a collect step.
	Destroyed *bool `yaml:"destroyed,omitempty"`
}

// Op returns the step kind.
func (s *Step) Op() string {
	switch {
	case s.Call != "":
		return OpCall
	case s.Override != nil:
		return OpOverride
	case s.Virtual != nil:
		return OpVirtual
	case s.Collect != "":
		return OpCollect
	case s.Destroy != "":
		return OpDestroy
	case s.Owner != nil:
		return OpOwner
	}
	return ""
}

// Step kinds.
const (
	OpCall     = "call"
	OpOverride = "override"
	OpVirtual  = "virtual"
	OpCollect  = "collect"
	OpDestroy  = "destroy"
	OpOwner    = "owner"
)

// Assertion validates the final trace, journal or library state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_count": Action was called exactly Count times
	// - "trace_contains": Action was called, with Outcome if set
	// - "destroyed": the destroy hook saw exactly Objects
	// - "journal_contains": Event was journaled (seq omitted)
	// - "alive": Ref is tracked when Alive is true, gone otherwise
	Type string `yaml:"type"`

	Action  string   `yaml:"action,omitempty"`
	Count   int      `yaml:"count,omitempty"`
	Outcome string   `yaml:"outcome,omitempty"`
	Objects []string `yaml:"objects,omitempty"`
	Event   string   `yaml:"event,omitempty"`
	Ref     string   `yaml:"ref,omitempty"`
	Alive   *bool    `yaml:"alive,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceCount      = "trace_count"
	AssertTraceContains   = "trace_contains"
	AssertDestroyed       = "destroyed"
	AssertJournalContains = "journal_contains"
	AssertAlive           = "alive"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	var out []*Scenario
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Library == "" {
		return fmt.Errorf("library is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	bound := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(i, &step, bound); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step, bound map[string]bool) error {
	set := 0
	for _, present := range []bool{s.Call != "", s.Override != nil, s.Virtual != nil, s.Collect != "", s.Destroy != "", s.Owner != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of call, override, virtual, collect, destroy, owner is required", index)
	}

	if s.Call == "" && (s.Self != "" || len(s.Args) > 0 || len(s.Kwargs) > 0 || s.Reverse) {
		return fmt.Errorf("steps[%d]: self, args, kwargs and reverse only apply to call", index)
	}
	if s.Bind != "" && s.Call == "" {
		return fmt.Errorf("steps[%d]: bind only applies to call", index)
	}

	refs := []string{s.Self, s.Collect, s.Destroy}
	switch {
	case s.Override != nil:
		if s.Override.Method == "" {
			return fmt.Errorf("steps[%d].override: method is required", index)
		}
		refs = append(refs, s.Override.Self)
		if s.Override.Self == "" {
			return fmt.Errorf("steps[%d].override: self is required", index)
		}
	case s.Virtual != nil:
		if s.Virtual.Method == "" || s.Virtual.Self == "" {
			return fmt.Errorf("steps[%d].virtual: self and method are required", index)
		}
		refs = append(refs, s.Virtual.Self)
	case s.Owner != nil:
		if s.Owner.Object == "" {
			return fmt.Errorf("steps[%d].owner: object is required", index)
		}
		refs = append(refs, s.Owner.Object, s.Owner.Is)
	}
	for _, r := range refs {
		if r != "" && !bound[r] {
			return fmt.Errorf("steps[%d]: %q is not bound by an earlier step", index, r)
		}
	}

	if e := s.Expect; e != nil {
		if e.Destroyed != nil && s.Collect == "" {
			return fmt.Errorf("steps[%d].expect: destroyed only applies to collect", index)
		}
		if e.Error != "" && (e.Value != nil || e.Type != "") {
			return fmt.Errorf("steps[%d].expect: error excludes value and type", index)
		}
	}

	if s.Bind != "" {
		bound[s.Bind] = true
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertDestroyed:
		if a.Objects == nil {
			return fmt.Errorf("assertions[%d]: objects is required for destroyed (use [] for none)", index)
		}
	case AssertJournalContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for journal_contains", index)
		}
	case AssertAlive:
		if a.Ref == "" || a.Alive == nil {
			return fmt.Errorf("assertions[%d]: ref and alive are required for alive", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
