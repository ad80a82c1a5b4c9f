package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/crossbind/internal/binding"
	"github.com/roach88/crossbind/internal/compiler"
	"github.com/roach88/crossbind/internal/store"
)

// DecisorOptions holds flags for the decisor command.
type DecisorOptions struct {
	*RootOptions
	Catalog string
	Build   string // model hash or unique prefix; read from the catalog
}

// DecisorDump is one rendered decision tree.
type DecisorDump struct {
	Callable   string   `json:"callable"`
	TreeHash   string   `json:"tree_hash"`
	Depth      int      `json:"depth"`
	HasReverse bool     `json:"has_reverse"`
	Signatures []string `json:"signatures"`
	Rendered   string   `json:"rendered"`
}

// NewDecisorCommand creates the decisor command.
func NewDecisorCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecisorOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decisor [model-dir] [callable...]",
		Short: "Print overload decision trees",
		Long: `Print the decision trees of a typesystem description.

Without --build the description in model-dir is compiled in memory. With
--build the frozen trees of a compiled build are read from the catalog and
every argument names a callable.

Examples:
  crossbind decisor ./model
  crossbind decisor ./model Widget.resize Point.__add__
  crossbind decisor --build 3f2a Widget.resize`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecisor(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "db", "", "catalog database (default from config)")
	cmd.Flags().StringVar(&opts.Build, "build", "", "read trees of this model hash (or unique prefix) from the catalog")

	return cmd
}

func runDecisor(opts *DecisorOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var (
		dumps []DecisorDump
		err   error
	)
	if opts.Build != "" {
		dumps, err = catalogDumps(cmd, opts, args)
	} else {
		if len(args) == 0 {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "a model directory or --build is required", nil)
		}
		dumps, err = compiledDumps(args[0], args[1:])
	}
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			_ = formatter.Error(ErrCodeGeneric, exitErr.Error(), nil)
			return exitErr
		}
		code, msg := loadErrorParts(err)
		return formatter.Fail(ExitCommandError, code, msg, nil)
	}

	if formatter.JSON() {
		return formatter.Success(dumps)
	}
	for i, d := range dumps {
		if i > 0 {
			fmt.Fprintln(formatter.Writer)
		}
		fmt.Fprint(formatter.Writer, d.Rendered)
	}
	return nil
}

// compiledDumps compiles the description in dir and renders the selected
// callables, all of them in declaration order when none are named.
func compiledDumps(dir string, callables []string) ([]DecisorDump, error) {
	loaded, err := LoadModel(dir)
	if err != nil {
		return nil, err
	}
	if errs := compiler.Validate(loaded.Model); len(errs) > 0 {
		return nil, NewExitError(ExitFailure, fmt.Sprintf("model is invalid: %v", errs[0]))
	}
	trees, err := binding.BuildTrees(loaded.Model)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "building decision trees", err)
	}

	if len(callables) == 0 {
		callables = loaded.Model.Callables()
	}
	dumps := make([]DecisorDump, 0, len(callables))
	for _, name := range callables {
		t, ok := trees[name]
		if !ok {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown callable %q", name))
		}
		d := DecisorDump{
			Callable:   t.Callable,
			TreeHash:   t.Hash,
			Depth:      t.Depth(),
			HasReverse: t.HasReverse(),
			Rendered:   t.Rendered,
		}
		for _, c := range t.Candidates {
			d.Signatures = append(d.Signatures, c.Signature)
		}
		dumps = append(dumps, d)
	}
	return dumps, nil
}

// catalogDumps reads stored trees of one build.
func catalogDumps(cmd *cobra.Command, opts *DecisorOptions, callables []string) ([]DecisorDump, error) {
	ctx := cmd.Context()
	path := opts.Catalog
	if path == "" {
		path = opts.config().Catalog
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open catalog", err)
	}
	defer st.Close()

	hash, err := resolveBuild(cmd, st, opts.Build)
	if err != nil {
		return nil, err
	}
	build, err := st.ReadBuild(ctx, hash)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read build", err)
	}

	byName := make(map[string]store.Callable, len(build.Callables))
	for _, c := range build.Callables {
		byName[c.Name] = c
	}
	if len(callables) == 0 {
		for _, c := range build.Callables {
			callables = append(callables, c.Name)
		}
	}

	dumps := make([]DecisorDump, 0, len(callables))
	for _, name := range callables {
		c, ok := byName[name]
		if !ok {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown callable %q in build %s", name, hash))
		}
		d := DecisorDump{
			Callable:   c.Name,
			TreeHash:   c.TreeHash,
			Depth:      c.Depth,
			HasReverse: c.HasReverse,
			Rendered:   c.Rendered,
		}
		for _, ov := range c.Overloads {
			d.Signatures = append(d.Signatures, ov.Signature)
		}
		dumps = append(dumps, d)
	}
	return dumps, nil
}

// resolveBuild expands a model hash prefix to the single stored build it
// names.
func resolveBuild(cmd *cobra.Command, st *store.Store, prefix string) (string, error) {
	hashes, err := st.ListBuilds(cmd.Context())
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to list builds", err)
	}
	var matches []string
	for _, h := range hashes {
		if strings.HasPrefix(h, prefix) {
			matches = append(matches, h)
		}
	}
	switch len(matches) {
	case 0:
		return "", NewExitError(ExitCommandError, fmt.Sprintf("no build matches %q", prefix))
	case 1:
		return matches[0], nil
	default:
		return "", NewExitError(ExitCommandError, fmt.Sprintf("build prefix %q is ambiguous: %d builds match", prefix, len(matches)))
	}
}
