package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/crossbind/internal/binding"
	"github.com/roach88/crossbind/internal/compiler"
	"github.com/roach88/crossbind/internal/decisor"
	"github.com/roach88/crossbind/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Catalog string // catalog database, overrides the config
	Output  string // optional JSON dump of the build
}

// CompilationResult summarizes a compiled build.
type CompilationResult struct {
	ModelHash string   `json:"model_hash"`
	Source    string   `json:"source"`
	Catalog   string   `json:"catalog"`
	Types     int      `json:"types"`
	Callables int      `json:"callables"`
	Overloads int      `json:"overloads"`
	Warnings  []string `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <model-dir>",
		Short: "Compile a typesystem description into the dispatch catalog",
		Long: `Compile a CUE typesystem description into overload decision trees and
store them in the SQLite catalog, keyed by the model hash.

The description is checked against the schema and validated first; any
error stops the build. Compiling an unchanged model again is a no-op.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "db", "", "catalog database (default from config)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "also write the build as JSON to this file")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, modelDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, err := LoadModel(modelDir)
	if err != nil {
		code, msg := loadErrorParts(err)
		return formatter.Fail(ExitCommandError, code, msg, nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, modelDir)

	if errs := compiler.Validate(loaded.Model); len(errs) > 0 {
		return outputValidationErrors(formatter, errs, nil, ExitCommandError)
	}
	warnings := cycleMessages(compiler.AnalyzeCycles(loaded.Model))

	trees, err := binding.BuildTrees(loaded.Model)
	if err != nil {
		return outputBuildError(formatter, err, ExitCommandError)
	}
	for _, name := range loaded.Model.Callables() {
		formatter.VerboseLog("Built decisor: %s (depth %d)", name, trees[name].Depth())
	}

	build, err := store.NewBuild(loaded.Model, trees, modelDir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	catalog := opts.Catalog
	if catalog == "" {
		catalog = opts.config().Catalog
	}
	if err := writeCatalog(ctx, catalog, build); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
	}
	if opts.Output != "" {
		if err := writeBuildToFile(build, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	result := CompilationResult{
		ModelHash: build.ModelHash,
		Source:    modelDir,
		Catalog:   catalog,
		Types:     len(loaded.Model.Types()),
		Callables: len(build.Callables),
		Overloads: countOverloads(build),
		Warnings:  warnings,
	}
	return outputCompileSuccess(formatter, result, opts.Output)
}

func writeCatalog(ctx context.Context, path string, build store.Build) error {
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer st.Close()
	return st.WriteBuild(ctx, build)
}

func countOverloads(b store.Build) int {
	n := 0
	for _, c := range b.Callables {
		n += len(c.Overloads)
	}
	return n
}

func cycleMessages(warnings []compiler.CycleWarning) []string {
	msgs := make([]string, 0, len(warnings))
	for _, w := range warnings {
		msgs = append(msgs, w.Message)
	}
	return msgs
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result CompilationResult, outputFile string) error {
	if formatter.JSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: result, Warnings: result.Warnings})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d callable(s), %d overload(s)\n", result.Callables, result.Overloads)
	fmt.Fprintf(w, "  model: %s\n", result.ModelHash)
	fmt.Fprintf(w, "  catalog: %s\n", result.Catalog)
	for _, msg := range result.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", msg)
	}
	if outputFile != "" {
		fmt.Fprintf(w, "Wrote build to %s\n", outputFile)
	}
	return nil
}

// outputBuildError reports a decision-tree build failure.
func outputBuildError(formatter *OutputFormatter, err error, exitCode int) error {
	var be *decisor.BuildError
	if errors.As(err, &be) {
		return formatter.Fail(exitCode, string(be.Code), be.Error(), be.Signatures)
	}
	return formatter.Fail(exitCode, ErrCodeGeneric, err.Error(), nil)
}

// writeBuildToFile writes the build as indented JSON. Canonical JSON is
// only used for hashing.
func writeBuildToFile(build store.Build, filename string) error {
	data, err := json.MarshalIndent(build, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling build: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
