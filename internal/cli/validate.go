package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/crossbind/internal/binding"
	"github.com/roach88/crossbind/internal/compiler"
	"github.com/roach88/crossbind/internal/decisor"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Types     int                        `json:"types,omitempty"`
	Callables int                        `json:"callables,omitempty"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
	Warnings  []string                   `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <model-dir>",
		Short: "Validate a typesystem description without writing the catalog",
		Long: `Validate a CUE typesystem description.

Checks the description against the schema, runs the semantic model checks
and builds every decision tree, so ambiguous overloads are reported too.
Implicit conversion cycles are reported as warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, modelDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	result, err := ValidateModelDir(modelDir)
	if err != nil {
		code, msg := loadErrorParts(err)
		return formatter.Fail(ExitCommandError, code, msg, nil)
	}
	if !result.Valid {
		return outputValidationErrors(formatter, result.Errors, result.Warnings, ExitFailure)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidateModelDir validates the description in dir. Only a missing or
// unreadable directory is returned as an error; problems with the
// description itself are listed in the result.
func ValidateModelDir(dir string) (*ValidationResult, error) {
	loaded, err := LoadModel(dir)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) || loadErr.Code != ErrCodeCompileFailed {
			return nil, err
		}
		return &ValidationResult{Errors: []compiler.ValidationError{{
			Field:   "load",
			Message: loadErr.Message,
			Code:    loadErr.Code,
			Line:    lineOf(loadErr),
		}}}, nil
	}

	m := loaded.Model
	result := &ValidationResult{
		Types:     len(m.Types()),
		Callables: len(m.Callables()),
		Errors:    compiler.Validate(m),
		Warnings:  cycleMessages(compiler.AnalyzeCycles(m)),
	}
	if len(result.Errors) > 0 {
		return result, nil
	}

	if _, err := binding.BuildTrees(m); err != nil {
		result.Errors = append(result.Errors, buildValidationError(err))
		return result, nil
	}
	result.Valid = true
	return result, nil
}

func lineOf(e *LoadError) int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

func buildValidationError(err error) compiler.ValidationError {
	var be *decisor.BuildError
	if errors.As(err, &be) {
		msg := be.Message
		if len(be.Signatures) > 0 {
			msg = fmt.Sprintf("%s %v", msg, be.Signatures)
		}
		return compiler.ValidationError{
			Field:   "function." + be.Callable,
			Message: msg,
			Code:    string(be.Code),
		}
	}
	return compiler.ValidationError{Field: "decisor", Message: err.Error(), Code: ErrCodeGeneric}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result *ValidationResult) error {
	if formatter.JSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: result, Warnings: result.Warnings})
	}

	fmt.Fprintf(formatter.Writer, "✓ Model valid: %d type(s), %d callable(s)\n", result.Types, result.Callables)
	for _, msg := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  warning: %s\n", msg)
	}
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError, warnings []string, exitCode int) error {
	if formatter.JSON() {
		response := CLIResponse{
			Status:   "error",
			Data:     ValidationResult{Valid: false, Errors: errs},
			Error:    &CLIError{Code: errs[0].Code, Message: errs[0].Message},
			Warnings: warnings,
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}
		return NewExitError(exitCode, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	for _, msg := range warnings {
		fmt.Fprintf(formatter.Writer, "  warning: %s\n", msg)
	}

	return NewExitError(exitCode, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
