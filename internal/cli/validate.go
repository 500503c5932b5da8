package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/qtrace/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Kind   string                     `json:"kind"` // "config" or "script"
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-or-script>",
		Short: "Validate a tracer config or an event script",
		Long: `Validate a CUE tracer config (a .cue file or a directory) or a YAML
event script (.yaml or .yml) without tracing anything.

All errors are reported, not just the first.

Examples:
  qtrace validate tracer.cue
  qtrace validate bell.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	var (
		kind string
		errs []compiler.ValidationError
		err  error
	)
	if isScriptPath(path) {
		kind = "script"
		errs, err = validateScriptFile(path)
	} else {
		kind = "config"
		errs, err = validateConfigPath(path)
	}
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			exitCode := ExitCommandError
			if loadErr.Code == ErrCodeScriptInvalid {
				exitCode = ExitFailure
			}
			return formatter.Fail(exitCode, loadErr.Code, loadErr.Message, nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	formatter.VerboseLog("Validated %s %s: %d error(s)", kind, path, len(errs))

	if len(errs) > 0 {
		return outputValidationErrors(formatter, kind, errs)
	}
	return outputValidateSuccess(formatter, kind)
}

// isScriptPath reports whether path names a YAML event script.
func isScriptPath(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// validateConfigPath loads a config and validates it. A config that fails
// to compile is reported as a validation error carrying its position;
// a config that cannot be loaded at all is returned as err.
func validateConfigPath(path string) ([]compiler.ValidationError, error) {
	result, err := LoadConfig(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && isCompileCode(loadErr.Code) {
			field := "tracer"
			if loadErr.Pos.IsValid() {
				field = fmt.Sprintf("%s:%d:%d", filepath.Base(loadErr.Pos.Filename()), loadErr.Pos.Line(), loadErr.Pos.Column())
			}
			return []compiler.ValidationError{{
				Field:   field,
				Message: loadErr.Message,
				Code:    loadErr.Code,
			}}, nil
		}
		return nil, err
	}
	return compiler.Validate(&result.Config), nil
}

// isCompileCode reports whether code is a tracer block compile error
// rather than a failure to load the files.
func isCompileCode(code string) bool {
	switch code {
	case ErrCodeNoConfig, ErrCodeUnknownField, ErrCodeInvalidList, ErrCodeInvalidBool, ErrCodeCUESyntax:
		return true
	}
	return false
}

// validateScriptFile loads an event script and validates its events.
func validateScriptFile(path string) ([]compiler.ValidationError, error) {
	script, err := LoadScript(path)
	if err != nil {
		return nil, err
	}
	return compiler.Validate(script.Events), nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, kind string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Kind: kind})
	}

	fmt.Fprintf(formatter.Writer, "✓ %s valid\n", kind)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
// Validation failures = exit code 1 (test/validation failure)
func outputValidationErrors(formatter *OutputFormatter, kind string, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Kind:   kind,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.JSON(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
