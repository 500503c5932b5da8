package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qtrace/internal/compiler"
	"github.com/roach88/qtrace/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled tracer configuration.
type CompilationResult struct {
	Config     ir.TracerConfig `json:"config"`
	ConfigHash string          `json:"config_hash"`
	Intrinsics []string        `json:"intrinsics"`
	FileCount  int             `json:"file_count"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <config>",
		Short: "Compile a CUE tracer config to canonical JSON",
		Long: `Compile the tracer block of a CUE file (or of a directory of CUE
files) and print the effective configuration with its content hash.

The hash is the one stored with every journaled run; replay refuses a
config whose hash differs from the run's.

Examples:
  qtrace compile tracer.cue
  qtrace compile ./config -o tracer.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write canonical config JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, err := LoadConfig(path)
	if err != nil {
		return outputCompileError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d CUE file(s) from %s", loadResult.FileCount, path)

	if errs := compiler.Validate(&loadResult.Config); len(errs) > 0 {
		return outputCompileValidationErrors(formatter, errs)
	}

	hash, err := ir.ConfigHash(loadResult.Config)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("hashing config: %v", err), nil)
	}

	result := &CompilationResult{
		Config:     loadResult.Config,
		ConfigHash: hash,
		Intrinsics: loadResult.Config.Intrinsics(),
		FileCount:  loadResult.FileCount,
	}

	if opts.Output != "" {
		if err := writeConfigToFile(loadResult.Config, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess outputs the compiled configuration.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled tracer config (%s)\n\n", result.ConfigHash)
	fmt.Fprintf(w, "  skip_operations: %s\n", listOrNone(result.Config.SkipOperations))
	fmt.Fprintf(w, "  skip_namespaces: %s\n", listOrNone(result.Config.SkipNamespaces))
	fmt.Fprintf(w, "  skip_intrinsics: %t\n", result.Config.SkipIntrinsics)
	fmt.Fprintf(w, "  intrinsics:      %s\n", listOrNone(result.Intrinsics))

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote canonical config to %s\n", outputFile)
	}
	return nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

// outputCompileError outputs a load or compile failure.
// Compilation errors are command-level errors (exit code 2).
func outputCompileError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	var details any
	if loadErr.Pos.IsValid() {
		details = map[string]any{
			"file":   loadErr.Pos.Filename(),
			"line":   loadErr.Pos.Line(),
			"column": loadErr.Pos.Column(),
		}
	}
	if formatter.Format != "json" && loadErr.Pos.IsValid() {
		fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
	}
	return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message, details)
}

// outputCompileValidationErrors outputs every validation error of a config
// that compiled but is not usable.
func outputCompileValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	cliErrors := make([]CLIError, len(errs))
	for i, e := range errs {
		cliErrors[i] = CLIError{Code: e.Code, Message: fmt.Sprintf("%s: %s", e.Field, e.Message)}
	}

	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
		fmt.Fprintln(formatter.Writer)
		for _, e := range cliErrors {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", e.Code, e.Message)
		}
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// writeConfigToFile writes the configuration in canonical JSON, the form
// its hash is computed over.
func writeConfigToFile(cfg ir.TracerConfig, filename string) error {
	data, err := ir.MarshalCanonical(cfg.CanonicalMap())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
