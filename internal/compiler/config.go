package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/qtrace/internal/ir"
)

// ConfigPath is the top-level field holding the tracer configuration.
const ConfigPath = "tracer"

// configFields lists the fields a tracer block may declare.
var configFields = map[string]bool{
	"skip_operations":      true,
	"skip_namespaces":      true,
	"skip_intrinsics":      true,
	"intrinsic_namespaces": true,
}

// CompileConfig parses a CUE value into a TracerConfig.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the tracer struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`tracer: { skip_intrinsics: true }`)
//	cfg, err := CompileConfig(v.LookupPath(cue.ParsePath("tracer")))
//
// Every field is optional; an empty struct yields the default configuration.
// A skip_operations list replaces the default list, but the tracer skips
// ir.DefaultTagOperation regardless, so it need not be repeated.
func CompileConfig(v cue.Value) (*ir.TracerConfig, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if v.Kind() != cue.StructKind {
		return nil, &CompileError{
			Field:   ConfigPath,
			Message: fmt.Sprintf("must be a struct, got %s", v.Kind()),
			Pos:     v.Pos(),
		}
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		if !configFields[iter.Label()] {
			return nil, &CompileError{
				Field:   iter.Label(),
				Message: "unknown tracer field",
				Pos:     iter.Value().Pos(),
			}
		}
	}

	cfg := ir.DefaultTracerConfig()

	if ops, ok, err := parseStringList(v, "skip_operations"); err != nil {
		return nil, err
	} else if ok {
		cfg.SkipOperations = ops
	}

	if nss, ok, err := parseStringList(v, "skip_namespaces"); err != nil {
		return nil, err
	} else if ok {
		cfg.SkipNamespaces = nss
	}

	if nss, ok, err := parseStringList(v, "intrinsic_namespaces"); err != nil {
		return nil, err
	} else if ok {
		cfg.IntrinsicNamespaces = nss
	}

	skipVal := v.LookupPath(cue.ParsePath("skip_intrinsics"))
	if skipVal.Exists() {
		skip, err := skipVal.Bool()
		if err != nil {
			return nil, &CompileError{
				Field:   "skip_intrinsics",
				Message: "must be a bool",
				Pos:     skipVal.Pos(),
			}
		}
		cfg.SkipIntrinsics = skip
	}

	return &cfg, nil
}

// CompileConfigSource compiles CUE source text and extracts its tracer block.
// filename is used for error positions only.
func CompileConfigSource(filename string, src []byte) (*ir.TracerConfig, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	tracerVal := v.LookupPath(cue.ParsePath(ConfigPath))
	if !tracerVal.Exists() {
		return nil, &CompileError{
			Field:   ConfigPath,
			Message: "tracer block is required",
			Pos:     v.Pos(),
		}
	}
	return CompileConfig(tracerVal)
}

// parseStringList reads an optional list of strings. ok is false when the
// field is absent.
func parseStringList(v cue.Value, field string) (values []string, ok bool, err error) {
	fieldVal := v.LookupPath(cue.ParsePath(field))
	if !fieldVal.Exists() {
		return nil, false, nil
	}

	list, err := fieldVal.List()
	if err != nil {
		return nil, false, &CompileError{
			Field:   field,
			Message: "must be a list of strings",
			Pos:     fieldVal.Pos(),
		}
	}

	values = []string{}
	for i := 0; list.Next(); i++ {
		s, err := list.Value().String()
		if err != nil {
			return nil, false, &CompileError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: "must be a string",
				Pos:     list.Value().Pos(),
			}
		}
		values = append(values, s)
	}
	return values, true, nil
}

// CompileError reports a CUE config that cannot be compiled, with the source
// position when CUE provides one.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
