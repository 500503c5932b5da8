package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/qtrace/internal/compiler"
	"github.com/roach88/qtrace/internal/ir"
)

// LoadResult contains a compiled tracer configuration and where it came from.
type LoadResult struct {
	Config    ir.TracerConfig
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files loaded
}

// LoadError represents an error that occurred during config loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadConfig loads a tracer configuration from a CUE file, or from every
// CUE file of a directory unified into one value, and compiles its tracer
// block. The result is not validated; see compiler.Validate.
func LoadConfig(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing config: %v", err)}
	}

	dir, args := path, []string{"."}
	fileCount := 0
	if info.IsDir() {
		cueFiles, err := FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(cueFiles) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
		fileCount = len(cueFiles)
	} else {
		dir, args = filepath.Dir(path), []string{filepath.Base(path)}
		fileCount = 1
	}

	ctx := cuecontext.New()
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	tracerVal := value.LookupPath(cue.ParsePath(compiler.ConfigPath))
	if !tracerVal.Exists() {
		return nil, &LoadError{Code: ErrCodeNoConfig, Message: fmt.Sprintf("no %s block found in %s", compiler.ConfigPath, path)}
	}

	cfg, err := compiler.CompileConfig(tracerVal)
	if err != nil {
		return nil, convertCompileError(err)
	}

	return &LoadResult{
		Config:    *cfg,
		CUEValue:  value,
		FileCount: fileCount,
	}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: err.Error(),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error

	// Tracer config errors
	ErrCodeNoConfig     = "E100" // No tracer block
	ErrCodeUnknownField = "E101" // Unknown field in tracer block
	ErrCodeInvalidList  = "E102" // Skip list is not a list of strings
	ErrCodeInvalidBool  = "E103" // skip_intrinsics is not a bool
	ErrCodeCUESyntax    = "E104" // CUE evaluation error inside the block

	// Run errors
	ErrCodeScriptInvalid    = "E300" // Event script cannot be parsed or validated
	ErrCodeTraceFailed      = "E301" // Tracer aborted the run
	ErrCodeStoreFailed      = "E302" // Journal read or write failed
	ErrCodeNotDeterministic = "E303" // Replay produced different grids
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == compiler.ConfigPath:
		return ErrCodeNoConfig
	case field == "cue":
		return ErrCodeCUESyntax
	case field == "skip_intrinsics":
		return ErrCodeInvalidBool
	case hasListPrefix(field, "skip_operations"),
		hasListPrefix(field, "skip_namespaces"),
		hasListPrefix(field, "intrinsic_namespaces"):
		return ErrCodeInvalidList
	default:
		return ErrCodeUnknownField
	}
}

// hasListPrefix reports whether field is name or an element of it, "name[i]".
func hasListPrefix(field, name string) bool {
	return field == name || (len(field) > len(name) && field[:len(name)] == name && field[len(name)] == '[')
}
