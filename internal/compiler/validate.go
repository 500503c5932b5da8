package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/qtrace/internal/ir"
)

// Validation error codes (E200-E299)
const (
	// General validation errors (E200)
	ErrUnsupportedType = "E200" // unsupported type for validation

	// TracerConfig errors (E201-E209)
	ErrEmptyName          = "E201" // empty operation or namespace name
	ErrUnqualifiedName    = "E202" // skip operation lacks a namespace
	ErrInvalidIdentifier  = "E203" // name segment is not an identifier
	ErrDuplicateEntry     = "E204" // same entry listed twice
	ErrIntrinsicsUnused   = "E205" // intrinsic namespaces set but not skipped
	ErrRedundantOperation = "E206" // skip operation already covered by a namespace

	// Event script errors (E210-E219)
	ErrInvalidEvent = "E210" // event fails field validation
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// identSegment matches one dot-separated segment of a qualified name.
var identSegment = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate validates a compiled configuration or event script.
// Returns all errors found (does not fail-fast).
// Supports TracerConfig and []ir.Event.
func Validate(v any) []ValidationError {
	switch val := v.(type) {
	case *ir.TracerConfig:
		return validateConfig(val)
	case ir.TracerConfig:
		return validateConfig(&val)
	case []ir.Event:
		return validateEvents(val)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func validateConfig(cfg *ir.TracerConfig) []ValidationError {
	var errs []ValidationError

	errs = append(errs, validateNames("skip_operations", cfg.SkipOperations, true)...)
	errs = append(errs, validateNames("skip_namespaces", cfg.SkipNamespaces, false)...)
	errs = append(errs, validateNames("intrinsic_namespaces", cfg.IntrinsicNamespaces, false)...)

	// E205: intrinsic namespaces only matter when intrinsics are skipped
	if len(cfg.IntrinsicNamespaces) > 0 && !cfg.SkipIntrinsics {
		errs = append(errs, ValidationError{
			Field:   "intrinsic_namespaces",
			Message: "has no effect unless skip_intrinsics is true",
			Code:    ErrIntrinsicsUnused,
		})
	}

	// E206: an operation inside a skipped namespace is listed twice in effect
	namespaces := cfg.SkipNamespaces
	if cfg.SkipIntrinsics {
		namespaces = append(namespaces[:len(namespaces):len(namespaces)], cfg.Intrinsics()...)
	}
	for i, op := range cfg.SkipOperations {
		for _, ns := range namespaces {
			if ns != "" && strings.HasPrefix(op, ns+".") {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("skip_operations[%d]", i),
					Message: fmt.Sprintf("%q is already skipped by namespace %q", op, ns),
					Code:    ErrRedundantOperation,
				})
				break
			}
		}
	}

	return errs
}

// validateNames checks a list of dot-separated names. Operations must be
// qualified, i.e. have at least two segments.
func validateNames(field string, names []string, qualified bool) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(names))

	for i, name := range names {
		path := fmt.Sprintf("%s[%d]", field, i)

		// E201: empty name
		if strings.TrimSpace(name) == "" {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: "name must be non-empty",
				Code:    ErrEmptyName,
			})
			continue
		}

		// E204: duplicate
		if seen[name] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("duplicate entry %q", name),
				Code:    ErrDuplicateEntry,
			})
		}
		seen[name] = true

		segments := strings.Split(name, ".")

		// E202: operations need a namespace
		if qualified && len(segments) < 2 {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("%q is not a qualified operation name", name),
				Code:    ErrUnqualifiedName,
			})
		}

		// E203: every segment is an identifier
		for _, seg := range segments {
			if !identSegment.MatchString(seg) {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: fmt.Sprintf("invalid segment %q in %q", seg, name),
					Code:    ErrInvalidIdentifier,
				})
				break
			}
		}
	}

	return errs
}

// validateEvents checks every event's fields.
func validateEvents(events []ir.Event) []ValidationError {
	var errs []ValidationError
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("events[%d]", i),
				Message: err.Error(),
				Code:    ErrInvalidEvent,
			})
		}
	}
	return errs
}
