package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/qtrace/internal/ir"
)

// Script is an event script: the lifecycle events of one program execution,
// in delivery order.
//
// Example:
//
//	label: bell
//	events:
//	  - {kind: start, operation: Demo.Bell}
//	  - {kind: allocate, qubits: [0, 1]}
//	  - {kind: start, operation: Microsoft.Quantum.Intrinsic.H, qubits: [0]}
//	  - {kind: end, operation: Microsoft.Quantum.Intrinsic.H}
//	  - {kind: end, operation: Demo.Bell}
type Script struct {
	Label  string     `yaml:"label,omitempty"`
	Events []ir.Event `yaml:"events"`
}

// LoadScript reads and decodes an event script. Unknown fields are
// rejected. Event contents are not validated; see compiler.Validate.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("script not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error reading script: %v", err)}
	}
	return ParseScript(data)
}

// ParseScript decodes an event script from YAML.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Code: ErrCodeScriptInvalid, Message: "script is empty"}
		}
		return nil, &LoadError{Code: ErrCodeScriptInvalid, Message: fmt.Sprintf("parsing script: %v", err)}
	}
	if len(s.Events) == 0 {
		return nil, &LoadError{Code: ErrCodeScriptInvalid, Message: "script has no events"}
	}
	return &s, nil
}
