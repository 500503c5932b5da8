package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/qtrace/internal/compiler"
	"github.com/roach88/qtrace/internal/ir"
)

// Scenario defines one tracer test: an event script, the configuration to
// trace it with and assertions over the resulting grids.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is an optional path to a CUE file with a tracer block.
	// Relative paths are resolved against the scenario file location.
	Config string `yaml:"config,omitempty"`

	// Tracer is an optional inline configuration. Mutually exclusive with
	// Config. Without either, the default configuration applies.
	Tracer *ir.TracerConfig `yaml:"tracer,omitempty"`

	// RunID is an optional fixed journal run id.
	// If empty, testutil.DefaultRunID is used.
	RunID string `yaml:"run_id,omitempty"`

	// Events is the script delivered to the tracer, in order.
	Events []ir.Event `yaml:"events"`

	// ExpectError is the error code the run is expected to abort with.
	// Empty means the run must succeed and leave no frame open.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the produced grids.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the produced grids or run counters.
type Assertion struct {
	// Type specifies the assertion type; see the Assert constants.
	Type string `yaml:"type"`

	// Operation is the qualified operation name the assertion is about.
	Operation string `yaml:"operation,omitempty"`

	// Invocation selects one of the operation's grids, 0-based.
	Invocation int `yaml:"invocation,omitempty"`

	// Count is the expected number (grid_count, gate_count, stale_ends).
	Count int `yaml:"count,omitempty"`

	// Width and Height are the expected grid size (grid_size).
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`

	// Names are the expected row names, "" for unnamed (row_names).
	Names []string `yaml:"names,omitempty"`

	// X and Y address a cell (gate_at, cell_empty).
	X int `yaml:"x,omitempty"`
	Y int `yaml:"y,omitempty"`

	// Gate is the expected qualified gate name; ArgIndex and Array its
	// marker fields (gate_at).
	Gate     string `yaml:"gate,omitempty"`
	ArgIndex int    `yaml:"arg_index,omitempty"`
	Array    bool   `yaml:"array,omitempty"`

	// Operations is the expected grid-owner order (operation_order).
	Operations []string `yaml:"operations,omitempty"`
}

// Assertion type constants.
const (
	AssertGridCount      = "grid_count"
	AssertGridSize       = "grid_size"
	AssertRowNames       = "row_names"
	AssertGateAt         = "gate_at"
	AssertCellEmpty      = "cell_empty"
	AssertGateCount      = "gate_count"
	AssertOperationOrder = "operation_order"
	AssertStaleEnds      = "stale_ends"
)

// LoadScenario reads and parses a scenario YAML file. A relative config path
// is resolved against the directory holding the file.
//
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file, resolving
// a relative config path against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, basePath)
}

// ParseScenario parses scenario YAML from memory. basePath resolves a
// relative config path; pass "" to leave it untouched.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) && basePath != "" {
		scenario.Config = filepath.Join(basePath, scenario.Config)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 && s.ExpectError == "" {
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}

	if s.Config != "" && s.Tracer != nil {
		return fmt.Errorf("config and tracer are mutually exclusive")
	}

	if s.Config != "" {
		if _, err := os.Stat(s.Config); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", s.Config)
		}
	}

	if errs := compiler.Validate(s.Events); len(errs) > 0 {
		return joinValidation(errs)
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needsOperation := func() error {
		if a.Operation == "" {
			return fmt.Errorf("assertions[%d]: operation is required for %s", index, a.Type)
		}
		if a.Invocation < 0 {
			return fmt.Errorf("assertions[%d]: invocation must be non-negative", index)
		}
		return nil
	}

	switch a.Type {
	case AssertGridCount, AssertGateCount:
		if err := needsOperation(); err != nil {
			return err
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertGridSize:
		if err := needsOperation(); err != nil {
			return err
		}
		if a.Width < 1 || a.Height < 1 {
			return fmt.Errorf("assertions[%d]: width and height must be at least 1", index)
		}
	case AssertRowNames:
		if err := needsOperation(); err != nil {
			return err
		}
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names list is required for row_names", index)
		}
	case AssertGateAt:
		if err := needsOperation(); err != nil {
			return err
		}
		if a.Gate == "" {
			return fmt.Errorf("assertions[%d]: gate is required for gate_at", index)
		}
	case AssertCellEmpty:
		if err := needsOperation(); err != nil {
			return err
		}
	case AssertOperationOrder:
		if len(a.Operations) == 0 {
			return fmt.Errorf("assertions[%d]: operations list is required for operation_order", index)
		}
	case AssertStaleEnds:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for stale_ends", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// TracerConfig resolves the configuration the scenario runs with: the
// compiled CUE file, the inline block, or the default. The result is
// validated.
func (s *Scenario) TracerConfig() (ir.TracerConfig, error) {
	cfg := ir.DefaultTracerConfig()

	switch {
	case s.Config != "":
		src, err := os.ReadFile(s.Config)
		if err != nil {
			return ir.TracerConfig{}, fmt.Errorf("failed to read config: %w", err)
		}
		compiled, err := compiler.CompileConfigSource(s.Config, src)
		if err != nil {
			return ir.TracerConfig{}, fmt.Errorf("failed to compile config: %w", err)
		}
		cfg = *compiled
	case s.Tracer != nil:
		cfg = *s.Tracer
	}

	if errs := compiler.Validate(cfg); len(errs) > 0 {
		return ir.TracerConfig{}, joinValidation(errs)
	}
	return cfg, nil
}

func joinValidation(errs []compiler.ValidationError) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}
