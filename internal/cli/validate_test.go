package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qtrace/internal/compiler"
)

func TestValidateConfig(t *testing.T) {
	out, err := execute(t, "validate", config("intrinsics.cue"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ config valid")
}

func TestValidateScript(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", script("bell.yaml"))
	require.NoError(t, err)

	resp := decode[ValidationResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, "script", resp.Data.Kind)
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantKind  string
		wantCodes []string
	}{
		{"config unused intrinsics", config("unused.cue"), "config", []string{compiler.ErrIntrinsicsUnused}},
		{"config unknown field", config("bad_field.cue"), "config", []string{ErrCodeUnknownField}},
		{"script invalid events", script("invalid.yaml"), "script", []string{compiler.ErrInvalidEvent, compiler.ErrInvalidEvent}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "--format", "json", "validate", tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			resp := decode[ValidationResult](t, out)
			assert.Equal(t, "error", resp.Status)
			assert.False(t, resp.Data.Valid)
			assert.Equal(t, tt.wantKind, resp.Data.Kind)

			codes := make([]string, len(resp.Data.Errors))
			for i, e := range resp.Data.Errors {
				codes[i] = e.Code
			}
			assert.Equal(t, tt.wantCodes, codes)
		})
	}
}

func TestValidateFailuresText(t *testing.T) {
	out, err := execute(t, "validate", script("invalid.yaml"))
	require.Error(t, err)
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E210: events[0]")
}

func TestValidateUnparsableScript(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", script("unknown_field.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decode[any](t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScriptInvalid, resp.Error.Code)
}

func TestValidateMissingPath(t *testing.T) {
	_, err := execute(t, "validate", config("missing.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestIsScriptPath(t *testing.T) {
	assert.True(t, isScriptPath("a/b.yaml"))
	assert.True(t, isScriptPath("b.yml"))
	assert.False(t, isScriptPath("tracer.cue"))
	assert.False(t, isScriptPath("config"))
}
