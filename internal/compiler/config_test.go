package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qtrace/internal/ir"
)

func TestCompileConfigBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		tracer: {
			skip_operations: ["Lib.Helper", "Microsoft.Quantum.Diagnostics.Tag"]
			skip_namespaces: ["Lib.Internal"]
			skip_intrinsics: true
			intrinsic_namespaces: ["My.Gates"]
		}
	`)
	require.NoError(t, v.Err())

	cfg, err := CompileConfig(v.LookupPath(cue.ParsePath("tracer")))
	require.NoError(t, err)

	assert.Equal(t, []string{"Lib.Helper", "Microsoft.Quantum.Diagnostics.Tag"}, cfg.SkipOperations)
	assert.Equal(t, []string{"Lib.Internal"}, cfg.SkipNamespaces)
	assert.True(t, cfg.SkipIntrinsics)
	assert.Equal(t, []string{"My.Gates"}, cfg.Intrinsics())
}

func TestCompileConfigEmptyIsDefault(t *testing.T) {
	cfg, err := CompileConfigSource("empty.cue", []byte(`tracer: {}`))
	require.NoError(t, err)
	assert.Equal(t, ir.DefaultTracerConfig(), *cfg)
}

func TestCompileConfigSkipOperationsReplacesDefault(t *testing.T) {
	cfg, err := CompileConfigSource("ops.cue", []byte(`tracer: skip_operations: ["Lib.Helper"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Lib.Helper"}, cfg.SkipOperations,
		"the tag operation is skipped by the tracer, not listed here")
}

func TestCompileConfigUsesCUEFeatures(t *testing.T) {
	src := `
		#lib: "Company.Quantum"
		tracer: {
			skip_namespaces: [#lib + ".Internal", #lib + ".Logging"]
			skip_intrinsics: 1 < 2
		}
	`
	cfg, err := CompileConfigSource("features.cue", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"Company.Quantum.Internal", "Company.Quantum.Logging"}, cfg.SkipNamespaces)
	assert.True(t, cfg.SkipIntrinsics)
}

func TestCompileConfigMissingTracerBlock(t *testing.T) {
	_, err := CompileConfigSource("missing.cue", []byte(`other: 1`))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "tracer", ce.Field)
	assert.Contains(t, ce.Message, "required")
}

func TestCompileConfigUnknownField(t *testing.T) {
	_, err := CompileConfigSource("unknown.cue", []byte(`tracer: skip_everything: true`))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "skip_everything", ce.Field)
	assert.Contains(t, err.Error(), "unknown tracer field")
}

func TestCompileConfigWrongTypes(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"list not string", `tracer: skip_operations: "Lib.Helper"`, "skip_operations"},
		{"element not string", `tracer: skip_namespaces: ["A", 3]`, "skip_namespaces[1]"},
		{"bool not bool", `tracer: skip_intrinsics: "yes"`, "skip_intrinsics"},
		{"block not struct", `tracer: ["A"]`, "tracer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileConfigSource("types.cue", []byte(tt.src))
			require.Error(t, err)
			var ce *CompileError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileConfigSyntaxErrorHasPosition(t *testing.T) {
	_, err := CompileConfigSource("broken.cue", []byte("tracer: {\n\tskip_intrinsics: \n"))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "cue", ce.Field)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "broken.cue:")
}

func TestCompileErrorWithoutPosition(t *testing.T) {
	err := &CompileError{Field: "tracer", Message: "boom"}
	assert.Equal(t, "tracer: boom", err.Error())
}
