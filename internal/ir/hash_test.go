package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashDeterminism(t *testing.T) {
	v := map[string]any{"height": 2, "rows": []any{"a", "b"}}

	h1, err := ContentHash(DomainGrid, v)
	require.NoError(t, err)
	h2, err := ContentHash(DomainGrid, map[string]any{"rows": []any{"a", "b"}, "height": 2})
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "key order must not affect the hash")
	assert.Len(t, h1, 64, "SHA-256 hex encoding")
}

func TestDomainSeparationPreventsCrossTypeCollision(t *testing.T) {
	v := map[string]any{"x": 1}

	grid := MustContentHash(DomainGrid, v)
	event := MustContentHash(DomainEvent, v)
	config := MustContentHash(DomainConfig, v)

	assert.NotEqual(t, grid, event)
	assert.NotEqual(t, grid, config)
	assert.NotEqual(t, event, config)
}

func TestContentHashErrorHandling(t *testing.T) {
	_, err := ContentHash(DomainGrid, map[string]any{"bad": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), DomainGrid)

	assert.Panics(t, func() { MustContentHash(DomainGrid, 2.5) })
}

func TestEventHashIgnoresShorthand(t *testing.T) {
	short := StartEvent("Demo.Op", 0, 1)
	long := Event{
		Kind:      EventStart,
		Operation: "Demo.Op",
		Args:      []Argument{{Qubits: []int{0}}, {Qubits: []int{1}}},
	}

	h1, err := EventHash(short)
	require.NoError(t, err)
	h2, err := EventHash(long)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	long.Args[1].Array = true
	h3, err := EventHash(long)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestConfigHashUsesEffectiveIntrinsics(t *testing.T) {
	implicit := TracerConfig{SkipIntrinsics: true}
	explicit := TracerConfig{SkipIntrinsics: true, IntrinsicNamespaces: DefaultIntrinsicNamespaces}

	h1, err := ConfigHash(implicit)
	require.NoError(t, err)
	h2, err := ConfigHash(explicit)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	h3, err := ConfigHash(DefaultTracerConfig())
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
