package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/qtrace/internal/ir"
)

// marshalEvent converts an event to canonical JSON TEXT plus its content
// hash. The canonical form uses the same keys as the json tags of ir.Event,
// so unmarshalEvent can decode it with encoding/json.
func marshalEvent(ev ir.Event) (payload, hash string, err error) {
	data, err := ir.MarshalCanonical(ev.CanonicalMap())
	if err != nil {
		return "", "", fmt.Errorf("marshal event: %w", err)
	}
	hash, err = ir.EventHash(ev)
	if err != nil {
		return "", "", fmt.Errorf("hash event: %w", err)
	}
	return string(data), hash, nil
}

// unmarshalEvent decodes a stored payload and checks it against the stored
// hash.
func unmarshalEvent(payload, hash string) (ir.Event, error) {
	var ev ir.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ir.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	got, err := ir.EventHash(ev)
	if err != nil {
		return ir.Event{}, fmt.Errorf("hash event: %w", err)
	}
	if got != hash {
		return ir.Event{}, fmt.Errorf("seq %d: %w", ev.Seq, ErrCorruptEvent)
	}
	return ev, nil
}

// marshalConfig converts a tracer configuration to canonical JSON TEXT.
func marshalConfig(cfg ir.TracerConfig) (string, error) {
	data, err := ir.MarshalCanonical(cfg.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

func unmarshalConfig(text string) (ir.TracerConfig, error) {
	var cfg ir.TracerConfig
	if err := json.Unmarshal([]byte(text), &cfg); err != nil {
		return ir.TracerConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
