package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainGrid   = "qtrace/grid/v1"
	DomainEvent  = "qtrace/event/v1"
	DomainConfig = "qtrace/config/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash computes a domain-separated hash of the canonical JSON form of v.
// Returns error if v cannot be canonically marshaled.
func ContentHash(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("content hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MustContentHash is like ContentHash but panics on error.
// Use only when inputs are built from integers, strings and bools.
func MustContentHash(domain string, v any) string {
	h, err := ContentHash(domain, v)
	if err != nil {
		panic(err)
	}
	return h
}

// EventHash identifies an event by its content, seq included.
func EventHash(ev Event) (string, error) {
	return ContentHash(DomainEvent, ev.CanonicalMap())
}

// ConfigHash identifies a tracer configuration. Runs recorded with the same
// configuration hash replay to identical grids.
func ConfigHash(cfg TracerConfig) (string, error) {
	return ContentHash(DomainConfig, cfg.CanonicalMap())
}
