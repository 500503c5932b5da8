package tracer

import (
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/qtrace/internal/ir"
)

// SkipList decides which operations are placed in their caller's grid
// without receiving a grid of their own.
type SkipList struct {
	operations map[string]struct{}
	namespaces []string
}

// NewSkipList builds a skip list from cfg: exact operation names, namespace
// prefixes and, when cfg.SkipIntrinsics is set, the intrinsic namespaces.
// Entries are compared in NFC form, as the tracer normalises operation names.
// ir.DefaultTagOperation is always skipped, whatever cfg lists.
func NewSkipList(cfg ir.TracerConfig) *SkipList {
	s := &SkipList{
		operations: map[string]struct{}{ir.DefaultTagOperation: {}},
	}
	for _, op := range cfg.SkipOperations {
		s.operations[norm.NFC.String(op)] = struct{}{}
	}
	for _, ns := range cfg.SkipNamespaces {
		s.namespaces = append(s.namespaces, norm.NFC.String(ns))
	}
	if cfg.SkipIntrinsics {
		for _, ns := range cfg.Intrinsics() {
			s.namespaces = append(s.namespaces, norm.NFC.String(ns))
		}
	}
	slices.Sort(s.namespaces)
	s.namespaces = slices.Compact(s.namespaces)
	return s
}

// Match reports whether the qualified operation name is skipped. A namespace
// matches at a dot boundary only: "A.B" skips "A.B.Op" and "A.B.C.Op" but not
// "A.BC.Op".
func (s *SkipList) Match(name string) bool {
	if _, ok := s.operations[name]; ok {
		return true
	}
	for _, ns := range s.namespaces {
		if strings.HasPrefix(name, ns) && len(name) > len(ns) && name[len(ns)] == '.' {
			return true
		}
	}
	return false
}
