package repository

import (
	"sort"
	"strings"

	domrepo "RegimeAPI/internal/domain/repository"
)

// SymbolRegistry is an immutable ticker set built once at startup.
type SymbolRegistry struct {
	set    map[string]struct{}
	sorted []string
}

func NewSymbolRegistry(symbols []string) *SymbolRegistry {
	r := &SymbolRegistry{set: make(map[string]struct{}, len(symbols))}
	for _, s := range symbols {
		s = NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, ok := r.set[s]; ok {
			continue
		}
		r.set[s] = struct{}{}
		r.sorted = append(r.sorted, s)
	}
	sort.Strings(r.sorted)
	return r
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsValid reports membership of the normalized symbol. Empty input is never valid.
func (r *SymbolRegistry) IsValid(symbol string) bool {
	if r == nil {
		return false
	}
	_, ok := r.set[NormalizeSymbol(symbol)]
	return ok
}

// List returns the symbols in ascending order. The slice is a copy.
func (r *SymbolRegistry) List() []string {
	out := make([]string, len(r.sorted))
	copy(out, r.sorted)
	return out
}

var _ domrepo.SymbolRegistry = (*SymbolRegistry)(nil)
