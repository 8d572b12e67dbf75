package minsym

import (
	"golang.org/x/exp/slices"
)

// Table is the sorted, compacted symbol table of one image. syms always
// ends with a sentinel symbol which is not counted by Len.
type Table struct {
	syms []Symbol
}

func newTable(syms []Symbol) *Table {
	syms = append(syms, Symbol{Section: NoSection, Kind: Unknown, lang: LangUnknown})
	return &Table{syms: syms}
}

func (t *Table) Len() int {
	if t == nil || len(t.syms) == 0 {
		return 0
	}
	return len(t.syms) - 1
}

// At returns the i-th symbol. The pointer stays valid for the table's
// lifetime.
func (t *Table) At(i int) *Symbol { return &t.syms[i] }

// Symbols returns the real entries, sentinel excluded.
func (t *Table) Symbols() []Symbol {
	if t.Len() == 0 {
		return nil
	}
	return t.syms[:len(t.syms)-1]
}

func (t *Table) sentinel() *Symbol { return &t.syms[len(t.syms)-1] }

// FindIndex returns the greatest index whose address is <= pc, or -1 when
// pc is below the first symbol.
//
// Pre: syms[0:n] sorted by non-decreasing address.
// Invariant: addr[lo] <= pc and (hi == n or addr[hi] > pc), lo < hi.
// Post: lo is the last index with addr <= pc; equal addresses are
// skipped forward, so a run of duplicates yields its last entry.
func (t *Table) FindIndex(pc uint64) int {
	n := t.Len()
	if n == 0 || pc < t.syms[0].Address {
		return -1
	}
	lo, hi := 0, n
	for hi-lo > 1 {
		mid := int(uint(lo+hi) >> 1)
		if t.syms[mid].Address <= pc {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// Lookup returns the symbol closest to and not above pc, skipping Abs
// symbols. It returns nil when there is none.
func (t *Table) Lookup(pc uint64) *Symbol {
	i := t.FindIndex(pc)
	for i >= 0 && t.syms[i].Kind == Abs {
		i--
	}
	if i < 0 {
		return nil
	}
	return &t.syms[i]
}

// Relocate adds delta to every address, wrapping modulo 2^64, and restores
// address order. Callers must not share the table with readers while
// relocating.
func (t *Table) Relocate(delta uint64) {
	for i := range t.Symbols() {
		t.syms[i].Address += delta
	}
	t.Sort()
}

// Sort re-sorts the table by address.
func (t *Table) Sort() { sortByAddress(t.Symbols()) }

func sortByAddress(syms []Symbol) {
	slices.SortStableFunc(syms, func(a, b Symbol) int {
		switch {
		case a.Address < b.Address:
			return -1
		case a.Address > b.Address:
			return 1
		}
		return 0
	})
}
