package minsym

import (
	"fmt"

	"github.com/golang/glog"
)

// Install merges the collected symbols with the image's current table,
// sorts and compacts them, demangles the new entries and publishes the
// result as the image's table. Readers see either the old or the new
// table, never a partial one. The collector is reset afterwards.
//
// With no collected symbols Install is a no-op returning the current table.
func (c *Collector) Install() (*Table, error) {
	if c.discarded {
		return nil, ErrCollectorDiscarded
	}
	if c.img == nil {
		return nil, fmt.Errorf("install symbols: %w", ErrNoImage)
	}
	img := c.img
	prior := img.Table()
	if c.count == 0 {
		return prior, nil
	}

	syms := make([]Symbol, 0, c.count+prior.Len()+1)
	syms = append(syms, prior.Symbols()...)
	fresh := len(syms)
	lc := img.LeadingChar()
	c.each(func(s *Symbol) {
		sym := *s
		if lc != 0 && len(sym.Name) > 0 && sym.Name[0] == lc {
			sym.Name = sym.Name[1:]
		}
		sym.lang = LangAuto
		sym.demangled = ""
		syms = append(syms, sym)
	})
	added := len(syms) - fresh

	sortByAddress(syms)
	n := compact(syms)
	dups := len(syms) - n
	// Shrink, keeping one slot for the sentinel.
	syms = append(make([]Symbol, 0, n+1), syms[:n]...)

	var demangled int
	for i := range syms {
		if syms[i].lang != LangAuto {
			continue
		}
		if s, ok := img.opts.Demangler(syms[i].Name); ok {
			syms[i].demangled = s
			syms[i].lang = LangCPlus
			demangled++
		} else {
			syms[i].lang = LangUnknown
		}
	}

	table := newTable(syms)
	img.table.Store(table)
	c.Begin()

	if m := img.opts.Metrics; m != nil {
		m.InstalledSymbols.WithLabelValues(img.name).Add(float64(added))
		m.CompactedSymbols.WithLabelValues(img.name).Add(float64(dups))
		m.DemangledSymbols.WithLabelValues(img.name).Add(float64(demangled))
		m.TableSize.WithLabelValues(img.name).Set(float64(table.Len()))
	}
	glog.V(3).Infof("Installed %d symbols for %s (%d new, %d duplicates, %d demangled)",
		table.Len(), img.name, added, dups, demangled)
	return table, nil
}

// compact removes entries of an address-sorted slice sharing both address
// and name with an earlier entry, and returns the new length. Duplicates
// need not be adjacent inside a run of equal addresses. The earlier entry
// is kept; it takes the later entry's kind only when its own is Unknown.
func compact(syms []Symbol) int {
	var r run
	to := 0
	for from := range syms {
		next := &syms[from]
		if to > 0 && syms[to-1].Address != next.Address {
			r = run{start: to}
		}
		if i := r.find(syms[:to], next.Name); i >= 0 {
			merge(&syms[i], next)
			continue
		}
		r.add(next.Name, to)
		syms[to] = *next
		to++
	}
	return to
}

// linearRun is the run length above which kept names are indexed by a map.
const linearRun = 8

// run tracks the names kept for the current address, starting at start.
type run struct {
	start int
	names map[string]int
}

// find returns the index of name in kept[r.start:], or -1.
func (r *run) find(kept []Symbol, name string) int {
	if r.names == nil && len(kept)-r.start > linearRun {
		r.names = make(map[string]int, 2*(len(kept)-r.start))
		for i := r.start; i < len(kept); i++ {
			r.names[kept[i].Name] = i
		}
	}
	if r.names != nil {
		if i, ok := r.names[name]; ok {
			return i
		}
		return -1
	}
	for i := r.start; i < len(kept); i++ {
		if kept[i].Name == name {
			return i
		}
	}
	return -1
}

func (r *run) add(name string, i int) {
	if r.names != nil {
		r.names[name] = i
	}
}

func merge(kept, dup *Symbol) {
	switch {
	case kept.Kind == Unknown:
		kept.Kind = dup.Kind
	case dup.Kind != Unknown && dup.Kind != kept.Kind:
		glog.V(4).Infof("Symbol %q at 0x%x has kinds %s and %s, keeping %s",
			kept.Name, kept.Address, kept.Kind, dup.Kind, kept.Kind)
	}
	// A carried-over entry keeps its demangle result.
	if kept.lang == LangAuto && dup.lang != LangAuto {
		kept.lang, kept.demangled = dup.lang, dup.demangled
	}
}
