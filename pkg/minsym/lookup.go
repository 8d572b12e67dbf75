package minsym

import "strings"

// Match is a lookup result. Symbol points into Image's table.
type Match struct {
	Symbol *Symbol
	Image  *Image
}

func (m Match) Found() bool { return m.Symbol != nil }

// LookupByName finds a symbol named name, optionally restricted to the
// image img and, for file-local symbols, to the source file sfile.
//
// External symbols win and end the search at the first hit. Otherwise the
// last matching file-local symbol is returned, then the first trampoline.
// Names match the raw name or the demangled name.
func (r *Registry) LookupByName(name, sfile string, img *Image) (Match, bool) {
	m := r.lookupByName(name, sfile, img)
	r.metrics.lookup("name", m.Found())
	return m, m.Found()
}

func (r *Registry) lookupByName(name, sfile string, img *Image) Match {
	var file, trampoline Match
	if name == "" {
		return Match{}
	}
	for _, image := range r.Images() {
		if img != nil && image != img {
			continue
		}
		table := image.Table()
		for i := 0; i < table.Len(); i++ {
			sym := table.At(i)
			if !sym.matchesName(name) {
				continue
			}
			switch {
			case sym.Kind.IsFileLocal():
				if image.sourceFileMatches(sfile, sym) {
					file = Match{sym, image}
				}
			case sym.Kind == SolibTrampoline:
				if trampoline.Symbol == nil {
					trampoline = Match{sym, image}
				}
			default:
				return Match{sym, image}
			}
		}
	}
	if file.Found() {
		return file
	}
	return trampoline
}

// LookupByPC returns the symbol with the greatest address not above pc
// across all images; Abs symbols are never returned.
//
// Images may overlap, so every table is searched. When two images yield
// candidates at the same address the first registered image wins. This
// order dependence is intended.
func (r *Registry) LookupByPC(pc uint64) (Match, bool) {
	var best Match
	for _, image := range r.Images() {
		sym := image.Table().Lookup(pc)
		if sym == nil {
			continue
		}
		if best.Symbol == nil || best.Symbol.Address < sym.Address {
			best = Match{sym, image}
		}
	}
	r.metrics.lookup("pc", best.Found())
	return best, best.Found()
}

// LookupTrampolineByPC returns the trampoline symbol containing pc, if pc
// is inside a shared library stub.
func (r *Registry) LookupTrampolineByPC(pc uint64) (Match, bool) {
	m, ok := r.LookupByPC(pc)
	if !ok || m.Symbol.Kind != SolibTrampoline {
		return Match{}, false
	}
	return m, true
}

// FindTrampolineTarget returns the address of the function a stub at pc
// redirects to. The first Text symbol with the stub's name wins, so the
// result is arbitrary when several images define the same function.
func (r *Registry) FindTrampolineTarget(pc uint64) (uint64, bool) {
	tramp, ok := r.LookupTrampolineByPC(pc)
	if !ok {
		return 0, false
	}
	name := tramp.Symbol.Name
	if name == "" {
		r.metrics.lookup("trampoline", false)
		return 0, false
	}
	for _, image := range r.Images() {
		table := image.Table()
		for i := 0; i < table.Len(); i++ {
			if sym := table.At(i); sym.Kind == Text && sym.Name == name {
				r.metrics.lookup("trampoline", true)
				return sym.Address, true
			}
		}
	}
	r.metrics.lookup("trampoline", false)
	return 0, false
}

// FindFunctionAddr resolves a stabs style "name:desc" string to the address
// of the named symbol.
func (r *Registry) FindFunctionAddr(namestring, sfile string, img *Image) (uint64, bool) {
	name, _, _ := strings.Cut(namestring, ":")
	m, ok := r.LookupByName(name, sfile, img)
	if !ok {
		return 0, false
	}
	return m.Symbol.Address, true
}
