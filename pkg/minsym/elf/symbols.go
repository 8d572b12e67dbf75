package elf

import (
	"debug/elf"
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/vietanhduong/minsyms/pkg/minsym"
)

// LoadSymbols records the symbols of .symtab and .dynsym into c and
// returns how many were recorded. It does not install them.
func (f *File) LoadSymbols(c *minsym.Collector, opts *LoadOptions) (int, error) {
	if f.elf == nil {
		return 0, ErrClosed
	}
	if opts == nil {
		opts = defaultLoadOpts
	}
	var total int
	var found bool
	for _, styp := range []elf.SectionType{elf.SHT_SYMTAB, elf.SHT_DYNSYM} {
		syms, err := f.readSymbols(styp)
		if errors.Is(err, elf.ErrNoSymbols) {
			continue
		}
		if err != nil {
			return total, fmt.Errorf("read %s symbols: %w", styp, err)
		}
		found = true
		total += f.recordSymbols(c, syms, styp == elf.SHT_DYNSYM, opts)
	}
	if !found {
		return 0, ErrNoSymbols
	}
	return total, nil
}

func (f *File) readSymbols(styp elf.SectionType) ([]elf.Symbol, error) {
	switch styp {
	case elf.SHT_SYMTAB:
		return f.elf.Symbols()
	case elf.SHT_DYNSYM:
		return f.elf.DynamicSymbols()
	}
	return nil, fmt.Errorf("unsupported elf section type %s", styp)
}

func (f *File) recordSymbols(c *minsym.Collector, syms []elf.Symbol, dynamic bool, opts *LoadOptions) int {
	var n int
	var sourceFile string
	for i := range syms {
		sym := &syms[i]
		typ := elf.ST_TYPE(sym.Info)
		if typ == elf.STT_FILE {
			// File-local symbols following a FILE symbol belong to it.
			sourceFile = sym.Name
			continue
		}
		if typ == elf.STT_SECTION {
			continue
		}
		kind, ok := f.classify(sym, dynamic)
		if !ok {
			continue
		}
		if opts.TextOnly && kind != minsym.Text && kind != minsym.FileText && kind != minsym.SolibTrampoline {
			continue
		}
		if sym.Value >= opts.IgnoreFrom && sym.Value < opts.IgnoreTo {
			continue
		}
		addr := sym.Value
		if kind != minsym.Abs {
			addr += opts.Base
		}
		rec := c.RecordWithInfo(sym.Name, addr, kind, nil, sectionIndex(sym.Section))
		if rec == nil {
			continue
		}
		if kind.IsFileLocal() {
			rec.SourceFile = sourceFile
		}
		n++
	}
	glog.V(4).Infof("Recorded %d of %d symbols from %s (dynamic=%t)", n, len(syms), f.fpath, dynamic)
	return n
}

// sectionIndex maps undefined and reserved section indexes to NoSection.
func sectionIndex(shndx elf.SectionIndex) int {
	if shndx == elf.SHN_UNDEF || shndx >= elf.SHN_LORESERVE {
		return minsym.NoSection
	}
	return int(shndx)
}

// classify maps an ELF symbol to a minimal symbol kind. Undefined function
// symbols with a value are PLT entries in the dynamic table and become
// trampolines.
func (f *File) classify(sym *elf.Symbol, dynamic bool) (minsym.Kind, bool) {
	typ := elf.ST_TYPE(sym.Info)
	local := elf.ST_BIND(sym.Info) == elf.STB_LOCAL
	switch sym.Section {
	case elf.SHN_UNDEF:
		if dynamic && typ == elf.STT_FUNC && sym.Value != 0 {
			return minsym.SolibTrampoline, true
		}
		return minsym.Unknown, false
	case elf.SHN_ABS:
		return minsym.Abs, true
	case elf.SHN_COMMON:
		return minsym.Unknown, false
	}
	if int(sym.Section) >= len(f.Sections) {
		glog.Warningf("Symbol %q in %s refers to section %d out of range", sym.Name, f.fpath, sym.Section)
		return minsym.Unknown, false
	}
	sect := &f.Sections[sym.Section]
	switch {
	case sect.Flags&elf.SHF_EXECINSTR != 0:
		if local {
			return minsym.FileText, true
		}
		return minsym.Text, true
	case sect.Flags&elf.SHF_ALLOC == 0:
		return minsym.Unknown, false
	case sect.Type == elf.SHT_NOBITS:
		if local {
			return minsym.FileBss, true
		}
		return minsym.Bss, true
	default:
		if local {
			return minsym.FileData, true
		}
		return minsym.Data, true
	}
}

// NewImage reads the symbols of the ELF file at fpath and returns an image
// with them installed.
func NewImage(fpath string, imgOpts *minsym.ImageOptions, opts *LoadOptions) (*minsym.Image, error) {
	f, err := Open(fpath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Image(imgOpts, opts)
}

// Image returns a new image named after the file with its symbols installed.
func (f *File) Image(imgOpts *minsym.ImageOptions, opts *LoadOptions) (*minsym.Image, error) {
	img := minsym.NewImage(f.fpath, imgOpts)
	c := minsym.NewCollector(img)
	if _, err := f.LoadSymbols(c, opts); err != nil {
		c.Discard()
		return nil, fmt.Errorf("load symbols %s: %w", f.fpath, err)
	}
	if _, err := c.Install(); err != nil {
		return nil, fmt.Errorf("install symbols %s: %w", f.fpath, err)
	}
	return img, nil
}
