package minsym

import (
	"path"
	"sync/atomic"
)

type ImageOptions struct {
	// LeadingChar is the toolchain's symbol prefix character (e.g. '_' for
	// a.out and Mach-O). Zero means none.
	LeadingChar byte
	// Demangler is tried on every newly installed symbol.
	Demangler Demangler
	// SourceFileBaseOnly compares source files of file-local symbols by
	// their final path component. Set it for formats that record the source
	// file per symbol instead of deriving it from the address.
	SourceFileBaseOnly bool
	Metrics            *Metrics
}

var defaultImageOpts = &ImageOptions{
	Demangler: DemangleFull.Demangler(),
}

// Image is a loaded executable or shared library owning one symbol table.
type Image struct {
	name  string
	opts  ImageOptions
	table atomic.Pointer[Table]
}

func NewImage(name string, opts *ImageOptions) *Image {
	if opts == nil {
		opts = defaultImageOpts
	}
	this := &Image{name: name, opts: *opts}
	if this.opts.Demangler == nil {
		this.opts.Demangler = noDemangle
	}
	return this
}

func (img *Image) Name() string { return img.name }

func (img *Image) LeadingChar() byte { return img.opts.LeadingChar }

// Table returns the installed table snapshot, nil before the first install.
func (img *Image) Table() *Table { return img.table.Load() }

// Len is the number of symbols in the installed table.
func (img *Image) Len() int { return img.Table().Len() }

func (img *Image) sourceFileMatches(want string, sym *Symbol) bool {
	if want == "" || sym.SourceFile == "" {
		return true
	}
	if img.opts.SourceFileBaseOnly {
		return path.Base(want) == path.Base(sym.SourceFile)
	}
	return want == sym.SourceFile
}
