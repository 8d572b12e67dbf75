package minsym

import "fmt"

// Kind classifies a minimal symbol.
type Kind uint8

const (
	Unknown Kind = iota
	Text
	Data
	Bss
	Abs
	// File-local variants are only visible inside the source file that
	// defined them.
	FileText
	FileData
	FileBss
	// SolibTrampoline marks a dynamic linker stub (PLT entry).
	SolibTrampoline
)

var kindNames = [...]string{
	Unknown:         "UNKNOWN",
	Text:            "TEXT",
	Data:            "DATA",
	Bss:             "BSS",
	Abs:             "ABS",
	FileText:        "FILE_TEXT",
	FileData:        "FILE_DATA",
	FileBss:         "FILE_BSS",
	SolibTrampoline: "SOLIB_TRAMPOLINE",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

func (k Kind) IsFileLocal() bool { return k == FileText || k == FileData || k == FileBss }

// IsGlobal reports whether a name lookup treats k as an external symbol.
// Unknown and any unrecognised kind count as external.
func (k Kind) IsGlobal() bool { return !k.IsFileLocal() && k != SolibTrampoline }

// Section indexes used when the loader doesn't supply one.
const (
	NoSection = -1
	SectText  = 0
	SectData  = 1
	SectBss   = 2
)

// SectionForKind returns the default section of a symbol kind.
func SectionForKind(k Kind) int {
	switch k {
	case Text, FileText, SolibTrampoline:
		return SectText
	case Data, FileData:
		return SectData
	case Bss, FileBss:
		return SectBss
	}
	return NoSection
}

// Lang records the outcome of demangling a symbol name.
type Lang uint8

const (
	// LangAuto means demangling was not attempted yet.
	LangAuto Lang = iota
	// LangUnknown means demangling was attempted and the name has no
	// demangled form.
	LangUnknown
	LangCPlus
)

func (l Lang) String() string {
	switch l {
	case LangAuto:
		return "auto"
	case LangUnknown:
		return "unknown"
	case LangCPlus:
		return "c++"
	}
	return fmt.Sprintf("Lang(%d)", l)
}

type Symbol struct {
	Name    string
	Address uint64
	Kind    Kind
	Section int
	// SourceFile is only set by loaders whose format can't recover the
	// file scope of a file-local symbol from its address.
	SourceFile string
	// Info is opaque loader data attached to the symbol.
	Info any

	lang      Lang
	demangled string
}

// DemangledName returns the cached demangled name of the symbol.
func (s *Symbol) DemangledName() (string, bool) {
	if s.lang != LangCPlus {
		return "", false
	}
	return s.demangled, true
}

func (s *Symbol) Lang() Lang { return s.lang }

// PrintName is the demangled name if there is one, the raw name otherwise.
func (s *Symbol) PrintName() string {
	if s.lang == LangCPlus {
		return s.demangled
	}
	return s.Name
}

func (s *Symbol) matchesName(name string) bool {
	return s.Name == name || (s.lang == LangCPlus && s.demangled == name)
}

func (s *Symbol) String() string {
	if s == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s 0x%016x %s", s.PrintName(), s.Address, s.Kind)
}
