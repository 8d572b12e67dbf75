package minsym

import (
	"github.com/ianlancetaylor/demangle"
)

// Demangler returns the canonical form of a mangled name. It must accept
// any input and report false when the name has no demangled form.
type Demangler func(name string) (string, bool)

type DemangleType string

const (
	DemangleNone       DemangleType = "NONE"
	DemangleSimplified DemangleType = "SIMPLIFIED"
	DemangleTemplates  DemangleType = "TEMPLATES"
	DemangleFull       DemangleType = "FULL"
)

func (dt DemangleType) ToOptions() []demangle.Option {
	switch dt {
	case DemangleNone:
		return nil
	case DemangleSimplified:
		return []demangle.Option{demangle.NoParams, demangle.NoEnclosingParams, demangle.NoTemplateParams}
	case DemangleTemplates:
		return []demangle.Option{demangle.NoParams, demangle.NoEnclosingParams}
	default:
		return []demangle.Option{demangle.NoClones}
	}
}

// Demangler builds a Demangler for dt. DemangleNone never demangles.
func (dt DemangleType) Demangler() Demangler {
	if dt == DemangleNone {
		return noDemangle
	}
	opts := dt.ToOptions()
	return func(name string) (string, bool) {
		if name == "" {
			return "", false
		}
		s, err := demangle.ToString(name, opts...)
		if err != nil || s == name {
			return "", false
		}
		return s, true
	}
}

func noDemangle(string) (string, bool) { return "", false }
