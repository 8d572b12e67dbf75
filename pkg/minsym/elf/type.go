package elf

import (
	"debug/elf"
	"errors"
)

var (
	ErrNoSymbols = errors.New("no symbols")
	ErrClosed    = errors.New("elf file closed")
)

type BuildType string

const (
	GNU BuildType = "GNU"
	GO  BuildType = "GO"
)

type BuildId struct {
	Id   string
	Type BuildType
}

func GoBuildId(id string) BuildId {
	return BuildId{id, GO}
}

func GnuBuildId(id string) BuildId {
	return BuildId{id, GNU}
}

func (id BuildId) GNU() bool { return id.Type == GNU }

type SectionData struct {
	Data   []byte
	Header *elf.SectionHeader
}

type LoadOptions struct {
	// Base is added to every symbol address.
	Base uint64
	// Symbols with a file address in [IgnoreFrom, IgnoreTo) are skipped.
	IgnoreFrom, IgnoreTo uint64
	// TextOnly keeps only code symbols (text, file text and trampolines).
	TextOnly bool
}

var defaultLoadOpts = &LoadOptions{}
