package elf

import (
	"debug/elf"
	"fmt"
	"os"

	bufra "github.com/avvmoto/buf-readerat"
)

// File is an opened ELF object. Only headers are kept in memory; section
// data is read on demand through a buffered reader.
type File struct {
	elf.FileHeader
	Sections []elf.SectionHeader
	Progs    []elf.ProgHeader

	fpath string
	f     *os.File
	elf   *elf.File
}

func Open(fpath string) (*File, error) {
	fd, err := os.OpenFile(fpath, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open elf file %s: %w", fpath, err)
	}
	e, err := elf.NewFile(bufra.NewBufReaderAt(fd, 4*0x1000))
	if err != nil {
		fd.Close()
		return nil, fmt.Errorf("elf new file: %w", err)
	}
	this := &File{fpath: fpath, f: fd, elf: e, FileHeader: e.FileHeader}
	this.Progs = make([]elf.ProgHeader, 0, len(e.Progs))
	this.Sections = make([]elf.SectionHeader, 0, len(e.Sections))
	for i := range e.Progs {
		this.Progs = append(this.Progs, e.Progs[i].ProgHeader)
	}
	for i := range e.Sections {
		this.Sections = append(this.Sections, e.Sections[i].SectionHeader)
	}
	return this, nil
}

func (f *File) FilePath() string { return f.fpath }

func (f *File) Close() {
	if f.f != nil {
		f.f.Close()
		f.f = nil
	}
	f.elf = nil
}

func (f *File) FindSection(name string) *elf.SectionHeader {
	for i := range f.Sections {
		if s := &f.Sections[i]; s.Name == name {
			return s
		}
	}
	return nil
}

// GetSectionData returns nil data without an error when the section is
// missing.
func (f *File) GetSectionData(name string) (*SectionData, error) {
	section := f.FindSection(name)
	if section == nil {
		return nil, nil
	}
	if f.f == nil {
		return nil, ErrClosed
	}
	if section.Type == elf.SHT_NOBITS {
		return &SectionData{nil, section}, nil
	}
	data := make([]byte, section.Size)
	if _, err := f.f.ReadAt(data, int64(section.Offset)); err != nil {
		return nil, fmt.Errorf("os file read at: %w", err)
	}
	return &SectionData{data, section}, nil
}

// Base returns the load bias of an image mapped executable at start from
// file offset off. ET_EXEC images are never relocated.
func (f *File) Base(start, off uint64) (uint64, bool) {
	if f.Type == elf.ET_EXEC {
		return 0, true
	}
	for _, prog := range f.Progs {
		if prog.Type == elf.PT_LOAD && (prog.Flags&elf.PF_X != 0) && prog.Off == off {
			return start - prog.Vaddr, true
		}
	}
	return 0, false
}
