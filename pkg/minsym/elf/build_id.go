package elf

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
)

const (
	noteGnuBuildId = 3
	noteGoBuildId  = 4
)

// BuildId returns the GNU build id of the image, falling back to the Go
// build id. It returns nil when neither note exists.
func (f *File) BuildId() *BuildId {
	if id := f.GnuBuildId(); id != nil {
		return id
	}
	return f.GoBuildId()
}

func (f *File) GoBuildId() *BuildId {
	desc := f.note(".note.go.buildid", "Go", noteGoBuildId)
	if len(desc) < 40 || bytes.Count(desc, []byte(`/`)) < 2 || string(desc) == "redacted" {
		return nil
	}
	id := GoBuildId(string(desc))
	return &id
}

func (f *File) GnuBuildId() *BuildId {
	desc := f.note(".note.gnu.build-id", "GNU", noteGnuBuildId)
	// 8 is xxhash, for example in Container-Optimized OS
	if len(desc) != 20 && len(desc) != 8 {
		return nil
	}
	id := GnuBuildId(hex.EncodeToString(desc))
	return &id
}

// note returns the descriptor of the first note named owner with type typ
// in the section.
func (f *File) note(section, owner string, typ uint32) []byte {
	sd, err := f.GetSectionData(section)
	if err != nil || sd == nil {
		return nil
	}
	return findNote(sd.Data, f.ByteOrder, owner, typ)
}

func findNote(data []byte, order binary.ByteOrder, owner string, typ uint32) []byte {
	align := func(n uint32) int { return int((n + 3) &^ 3) }
	for len(data) >= 12 {
		namesz := order.Uint32(data[0:4])
		descsz := order.Uint32(data[4:8])
		ntype := order.Uint32(data[8:12])
		data = data[12:]
		if len(data) < align(namesz)+int(descsz) {
			return nil
		}
		name := string(bytes.TrimRight(data[:namesz], "\x00"))
		desc := data[align(namesz) : align(namesz)+int(descsz)]
		if name == owner && ntype == typ {
			return desc
		}
		if len(data) < align(namesz)+align(descsz) {
			return nil
		}
		data = data[align(namesz)+align(descsz):]
	}
	return nil
}
