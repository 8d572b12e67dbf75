package proc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Map is one executable, file backed mapping of /proc/<pid>/maps.
type Map struct {
	Pathname   string
	StartAddr  uint64
	EndAddr    uint64
	FileOffset uint64
	DevMajor   uint32
	DevMinor   uint32
	Inode      uint64
}

func (m *Map) String() string {
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%s 0x%016x-0x%016x 0x%016x %x:%x %d",
		m.Pathname,
		m.StartAddr,
		m.EndAddr,
		m.FileOffset,
		m.DevMajor,
		m.DevMinor,
		m.Inode)
}

type File struct {
	Dev   uint64
	Inode uint64
	Path  string
}

func (m *Map) File() File {
	return File{
		Inode: m.Inode,
		Path:  m.Pathname,
		Dev:   unix.Mkdev(m.DevMajor, m.DevMinor),
	}
}

func ParseProcMap(pid int) ([]*Map, error) {
	mapfile := HostProcPath(fmt.Sprintf("%d", pid), "maps")
	f, err := os.Open(mapfile)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", mapfile, err)
	}
	defer f.Close()
	ret, err := parseProcMap(f)
	if err != nil {
		return nil, fmt.Errorf("parse proc map %s: %w", mapfile, err)
	}
	return ret, nil
}

func parseProcMap(r io.Reader) ([]*Map, error) {
	var ret []*Map
	seen := make(map[File]bool)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var m Map
		var perm string
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 {
			// anonymous mapping
			continue
		}
		_, err := fmt.Sscanf(strings.Join(fields[:4], " "), "%x-%x %4s %x %x:%x",
			&m.StartAddr,
			&m.EndAddr,
			&perm,
			&m.FileOffset,
			&m.DevMajor,
			&m.DevMinor)
		if err != nil {
			return nil, fmt.Errorf("scan %q: %w", scanner.Text(), err)
		}
		if _, err = fmt.Sscanf(fields[4], "%d", &m.Inode); err != nil {
			return nil, fmt.Errorf("scan inode %q: %w", fields[4], err)
		}
		if len(perm) != 4 || perm[2] != 'x' { // executable only
			continue
		}
		m.Pathname = strings.Join(fields[5:], " ")
		if !isFileBacked(m.Pathname) {
			continue
		}
		if f := m.File(); seen[f] {
			continue
		} else {
			seen[f] = true
		}
		ret = append(ret, &m)
	}
	return ret, scanner.Err()
}

func isFileBacked(mapname string) bool {
	return strings.HasPrefix(mapname, "/") &&
		!strings.HasPrefix(mapname, "//anon") &&
		!strings.HasPrefix(mapname, "/dev/zero") &&
		!strings.HasPrefix(mapname, "/anon_hugepage") &&
		!strings.HasPrefix(mapname, "/SYSV") &&
		!strings.HasSuffix(mapname, " (deleted)")
}
