package minsym

import (
	"strings"

	"github.com/golang/glog"
)

// BunchSize is the number of symbols held by one collector chunk.
const BunchSize = 127

const (
	gccCompiledFlag  = "gcc_compiled."
	gcc2CompiledFlag = "gcc2_compiled."
	gnuCompiledFlag  = "__gnu_compiled"
)

type bunch struct {
	next     *bunch
	contents [BunchSize]Symbol
}

// Collector accumulates the symbols of one image during a single ingestion
// session. It is not safe for concurrent use; distinct images may use
// distinct collectors in parallel.
type Collector struct {
	img *Image
	// bunch is the chunk being filled; next links to older, full chunks.
	bunch     *bunch
	index     int
	count     int
	discarded bool
}

func NewCollector(img *Image) *Collector {
	this := &Collector{img: img}
	this.Begin()
	return this
}

// Begin resets the collector for a fresh session, dropping anything not
// yet installed. Setting index to BunchSize makes the first record allocate
// the first chunk.
func (c *Collector) Begin() {
	c.bunch = nil
	c.index = BunchSize
	c.count = 0
	c.discarded = false
}

// Len is the number of symbols recorded in the current session.
func (c *Collector) Len() int { return c.count }

// Record stages a symbol in the default section of its kind.
func (c *Collector) Record(name string, addr uint64, kind Kind) *Symbol {
	return c.RecordWithInfo(name, addr, kind, nil, SectionForKind(kind))
}

// RecordWithInfo stages a symbol. The returned pointer may be used to
// attach more data (info, source file) until the next Install, Begin or
// Discard. Compiler marker symbols are dropped and yield nil.
func (c *Collector) RecordWithInfo(name string, addr uint64, kind Kind, info any, section int) *Symbol {
	if c.discarded {
		return nil
	}
	if kind == FileText && c.isCompilerMarker(name) {
		glog.V(5).Infof("Drop compiler marker symbol %q at 0x%x", name, addr)
		return nil
	}
	if c.index == BunchSize {
		c.bunch = &bunch{next: c.bunch}
		c.index = 0
	}
	sym := &c.bunch.contents[c.index]
	*sym = Symbol{
		Name:    name,
		Address: addr,
		Kind:    kind,
		Section: section,
		Info:    info,
	}
	c.index++
	c.count++
	return sym
}

// Discard releases the collected symbols without installing them.
func (c *Collector) Discard() {
	c.Begin()
	c.discarded = true
}

func (c *Collector) isCompilerMarker(name string) bool {
	if name == gccCompiledFlag || name == gcc2CompiledFlag {
		return true
	}
	if lc := c.leadingChar(); lc != 0 && len(name) > 0 && name[0] == lc {
		name = name[1:]
	}
	return strings.HasPrefix(name, gnuCompiledFlag)
}

func (c *Collector) leadingChar() byte {
	if c.img == nil {
		return 0
	}
	return c.img.LeadingChar()
}

// each calls fn for every collected symbol in insertion order.
func (c *Collector) each(fn func(*Symbol)) {
	var chunks []*bunch
	for b := c.bunch; b != nil; b = b.next {
		chunks = append(chunks, b)
	}
	for i := len(chunks) - 1; i >= 0; i-- {
		n := BunchSize
		if i == 0 {
			// newest chunk, partially filled
			n = c.index
		}
		for j := 0; j < n; j++ {
			fn(&chunks[i].contents[j])
		}
	}
}
