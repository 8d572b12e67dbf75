package minsym

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryOf(t *testing.T, images ...*Image) *Registry {
	t.Helper()
	reg := NewRegistry(nil)
	for _, img := range images {
		require.NoError(t, reg.Add(img))
	}
	return reg
}

func TestLookupByName_Precedence(t *testing.T) {
	orders := [][]Kind{
		{FileText, SolibTrampoline, Text},
		{Text, FileText, SolibTrampoline},
		{SolibTrampoline, Text, FileText},
	}
	for _, kinds := range orders {
		img := NewImage("a.out", nil)
		var want uint64
		c := NewCollector(img)
		for i, kind := range kinds {
			addr := uint64(i+1) * 0x100
			if kind == Text {
				want = addr
			}
			c.Record("foo", addr, kind)
		}
		_, err := c.Install()
		require.NoError(t, err)

		m, ok := registryOf(t, img).LookupByName("foo", "", nil)
		require.True(t, ok)
		assert.Equal(t, Text, m.Symbol.Kind)
		assert.Equal(t, want, m.Symbol.Address)
		assert.Same(t, img, m.Image)
	}

	// Spread over images, the global symbol still wins.
	a, b, c := NewImage("a", nil), NewImage("b", nil), NewImage("c", nil)
	install(t, a, testSym{"foo", 0x100, SolibTrampoline})
	install(t, b, testSym{"foo", 0x200, FileData})
	install(t, c, testSym{"foo", 0x300, Data})
	m, ok := registryOf(t, a, b, c).LookupByName("foo", "", nil)
	require.True(t, ok)
	assert.Same(t, c, m.Image)
}

func TestLookupByName_FirstGlobalWins(t *testing.T) {
	a, b := NewImage("a", nil), NewImage("b", nil)
	install(t, a, testSym{"foo", 0x100, Unknown})
	install(t, b, testSym{"foo", 0x200, Text})
	m, ok := registryOf(t, a, b).LookupByName("foo", "", nil)
	require.True(t, ok)
	assert.Same(t, a, m.Image)
	assert.Equal(t, Unknown, m.Symbol.Kind)
}

func TestLookupByName_FileLocal(t *testing.T) {
	a, b := NewImage("a", nil), NewImage("b", nil)
	install(t, a, testSym{"helper", 0x100, FileText})
	install(t, b, testSym{"helper", 0x200, FileBss}, testSym{"helper", 0x300, SolibTrampoline})
	reg := registryOf(t, a, b)

	// last file-local wins over earlier ones and over trampolines
	m, ok := reg.LookupByName("helper", "", nil)
	require.True(t, ok)
	assert.Equal(t, uint64(0x200), m.Symbol.Address)

	m, ok = reg.LookupByName("helper", "", a)
	require.True(t, ok)
	assert.Equal(t, uint64(0x100), m.Symbol.Address)
}

func TestLookupByName_SourceFile(t *testing.T) {
	img := NewImage("a.out", &ImageOptions{SourceFileBaseOnly: true})
	c := NewCollector(img)
	c.Record("helper", 0x100, FileText).SourceFile = "src/one.c"
	c.Record("helper", 0x200, FileText).SourceFile = "lib/two.c"
	c.Record("helper", 0x300, SolibTrampoline)
	_, err := c.Install()
	require.NoError(t, err)
	reg := registryOf(t, img)

	for _, tt := range []struct {
		sfile string
		want  uint64
	}{
		{"", 0x200},
		{"one.c", 0x100},
		{"/build/tree/src/one.c", 0x100},
		{"two.c", 0x200},
		{"three.c", 0x300},
	} {
		m, ok := reg.LookupByName("helper", tt.sfile, nil)
		require.True(t, ok, tt.sfile)
		assert.Equal(t, tt.want, m.Symbol.Address, tt.sfile)
	}

	exact := NewImage("b.out", nil)
	c = NewCollector(exact)
	c.Record("helper", 0x100, FileText).SourceFile = "src/one.c"
	_, err = c.Install()
	require.NoError(t, err)
	_, ok := registryOf(t, exact).LookupByName("helper", "one.c", nil)
	assert.False(t, ok)
}

func TestLookupByName_FirstTrampolineKept(t *testing.T) {
	a, b := NewImage("a", nil), NewImage("b", nil)
	install(t, a, testSym{"puts", 0x100, SolibTrampoline})
	install(t, b, testSym{"puts", 0x200, SolibTrampoline})
	m, ok := registryOf(t, a, b).LookupByName("puts", "", nil)
	require.True(t, ok)
	assert.Same(t, a, m.Image)
}

func TestLookupByName_NoMatch(t *testing.T) {
	img := NewImage("a.out", nil)
	install(t, img, testSym{"", 0x100, Text}, testSym{"main", 0x200, Text})
	reg := registryOf(t, img, NewImage("empty", nil))

	_, ok := reg.LookupByName("missing", "", nil)
	assert.False(t, ok)
	_, ok = reg.LookupByName("", "", nil)
	assert.False(t, ok)
	_, ok = reg.LookupByName("main", "", NewImage("other", nil))
	assert.False(t, ok)
}

func TestLookupByName_Demangled(t *testing.T) {
	img := NewImage("a.out", nil)
	install(t, img, testSym{"_ZN3foo3barEv", 0x100, Text})
	reg := registryOf(t, img)

	for _, name := range []string{"_ZN3foo3barEv", "foo::bar()"} {
		m, ok := reg.LookupByName(name, "", nil)
		require.True(t, ok, name)
		assert.Equal(t, uint64(0x100), m.Symbol.Address)
	}
}

func TestLookupByPC_AcrossImages(t *testing.T) {
	exe, lib := NewImage("exe", nil), NewImage("lib.so", nil)
	install(t, exe, testSym{"main", 0x1000, Text}, testSym{"data", 0x40000, Data})
	install(t, lib, testSym{"puts", 0x1234, Text}, testSym{"errno", 0x40048, Bss}, testSym{"_end", 0x50000, Abs})
	reg := registryOf(t, exe, lib, NewImage("empty", nil))

	for _, tt := range []struct {
		pc    uint64
		name  string
		image *Image
	}{
		{0x0fff, "", nil},
		{0x1000, "main", exe},
		{0x1233, "main", exe},
		{0x1234, "puts", lib},
		{0x3ffff, "puts", lib},
		{0x40000, "data", exe},
		{0x40047, "data", exe},
		{0x40048, "errno", lib},
		{0x60000, "errno", lib},
	} {
		m, ok := reg.LookupByPC(tt.pc)
		if tt.image == nil {
			assert.False(t, ok, "pc 0x%x", tt.pc)
			continue
		}
		require.True(t, ok, "pc 0x%x", tt.pc)
		assert.Equal(t, tt.name, m.Symbol.Name, "pc 0x%x", tt.pc)
		assert.Same(t, tt.image, m.Image, "pc 0x%x", tt.pc)
	}
}

func TestLookupByPC_TieFirstRegisteredWins(t *testing.T) {
	a, b := NewImage("a", nil), NewImage("b", nil)
	install(t, a, testSym{"from_a", 0x100, Text})
	install(t, b, testSym{"from_b", 0x100, Text})

	m, ok := registryOf(t, a, b).LookupByPC(0x180)
	require.True(t, ok)
	assert.Equal(t, "from_a", m.Symbol.Name)

	m, ok = registryOf(t, b, a).LookupByPC(0x180)
	require.True(t, ok)
	assert.Equal(t, "from_b", m.Symbol.Name)
}

func TestLookupByPC_AllAbs(t *testing.T) {
	img := NewImage("a", nil)
	install(t, img, testSym{"etext", 0x100, Abs}, testSym{"edata", 0x200, Abs})
	_, ok := registryOf(t, img).LookupByPC(0x300)
	assert.False(t, ok)
}

func TestFindTrampolineTarget(t *testing.T) {
	exe, libc := NewImage("exe", nil), NewImage("libc.so", nil)
	install(t, exe,
		testSym{"main", 0x1000, Text},
		testSym{"foo", 0x2000, SolibTrampoline},
		testSym{"bar", 0x2010, SolibTrampoline},
		testSym{"after_plt", 0x2100, Text},
	)
	install(t, libc, testSym{"foo", 0x7f0000, Data}, testSym{"foo", 0x7f1000, Text})
	reg := registryOf(t, exe, libc)

	target, ok := reg.FindTrampolineTarget(0x2004)
	require.True(t, ok)
	assert.Equal(t, uint64(0x7f1000), target)

	tramp, ok := reg.LookupTrampolineByPC(0x2004)
	require.True(t, ok)
	assert.Equal(t, "foo", tramp.Symbol.Name)

	// no Text definition
	_, ok = reg.FindTrampolineTarget(0x2010)
	assert.False(t, ok)
	// not inside a stub
	_, ok = reg.FindTrampolineTarget(0x1004)
	assert.False(t, ok)
	_, ok = reg.LookupTrampolineByPC(0x2100)
	assert.False(t, ok)
}

func TestFindTrampolineTarget_EmptyName(t *testing.T) {
	exe, lib := NewImage("exe", nil), NewImage("lib.so", nil)
	install(t, exe, testSym{"", 0x2000, SolibTrampoline})
	install(t, lib, testSym{"", 0x7f0000, Text})
	metrics := NewMetrics(prometheus.NewRegistry())
	reg := NewRegistry(metrics)
	require.NoError(t, reg.Add(exe))
	require.NoError(t, reg.Add(lib))

	_, ok := reg.LookupTrampolineByPC(0x2004)
	require.True(t, ok)
	target, ok := reg.FindTrampolineTarget(0x2004)
	assert.False(t, ok)
	assert.Zero(t, target)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Lookups.WithLabelValues("trampoline", "miss")))
}

func TestFindFunctionAddr(t *testing.T) {
	img := NewImage("a.out", nil)
	install(t, img, testSym{"main", 0x1000, Text})
	reg := registryOf(t, img)

	addr, ok := reg.FindFunctionAddr("main:F(0,1)", "", nil)
	require.True(t, ok)
	assert.Equal(t, uint64(0x1000), addr)
	addr, ok = reg.FindFunctionAddr("main", "", img)
	require.True(t, ok)
	assert.Equal(t, uint64(0x1000), addr)
	_, ok = reg.FindFunctionAddr("nope:f", "", nil)
	assert.False(t, ok)
}

func TestLookup_Metrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	img := NewImage("a.out", nil)
	install(t, img, testSym{"main", 0x1000, Text})
	reg := NewRegistry(m)
	require.NoError(t, reg.Add(img))

	reg.LookupByPC(0x1000)
	reg.LookupByPC(0x10)
	reg.LookupByName("main", "", nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues("pc", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues("pc", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues("name", "hit")))
}

func TestLookup_ConcurrentInstall(t *testing.T) {
	exe := NewImage("exe", nil)
	install(t, exe, testSym{"main", 0x1000, Text})
	lib := NewImage("lib.so", nil)
	reg := registryOf(t, exe, lib)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c := NewCollector(lib)
		for i := 0; i < 100; i++ {
			c.Record("puts", 0x2000+uint64(i)*0x10, Text)
			if _, err := c.Install(); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			m, ok := reg.LookupByPC(0x1800)
			if !ok || m.Symbol.Name != "main" {
				t.Errorf("unexpected lookup result %v %v", m.Symbol, ok)
				return
			}
			if table := lib.Table(); table != nil {
				requireSortedNoFatal(t, table)
			}
		}
	}()
	wg.Wait()
	assert.Equal(t, 100, lib.Len())
}

func requireSortedNoFatal(t *testing.T, table *Table) {
	syms := table.Symbols()
	for i := 1; i < len(syms); i++ {
		if syms[i-1].Address > syms[i].Address {
			t.Errorf("table not sorted at %d", i)
			return
		}
	}
}
