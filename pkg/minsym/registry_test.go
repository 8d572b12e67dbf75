package minsym

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry(nil)
	a, b, c := NewImage("a", nil), NewImage("b", nil), NewImage("c", nil)
	require.NoError(t, reg.Add(a))
	require.NoError(t, reg.Add(b))
	require.NoError(t, reg.Add(c))
	assert.ErrorIs(t, reg.Add(b), ErrImageRegistered)
	assert.ErrorIs(t, reg.Add(nil), ErrNoImage)
	assert.Equal(t, []*Image{a, b, c}, reg.Images())

	found, ok := reg.Find("b")
	require.True(t, ok)
	assert.Same(t, b, found)

	snapshot := reg.Images()
	require.NoError(t, reg.Remove(b))
	assert.ErrorIs(t, reg.Remove(b), ErrImageNotFound)
	assert.EqualError(t, reg.Remove(b), "remove b: image not found")
	assert.Equal(t, []*Image{a, c}, reg.Images())
	assert.Equal(t, []*Image{a, b, c}, snapshot)
	assert.Equal(t, 2, reg.Len())

	_, ok = reg.Find("b")
	assert.False(t, ok)
}

func TestRegistry_RemoveDropsSymbols(t *testing.T) {
	img := NewImage("lib.so", nil)
	install(t, img, testSym{"puts", 0x1000, Text})
	reg := registryOf(t, img)

	_, ok := reg.LookupByPC(0x1000)
	require.True(t, ok)
	require.NoError(t, reg.Remove(img))
	_, ok = reg.LookupByPC(0x1000)
	assert.False(t, ok)
	_, ok = reg.LookupByName("puts", "", nil)
	assert.False(t, ok)
}

func TestKind(t *testing.T) {
	for _, k := range []Kind{FileText, FileData, FileBss} {
		assert.True(t, k.IsFileLocal(), k.String())
		assert.False(t, k.IsGlobal(), k.String())
	}
	for _, k := range []Kind{Unknown, Text, Data, Bss, Abs, Kind(42)} {
		assert.False(t, k.IsFileLocal(), k.String())
		assert.True(t, k.IsGlobal(), k.String())
	}
	assert.False(t, SolibTrampoline.IsGlobal())
	assert.Equal(t, "SOLIB_TRAMPOLINE", SolibTrampoline.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestDemangleType(t *testing.T) {
	for _, tt := range []struct {
		typ  DemangleType
		name string
		want string
		ok   bool
	}{
		{DemangleFull, "_ZN3foo3barEi", "foo::bar(int)", true},
		{DemangleSimplified, "_ZN3foo3barEi", "foo::bar", true},
		{DemangleNone, "_ZN3foo3barEi", "", false},
		{DemangleFull, "main", "", false},
		{DemangleFull, "", "", false},
	} {
		got, ok := tt.typ.Demangler()(tt.name)
		assert.Equal(t, tt.ok, ok, "%s %s", tt.typ, tt.name)
		assert.Equal(t, tt.want, got, "%s %s", tt.typ, tt.name)
	}
}
