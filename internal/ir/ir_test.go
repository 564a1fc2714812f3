package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicBlockAppendAndIterate(t *testing.T) {
	fn := NewFunction("f")
	bb := fn.AddBlock()
	require.Nil(t, bb.Front())
	require.Nil(t, bb.Back())

	decl := fn.NewDeclaration("V", 1)
	i1 := fn.NewMov(NewRegion(decl, 0, 0, 1, TypeUD), NewRegion(decl, 0, 0, 1, TypeUD), SIMD8, true, "i1")
	i2 := fn.NewMov(NewRegion(decl, 0, 0, 1, TypeUD), NewRegion(decl, 0, 0, 1, TypeUD), SIMD8, true, "i2")
	bb.Append(i1)
	bb.Append(i2)

	require.Equal(t, i1, bb.Front())
	require.Equal(t, i2, bb.Back())
	require.Nil(t, i1.Prev())
	require.Equal(t, i2, i1.Next())
	require.Equal(t, i1, i2.Prev())
	require.Nil(t, i2.Next())
}

func TestBasicBlockEraseReturnsNext(t *testing.T) {
	fn := NewFunction("f")
	bb := fn.AddBlock()
	decl := fn.NewDeclaration("V", 1)

	var instrs []*Instruction
	for i := 0; i < 3; i++ {
		instr := fn.NewMov(NewRegion(decl, 0, 0, 1, TypeUD), NewRegion(decl, 0, 0, 1, TypeUD), SIMD8, true, "mov")
		bb.Append(instr)
		instrs = append(instrs, instr)
	}

	next := bb.Erase(instrs[1])
	require.Equal(t, instrs[2], next)
	require.Equal(t, instrs[2], instrs[0].Next())
	require.Equal(t, instrs[0], instrs[2].Prev())

	last := bb.Erase(instrs[2])
	require.Nil(t, last)
	require.Nil(t, instrs[0].Next())
	require.Equal(t, instrs[0], bb.Back())
}

func TestBasicBlockInsertBeforeAndAfter(t *testing.T) {
	fn := NewFunction("f")
	bb := fn.AddBlock()
	decl := fn.NewDeclaration("V", 1)
	mk := func(tag string) *Instruction {
		return fn.NewMov(NewRegion(decl, 0, 0, 1, TypeUD), NewRegion(decl, 0, 0, 1, TypeUD), SIMD8, true, tag)
	}

	mid := mk("mid")
	bb.Append(mid)

	before := mk("before")
	bb.InsertBefore(mid, before)
	after := mk("after")
	bb.InsertAfter(mid, after)

	require.Equal(t, []*Instruction{before, mid, after}, bb.Instructions())
}

func TestRegionTopDeclNilSafe(t *testing.T) {
	var r *Region
	require.Nil(t, r.TopDecl())
}

func TestMaskOptionCompatible(t *testing.T) {
	cases := []struct {
		name string
		a, b MaskOption
		want bool
	}{
		{"both-write-enable", MaskOption{WriteEnable: true}, MaskOption{WriteEnable: true}, true},
		{"same-quarter", MaskOption{QuarterMask: 1}, MaskOption{QuarterMask: 1}, true},
		{"different-quarter", MaskOption{QuarterMask: 0}, MaskOption{QuarterMask: 1}, false},
		{"mixed", MaskOption{WriteEnable: true}, MaskOption{QuarterMask: 0}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, c.a.Compatible(c.b))
		})
	}
}

func TestScratchInfoLastRow(t *testing.T) {
	s := ScratchInfo{Offset: 4, Size: 2}
	require.Equal(t, 5, s.LastRow())
}

func TestInstructionScratchInfoPanicsOnNonScratch(t *testing.T) {
	fn := NewFunction("f")
	decl := fn.NewDeclaration("V", 1)
	mov := fn.NewMov(NewRegion(decl, 0, 0, 1, TypeUD), NewRegion(decl, 0, 0, 1, TypeUD), SIMD8, true, "mov")
	require.Panics(t, func() { mov.ScratchInfo() })
}

func TestCoalescedDeclsAreDoNotSpill(t *testing.T) {
	fn := NewFunction("f")
	spillDecl := fn.NewCoalescedSpillDecl(4)
	fillDecl := fn.NewCoalescedFillDecl(4, true)

	require.True(t, spillDecl.DoNotSpill())
	require.True(t, fillDecl.DoNotSpill())
	require.True(t, fillDecl.EvenAligned())
	require.Equal(t, DeclCoalescedSpill, spillDecl.Kind)
	require.Equal(t, DeclCoalescedFill, fillDecl.Kind)
}
