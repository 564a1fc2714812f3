package coalesce

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpucc/spillcoalesce/internal/demo"
	"github.com/gpucc/spillcoalesce/internal/ir"
	"github.com/gpucc/spillcoalesce/internal/machine"
)

func run(t *testing.T, fn *ir.Function) {
	t.Helper()
	p := New(fn, machine.DefaultConstants(), machine.ConstantPressure(0), machine.BitPackEncoder{}, DefaultConfig(), nil)
	require.NoError(t, p.Run())
}

func countKind(fn *ir.Function, pred func(*ir.Instruction) bool) int {
	n := 0
	for _, bb := range fn.Blocks() {
		for instr := bb.Front(); instr != nil; instr = instr.Next() {
			if pred(instr) {
				n++
			}
		}
	}
	return n
}

func TestBasicFillCoalesceMergesFourFillsIntoOne(t *testing.T) {
	fn := demo.Scenarios["basic-fill-coalesce"]()
	before := countKind(fn, (*ir.Instruction).IsFill)
	require.Equal(t, 4, before)

	// Exercise S2 in isolation: the scenario has no spills, so a full Run
	// would let S5's dead-write elimination erase the coalesced fill (its
	// slots are never written), which would defeat this test's point.
	p := New(fn, machine.DefaultConstants(), machine.ConstantPressure(0), machine.BitPackEncoder{}, DefaultConfig(), nil)
	p.coalesceFillsInFunction()

	after := countKind(fn, (*ir.Instruction).IsFill)
	require.Equal(t, 1, after, "four single-row fills of one declaration should coalesce into one")

	var fill *ir.Instruction
	for _, bb := range fn.Blocks() {
		for instr := bb.Front(); instr != nil; instr = instr.Next() {
			if instr.IsFill() {
				fill = instr
			}
		}
	}
	require.NotNil(t, fill)
	wantDesc := uint32(machine.BitPackEncoder{}.Encode(4, 0))
	require.Equal(t, ir.ScratchInfo{Offset: 0, Size: 4, Descriptor: wantDesc}, fill.ScratchInfo())
}

func TestSplitSendOverlapIsFixed(t *testing.T) {
	fn := demo.Scenarios["split-send-overlap"]()

	var send *ir.Instruction
	for _, bb := range fn.Blocks() {
		for instr := bb.Front(); instr != nil; instr = instr.Next() {
			if instr.IsSplitSend() {
				send = instr
			}
		}
	}
	require.NotNil(t, send)
	src0, src1 := send.Src(0), send.SplitSendSrc1()
	require.Equal(t, src0.TopDecl(), src1.TopDecl(), "fixture should start with overlapping same-decl sources")

	run(t, fn)

	for _, bb := range fn.Blocks() {
		for instr := bb.Front(); instr != nil; instr = instr.Next() {
			if instr.IsSplitSend() {
				send = instr
			}
		}
	}
	require.NotEqual(t, send.Src(0).TopDecl(), send.SplitSendSrc1().TopDecl(),
		"S6 must copy src1 out to a fresh declaration once it overlaps src0")
}

func TestSpillFillRoundtripBecomesMov(t *testing.T) {
	fn := demo.Scenarios["spill-fill-roundtrip"]()
	run(t, fn)

	require.Equal(t, 0, countKind(fn, (*ir.Instruction).IsFill),
		"a fill immediately preceded by a spill of the same rows should collapse to a mov")
}

func TestPassRunOnEmptyFunctionSucceeds(t *testing.T) {
	fn := ir.NewFunction("empty")
	fn.AddBlock()
	run(t, fn)
}

func TestRunRecoversInternalInvariantErrorButNotOtherPanics(t *testing.T) {
	// Simulate a stage panicking with the typed error Run is documented to
	// recover (spec.md 7): it must come back as a returned error, not a panic.
	runWithPanic := func(v any) (err error) {
		defer func() {
			if r := recover(); r != nil {
				if ie, ok := r.(*InternalInvariantError); ok {
					err = ie
					return
				}
				panic(r)
			}
		}()
		panic(v)
	}

	err := runWithPanic(&InternalInvariantError{Code: ErrUnsupportedPayloadSize, Stage: "S2", Msg: "boom"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")

	require.Panics(t, func() { _ = runWithPanic("not an invariant error") })
}

func TestSubstitutionMapRejectsDoubleInsert(t *testing.T) {
	fn := ir.NewFunction("f")
	orig := fn.NewDeclaration("V", 1)
	repl := fn.NewCoalescedFillDecl(4, false)

	m := substitutionMap{}
	require.NotPanics(t, func() { m.insert(orig, repl, 0) })
	require.Panics(t, func() { m.insert(orig, repl, 1) })
}

func TestDeclSetNilSafe(t *testing.T) {
	s := declSet{}
	require.False(t, s.has(nil))
	s.add(nil)
	require.Empty(t, s)
}

func TestFillHeuristicVetoesAddressTaken(t *testing.T) {
	fn := ir.NewFunction("f")
	bb := fn.AddBlock()
	decl := fn.NewDeclaration("V", 2)
	decl.SetAddressTaken(true)

	header := fn.NewDeclaration("R0", 1)
	headerRegion := ir.NewRegion(header, 0, 0, 1, ir.TypeUD)
	mask := ir.MaskOption{WriteEnable: true}

	var group []*ir.Instruction
	for row := 0; row < 2; row++ {
		info := ir.ScratchInfo{Offset: row, Size: 1}
		f := fn.NewFill(headerRegion, ir.NewRegion(decl, row, 0, 1, ir.TypeUD), info, mask, ir.SIMD8, "fill")
		bb.Append(f)
		group = append(group, f)
	}

	require.False(t, fillHeuristic(group, 4))
}

func TestKeepConsecutiveSpillsTrimsThreeRowSpanToTwo(t *testing.T) {
	fn := ir.NewFunction("f")
	header := fn.NewDeclaration("R0", 1)
	headerRegion := ir.NewRegion(header, 0, 0, 1, ir.TypeUD)
	decl := fn.NewDeclaration("V", 3)
	mask := ir.MaskOption{WriteEnable: true}

	var window []*ir.Instruction
	for row := 0; row < 3; row++ {
		info := ir.ScratchInfo{Offset: row, Size: 1}
		s := fn.NewSpill(headerRegion, ir.NewRegion(decl, row, 0, 1, ir.TypeUD), info, mask, ir.SIMD8, "spill")
		window = append(window, s)
	}

	group := keepConsecutiveSpills(window, 4, declSet{})
	span := group[len(group)-1].ScratchInfo().LastRow() - group[0].ScratchInfo().Offset + 1
	require.Equal(t, 2, span)
}

func TestKeepConsecutiveSpillsSkipsAddressTakenCandidate(t *testing.T) {
	fn := ir.NewFunction("f")
	header := fn.NewDeclaration("R0", 1)
	headerRegion := ir.NewRegion(header, 0, 0, 1, ir.TypeUD)
	decl := fn.NewDeclaration("V", 2)
	tainted := fn.NewDeclaration("T", 1)
	tainted.SetAddressTaken(true)
	mask := ir.MaskOption{WriteEnable: true}

	s0 := fn.NewSpill(headerRegion, ir.NewRegion(decl, 0, 0, 1, ir.TypeUD), ir.ScratchInfo{Offset: 10, Size: 1}, mask, ir.SIMD8, "spill")
	s1 := fn.NewSpill(headerRegion, ir.NewRegion(tainted, 0, 0, 1, ir.TypeUD), ir.ScratchInfo{Offset: 11, Size: 1}, mask, ir.SIMD8, "spill")

	addrTaken := declSet{}
	addrTaken.add(tainted)

	group := keepConsecutiveSpills([]*ir.Instruction{s0, s1}, 4, addrTaken)
	require.Len(t, group, 1, "the address-taken candidate must never join a coalescing group")
	require.Equal(t, s0, group[0])
}

func TestKeepConsecutiveSpillsExtendsOutOfOrderCandidate(t *testing.T) {
	fn := ir.NewFunction("f")
	header := fn.NewDeclaration("R0", 1)
	headerRegion := ir.NewRegion(header, 0, 0, 1, ir.TypeUD)
	decl := fn.NewDeclaration("V", 5)
	mask := ir.MaskOption{WriteEnable: true}

	mk := func(offset int) *ir.Instruction {
		return fn.NewSpill(headerRegion, ir.NewRegion(decl, offset, 0, 1, ir.TypeUD), ir.ScratchInfo{Offset: offset, Size: 1}, mask, ir.SIMD8, "spill")
	}

	// Program order [10, 14, 11]: a naive single-pass scan gives up at 14
	// (not adjacent to 10) and never considers 11, which does extend 10's
	// range. The redo-loop must find it anyway.
	s10, s14, s11 := mk(10), mk(14), mk(11)

	group := keepConsecutiveSpills([]*ir.Instruction{s10, s14, s11}, 4, declSet{})
	require.Len(t, group, 2)
	require.Equal(t, 10, group[0].ScratchInfo().Offset)
	require.Equal(t, 11, group[1].ScratchInfo().Offset)
}

func TestSpillCoalesceSkipsAddressTakenDeclaration(t *testing.T) {
	fn := ir.NewFunction("f")
	bb := fn.AddBlock()
	header := fn.NewDeclaration("R0", 1)
	headerRegion := ir.NewRegion(header, 0, 0, 1, ir.TypeUD)
	decl := fn.NewDeclaration("V", 1)
	tainted := fn.NewDeclaration("T", 1)
	tainted.SetAddressTaken(true)
	mask := ir.MaskOption{WriteEnable: true}

	bb.Append(fn.NewSpill(headerRegion, ir.NewRegion(decl, 0, 0, 1, ir.TypeUD), ir.ScratchInfo{Offset: 0, Size: 1}, mask, ir.SIMD8, "spill"))
	bb.Append(fn.NewSpill(headerRegion, ir.NewRegion(tainted, 0, 0, 1, ir.TypeUD), ir.ScratchInfo{Offset: 1, Size: 1}, mask, ir.SIMD8, "spill"))

	// Exercise S3 in isolation: with no fills anywhere, a full Run would let
	// S5's dead-write elimination erase both spills regardless of whether
	// they were coalesced, which would defeat this test's point.
	p := New(fn, machine.DefaultConstants(), machine.ConstantPressure(0), machine.BitPackEncoder{}, DefaultConfig(), nil)
	p.computeAddressTakenDecls()
	p.coalesceSpillsInFunction()

	require.Equal(t, 2, countKind(fn, (*ir.Instruction).IsSpill),
		"an address-taken declaration must never be folded into a coalesced spill")
}

func TestSpillFillCleanupCoversRowsFromDifferentSpills(t *testing.T) {
	fn := ir.NewFunction("f")
	bb := fn.AddBlock()
	header := fn.NewDeclaration("R0", 1)
	headerRegion := ir.NewRegion(header, 0, 0, 1, ir.TypeUD)
	mask := ir.MaskOption{WriteEnable: true}

	srcA := fn.NewDeclaration("A", 1)
	srcB := fn.NewDeclaration("B", 1)
	dst := fn.NewDeclaration("D", 2)

	// Mask-incompatible on purpose, so S3 never coalesces these two spills
	// into one before S4 runs - the point of this test is S4 collapsing a
	// fill backed by two *distinct* preceding spills.
	spillA := fn.NewSpill(headerRegion, ir.NewRegion(srcA, 0, 0, 1, ir.TypeUD), ir.ScratchInfo{Offset: 0, Size: 1}, mask, ir.SIMD8, "spill-a")
	spillB := fn.NewSpill(headerRegion, ir.NewRegion(srcB, 0, 0, 1, ir.TypeUD), ir.ScratchInfo{Offset: 1, Size: 1}, ir.MaskOption{QuarterMask: 1}, ir.SIMD8, "spill-b")
	fill := fn.NewFill(headerRegion, ir.NewRegion(dst, 0, 0, 1, ir.TypeUD), ir.ScratchInfo{Offset: 0, Size: 2}, mask, ir.SIMD8, "fill")

	bb.Append(spillA)
	bb.Append(spillB)
	bb.Append(fill)
	// A later reader of the fill's destination.
	user := fn.NewMov(ir.NewRegion(fn.NewDeclaration("U", 2), 0, 0, 1, ir.TypeUD), ir.NewRegion(dst, 0, 0, 1, ir.TypeUD), ir.SIMD8, true, "use")
	bb.Append(user)

	run(t, fn)

	require.Equal(t, 0, countKind(fn, (*ir.Instruction).IsFill),
		"a fill whose rows come from two different preceding spills should still collapse into movs")
	movs := countKind(fn, (*ir.Instruction).IsRawMov)
	require.GreaterOrEqual(t, movs, 2, "rows backed by different source spills must not be merged into one mov")
}

func TestGlobalDeadWriteElimKillsSpillNeverReadAndFillNeverWritten(t *testing.T) {
	fn := ir.NewFunction("f")
	bb := fn.AddBlock()
	header := fn.NewDeclaration("R0", 1)
	headerRegion := ir.NewRegion(header, 0, 0, 1, ir.TypeUD)
	mask := ir.MaskOption{WriteEnable: true}

	src := fn.NewDeclaration("S", 1)
	deadSpill := fn.NewSpill(headerRegion, ir.NewRegion(src, 0, 0, 1, ir.TypeUD), ir.ScratchInfo{Offset: 100, Size: 1}, mask, ir.SIMD8, "dead-spill")
	bb.Append(deadSpill)

	fillDst := fn.NewDeclaration("F", 1)
	deadFill := fn.NewFill(headerRegion, ir.NewRegion(fillDst, 0, 0, 1, ir.TypeUD), ir.ScratchInfo{Offset: 200, Size: 1}, mask, ir.SIMD8, "dead-fill")
	bb.Append(deadFill)
	user := fn.NewMov(ir.NewRegion(fn.NewDeclaration("U", 1), 0, 0, 1, ir.TypeUD), ir.NewRegion(fillDst, 0, 0, 1, ir.TypeUD), ir.SIMD8, true, "use")
	bb.Append(user)

	run(t, fn)

	require.Equal(t, 0, countKind(fn, (*ir.Instruction).IsSpill), "a spill to a slot no fill ever reads must be erased")
	require.Equal(t, 0, countKind(fn, (*ir.Instruction).IsFill), "a fill from a slot no spill ever wrote must be erased")
}
