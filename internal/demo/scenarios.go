// Package demo builds small synthetic ir.Function scenarios for the
// spillcoalesce command to run the pass over, since this module has no
// front-end of its own to parse a real shader from.
package demo

import (
	"sort"

	"github.com/gpucc/spillcoalesce/internal/ir"
)

// Scenarios maps a scenario name to a builder producing a fresh Function.
var Scenarios = map[string]func() *ir.Function{
	"basic-fill-coalesce":  buildBasicFillCoalesce,
	"split-send-overlap":   buildSplitSendOverlap,
	"spill-fill-roundtrip": buildSpillFillRoundtrip,
}

// ScenarioNames returns the available scenario names, sorted.
func ScenarioNames() []string {
	names := make([]string, 0, len(Scenarios))
	for name := range Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildBasicFillCoalesce reproduces spec.md's scenario 1: four single-row
// fills into consecutive rows of one declaration, all under the same mask,
// each consumed only by the final send. S2 should coalesce them into one
// 4-row fill.
func buildBasicFillCoalesce() *ir.Function {
	fn := ir.NewFunction("basic_fill_coalesce")
	bb := fn.AddBlock()

	header := fn.NewDeclaration("R0", 1)
	headerRegion := ir.NewRegion(header, 0, 0, 1, ir.TypeUD)

	dst := fn.NewDeclaration("V1", 4)
	mask := ir.MaskOption{WriteEnable: true}

	for row := 0; row < 4; row++ {
		d := ir.NewRegion(dst, row, 0, 1, ir.TypeUD)
		info := ir.ScratchInfo{Offset: row, Size: 1}
		bb.Append(fn.NewFill(headerRegion, d, info, mask, ir.SIMD8, "fill"))
	}

	sendSrc := ir.NewRegion(dst, 0, 0, 1, ir.TypeUD).WithRows(4)
	sendDst := fn.NewDeclaration("URB_MSG", 1)
	bb.Append(fn.NewSend(ir.NewRegion(sendDst, 0, 0, 1, ir.TypeUD), sendSrc, "urb-write"))

	return fn
}

// buildSplitSendOverlap builds a split-send whose two payload sources
// overlap the same declaration's rows, which S6 must fix by copying src1
// out to a fresh declaration before the send can be legally issued.
func buildSplitSendOverlap() *ir.Function {
	fn := ir.NewFunction("split_send_overlap")
	bb := fn.AddBlock()

	payload := fn.NewDeclaration("PAYLOAD", 4)
	header := ir.NewRegion(payload, 0, 0, 1, ir.TypeUD).WithRows(1)
	src0 := ir.NewRegion(payload, 1, 0, 1, ir.TypeUD).WithRows(2)
	src1 := ir.NewRegion(payload, 2, 0, 1, ir.TypeUD).WithRows(2) // overlaps src0's row 2

	dst := fn.NewDeclaration("RESULT", 1)
	send := fn.NewSplitSend(ir.NewRegion(dst, 0, 0, 1, ir.TypeUD), header, src0, src1, "split-send")
	bb.Append(send)

	return fn
}

// buildSpillFillRoundtrip spills a value and immediately fills it back in
// the same block, close enough together that S4 should replace the fill
// with a direct mov from the still-live spilled declaration.
func buildSpillFillRoundtrip() *ir.Function {
	fn := ir.NewFunction("spill_fill_roundtrip")
	bb := fn.AddBlock()

	header := fn.NewDeclaration("R0", 1)
	headerRegion := ir.NewRegion(header, 0, 0, 1, ir.TypeUD)

	v := fn.NewDeclaration("V2", 2)
	vSrc := ir.NewRegion(v, 0, 0, 1, ir.TypeUD).WithRows(2)
	mask := ir.MaskOption{WriteEnable: true}
	info := ir.ScratchInfo{Offset: 0, Size: 2}

	bb.Append(fn.NewSpill(headerRegion, vSrc, info, mask, ir.SIMD8, "spill"))

	refill := fn.NewDeclaration("V2_REFILL", 2)
	refillDst := ir.NewRegion(refill, 0, 0, 1, ir.TypeUD).WithRows(2)
	fill := fn.NewFill(headerRegion, refillDst, info, mask, ir.SIMD8, "fill")
	bb.Append(fill)

	use := fn.NewDeclaration("USE_DST", 2)
	bb.Append(fn.NewMov(ir.NewRegion(use, 0, 0, 1, ir.TypeUD).WithRows(2), refillDst, ir.SIMD8, true, "use"))

	return fn
}
