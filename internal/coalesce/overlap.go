package coalesce

import "github.com/gpucc/spillcoalesce/internal/ir"

// scratchRangesOverlap reports whether two scratch ranges share any row.
func scratchRangesOverlap(a, b ir.ScratchInfo) bool {
	return a.Offset <= b.LastRow() && b.Offset <= a.LastRow()
}

// scratchOverlap reports whether two spill/fill instructions touch any
// common scratch row, and whether b's range is fully contained in a's
// (a "full overlap", which makes b redundant).
func scratchOverlap(a, b *ir.Instruction) (overlaps, fullOverlap bool) {
	ai, bi := a.ScratchInfo(), b.ScratchInfo()
	overlaps = scratchRangesOverlap(ai, bi)
	if overlaps {
		fullOverlap = bi.Offset >= ai.Offset && bi.LastRow() <= ai.LastRow()
	}
	return
}

// overlapsAny reports whether inst's scratch range overlaps any instruction
// in candidates.
func overlapsAny(inst *ir.Instruction, candidates []*ir.Instruction) bool {
	for _, c := range candidates {
		if ov, _ := scratchOverlap(inst, c); ov {
			return true
		}
	}
	return false
}

// regionRangesOverlap reports whether two register regions of the same
// declaration overlap in row range, used by S6 to detect illegal
// split-send source overlap (spec.md 4.8).
func regionRangesOverlap(a, b *ir.Region) bool {
	if a.TopDecl() != b.TopDecl() {
		return false
	}
	aLo, aHi := a.RowOffset, a.RowOffset+maxInt(a.NumRows, 1)-1
	bLo, bHi := b.RowOffset, b.RowOffset+maxInt(b.NumRows, 1)-1
	return aLo <= bHi && bLo <= aHi
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// fixSendsSrcOverlap is S6 (spec.md 4.8), the pipeline's final stage: when
// coalescing has left a split-send's two payload sources (src0 and the
// dedicated splitSendSrc1) referencing overlapping rows of the same
// declaration, hardware cannot issue the message, so src1 is copied out to
// a fresh declaration first.
func (p *Pass) fixSendsSrcOverlap() {
	for _, bb := range p.fn.Blocks() {
		for instr := bb.Front(); instr != nil; instr = instr.Next() {
			if !instr.IsSplitSend() {
				continue
			}
			p.fixSplitSendOverlap(bb, instr)
		}
	}
}

func (p *Pass) fixSplitSendOverlap(bb *ir.BasicBlock, send *ir.Instruction) {
	src0 := send.Src(0)
	src1 := send.SplitSendSrc1()
	if src0 == nil || src1 == nil || !regionRangesOverlap(src0, src1) {
		return
	}

	numRows := maxInt(src1.NumRows, 1)
	copyDecl := p.fn.NewCopyDecl(numRows)

	nMoves := (numRows + 1) / 2
	for i := 0; i < nMoves; i++ {
		rowsThisMove := 2
		if start := i * 2; start+rowsThisMove > numRows {
			rowsThisMove = numRows - start
		}
		dst := ir.NewRegion(copyDecl, i*2, 0, 1, src1.Type).WithRows(rowsThisMove)
		src := src1.Dup()
		src.RowOffset += i * 2
		src = src.WithRows(rowsThisMove)
		mov := p.fn.NewMov(dst, src, ir.SIMD8, true, "split-send-overlap-fix")
		bb.InsertBefore(send, mov)
	}

	newSrc1 := ir.NewRegion(copyDecl, 0, 0, 1, src1.Type).WithRows(numRows)
	send.SetSplitSendSrc1(newSrc1)
}
