package coalesce

import "github.com/gpucc/spillcoalesce/internal/ir"

// spillFillCleanup is S4 (spec.md 4.6): within a short backward window of
// each fill, if the same scratch range was just spilled from a still-live
// declaration, replace the fill with a direct register-to-register move
// from that declaration instead of round-tripping through scratch memory.
func (p *Pass) spillFillCleanup() {
	for _, bb := range p.fn.Blocks() {
		p.spillFillCleanupBlock(bb)
	}
}

func (p *Pass) spillFillCleanupBlock(bb *ir.BasicBlock) {
	for instr := bb.Front(); instr != nil; instr = instr.Next() {
		if !instr.IsFill() {
			continue
		}
		p.tryReplaceFillWithMov(bb, instr)
	}
}

// tryReplaceFillWithMov walks backward from fill up to cfg.SpillFillCleanupWindow
// instructions, tracking, per scratch row, the most recent spill that wrote
// it and any write that would invalidate it (a WAR hazard: something
// redefined the spilled declaration's rows, or re-used the same scratch
// rows, since that spill ran). Different rows of the fill may be covered by
// different spills (spec.md 4.6); if every row is covered by some
// hazard-free spill, the fill is replaced by movs of at most two rows each:
// one SIMD16 mov for two successive rows that share a source spill, and one
// SIMD8 mov for any other row.
func (p *Pass) tryReplaceFillWithMov(bb *ir.BasicBlock, fill *ir.Instruction) {
	target := fill.ScratchInfo()
	slotSpill := map[int]*ir.Instruction{}
	hazard := map[int]bool{}
	// defined holds every declaration written between the current point of
	// the backward walk and the fill.
	defined := map[*ir.Declaration]bool{}
	steps := 0

	for cur := fill.Prev(); cur != nil && steps < p.cfg.SpillFillCleanupWindow; cur, steps = cur.Prev(), steps+1 {
		if cur.IsSpill() {
			info := cur.ScratchInfo()
			for r := info.Offset; r <= info.LastRow(); r++ {
				if _, seen := slotSpill[r]; !seen {
					slotSpill[r] = cur
					if defined[cur.Src(1).TopDecl()] {
						hazard[r] = true
					}
				}
			}
			continue
		}
		if d := cur.DefDecl(); d != nil {
			defined[d] = true
		}
	}

	for r := target.Offset; r <= target.LastRow(); r++ {
		if _, ok := slotSpill[r]; !ok || hazard[r] {
			return
		}
	}

	// rowSource returns the region a single scratch row of the fill should
	// read from, derived from whichever spill most recently wrote that row.
	rowSource := func(row int) *ir.Region {
		s := slotSpill[row]
		src := s.Src(1)
		info := s.ScratchInfo()
		invariant(src.TopDecl() != nil, "S4", ErrUnknownIntrinsicKind, "spill source has no backing declaration")
		return ir.NewRegion(src.TopDecl(), src.RowOffset+(row-info.Offset), src.SubRegOffset, src.Stride, src.Type)
	}

	dst := fill.Dst()
	insertAfter := fill
	for row := target.Offset; row <= target.LastRow(); {
		width := ir.SIMD8
		rows := 1
		if row+1 <= target.LastRow() && slotSpill[row] == slotSpill[row+1] {
			rows = 2
			width = ir.SIMD16
		}

		dstRegion := ir.NewRegion(dst.TopDecl(), dst.RowOffset+(row-target.Offset), dst.SubRegOffset, dst.Stride, dst.Type).WithRows(rows)
		srcRegion := rowSource(row).WithRows(rows)

		mov := p.fn.NewMov(dstRegion, srcRegion, width, true, "spill-fill-cleanup")
		bb.InsertAfter(insertAfter, mov)
		insertAfter = mov
		row += rows
	}

	bb.Erase(fill)
}
