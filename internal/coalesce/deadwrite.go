package coalesce

import "github.com/gpucc/spillcoalesce/internal/ir"

// removeRedundantWrites is S5 (spec.md 4.5, 4.7): first a per-block backward
// pass collapses a spill that a later spill in the same block fully
// overwrites before any fill reads it, then a function-wide pass removes
// any remaining spill or fill whose value is provably never read.
func (p *Pass) removeRedundantWrites() {
	for _, bb := range p.fn.Blocks() {
		p.backwardSuccessiveWriteElim(bb)
	}
	p.globalDeadWriteElim()
}

// backwardSuccessiveWriteElim scans a block in reverse, tracking, per
// scratch row, the mask of the nearest write seen so far. A spill is
// redundant once every row it writes is already covered by a
// mask-compatible write closer to the end of the block, and nothing
// between the two reads it — since a fill would have shown up in this
// reverse scan as a "gap" in the covered set, not a write.
func (p *Pass) backwardSuccessiveWriteElim(bb *ir.BasicBlock) {
	type covered struct {
		mask ir.MaskOption
		seen bool
	}
	rows := map[int]covered{}

	instrs := bb.Instructions()
	for i := len(instrs) - 1; i >= 0; i-- {
		instr := instrs[i]
		switch {
		case instr.IsFill():
			// A fill consumes whatever is in these rows; any write found
			// earlier than this point is observable, so stop treating them
			// as redundant-write candidates.
			info := instr.ScratchInfo()
			for r := info.Offset; r <= info.LastRow(); r++ {
				delete(rows, r)
			}
		case instr.IsSpill():
			info := instr.ScratchInfo()
			redundant := true
			for r := info.Offset; r <= info.LastRow(); r++ {
				c, ok := rows[r]
				if !ok || !c.mask.Compatible(instr.Mask()) {
					redundant = false
					break
				}
			}
			if redundant {
				bb.Erase(instr)
				continue
			}
			for r := info.Offset; r <= info.LastRow(); r++ {
				rows[r] = covered{mask: instr.Mask(), seen: true}
			}
		}
	}
}

// programOrder returns every instruction across the function's blocks, in
// block order then intra-block order. No stage calls it; globalDeadWriteElim
// builds its per-slot lists without regard to order.
func programOrder(fn *ir.Function) []*ir.Instruction {
	var out []*ir.Instruction
	for _, bb := range fn.Blocks() {
		out = append(out, bb.Instructions()...)
	}
	return out
}

// globalDeadWriteElim is spec.md 4.7's second sub-pass: build, function-wide
// and order-independent, the list of spills and the list of fills touching
// each scratch slot, then erase any spill whose every slot has an empty
// fill list (nothing in the function ever reads it) and any fill whose
// every slot has an empty spill list (nothing in the function ever wrote
// it). Both lists are built up front from the function as it stands before
// this pass starts erasing, so the verdict never depends on iteration
// order.
func (p *Pass) globalDeadWriteElim() {
	spillsAtSlot := map[int][]*ir.Instruction{}
	fillsAtSlot := map[int][]*ir.Instruction{}
	var allSpills, allFills []*ir.Instruction

	for _, bb := range p.fn.Blocks() {
		for instr := bb.Front(); instr != nil; instr = instr.Next() {
			switch {
			case instr.IsSpill():
				allSpills = append(allSpills, instr)
				info := instr.ScratchInfo()
				for r := info.Offset; r <= info.LastRow(); r++ {
					spillsAtSlot[r] = append(spillsAtSlot[r], instr)
				}
			case instr.IsFill():
				allFills = append(allFills, instr)
				info := instr.ScratchInfo()
				for r := info.Offset; r <= info.LastRow(); r++ {
					fillsAtSlot[r] = append(fillsAtSlot[r], instr)
				}
			}
		}
	}

	for _, instr := range allSpills {
		info := instr.ScratchInfo()
		dead := true
		for r := info.Offset; r <= info.LastRow() && dead; r++ {
			if len(fillsAtSlot[r]) > 0 {
				dead = false
			}
		}
		if dead {
			instr.Block().Erase(instr)
		}
	}

	for _, instr := range allFills {
		info := instr.ScratchInfo()
		dead := true
		for r := info.Offset; r <= info.LastRow() && dead; r++ {
			if len(spillsAtSlot[r]) > 0 {
				dead = false
			}
		}
		if dead {
			instr.Block().Erase(instr)
		}
	}
}
