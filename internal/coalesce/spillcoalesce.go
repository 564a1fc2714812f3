package coalesce

import (
	"sort"

	"github.com/gpucc/spillcoalesce/internal/ir"
)

// populateSendDstDcl is spec.md 4.9/4.2's send-destination set: every
// declaration defined by a plain send or split-send anywhere in the
// function. The set is stored on the Pass as sendDst; keepConsecutiveSpills
// does not consult it, so S3 groups spills without regard to whether their
// source rows come from a send.
func (p *Pass) populateSendDstDcl() {
	p.sendDst = declSet{}
	for _, bb := range p.fn.Blocks() {
		for instr := bb.Front(); instr != nil; instr = instr.Next() {
			if instr.IsSend() {
				p.sendDst.add(instr.DefDecl())
			}
		}
	}
}

// coalesceSpillsInFunction is S3 (spec.md 4.1, 4.2): group spills to
// consecutive scratch slots into one wider spill.
func (p *Pass) coalesceSpillsInFunction() {
	for _, bb := range p.fn.Blocks() {
		p.coalesceSpillsInBlock(bb)
	}
}

func (p *Pass) coalesceSpillsInBlock(bb *ir.BasicBlock) {
	var window []*ir.Instruction
	w := 0

	for instr := bb.Front(); instr != nil; {
		if instr.IsPseudoKill() || instr.IsLabel() {
			instr = instr.Next()
			continue
		}

		isLast := instr.Next() == nil
		closeNow := false

		switch {
		case instr.IsFill():
			// A fill reading from scratch rows an open spill group is about
			// to write closes the window early: spec.md 4.2 requires the
			// coalesced spill to preserve ordering against any fill of the
			// same memory.
			if overlapsAny(instr, window) {
				closeNow = true
			}
		case instr.IsSpill():
			// spec.md 3: address-taken declarations never appear as a
			// coalescing candidate, matching keepConsecutiveSpills'
			// upstream skip in the original (SpillCleanup.cpp:583-595).
			if p.addrTaken.has(instr.Src(1).TopDecl()) {
				break
			}
			if len(window) == 0 {
				w = 0
			}
			window = append(window, instr)
		}

		if len(window) > 0 && !closeNow {
			if p.pressure.Pressure(instr) > p.cfg.SpillWindowPressureThreshold && !allSameDecl(window) {
				if p.cfg.WindowSize-w > p.cfg.NarrowWindowSize {
					w = p.cfg.WindowSize - p.cfg.NarrowWindowSize
				}
			}
		}

		if closeNow || w >= p.cfg.WindowSize || isLast {
			after := instr.Next()
			if len(window) > 1 {
				p.analyzeSpillCoalescing(bb, window)
			}
			w, window = 0, nil
			if isLast {
				break
			}
			instr = after
			continue
		}

		if len(window) > 0 {
			w++
		}
		instr = instr.Next()
	}
}

func allSameDecl(window []*ir.Instruction) bool {
	if len(window) == 0 {
		return true
	}
	first := window[0].Src(1).TopDecl()
	for _, inst := range window[1:] {
		if inst.Src(1).TopDecl() != first {
			return false
		}
	}
	return true
}

func (p *Pass) analyzeSpillCoalescing(bb *ir.BasicBlock, window []*ir.Instruction) {
	group := keepConsecutiveSpills(window, p.constants.MaxSpillPayload, p.addrTaken)
	if len(group) <= 1 {
		return
	}
	p.coalesceSpills(bb, group)
}

// keepConsecutiveSpills is spec.md 4.2's candidate selector. Address-taken
// declarations are dropped from consideration up front (spec.md 3). Starting
// from the first remaining spill, the run is grown by repeatedly rescanning
// every not-yet-used candidate for one that extends either end of the
// current contiguous, mask-compatible range, restarting the scan after each
// successful extension — a later-seen candidate can extend an
// earlier-started group even when an intervening candidate didn't fit
// (spec.md 4.2 bullet 2; SpillCleanup.cpp:569-657's redo-loop). The result
// is then trimmed, by descending scratch offset, so its total span is
// exactly 2 or 4 rows (never 3, never more than the legal payload ceiling).
func keepConsecutiveSpills(window []*ir.Instruction, maxSpillPayload int, addrTaken declSet) []*ir.Instruction {
	var candidates []*ir.Instruction
	for _, inst := range window {
		if addrTaken.has(inst.Src(1).TopDecl()) {
			continue
		}
		candidates = append(candidates, inst)
	}
	if len(candidates) == 0 {
		return nil
	}

	used := map[*ir.Instruction]bool{candidates[0]: true}
	run := []*ir.Instruction{candidates[0]}
	mask := candidates[0].Mask()
	min := candidates[0].ScratchInfo().Offset
	max := candidates[0].ScratchInfo().LastRow()

	for {
		extended := false
		for _, inst := range candidates {
			if used[inst] || !mask.Compatible(inst.Mask()) {
				continue
			}
			info := inst.ScratchInfo()
			newMin, newMax := min, max
			switch {
			case info.Offset == max+1:
				newMax = info.LastRow()
			case info.LastRow() == min-1:
				newMin = info.Offset
			default:
				continue
			}
			if newMax-newMin+1 > maxSpillPayload {
				continue
			}
			used[inst] = true
			run = append(run, inst)
			min, max = newMin, newMax
			extended = true
			break
		}
		if !extended {
			break
		}
	}

	sort.Slice(run, func(i, j int) bool {
		return run[i].ScratchInfo().Offset < run[j].ScratchInfo().Offset
	})

	span := max - min + 1
	for span == 3 {
		run = run[:len(run)-1]
		if len(run) == 0 {
			return nil
		}
		max = run[len(run)-1].ScratchInfo().LastRow()
		span = max - min + 1
	}

	return run
}

// coalesceSpills emits one coalesced spill covering the group's scratch
// range. When every member's source row comes from the same declaration at
// a constant row offset, the new spill reads directly from it (spec.md
// 4.2's "single source" case); otherwise a fresh staging declaration is
// allocated and each member's value is copied into it with a row-width mov
// before the coalesced spill is emitted (the "staging" case).
func (p *Pass) coalesceSpills(bb *ir.BasicBlock, group []*ir.Instruction) {
	lead := group[0]
	min := lead.ScratchInfo().Offset
	last := group[len(group)-1]
	span := last.ScratchInfo().LastRow() - min + 1

	singleSrc, rowOffset := commonSpillSource(group)

	// group is sorted by scratch offset; the coalesced spill goes after
	// whichever member comes last in program order.
	members := map[*ir.Instruction]bool{}
	for _, m := range group {
		members[m] = true
	}
	insertAfter := lead
	for cur := bb.Front(); cur != nil; cur = cur.Next() {
		if members[cur] {
			insertAfter = cur
		}
	}

	var srcRegion *ir.Region
	if singleSrc != nil {
		srcRegion = ir.NewRegion(singleSrc, rowOffset, 0, 1, lead.Src(1).Type)
	} else {
		staging := p.fn.NewCoalescedSpillDecl(span)
		for _, m := range group {
			row := m.ScratchInfo().Offset - min
			dst := ir.NewRegion(staging, row, 0, 1, m.Src(1).Type)
			mv := p.fn.NewMov(dst, m.Src(1), m.SIMDWidth(), true, "spill-stage")
			bb.InsertAfter(insertAfter, mv)
			insertAfter = mv
		}
		srcRegion = ir.NewRegion(staging, 0, 0, 1, lead.Src(1).Type)
	}

	info := ir.ScratchInfo{Offset: min, Size: span, Descriptor: uint32(p.encoder.Encode(span, min))}
	newSpill := p.fn.NewSpill(lead.Src(0), srcRegion, info, lead.Mask(), lead.SIMDWidth(), "coalesced-spill")
	bb.InsertAfter(insertAfter, newSpill)

	// Spilling never defines a value another instruction can reference, so
	// unlike coalesceFills this has no substitution map to populate: the
	// group's members are simply superseded by newSpill.
	for _, m := range group {
		bb.Erase(m)
	}
}

// commonSpillSource reports the single declaration and row offset that
// every member of group's source operand would need, for the coalesced
// spill to read straight from it without a staging copy: each member's
// source must reference the same declaration at a row consistent with its
// position in the group.
func commonSpillSource(group []*ir.Instruction) (decl *ir.Declaration, rowOffset int) {
	lead := group[0].Src(1)
	base := lead.TopDecl()
	if base == nil {
		return nil, 0
	}
	baseOffset := group[0].ScratchInfo().Offset
	for _, m := range group {
		src := m.Src(1)
		if src.TopDecl() != base || src.SubRegOffset != 0 {
			return nil, 0
		}
		wantRow := lead.RowOffset + (m.ScratchInfo().Offset - baseOffset)
		if src.RowOffset != wantRow {
			return nil, 0
		}
	}
	return base, lead.RowOffset
}
