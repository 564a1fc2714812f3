package coalesce

import (
	"github.com/gpucc/spillcoalesce/internal/ir"
	"github.com/gpucc/spillcoalesce/internal/machine"
)

// coalesceFillsInFunction is S2 (spec.md 4.1, 4.3, 4.4): group nearby
// fills from adjacent slots into one wider fill, rewriting their users via
// the substitution map.
func (p *Pass) coalesceFillsInFunction() {
	for _, bb := range p.fn.Blocks() {
		p.coalesceFillsInBlock(bb)
	}
}

func (p *Pass) coalesceFillsInBlock(bb *ir.BasicBlock) {
	subst := substitutionMap{}
	var window []*ir.Instruction
	var recentSpills []*ir.Instruction
	w := 0

	for instr := bb.Front(); instr != nil; {
		if instr.IsPseudoKill() || instr.IsLabel() {
			instr = instr.Next()
			continue
		}

		isLast := instr.Next() == nil

		switch {
		case instr.IsSpill():
			recentSpills = append(recentSpills, instr)
		case instr.IsFill():
			if len(window) == 0 {
				w = 0
				recentSpills = nil
			}
			if !overlapsAny(instr, recentSpills) {
				window = append(window, instr)
			}
		}

		if len(window) > 0 && p.pressure.Pressure(instr) > p.cfg.FillWindowPressureThreshold {
			if p.cfg.WindowSize-w > p.cfg.NarrowWindowSize {
				w = p.cfg.WindowSize - p.cfg.NarrowWindowSize
			}
		}

		if w >= p.cfg.WindowSize || isLast {
			after := instr.Next()
			if len(window) > 1 {
				p.analyzeFillCoalescing(bb, window, subst)
			}
			w, window, recentSpills = 0, nil, nil
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

	applySubstitution(bb, subst)
}

// analyzeFillCoalescing runs the candidate selector and heuristic over an
// open fill window, and emits a coalesced fill when both agree.
func (p *Pass) analyzeFillCoalescing(bb *ir.BasicBlock, window []*ir.Instruction, subst substitutionMap) {
	coalescable, min, max := sendsInRange(window, p.constants.MaxFillPayload)
	if !fillHeuristic(coalescable, p.constants.MaxFillPayload) {
		return
	}
	p.coalesceFills(bb, coalescable, min, max, subst)
}

// sendsInRange is the fill candidate selector (spec.md 4.3). window is
// scanned once in order; a fill joins coalescable if its scratch range
// lies within maxPayload-1 rows of the running [min,max] window, its mask
// is compatible with the lead instruction's, and (for any non-leading
// member) its destination has no even-alignment requirement.
func sendsInRange(window []*ir.Instruction, maxPayload int) (coalescable []*ir.Instruction, min, max int) {
	min, max = -1, -1
	var leadMask ir.MaskOption
	for idx, inst := range window {
		info := inst.ScratchInfo()
		last := info.LastRow()

		if idx == 0 {
			min, max = info.Offset, last
			leadMask = inst.Mask()
			coalescable = append(coalescable, inst)
			continue
		}

		maskOK := leadMask.Compatible(inst.Mask())
		dstAligned := false
		if d := inst.Dst().TopDecl(); d != nil {
			dstAligned = d.EvenAligned()
		}
		if !maskOK || dstAligned {
			continue
		}

		switch {
		case info.Offset <= min && (min-info.Offset) <= maxPayload-1 && (max-info.Offset) <= maxPayload-1:
			min = info.Offset
			if last > max {
				max = last
			}
			coalescable = append(coalescable, inst)
		case info.Offset >= max && (last-min) <= maxPayload-1 && (last-max) <= maxPayload-1:
			if last > max {
				max = last
			}
			coalescable = append(coalescable, inst)
		case info.Offset >= min && last <= max:
			coalescable = append(coalescable, inst)
		}
	}
	return
}

// fillHeuristic is spec.md 4.3's veto: even a legal coalescing group may
// not be worth materializing if it would enlarge a live range or produce a
// poorly-utilized payload.
func fillHeuristic(group []*ir.Instruction, maxFillPayload int) bool {
	if len(group) <= 1 {
		return false
	}

	min, max := -1, -1
	bits := make([]bool, maxFillPayload)
	rowsByDecl := map[*ir.Declaration]map[int]bool{}

	for _, inst := range group {
		info := inst.ScratchInfo()
		if info.Size == 8 {
			return false
		}
		decl := inst.Dst().TopDecl()
		if decl != nil && decl.AddressTaken() {
			return false
		}

		if min == -1 || info.Offset < min {
			min = info.Offset
		}
		if last := info.LastRow(); last > max {
			max = last
		}

		if decl != nil {
			rows := rowsByDecl[decl]
			if rows == nil {
				rows = map[int]bool{}
				rowsByDecl[decl] = rows
			}
			regOff := inst.Dst().RowOffset
			for r := regOff; r < regOff+info.Size; r++ {
				rows[r] = true
			}
		}
	}

	for decl, rows := range rowsByDecl {
		for r := 0; r < decl.NumRows; r++ {
			if !rows[r] {
				return false
			}
		}
	}

	for _, inst := range group {
		info := inst.ScratchInfo()
		for r := info.Offset; r <= info.LastRow(); r++ {
			if i := r - min; i >= 0 && i < len(bits) {
				bits[i] = true
			}
		}
	}

	if max-min <= 3 && len(bits) >= 4 {
		if bits[0] != bits[1] && bits[2] != bits[3] {
			return false // 1010 / 0101
		}
		if (bits[0] && bits[3]) && !(bits[1] || bits[2]) {
			return false // 1001
		}
	}

	return true
}

// roundPayload rounds a row span up to a legal scratch message payload size
// (spec.md 3: {1,2,4,8}).
func roundPayload(size int) int {
	switch {
	case size <= 1:
		return 1
	case size <= 2:
		return 2
	case size <= 4:
		return 4
	default:
		return 8
	}
}

// coalesceFills emits one coalesced fill covering [min,max] in place of the
// group's members, and records a substitution entry redirecting every row
// each member's original declaration exposed into the new declaration's
// corresponding row (spec.md 4.4).
func (p *Pass) coalesceFills(bb *ir.BasicBlock, group []*ir.Instruction, min, max int, subst substitutionMap) {
	span := max - min + 1
	payloadSize := roundPayload(span)
	invariant(machine.LegalPayloadSize(payloadSize), "S2", ErrUnsupportedPayloadSize, "coalesced fill payload size %d is illegal", payloadSize)

	lead := group[0]
	newDecl := p.fn.NewCoalescedFillDecl(payloadSize, lead.Dst().TopDecl().EvenAligned())

	newDst := ir.NewRegion(newDecl, 0, 0, 1, lead.Dst().Type)
	header := lead.Src(0)
	info := ir.ScratchInfo{Offset: min, Size: payloadSize, Descriptor: uint32(p.encoder.Encode(payloadSize, min))}
	newFill := p.fn.NewFill(header, newDst, info, lead.Mask(), lead.SIMDWidth(), "coalesced-fill")

	// Several group members may target the same original declaration (its
	// rows were split across multiple single-row fills); substitute it once,
	// at the row shift implied by its first-seen member. That shift must
	// agree across every member of the same declaration, since it is a
	// single constant added to every reference's row offset (spec.md 3).
	seen := map[*ir.Declaration]int{}
	for _, m := range group {
		decl := m.Dst().TopDecl()
		if decl == nil {
			continue
		}
		rowShift := m.ScratchInfo().Offset - min - m.Dst().RowOffset
		if want, ok := seen[decl]; ok {
			invariant(want == rowShift, "S2", ErrUnknownIntrinsicKind, "inconsistent row shift coalescing declaration %s", decl.Name())
			continue
		}
		seen[decl] = rowShift
		subst.insert(decl, newDecl, rowShift)
	}

	bb.InsertAfter(lead, newFill)
	for _, m := range group {
		bb.Erase(m)
	}
}
