package coalesce

import "github.com/gpucc/spillcoalesce/internal/ir"

// nonScratchSendDecls returns the set of declarations defined by plain
// (non-spill, non-fill) send instructions within block, the candidates
// removeRedundantSplitMovs may fold a spill's source back to (spec.md 4.9).
func nonScratchSendDecls(block *ir.BasicBlock) declSet {
	set := declSet{}
	for instr := block.Front(); instr != nil; instr = instr.Next() {
		if instr.Kind() == ir.KindSend {
			set.add(instr.DefDecl())
		}
	}
	return set
}

// countUses returns how many source operands across the whole function
// still reference decl. removeRedundantSplitMovs uses this, after
// rewiring a spill away from decl, to decide whether the movs that used to
// feed it are now genuinely dead (spec.md 4.9: "a reference count of uses
// is computed after the rewrite").
func countUses(fn *ir.Function, decl *ir.Declaration) int {
	n := 0
	for _, bb := range fn.Blocks() {
		for instr := bb.Front(); instr != nil; instr = instr.Next() {
			for s := 0; s < instr.NumSrc(); s++ {
				if instr.Src(s).TopDecl() == decl {
					n++
				}
			}
			if instr.SplitSendSrc1().TopDecl() == decl {
				n++
			}
		}
	}
	return n
}

// removeRedundantSplitMovs is S1 (spec.md 4.9). For each spill, it walks
// backward collecting a contiguous run of raw moves that together define
// every row of the spill's payload declaration from a single declaration
// produced by a non-scratch send in the same block, via a pure row
// translation. When found, the spill's source is rewritten to reference
// that send's destination directly, and the moves are erased once they
// have no remaining uses.
func (p *Pass) removeRedundantSplitMovs() {
	for _, bb := range p.fn.Blocks() {
		sendDst := nonScratchSendDecls(bb)
		for instr := bb.Front(); instr != nil; instr = instr.Next() {
			if !instr.IsSpill() {
				continue
			}
			p.foldSplitMovsIntoSpill(bb, instr, sendDst)
		}
	}
}

type movCandidate struct {
	instr  *ir.Instruction
	dstRow int
}

func (p *Pass) foldSplitMovsIntoSpill(bb *ir.BasicBlock, spill *ir.Instruction, sendDst declSet) {
	payload := spill.Src(1)
	decl := payload.TopDecl()
	if decl == nil {
		return
	}

	var (
		candidates []movCandidate
		commonSrc  *ir.Declaration
		rowOffset  int // srcRow - dstRow, constant across all candidates
		haveOffset bool
		covered    = make(map[int]bool, decl.NumRows)
	)

	for cur := spill.Prev(); cur != nil; cur = cur.Prev() {
		if !cur.IsRawMov() {
			break
		}
		dst := cur.Dst()
		src := cur.Src(0)
		if dst.TopDecl() != decl || src == nil || src.SubRegOffset != 0 || dst.SubRegOffset != 0 {
			break
		}
		srcDecl := src.TopDecl()
		if srcDecl == nil {
			break
		}
		if commonSrc == nil {
			commonSrc = srcDecl
		} else if srcDecl != commonSrc {
			break
		}
		delta := src.RowOffset - dst.RowOffset
		if !haveOffset {
			rowOffset, haveOffset = delta, true
		} else if delta != rowOffset {
			break
		}
		candidates = append(candidates, movCandidate{instr: cur, dstRow: dst.RowOffset})
		covered[dst.RowOffset] = true
	}

	if commonSrc == nil || !sendDst.has(commonSrc) {
		return
	}
	for r := 0; r < decl.NumRows; r++ {
		if !covered[r] {
			return
		}
	}

	newSrc := payload.Dup()
	newSrc.Base = commonSrc
	newSrc.RowOffset = payload.RowOffset + rowOffset
	spill.SetSrc(1, newSrc)

	for _, c := range candidates {
		if countUses(p.fn, decl) == 0 && !decl.AddressTaken() {
			bb.Erase(c.instr)
		}
	}
}
