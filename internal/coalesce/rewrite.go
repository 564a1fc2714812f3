package coalesce

import "github.com/gpucc/spillcoalesce/internal/ir"

// rewriteOperand rebuilds r referencing the substitution's replacement
// declaration at a shifted row offset, preserving every other field
// (subregister offset, stride, type, mode, modifiers). Returns r unchanged
// if its base is not a declaration reference, or has no substitution entry
// (spec.md 4.5, 7).
func rewriteOperand(r *ir.Region, subst substitutionMap) *ir.Region {
	decl := r.TopDecl()
	if decl == nil {
		return r
	}
	entry, ok := subst[decl]
	if !ok {
		return r
	}
	cp := *r
	cp.Base = entry.Decl
	cp.RowOffset = r.RowOffset + entry.RowShift
	return &cp
}

// replaceCoalescedOperands is the substitution rewriter (spec.md 4.5): a
// second linear pass over a block, applied once per stage after coalescing
// has populated subst. Any pseudo-kill whose destination declaration was
// remapped is now dead and is erased by the caller.
func replaceCoalescedOperands(inst *ir.Instruction, subst substitutionMap) {
	if d := inst.Dst(); d != nil {
		inst.SetDst(rewriteOperand(d, subst))
	}
	for n := 0; n < inst.NumSrc(); n++ {
		if s := inst.Src(n); s != nil {
			inst.SetSrc(n, rewriteOperand(s, subst))
		}
	}
	if s1 := inst.SplitSendSrc1(); s1 != nil {
		inst.SetSplitSendSrc1(rewriteOperand(s1, subst))
	}
}

// applySubstitution walks block top-down applying replaceCoalescedOperands
// to every instruction, deleting pseudo-kills whose declaration was
// remapped (spec.md 4.5).
func applySubstitution(block *ir.BasicBlock, subst substitutionMap) {
	if len(subst) == 0 {
		return
	}
	for instr := block.Front(); instr != nil; {
		next := instr.Next()
		if instr.IsPseudoKill() {
			if _, ok := subst[instr.DefDecl()]; ok {
				block.Erase(instr)
				instr = next
				continue
			}
		}
		replaceCoalescedOperands(instr, subst)
		instr = next
	}
}
