package ir

import "fmt"

const maxSrcRegions = 4

// Instruction is a single node of a BasicBlock's doubly-linked instruction
// list. Only the fields the coalescing pass needs to read or rewrite are
// modeled; everything else about a "real" instruction (opcode-specific
// immediates, predicate registers, and so on) is out of scope.
type Instruction struct {
	kind InstrKind

	dst  *Region
	src  [maxSrcRegions]*Region
	nSrc int

	mask    MaskOption
	scratch *ScratchInfo // non-nil only for Spill/Fill

	// simdWidth is the execution width, needed by cleanup stages that
	// synthesize SIMD8/SIMD16 register copies.
	simdWidth SIMDWidth

	// splitSendSrc1 holds a split-send's second source operand; ordinary
	// sources live in src[0]. Modeled separately because split-send is the
	// only instruction kind S6 rewrites, and it has exactly two sources by
	// construction (header + payload).
	splitSendSrc1 *Region

	tag string // diagnostic source-location tag, never interpreted

	prev, next *Instruction
	block      *BasicBlock
	sentinel   bool // true only for a BasicBlock's internal head/tail markers
}

// Kind returns the instruction's tagged-variant discriminant.
func (i *Instruction) Kind() InstrKind { return i.kind }

func (i *Instruction) IsSpill() bool      { return i.kind == KindSpill }
func (i *Instruction) IsFill() bool       { return i.kind == KindFill }
func (i *Instruction) IsSend() bool       { return i.kind == KindSend || i.kind == KindSplitSend }
func (i *Instruction) IsSplitSend() bool  { return i.kind == KindSplitSend }
func (i *Instruction) IsPseudoKill() bool { return i.kind == KindPseudoKill }
func (i *Instruction) IsLabel() bool      { return i.kind == KindLabel }
func (i *Instruction) IsRawMov() bool     { return i.kind == KindRawMov }

// Dst returns the destination region, or nil if this instruction has none
// (e.g. a spill, whose effect is a scratch write rather than a register
// def).
func (i *Instruction) Dst() *Region { return i.dst }

// SetDst replaces the destination region in place, used by the
// substitution rewriter.
func (i *Instruction) SetDst(r *Region) { i.dst = r }

// Src returns the n'th source region, or nil if out of range.
func (i *Instruction) Src(n int) *Region {
	if n < 0 || n >= i.nSrc {
		return nil
	}
	return i.src[n]
}

// SetSrc replaces the n'th source region in place.
func (i *Instruction) SetSrc(n int, r *Region) {
	if n < 0 || n >= i.nSrc {
		panic(fmt.Sprintf("ir: SetSrc index %d out of range [0,%d)", n, i.nSrc))
	}
	i.src[n] = r
}

// NumSrc returns the number of source regions this instruction carries.
func (i *Instruction) NumSrc() int { return i.nSrc }

// SplitSendSrc1 returns the second source operand of a split-send
// instruction, or nil for any other kind.
func (i *Instruction) SplitSendSrc1() *Region { return i.splitSendSrc1 }

// SetSplitSendSrc1 rewrites the second source operand of a split-send, used
// by S6's overlap fix.
func (i *Instruction) SetSplitSendSrc1(r *Region) { i.splitSendSrc1 = r }

// Mask returns the instruction's mask option.
func (i *Instruction) Mask() MaskOption { return i.mask }

// SetMask replaces the instruction's mask option.
func (i *Instruction) SetMask(m MaskOption) { i.mask = m }

// ScratchInfo returns the scratch-message metadata for a spill or fill
// instruction. Panics for any other kind, mirroring the InternalInvariant
// semantics of spec.md 7 ("unknown intrinsic kind when querying scratch
// message info").
func (i *Instruction) ScratchInfo() ScratchInfo {
	if i.scratch == nil {
		panic(fmt.Sprintf("ir: ScratchInfo queried on non-spill/fill instruction %v", i.kind))
	}
	return *i.scratch
}

// SetScratchInfo replaces the scratch-message metadata of a spill or fill.
func (i *Instruction) SetScratchInfo(s ScratchInfo) { i.scratch = &s }

// SIMDWidth returns the execution width of this instruction.
func (i *Instruction) SIMDWidth() SIMDWidth { return i.simdWidth }

// Tag returns the diagnostic source-location tag, used only in logs.
func (i *Instruction) Tag() string { return i.tag }

// Prev returns the previous instruction in program order, or nil at the
// head of the block.
func (i *Instruction) Prev() *Instruction {
	if i.prev == nil || i.prev.sentinel {
		return nil
	}
	return i.prev
}

// Next returns the next instruction in program order, or nil at the tail of
// the block.
func (i *Instruction) Next() *Instruction {
	if i.next == nil || i.next.sentinel {
		return nil
	}
	return i.next
}

// Block returns the basic block this instruction currently belongs to.
func (i *Instruction) Block() *BasicBlock { return i.block }

// DefDecl returns the top declaration defined by this instruction, i.e. the
// declaration backing its destination region, or nil. Used by def-tracking
// in S4's cleanup window and by the send-destination scans of S1 and S3.
func (i *Instruction) DefDecl() *Declaration {
	return i.dst.TopDecl()
}

func (i *Instruction) String() string {
	return fmt.Sprintf("%s %q", i.kind, i.tag)
}
