package ir

// Region is an operand: a reference into a Declaration's register range,
// with the addressing detail a scratch message or a plain ALU/mov operand
// needs. Destination and source regions use the same struct; direction is
// implied by where the Instruction holds it.
type Region struct {
	Base         *Declaration
	RowOffset    int
	SubRegOffset int
	Stride       int
	Type         DataType
	Mode         AddrMode
	// NumRows is the number of consecutive rows this operand spans,
	// starting at RowOffset. Most ALU operands span a single row; send
	// payload operands (the ones S6 checks for overlap) may span several.
	NumRows int
	// Negate and AbsVal are source-only modifiers, carried through
	// substitution rewriting (S2's replaceCoalescedOperands) but otherwise
	// inert to this pass.
	Negate bool
	AbsVal bool
}

// NewRegion builds a directly-addressed region. Indirect regions (Mode ==
// Indirect) are constructed by IR producers upstream of this pass and only
// ever observed, never synthesized, by the coalescer.
func NewRegion(base *Declaration, rowOffset, subRegOffset, stride int, typ DataType) *Region {
	return &Region{Base: base, RowOffset: rowOffset, SubRegOffset: subRegOffset, Stride: stride, Type: typ, Mode: Direct, NumRows: 1}
}

// WithRows returns a copy of r spanning n consecutive rows starting at its
// RowOffset, for multi-row send payload operands.
func (r *Region) WithRows(n int) *Region {
	cp := *r
	cp.NumRows = n
	return &cp
}

// shifted returns a copy of r rebased onto decl at a row offset shifted by
// delta rows, preserving every other field. The substitution rewriter in
// package coalesce builds the same copy itself and does not call it.
func (r *Region) shifted(decl *Declaration, deltaRows int) *Region {
	cp := *r
	cp.Base = decl
	cp.RowOffset = r.RowOffset + deltaRows
	return &cp
}

// Dup returns a shallow copy of r, letting callers rebase a new region onto
// a different declaration without mutating the original operand in place.
func (r *Region) Dup() *Region {
	cp := *r
	return &cp
}

// TopDecl returns the declaration this region is based on, or nil if the
// region's base is not a declaration reference (e.g. an immediate or an
// indirect address-register operand). Per spec.md 7, substitution of such
// an operand is silently skipped rather than treated as an error.
func (r *Region) TopDecl() *Declaration {
	if r == nil {
		return nil
	}
	return r.Base
}

// MaskOption is the quarter-mask / write-enable predicate carried by wide
// SIMD instructions.
type MaskOption struct {
	// QuarterMask selects which quarter of the SIMD lanes the instruction
	// predicates on (0-3). Meaningless when WriteEnable is true.
	QuarterMask int
	WriteEnable bool
}

// Compatible reports whether two mask options may be coalesced into a
// single instruction: either both are write-enable (NoMask), or their
// quarter-masks are identical (spec.md 4.1).
func (m MaskOption) Compatible(o MaskOption) bool {
	if m.WriteEnable && o.WriteEnable {
		return true
	}
	return !m.WriteEnable && !o.WriteEnable && m.QuarterMask == o.QuarterMask
}

// ScratchInfo is the scratch-message metadata attached to spill and fill
// instructions: the base row offset in scratch memory and the payload size
// in rows. It is authoritative per spec.md 3's invariants: coalescing never
// reduces the memory region actually written or read.
type ScratchInfo struct {
	Offset int
	Size   int
	// Descriptor is the hardware message descriptor for this (Offset, Size)
	// pair, opaque to the IR itself (spec.md 6's ScratchEncoder collaborator
	// produces it; this field just carries it so a newly coalesced message
	// keeps a descriptor an emitter could read back). Zero when unset.
	Descriptor uint32
}

// LastRow returns the last scratch row (inclusive) touched by this message.
func (s ScratchInfo) LastRow() int { return s.Offset + s.Size - 1 }
