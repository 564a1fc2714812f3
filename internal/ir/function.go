package ir

import "fmt"

// Function is the arena owning every Declaration and BasicBlock created for
// one compiled shader. Nothing is freed before the Function itself goes
// out of scope; the pass relies on that to hold plain pointers rather than
// generation-checked handles (see DESIGN.md).
type Function struct {
	Name   string
	blocks []*BasicBlock
	decls  []*Declaration
}

// NewFunction creates an empty function.
func NewFunction(name string) *Function {
	return &Function{Name: name}
}

// Blocks returns every basic block in the function, in the order they were
// added.
func (f *Function) Blocks() []*BasicBlock { return f.blocks }

// Declarations returns every declaration allocated in the function so far.
func (f *Function) Declarations() []*Declaration { return f.decls }

// AddBlock creates and registers a new basic block.
func (f *Function) AddBlock() *BasicBlock {
	b := NewBasicBlock(len(f.blocks))
	f.blocks = append(f.blocks, b)
	return b
}

// NewDeclaration allocates a fresh, normal declaration of the given row
// count and diagnostic name.
func (f *Function) NewDeclaration(name string, numRows int) *Declaration {
	d := &Declaration{id: len(f.decls), name: name, NumRows: numRows, Kind: DeclNormal}
	f.decls = append(f.decls, d)
	return d
}

// NewCoalescedSpillDecl allocates a do-not-spill staging declaration for a
// coalesced spill, named COAL_SPILL_<n> per spec.md 6.
func (f *Function) NewCoalescedSpillDecl(numRows int) *Declaration {
	d := f.NewDeclaration(fmt.Sprintf("COAL_SPILL_%d", len(f.decls)), numRows)
	d.Kind = DeclCoalescedSpill
	d.doNotSpill = true
	return d
}

// NewCoalescedFillDecl allocates a fresh destination declaration for a
// coalesced fill, named COAL_FILL_<n> per spec.md 6.
func (f *Function) NewCoalescedFillDecl(numRows int, evenAligned bool) *Declaration {
	d := f.NewDeclaration(fmt.Sprintf("COAL_FILL_%d", len(f.decls)), numRows)
	d.Kind = DeclCoalescedFill
	d.doNotSpill = true
	d.evenAligned = evenAligned
	return d
}

// NewCopyDecl allocates a plain declaration used to break a split-send
// source overlap, named COPY_<n> per spec.md 6.
func (f *Function) NewCopyDecl(numRows int) *Declaration {
	d := f.NewDeclaration(fmt.Sprintf("COPY_%d", len(f.decls)), numRows)
	d.Kind = DeclCopy
	return d
}

// NewInstr allocates a bare instruction of the given kind, unattached to
// any block until Append/InsertBefore/InsertAfter places it.
func (f *Function) NewInstr(kind InstrKind) *Instruction {
	return &Instruction{kind: kind, simdWidth: SIMD8}
}

// NewSpill builds a spill instruction: writes src (the value row(s) being
// spilled) to scratch offset/size described by info. header is the message
// header region (typically r0); it is tracked as src(0), with the payload
// as src(1), matching the original compiler's send operand convention.
func (f *Function) NewSpill(header, src *Region, info ScratchInfo, mask MaskOption, width SIMDWidth, tag string) *Instruction {
	i := f.NewInstr(KindSpill)
	i.src[0], i.src[1] = header, src
	i.nSrc = 2
	i.scratch = &info
	i.mask = mask
	i.simdWidth = width
	i.tag = tag
	return i
}

// NewFill builds a fill instruction: reads scratch offset/size described by
// info into dst. header is the message header region (typically r0),
// tracked as src(0).
func (f *Function) NewFill(header *Region, dst *Region, info ScratchInfo, mask MaskOption, width SIMDWidth, tag string) *Instruction {
	i := f.NewInstr(KindFill)
	i.dst = dst
	i.src[0] = header
	i.nSrc = 1
	i.scratch = &info
	i.mask = mask
	i.simdWidth = width
	i.tag = tag
	return i
}

// NewMov builds a register-to-register move of the given width. IsRawMov
// reports true for the result; S1 looks specifically for this shape.
func (f *Function) NewMov(dst, src *Region, width SIMDWidth, writeEnable bool, tag string) *Instruction {
	i := f.NewInstr(KindRawMov)
	i.dst = dst
	i.src[0] = src
	i.nSrc = 1
	i.simdWidth = width
	i.mask = MaskOption{WriteEnable: writeEnable}
	i.tag = tag
	return i
}

// NewSplitSend builds a split-send instruction with header, and two payload
// sources (src0, src1). S6 is the only stage that ever rewrites src1.
func (f *Function) NewSplitSend(dst, header, src0, src1 *Region, tag string) *Instruction {
	i := f.NewInstr(KindSplitSend)
	i.dst = dst
	i.src[0] = src0
	i.nSrc = 1
	_ = header // header is carried on src0 by convention of the caller's region construction
	i.splitSendSrc1 = src1
	i.mask = MaskOption{WriteEnable: true}
	i.tag = tag
	return i
}

// NewSend builds a plain (non-split) send instruction, used to mark
// declarations defined by non-scratch sends (spec.md 4.9's send-dst set).
func (f *Function) NewSend(dst, src0 *Region, tag string) *Instruction {
	i := f.NewInstr(KindSend)
	i.dst = dst
	i.src[0] = src0
	i.nSrc = 1
	i.mask = MaskOption{WriteEnable: true}
	i.tag = tag
	return i
}

// NewPseudoKill builds a pseudo-kill marker for decl, a liveness hint
// deleted whenever decl's references are rewritten away by coalescing.
func (f *Function) NewPseudoKill(decl *Declaration, tag string) *Instruction {
	i := f.NewInstr(KindPseudoKill)
	i.dst = NewRegion(decl, 0, 0, 1, TypeUD)
	i.tag = tag
	return i
}
