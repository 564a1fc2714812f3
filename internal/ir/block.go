package ir

// BasicBlock is an ordered sequence of instructions supporting insertion
// before an iterator and erasure at an iterator. An *Instruction doubles as
// its own iterator: erasing one yields the next (see Erase), and every
// other live *Instruction pointer into the block remains valid across
// unrelated edits, matching the "mutation while iterating" discipline
// spec.md 9 calls for.
type BasicBlock struct {
	id int

	// head and tail are sentinel nodes never exposed to callers; they let
	// InsertBefore/Erase avoid special-casing the ends of the list.
	head, tail *Instruction

	preds []*BasicBlock
	entry bool
}

// NewBasicBlock creates an empty block with the given id.
func NewBasicBlock(id int) *BasicBlock {
	head := &Instruction{kind: KindLabel, sentinel: true}
	tail := &Instruction{kind: KindLabel, sentinel: true}
	head.next = tail
	tail.prev = head
	b := &BasicBlock{id: id, head: head, tail: tail}
	head.block, tail.block = b, b
	return b
}

// ID returns the block's unique identifier.
func (b *BasicBlock) ID() int { return b.id }

// Entry reports whether this is the function's entry block.
func (b *BasicBlock) Entry() bool { return b.entry }

// SetEntry marks (or unmarks) this block as the function's entry block.
func (b *BasicBlock) SetEntry(v bool) { b.entry = v }

// Preds returns the block's predecessors in the CFG.
func (b *BasicBlock) Preds() []*BasicBlock { return b.preds }

// AddPred records pred as a predecessor of b.
func (b *BasicBlock) AddPred(pred *BasicBlock) { b.preds = append(b.preds, pred) }

// Front returns the first instruction in the block, or nil if empty.
func (b *BasicBlock) Front() *Instruction {
	if b.head.next == b.tail {
		return nil
	}
	return b.head.next
}

// Back returns the last instruction in the block, or nil if empty.
func (b *BasicBlock) Back() *Instruction {
	if b.tail.prev == b.head {
		return nil
	}
	return b.tail.prev
}

// Append inserts instr at the end of the block.
func (b *BasicBlock) Append(instr *Instruction) {
	b.insertBefore(b.tail, instr)
}

// InsertBefore splices instr into the block immediately before mark. If
// mark is nil, instr is appended at the end.
func (b *BasicBlock) InsertBefore(mark, instr *Instruction) {
	if mark == nil {
		mark = b.tail
	}
	b.insertBefore(mark, instr)
}

// InsertAfter splices instr into the block immediately after mark. If mark
// is nil, instr is inserted at the front.
func (b *BasicBlock) InsertAfter(mark, instr *Instruction) {
	if mark == nil {
		b.insertBefore(b.head.next, instr)
		return
	}
	b.insertBefore(mark.next, instr)
}

func (b *BasicBlock) insertBefore(mark, instr *Instruction) {
	prev := mark.prev
	instr.prev, instr.next = prev, mark
	prev.next = instr
	mark.prev = instr
	instr.block = b
}

// Erase removes instr from the block and returns the instruction that was
// its successor, or nil if instr was last. instr must not be used again
// after this call: its operands' ownership passes to the block container,
// which may reclaim them.
func (b *BasicBlock) Erase(instr *Instruction) *Instruction {
	prev, next := instr.prev, instr.next
	prev.next = next
	next.prev = prev
	instr.prev, instr.next, instr.block = nil, nil, nil
	if next.sentinel {
		return nil
	}
	return next
}

// Instructions returns every instruction in program order. Intended for
// tests and diagnostics; hot scanning paths should walk Front/Next
// directly to avoid the allocation.
func (b *BasicBlock) Instructions() []*Instruction {
	var out []*Instruction
	for i := b.Front(); i != nil; i = i.Next() {
		out = append(out, i)
	}
	return out
}

// Empty reports whether the block has no instructions.
func (b *BasicBlock) Empty() bool { return b.head.next == b.tail }
