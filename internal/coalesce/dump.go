package coalesce

import "github.com/gpucc/spillcoalesce/internal/ir"

// DumpFunction logs every block's instructions at debug level, one structured
// entry per instruction. It is the structured-logging replacement for
// SpillCleanup.cpp's dumpKernel helper (spec.md 9): this module carries a
// logging library, so a debug dump is a log call, not a raw fmt.Fprintf.
func (p *Pass) DumpFunction(label string) {
	for _, bb := range p.fn.Blocks() {
		p.DumpRange(label, bb, bb.Front(), bb.Back())
	}
}

// DumpRange logs the instructions in bb from first to last inclusive (both
// may be nil, meaning an empty block), tagging each entry with label so
// before/after dumps around a stage are easy to tell apart in a log stream.
func (p *Pass) DumpRange(label string, bb *ir.BasicBlock, first, last *ir.Instruction) {
	if first == nil {
		p.log.WithField("label", label).WithField("block", bb.ID()).Debug("empty block")
		return
	}
	for instr := first; ; instr = instr.Next() {
		p.log.WithField("label", label).
			WithField("block", bb.ID()).
			WithField("kind", instr.Kind()).
			WithField("tag", instr.Tag()).
			Debug(instr.String())
		if instr == last || instr.Next() == nil {
			break
		}
	}
}
