// Package coalesce implements the spill/fill coalescing pass: a six-stage,
// single-threaded, synchronous pipeline over a Function's basic blocks that
// rewrites clusters of small scratch spill/fill messages into fewer, wider
// ones, then cleans up the dead code that coalescing exposes.
//
// Stages run strictly in order (S1..S6); within a stage, blocks may be
// processed independently, and within a block instructions are scanned in
// the direction each stage documents. See spec.md for the full design.
package coalesce

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gpucc/spillcoalesce/internal/ir"
	"github.com/gpucc/spillcoalesce/internal/machine"
)

// Pass owns the external collaborators (spec.md 6) and per-function
// auxiliary state (spec.md 3) for one run over a Function. It holds no
// state across Run calls other than what a caller explicitly reuses by
// calling New again.
type Pass struct {
	fn        *ir.Function
	constants machine.Constants
	pressure  machine.PressureOracle
	encoder   machine.ScratchEncoder
	cfg       Config
	log       logrus.FieldLogger

	addrTaken declSet // computed once, never mutated by a stage
	sendDst   declSet // recomputed by S3 before each run (populateSendDstDcl)
}

// New builds a Pass over fn. pressure and encoder are the register-pressure
// oracle and scratch descriptor encoder spec.md 6 treats as collaborators;
// log may be nil, in which case diagnostics are discarded.
func New(fn *ir.Function, constants machine.Constants, pressure machine.PressureOracle, encoder machine.ScratchEncoder, cfg Config, log logrus.FieldLogger) *Pass {
	if log == nil {
		log = discardLogger()
	}
	return &Pass{
		fn:        fn,
		constants: constants,
		pressure:  pressure,
		encoder:   encoder,
		cfg:       cfg,
		log:       log,
		addrTaken: declSet{},
		sendDst:   declSet{},
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return l
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Run executes the six stages in order: S1 redundant-split-mov removal, S2
// fill coalescing, S3 spill coalescing, S4 spill/fill cleanup, S5
// redundant-write elimination, S6 send src-overlap fix. Any detected
// invariant violation (spec.md 7) is returned as an *InternalInvariantError
// instead of propagating as a panic.
func (p *Pass) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*InternalInvariantError); ok {
				err = ie
				return
			}
			panic(r)
		}
	}()

	p.computeAddressTakenDecls()
	p.DumpFunction("before")

	p.log.WithField("stage", "S1").Debug("removing redundant split movs")
	p.removeRedundantSplitMovs()

	p.log.WithField("stage", "S2").Debug("coalescing fills")
	p.coalesceFillsInFunction()

	p.log.WithField("stage", "S3").Debug("coalescing spills")
	p.populateSendDstDcl()
	p.coalesceSpillsInFunction()

	p.log.WithField("stage", "S4").Debug("spill/fill cleanup")
	p.spillFillCleanup()

	p.log.WithField("stage", "S5").Debug("removing redundant writes")
	p.removeRedundantWrites()

	p.log.WithField("stage", "S6").Debug("fixing send source overlaps")
	p.fixSendsSrcOverlap()

	p.DumpFunction("after")
	return nil
}

// computeAddressTakenDecls builds the address-taken declaration set
// (spec.md 9's computeAddressTakenDcls): every declaration flagged
// AddressTaken is recorded once, up front, and never coalesced.
func (p *Pass) computeAddressTakenDecls() {
	for _, d := range p.fn.Declarations() {
		if d.AddressTaken() {
			p.addrTaken.add(d)
		}
	}
}

func (p *Pass) String() string {
	return fmt.Sprintf("coalesce.Pass(%s)", p.fn.Name)
}
