// Package machine declares the external collaborators the coalescing pass
// treats as an oracle: machine constants, register-pressure estimation, and
// scratch message descriptor encoding. Per spec.md 1 these are out of
// scope for the pass itself; this package supplies small deterministic
// reference implementations so the pass can be exercised without a real
// back-end wired in, the same way wazero's isa/arm64 supplies concrete
// register info behind the ISA-generic regalloc.Function interface.
package machine

import "github.com/gpucc/spillcoalesce/internal/ir"

// Constants holds the statically-known, machine-specific parameters
// referenced throughout spec.md 4 and 6.
type Constants struct {
	// GRFRegNBytes is the size in bytes of one GPU register row.
	GRFRegNBytes int
	// DwordsPerRow is the number of 4-byte dwords per register row.
	DwordsPerRow int
	// MaxFillPayload and MaxSpillPayload are the legal widened payload
	// sizes in rows, defaulting to 4 per spec.md 6's tuning-knob table.
	MaxFillPayload  int
	MaxSpillPayload int
}

// DefaultConstants returns the reference machine constants used by tests and
// the CLI: 32-byte (8-dword) GRF rows, max fill/spill payload of 4 rows.
func DefaultConstants() Constants {
	return Constants{
		GRFRegNBytes:    32,
		DwordsPerRow:    8,
		MaxFillPayload:  4,
		MaxSpillPayload: 4,
	}
}

// LegalPayloadSize reports whether size is one of the hardware-supported
// scratch message payload widths: {1, 2, 4, 8} rows (spec.md 3, 8).
func LegalPayloadSize(size int) bool {
	switch size {
	case 1, 2, 4, 8:
		return true
	default:
		return false
	}
}

// PressureOracle is queried for the register pressure at a given
// instruction. The coalescing pass treats it as an opaque oracle per
// spec.md 1; it never tries to compute pressure itself.
type PressureOracle interface {
	Pressure(inst *ir.Instruction) uint32
}

// ConstantPressure is a PressureOracle that always reports the same value,
// useful for tests that don't care about pressure-driven window narrowing.
type ConstantPressure uint32

func (c ConstantPressure) Pressure(*ir.Instruction) uint32 { return uint32(c) }

// PerInstructionPressure is a PressureOracle backed by a precomputed table,
// as a real register-pressure estimator (out of scope per spec.md 1) would
// hand the pass after a single dataflow pass of its own.
type PerInstructionPressure map[*ir.Instruction]uint32

func (p PerInstructionPressure) Pressure(inst *ir.Instruction) uint32 { return p[inst] }

// ScratchDescriptor is the encoded form of a scratch message's payload size
// and offset, opaque to the coalescing pass beyond its existence: spec.md 6
// delegates descriptor encoding to a builder factory, the pass only needs
// to know a legal descriptor exists for the (size, offset) it selected.
type ScratchDescriptor uint32

// ScratchEncoder builds the hardware message descriptor for a scratch
// spill or fill of the given payload size (rows) and offset (rows).
type ScratchEncoder interface {
	Encode(payloadSize, offset int) ScratchDescriptor
}

// BitPackEncoder is a reference ScratchEncoder: offset in the low 16 bits,
// payload size (rows) in the next 8. Real hardware descriptor layouts vary
// by generation; this is intentionally just enough to round-trip in tests.
type BitPackEncoder struct{}

func (BitPackEncoder) Encode(payloadSize, offset int) ScratchDescriptor {
	return ScratchDescriptor(uint32(offset&0xffff) | uint32(payloadSize&0xff)<<16)
}
