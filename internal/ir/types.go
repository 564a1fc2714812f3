// Package ir defines the linear intermediate representation observed by the
// spill/fill coalescing pass: declarations (symbolic register ranges),
// operand regions referencing them, instructions, and basic blocks.
//
// The representation intentionally mirrors only what a spill/fill coalescer
// needs to see. Control-flow construction, register allocation proper, and
// the machine description live in sibling packages (coalesce, machine).
package ir

import "fmt"

// DataType is the operand element type. Only the handful of integer types
// that scratch messages and copies actually use are modeled.
type DataType byte

const (
	TypeInvalid DataType = iota
	TypeUB               // unsigned byte
	TypeUW               // unsigned word
	TypeUD               // unsigned dword
	TypeUQ               // unsigned qword
)

func (t DataType) String() string {
	switch t {
	case TypeUB:
		return "ub"
	case TypeUW:
		return "uw"
	case TypeUD:
		return "ud"
	case TypeUQ:
		return "uq"
	default:
		return "invalid"
	}
}

// AddrMode distinguishes a directly-addressed region from one addressed
// indirectly through an address register. Indirect regions are never
// produced or coalesced by this pass, only observed.
type AddrMode byte

const (
	Direct AddrMode = iota
	Indirect
)

// DeclKind tags why a Declaration exists, mirroring G4_Declare's DeclareType
// enum in the source compiler closely enough to drive do-not-spill and
// naming decisions without carrying its full taxonomy.
type DeclKind byte

const (
	DeclNormal DeclKind = iota
	DeclCoalescedSpill
	DeclCoalescedFill
	DeclCopy
)

func (k DeclKind) String() string {
	switch k {
	case DeclCoalescedSpill:
		return "coalesced-spill"
	case DeclCoalescedFill:
		return "coalesced-fill"
	case DeclCopy:
		return "copy"
	default:
		return "normal"
	}
}

// InstrKind is the tagged-variant discriminant for Instruction. Spill and
// fill share slot-info accessors (see Instruction.ScratchInfo) but are
// distinguished here because their operand directions differ: a spill reads
// a register and writes scratch, a fill does the reverse.
type InstrKind byte

const (
	KindOther InstrKind = iota
	KindSpill
	KindFill
	KindSend
	KindSplitSend
	KindPseudoKill
	KindLabel
	KindRawMov
)

func (k InstrKind) String() string {
	switch k {
	case KindSpill:
		return "spill"
	case KindFill:
		return "fill"
	case KindSend:
		return "send"
	case KindSplitSend:
		return "split-send"
	case KindPseudoKill:
		return "pseudo-kill"
	case KindLabel:
		return "label"
	case KindRawMov:
		return "mov"
	default:
		return "other"
	}
}

// SIMDWidth is the execution width used by cleanup-synthesized copies.
type SIMDWidth byte

const (
	SIMD8  SIMDWidth = 8
	SIMD16 SIMDWidth = 16
)

func (w SIMDWidth) String() string { return fmt.Sprintf("SIMD%d", byte(w)) }
