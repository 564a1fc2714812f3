package coalesce

import "github.com/gpucc/spillcoalesce/internal/ir"

// substEntry is the value half of the substitution map: a reference to the
// original declaration at row r is rewritten to reference Decl at row
// r+RowShift (spec.md 3).
type substEntry struct {
	Decl     *ir.Declaration
	RowShift int
}

// substitutionMap is single-valued per key and insert-only within a stage
// (spec.md 9, "multi-valued map"): a plain Go map suffices, no version
// counters are needed. S2 builds a fresh map for each block it scans and
// applies it to that block; S3 uses no substitution map.
type substitutionMap map[*ir.Declaration]substEntry

func (m substitutionMap) insert(orig *ir.Declaration, repl *ir.Declaration, rowShift int) {
	if _, ok := m[orig]; ok {
		// Insert-only within a stage: a second coalescing of the same
		// original declaration in the same stage would be a selector bug.
		invariant(false, "substitute", ErrUnknownIntrinsicKind, "declaration %s substituted twice in one stage", orig.Name())
	}
	m[orig] = substEntry{Decl: repl, RowShift: rowShift}
}

// declSet is a small set of declarations, used for the address-taken set
// and the non-scratch send-destination set (spec.md 3's auxiliary
// structures).
type declSet map[*ir.Declaration]struct{}

func (s declSet) add(d *ir.Declaration) {
	if d != nil {
		s[d] = struct{}{}
	}
}

func (s declSet) has(d *ir.Declaration) bool {
	if d == nil {
		return false
	}
	_, ok := s[d]
	return ok
}
