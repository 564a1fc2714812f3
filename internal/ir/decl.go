package ir

// Declaration is a symbolic register range of known row count: the unit of
// register-allocator bookkeeping that the coalescer reasons about. Address
// of a Declaration is stable for the lifetime of the owning Function; the
// pass never frees a Declaration before the function itself goes away (see
// Function).
type Declaration struct {
	id   int
	name string

	// NumRows is the declaration's size in GRF rows.
	NumRows int
	Kind    DeclKind

	addressTaken bool
	doNotSpill   bool
	evenAligned  bool
	coalesced    bool // coalesced-by-allocator, set by register allocation proper, not by this pass
}

// ID returns the stable identifier assigned when the declaration was created.
func (d *Declaration) ID() int { return d.id }

// Name returns the declaration's diagnostic name.
func (d *Declaration) Name() string { return d.name }

// AddressTaken reports whether the declaration's address is used by
// indirect addressing. Such declarations can never be renamed or coalesced.
func (d *Declaration) AddressTaken() bool { return d.addressTaken }

// SetAddressTaken marks (or unmarks) the declaration as address-taken.
func (d *Declaration) SetAddressTaken(v bool) { d.addressTaken = v }

// DoNotSpill reports whether the declaration must never itself be chosen as
// a spill candidate. Coalesced spill and fill declarations are marked
// do-not-spill on creation; copy buffers (NewCopyDecl) are not.
func (d *Declaration) DoNotSpill() bool { return d.doNotSpill }

// SetDoNotSpill marks (or unmarks) the do-not-spill flag.
func (d *Declaration) SetDoNotSpill(v bool) { d.doNotSpill = v }

// EvenAligned reports whether the declaration requires its base register to
// start on an even boundary.
func (d *Declaration) EvenAligned() bool { return d.evenAligned }

// SetEvenAligned marks (or unmarks) the even-alignment requirement.
func (d *Declaration) SetEvenAligned(v bool) { d.evenAligned = v }

// CoalescedByAllocator reports whether register allocation proper (not this
// pass) already coalesced this declaration with another.
func (d *Declaration) CoalescedByAllocator() bool { return d.coalesced }

func (d *Declaration) String() string { return d.name }
