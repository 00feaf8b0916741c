// Package fragment defines the boundary types the core reads and partially
// writes but does not own the lifecycle of: Fragment (a translated basic
// block or trace) and LinkStub (per-exit metadata). The fragment metadata
// database itself — allocation, lookup by tag, eviction — is an external
// collaborator's responsibility (spec.md §1); this package only names the
// shape of the data that collaborator hands to decode/encode/stub/ibl.
package fragment

import "github.com/codecachelabs/dbtcore/xfer"

// Flags is a bitset of fragment-level properties.
type Flags uint16

const (
	// FlagIsTrace marks a trace (as opposed to a single basic block).
	FlagIsTrace Flags = 1 << iota
	// FlagIsShared marks a fragment reachable from multiple threads'
	// code caches (process-shared, per spec §5).
	FlagIsShared
	// FlagIsThumb marks a fragment translated in Thumb mode, for bi-modal
	// ISAs.
	FlagIsThumb
	// FlagIsCoarseGrain marks a fragment using the coarse-grain variant
	// (entrance stubs separated from bodies). Reserved: spec §9 treats
	// this as a future extension point, not implemented here (see
	// DESIGN.md).
	FlagIsCoarseGrain
)

func (f Flags) IsTrace() bool       { return f&FlagIsTrace != 0 }
func (f Flags) IsShared() bool      { return f&FlagIsShared != 0 }
func (f Flags) IsThumb() bool       { return f&FlagIsThumb != 0 }
func (f Flags) IsCoarseGrain() bool { return f&FlagIsCoarseGrain != 0 }

// FragmentKind derives the xfer.FragmentKind an IBL lookup from this
// fragment should use.
func (f Flags) FragmentKind() xfer.FragmentKind {
	if f.IsTrace() {
		return xfer.FragmentTrace
	}
	return xfer.FragmentBB
}

// Fragment is a translated basic block or trace resident in the code
// cache. The core reads Tag/StartPC/Flags/Exits and writes StartPC,
// PrefixSize, and the byte contents of each exit stub's body; it never
// allocates or frees a Fragment itself.
type Fragment struct {
	// Tag is the guest pc this fragment was translated from.
	Tag uint64
	// StartPC is the address, in the code cache, of the fragment's first
	// byte (the prefix, if PrefixSize > 0).
	StartPC uint64
	Flags   Flags
	// PrefixSize is the number of bytes of entry code that restore
	// scratch registers/flags spilled by the IBL before the translated
	// body runs.
	PrefixSize int
	// Exits lists the per-exit LinkStub metadata, in program order.
	Exits []*LinkStub
}

// LinkStubFlags is a bitset of per-exit properties.
type LinkStubFlags uint16

const (
	// LinkDirect marks a direct (as opposed to indirect) exit.
	LinkDirect LinkStubFlags = 1 << iota
	// LinkLinked marks an exit currently patched to jump straight to its
	// target fragment, rather than through its stub.
	LinkLinked
	// LinkTraceCmp marks a trace-exit comparison stub (used by trace
	// formation to detect a guessed-wrong branch outcome). Not exercised
	// by this core beyond carrying the flag; trace formation policy is
	// out of scope (spec §1).
	LinkTraceCmp
	// LinkFar marks a far (out-of-reach) link, patched via a data-slot
	// load rather than a direct pc-relative branch.
	LinkFar
)

func (f LinkStubFlags) IsDirect() bool   { return f&LinkDirect != 0 }
func (f LinkStubFlags) IsLinked() bool   { return f&LinkLinked != 0 }
func (f LinkStubFlags) IsTraceCmp() bool { return f&LinkTraceCmp != 0 }
func (f LinkStubFlags) IsFar() bool      { return f&LinkFar != 0 }

// LinkStub identifies one exit of a Fragment: the guest target it names,
// its flags, and (once emitted) the cache address of its stub.
type LinkStub struct {
	// TargetTag is the guest pc this exit names, when known statically
	// (direct exits always know it; indirect exits carry it only after
	// an IBL miss records it into the thread context).
	TargetTag uint64
	Flags     LinkStubFlags
	Branch    xfer.BranchType
	// StubPC is the cache address of this exit's stub body, once
	// insert_exit_stub has run. Zero until then.
	StubPC uint64
}
