package ibl

import (
	"github.com/codecachelabs/dbtcore/isa"
	"github.com/codecachelabs/dbtcore/xfer"
)

// Routine is the hand-emitted, thread-shared lookup routine for one
// TableKind (spec.md §4.5), emitted once per process at startup. It is a
// thin bookkeeping wrapper around isa.Arch.EmitIBLRoutine: the actual bytes
// are produced entirely by the ISA port, since the routine's instruction
// sequence is architecture-specific machine code, not something this
// package could emit generically.
type Routine struct {
	Kind    xfer.TableKind
	EntryPC uint64
	Code    []byte
}

// EmitRoutine renders kind's lookup routine for arch into buf (which must
// be at least as large as the routine needs; callers size it against a
// codecache.Region allocated for gencode) starting at entryPC, with misses
// and sentinel wraps falling through to fcacheReturnPC.
func EmitRoutine(a isa.Arch, buf []byte, entryPC, fcacheReturnPC uint64, kind xfer.TableKind) *Routine {
	n := a.EmitIBLRoutine(buf, entryPC, fcacheReturnPC, kind)
	return &Routine{Kind: kind, EntryPC: entryPC, Code: buf[:n]}
}
