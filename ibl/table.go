// Package ibl implements the indirect-branch-lookup hashtable (spec.md §3,
// §4.5): the runtime-side table_insert/table_lookup/table_delete
// collaborator functions the spec explicitly calls out as "collaborator
// code, not emitted" (spec.md §6), sitting underneath the per-ISA
// EmitIBLRoutine machine code that ports in isa/arm64 and isa/x86 hand-
// assemble. Table is the Go-side model of the array EmitIBLRoutine's
// emitted bytes address through dcontext.IBLTableSlot at runtime; this
// package never generates machine code itself.
package ibl

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/codecachelabs/dbtcore/xfer"
)

// ErrTableFull is returned by Insert when no empty or logically-deleted
// slot is found within capacity probes.
var ErrTableFull = errors.New("ibl: table full, no slot available for insert")

// sentinelTarget is the distinguished payload value the sentinel slot (at
// index mask+1) carries; a lookup that reaches a tag=0 entry whose target
// equals sentinelTarget is not a miss, it is a wrap instruction back to
// index 0 (spec.md §3: "the sentinel eliminates wrap logic").
const sentinelTarget uint64 = 1

// TargetDeleted marks a logically-deleted entry (spec.md §3's "Lifecycles":
// deletion rewrites target rather than freeing the slot). No real
// translation prefix ever equals this value since fragment bodies are
// never placed at the zero page.
const TargetDeleted uint64 = 0

// Entry is one (tag, target) slot. Both fields are pointer-sized per the
// spec's data model; this Go model uses uint64 guest/cache addresses
// directly rather than unsafe.Pointer since nothing here dereferences them
// as Go pointers.
type Entry struct {
	Tag    uint64
	Target uint64
}

// Table is one (FragmentKind x BranchType) IBL hashtable. Entry insertion
// and logical deletion are serialized by mu (the spec's "writer lock held
// by the collaborator", spec.md §5); lookups take no lock and tolerate a
// stale table, matching the spec's stated concurrency contract.
type Table struct {
	kind xfer.TableKind

	mu       sync.Mutex
	capacity int // mask+1; always a power of two

	base atomic.Pointer[[]Entry] // entries[0:capacity] are data slots, entries[capacity] is the sentinel
	mask atomic.Uint64
}

// NewTable allocates a table of kind with room for capacity live entries
// (rounded up to the next power of two) plus the fixed sentinel slot.
func NewTable(kind xfer.TableKind, capacity int) *Table {
	capacity = nextPow2(capacity)
	entries := make([]Entry, capacity+1)
	entries[capacity] = Entry{Tag: 0, Target: sentinelTarget}

	t := &Table{kind: kind, capacity: capacity}
	t.base.Store(&entries)
	t.mask.Store(uint64(capacity - 1))
	return t
}

func nextPow2(n int) int {
	if n < 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (t *Table) Kind() xfer.TableKind { return t.kind }
func (t *Table) Capacity() int        { return t.capacity }

// Lookup mirrors the emitted IBL routine's probe/wrap/hit/miss loop
// (spec.md §4.5): acquire-load the mask first, then the base, then linearly
// probe from tag&mask, wrapping through the sentinel exactly once. It
// returns (target, true) on a live hit, or (0, false) on either a plain
// miss or a logically-deleted entry — both cases the caller handles
// identically by falling back to fcache_return.
func (t *Table) Lookup(tag uint64) (target uint64, hit bool) {
	mask := t.mask.Load()
	entries := *t.base.Load()

	idx := tag & mask
	wrapped := false
	for {
		e := entries[idx]
		if e.Tag == 0 {
			if e.Target == sentinelTarget {
				if wrapped {
					// Every slot examined twice without a match: table is
					// pathologically small or entirely empty. Treat as miss.
					return 0, false
				}
				wrapped = true
				idx = 0
				continue
			}
			return 0, false // ordinary empty slot
		}
		if e.Tag == tag {
			if e.Target == TargetDeleted {
				return 0, false
			}
			return e.Target, true
		}
		idx++
		if idx > mask {
			idx = mask + 1 // lands on the sentinel slot, handled next iteration
		}
	}
}

// Insert writes (tag, target) into the first empty or logically-deleted
// slot found by linear probing from tag&mask, or updates the slot in place
// if tag is already present. Returns ErrTableFull if no such slot exists
// within one full pass over the table.
func (t *Table) Insert(tag, target uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	mask := t.mask.Load()
	entries := *t.base.Load()

	idx := tag & mask
	for probes := uint64(0); probes <= mask; probes++ {
		e := entries[idx]
		if e.Tag == 0 || e.Tag == tag || e.Target == TargetDeleted {
			entries[idx] = Entry{Tag: tag, Target: target}
			return nil
		}
		idx++
		if idx > mask {
			idx = 0
		}
	}
	return ErrTableFull
}

// Delete logically removes tag's entry by rewriting its target to
// TargetDeleted (spec.md §3's "target-delete" sentinel), leaving the slot
// occupied until a future resize. Reports whether tag was found.
func (t *Table) Delete(tag uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	mask := t.mask.Load()
	entries := *t.base.Load()

	idx := tag & mask
	for probes := uint64(0); probes <= mask; probes++ {
		e := entries[idx]
		if e.Tag == 0 {
			return false
		}
		if e.Tag == tag {
			entries[idx].Target = TargetDeleted
			return true
		}
		idx++
		if idx > mask {
			idx = 0
		}
	}
	return false
}
