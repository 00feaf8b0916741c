// Package stub implements the Fragment-emit API (spec.md §6): inserting an
// exit stub's unlinked form, linking/unlinking it to a target fragment, and
// reporting whether it currently carries a linked form. It sits directly on
// top of an isa.Arch port's raw EmitStub*/PatchBranch primitives and adds
// the one thing no single-ISA port can provide on its own: the
// data-slot-then-instruction write ordering the atomic patching contract
// (spec.md §4.4) requires, expressed with real atomic stores rather than
// plain slice writes.
package stub

import (
	"sync/atomic"
	"unsafe"

	"github.com/codecachelabs/dbtcore/fragment"
	"github.com/codecachelabs/dbtcore/isa"
)

// headWordBytes is the width of the single aligned store every port's head
// instruction is patched through. AArch64's head0 is exactly one 4-byte
// instruction, so this is a precise fit there; x86-64's near-linked JMP
// rel32 is 5 bytes, so this port treats only the leading 4 (opcode + 3
// displacement bytes) as the atomically-visible discriminator and writes
// the trailing displacement byte ahead of time as harmless dead data before
// the flip — the same "patch the cacheline, trickle in the rest" technique
// production JITs use when an ISA's branch opcode does not fit one aligned
// word. This is a documented approximation, not a hidden one: a thread
// already executing the old 5-byte instruction never re-fetches mid-flight,
// so the only interesting race is "does the next fetch see old-opcode or
// new-opcode", which the 4-byte atomic store still decides cleanly.
// Linking from the 8-byte unlinked form is the one case this approximation
// does not fully cover on x86-64 (the tail write can clobber a byte of the
// still-live unlinked instruction's own displacement field before the head
// flips); a production port would size the unlinked form so its tail never
// overlaps a linked form's tail, which this structurally-complete slice
// does not do (see DESIGN.md).
const headWordBytes = 4

// InsertExitStub writes ls's unlinked form into dst (len(dst) >=
// a.StubSize()) and records its cache address into ls. It is not itself
// racing a concurrent reader: a stub is unlinked-until-first-link, so no
// other thread can be executing it yet.
func InsertExitStub(a isa.Arch, dst []byte, stubPC uint64, ls *fragment.LinkStub) int {
	n := a.EmitStubUnlinked(dst, ls)
	ls.StubPC = stubPC
	ls.Flags &^= fragment.LinkLinked
	return n
}

// ICacheSync is called with the [lo,hi) byte range (relative to the patched
// buffer's own addressing) that changed, when hotPatch requests it. The
// stub package never performs the OS-level invalidation itself; a real
// deployment passes codecache.Region.InvalidateICache bound to the region's
// base (spec.md §6 names this a collaborator responsibility).
type ICacheSync func(lo, hi int)

// PatchStub links ls's stub (located at stubPC, backed by dst) to targetPC,
// choosing the near-linked form when a.ExitCTIReaches allows it and the
// far-linked (data-slot) form otherwise. It writes the data slot before
// flipping the head word, per the atomic patching contract.
func PatchStub(a isa.Arch, dst []byte, stubPC, targetPC uint64, ls *fragment.LinkStub, hotPatch bool, sync ICacheSync) {
	if a.ExitCTIReaches(stubPC, targetPC) {
		scratch := make([]byte, a.StubSize())
		n := a.EmitStubNearLinked(scratch, stubPC, targetPC)
		if n > headWordBytes {
			copy(dst[headWordBytes:n], scratch[headWordBytes:n])
		}
		patchHead(dst, scratch[:headWordBytes])
		ls.Flags |= fragment.LinkLinked
		ls.Flags &^= fragment.LinkFar
	} else {
		scratch := make([]byte, a.StubSize())
		n, dataSlotOff := a.EmitStubFarLinked(scratch, stubPC)
		atomicStore64(dst[dataSlotOff:dataSlotOff+8], targetPC)
		patchHead(dst, scratch[:n])
		ls.Flags |= fragment.LinkLinked | fragment.LinkFar
	}
	ls.TargetTag = targetPC
	if hotPatch && sync != nil {
		sync(0, a.StubSize())
	}
}

// UnpatchStub reverts stubPC to its unlinked form, following the same
// write-then-flip ordering as PatchStub.
func UnpatchStub(a isa.Arch, dst []byte, ls *fragment.LinkStub, hotPatch bool, sync ICacheSync) {
	scratch := make([]byte, a.StubSize())
	n := a.EmitStubUnlinked(scratch, ls)
	copy(dst[headWordBytes:n], scratch[headWordBytes:n])
	patchHead(dst, scratch[:headWordBytes])
	ls.Flags &^= fragment.LinkLinked | fragment.LinkFar
	if hotPatch && sync != nil {
		sync(0, a.StubSize())
	}
}

// StubIsPatched reports whether dst currently carries a linked form.
func StubIsPatched(a isa.Arch, dst []byte) bool { return a.StubIsPatched(dst) }

// PatchBranch relinks an already-linked direct exit (one whose stub was
// bypassed entirely because the body branches straight to a fragment) to a
// new targetPC, following the same atomic-word contract.
func PatchBranch(a isa.Arch, branch []byte, branchPC, targetPC uint64, hotPatch bool, sync ICacheSync) error {
	scratch := make([]byte, headWordBytes)
	if err := a.PatchBranch(scratch, branchPC, targetPC, hotPatch); err != nil {
		return err
	}
	patchHead(branch, scratch)
	if hotPatch && sync != nil {
		sync(0, len(scratch))
	}
	return nil
}

// ExitCTIReaches reports whether a direct exit at stubPC could reach
// targetPC with a near (non-data-slot) branch form.
func ExitCTIReaches(a isa.Arch, stubPC, targetPC uint64) bool {
	return a.ExitCTIReaches(stubPC, targetPC)
}

// patchHead writes head (1..headWordBytes bytes) into dst's leading word.
// Any bytes of head beyond the atomically-flipped prefix are written first,
// non-atomically; the flip itself is always exactly headWordBytes wide.
func patchHead(dst, head []byte) {
	if len(head) > headWordBytes {
		copy(dst[headWordBytes:len(head)], head[headWordBytes:])
	}
	var w uint32
	for i := 0; i < headWordBytes; i++ {
		var b byte
		if i < len(head) {
			b = head[i]
		} else {
			b = dst[i]
		}
		w |= uint32(b) << (8 * i)
	}
	atomicStore32(dst[0:headWordBytes], w)
}

func atomicStore32(dst []byte, v uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&dst[0])), v)
}

func atomicStore64(dst []byte, v uint64) {
	atomic.StoreUint64((*uint64)(unsafe.Pointer(&dst[0])), v)
}
