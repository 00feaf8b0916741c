// Package dcontext describes the layout of the per-thread context block
// that code-cache-resident code reaches through a reserved register (the
// "stolen register" convention: arm64 reserves x28, per
// original_source/core/arch/aarch64/aarch64.c's documented register
// allocation). It is the Go-side mirror of that block's field offsets,
// generalizing the teacher's wazevoapi.OffsetData (wazero's
// internal/engine/wazevo/wazevoapi/offsetdata.go — see
// _examples/faddat-wazero), which plays the same "offsets a code-cache
// port needs, without depending on the struct itself" role for wazevo's
// execution context.
package dcontext

import "github.com/codecachelabs/dbtcore/xfer"

// Offset is a byte offset into the per-thread context block.
type Offset int32

// U32 encodes an Offset as uint32 for convenience when composing machine
// instructions that take an immediate displacement.
func (o Offset) U32() uint32 { return uint32(o) }

// Fixed field offsets within the per-thread context block. A real
// deployment's context block is owned by the embedder (spec.md §1 names
// fragment/thread-state ownership as an external collaborator's
// responsibility, same as the fragment metadata database); these offsets
// are the ABI the code-cache-resident stubs and IBL routines are compiled
// against, so they are fixed here rather than computed at emit time.
const (
	// FcacheReturnOffset is the offset of the fcache_return entry point
	// pointer: the address unlinked exit stubs and IBL misses transfer
	// control to. Every ISA port's unlinked-stub and miss-path code reads
	// this field through its stolen/TLS register rather than taking the
	// address as a parameter, since the address is process-wide-fixed at
	// dispatcher startup but not known at stub-emission time (EmitStubUnlinked
	// itself takes no such address, see isa.Arch).
	FcacheReturnOffset Offset = 0
	// NextTagOffset is the offset of the "next fragment tag" scratch slot
	// an IBL miss records its target into before transferring to
	// fcache_return, so the dispatcher knows which guest pc to translate
	// or look up next (spec.md §3, IBL miss path).
	NextTagOffset Offset = 8
	// LastExitLinkStubOffset is the offset of a pointer-sized slot
	// recording which LinkStub a just-taken unlinked exit stub belongs to,
	// derived from the link register at the BLR into fcache_return (LR-8
	// is the stub's own code-cache address, looked up by the fragment
	// metadata collaborator).
	LastExitLinkStubOffset Offset = 16

	// iblTableBase is the start of the six (FragmentKind x BranchType)
	// table-slot records, each iblTableSlotSize bytes: a base pointer
	// followed by a pre-scaled mask (see IBLTableSlot).
	iblTableBase     Offset = 24
	iblTableSlotSize Offset = 16
)

// IBLTableSlot returns the per-thread context block offsets of the base
// pointer and mask for kind's IBL table. The mask is pre-scaled by the
// table's entry size (spec.md §3's hashtable uses 16-byte tag+target
// entries), so a single AND against a tag yields a ready-to-use byte
// offset into the table: see isa/arm64's EmitIBLRoutine for the consumer.
func IBLTableSlot(kind xfer.TableKind) (basePtr, mask Offset) {
	ordinal := Offset(kind.Fragment)*3 + Offset(kind.Branch)
	slot := iblTableBase + ordinal*iblTableSlotSize
	return slot, slot + 8
}
