// Package isa declares the generic per-ISA port contract (spec.md §4.6)
// that the decode, encode, stub, and ibl packages drive. It generalizes
// the teacher's backend.Machine interface (SetCompilationContext/
// StartBlock/LowerInstr/EndBlock/Reset, in
// wazero's internal/engine/wazevo/backend/machine.go — see
// _examples/faddat-wazero) from "lower SSA to machine
// code" to "decode/encode/patch/dispatch machine code", since a DBT core
// runs in the opposite direction from a compiler backend: it starts from
// bytes, not from an SSA IR it is free to design.
package isa

import (
	"errors"

	"github.com/codecachelabs/dbtcore/fragment"
	"github.com/codecachelabs/dbtcore/ir"
	"github.com/codecachelabs/dbtcore/xfer"
)

// Sentinel errors surfaced by every port. decode/encode wrap these with
// %w so callers can errors.Is against them regardless of which port
// raised them.
var (
	// ErrInvalidOpcode is returned by Decode on an undefined byte
	// sequence within the ISA's defined encoding space.
	ErrInvalidOpcode = errors.New("isa: invalid opcode")
	// ErrUndefinedEncoding is returned by Decode for encoding space that
	// is open-ended (unassigned today, architectural tomorrow) rather
	// than simply malformed.
	ErrUndefinedEncoding = errors.New("isa: undefined encoding")
	// ErrNoTemplate is returned by Encode when no template in the
	// port's table matches the instruction's opcode/operand shape.
	ErrNoTemplate = errors.New("isa: no encoding template matches operands")
	// ErrUnreachable is returned by Encode when a pc-relative branch's
	// displacement does not fit its immediate width and the caller asked
	// for a hard failure (checkReach=true, no reachable-out reporting).
	ErrUnreachable = errors.New("isa: branch target unreachable")
	// ErrShortBuffer names a destination slice too short for the bytes
	// being written. No method returns it: the Emit* methods return only
	// a byte count and index dst directly, so a too-short dst panics.
	ErrShortBuffer = errors.New("isa: destination buffer too short")
)

// Arch is the contract one ISA port (isa/x86, isa/arm64, isa/riscv64)
// implements. A dbtcore deployment selects exactly one Arch per guest ISA
// it translates; nothing above this interface is ISA-specific.
type Arch interface {
	// Name identifies the port, e.g. "x86-64", "arm64", "riscv64".
	Name() string

	// Bimodal reports whether this ISA has more than one instruction
	// encoding mode selected by something other than a static choice
	// (ARM/Thumb). arm64 in this port set is not bimodal; x86 32/64-bit
	// selection is handled via ir.Mode but is not "bimodal" in the
	// spec's sense of an in-band mode-switch bit, so it also answers
	// false (see isa/x86.ModeX86ToX64 commentary in SPEC_FULL.md §C.3).
	Bimodal() bool

	// RegInfo returns the port's register canonicalization/size table.
	RegInfo() ir.RegInfo

	// Decode consumes bytes at pc (claiming to execute as if loaded at
	// pc; when staging decoded-then-recopied code, callers pass the
	// eventual execution address) and mode, and produces an IR
	// instruction. Returns the number of bytes consumed.
	Decode(pc uint64, mode ir.Mode, b []byte) (instr *ir.Instruction, length int, err error)

	// DecodeCTI is a fast variant that only fully decodes control
	// transfer instructions; for any other instruction it returns an
	// instruction populated with only Opcode=OpInvalid and raw bytes,
	// correct length, and a nil error — sufficient for length-only
	// scanning.
	DecodeCTI(pc uint64, mode ir.Mode, b []byte) (instr *ir.Instruction, length int, err error)

	// Encode emits i at copyPC, targeting execution at finalPC. When i
	// carries a pc-relative branch whose target is out of range,
	// checkReach=true makes Encode fail with ErrUnreachable; with
	// checkReach=false it still returns bytes (which do not reach the
	// target) and reports reachable=false with a nil error (see spec.md
	// §4.3). Encode never writes partial bytes on failure.
	Encode(i *ir.Instruction, copyPC, finalPC uint64, checkReach bool) (code []byte, reachable bool, err error)

	// FixedSize returns the byte length Encode would produce for i,
	// without requiring final addresses to be known yet. Used by the
	// encode package's first pass over a label-referencing instruction
	// list (spec.md §4.3, "Label targets").
	FixedSize(i *ir.Instruction) (int, error)

	// StubSize returns this port's fixed exit-stub size in bytes (spec
	// §4.4's "size budget"): large enough for the far-linked form plus
	// any data slot, so link/unlink never reallocates.
	StubSize() int

	// EmitStubUnlinked writes the unlinked form of an exit stub into
	// dst (len(dst) >= StubSize()): load fcache_return's address from the
	// dcontext block, transfer to it with a linking call (arm64 BLR, x86
	// CALL, riscv64 JALR ra), and store ls.TargetTag in the stub's data
	// slot. It spills no registers and does not materialize a pointer to
	// ls. Returns bytes written.
	EmitStubUnlinked(dst []byte, ls *fragment.LinkStub) int

	// EmitStubNearLinked overwrites a stub's leading branch to jump
	// directly to targetPC, given the stub is located at stubPC. Returns
	// bytes written: one 4-byte word on arm64 and riscv64, a 5-byte
	// JMP rel32 on x86-64.
	EmitStubNearLinked(dst []byte, stubPC, targetPC uint64) int

	// EmitStubFarLinked rewrites a stub's leading instruction into a
	// load-pc-from-data-slot form and reports the offset (within dst)
	// of the data slot that must receive the link target address before the
	// instruction is visible (see the atomic patching contract, spec
	// §4.4).
	EmitStubFarLinked(dst []byte, stubPC uint64) (n, dataSlotOff int)

	// StubIsPatched reports whether stub's leading word currently
	// encodes a linked (near or far) form rather than the unlinked form.
	StubIsPatched(stub []byte) bool

	// FillWithNops pads dst with single-byte-equivalent no-ops up to
	// len(dst).
	FillWithNops(dst []byte)

	// EmitIBLRoutine emits, once per (process, TableKind), the
	// hand-written lookup routine described in spec §4.5. entryPC is the
	// address the routine will execute from (needed for any pc-relative
	// addressing within the routine itself); fcacheReturnPC is the
	// runtime entry point the miss and sentinel paths jump to. Returns
	// bytes written.
	EmitIBLRoutine(dst []byte, entryPC, fcacheReturnPC uint64, kind xfer.TableKind) int

	// PatchBranch overwrites an already-emitted direct branch at branchPC
	// (the branch is the first thing at that address) so it targets
	// targetPC, following the same atomic-word contract as stub
	// patching. hotPatch requests an icache sync be considered necessary
	// by the caller (the port itself does not perform OS syscalls; see
	// codecache.Region.InvalidateICache).
	PatchBranch(branch []byte, branchPC, targetPC uint64, hotPatch bool) error

	// ExitCTIReaches reports whether a direct exit at stubPC could reach
	// targetPC with a near (non-data-slot) branch form.
	ExitCTIReaches(stubPC, targetPC uint64) bool
}
