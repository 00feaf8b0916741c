package riscv64

import (
	"encoding/binary"

	"github.com/codecachelabs/dbtcore/dcontext"
	"github.com/codecachelabs/dbtcore/fragment"
	"github.com/codecachelabs/dbtcore/ir"
)

// Exit stub layout (spec.md §4.4). Fixed at stubSizeBytes regardless of
// link state, like isa/arm64's, but 8 bytes longer (32 vs 24): RV64I has no
// single-instruction pc-relative load (AArch64's "LDR Xt, [PC, #imm]"), so
// reading the far-link data slot takes an AUIPC+LD pair before the JALR
// that actually transfers control, three words instead of arm64's two.
//
//	[0:4)   head0 — the word EmitStubNearLinked/PatchBranch/StubIsPatched
//	        treat as atomically patchable.
//	[4:8)   head1 — second instruction, used by the unlinked and
//	        far-linked forms.
//	[8:12)  head2 — third instruction, far-linked form only (JALR); the
//	        unlinked form leaves it nop-filled.
//	[12:16) reserved, NOP-filled (keeps the data slot 8-byte aligned).
//	[16:24) data slot — far-link target address, or (when unlinked) a
//	        diagnostic copy of the exit's statically-known target tag.
//	[24:32) reserved, NOP-filled.
const (
	stubSizeBytes = 32
	farDataSlotOff = 16
)

func (a *Arch) StubSize() int { return stubSizeBytes }

// EmitStubUnlinked writes: load fcache_return's address out of the
// thread's dcontext block (reached via the reserved dcontextReg) and jump
// to it, so the dispatcher can recover this stub's own address from the
// return address register (ra) without EmitStubUnlinked needing to know
// fcache_return's address itself. Grounded on emit_utils.c's
// insert_exit_stub unlinked path (the sd-to-TLS-slots-then-ld/jalr
// sequence), simplified the same way isa/arm64's EmitStubUnlinked is:
// via the reserved dcontextReg rather than the original's TLS-slot save
// of a0/a1 (this port carries no TLS-slot mechanism, see SPEC_FULL.md §C.2).
func (a *Arch) EmitStubUnlinked(dst []byte, ls *fragment.LinkStub) int {
	putWord(dst[0:4], ldImm(farLinkTemp, dcontextReg, uint32(dcontext.FcacheReturnOffset)))
	putWord(dst[4:8], jalrWord(ra, farLinkTemp, 0))
	a.FillWithNops(dst[8:16])
	binary.LittleEndian.PutUint64(dst[farDataSlotOff:farDataSlotOff+8], ls.TargetTag)
	a.FillWithNops(dst[24:32])
	return stubSizeBytes
}

// EmitStubNearLinked overwrites head0 with a plain JAL (rd=x0) to targetPC,
// grounded on emit_utils.c's patch_stub near-fragment path.
func (a *Arch) EmitStubNearLinked(dst []byte, stubPC, targetPC uint64) int {
	disp := int64(targetPC) - int64(stubPC)
	putWord(dst[0:4], jalWord(disp))
	return 4
}

// EmitStubFarLinked rewrites head0..head2 into an AUIPC+LD+JALR sequence
// reading the target from the data slot at farDataSlotOff, and reports
// that offset so the caller can perform the data-slot-then-instruction
// write ordering the atomic patching contract requires (spec.md §4.4).
// Grounded on emit_utils.c's patch_stub far-fragment path, which writes
// the target into the data slot directly (RISC-V's indirect branch has no
// analogue of arm64's single-instruction pc-relative literal load, so this
// port spends an extra word computing the slot's address before reading
// it).
func (a *Arch) EmitStubFarLinked(dst []byte, stubPC uint64) (n, dataSlotOff int) {
	putWord(dst[0:4], auipcWord(farLinkTemp, 0))
	putWord(dst[4:8], ldImm(farLinkTemp, farLinkTemp, farDataSlotOff))
	putWord(dst[8:12], jalrWord(x0, farLinkTemp, 0))
	return 12, farDataSlotOff
}

// unlinkedHead0 is the exact head0 word EmitStubUnlinked always produces;
// StubIsPatched compares against it, same approach as isa/arm64.
var unlinkedHead0 = ldImm(farLinkTemp, dcontextReg, uint32(dcontext.FcacheReturnOffset))

// StubIsPatched reports whether stub's leading word currently encodes a
// linked (near or far) form rather than the unlinked form. Grounded on
// emit_utils.c's stub_is_patched_for_intermediate_fragment_link (the
// `(enc&0xfff)==0x6f` JAL check) generalized to also recognize the far
// form's AUIPC head0, since this port checks head0's full identity rather
// than re-deriving stub_is_patched_for_far_fragment_link's separate data-
// slot read.
func (a *Arch) StubIsPatched(stub []byte) bool {
	return getWord(stub[0:4]) != unlinkedHead0
}

// FillWithNops pads dst with RV64I NOPs (0x00000013, "addi x0, x0, 0" —
// emit_utils.c's RAW_NOP_INST), single-instruction no-ops at every 4-byte
// alignment since this port has no variable-width encoding.
func (a *Arch) FillWithNops(dst []byte) {
	for off := 0; off+4 <= len(dst); off += 4 {
		putWord(dst[off:off+4], 0x00000013)
	}
}

// PatchBranch overwrites the direct jump at branchPC (assumed to already
// be a JAL, produced by EmitStubNearLinked or an earlier PatchBranch) so
// it targets targetPC, preserving its rd field. Grounded on emit_utils.c's
// patch_branch J-type case.
func (a *Arch) PatchBranch(branch []byte, branchPC, targetPC uint64, hotPatch bool) error {
	rd := getWord(branch[0:4]) & (0x1F << 7)
	disp := int64(targetPC) - int64(branchPC)
	putWord(branch[0:4], jalWord(disp)|rd)
	return nil
}

// ExitCTIReaches reports whether a direct JAL from stubPC could reach
// targetPC: JAL's immediate is a 21-bit word-pair-granular (even-byte)
// signed displacement, giving a ±1MiB reach. emit_utils.c's
// exit_cti_reaches_target instead checks the unsigned condition
// `off < 0x100000`, which only covers the forward half of that range; this
// port implements the full signed range the encoding format actually
// supports.
func (a *Arch) ExitCTIReaches(stubPC, targetPC uint64) bool {
	disp := int64(targetPC) - int64(stubPC)
	return disp%2 == 0 && fitsSigned(disp, 21)
}

// ldImm encodes "LD rd, imm(rs1)" (I-type load, funct3=3, 64-bit).
func ldImm(rd, rs1 ir.RegID, imm uint32) uint32 {
	return 0x03 | (regNum(rd) << 7) | (0x3 << 12) | (regNum(rs1) << 15) | ((imm & 0xFFF) << 20)
}

func jalrWord(rd, rs1 ir.RegID, imm12 uint32) uint32 {
	return 0x67 | (regNum(rd) << 7) | (regNum(rs1) << 15) | ((imm12 & 0xFFF) << 20)
}

func auipcWord(rd ir.RegID, imm20 uint32) uint32 {
	return 0x17 | (imm20 & 0xFFFFF000) | (regNum(rd) << 7)
}
