package arm64

import (
	"encoding/binary"

	"github.com/codecachelabs/dbtcore/dcontext"
	"github.com/codecachelabs/dbtcore/fragment"
	"github.com/codecachelabs/dbtcore/ir"
)

// Exit stub layout (spec.md §4.4), fixed at stubSizeBytes regardless of
// link state so linking/unlinking never reallocates or moves a stub:
//
//	[0:4)   head0 — the single word EmitStubNearLinked/PatchBranch treat as
//	        atomically patchable.
//	[4:8)   head1 — second instruction, used by the unlinked and far-linked
//	        forms only (BLR/BR); a near-linked stub leaves it as whatever
//	        the unlinked form wrote, since head0 alone transfers control.
//	[8:16)  data slot — far-link target address, or (when unlinked) a
//	        diagnostic copy of the exit's statically-known target tag.
//	[16:24) reserved, NOP-filled.
const stubSizeBytes = 24

func (a *Arch) StubSize() int { return stubSizeBytes }

// EmitStubUnlinked writes: load fcache_return's address out of the
// thread's dcontext block (reached via the reserved dcontextReg) and call
// it, so the dispatcher can recover this stub's own address from the link
// register (LR-8: the BLR sits at offset 4, so LR holds stubPC+8) without
// EmitStubUnlinked needing to know fcache_return's
// address itself.
func (a *Arch) EmitStubUnlinked(dst []byte, ls *fragment.LinkStub) int {
	putWord(dst[0:4], ldrRegImm(x16, dcontextReg, uint32(dcontext.FcacheReturnOffset), true))
	putWord(dst[4:8], 0xD63F0000|regNum(x16)<<5) // BLR x16
	binary.LittleEndian.PutUint64(dst[8:16], ls.TargetTag)
	a.FillWithNops(dst[16:24])
	return stubSizeBytes
}

// EmitStubNearLinked overwrites head0 with a direct B to targetPC. This
// always produces exactly one patchable word.
func (a *Arch) EmitStubNearLinked(dst []byte, stubPC, targetPC uint64) int {
	disp := int64(targetPC) - int64(stubPC)
	imm26 := disp / 4
	putWord(dst[0:4], 0x14000000|(uint32(imm26)&maskBits(26)))
	return 4
}

// EmitStubFarLinked rewrites head0/head1 into an LDR-literal+BR sequence
// reading the target from the data slot at offset 8, and reports that
// offset so the caller can perform the data-slot-then-instruction write
// ordering the atomic patching contract requires (spec.md §4.4): the
// target address must be visible before the LDR that reads it is.
func (a *Arch) EmitStubFarLinked(dst []byte, stubPC uint64) (n, dataSlotOff int) {
	const slotOff = 8
	imm19 := int64(slotOff) / 4
	putWord(dst[0:4], 0x58000000|((uint32(imm19)&maskBits(19))<<5)|regNum(farLinkTemp))
	putWord(dst[4:8], 0xD61F0000|regNum(farLinkTemp)<<5) // BR x16
	return 8, slotOff
}

// unlinkedHead0 is the exact head0 word EmitStubUnlinked always produces;
// StubIsPatched compares against it to distinguish the unlinked form from
// either linked form without needing to fully decode the word.
var unlinkedHead0 = ldrRegImm(x16, dcontextReg, uint32(dcontext.FcacheReturnOffset), true)

// StubIsPatched reports whether stub's leading word currently encodes a
// linked (near or far) form rather than the unlinked form.
func (a *Arch) StubIsPatched(stub []byte) bool {
	return getWord(stub[0:4]) != unlinkedHead0
}

// FillWithNops pads dst with AArch64 NOPs (0xD503201F), which are
// single-instruction no-ops at every alignment since this port has no
// variable-width encoding to worry about.
func (a *Arch) FillWithNops(dst []byte) {
	for off := 0; off+4 <= len(dst); off += 4 {
		putWord(dst[off:off+4], 0xD503201F)
	}
}

// PatchBranch overwrites the direct branch at branchPC (assumed to already
// be a B, i.e. produced by EmitStubNearLinked or an earlier PatchBranch)
// so it targets targetPC. hotPatch only documents intent to the caller
// (codecache.Region.InvalidateICache performs the actual sync); this port
// does not invoke OS primitives itself.
func (a *Arch) PatchBranch(branch []byte, branchPC, targetPC uint64, hotPatch bool) error {
	disp := int64(targetPC) - int64(branchPC)
	imm26 := disp / 4
	putWord(branch[0:4], 0x14000000|(uint32(imm26)&maskBits(26)))
	return nil
}

// ExitCTIReaches reports whether a direct B from stubPC could reach
// targetPC: AArch64's B/BL immediate is a 26-bit word-granular signed
// displacement, giving a ±128MiB reach.
func (a *Arch) ExitCTIReaches(stubPC, targetPC uint64) bool {
	disp := int64(targetPC) - int64(stubPC)
	return disp%4 == 0 && fitsSigned(disp/4, 26)
}

// ldrRegImm encodes "LDR Xt/Wt, [Xn, #imm]" (unsigned-offset immediate
// form). imm is a byte displacement and must be a non-negative multiple of
// the access size.
func ldrRegImm(rt, rn ir.RegID, imm uint32, is64bit bool) uint32 {
	size := uint32(4)
	base := uint32(0xB9400000)
	if is64bit {
		size = 8
		base = 0xF9400000
	}
	imm12 := imm / size
	return base | (imm12 << 10) | (regNum(rn) << 5) | regNum(rt)
}
