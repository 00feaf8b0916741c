package x86

import (
	"encoding/binary"

	"github.com/codecachelabs/dbtcore/dcontext"
	"github.com/codecachelabs/dbtcore/fragment"
)

// Exit stub layout, the same fixed-size/field-role shape as arm64's (see
// isa/arm64/stub.go's doc comment), re-encoded in x86-64 bytes. Unlike
// arm64's fixed 4-byte instruction width, x86's three stub forms each
// occupy a different prefix length (unlinked: 8 bytes; near-linked: 5;
// far-linked: 6), so head0 is sized to the widest of the three and the
// unused tail is always NOP-padded up to offset 16.
//
//	[0:8)   head0 — unlinked: "CALL *%fs:disp32" to fcache_return.
//	        near-linked: a 5-byte JMP rel32 to the target fragment.
//	        far-linked: a 6-byte rip-relative indirect JMP reading the
//	        data slot below.
//	[8:16)  reserved, NOP-filled.
//	[16:24) data slot — far-link target address, or (when unlinked) a
//	        diagnostic copy of the exit's statically-known target tag.
const stubSizeBytes = 24

func (a *Arch) StubSize() int { return stubSizeBytes }

// EmitStubUnlinked writes a %fs-relative CALL to fcache_return: the x86-64
// analogue of arm64's "load fcache_return out of the dcontext block through
// the reserved register and branch to it", grounded on original_source/
// core/arch/x86/opnd.c's SEG_TLS convention (see reg.go's segFS doc
// comment) rather than a stolen GPR. The emitted form is
// CALL *%fs:FcacheReturnOffset (FF /2 with a disp32 memory operand, 8 bytes,
// see putCallFSIndirect),
// so the dispatcher recovers this stub's own address the same way arm64's
// does: from the return address the call pushed, less the call's own
// length.
func (a *Arch) EmitStubUnlinked(dst []byte, ls *fragment.LinkStub) int {
	n := putCallFSIndirect(dst[0:8], uint32(dcontext.FcacheReturnOffset))
	a.FillWithNops(dst[n:16])
	binary.LittleEndian.PutUint64(dst[16:24], ls.TargetTag)
	return stubSizeBytes
}

// putCallFSIndirect writes "CALL *%fs:disp32" with a mandatory 0x64 %fs
// segment override prefix. mod=00/rm=101 alone means rip-relative in
// 64-bit mode, so a true base-less absolute-disp32 operand needs a SIB
// byte instead (mod=00, ModRM.rm=100 signals "SIB follows", and within the
// SIB itself base=101 with mod=00 means "no base, disp32 follows") —
// decodeModRM in this port refuses SIB forms since general indexed
// addressing is out of scope, but this routine hand-assembles the one SIB
// shape it needs without going through that decoder.
func putCallFSIndirect(dst []byte, disp uint32) int {
	dst[0] = 0x64 // %fs segment override
	dst[1] = 0xFF
	dst[2] = modRM(0, 2 /* /2 = CALL r/m */, 4) // rm=100: SIB follows
	dst[3] = 0x25                               // SIB: scale=00, index=100 (none), base=101 (none, disp32 follows)
	putU32(dst[4:8], disp)
	return 8
}

// EmitStubNearLinked overwrites head0 with a direct JMP rel32 to targetPC.
func (a *Arch) EmitStubNearLinked(dst []byte, stubPC, targetPC uint64) int {
	const instrLen = 5
	disp := int64(targetPC) - int64(stubPC) - instrLen
	dst[0] = 0xE9
	putU32(dst[1:5], uint32(int32(disp)))
	return instrLen
}

// EmitStubFarLinked rewrites head0 into a rip-relative indirect JMP reading
// the target from the data slot at offset 16 (this port folds the far-link
// data slot into the same slot EmitStubUnlinked uses for its diagnostic
// tag, since both are only live in mutually exclusive stub states) — the
// x86-64 analogue of arm64's LDR-literal+BR sequence, using the mod=00/
// rm=101 rip-relative ModRM form instead of a load-register instruction.
func (a *Arch) EmitStubFarLinked(dst []byte, stubPC uint64) (n, dataSlotOff int) {
	const slotOff = 16
	const instrLen = 6
	dst[0] = 0xFF
	dst[1] = modRM(0, 4 /* /4 = JMP r/m */, 5)
	disp := int64(slotOff) - int64(instrLen)
	putU32(dst[2:6], uint32(int32(disp)))
	return instrLen, slotOff
}

// StubIsPatched reports whether stub's head no longer encodes the unlinked
// %fs-indirect call (opcode byte 0x64, the segment override prefix).
func (a *Arch) StubIsPatched(stub []byte) bool {
	return stub[0] != 0x64
}

// FillWithNops pads dst with single-byte 0x90 NOPs: unlike arm64's fixed
// 4-byte instruction width, x86 has a true single-byte no-op so no
// alignment bookkeeping is needed.
func (a *Arch) FillWithNops(dst []byte) {
	for i := range dst {
		dst[i] = 0x90
	}
}

// PatchBranch overwrites the JMP rel32 at branchPC (produced by
// EmitStubNearLinked or an earlier PatchBranch) so it targets targetPC.
func (a *Arch) PatchBranch(branch []byte, branchPC, targetPC uint64, hotPatch bool) error {
	const instrLen = 5
	disp := int64(targetPC) - int64(branchPC) - instrLen
	branch[0] = 0xE9
	putU32(branch[1:5], uint32(int32(disp)))
	return nil
}

// ExitCTIReaches reports whether a direct JMP rel32 from stubPC could reach
// targetPC: x86-64's JMP/CALL rel32 gives a full ±2GiB reach, effectively
// unbounded for any code cache this port would realistically allocate, but
// the check is still exact rather than assumed.
func (a *Arch) ExitCTIReaches(stubPC, targetPC uint64) bool {
	const instrLen = 5
	disp := int64(targetPC) - int64(stubPC) - instrLen
	return fitsSigned32(disp)
}
