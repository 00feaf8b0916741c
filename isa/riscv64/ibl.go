package riscv64

import (
	"github.com/codecachelabs/dbtcore/dcontext"
	"github.com/codecachelabs/dbtcore/ir"
	"github.com/codecachelabs/dbtcore/xfer"
)

// EmitIBLRoutine hand-assembles the lookup routine described in spec.md
// §4.5. original_source/core/arch/riscv64/emit_utils.c has no working
// emit_indirect_branch_lookup to port (that function, and every
// append_ibl_routine_and_clean_call helper it would call, is NYI upstream
// — see DESIGN.md); this is this port's own construction, following the
// same probe/wrap/hit/miss shape as isa/arm64's EmitIBLRoutine but in the
// RV64I idiom (no CBZ: a zero-tag test is a BEQ against x0; no single
// "MOV" instruction: register moves are ADDI rd, rs, 0).
//
// Registers: a0 (x10) holds the tag to look up on entry and the resolved
// target on a hit exit. dcontextReg (x27) is the reserved dcontext-pointer
// register. t0-t5 (x5-x7, x28-x30) are clobbered, all RISC-V calling
// convention caller-saved temporaries.
func (a *Arch) EmitIBLRoutine(dst []byte, entryPC, fcacheReturnPC uint64, kind xfer.TableKind) int {
	basePtrOff, maskOff := dcontext.IBLTableSlot(kind)

	const (
		tag  = x10 // a0
		base = x5  // t0
		mask = x6  // t1
		ent  = x7  // t2
		end  = x28 // t3
		ptag = x29 // t4
		tgt  = x30 // t5

		offLoadBase = 0
		offLoadMask = 4
		offAndIdx   = 8
		offAddEnt   = 12
		offAddEnd   = 16
		offProbe    = 20
		offBeqHit   = 24
		offBeqMiss  = 28
		offBeqWrap  = 32
		offAdvance  = 36
		offJProbe1  = 40
		offWrap     = 44
		offJProbe2  = 48
		offHit      = 52
		offMovTgt   = 56
		offJALR     = 60
		offMiss     = 64
		offJRet     = 68
		routineLen  = 72
	)

	putWord(dst[offLoadBase:offLoadBase+4], ldImm(base, dcontextReg, uint32(basePtrOff)))
	putWord(dst[offLoadMask:offLoadMask+4], ldImm(mask, dcontextReg, uint32(maskOff)))
	putWord(dst[offAndIdx:offAndIdx+4], andRaw(ent, tag, mask))
	putWord(dst[offAddEnt:offAddEnt+4], addRaw(ent, base, ent))
	putWord(dst[offAddEnd:offAddEnd+4], addRaw(end, base, mask))

	putWord(dst[offProbe:offProbe+4], ldImm(ptag, ent, 0))
	putWord(dst[offBeqHit:offBeqHit+4], beqRaw(ptag, tag, offHit-offBeqHit))
	putWord(dst[offBeqMiss:offBeqMiss+4], beqRaw(ptag, x0, offMiss-offBeqMiss))
	putWord(dst[offBeqWrap:offBeqWrap+4], beqRaw(ent, end, offWrap-offBeqWrap))
	putWord(dst[offAdvance:offAdvance+4], addiRaw(ent, ent, 16))
	putWord(dst[offJProbe1:offJProbe1+4], jalWord(int64(offProbe-offJProbe1)))

	putWord(dst[offWrap:offWrap+4], addiRaw(ent, base, 0)) // mv ent, base
	putWord(dst[offJProbe2:offJProbe2+4], jalWord(int64(offProbe-offJProbe2)))

	putWord(dst[offHit:offHit+4], ldImm(tgt, ent, 8))
	putWord(dst[offMovTgt:offMovTgt+4], addiRaw(tag, tgt, 0)) // mv a0, t5
	putWord(dst[offJALR:offJALR+4], jalrWord(x0, tag, 0))

	putWord(dst[offMiss:offMiss+4], sdImm(tag, dcontextReg, uint32(dcontext.NextTagOffset)))
	disp := int64(fcacheReturnPC) - int64(entryPC+offJRet)
	putWord(dst[offJRet:offJRet+4], jalWord(disp))

	return routineLen
}

func andRaw(rd, rs1, rs2 ir.RegID) uint32 {
	return 0x33 | (regNum(rd) << 7) | (0x7 << 12) | (regNum(rs1) << 15) | (regNum(rs2) << 20)
}
func addRaw(rd, rs1, rs2 ir.RegID) uint32 {
	return 0x33 | (regNum(rd) << 7) | (regNum(rs1) << 15) | (regNum(rs2) << 20)
}
func addiRaw(rd, rs1 ir.RegID, imm12 uint32) uint32 {
	return 0x13 | (regNum(rd) << 7) | (regNum(rs1) << 15) | ((imm12 & 0xFFF) << 20)
}
func beqRaw(rs1, rs2 ir.RegID, byteDisp int64) uint32 {
	return bWord(byteDisp, 0) | (regNum(rs1) << 15) | (regNum(rs2) << 20)
}
func sdImm(rs2, rs1 ir.RegID, imm uint32) uint32 {
	immU := imm & 0xFFF
	return 0x23 | ((immU & 0x1F) << 7) | (0x3 << 12) | (regNum(rs1) << 15) | (regNum(rs2) << 20) | ((immU >> 5) << 25)
}
