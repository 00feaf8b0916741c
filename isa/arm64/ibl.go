package arm64

import (
	"github.com/codecachelabs/dbtcore/dcontext"
	"github.com/codecachelabs/dbtcore/ir"
	"github.com/codecachelabs/dbtcore/xfer"
)

// EmitIBLRoutine hand-assembles the lookup routine described in spec.md
// §4.5, grounded on original_source/core/arch/aarch64/emit_utils.c's
// emit_do_lookup-style sequences: mask the tag into a pre-scaled byte
// offset, probe linearly from base+offset wrapping at the table end, and
// either branch into the hit target or fall through to fcacheReturnPC on
// a sentinel (empty-slot) miss.
//
// Registers: x0 holds the tag to look up on entry and the resolved target
// on a hit exit (the mangler arranges this before falling into the
// routine). x28 is the reserved dcontext-pointer register (see
// dcontextReg). x9, x10, x11, x13, x16, x17 are clobbered — all AAPCS64
// caller-saved temporaries, safe because the stub that falls into this
// routine has already arranged for any live guest values in them to be
// spilled.
func (a *Arch) EmitIBLRoutine(dst []byte, entryPC, fcacheReturnPC uint64, kind xfer.TableKind) int {
	basePtrOff, maskOff := dcontext.IBLTableSlot(kind)

	const (
		offLDRBase  = 0
		offLDRMask  = 4
		offAndIdx   = 8
		offAddEntry = 12
		offAddEnd   = 16
		offProbe    = 20
		offCmpTag   = 24
		offBeqHit   = 28
		offCbzMiss  = 32
		offCmpEnd   = 36
		offBeqWrap  = 40
		offAdvance  = 44
		offBProbe1  = 48
		offWrap     = 52
		offBProbe2  = 56
		offHit      = 60
		offMovTgt   = 64
		offBR       = 68
		offMiss     = 72
		offBRet     = 76
		routineLen  = 80
	)

	putWord(dst[offLDRBase:offLDRBase+4], ldrRegImm(x13, dcontextReg, uint32(basePtrOff), true))
	putWord(dst[offLDRMask:offLDRMask+4], ldrRegImm(x17, dcontextReg, uint32(maskOff), true))
	putWord(dst[offAndIdx:offAndIdx+4], andRegRaw(x10, x0, x17))
	putWord(dst[offAddEntry:offAddEntry+4], addRegRaw(x16, x13, x10))
	putWord(dst[offAddEnd:offAddEnd+4], addRegRaw(x9, x13, x17))

	putWord(dst[offProbe:offProbe+4], ldrRegImm(x10, x16, 0, true))
	putWord(dst[offCmpTag:offCmpTag+4], subsRegRaw(xzr, x0, x10))
	putWord(dst[offBeqHit:offBeqHit+4], bCondRaw(condEQ, offHit-offBeqHit))
	putWord(dst[offCbzMiss:offCbzMiss+4], cbzRaw(x10, offMiss-offCbzMiss))
	putWord(dst[offCmpEnd:offCmpEnd+4], subsRegRaw(xzr, x16, x9))
	putWord(dst[offBeqWrap:offBeqWrap+4], bCondRaw(condEQ, offWrap-offBeqWrap))
	putWord(dst[offAdvance:offAdvance+4], addImmRaw(x16, x16, 16))
	putWord(dst[offBProbe1:offBProbe1+4], bRaw(offProbe-offBProbe1))

	putWord(dst[offWrap:offWrap+4], orrRegRaw(x16, xzr, x13)) // MOV x16, x13
	putWord(dst[offBProbe2:offBProbe2+4], bRaw(offProbe-offBProbe2))

	putWord(dst[offHit:offHit+4], ldrRegImm(x11, x16, 8, true))
	putWord(dst[offMovTgt:offMovTgt+4], orrRegRaw(x0, xzr, x11)) // MOV x0, x11
	putWord(dst[offBR:offBR+4], 0xD61F0000|regNum(x0)<<5)        // BR x0

	putWord(dst[offMiss:offMiss+4], strRegImm(x0, dcontextReg, uint32(dcontext.NextTagOffset), true))
	disp := int64(fcacheReturnPC) - int64(entryPC+offBRet)
	putWord(dst[offBRet:offBRet+4], bRaw(disp/4))

	return routineLen
}

func andRegRaw(rd, rn, rm ir.RegID) uint32 {
	return 0x0A000000 | (sfBit(rd) << 31) | (regNum(rm) << 16) | (regNum(rn) << 5) | regNum(rd)
}
func addRegRaw(rd, rn, rm ir.RegID) uint32 {
	return 0x0B000000 | (sfBit(rd) << 31) | (regNum(rm) << 16) | (regNum(rn) << 5) | regNum(rd)
}
func orrRegRaw(rd, rn, rm ir.RegID) uint32 {
	return 0x2A000000 | (sfBit(rd) << 31) | (regNum(rm) << 16) | (regNum(rn) << 5) | regNum(rd)
}
func subsRegRaw(rd, rn, rm ir.RegID) uint32 {
	return 0x6B000000 | (sfBit(rd) << 31) | (regNum(rm) << 16) | (regNum(rn) << 5) | regNum(rd)
}
func addImmRaw(rd, rn ir.RegID, imm12 uint32) uint32 {
	return 0x11000000 | (sfBit(rd) << 31) | (imm12 << 10) | (regNum(rn) << 5) | regNum(rd)
}
func strRegImm(rt, rn ir.RegID, imm uint32, is64bit bool) uint32 {
	size := uint32(4)
	base := uint32(0xB9000000)
	if is64bit {
		size = 8
		base = 0xF9000000
	}
	return base | ((imm / size) << 10) | (regNum(rn) << 5) | regNum(rt)
}

// bRaw encodes an unconditional B whose target is wordDisp*4 bytes from
// this instruction's own address (wordDisp may be negative).
func bRaw(wordDisp int64) uint32 { return 0x14000000 | (uint32(wordDisp) & maskBits(26)) }

func bCondRaw(c cond, byteDisp int64) uint32 {
	imm19 := byteDisp / 4
	return 0x54000000 | ((uint32(imm19) & maskBits(19)) << 5) | uint32(c)
}

// cbzRaw encodes a 64-bit CBZ; this routine only ever tests full 64-bit
// tag/pointer values.
func cbzRaw(rt ir.RegID, byteDisp int64) uint32 {
	imm19 := byteDisp / 4
	return 0x34000000 | (uint32(1) << 31) | ((uint32(imm19) & maskBits(19)) << 5) | regNum(rt)
}
