package x86

import (
	"github.com/codecachelabs/dbtcore/dcontext"
	"github.com/codecachelabs/dbtcore/ir"
	"github.com/codecachelabs/dbtcore/xfer"
)

// EmitIBLRoutine hand-assembles the lookup routine described in spec.md
// §4.5, the same probe/wrap/hit/miss shape as arm64's (isa/arm64/ibl.go),
// re-encoded in x86-64 bytes and using %fs-relative memory operands in
// place of a dedicated dcontext-pointer register (see reg.go's segFS doc
// comment).
//
// Registers: rax holds the tag to look up on entry and the resolved
// target on a hit exit. rcx, rdx, r8, r9, r10, r11 are clobbered — all
// SysV-caller-saved with no argument-passing role live at this point,
// mirroring arm64's choice of x9-x11/x16/x17. Every branch in this
// routine is a short (rel8) jump except the final miss-path transfer,
// which uses rel32 since fcache_return's distance from the code cache is
// not bounded the way this routine's own length is.
func (a *Arch) EmitIBLRoutine(dst []byte, entryPC, fcacheReturnPC uint64, kind xfer.TableKind) int {
	basePtrOff, maskOff := dcontext.IBLTableSlot(kind)

	const (
		offLoadBase  = 0
		offLoadMask  = 9
		offMovIdx    = 18
		offAndIdx    = 21
		offLeaEntry  = 24
		offLeaEnd    = 28
		offProbe     = 32
		offLoadTag   = 32
		offCmpTag    = 35
		offJeHit     = 38
		offTestTag   = 40
		offJzMiss    = 43
		offCmpEnd    = 45
		offJeWrap    = 48
		offAdvance   = 50
		offJmpProbe1 = 54
		offWrap      = 56
		offJmpProbe2 = 59
		offHit       = 61
		offJmpRax    = 65
		offMiss      = 67
		offJmpRet    = 76
		routineLen   = 81
	)

	movRegFS(dst[offLoadBase:], r10, uint32(basePtrOff))
	movRegFS(dst[offLoadMask:], r11, uint32(maskOff))
	movRegReg(dst[offMovIdx:], r9, rax)
	andRegReg(dst[offAndIdx:], r9, r11)
	leaRegBaseIndex(dst[offLeaEntry:], rcx, r10, r9)
	leaRegBaseIndex(dst[offLeaEnd:], rdx, r10, r11)

	loadRegMemNoDisp(dst[offLoadTag:], r8, rcx)
	cmpRegReg(dst[offCmpTag:], rax, r8)
	jccShort(dst[offJeHit:], ccZ, disp8(offHit, offJeHit, 2))
	testRegReg(dst[offTestTag:], r8, r8)
	jccShort(dst[offJzMiss:], ccZ, disp8(offMiss, offJzMiss, 2))
	cmpRegReg(dst[offCmpEnd:], rcx, rdx)
	jccShort(dst[offJeWrap:], ccZ, disp8(offWrap, offJeWrap, 2))
	addRegImm8(dst[offAdvance:], rcx, 16)
	jmpShort(dst[offJmpProbe1:], disp8(offProbe, offJmpProbe1, 2))

	movRegReg(dst[offWrap:], rcx, r10)
	jmpShort(dst[offJmpProbe2:], disp8(offProbe, offJmpProbe2, 2))

	loadRegMemDisp8(dst[offHit:], rax, rcx, 8)
	jmpRegIndirect(dst[offJmpRax:], rax)

	movFSReg(dst[offMiss:], uint32(dcontext.NextTagOffset), rax)
	retDisp := int64(fcacheReturnPC) - int64(entryPC+offJmpRet+5)
	jmpRel32(dst[offJmpRet:], int32(retDisp))

	return routineLen
}

func disp8(target, instrOff, instrLen int) int8 {
	return int8(target - (instrOff + instrLen))
}

// movRegFS emits "MOV rd, qword ptr fs:[disp32]".
func movRegFS(dst []byte, rd ir.RegID, disp uint32) int {
	dst[0] = 0x64
	dst[1] = rex(true, regNum(rd) >= 8, false, false)
	dst[2] = 0x8B
	dst[3] = modRM(0, regNum(rd), 4)
	dst[4] = 0x25
	putU32(dst[5:9], disp)
	return 9
}

// movFSReg emits "MOV qword ptr fs:[disp32], rs".
func movFSReg(dst []byte, disp uint32, rs ir.RegID) int {
	dst[0] = 0x64
	dst[1] = rex(true, regNum(rs) >= 8, false, false)
	dst[2] = 0x89
	dst[3] = modRM(0, regNum(rs), 4)
	dst[4] = 0x25
	putU32(dst[5:9], disp)
	return 9
}

// movRegReg emits "MOV rd, rs" (opcode 0x89: r/m is the destination).
func movRegReg(dst []byte, rd, rs ir.RegID) int {
	dst[0] = rex(true, regNum(rs) >= 8, false, regNum(rd) >= 8)
	dst[1] = 0x89
	dst[2] = modRM(3, regNum(rs), regNum(rd))
	return 3
}

// andRegReg emits "AND rd, rs" (opcode 0x21: r/m is the destination).
func andRegReg(dst []byte, rd, rs ir.RegID) int {
	dst[0] = rex(true, regNum(rs) >= 8, false, regNum(rd) >= 8)
	dst[1] = 0x21
	dst[2] = modRM(3, regNum(rs), regNum(rd))
	return 3
}

// cmpRegReg emits "CMP rd, rs" (opcode 0x39: r/m is the left operand).
func cmpRegReg(dst []byte, rd, rs ir.RegID) int {
	dst[0] = rex(true, regNum(rs) >= 8, false, regNum(rd) >= 8)
	dst[1] = 0x39
	dst[2] = modRM(3, regNum(rs), regNum(rd))
	return 3
}

// testRegReg emits "TEST rd, rs" (opcode 0x85).
func testRegReg(dst []byte, rd, rs ir.RegID) int {
	dst[0] = rex(true, regNum(rs) >= 8, false, regNum(rd) >= 8)
	dst[1] = 0x85
	dst[2] = modRM(3, regNum(rs), regNum(rd))
	return 3
}

// leaRegBaseIndex emits "LEA rd, [base+index]" (scale 1, no displacement).
// base's low 3 bits must not be 101 (would demand a disp32), which holds
// for every base this routine passes (r10 only).
func leaRegBaseIndex(dst []byte, rd, base, index ir.RegID) int {
	dst[0] = rex(true, regNum(rd) >= 8, regNum(index) >= 8, regNum(base) >= 8)
	dst[1] = 0x8D
	dst[2] = modRM(0, regNum(rd), 4) // rm=100: SIB follows
	dst[3] = (0 << 6) | ((regNum(index) & 7) << 3) | (regNum(base) & 7)
	return 4
}

// loadRegMemNoDisp emits "MOV rd, [base]" (mod=00, no SIB). base's low 3
// bits must not be 100 (SIB) or 101 (rip-relative in this position).
func loadRegMemNoDisp(dst []byte, rd, base ir.RegID) int {
	dst[0] = rex(true, regNum(rd) >= 8, false, regNum(base) >= 8)
	dst[1] = 0x8B
	dst[2] = modRM(0, regNum(rd), regNum(base))
	return 3
}

// loadRegMemDisp8 emits "MOV rd, [base+disp8]".
func loadRegMemDisp8(dst []byte, rd, base ir.RegID, disp int8) int {
	dst[0] = rex(true, regNum(rd) >= 8, false, regNum(base) >= 8)
	dst[1] = 0x8B
	dst[2] = modRM(1, regNum(rd), regNum(base))
	dst[3] = byte(disp)
	return 4
}

// addRegImm8 emits "ADD rd, imm8" (opcode 0x83 /0 ib).
func addRegImm8(dst []byte, rd ir.RegID, imm int8) int {
	dst[0] = rex(true, false, false, regNum(rd) >= 8)
	dst[1] = 0x83
	dst[2] = modRM(3, 0, regNum(rd))
	dst[3] = byte(imm)
	return 4
}

// jmpRegIndirect emits "JMP rd" (opcode 0xFF /4); 64-bit operand size is
// the FF /4 default in long mode, so no REX.W is needed, only REX.B when
// rd is an extended register.
func jmpRegIndirect(dst []byte, rd ir.RegID) int {
	n := 0
	if regNum(rd) >= 8 {
		dst[0] = rex(false, false, false, true)
		n = 1
	}
	dst[n] = 0xFF
	dst[n+1] = modRM(3, 4, regNum(rd))
	return n + 2
}

// jccShort emits a short (rel8) Jcc.
func jccShort(dst []byte, c cc, disp int8) int {
	dst[0] = 0x70 + byte(c)
	dst[1] = byte(disp)
	return 2
}

// jmpShort emits a short (rel8) unconditional JMP.
func jmpShort(dst []byte, disp int8) int {
	dst[0] = 0xEB
	dst[1] = byte(disp)
	return 2
}

// jmpRel32 emits a near (rel32) unconditional JMP.
func jmpRel32(dst []byte, disp int32) int {
	dst[0] = 0xE9
	putU32(dst[1:5], uint32(disp))
	return 5
}
