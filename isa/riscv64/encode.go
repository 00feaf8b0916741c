package riscv64

import (
	"fmt"

	"github.com/codecachelabs/dbtcore/ir"
	"github.com/codecachelabs/dbtcore/isa"
)

// FixedSize implements isa.Arch.FixedSize. Every instruction this port
// defines is a single 32-bit word, same as isa/arm64.
func (a *Arch) FixedSize(*ir.Instruction) (int, error) { return 4, nil }

// Encode implements isa.Arch.Encode.
func (a *Arch) Encode(i *ir.Instruction, copyPC, finalPC uint64, checkReach bool) ([]byte, bool, error) {
	var w uint32
	reachable := true

	switch i.Opcode {
	case OpNop:
		w = 0x00000013

	case OpLUI, OpAUIPC:
		rd := i.Dst(0).Reg()
		imm, _ := i.Src(0).ImmedInt()
		if imm&0xFFF != 0 {
			return nil, false, fmt.Errorf("%w: lui/auipc immediate must be 4KiB-aligned", isa.ErrNoTemplate)
		}
		base := uint32(0x37)
		if i.Opcode == OpAUIPC {
			base = 0x17
		}
		w = base | (uint32(imm) & 0xFFFFF000) | (regNum(rd) << 7)

	case OpAddImm, OpAndImm, OpOrImm, OpXorImm:
		rd, rs1 := i.Dst(0).Reg(), i.Src(0).Reg()
		imm, _ := i.Src(1).ImmedInt()
		if !fitsSigned(imm, 12) {
			return nil, false, fmt.Errorf("%w: ALU-immediate out of 12-bit range", isa.ErrNoTemplate)
		}
		var funct3 uint32
		switch i.Opcode {
		case OpAddImm:
			funct3 = 0x0
		case OpXorImm:
			funct3 = 0x4
		case OpOrImm:
			funct3 = 0x6
		case OpAndImm:
			funct3 = 0x7
		}
		w = 0x13 | (regNum(rd) << 7) | (funct3 << 12) | (regNum(rs1) << 15) | ((uint32(imm) & maskBits(12)) << 20)

	case OpAddReg, OpSubReg, OpAndReg, OpOrReg, OpXorReg:
		rd, rs1, rs2 := i.Dst(0).Reg(), i.Src(0).Reg(), i.Src(1).Reg()
		var funct3, funct7 uint32
		switch i.Opcode {
		case OpAddReg:
			funct3, funct7 = 0x0, 0x00
		case OpSubReg:
			funct3, funct7 = 0x0, 0x20
		case OpXorReg:
			funct3, funct7 = 0x4, 0x00
		case OpOrReg:
			funct3, funct7 = 0x6, 0x00
		case OpAndReg:
			funct3, funct7 = 0x7, 0x00
		}
		w = 0x33 | (regNum(rd) << 7) | (funct3 << 12) | (regNum(rs1) << 15) | (regNum(rs2) << 20) | (funct7 << 25)

	case OpLD, OpLW:
		rd := i.Dst(0).Reg()
		_, rs1, _, _, disp := i.Src(0).BaseDisp()
		if !fitsSigned(int64(disp), 12) {
			return nil, false, fmt.Errorf("%w: load displacement out of 12-bit range", isa.ErrNoTemplate)
		}
		funct3 := uint32(0x2)
		if i.Opcode == OpLD {
			funct3 = 0x3
		}
		w = 0x03 | (regNum(rd) << 7) | (funct3 << 12) | (regNum(rs1) << 15) | ((uint32(disp) & maskBits(12)) << 20)

	case OpSD, OpSW:
		rs2 := i.Src(0).Reg()
		_, rs1, _, _, disp := i.Src(1).BaseDisp()
		if !fitsSigned(int64(disp), 12) {
			return nil, false, fmt.Errorf("%w: store displacement out of 12-bit range", isa.ErrNoTemplate)
		}
		funct3 := uint32(0x2)
		if i.Opcode == OpSD {
			funct3 = 0x3
		}
		immU := uint32(disp) & maskBits(12)
		w = 0x23 | ((immU & 0x1F) << 7) | (funct3 << 12) | (regNum(rs1) << 15) | (regNum(rs2) << 20) | ((immU >> 5) << 25)

	case OpJAL:
		rd := i.Dst(0).Reg()
		target := i.Src(0).Target()
		disp := int64(target) - int64(finalPC)
		if disp%2 != 0 {
			return nil, false, fmt.Errorf("%w: unaligned jal target", isa.ErrNoTemplate)
		}
		if !fitsSigned(disp, 21) {
			if checkReach {
				return nil, false, isa.ErrUnreachable
			}
			reachable = false
		}
		w = jalWord(disp) | (regNum(rd) << 7)

	case OpJR, OpJALR:
		var rd ir.RegID
		var rs1 ir.RegID
		var imm int64
		if i.Opcode == OpJR {
			rd = x0
			rs1 = i.Src(0).Reg()
			imm, _ = i.Src(1).ImmedInt()
		} else {
			rd = i.Dst(0).Reg()
			rs1 = i.Src(0).Reg()
			imm, _ = i.Src(1).ImmedInt()
		}
		if !fitsSigned(imm, 12) {
			return nil, false, fmt.Errorf("%w: jalr immediate out of 12-bit range", isa.ErrNoTemplate)
		}
		w = 0x67 | (regNum(rd) << 7) | (regNum(rs1) << 15) | ((uint32(imm) & maskBits(12)) << 20)

	case OpRet:
		w = 0x00008067 // jalr x0, ra, 0

	case OpBEQ, OpBNE, OpBLT, OpBGE, OpBLTU, OpBGEU:
		rs1, rs2 := i.Src(0).Reg(), i.Src(1).Reg()
		target := i.Src(2).Target()
		disp := int64(target) - int64(finalPC)
		if disp%2 != 0 {
			return nil, false, fmt.Errorf("%w: unaligned branch target", isa.ErrNoTemplate)
		}
		if !fitsSigned(disp, 13) {
			if checkReach {
				return nil, false, isa.ErrUnreachable
			}
			reachable = false
		}
		var funct3 uint32
		switch i.Opcode {
		case OpBEQ:
			funct3 = 0x0
		case OpBNE:
			funct3 = 0x1
		case OpBLT:
			funct3 = 0x4
		case OpBGE:
			funct3 = 0x5
		case OpBLTU:
			funct3 = 0x6
		case OpBGEU:
			funct3 = 0x7
		}
		w = bWord(disp, funct3) | (regNum(rs1) << 15) | (regNum(rs2) << 20)

	default:
		return nil, false, fmt.Errorf("%w: opcode %d", isa.ErrNoTemplate, i.Opcode)
	}

	code := make([]byte, 4)
	putWord(code, w)
	return code, reachable, nil
}

// jalWord encodes a JAL's opcode and immediate field (rd left as zero for
// the caller to OR in), grounded on original_source/core/arch/riscv64/
// emit_utils.c's patch_stub J-type formula.
func jalWord(off int64) uint32 {
	u := uint32(off)
	return 0x6F | (((u >> 20) & 1) << 31) | (((u >> 1) & 0x3FF) << 21) | (((u >> 11) & 1) << 20) | (((u >> 12) & 0xFF) << 12)
}

// bWord encodes a branch's opcode, funct3, and immediate field (rs1/rs2
// left as zero for the caller to OR in), grounded on emit_utils.c's
// patch_branch B-type formula.
func bWord(off int64, funct3 uint32) uint32 {
	u := uint32(off)
	return 0x63 | (funct3 << 12) | (((u >> 12) & 1) << 31) | (((u >> 5) & 0x3F) << 25) | (((u >> 1) & 0xF) << 8) | (((u >> 11) & 1) << 7)
}
