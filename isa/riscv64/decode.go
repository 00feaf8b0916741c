package riscv64

import (
	"fmt"

	"github.com/codecachelabs/dbtcore/ir"
	"github.com/codecachelabs/dbtcore/isa"
)

// Decode implements isa.Arch.Decode. RV64I is fixed-4-byte in this port
// (the C extension's compressed 2-byte forms are out of scope, see
// riscv64.go's Bimodal doc), so decoding is a single opcode-graph walk over
// the 32-bit word, the same shape as isa/arm64.Decode.
func (a *Arch) Decode(pc uint64, mode ir.Mode, b []byte) (*ir.Instruction, int, error) {
	if len(b) < 4 {
		return nil, 0, fmt.Errorf("riscv64: need 4 bytes, got %d", len(b))
	}
	w := getWord(b[:4])
	in, err := decodeWord(w, pc)
	if in == nil {
		in = ir.NewInstruction(ir.OpInvalid, 0, 0)
	}
	in.RawBytes = append([]byte(nil), b[:4]...)
	in.RawValid = true
	in.TranslationPC = pc
	in.HasTranslationPC = true
	in.Mode = mode
	return in, 4, err
}

// DecodeCTI implements isa.Arch.DecodeCTI: fully decodes only control
// transfer instructions (JAL/JALR/the six branches), and for anything else
// returns an OpInvalid placeholder of the correct length.
func (a *Arch) DecodeCTI(pc uint64, mode ir.Mode, b []byte) (*ir.Instruction, int, error) {
	if len(b) < 4 {
		return nil, 0, fmt.Errorf("riscv64: need 4 bytes, got %d", len(b))
	}
	w := getWord(b[:4])
	if !isControlTransfer(w) {
		in := ir.NewInstruction(ir.OpInvalid, 0, 0)
		in.RawBytes = append([]byte(nil), b[:4]...)
		in.RawValid = true
		in.TranslationPC = pc
		in.HasTranslationPC = true
		in.Mode = mode
		return in, 4, nil
	}
	return a.Decode(pc, mode, b)
}

func isControlTransfer(w uint32) bool {
	switch w & 0x7F {
	case 0x6F, 0x67, 0x63: // JAL, JALR, branches
		return true
	default:
		return false
	}
}

func decodeWord(w uint32, pc uint64) (*ir.Instruction, error) {
	if w == 0x00000013 { // addi x0, x0, 0
		return ir.NewInstruction(OpNop, 0, 0), nil
	}

	opcode := w & 0x7F
	rd := gpr((w >> 7) & 0x1F)
	funct3 := (w >> 12) & 0x7

	switch opcode {
	case 0x37, 0x17: // LUI, AUIPC
		imm := int64(int32(w & 0xFFFFF000)) // already sign-extended by bit 31
		op := OpLUI
		if opcode == 0x17 {
			op = OpAUIPC
		}
		in := ir.NewInstruction(op, 1, 1)
		in.SetDst(0, ir.NewReg(rd))
		in.SetSrc(0, ir.NewImmedInt(imm, true, 4))
		return in, nil

	case 0x13: // ALU immediate
		rs1 := gpr((w >> 15) & 0x1F)
		imm12 := signExtend(int64((w>>20)&0xFFF), 12)
		var op ir.Opcode
		switch funct3 {
		case 0x0:
			op = OpAddImm
		case 0x7:
			op = OpAndImm
		case 0x6:
			op = OpOrImm
		case 0x4:
			op = OpXorImm
		default:
			return invalidWord(), fmt.Errorf("riscv64: ALU-immediate funct3=%#x: %w", funct3, isa.ErrUndefinedEncoding)
		}
		in := ir.NewInstruction(op, 1, 2)
		in.SetDst(0, ir.NewReg(rd))
		in.SetSrc(0, ir.NewReg(rs1))
		in.SetSrc(1, ir.NewImmedInt(imm12, true, 2))
		return in, nil

	case 0x33: // ALU register
		rs1 := gpr((w >> 15) & 0x1F)
		rs2 := gpr((w >> 20) & 0x1F)
		funct7 := (w >> 25) & 0x7F
		var op ir.Opcode
		switch {
		case funct3 == 0x0 && funct7 == 0x00:
			op = OpAddReg
		case funct3 == 0x0 && funct7 == 0x20:
			op = OpSubReg
		case funct3 == 0x7 && funct7 == 0x00:
			op = OpAndReg
		case funct3 == 0x6 && funct7 == 0x00:
			op = OpOrReg
		case funct3 == 0x4 && funct7 == 0x00:
			op = OpXorReg
		default:
			return invalidWord(), fmt.Errorf("riscv64: ALU-register funct3=%#x/funct7=%#x: %w", funct3, funct7, isa.ErrUndefinedEncoding)
		}
		in := ir.NewInstruction(op, 1, 2)
		in.SetDst(0, ir.NewReg(rd))
		in.SetSrc(0, ir.NewReg(rs1))
		in.SetSrc(1, ir.NewReg(rs2))
		return in, nil

	case 0x03: // loads
		rs1 := gpr((w >> 15) & 0x1F)
		imm12 := int32(signExtend(int64((w>>20)&0xFFF), 12))
		var op ir.Opcode
		var size int
		switch funct3 {
		case 0x3:
			op, size = OpLD, 8
		case 0x2:
			op, size = OpLW, 4
		default:
			return invalidWord(), fmt.Errorf("riscv64: load funct3=%#x: %w", funct3, isa.ErrUndefinedEncoding)
		}
		mem := ir.NewBaseDisp(ir.RegInvalid, rs1, ir.RegInvalid, ir.Scale1, imm12, size)
		in := ir.NewInstruction(op, 1, 1)
		in.SetDst(0, ir.NewReg(rd))
		in.SetSrc(0, mem)
		return in, nil

	case 0x23: // stores
		rs1 := gpr((w >> 15) & 0x1F)
		rs2 := gpr((w >> 20) & 0x1F)
		immLo := int64((w >> 7) & 0x1F)
		immHi := int64((w >> 25) & 0x7F)
		imm12 := int32(signExtend((immHi<<5)|immLo, 12))
		var op ir.Opcode
		var size int
		switch funct3 {
		case 0x3:
			op, size = OpSD, 8
		case 0x2:
			op, size = OpSW, 4
		default:
			return invalidWord(), fmt.Errorf("riscv64: store funct3=%#x: %w", funct3, isa.ErrUndefinedEncoding)
		}
		mem := ir.NewBaseDisp(ir.RegInvalid, rs1, ir.RegInvalid, ir.Scale1, imm12, size)
		in := ir.NewInstruction(op, 0, 2)
		in.SetSrc(0, ir.NewReg(rs2))
		in.SetSrc(1, mem)
		return in, nil

	case 0x6F: // JAL
		imm20 := (w >> 31) & 1
		imm10_1 := (w >> 21) & 0x3FF
		imm11 := (w >> 20) & 1
		imm19_12 := (w >> 12) & 0xFF
		off := signExtend(int64((imm20<<20)|(imm19_12<<12)|(imm11<<11)|(imm10_1<<1)), 21)
		target := uint64(int64(pc) + off)
		in := ir.NewInstruction(OpJAL, 1, 1)
		in.SetDst(0, ir.NewReg(rd))
		in.SetSrc(0, ir.NewCodeTarget(target, false))
		return in, nil

	case 0x67: // JALR
		if funct3 != 0 {
			return invalidWord(), fmt.Errorf("riscv64: JALR funct3=%#x: %w", funct3, isa.ErrUndefinedEncoding)
		}
		rs1 := gpr((w >> 15) & 0x1F)
		imm12 := signExtend(int64((w>>20)&0xFFF), 12)
		switch {
		case rd == x0 && rs1 == x1 && imm12 == 0:
			return ir.NewInstruction(OpRet, 0, 0), nil
		case rd == x0:
			in := ir.NewInstruction(OpJR, 0, 2)
			in.SetSrc(0, ir.NewReg(rs1))
			in.SetSrc(1, ir.NewImmedInt(imm12, true, 2))
			return in, nil
		default:
			in := ir.NewInstruction(OpJALR, 1, 2)
			in.SetDst(0, ir.NewReg(rd))
			in.SetSrc(0, ir.NewReg(rs1))
			in.SetSrc(1, ir.NewImmedInt(imm12, true, 2))
			return in, nil
		}

	case 0x63: // branches
		rs1 := gpr((w >> 15) & 0x1F)
		rs2 := gpr((w >> 20) & 0x1F)
		imm12 := (w >> 31) & 1
		imm11 := (w >> 7) & 1
		imm10_5 := (w >> 25) & 0x3F
		imm4_1 := (w >> 8) & 0xF
		off := signExtend(int64((imm12<<12)|(imm11<<11)|(imm10_5<<5)|(imm4_1<<1)), 13)
		target := uint64(int64(pc) + off)
		var op ir.Opcode
		switch funct3 {
		case 0x0:
			op = OpBEQ
		case 0x1:
			op = OpBNE
		case 0x4:
			op = OpBLT
		case 0x5:
			op = OpBGE
		case 0x6:
			op = OpBLTU
		case 0x7:
			op = OpBGEU
		default:
			return invalidWord(), fmt.Errorf("riscv64: branch funct3=%#x: %w", funct3, isa.ErrUndefinedEncoding)
		}
		in := ir.NewInstruction(op, 0, 3)
		in.SetSrc(0, ir.NewReg(rs1))
		in.SetSrc(1, ir.NewReg(rs2))
		in.SetSrc(2, ir.NewCodeTarget(target, false))
		return in, nil

	default:
		return invalidWord(), isa.ErrInvalidOpcode
	}
}

func invalidWord() *ir.Instruction { return ir.NewInstruction(ir.OpInvalid, 0, 0) }

func gpr(num uint32) ir.RegID { return x0 + ir.RegID(num) }
