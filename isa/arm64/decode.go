package arm64

import (
	"fmt"

	"github.com/codecachelabs/dbtcore/ir"
	"github.com/codecachelabs/dbtcore/isa"
)

// Decode implements isa.Arch.Decode. AArch64 is fixed-4-byte, so there is
// no legacy-prefix consumption loop (spec.md §4.2 step 1 does not apply to
// this port); decoding is a single opcode-graph walk over the 32-bit word,
// as spec.md §4.2 step 2 describes in the abstract.
func (a *Arch) Decode(pc uint64, mode ir.Mode, b []byte) (*ir.Instruction, int, error) {
	if len(b) < 4 {
		return nil, 0, fmt.Errorf("arm64: need 4 bytes, got %d", len(b))
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
// transfer instructions, and for anything else returns an OpInvalid
// placeholder of the correct (fixed, here) length so length-only scanning
// on the hot path never pays for operand construction.
func (a *Arch) DecodeCTI(pc uint64, mode ir.Mode, b []byte) (*ir.Instruction, int, error) {
	if len(b) < 4 {
		return nil, 0, fmt.Errorf("arm64: need 4 bytes, got %d", len(b))
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
	switch {
	case (w>>26)&0x3F == 0x05, (w>>26)&0x3F == 0x25: // B, BL
		return true
	case (w>>24)&0xFF == 0x54 && w&0x10 == 0: // B.cond
		return true
	case (w>>25)&0x3F == 0x1A: // CBZ/CBNZ
		return true
	case (w>>25)&0x7F == 0x6B: // BR/BLR/RET
		return true
	default:
		return false
	}
}

// ldrStrFamily identifies the LDR/STR unsigned-offset immediate family and
// reports its access size and whether it is a load.
func ldrStrFamily(w uint32) (isLdrStr, isLoad bool, size int) {
	switch w & 0xFFC00000 {
	case 0xB9000000:
		return true, false, 4
	case 0xF9000000:
		return true, false, 8
	case 0xB9400000:
		return true, true, 4
	case 0xF9400000:
		return true, true, 8
	default:
		return false, false, 0
	}
}

func decodeWord(w uint32, pc uint64) (*ir.Instruction, error) {
	switch {
	case w == 0xD503201F:
		return ir.NewInstruction(OpNop, 0, 0), nil

	case (w>>23)&0x3F == 0x25: // move-wide family: MOVN/MOVZ/MOVK
		sf := (w >> 31) & 1
		opc := (w >> 29) & 0x3
		hw := (w >> 21) & 0x3
		imm16 := (w >> 5) & 0xFFFF
		rd := gpr(w&0x1F, sf == 1)
		var op ir.Opcode
		switch opc {
		case 0:
			op = OpMovn
		case 2:
			op = OpMovz
		default:
			op = OpMovk
		}
		in := ir.NewInstruction(op, 1, 2)
		in.SetDst(0, ir.NewReg(rd))
		in.SetSrc(0, ir.NewImmedInt(int64(imm16), false, 2))
		in.SetSrc(1, ir.NewImmedInt(int64(hw*16), false, 1))
		return in, nil

	case (w>>24)&0x1F == 0x11: // add/sub immediate
		sf := (w >> 31) & 1
		op := (w >> 30) & 1
		shift := (w >> 22) & 0x3
		imm12 := (w >> 10) & 0xFFF
		rn := gpr((w>>5)&0x1F, sf == 1)
		rd := gpr(w&0x1F, sf == 1)
		if shift != 0 {
			return invalidWord(), fmt.Errorf("arm64: LSL#12 add/sub immediate form: %w", isa.ErrUndefinedEncoding)
		}
		opcode := OpAddImm
		if op == 1 {
			opcode = OpSubImm
		}
		in := ir.NewInstruction(opcode, 1, 2)
		in.SetDst(0, ir.NewReg(rd))
		in.SetSrc(0, ir.NewReg(rn))
		in.SetSrc(1, ir.NewImmedInt(int64(imm12), false, 2))
		return in, nil

	case (w>>24)&0x1F == 0x0B: // add/sub shifted register
		sf := (w >> 31) & 1
		op := (w >> 30) & 1
		s := (w >> 29) & 1
		shift := (w >> 22) & 0x3
		imm6 := (w >> 10) & 0x3F
		rm := gpr((w>>16)&0x1F, sf == 1)
		rn := gpr((w>>5)&0x1F, sf == 1)
		rd := gpr(w&0x1F, sf == 1)
		if shift != 0 || imm6 != 0 {
			return invalidWord(), fmt.Errorf("arm64: shifted add/sub register form: %w", isa.ErrUndefinedEncoding)
		}
		var opcode ir.Opcode
		switch {
		case op == 0 && s == 0:
			opcode = OpAddReg
		case op == 1 && s == 0:
			opcode = OpSubReg
		case op == 1 && s == 1:
			opcode = OpSubsReg
		default: // ADDS, not in this port's opcode slice
			return invalidWord(), fmt.Errorf("arm64: ADDS register form: %w", isa.ErrUndefinedEncoding)
		}
		in := ir.NewInstruction(opcode, 1, 2)
		in.SetDst(0, ir.NewReg(rd))
		in.SetSrc(0, ir.NewReg(rn))
		in.SetSrc(1, ir.NewReg(rm))
		return in, nil

	case (w>>24)&0x1F == 0x0A && (w>>21)&1 == 0: // logical shifted register, N=0
		sf := (w >> 31) & 1
		opc := (w >> 29) & 0x3
		shift := (w >> 22) & 0x3
		imm6 := (w >> 10) & 0x3F
		rm := gpr((w>>16)&0x1F, sf == 1)
		rn := gpr((w>>5)&0x1F, sf == 1)
		rd := gpr(w&0x1F, sf == 1)
		if shift != 0 || imm6 != 0 {
			return invalidWord(), fmt.Errorf("arm64: shifted logical register form: %w", isa.ErrUndefinedEncoding)
		}
		var opcode ir.Opcode
		switch opc {
		case 0:
			opcode = OpAndReg
		case 1:
			opcode = OpOrrReg
		default: // EOR/ANDS, not in this port's opcode slice
			return invalidWord(), fmt.Errorf("arm64: EOR/ANDS logical register form: %w", isa.ErrUndefinedEncoding)
		}
		in := ir.NewInstruction(opcode, 1, 2)
		in.SetDst(0, ir.NewReg(rd))
		in.SetSrc(0, ir.NewReg(rn))
		in.SetSrc(1, ir.NewReg(rm))
		return in, nil

	case (w>>26)&0x3F == 0x05, (w>>26)&0x3F == 0x25: // B, BL
		imm26 := signExtend(int64(w&0x3FFFFFF), 26)
		target := uint64(int64(pc) + imm26*4)
		op := OpB
		if (w>>26)&0x3F == 0x25 {
			op = OpBL
		}
		in := ir.NewInstruction(op, 0, 1)
		in.SetSrc(0, ir.NewCodeTarget(target, false))
		return in, nil

	case (w>>24)&0xFF == 0x54 && w&0x10 == 0: // B.cond
		imm19 := signExtend(int64((w>>5)&0x7FFFF), 19)
		target := uint64(int64(pc) + imm19*4)
		in := ir.NewInstruction(OpBCond, 0, 1)
		in.Predicate = cond(w & 0xF).toIRPredicate()
		in.SetSrc(0, ir.NewCodeTarget(target, false))
		return in, nil

	case (w>>25)&0x3F == 0x1A: // CBZ/CBNZ
		sf := (w >> 31) & 1
		op := (w >> 24) & 1
		imm19 := signExtend(int64((w>>5)&0x7FFFF), 19)
		target := uint64(int64(pc) + imm19*4)
		rt := gpr(w&0x1F, sf == 1)
		opcode := OpCBZ
		if op == 1 {
			opcode = OpCBNZ
		}
		in := ir.NewInstruction(opcode, 0, 2)
		in.SetSrc(0, ir.NewReg(rt))
		in.SetSrc(1, ir.NewCodeTarget(target, false))
		return in, nil

	case (w>>25)&0x7F == 0x6B: // BR/BLR/RET
		opc := (w >> 21) & 0xF
		rn := gpr((w>>5)&0x1F, true)
		var in *ir.Instruction
		switch opc {
		case 0:
			in = ir.NewInstruction(OpBR, 0, 1)
		case 1:
			in = ir.NewInstruction(OpBLR, 0, 1)
		case 2:
			in = ir.NewInstruction(OpRet, 0, 1)
		default:
			return invalidWord(), fmt.Errorf("arm64: unallocated register-branch opc: %w", isa.ErrUndefinedEncoding)
		}
		in.SetSrc(0, ir.NewReg(rn))
		return in, nil

	case (w>>24)&0x1F == 0x18: // LDR literal
		opcField := (w >> 30) & 0x3
		if opcField > 1 {
			return invalidWord(), fmt.Errorf("arm64: LDRSW/PRFM literal form: %w", isa.ErrUndefinedEncoding)
		}
		imm19 := signExtend(int64((w>>5)&0x7FFFF), 19)
		target := uint64(int64(pc) + imm19*4)
		size := 4
		if opcField == 1 {
			size = 8
		}
		rt := gpr(w&0x1F, opcField == 1)
		in := ir.NewInstruction(OpLDRLit, 1, 1)
		in.SetDst(0, ir.NewReg(rt))
		in.SetSrc(0, ir.NewPCRel(target, size))
		return in, nil

	case (w>>24)&0x1F == 0x10 && (w>>31)&1 == 0: // ADR (not ADRP)
		immlo := int64((w >> 29) & 0x3)
		immhi := int64((w >> 5) & 0x7FFFF)
		disp := signExtend((immhi<<2)|immlo, 21)
		target := uint64(int64(pc) + disp)
		rd := gpr(w&0x1F, true)
		in := ir.NewInstruction(OpAdr, 1, 1)
		in.SetDst(0, ir.NewReg(rd))
		in.SetSrc(0, ir.NewPCRel(target, 8))
		return in, nil

	case (w>>24)&0x3F == 0x08 && (w>>30)&0x3 >= 2 && (w>>23)&1 == 0 && (w>>21)&1 == 0 && (w>>15)&1 == 0 && (w>>10)&0x1F == 0x1F:
		// Load/store exclusive, ordinary (not acquire/release) single-register
		// form: LDXR/STXR. size=10/11 selects w/x; o2=o1=o0=0 and Rt2=11111
		// rule out the pair (LDXP/STXP) and acquire/release (LDAXR/STLXR)
		// forms, which this slice doesn't implement.
		size := 4
		if (w>>30)&0x3 == 3 {
			size = 8
		}
		rn := gpr((w>>5)&0x1F, true)
		rt := gpr(w&0x1F, size == 8)
		mem := ir.NewBaseDisp(ir.RegInvalid, rn, ir.RegInvalid, ir.Scale1, 0, size)
		if (w>>22)&1 == 1 {
			in := ir.NewInstruction(OpLDXR, 1, 1)
			in.SetDst(0, ir.NewReg(rt))
			in.SetSrc(0, mem)
			return in, nil
		}
		rs := gpr((w>>16)&0x1F, false)
		in := ir.NewInstruction(OpSTXR, 1, 2)
		in.SetDst(0, ir.NewReg(rs))
		in.SetSrc(0, ir.NewReg(rt))
		in.SetSrc(1, mem)
		return in, nil

	default:
		if isLdrStr, isLoad, size := ldrStrFamily(w); isLdrStr {
			imm12 := int32((w >> 10) & 0xFFF)
			rn := gpr((w>>5)&0x1F, true)
			rt := gpr(w&0x1F, size == 8)
			mem := ir.NewBaseDisp(ir.RegInvalid, rn, ir.RegInvalid, ir.Scale1, imm12*int32(size), size)
			if isLoad {
				in := ir.NewInstruction(OpLDRImm, 1, 1)
				in.SetDst(0, ir.NewReg(rt))
				in.SetSrc(0, mem)
				return in, nil
			}
			in := ir.NewInstruction(OpSTRImm, 0, 2)
			in.SetSrc(0, ir.NewReg(rt))
			in.SetSrc(1, mem)
			return in, nil
		}
		return invalidWord(), isa.ErrInvalidOpcode
	}
}

func invalidWord() *ir.Instruction { return ir.NewInstruction(ir.OpInvalid, 0, 0) }

func gpr(num uint32, is64bit bool) ir.RegID {
	if is64bit {
		return x0 + ir.RegID(num)
	}
	return w0 + ir.RegID(num)
}

func signExtend(v int64, bits uint) int64 {
	shift := 64 - bits
	return (v << shift) >> shift
}
