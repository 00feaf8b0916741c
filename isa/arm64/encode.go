package arm64

import (
	"fmt"

	"github.com/codecachelabs/dbtcore/ir"
	"github.com/codecachelabs/dbtcore/isa"
)

// FixedSize implements isa.Arch.FixedSize. Every instruction this port
// defines is a single 32-bit word; there is no variable-width encoding to
// reserve space for, unlike x86.
func (a *Arch) FixedSize(*ir.Instruction) (int, error) { return 4, nil }

// Encode implements isa.Arch.Encode.
func (a *Arch) Encode(i *ir.Instruction, copyPC, finalPC uint64, checkReach bool) ([]byte, bool, error) {
	var w uint32
	reachable := true

	switch i.Opcode {
	case OpNop:
		w = 0xD503201F

	case OpMovz, OpMovn, OpMovk:
		rd := i.Dst(0).Reg()
		imm, _ := i.Src(0).ImmedInt()
		hwField, _ := i.Src(1).ImmedInt()
		if !fitsUnsigned(imm, 16) {
			return nil, false, fmt.Errorf("%w: movz/n/k immediate out of 16-bit range", isa.ErrNoTemplate)
		}
		hw := uint32(hwField) / 16
		if hw > 3 {
			return nil, false, fmt.Errorf("%w: invalid hw shift", isa.ErrNoTemplate)
		}
		var opc uint32
		switch i.Opcode {
		case OpMovn:
			opc = 0
		case OpMovz:
			opc = 2
		case OpMovk:
			opc = 3
		}
		sf := sfBit(rd)
		w = (sf << 31) | (opc << 29) | 0x12800000 | (hw << 21) | (uint32(imm) << 5) | regNum(rd)

	case OpAddImm, OpSubImm:
		rd, rn := i.Dst(0).Reg(), i.Src(0).Reg()
		imm, _ := i.Src(1).ImmedInt()
		if !fitsUnsigned(imm, 12) {
			return nil, false, fmt.Errorf("%w: add/sub immediate out of 12-bit range", isa.ErrNoTemplate)
		}
		base := uint32(0x11000000)
		if i.Opcode == OpSubImm {
			base = 0x51000000
		}
		w = base | (sfBit(rd) << 31) | (uint32(imm) << 10) | (regNum(rn) << 5) | regNum(rd)

	case OpAddReg, OpSubReg, OpAndReg, OpOrrReg, OpSubsReg:
		rd, rn, rm := i.Dst(0).Reg(), i.Src(0).Reg(), i.Src(1).Reg()
		var base uint32
		switch i.Opcode {
		case OpAddReg:
			base = 0x0B000000
		case OpSubReg:
			base = 0x4B000000
		case OpAndReg:
			base = 0x0A000000
		case OpOrrReg:
			base = 0x2A000000
		case OpSubsReg:
			base = 0x6B000000
		}
		w = base | (sfBit(rd) << 31) | (regNum(rm) << 16) | (regNum(rn) << 5) | regNum(rd)

	case OpBR:
		w = 0xD61F0000 | (regNum(i.Src(0).Reg()) << 5)
	case OpBLR:
		w = 0xD63F0000 | (regNum(i.Src(0).Reg()) << 5)
	case OpRet:
		w = 0xD65F0000 | (regNum(i.Src(0).Reg()) << 5)

	case OpB, OpBL:
		target := i.Src(0).Target()
		disp := int64(target) - int64(finalPC)
		if disp%4 != 0 {
			return nil, false, fmt.Errorf("%w: unaligned branch target", isa.ErrNoTemplate)
		}
		imm26 := disp / 4
		if !fitsSigned(imm26, 26) {
			if checkReach {
				return nil, false, isa.ErrUnreachable
			}
			reachable = false
		}
		base := uint32(0x14000000)
		if i.Opcode == OpBL {
			base = 0x94000000
		}
		w = base | (uint32(imm26) & maskBits(26))

	case OpBCond:
		c, ok := fromIRPredicate(i.Predicate)
		if !ok {
			return nil, false, fmt.Errorf("%w: b.cond requires a predicate", isa.ErrNoTemplate)
		}
		target := i.Src(0).Target()
		disp := int64(target) - int64(finalPC)
		if disp%4 != 0 {
			return nil, false, fmt.Errorf("%w: unaligned branch target", isa.ErrNoTemplate)
		}
		imm19 := disp / 4
		if !fitsSigned(imm19, 19) {
			if checkReach {
				return nil, false, isa.ErrUnreachable
			}
			reachable = false
		}
		w = 0x54000000 | ((uint32(imm19) & maskBits(19)) << 5) | uint32(c)

	case OpCBZ, OpCBNZ:
		rt := i.Src(0).Reg()
		target := i.Src(1).Target()
		disp := int64(target) - int64(finalPC)
		if disp%4 != 0 {
			return nil, false, fmt.Errorf("%w: unaligned branch target", isa.ErrNoTemplate)
		}
		imm19 := disp / 4
		if !fitsSigned(imm19, 19) {
			if checkReach {
				return nil, false, isa.ErrUnreachable
			}
			reachable = false
		}
		base := uint32(0x34000000)
		if i.Opcode == OpCBNZ {
			base = 0x35000000
		}
		w = base | (sfBit(rt) << 31) | ((uint32(imm19) & maskBits(19)) << 5) | regNum(rt)

	case OpLDRImm, OpSTRImm:
		var rt ir.RegID
		var mem ir.Operand
		if i.Opcode == OpLDRImm {
			rt, mem = i.Dst(0).Reg(), i.Src(0)
		} else {
			rt, mem = i.Src(0).Reg(), i.Src(1)
		}
		_, base, _, _, disp := mem.BaseDisp()
		size := mem.Size()
		if size != 4 && size != 8 {
			return nil, false, fmt.Errorf("%w: ldr/str only support 32/64-bit unsigned-offset forms", isa.ErrNoTemplate)
		}
		if int32(disp)%int32(size) != 0 {
			return nil, false, fmt.Errorf("%w: unaligned ldr/str displacement", isa.ErrNoTemplate)
		}
		imm12 := disp / int32(size)
		if !fitsUnsigned(int64(imm12), 12) {
			return nil, false, fmt.Errorf("%w: ldr/str displacement out of range", isa.ErrNoTemplate)
		}
		var opBase uint32
		switch {
		case i.Opcode == OpLDRImm && size == 8:
			opBase = 0xF9400000
		case i.Opcode == OpLDRImm && size == 4:
			opBase = 0xB9400000
		case i.Opcode == OpSTRImm && size == 8:
			opBase = 0xF9000000
		default: // STRImm, size == 4
			opBase = 0xB9000000
		}
		w = opBase | (uint32(imm12) << 10) | (regNum(base) << 5) | regNum(rt)

	case OpLDRLit:
		rt := i.Dst(0).Reg()
		target := i.Src(0).Target()
		disp := int64(target) - int64(finalPC)
		if disp%4 != 0 {
			return nil, false, fmt.Errorf("%w: unaligned ldr-literal target", isa.ErrNoTemplate)
		}
		imm19 := disp / 4
		if !fitsSigned(imm19, 19) {
			if checkReach {
				return nil, false, isa.ErrUnreachable
			}
			reachable = false
		}
		opBase := uint32(0x18000000)
		if is64(rt) {
			opBase = 0x58000000
		}
		w = opBase | ((uint32(imm19) & maskBits(19)) << 5) | regNum(rt)

	case OpLDXR, OpSTXR:
		var rt, rn ir.RegID
		var mem ir.Operand
		var rs ir.RegID
		if i.Opcode == OpLDXR {
			rt, mem = i.Dst(0).Reg(), i.Src(0)
		} else {
			rs, rt, mem = i.Dst(0).Reg(), i.Src(0).Reg(), i.Src(1)
		}
		_, rn, _, _, disp := mem.BaseDisp()
		if disp != 0 {
			return nil, false, fmt.Errorf("%w: ldxr/stxr only support a zero offset", isa.ErrNoTemplate)
		}
		size := mem.Size()
		if size != 4 && size != 8 {
			return nil, false, fmt.Errorf("%w: ldxr/stxr only support 32/64-bit forms", isa.ErrNoTemplate)
		}
		var base uint32 = 0x885F7C00 // size=10 (32-bit), L=1, Rs=Rt2=11111
		if size == 8 {
			base |= 1 << 30
		}
		if i.Opcode == OpLDXR {
			w = base | (regNum(rn) << 5) | regNum(rt)
		} else {
			// Clear L (bit 22) and the Rs field the LDXR base leaves as
			// 11111 before ORing in the actual status register.
			w = (base &^ (1 << 22) &^ (0x1F << 16)) | (regNum(rs) << 16) | (regNum(rn) << 5) | regNum(rt)
		}

	case OpLdStEx:
		return nil, false, fmt.Errorf("%w: ldstex bundles are opaque and never re-encoded directly", isa.ErrNoTemplate)

	case OpAdr:
		rd := i.Dst(0).Reg()
		target := i.Src(0).Target()
		disp := int64(target) - int64(finalPC)
		if !fitsSigned(disp, 21) {
			if checkReach {
				return nil, false, isa.ErrUnreachable
			}
			reachable = false
		}
		immlo := uint32(disp) & 0x3
		immhi := (uint32(disp) >> 2) & maskBits(19)
		w = 0x10000000 | (immlo << 29) | (immhi << 5) | regNum(rd)

	default:
		return nil, false, fmt.Errorf("%w: opcode %d", isa.ErrNoTemplate, i.Opcode)
	}

	code := make([]byte, 4)
	putWord(code, w)
	return code, reachable, nil
}

func sfBit(r ir.RegID) uint32 {
	if is64(r) {
		return 1
	}
	return 0
}
