package x86

import (
	"fmt"

	"github.com/codecachelabs/dbtcore/ir"
	"github.com/codecachelabs/dbtcore/isa"
)

// Decode implements isa.Arch.Decode for the representative x86-64 slice
// documented in opcode.go. Grounded on original_source/core/ir/x86/opnd.c
// for operand shapes and on encode.c's opcode-byte assignments (verified
// against the Intel SDM's own tables). A leading 0x67 address-size
// override is recognized and stamps the decoded instruction's Mode as
// ModeX86ToX64 (original_source/core/arch/x86/x86_to_x64.c's 32-bit
// addressing mode), matching Encode's symmetric emission of 0x67 for
// ModeX86ToX64 memory operands. Other legacy prefixes (0x66 operand-size,
// 0xF2/0xF3 repeat, segment overrides including the 0x64 %fs override this
// port's own stubs emit) are not recognized by this slice and decode to
// ErrUndefinedEncoding, matching how arm64's port treats
// unimplemented-but-defined encoding space.
func (a *Arch) Decode(pc uint64, mode ir.Mode, b []byte) (*ir.Instruction, int, error) {
	if len(b) == 0 {
		return nil, 0, fmt.Errorf("x86: %w: empty buffer", isa.ErrInvalidOpcode)
	}

	off := 0
	effectiveMode := mode
	if b[off] == 0x67 {
		effectiveMode = ModeX86ToX64
		off++
	}
	if off >= len(b) {
		return nil, off, fmt.Errorf("x86: %w: truncated after address-size prefix", isa.ErrInvalidOpcode)
	}

	var rexW, rexR, rexX, rexB bool
	hasREX := false
	if off < len(b) && b[off]&0xF0 == 0x40 {
		hasREX = true
		rex := b[off]
		rexW = rex&(1<<3) != 0
		rexR = rex&(1<<2) != 0
		rexX = rex&(1<<1) != 0
		rexB = rex&(1<<0) != 0
		off++
	}
	_ = rexX // no SIB support in this slice; kept for documentation symmetry.

	if off >= len(b) {
		return nil, off, fmt.Errorf("x86: %w: truncated after REX", isa.ErrInvalidOpcode)
	}
	op := b[off]
	off++

	is64 := rexW

	switch {
	case op == 0x90:
		in := ir.NewInstruction(OpNop, 0, 0)
		return finish(in, b, off, effectiveMode)

	case op == 0xC3:
		in := ir.NewInstruction(OpRet, 0, 0)
		return finish(in, b, off, effectiveMode)

	case op == 0x89, op == 0x8B, op == 0x01, op == 0x29, op == 0x39:
		reg, rm, n, ripRel, ripDisp, err := decodeModRM(b[off:], is64, rexR, rexB)
		if err != nil {
			return nil, off + n, err
		}
		off += n
		if ripRel {
			rm = ir.NewPCRel(pc+uint64(off)+uint64(int64(ripDisp)), operandSize(is64))
		}
		var opcode ir.Opcode
		switch op {
		case 0x89:
			opcode = OpMovRMReg
		case 0x8B:
			opcode = OpMovRegRM
		case 0x01:
			opcode = OpAddRMReg
		case 0x29:
			opcode = OpSubRMReg
		case 0x39:
			opcode = OpCmpRMReg
		}
		in := ir.NewInstruction(opcode, 1, 1)
		regOperand := ir.NewReg(reg)
		switch op {
		case 0x8B: // MOV reg, r/m: reg is the destination
			in.SetDst(0, regOperand)
			in.SetSrc(0, rm)
		default: // r/m is the destination (AT&T "op src, r/m" direction)
			in.SetDst(0, rm)
			in.SetSrc(0, regOperand)
		}
		if ripRel {
			in.RipRelValid = true
			in.RipRelOffset = off - 4
		}
		return finish(in, b, off, effectiveMode)

	case op == 0x8D:
		reg, rm, n, ripRel, ripDisp, err := decodeModRM(b[off:], true, rexR, rexB)
		if err != nil {
			return nil, off + n, err
		}
		off += n
		if !ripRel && rm.IsReg() {
			// LEA's r/m must name memory; mod==11 is not a defined LEA form.
			return nil, off, fmt.Errorf("x86: %w: LEA with register r/m", isa.ErrInvalidOpcode)
		}
		if ripRel {
			rm = ir.NewPCRel(pc+uint64(off)+uint64(int64(ripDisp)), 8)
		}
		in := ir.NewInstruction(OpLea, 1, 1)
		in.SetDst(0, ir.NewReg(reg))
		in.SetSrc(0, rm)
		if ripRel {
			in.RipRelValid = true
			in.RipRelOffset = off - 4
		}
		return finish(in, b, off, effectiveMode)

	case op == 0xC7:
		reg, rm, n, ripRel, ripDisp, err := decodeModRM(b[off:], is64, rexR, rexB)
		if err != nil {
			return nil, off + n, err
		}
		if regNumOf(reg) != 0 {
			return nil, off + n, fmt.Errorf("x86: %w: group-11 /digit != 0", isa.ErrInvalidOpcode)
		}
		off += n
		if ripRel {
			rm = ir.NewPCRel(pc+uint64(off)+4+uint64(int64(ripDisp)), operandSize(is64))
		}
		if off+4 > len(b) {
			return nil, off, fmt.Errorf("x86: %w: truncated imm32", isa.ErrInvalidOpcode)
		}
		imm := int64(int32(getU32(b[off : off+4])))
		off += 4
		in := ir.NewInstruction(OpMovRMReg, 1, 1) // MOV r/m, imm shares the r/m-is-dest shape as 0x89
		in.SetDst(0, rm)
		in.SetSrc(0, ir.NewImmedInt(imm, true, 4))
		if ripRel {
			in.RipRelValid = true
			in.RipRelOffset = off - 8
		}
		return finish(in, b, off, effectiveMode)

	case op >= 0x50 && op <= 0x57:
		r := gpr(uint8(op-0x50)+rexBit(rexB), true)
		in := ir.NewInstruction(OpPushReg, 0, 1)
		in.SetSrc(0, ir.NewReg(r))
		return finish(in, b, off, effectiveMode)

	case op >= 0x58 && op <= 0x5F:
		r := gpr(uint8(op-0x58)+rexBit(rexB), true)
		in := ir.NewInstruction(OpPopReg, 1, 0)
		in.SetDst(0, ir.NewReg(r))
		return finish(in, b, off, effectiveMode)

	case op >= 0xB8 && op <= 0xBF:
		regN := uint8(op-0xB8) + rexBit(rexB)
		if rexW {
			if off+8 > len(b) {
				return nil, off, fmt.Errorf("x86: %w: truncated imm64", isa.ErrInvalidOpcode)
			}
			imm := int64(getU64(b[off : off+8]))
			off += 8
			in := ir.NewInstruction(OpMovRegImm64, 1, 1)
			in.SetDst(0, ir.NewReg(gpr(regN, true)))
			in.SetSrc(0, ir.NewImmedInt(imm, false, 8))
			return finish(in, b, off, effectiveMode)
		}
		if off+4 > len(b) {
			return nil, off, fmt.Errorf("x86: %w: truncated imm32", isa.ErrInvalidOpcode)
		}
		imm := int64(getU32(b[off : off+4]))
		off += 4
		in := ir.NewInstruction(OpMovRegImm32, 1, 1)
		in.SetDst(0, ir.NewReg(gpr(regN, false)))
		in.SetSrc(0, ir.NewImmedInt(imm, false, 4))
		return finish(in, b, off, effectiveMode)

	case op == 0xE9:
		if off+4 > len(b) {
			return nil, off, fmt.Errorf("x86: %w: truncated rel32", isa.ErrInvalidOpcode)
		}
		rel := int64(int32(getU32(b[off : off+4])))
		off += 4
		in := ir.NewInstruction(OpJmpRel, 0, 1)
		in.SetSrc(0, ir.NewCodeTarget(pc+uint64(off)+uint64(rel), false))
		return finish(in, b, off, effectiveMode)

	case op == 0xEB:
		if off+1 > len(b) {
			return nil, off, fmt.Errorf("x86: %w: truncated rel8", isa.ErrInvalidOpcode)
		}
		rel := int64(int8(b[off]))
		off++
		in := ir.NewInstruction(OpJmpRel, 0, 1)
		in.SetSrc(0, ir.NewCodeTarget(pc+uint64(off)+uint64(rel), false))
		return finish(in, b, off, effectiveMode)

	case op == 0xE8:
		if off+4 > len(b) {
			return nil, off, fmt.Errorf("x86: %w: truncated rel32", isa.ErrInvalidOpcode)
		}
		rel := int64(int32(getU32(b[off : off+4])))
		off += 4
		in := ir.NewInstruction(OpCallRel, 0, 1)
		in.SetSrc(0, ir.NewCodeTarget(pc+uint64(off)+uint64(rel), false))
		return finish(in, b, off, effectiveMode)

	case op >= 0x70 && op <= 0x7F:
		if off+1 > len(b) {
			return nil, off, fmt.Errorf("x86: %w: truncated rel8", isa.ErrInvalidOpcode)
		}
		rel := int64(int8(b[off]))
		off++
		in := ir.NewInstruction(OpJcc, 0, 1)
		in.Predicate = cc(op-0x70).toIRPredicate()
		in.SetSrc(0, ir.NewCodeTarget(pc+uint64(off)+uint64(rel), false))
		return finish(in, b, off, effectiveMode)

	case op == 0x0F:
		if off >= len(b) {
			return nil, off, fmt.Errorf("x86: %w: truncated two-byte opcode", isa.ErrInvalidOpcode)
		}
		op2 := b[off]
		off++
		if op2 < 0x80 || op2 > 0x8F {
			return invalidWord(off, hasREX)
		}
		if off+4 > len(b) {
			return nil, off, fmt.Errorf("x86: %w: truncated rel32", isa.ErrInvalidOpcode)
		}
		rel := int64(int32(getU32(b[off : off+4])))
		off += 4
		in := ir.NewInstruction(OpJcc, 0, 1)
		in.Predicate = cc(op2-0x80).toIRPredicate()
		in.SetSrc(0, ir.NewCodeTarget(pc+uint64(off)+uint64(rel), false))
		return finish(in, b, off, effectiveMode)

	case op == 0xFF:
		if off >= len(b) {
			return nil, off, fmt.Errorf("x86: %w: truncated ModRM", isa.ErrInvalidOpcode)
		}
		modrm := b[off]
		digit := (modrm >> 3) & 7
		mod := modrm >> 6
		if mod != 3 {
			return nil, off, fmt.Errorf("x86: %w: memory-indirect JMP/CALL not supported by this port", isa.ErrUndefinedEncoding)
		}
		r := gpr(modrm&7+rexBit(rexB), true)
		off++
		switch digit {
		case 4:
			in := ir.NewInstruction(OpJmpIndirect, 0, 1)
			in.SetSrc(0, ir.NewReg(r))
			return finish(in, b, off, effectiveMode)
		case 2:
			in := ir.NewInstruction(OpCallIndirect, 0, 1)
			in.SetSrc(0, ir.NewReg(r))
			return finish(in, b, off, effectiveMode)
		default:
			return invalidWord(off, hasREX)
		}

	case op == 0x66, op == 0xF2, op == 0xF3, op == 0x26, op == 0x2E, op == 0x36, op == 0x3E, op == 0x64, op == 0x65:
		return nil, off, fmt.Errorf("x86: %w: legacy prefix %#x not supported by this port", isa.ErrUndefinedEncoding, op)

	default:
		return invalidWord(off, hasREX)
	}
}

// DecodeCTI fully decodes control transfer instructions and returns a
// length-only placeholder (ir.OpInvalid, RawValid=true) for everything
// else, mirroring arm64's DecodeCTI fast path. Because x86 is variable
// length, finding the length takes the same prefix/ModRM walk Decode
// does, so this runs the full Decode and discards the decoded operands
// for anything that is not a control transfer.
func (a *Arch) DecodeCTI(pc uint64, mode ir.Mode, b []byte) (*ir.Instruction, int, error) {
	full, n, err := a.Decode(pc, mode, b)
	if err != nil {
		return nil, n, err
	}
	if isControlTransfer(full.Opcode) {
		return full, n, nil
	}
	placeholder := ir.NewInstruction(ir.OpInvalid, 0, 0)
	placeholder.Mode = full.Mode
	placeholder.RawValid = true
	placeholder.RawBytes = append([]byte(nil), b[:n]...)
	return placeholder, n, nil
}

func isControlTransfer(op ir.Opcode) bool {
	switch op {
	case OpJmpRel, OpJmpIndirect, OpCallRel, OpCallIndirect, OpJcc, OpRet:
		return true
	default:
		return false
	}
}

func invalidWord(consumed int, hadREX bool) (*ir.Instruction, int, error) {
	return nil, consumed, fmt.Errorf("x86: %w", isa.ErrInvalidOpcode)
}

func finish(in *ir.Instruction, b []byte, n int, mode ir.Mode) (*ir.Instruction, int, error) {
	in.Mode = mode
	in.RawValid = true
	in.RawBytes = append([]byte(nil), b[:n]...)
	return in, n, nil
}

func operandSize(is64 bool) int {
	if is64 {
		return 8
	}
	return 4
}

func rexBit(set bool) uint8 {
	if set {
		return 8
	}
	return 0
}

func gpr(num uint8, is64bit bool) ir.RegID {
	if is64bit {
		return rax + ir.RegID(num)
	}
	return eax + ir.RegID(num)
}

func regNumOf(r ir.RegID) uint8 { return regNum(r) }

// decodeModRM parses a ModRM byte (and any displacement) starting at
// b[0]. It returns the `reg` field's register, the `rm` operand (a
// register operand when mod==3, a base+disp memory operand otherwise, or
// a zero Operand with ripRel=true when the special mod=00/rm=101
// rip-relative form is present, in which case the caller must still
// resolve the final pc-relative target once the full instruction length
// is known). consumed counts only the ModRM byte and any displacement
// bytes, never SIB (unsupported in this slice: mod!=3 && rm==4 errors).
func decodeModRM(b []byte, is64 bool, rexR, rexB bool) (reg ir.RegID, rm ir.Operand, consumed int, ripRel bool, ripDisp int32, err error) {
	if len(b) == 0 {
		return 0, ir.Operand{}, 0, false, 0, fmt.Errorf("x86: %w: truncated ModRM", isa.ErrInvalidOpcode)
	}
	modrm := b[0]
	mod := modrm >> 6
	regField := (modrm >> 3) & 7
	rmField := modrm & 7
	reg = gpr(regField+rexBit(rexR), is64)

	switch {
	case mod == 3:
		rm = ir.NewReg(gpr(rmField+rexBit(rexB), is64))
		return reg, rm, 1, false, 0, nil

	case mod == 0 && rmField == 5:
		if len(b) < 5 {
			return 0, ir.Operand{}, 1, false, 0, fmt.Errorf("x86: %w: truncated rip-relative disp32", isa.ErrInvalidOpcode)
		}
		disp := int32(getU32(b[1:5]))
		return reg, ir.Operand{}, 5, true, disp, nil

	case rmField == 4:
		return 0, ir.Operand{}, 1, false, 0, fmt.Errorf("x86: %w: SIB addressing not supported by this port", isa.ErrUndefinedEncoding)

	case mod == 0:
		base := gpr(rmField+rexBit(rexB), true)
		rm = ir.NewBaseDisp(ir.RegInvalid, base, ir.RegInvalid, ir.Scale1, 0, operandSize(is64))
		return reg, rm, 1, false, 0, nil

	case mod == 1:
		if len(b) < 2 {
			return 0, ir.Operand{}, 1, false, 0, fmt.Errorf("x86: %w: truncated disp8", isa.ErrInvalidOpcode)
		}
		base := gpr(rmField+rexBit(rexB), true)
		disp := int32(int8(b[1]))
		rm = ir.NewBaseDisp(ir.RegInvalid, base, ir.RegInvalid, ir.Scale1, disp, operandSize(is64))
		return reg, rm, 2, false, 0, nil

	case mod == 2:
		if len(b) < 5 {
			return 0, ir.Operand{}, 1, false, 0, fmt.Errorf("x86: %w: truncated disp32", isa.ErrInvalidOpcode)
		}
		base := gpr(rmField+rexBit(rexB), true)
		disp := int32(getU32(b[1:5]))
		rm = ir.NewBaseDisp(ir.RegInvalid, base, ir.RegInvalid, ir.Scale1, disp, operandSize(is64))
		return reg, rm, 5, false, 0, nil
	}
	return 0, ir.Operand{}, 1, false, 0, fmt.Errorf("x86: %w: unreachable ModRM mod", isa.ErrInvalidOpcode)
}
