package x86

import "encoding/binary"

func putU32(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) }
func getU32(b []byte) uint32      { return binary.LittleEndian.Uint32(b) }
func putU64(dst []byte, v uint64) { binary.LittleEndian.PutUint64(dst, v) }
func getU64(b []byte) uint64      { return binary.LittleEndian.Uint64(b) }

// fitsSigned32 reports whether v fits in a signed 32-bit immediate/disp
// field, the widest non-64-bit immediate x86-64 has (there is no 64-bit
// disp or ALU immediate form; only MOV r64,imm64 carries a full 8-byte
// immediate, grounded on original_source/core/arch/x86/encode.c's
// OPSZ_4_rex8_short2 handling for everything else).
func fitsSigned32(v int64) bool {
	return v >= -(int64(1)<<31) && v <= int64(1)<<31-1
}

func fitsSigned8(v int64) bool { return v >= -128 && v <= 127 }

// rex packs a REX prefix byte. w selects 64-bit operand size; r/x/b are
// the high-order extension bits for ModRM.reg, SIB.index, and
// ModRM.rm/SIB.base respectively.
func rex(w, r, x, b bool) byte {
	v := byte(0x40)
	if w {
		v |= 1 << 3
	}
	if r {
		v |= 1 << 2
	}
	if x {
		v |= 1 << 1
	}
	if b {
		v |= 1 << 0
	}
	return v
}

// modRM packs a ModRM byte from its three fields.
func modRM(mod, reg, rm uint8) byte {
	return (mod << 6) | ((reg & 7) << 3) | (rm & 7)
}
