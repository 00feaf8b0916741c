package arm64

import "github.com/codecachelabs/dbtcore/ir"

// Opcode space for this port. Deliberately a representative slice of
// AArch64 (data movement, integer ALU, compare, direct/indirect control
// transfer, the forms spec.md §8's concrete scenarios exercise) rather
// than the full architectural encoding space — see SPEC_FULL.md §C.2.
// This port's decoder never produces OpRaw: anything it does not
// recognize decodes to ir.OpInvalid together with ErrUndefinedEncoding
// (defined-but-unimplemented forms) or ErrInvalidOpcode
// (malformed/reserved bit patterns).
const (
	OpRaw ir.Opcode = iota + 1
	OpNop
	OpMovz
	OpMovn
	OpMovk
	OpAddImm
	OpSubImm
	OpAddReg
	OpSubReg
	OpAndReg
	OpOrrReg // also serves as the "MOV Rd, Rm" alias (Rn == xzr/wzr)
	OpSubsReg // also serves as the "CMP" alias (Rd == xzr/wzr)
	OpB
	OpBL
	OpBR
	OpBLR
	OpRet
	OpBCond
	OpCBZ
	OpCBNZ
	OpLDRImm
	OpSTRImm
	OpLDRLit
	OpAdr
	OpLDXR
	OpSTXR
	// OpLdStEx is a macro-instruction bundling a contiguous ldex/stex
	// pair (and everything between them) into one opaque unit, produced
	// by bundle.go rather than decodeWord, grounded on original_source/
	// core/ir/aarch64/build_ldstex.c's OP_ldstex. It carries RawBytes for
	// the whole bundle and must never be split across a block boundary.
	OpLdStEx
)

var opcodeNames = map[ir.Opcode]string{
	OpRaw: "raw", OpNop: "nop", OpMovz: "movz", OpMovn: "movn", OpMovk: "movk",
	OpAddImm: "add", OpSubImm: "sub", OpAddReg: "add", OpSubReg: "sub",
	OpAndReg: "and", OpOrrReg: "orr", OpSubsReg: "subs",
	OpB: "b", OpBL: "bl", OpBR: "br", OpBLR: "blr", OpRet: "ret",
	OpBCond: "b.cond", OpCBZ: "cbz", OpCBNZ: "cbnz",
	OpLDRImm: "ldr", OpSTRImm: "str", OpLDRLit: "ldr", OpAdr: "adr",
	OpLDXR: "ldxr", OpSTXR: "stxr", OpLdStEx: "ldstex",
}
