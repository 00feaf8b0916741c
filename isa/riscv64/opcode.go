package riscv64

import "github.com/codecachelabs/dbtcore/ir"

// Opcode space for this port: a representative slice of RV64I (data
// movement via LUI/AUIPC, integer ALU immediate/register forms, the six
// branch comparisons, direct/indirect control transfer, and doubleword/word
// load-store) rather than the full RV64GC encoding space, mirroring
// isa/arm64's scoping — see SPEC_FULL.md §C.2. This port's decoder never
// produces OpRaw: anything it does not recognize decodes to ir.OpInvalid
// together with ErrUndefinedEncoding (unimplemented funct3/funct7 variants
// of a recognized major opcode, e.g. the M extension's ALU-register forms)
// or ErrInvalidOpcode (any other major opcode, including A/F/D).
const (
	OpRaw ir.Opcode = iota + 1
	OpNop
	OpLUI
	OpAUIPC
	OpAddImm
	OpAndImm
	OpOrImm
	OpXorImm
	OpAddReg
	OpSubReg
	OpAndReg
	OpOrReg
	OpXorReg
	OpLD
	OpSD
	OpLW
	OpSW
	OpJAL
	// OpJR, OpJALR, OpRet are the three conventional readings of the JALR
	// encoding, split out the way isa/arm64 splits BR/BLR/RET out of the
	// register-branch family: OpJR is rd==x0 (plain indirect jump), OpJALR
	// is rd==x1 (indirect call), OpRet is rd==x0, rs1==x1, imm==0 (return).
	OpJR
	OpJALR
	OpRet
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU
)

var opcodeNames = map[ir.Opcode]string{
	OpRaw: "raw", OpNop: "nop", OpLUI: "lui", OpAUIPC: "auipc",
	OpAddImm: "addi", OpAndImm: "andi", OpOrImm: "ori", OpXorImm: "xori",
	OpAddReg: "add", OpSubReg: "sub", OpAndReg: "and", OpOrReg: "or", OpXorReg: "xor",
	OpLD: "ld", OpSD: "sd", OpLW: "lw", OpSW: "sw",
	OpJAL: "jal", OpJR: "jr", OpJALR: "jalr", OpRet: "ret",
	OpBEQ: "beq", OpBNE: "bne", OpBLT: "blt", OpBGE: "bge", OpBLTU: "bltu", OpBGEU: "bgeu",
}
