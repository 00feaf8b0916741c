package x86

import "github.com/codecachelabs/dbtcore/ir"

// Opcode space for this port. A representative slice of x86-64 (data
// movement, rip-relative LEA, integer ALU, compare, direct/indirect
// control transfer, the forms spec.md §8's concrete scenarios exercise)
// rather than the full architectural encoding space — see
// SPEC_FULL.md §C.2. Decode never produces OpRaw: anything outside this
// slice returns no instruction and an error, ErrUndefinedEncoding for
// recognized-but-unsupported forms (SIB addressing, memory-indirect
// JMP/CALL, legacy prefixes) and ErrInvalidOpcode for everything else.
const (
	OpRaw ir.Opcode = iota + 1
	OpNop
	OpMovRMReg // MOV r/m64, r64  (0x89) and MOV r/m32, r32
	OpMovRegRM // MOV r64, r/m64  (0x8B) and MOV r32, r/m32
	OpMovRegImm32
	OpMovRegImm64
	OpLea
	OpAddRMReg
	OpSubRMReg
	OpCmpRMReg
	OpPushReg
	OpPopReg
	OpJmpRel
	OpJmpIndirect
	OpCallRel
	OpCallIndirect
	OpJcc
	OpRet
)

var opcodeNames = map[ir.Opcode]string{
	OpRaw: "raw", OpNop: "nop",
	OpMovRMReg: "mov", OpMovRegRM: "mov", OpMovRegImm32: "mov", OpMovRegImm64: "mov",
	OpLea: "lea", OpAddRMReg: "add", OpSubRMReg: "sub", OpCmpRMReg: "cmp",
	OpPushReg: "push", OpPopReg: "pop",
	OpJmpRel: "jmp", OpJmpIndirect: "jmp", OpCallRel: "call", OpCallIndirect: "call",
	OpJcc: "jcc", OpRet: "ret",
}

// cc is an x86 condition code, the low nibble of a Jcc/SETcc/CMOVcc
// opcode byte, grounded on original_source/core/arch/x86/encode.c's
// OP_jcc family numbering (jo=0x0 .. jg=0xf).
type cc uint8

const (
	ccO cc = iota
	ccNO
	ccB
	ccNB
	ccZ
	ccNZ
	ccBE
	ccNBE
	ccS
	ccNS
	ccP
	ccNP
	ccL
	ccNL
	ccLE
	ccNLE
)

// toIRPredicate/fromIRPredicate mirror the arm64 port's cond<->Predicate
// mapping: PredicateNone is reserved, so x86 condition codes are offset
// by one in the generic ir.Predicate space.
func (c cc) toIRPredicate() ir.Predicate { return ir.Predicate(c) + 1 }

func fromIRPredicate(p ir.Predicate) (cc, bool) {
	if p == ir.PredicateNone {
		return 0, false
	}
	return cc(p - 1), true
}
