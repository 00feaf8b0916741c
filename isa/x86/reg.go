package x86

import "github.com/codecachelabs/dbtcore/ir"

// Register id space, grounded on original_source/core/ir/x86/opnd.c's
// REG_RAX.. enumeration order (32-bit views before 64-bit views, matching
// that file's DR_REG_EAX/DR_REG_RAX split). Index 0 is reserved for
// ir.RegInvalid, so every constant here is shifted up by one. The 0-15
// positions within each width class equal the ModRM/REX register number
// the encoding uses (rax=0 ... r15=15), so regNum can be computed with a
// single modulo rather than a lookup table.
const (
	regNone ir.RegID = iota // reserved: equals ir.RegInvalid

	eax
	ecx
	edx
	ebx
	esp
	ebp
	esi
	edi
	r8d
	r9d
	r10d
	r11d
	r12d
	r13d
	r14d
	r15d

	rax
	rcx
	rdx
	rbx
	rsp
	rbp
	rsi
	rdi
	r8
	r9
	r10
	r11
	r12
	r13
	r14
	r15

	// segFS is a pseudo register id used only as an Operand's seg field
	// (never as a base/index/reg), denoting the %fs segment override DR's
	// x86 port uses for SEG_TLS (original_source/core/arch/x86/opnd.c's
	// opnd_create_sized_tls_slot uses SEG_TLS, which Linux x86-64 resolves
	// to %fs). x86-64 has no spare general-purpose register it can afford
	// to steal the way arm64 steals x28, since every GPR still carries
	// either argument-passing or implicit-opcode meaning somewhere in the
	// encoding space (RSP/RBP especially) — the real port uses the
	// hardware's segment-relative addressing instead.
	segFS

	numRegisters
)

// rip is not a RegID: the x86 IR represents RIP-relative addressing as
// ir.OperandPCRel (an already-resolved target, per ir/operand.go), not as
// a BaseDisp with a synthetic base register, since the displacement field
// is relative to the *end* of the instruction rather than to a value any
// register actually holds mid-execution.

var regNames = [...]string{
	eax: "eax", ecx: "ecx", edx: "edx", ebx: "ebx", esp: "esp", ebp: "ebp", esi: "esi", edi: "edi",
	r8d: "r8d", r9d: "r9d", r10d: "r10d", r11d: "r11d", r12d: "r12d", r13d: "r13d", r14d: "r14d", r15d: "r15d",
	rax: "rax", rcx: "rcx", rdx: "rdx", rbx: "rbx", rsp: "rsp", rbp: "rbp", rsi: "rsi", rdi: "rdi",
	r8: "r8", r9: "r9", r10: "r10", r11: "r11", r12: "r12", r13: "r13", r14: "r14", r15: "r15",
	segFS: "fs",
}

// dcontextScratch is the GPR the mangler reserves, on the instructions it
// inserts (never on application code, which keeps free use of all 16
// GPRs), to hold the result of a %fs-relative dcontext field load just
// long enough to use it. r11 is the natural pick: AMD64 SysV treats it as
// caller-saved with no argument-passing role, the same reasoning arm64's
// port gives for choosing x16/x17.
const dcontextScratch = r11

// regInfo implements ir.RegInfo for the x86-64 port.
type regInfo struct{}

var defaultRegInfo ir.RegInfo = regInfo{}

func (regInfo) Canonical(r ir.RegID) ir.RegID {
	if r >= eax && r <= r15d {
		return rax + (r - eax)
	}
	return r
}

func (regInfo) SizeBytes(r ir.RegID) int {
	switch {
	case r >= eax && r <= r15d:
		return 4
	default:
		return 8
	}
}

func (regInfo) Name(r ir.RegID) string {
	if int(r) < len(regNames) {
		if n := regNames[r]; n != "" {
			return n
		}
	}
	return "?"
}

// regNum returns the 4-bit register number (0-15) used by ModRM/SIB/REX.
func regNum(r ir.RegID) uint8 {
	switch {
	case r >= eax && r <= r15d:
		return uint8(r - eax)
	case r >= rax && r <= r15:
		return uint8(r - rax)
	default:
		panic("x86: not a general-purpose register id")
	}
}

// is64 reports whether r is a 64-bit (R-form) register view.
func is64(r ir.RegID) bool { return defaultRegInfo.SizeBytes(r) == 8 }

// needsRexExt reports whether encoding r in the given REX bit position
// (R, X, or B) requires that bit to be set (register numbers 8-15).
func needsRexExt(r ir.RegID) bool { return regNum(r) >= 8 }
