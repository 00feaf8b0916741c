package ir

// RegID is a dense integer enumerating every architectural register an ISA
// port exposes, including sub-register views (e.g. the 32-bit view of a
// 64-bit GPR, or a 128-bit view of a 256-bit vector register). Each port
// (isa/x86, isa/arm64, isa/riscv64) owns its own RegID numbering space;
// RegID is only meaningfully compared against RegIDs from the same port.
type RegID uint16

// RegInvalid is the zero value, used for "no register" (e.g. an absent
// index register in a base+disp operand).
const RegInvalid RegID = 0

// RegInfo is implemented by each ISA port to answer the two questions the
// generic IR needs about a register without knowing the port's encoding:
// its canonical containing register (so aliasing sub-registers can be
// compared for "do these two operands touch the same storage") and its
// size in bytes.
type RegInfo interface {
	// Canonical returns the id of the register that r is a view into. For
	// a register that is not a sub-register view of anything larger,
	// Canonical(r) == r.
	Canonical(r RegID) RegID
	// SizeBytes returns the width, in bytes, that r reads/writes.
	SizeBytes(r RegID) int
	// Name returns the assembly mnemonic for r, used only for String().
	Name(r RegID) string
}
