// Package riscv64 implements isa.Arch for RV64I, grounded on the teacher's
// backend/isa/arm64 package shape (this port's closest sibling in the pack:
// another fixed-width RISC port of the same isa.Arch contract) and on
// original_source/core/arch/riscv64/{emit_utils,mangle}.c and
// original_source/core/ir/riscv64/opnd.c for the decode/encode/stub
// semantics — see SPEC_FULL.md §C.2.
package riscv64

import "github.com/codecachelabs/dbtcore/ir"

// Arch implements isa.Arch for RV64I. Like isa/arm64.Arch it carries no
// mutable state.
type Arch struct{}

// New constructs the RV64I port.
func New() *Arch { return &Arch{} }

func (a *Arch) Name() string { return "riscv64" }

// Bimodal is false: this port does not implement the C (compressed)
// extension's 16-bit instruction forms, so there is no in-band encoding
// width switch to model (see SPEC_FULL.md §C.4 Non-goals). The original's
// emit_utils.c patches a handful of compressed forms (C.BEQZ/C.BNEZ/C.J);
// this port only ever emits and patches 32-bit (4-byte-aligned) words.
func (a *Arch) Bimodal() bool { return false }

func (a *Arch) RegInfo() ir.RegInfo { return defaultRegInfo }

// OpcodeName returns op's mnemonic, or "unknown" for an opcode outside this
// port's slice.
func (a *Arch) OpcodeName(op ir.Opcode) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "unknown"
}
