// Package arm64 implements isa.Arch for AArch64, grounded on the teacher's
// backend/isa/arm64 package (instruction IR, register ids, condition
// codes) and on original_source/core/arch/aarch64/{emit_utils,encode,
// opnd}.c and original_source/core/ir/aarch64/disassemble.c for the
// decode/encode/stub/IBL semantics themselves — see SPEC_FULL.md §C.2.
package arm64

import "github.com/codecachelabs/dbtcore/ir"

// Arch implements isa.Arch for AArch64. It carries no mutable state: every
// method is a pure function of its arguments, matching spec.md §4's
// requirement that decode/encode have no hidden per-call state.
type Arch struct{}

// New constructs the AArch64 port.
func New() *Arch { return &Arch{} }

func (a *Arch) Name() string { return "arm64" }

// Bimodal is always false for this port: AArch64 has no in-band
// instruction-set mode switch comparable to ARM/Thumb (AArch32 interworking
// is out of scope here, see SPEC_FULL.md §C.4 Non-goals).
func (a *Arch) Bimodal() bool { return false }

func (a *Arch) RegInfo() ir.RegInfo { return defaultRegInfo }

// OpcodeName returns op's mnemonic, or "unknown" for an opcode outside this
// port's slice. Used by cmd/dbtcore's decode subcommand to print readable
// disassembly instead of raw ir.Opcode integers.
func (a *Arch) OpcodeName(op ir.Opcode) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "unknown"
}
