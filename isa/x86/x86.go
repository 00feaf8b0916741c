package x86

import "github.com/codecachelabs/dbtcore/ir"

// ModeX86ToX64 tags an instruction decoded/encoded with a 0x67 address-size
// override, supplementing the spec's generic mode tag with the concrete
// 32-bit-addressing mode original_source/core/arch/x86/x86_to_x64.c
// dedicates a whole translation pass to. Decode stamps Mode as
// ModeX86ToX64 whenever it consumes a leading 0x67 byte; Encode emits
// that same byte back for any ModeX86ToX64 instruction whose r/m operand
// is memory (decode.go/encode.go's addrSizePrefix), so a decode/encode
// round trip through this mode is byte-exact. This port's decode/encode
// tables otherwise stay 64-bit-only: the 32-bit and 64-bit forms share
// the same opcode bytes and differ only in the address-size prefix.
type Mode = ir.Mode

const ModeX86ToX64 ir.Mode = 1

type Arch struct{}

func New() *Arch { return &Arch{} }

func (a *Arch) Name() string { return "x86-64" }

// Bimodal answers false: although Decode discovers ModeX86ToX64 in-band
// from a 0x67 prefix byte, that byte selects one instruction's address
// size, not a persistent encoding-mode switch comparable to ARM/Thumb's
// T-bit (see isa.Arch.Bimodal's doc comment).
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
