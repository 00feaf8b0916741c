package dcontext

import (
	"github.com/codecachelabs/dbtcore/ir"
)

// SaveConvention computes which of an ISA's caller-saved registers a clean
// call actually needs to save and restore, trimming any register the
// callee body provably overwrites before it ever reads it. The spec's
// distillation only says fcache_return's prologue is "effectively a
// hand-written prologue"; the original dedicates a whole file,
// core/arch/arm/clean_call_opt.c, to this save/restore shape
// (analyze_callee_regs_usage, insert_inline_reg_save/restore) — though
// that ARM port is entirely ASSERT_NOT_IMPLEMENTED stubs upstream, so
// SaveConvention supplies the liveness-driven skip those stubs describe
// but never implement, not a port of working logic.
type SaveConvention struct{}

// NewSaveConvention constructs the convention. It carries no ISA-specific
// state: the skip it computes is a property of the callee body's operand
// order, not of any one port's register numbering.
func NewSaveConvention() SaveConvention { return SaveConvention{} }

// RegistersToSave returns the subset of regs a caller must save before
// transferring to callee and restore after, in regs' original order.
// A register is dropped from the result when callee writes it (as a
// destination) before ever reading it (as a source) first — the callee
// overwrites it unconditionally, so whatever the caller held there can't
// leak through and needn't be preserved. Order matters: only the first
// use of each register decides whether it's a read or a write.
func (SaveConvention) RegistersToSave(regs []ir.RegID, callee *ir.InstrList) []ir.RegID {
	wanted := make(map[ir.RegID]bool, len(regs))
	for _, r := range regs {
		wanted[r] = true
	}

	deadOnEntry := make(map[ir.RegID]bool, len(regs))
	decided := make(map[ir.RegID]bool, len(regs))

	callee.ForEach(func(in *ir.Instruction) {
		for _, s := range in.Srcs() {
			if s.IsReg() && wanted[s.Reg()] && !decided[s.Reg()] {
				decided[s.Reg()] = true
			}
		}
		for _, d := range in.Dsts() {
			if d.IsReg() && wanted[d.Reg()] && !decided[d.Reg()] {
				decided[d.Reg()] = true
				deadOnEntry[d.Reg()] = true
			}
		}
	})

	out := make([]ir.RegID, 0, len(regs))
	for _, r := range regs {
		if !deadOnEntry[r] {
			out = append(out, r)
		}
	}
	return out
}
