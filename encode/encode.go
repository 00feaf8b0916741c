// Package encode is the generic two-pass driver over one isa.Arch port's
// Encode/FixedSize (spec.md §4.3): it resolves OperandInstrRef label-target
// operands, which no single port should have to know about, and assembles
// a whole ir.InstrList to a contiguous byte slice. The per-instruction
// template matching, reachability checking, and fast-path direct-branch
// encoding described in spec.md §4.3 all live in each port's own Encode
// (isa/arm64/encode.go, isa/x86/encode.go); this package never inspects
// operand shapes itself beyond the label-resolution step.
package encode

import (
	"fmt"

	"github.com/codecachelabs/dbtcore/ir"
	"github.com/codecachelabs/dbtcore/isa"
)

// ErrNoTemplate and ErrUnreachable re-export the isa package's sentinels
// under this package's name, per SPEC_FULL.md §B.2's error-naming
// convention.
var (
	ErrNoTemplate  = isa.ErrNoTemplate
	ErrUnreachable = isa.ErrUnreachable
)

// Assemble lays out list starting at startPC and returns the concatenated
// machine bytes. The first pass stamps each instruction's byte offset into
// Note via FixedSize (spec.md §4.3, "Label targets"); the second pass
// resolves any source operand referencing another instruction by identity
// into a concrete code-target address computed from that target's Note,
// then calls Encode. checkReach is forwarded to every Encode call. An
// unreachable branch aborts assembly with ErrUnreachable either way: with
// checkReach true the port's Encode fails, and with checkReach false
// Assemble itself rejects the reachable=false result.
func Assemble(a isa.Arch, list *ir.InstrList, startPC uint64, checkReach bool) ([]byte, error) {
	offset := uint64(0)
	for in := list.First(); in != nil; in = in.Next() {
		in.Note = offset
		n, err := a.FixedSize(in)
		if err != nil {
			return nil, fmt.Errorf("encode: sizing instruction at offset %d: %w", offset, err)
		}
		offset += uint64(n)
	}

	out := make([]byte, 0, offset)
	for in := list.First(); in != nil; in = in.Next() {
		resolveLabelOperands(in, startPC)
		finalPC := startPC + in.Note

		code, reachable, err := a.Encode(in, finalPC, finalPC, checkReach)
		if err != nil {
			return nil, fmt.Errorf("encode: instruction at offset %d: %w", in.Note, err)
		}
		if !reachable {
			return nil, fmt.Errorf("%w: instruction at offset %d", ErrUnreachable, in.Note)
		}
		out = append(out, code...)
	}
	return out, nil
}

// resolveLabelOperands rewrites any OperandInstrRef source of in into a
// resolved OperandCodeTarget, computed as startPC + target.Note (both
// already stamped by Assemble's first pass).
func resolveLabelOperands(in *ir.Instruction, startPC uint64) {
	for idx := 0; idx < in.NumSrcs(); idx++ {
		s := in.Src(idx)
		if !s.IsInstrRef() {
			continue
		}
		target := s.InstrRef()
		in.SetSrc(idx, ir.NewCodeTarget(startPC+target.Note, false))
	}
}
