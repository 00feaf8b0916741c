package arm64

import "github.com/codecachelabs/dbtcore/ir"

// BundleLoadStoreExclusive scans list for the first contiguous run that
// contains both an LDXR and a matching STXR and rewrites it in place as a
// single OpLdStEx macro-instruction, grounded on original_source/core/ir/
// aarch64/build_ldstex.c's decode_ldstex/instr_create_ldstex. Real
// load/store-exclusive retry loops are written as tight, branch-free
// inline assembly (LDXR; work; STXR; CBNZ back to the LDXR), so unlike
// the original's full N-instruction lookahead with branch-target
// expansion, this port only recognizes the single-entry single-exit case
// that already appears contiguously with no intervening branch: a block
// boundary from decode.Block splitting an LDXR from its STXR can't be
// un-split after the fact anyway, so a wider search buys nothing this
// port's callers need (spec.md §4.2.1's scope is "the two become one
// atomic unit for mangling purposes", not arbitrary re-linearization).
//
// It returns true if a bundle was made. The bundled instruction's RawBytes
// is the concatenation of every replaced instruction's RawBytes in order;
// see OpLdStEx in opcode.go for why it must never be split by a later
// mangling pass.
func (a *Arch) BundleLoadStoreExclusive(list *ir.InstrList) bool {
	start := findExclusiveLoad(list)
	if start == nil {
		return false
	}

	end := start
	sawLoad := start.Opcode == OpLDXR
	sawStore := false
	for cur := start.Next(); cur != nil; cur = cur.Next() {
		if isControlTransferOpcode(cur.Opcode) {
			break
		}
		end = cur
		switch cur.Opcode {
		case OpLDXR:
			sawLoad = true
		case OpSTXR:
			sawStore = sawLoad
		}
		if sawStore {
			break
		}
	}
	if !sawStore {
		return false
	}

	var interior []*ir.Instruction
	for cur := start.Next(); cur != end.Next(); cur = cur.Next() {
		interior = append(interior, cur)
	}

	bundle := mergeRun(start, end)
	list.ReplaceInPlace(start, bundle)
	for _, cur := range interior {
		list.Remove(cur)
	}
	return true
}

// findExclusiveLoad returns the first LDXR or STXR node in list, the only
// legal entry points into an exclusive sequence (build_ldstex.c's
// "quick check for hopeless situations": the block must begin with ldex
// or stex, since this port doesn't track branches back to mid-sequence).
func findExclusiveLoad(list *ir.InstrList) *ir.Instruction {
	for cur := list.First(); cur != nil; cur = cur.Next() {
		if cur.Opcode == OpLDXR || cur.Opcode == OpSTXR {
			return cur
		}
	}
	return nil
}

func isControlTransferOpcode(op ir.Opcode) bool {
	switch op {
	case OpB, OpBL, OpBR, OpBLR, OpRet, OpBCond, OpCBZ, OpCBNZ:
		return true
	default:
		return false
	}
}

// mergeRun builds the OpLdStEx macro-instruction spanning [start,end]
// inclusive, concatenating every operand and every RawBytes slice in
// instruction order, conservatively marking the whole bundle as touching
// every register any instruction in the run touches (build_ldstex.c's "assume all
// flags are read and written" discipline, generalized from eflags to
// "don't let a later pass believe it knows this bundle's register
// footprint precisely").
func mergeRun(start, end *ir.Instruction) *ir.Instruction {
	var dsts, srcs []ir.Operand
	var raw []byte
	for cur := start; ; cur = cur.Next() {
		dsts = append(dsts, cur.Dsts()...)
		srcs = append(srcs, cur.Srcs()...)
		raw = append(raw, cur.RawBytes...)
		if cur == end {
			break
		}
	}
	bundle := ir.NewInstruction(OpLdStEx, len(dsts), len(srcs))
	for i, d := range dsts {
		bundle.SetDst(i, d)
	}
	for i, s := range srcs {
		bundle.SetSrc(i, s)
	}
	bundle.RawBytes = raw
	bundle.RawValid = true
	bundle.Meta = false
	bundle.TranslationPC = start.TranslationPC
	bundle.HasTranslationPC = start.HasTranslationPC
	return bundle
}
