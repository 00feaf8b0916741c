package arm64

import "github.com/codecachelabs/dbtcore/ir"

// cond is an AArch64 condition code, grounded on the teacher's
// backend/isa/arm64/cond.go const block (same names, same order, so the
// B.cond encoding below can index directly by cond value).
type cond uint8

const (
	condEQ cond = iota
	condNE
	condHS
	condLO
	condMI
	condPL
	condVS
	condVC
	condHI
	condLS
	condGE
	condLT
	condGT
	condLE
	condAL
	condNV
)

var condNames = [...]string{
	condEQ: "eq", condNE: "ne", condHS: "hs", condLO: "lo",
	condMI: "mi", condPL: "pl", condVS: "vs", condVC: "vc",
	condHI: "hi", condLS: "ls", condGE: "ge", condLT: "lt",
	condGT: "gt", condLE: "le", condAL: "al", condNV: "nv",
}

func (c cond) String() string { return condNames[c&0xf] }

// invert returns the logically negated condition, used when the mangler
// flips a conditional branch's sense to fall through into the untaken
// path (e.g. trace exit scaffolding).
func (c cond) invert() cond {
	return c ^ 1 // AArch64 condition codes are paired so that bit 0 flips negation, except AL/NV which alias.
}

// toIRPredicate maps a cond onto the generic ir.Predicate space this
// port publishes to IR instructions' Predicate field. PredicateNone is
// reserved, so AArch64 predicates are offset by one.
func (c cond) toIRPredicate() ir.Predicate { return ir.Predicate(c) + 1 }

func fromIRPredicate(p ir.Predicate) (cond, bool) {
	if p == ir.PredicateNone {
		return condAL, false
	}
	return cond(p - 1), true
}
