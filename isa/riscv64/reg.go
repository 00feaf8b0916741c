package riscv64

import "github.com/codecachelabs/dbtcore/ir"

// Register id space: the 32 general-purpose integer registers, x0..x31.
// Unlike arm64's w/x views, RV64I has no narrower architectural view of a
// GPR to alias (W-suffixed RV64 instructions sign-extend their 32-bit
// result into the full 64-bit register rather than addressing a distinct
// sub-register), so there is exactly one id per register. Index 0 is
// reserved for ir.RegInvalid, so every constant here is shifted up by one
// relative to the raw register number, same convention as isa/arm64.
const (
	regNone ir.RegID = iota // reserved: equals ir.RegInvalid

	x0
	x1
	x2
	x3
	x4
	x5
	x6
	x7
	x8
	x9
	x10
	x11
	x12
	x13
	x14
	x15
	x16
	x17
	x18
	x19
	x20
	x21
	x22
	x23
	x24
	x25
	x26
	x27
	x28
	x29
	x30
	x31

	numRegisters
)

// zero/ra/sp are referenced by name where the ABI role, not the raw number,
// is what a reader needs to recognize (e.g. ret is jalr x0, ra, 0).
const (
	zero = x0
	ra   = x1
	sp   = x2
)

// t0/t1/t2/t3 are the RISC-V calling convention's caller-saved temporaries
// with no argument-passing role (t0-t2 = x5-x7, t3 = x28): the IBL routine
// and far-link sequence need registers they can clobber on any path that
// falls into them, the same role x16/x17 play for isa/arm64.
const (
	iblScratch0 = x5  // t0
	iblScratch1 = x6  // t1
	iblScratch2 = x7  // t2
	iblScratch3 = x28 // t3
	farLinkTemp = x31 // t6
)

// dcontextReg is the register reserved, for the lifetime of any thread
// executing inside the code cache, to hold a pointer to that thread's
// dcontext block (see package dcontext). original_source/core/arch/
// riscv64/mangle.c only ever refers to this register abstractly as
// dr_reg_stolen, with its concrete number resolved elsewhere in the
// upstream tree outside the files retrieved for this port; x27 (s11) is
// this port's own choice, by the same reasoning isa/arm64 gives for x28:
// callee-saved under the standard ABI, and not otherwise special (unlike
// x2/sp, x8/fp, or the argument registers x10-x17).
const dcontextReg = x27

var regNames = [...]string{
	x0: "zero", x1: "ra", x2: "sp", x3: "gp", x4: "tp",
	x5: "t0", x6: "t1", x7: "t2",
	x8: "s0", x9: "s1",
	x10: "a0", x11: "a1", x12: "a2", x13: "a3", x14: "a4", x15: "a5", x16: "a6", x17: "a7",
	x18: "s2", x19: "s3", x20: "s4", x21: "s5", x22: "s6", x23: "s7", x24: "s8", x25: "s9", x26: "s10", x27: "s11",
	x28: "t3", x29: "t4", x30: "t5", x31: "t6",
}

// regInfo implements ir.RegInfo for the riscv64 port. Every register is a
// full 64-bit view of itself: there is no sub-register aliasing to
// canonicalize away.
type regInfo struct{}

var defaultRegInfo ir.RegInfo = regInfo{}

func (regInfo) Canonical(r ir.RegID) ir.RegID { return r }
func (regInfo) SizeBytes(ir.RegID) int        { return 8 }

func (regInfo) Name(r ir.RegID) string {
	if int(r) < len(regNames) {
		if n := regNames[r]; n != "" {
			return n
		}
	}
	return "?"
}

// regNum returns the 5-bit register number (0-31) used in the instruction
// encoding.
func regNum(r ir.RegID) uint32 {
	if r < x0 || r > x31 {
		panic("riscv64: not a general-purpose register id")
	}
	return uint32(r - x0)
}
