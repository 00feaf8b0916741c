package arm64

import "github.com/codecachelabs/dbtcore/ir"

// Register id space, grounded on the teacher's
// backend/isa/arm64/reg.go const block (w0..w30, x0..x30, then the
// special registers), generalized to satisfy ir.RegID/ir.RegInfo rather
// than backend.RealReg. Index 0 is reserved for ir.RegInvalid, so every
// constant here is shifted up by one relative to the teacher's iota.
const (
	regNone ir.RegID = iota // reserved: equals ir.RegInvalid

	w0
	w1
	w2
	w3
	w4
	w5
	w6
	w7
	w8
	w9
	w10
	w11
	w12
	w13
	w14
	w15
	w16
	w17
	w18
	w19
	w20
	w21
	w22
	w23
	w24
	w25
	w26
	w27
	w28
	w29
	w30

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

	wzr
	xzr
	wsp
	sp
	lr // architectural alias for x30; kept distinct for readability

	numRegisters
)

// x16/x17 are the AArch64 PCS's intra-procedure-call scratch registers
// (IP0/IP1): the ABI already treats them as caller-clobbered with no
// argument-passing role, which is exactly what the IBL routine and
// far-linked exit stubs need for a register they can stomp on any call
// path. DynamoRIO's own aarch64 port makes the same choice (see
// original_source/core/arch/aarch64/emit_utils.c commentary referencing
// scratch register usage around the exit stub).
const (
	iblScratch0 = x16
	iblScratch1 = x17
	farLinkTemp = x16
)

// dcontextReg is the register reserved, for the lifetime of any thread
// executing inside the code cache, to hold a pointer to that thread's
// dcontext block (see package dcontext). x28 carries no AAPCS64
// argument-passing or special role and is callee-saved, so stealing it
// costs the mangler a one-time save/restore at fcache_enter/return rather
// than per call, matching original_source/core/arch/aarch64/aarch64.c's
// own register-stealing convention.
const dcontextReg = x28

var regNames = [...]string{
	w0: "w0", w1: "w1", w2: "w2", w3: "w3", w4: "w4", w5: "w5", w6: "w6", w7: "w7",
	w8: "w8", w9: "w9", w10: "w10", w11: "w11", w12: "w12", w13: "w13", w14: "w14", w15: "w15",
	w16: "w16", w17: "w17", w18: "w18", w19: "w19", w20: "w20", w21: "w21", w22: "w22", w23: "w23",
	w24: "w24", w25: "w25", w26: "w26", w27: "w27", w28: "w28", w29: "w29", w30: "w30",
	x0: "x0", x1: "x1", x2: "x2", x3: "x3", x4: "x4", x5: "x5", x6: "x6", x7: "x7",
	x8: "x8", x9: "x9", x10: "x10", x11: "x11", x12: "x12", x13: "x13", x14: "x14", x15: "x15",
	x16: "x16", x17: "x17", x18: "x18", x19: "x19", x20: "x20", x21: "x21", x22: "x22", x23: "x23",
	x24: "x24", x25: "x25", x26: "x26", x27: "x27", x28: "x28", x29: "x29", x30: "x30",
	wzr: "wzr", xzr: "xzr", wsp: "wsp", sp: "sp", lr: "lr",
}

// regInfo implements ir.RegInfo for the arm64 port.
type regInfo struct{}

var defaultRegInfo ir.RegInfo = regInfo{}

func (regInfo) Canonical(r ir.RegID) ir.RegID {
	switch {
	case r >= w0 && r <= w30:
		return x0 + (r - w0)
	case r == wzr:
		return xzr
	case r == wsp:
		return sp
	case r == lr:
		return x30
	default:
		return r
	}
}

func (regInfo) SizeBytes(r ir.RegID) int {
	switch {
	case r >= w0 && r <= w30, r == wzr, r == wsp:
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

// regNum returns the 5-bit register number used in the instruction
// encoding (0-31, with 31 meaning either xzr/wzr or sp/wsp depending on
// the instruction's addressing context).
func regNum(r ir.RegID) uint32 {
	switch {
	case r >= w0 && r <= w30:
		return uint32(r - w0)
	case r >= x0 && r <= x30:
		return uint32(r - x0)
	case r == wzr, r == xzr:
		return 31
	case r == wsp, r == sp:
		return 31
	case r == lr:
		return 30
	default:
		panic("arm64: not a general-purpose register id")
	}
}

// is64 reports whether r is a 64-bit (X-form) register view.
func is64(r ir.RegID) bool {
	return defaultRegInfo.SizeBytes(r) == 8
}
