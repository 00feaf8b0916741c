package ir

// OperandKind tags the variant held by an Operand. Every Operand carries
// exactly one kind; callers type-switch via the Is* predicates rather than
// inspecting Kind() directly, matching the style of a tagged union.
type OperandKind uint8

const (
	// OperandNone is the zero value: an absent operand slot.
	OperandNone OperandKind = iota
	// OperandImmedInt is an immediate integer (value, signedness, width).
	OperandImmedInt
	// OperandImmedFloat is an immediate float (bit pattern, width).
	OperandImmedFloat
	// OperandReg references a single architectural register, possibly a
	// sub-register view.
	OperandReg
	// OperandBaseDisp is a base+displacement memory reference, optionally
	// segment- and/or index-scaled.
	OperandBaseDisp
	// OperandPCRel is a pc-relative address (the target byte address is
	// already resolved; re-encoding recomputes the displacement against a
	// new final pc).
	OperandPCRel
	// OperandAbsAddr is an absolute memory address.
	OperandAbsAddr
	// OperandCodeTarget is a near or far code target pointer (as opposed
	// to a data address).
	OperandCodeTarget
	// OperandInstrRef references another IR instruction by identity,
	// used for label targets before final placement.
	OperandInstrRef
	// OperandRegList is a sequence of registers for multi-register
	// load/store forms (e.g. arm64 LDP/STP-like or ldm/stm families).
	OperandRegList
)

// Scale is a base+disp operand's index scale factor.
type Scale uint8

const (
	Scale1 Scale = 1
	Scale2 Scale = 2
	Scale4 Scale = 4
	Scale8 Scale = 8
)

// Operand is a tagged variant representing one destination or source of an
// Instruction. The zero Operand is OperandNone.
type Operand struct {
	kind OperandKind

	// immediate int / immediate float (mutually exclusive with the rest)
	immInt       int64
	immSigned    bool
	immFloatBits uint64

	// width in bytes: immediate width, register view size, or memory
	// access size, depending on kind.
	size int

	// register / base+disp
	reg   RegID
	seg   RegID
	base  RegID
	index RegID
	scale Scale
	disp  int32

	// base+disp flags
	shortAddr     bool
	forceFullDisp bool

	// pc-relative / absolute / code-target
	target uint64
	isFar  bool

	// label reference, resolved during two-pass encoding
	instrRef *Instruction

	// multi-register list
	regs []RegID
}

// NullOperand returns the empty operand, used for unused destination or
// source slots.
func NullOperand() Operand { return Operand{kind: OperandNone} }

// NewImmedInt constructs an immediate integer operand.
func NewImmedInt(value int64, signed bool, widthBytes int) Operand {
	return Operand{kind: OperandImmedInt, immInt: value, immSigned: signed, size: widthBytes}
}

// NewImmedFloat constructs an immediate float operand from its raw bit
// pattern (so callers control NaN payloads and signalling bits exactly).
func NewImmedFloat(bits uint64, widthBytes int) Operand {
	return Operand{kind: OperandImmedFloat, immFloatBits: bits, size: widthBytes}
}

// NewReg constructs a register-reference operand. r may be a sub-register
// id; its reported size comes from the owning ISA port's RegInfo, not from
// this constructor.
func NewReg(r RegID) Operand {
	return Operand{kind: OperandReg, reg: r}
}

// BaseDispOpt configures optional flags on a base+disp memory operand.
type BaseDispOpt func(*Operand)

// ShortAddr permits the encoder to emit an address-size override prefix
// for this operand (x86 0x67-style). It is a request, not a requirement:
// the encoder may still choose the full-width form.
func ShortAddr() BaseDispOpt { return func(o *Operand) { o.shortAddr = true } }

// ForceFullDisp forbids the encoder from choosing a narrower (e.g. 8-bit)
// displacement encoding even when the displacement value would fit.
func ForceFullDisp() BaseDispOpt { return func(o *Operand) { o.forceFullDisp = true } }

// NewBaseDisp constructs a base+displacement memory operand. seg and index
// may be RegInvalid. The constructor performs no canonicalization: it is
// the caller's (mangler's) job to decide, e.g., whether a zero index with
// scale 1 should be dropped.
func NewBaseDisp(seg, base, index RegID, scale Scale, disp int32, accessSize int, opts ...BaseDispOpt) Operand {
	o := Operand{
		kind: OperandBaseDisp, seg: seg, base: base, index: index,
		scale: scale, disp: disp, size: accessSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewPCRel constructs a pc-relative address operand. target is the
// already-resolved absolute byte address; re-encoding elsewhere
// recomputes the displacement against the new final pc.
func NewPCRel(target uint64, accessSize int) Operand {
	return Operand{kind: OperandPCRel, target: target, size: accessSize}
}

// NewAbsAddr constructs an absolute memory address operand.
func NewAbsAddr(target uint64, accessSize int) Operand {
	return Operand{kind: OperandAbsAddr, target: target, size: accessSize}
}

// NewCodeTarget constructs a near or far code target pointer operand.
func NewCodeTarget(target uint64, far bool) Operand {
	return Operand{kind: OperandCodeTarget, target: target, isFar: far}
}

// NewInstrRef constructs an operand referencing another IR instruction by
// identity. Used for branch/label targets before the list has been laid
// out and final addresses are known.
func NewInstrRef(target *Instruction) Operand {
	return Operand{kind: OperandInstrRef, instrRef: target}
}

// NewRegList constructs a register-list operand for multi-register
// load/store forms. The slice is copied.
func NewRegList(regs []RegID) Operand {
	cp := make([]RegID, len(regs))
	copy(cp, regs)
	return Operand{kind: OperandRegList, regs: cp}
}

// Kind returns the operand's variant tag.
func (o Operand) Kind() OperandKind { return o.kind }

func (o Operand) IsNull() bool        { return o.kind == OperandNone }
func (o Operand) IsImmedInt() bool    { return o.kind == OperandImmedInt }
func (o Operand) IsImmedFloat() bool  { return o.kind == OperandImmedFloat }
func (o Operand) IsReg() bool         { return o.kind == OperandReg }
func (o Operand) IsBaseDisp() bool    { return o.kind == OperandBaseDisp }
func (o Operand) IsPCRel() bool       { return o.kind == OperandPCRel }
func (o Operand) IsAbsAddr() bool     { return o.kind == OperandAbsAddr }
func (o Operand) IsCodeTarget() bool  { return o.kind == OperandCodeTarget }
func (o Operand) IsInstrRef() bool    { return o.kind == OperandInstrRef }
func (o Operand) IsRegList() bool     { return o.kind == OperandRegList }

// IsMemoryReference is the union of the variants that address memory:
// base+disp, absolute address, pc-relative address. OperandCodeTarget is
// deliberately excluded: it names a code location for control transfer,
// not a data reference a load/store would use.
func (o Operand) IsMemoryReference() bool {
	return o.kind == OperandBaseDisp || o.kind == OperandAbsAddr || o.kind == OperandPCRel
}

// ImmedInt returns the immediate integer value and whether it is signed.
// Valid only when IsImmedInt().
func (o Operand) ImmedInt() (value int64, signed bool) { return o.immInt, o.immSigned }

// ImmedFloatBits returns the raw bit pattern of an immediate float.
// Valid only when IsImmedFloat().
func (o Operand) ImmedFloatBits() uint64 { return o.immFloatBits }

// Reg returns the referenced register. Valid only when IsReg().
func (o Operand) Reg() RegID { return o.reg }

// BaseDisp returns the components of a base+disp memory operand. Valid
// only when IsBaseDisp().
func (o Operand) BaseDisp() (seg, base, index RegID, scale Scale, disp int32) {
	return o.seg, o.base, o.index, o.scale, o.disp
}

// ShortAddrRequested reports whether the base+disp operand was
// constructed with ShortAddr().
func (o Operand) ShortAddrRequested() bool { return o.shortAddr }

// ForceFullDispRequested reports whether the base+disp operand was
// constructed with ForceFullDisp().
func (o Operand) ForceFullDispRequested() bool { return o.forceFullDisp }

// Target returns the resolved address of a pc-relative, absolute, or code
// target operand. Valid only when one of IsPCRel/IsAbsAddr/IsCodeTarget().
func (o Operand) Target() uint64 { return o.target }

// IsFarTarget reports whether a code target operand denotes a far
// (cross-mode or cross-segment) transfer.
func (o Operand) IsFarTarget() bool { return o.isFar }

// InstrRef returns the referenced instruction. Valid only when
// IsInstrRef().
func (o Operand) InstrRef() *Instruction { return o.instrRef }

// RegListElems returns the registers of a register-list operand. Valid
// only when IsRegList(). The returned slice is owned by the caller.
func (o Operand) RegListElems() []RegID {
	cp := make([]RegID, len(o.regs))
	copy(cp, o.regs)
	return cp
}

// Size returns the width in bytes relevant to this operand's kind: the
// immediate width, or the memory access size. For OperandReg the
// authoritative size comes from the owning ISA port's RegInfo, not this
// field.
func (o Operand) Size() int { return o.size }
