package ir

// Opcode is a dense integer naming an operation within one ISA port's own
// numbering space. Two Opcodes are only comparable when they come from the
// same isa.Arch.
type Opcode uint16

// OpInvalid marks an instruction a decoder could not decode (returned
// alongside the decode error) and the length-only placeholder DecodeCTI
// returns for non-control-transfer instructions. Each isa port also
// declares an OpRaw opcode, which no decoder produces.
const OpInvalid Opcode = 0

// Predicate is an ISA condition code (arm64 EQ/NE/..., x86 none) or
// PredicateNone. Each ISA port defines its own Predicate constants; they
// are only comparable within one port.
type Predicate uint8

// PredicateNone means the instruction is not conditionally predicated.
const PredicateNone Predicate = 0

// Mode is an optional ISA submode tag, for bi-modal ISAs such as ARM/Thumb
// or x86 32/64-bit. ModeDefault means "the port's single mode" for ISAs
// that aren't bi-modal.
type Mode uint8

const ModeDefault Mode = 0

// Flags is a bitset of boolean prefix/semantic flags. Fields that are not
// single bits (vex.vvvv's register number, the predicated-vector mask
// register) live as dedicated Instruction fields instead.
type Flags uint32

const (
	// FlagLock marks a locked (atomic) memory operation (x86 LOCK prefix).
	FlagLock Flags = 1 << iota
	// FlagBranchHint marks a static branch-prediction hint prefix.
	FlagBranchHint
	// FlagOperSize16 marks a mandatory 16-bit operand-size override.
	FlagOperSize16
	// FlagAddrSize32 marks a mandatory address-size override.
	FlagAddrSize32
	// FlagRexW marks the REX.W bit (64-bit operand size on x86-64).
	FlagRexW
	// FlagVexL marks VEX.L / EVEX.L' (256-bit or wider vector width).
	FlagVexL
	// FlagHasMaskReg marks that MaskReg names a valid predicate register
	// for this (EVEX-style masked) instruction.
	FlagHasMaskReg
)

// Instruction is the IR node for a single guest instruction, or a
// meta-instruction inserted by the translator itself (Meta == true;
// matters for fault translation, which must attribute a fault to the app
// instruction it arose from, never to scaffolding the translator added).
type Instruction struct {
	Opcode Opcode

	dsts []Operand
	srcs []Operand

	Flags     Flags
	VexVVVV   RegID
	MaskReg   RegID
	Predicate Predicate
	Mode      Mode

	// RawBytes/RawValid: bytes captured by the decoder, or nil if this
	// instruction was synthesized rather than decoded.
	RawBytes []byte
	RawValid bool

	// TranslationPC is the guest pc this instruction was decoded from.
	TranslationPC    uint64
	HasTranslationPC bool

	// Note is scratch space used to thread back-references during
	// two-pass encoding: the encoder's first pass stores each
	// instruction's byte offset here, and the second pass resolves
	// OperandInstrRef targets arithmetically against it.
	Note uint64

	// RipRelValid/RipRelOffset: for ISAs with pc-relative data addressing,
	// the offset within RawBytes of the 32-bit signed displacement field,
	// so a relocation can rewrite it in place without a full re-encode.
	RipRelValid  bool
	RipRelOffset int

	// Meta distinguishes a translator-inserted instruction (mangling
	// scaffolding, spills, stub code) from an instruction decoded from
	// the application's own byte stream.
	Meta bool

	prev, next *Instruction
}

// NewInstruction allocates an instruction with ndst destination and nsrc
// source operand slots, all initialized to NullOperand.
func NewInstruction(op Opcode, ndst, nsrc int) *Instruction {
	in := &Instruction{
		Opcode: op,
		dsts:   make([]Operand, ndst),
		srcs:   make([]Operand, nsrc),
	}
	return in
}

// NumDsts returns the number of destination operand slots.
func (i *Instruction) NumDsts() int { return len(i.dsts) }

// NumSrcs returns the number of source operand slots.
func (i *Instruction) NumSrcs() int { return len(i.srcs) }

// Dst returns the n'th destination operand.
func (i *Instruction) Dst(n int) Operand { return i.dsts[n] }

// Src returns the n'th source operand.
func (i *Instruction) Src(n int) Operand { return i.srcs[n] }

// SetDst sets the n'th destination operand.
func (i *Instruction) SetDst(n int, o Operand) { i.dsts[n] = o }

// SetSrc sets the n'th source operand.
func (i *Instruction) SetSrc(n int, o Operand) { i.srcs[n] = o }

// Dsts returns the destination operand slice. The caller must not retain
// a reference across a later NewInstruction-driven resize; callers that
// need to keep iterating while mutating should index via Dst/SetDst.
func (i *Instruction) Dsts() []Operand { return i.dsts }

// Srcs returns the source operand slice, see Dsts for the aliasing
// caveat.
func (i *Instruction) Srcs() []Operand { return i.srcs }

// Prev returns the previous node in the owning InstrList, or nil.
func (i *Instruction) Prev() *Instruction { return i.prev }

// Next returns the next node in the owning InstrList, or nil.
func (i *Instruction) Next() *Instruction { return i.next }
