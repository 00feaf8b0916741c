package x86

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecachelabs/dbtcore/ir"
)

// TestDecode_MovRegRegScenario1 is spec.md §8 scenario 1: decoding
// "48 89 C3" (mov %rax, %rbx in AT&T syntax) must yield an instruction
// that re-encodes, at the same pc, to the identical bytes.
func TestDecode_MovRegRegScenario1(t *testing.T) {
	a := New()
	const pc = uint64(0x400000)
	code := []byte{0x48, 0x89, 0xC3}

	in, n, err := a.Decode(pc, ir.ModeDefault, code)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, OpMovRMReg, in.Opcode)
	require.Equal(t, rbx, in.Dst(0).Reg())
	require.Equal(t, rax, in.Src(0).Reg())

	out, reachable, err := a.Encode(in, pc, pc, true)
	require.NoError(t, err)
	require.True(t, reachable)
	require.Equal(t, code, out)
}

// TestDecode_LeaRipRelativeScenario2 is spec.md §8 scenario 2: decoding
// "48 8D 05 11 22 33 44" at orig_pc=0x1000 (a rip-relative LEA) must
// resolve its target to orig_pc+7+0x44332211, and re-encoding the decoded
// instruction at dst_pc=0x2000 must emit "48 8D 05 <newdisp>" where
// newdisp = target - (dst_pc+7).
func TestDecode_LeaRipRelativeScenario2(t *testing.T) {
	a := New()
	const origPC = uint64(0x1000)
	code := []byte{0x48, 0x8D, 0x05, 0x11, 0x22, 0x33, 0x44}

	in, n, err := a.Decode(origPC, ir.ModeDefault, code)
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.Equal(t, OpLea, in.Opcode)
	require.True(t, in.Src(0).IsPCRel())

	wantTarget := origPC + 7 + 0x44332211
	require.Equal(t, wantTarget, in.Src(0).Target())
	require.True(t, in.RipRelValid)
	require.Equal(t, 3, in.RipRelOffset)

	const dstPC = uint64(0x2000)
	out, reachable, err := a.Encode(in, dstPC, dstPC, true)
	require.NoError(t, err)
	require.True(t, reachable)

	wantDisp := int32(int64(wantTarget) - int64(dstPC+7))
	require.Equal(t, []byte{0x48, 0x8D, 0x05}, out[:3])
	require.Equal(t, wantDisp, int32(getU32(out[3:7])))
	require.Len(t, out, 7)
}

func TestDecode_MovRegImm64RoundTrip(t *testing.T) {
	a := New()
	const pc = uint64(0x3000)
	in := ir.NewInstruction(OpMovRegImm64, 1, 1)
	in.SetDst(0, ir.NewReg(r12))
	in.SetSrc(0, ir.NewImmedInt(0x0102030405060708, false, 8))

	code, _, err := a.Encode(in, pc, pc, true)
	require.NoError(t, err)
	require.Len(t, code, 10)

	back, n, err := a.Decode(pc, ir.ModeDefault, code)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	require.Equal(t, OpMovRegImm64, back.Opcode)
	require.Equal(t, r12, back.Dst(0).Reg())
	v, _ := back.Src(0).ImmedInt()
	require.EqualValues(t, 0x0102030405060708, v)
}

func TestDecode_BaseDispRoundTrip(t *testing.T) {
	a := New()
	const pc = uint64(0x5000)
	in := ir.NewInstruction(OpMovRegRM, 1, 1)
	in.SetDst(0, ir.NewReg(rdi))
	in.SetSrc(0, ir.NewBaseDisp(ir.RegInvalid, r13, ir.RegInvalid, ir.Scale1, 0x30, 8))

	code, _, err := a.Encode(in, pc, pc, true)
	require.NoError(t, err)

	back, n, err := a.Decode(pc, ir.ModeDefault, code)
	require.NoError(t, err)
	require.Equal(t, len(code), n)
	require.Equal(t, rdi, back.Dst(0).Reg())
	_, base, _, _, disp := back.Src(0).BaseDisp()
	require.Equal(t, r13, base)
	require.EqualValues(t, 0x30, disp)
}

func TestDecode_JccRoundTrip(t *testing.T) {
	a := New()
	const pc = uint64(0x6000)
	in := ir.NewInstruction(OpJcc, 0, 1)
	in.Predicate = ccNZ.toIRPredicate()
	in.SetSrc(0, ir.NewCodeTarget(pc+200, false))

	code, reachable, err := a.Encode(in, pc, pc, true)
	require.NoError(t, err)
	require.True(t, reachable)
	require.Equal(t, 6, len(code))

	back, n, err := a.Decode(pc, ir.ModeDefault, code)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, pc+200, back.Src(0).Target())
	c, ok := fromIRPredicate(back.Predicate)
	require.True(t, ok)
	require.Equal(t, ccNZ, c)
}

func TestDecode_InvalidOpcodeOnUndefinedByte(t *testing.T) {
	a := New()
	// 0x0F 0xFF: two-byte opcode space this port's slice does not cover.
	_, _, err := a.Decode(0, ir.ModeDefault, []byte{0x0F, 0xFF})
	require.Error(t, err)
}

func TestDecode_SIBAddressingUndefinedEncoding(t *testing.T) {
	a := New()
	// 48 89 04 25 <disp32>: MOV [disp32], rax via a SIB byte, outside this
	// port's decode slice.
	_, _, err := a.Decode(0, ir.ModeDefault, []byte{0x48, 0x89, 0x04, 0x25, 0, 0, 0, 0})
	require.Error(t, err)
}

func TestDecodeCTI_SkipsNonControlTransferInstructions(t *testing.T) {
	a := New()
	in, n, err := a.DecodeCTI(0x400000, ir.ModeDefault, []byte{0x48, 0x89, 0xC3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, ir.OpInvalid, in.Opcode)
	require.True(t, in.RawValid)
}

func TestDecodeCTI_FullyDecodesBranches(t *testing.T) {
	a := New()
	const pc = uint64(0x7000)
	in, n, err := a.DecodeCTI(pc, ir.ModeDefault, []byte{0xE9, 0x10, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, OpJmpRel, in.Opcode)
	require.Equal(t, pc+5+0x10, in.Src(0).Target())
}
