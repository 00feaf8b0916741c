package riscv64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecachelabs/dbtcore/ir"
)

func TestDecode_NopIsAddiX0X0Zero(t *testing.T) {
	a := New()
	in, n, err := a.Decode(0, ir.ModeDefault, []byte{0x13, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, OpNop, in.Opcode)
}

func TestDecode_BranchRoundTripsTarget(t *testing.T) {
	a := New()
	const pc = uint64(0x1000)

	in := ir.NewInstruction(OpBEQ, 0, 3)
	in.SetSrc(0, ir.NewReg(x5))
	in.SetSrc(1, ir.NewReg(x6))
	in.SetSrc(2, ir.NewCodeTarget(pc+64, false))

	code, reachable, err := a.Encode(in, pc, pc, true)
	require.NoError(t, err)
	require.True(t, reachable)

	back, n, err := a.Decode(pc, ir.ModeDefault, code)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, OpBEQ, back.Opcode)
	require.Equal(t, x5, back.Src(0).Reg())
	require.Equal(t, x6, back.Src(1).Reg())
	require.Equal(t, pc+64, back.Src(2).Target())
}

func TestDecode_LoadStoreImmediateRoundTrip(t *testing.T) {
	a := New()
	const pc = uint64(0x2000)

	sd := ir.NewInstruction(OpSD, 0, 2)
	sd.SetSrc(0, ir.NewReg(x5))
	sd.SetSrc(1, ir.NewBaseDisp(ir.RegInvalid, x6, ir.RegInvalid, ir.Scale1, -24, 8))

	code, _, err := a.Encode(sd, pc, pc, true)
	require.NoError(t, err)

	back, n, err := a.Decode(pc, ir.ModeDefault, code)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, OpSD, back.Opcode)
	require.Equal(t, x5, back.Src(0).Reg())
	_, base, _, _, disp := back.Src(1).BaseDisp()
	require.Equal(t, x6, base)
	require.EqualValues(t, -24, disp)
}

func TestDecode_JalrSpecialFormsDistinguished(t *testing.T) {
	a := New()

	ret, n, err := a.Decode(0, ir.ModeDefault, []byte{0x67, 0x80, 0x00, 0x00})
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, OpRet, ret.Opcode)
}

func TestDecode_InvalidOpcodeOnUnallocatedEncoding(t *testing.T) {
	a := New()
	// All-ones word: not a defined instruction in this port's slice
	// (opcode bits 0x7F select an unassigned major opcode).
	_, n, err := a.Decode(0, ir.ModeDefault, []byte{0xFF, 0xFF, 0xFF, 0xFF})
	require.Error(t, err)
	require.Equal(t, 4, n)
}
