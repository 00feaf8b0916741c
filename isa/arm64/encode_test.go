package arm64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecachelabs/dbtcore/ir"
	"github.com/codecachelabs/dbtcore/isa"
)

func TestEncodeDecodeRoundTrip_ALUAndDataMovement(t *testing.T) {
	a := New()
	const pc = uint64(0x4000_1000)

	cases := []*ir.Instruction{
		func() *ir.Instruction {
			in := ir.NewInstruction(OpNop, 0, 0)
			return in
		}(),
		func() *ir.Instruction {
			in := ir.NewInstruction(OpMovz, 1, 2)
			in.SetDst(0, ir.NewReg(x3))
			in.SetSrc(0, ir.NewImmedInt(0xBEEF, false, 2))
			in.SetSrc(1, ir.NewImmedInt(16, false, 1))
			return in
		}(),
		func() *ir.Instruction {
			in := ir.NewInstruction(OpAddImm, 1, 2)
			in.SetDst(0, ir.NewReg(x0))
			in.SetSrc(0, ir.NewReg(x1))
			in.SetSrc(1, ir.NewImmedInt(42, false, 2))
			return in
		}(),
		func() *ir.Instruction {
			in := ir.NewInstruction(OpOrrReg, 1, 2) // MOV alias
			in.SetDst(0, ir.NewReg(x2))
			in.SetSrc(0, ir.NewReg(xzr))
			in.SetSrc(1, ir.NewReg(x9))
			return in
		}(),
		func() *ir.Instruction {
			in := ir.NewInstruction(OpRet, 0, 1)
			in.SetSrc(0, ir.NewReg(lr))
			return in
		}(),
	}

	for _, in := range cases {
		code, reachable, err := a.Encode(in, pc, pc, true)
		require.NoError(t, err)
		require.True(t, reachable)
		require.Len(t, code, 4)

		back, n, err := a.Decode(pc, ir.ModeDefault, code)
		require.NoError(t, err)
		require.Equal(t, 4, n)
		require.Equal(t, in.Opcode, back.Opcode)
	}
}

func TestEncode_MovzRejectsOutOfRangeImmediate(t *testing.T) {
	a := New()
	in := ir.NewInstruction(OpMovz, 1, 2)
	in.SetDst(0, ir.NewReg(x0))
	in.SetSrc(0, ir.NewImmedInt(1<<20, false, 4))
	in.SetSrc(1, ir.NewImmedInt(0, false, 1))

	_, _, err := a.Encode(in, 0, 0, true)
	require.Error(t, err)
}

func TestEncode_BranchUnreachableReportedOrErrored(t *testing.T) {
	a := New()
	in := ir.NewInstruction(OpB, 0, 1)
	in.SetSrc(0, ir.NewCodeTarget(0, false))

	_, _, err := a.Encode(in, 0x20_0000_0000, 0x20_0000_0000, true)
	require.ErrorIs(t, err, isa.ErrUnreachable)

	code, reachable, err := a.Encode(in, 0x20_0000_0000, 0x20_0000_0000, false)
	require.NoError(t, err)
	require.False(t, reachable)
	require.Len(t, code, 4)
}
