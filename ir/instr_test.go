package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInstructionDstSrcAccessors(t *testing.T) {
	in := NewInstruction(42, 2, 3)
	require.Equal(t, 2, in.NumDsts())
	require.Equal(t, 3, in.NumSrcs())

	in.SetDst(0, NewReg(1))
	in.SetDst(1, NewReg(2))
	in.SetSrc(0, NewImmedInt(7, false, 4))
	in.SetSrc(1, NewReg(3))
	in.SetSrc(2, NullOperand())

	require.Equal(t, RegID(1), in.Dst(0).Reg())
	require.Equal(t, RegID(2), in.Dst(1).Reg())
	v, _ := in.Src(0).ImmedInt()
	require.Equal(t, int64(7), v)
	require.True(t, in.Src(2).IsNull())
}

func TestInstructionFlagsAreIndependentBits(t *testing.T) {
	in := NewInstruction(1, 0, 0)
	in.Flags = FlagLock | FlagRexW
	require.NotZero(t, in.Flags&FlagLock)
	require.NotZero(t, in.Flags&FlagRexW)
	require.Zero(t, in.Flags&FlagVexL)
	require.Zero(t, in.Flags&FlagBranchHint)
}

func TestInstructionMetaDistinguishesFromAppInstr(t *testing.T) {
	app := NewInstruction(1, 0, 0)
	meta := NewInstruction(2, 0, 0)
	meta.Meta = true
	require.False(t, app.Meta)
	require.True(t, meta.Meta)
}
