package arm64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecachelabs/dbtcore/ir"
)

func TestDecode_BCondRoundTripsPredicateAndTarget(t *testing.T) {
	a := New()
	const pc = uint64(0x1000)

	in := ir.NewInstruction(OpBCond, 0, 1)
	in.Predicate = condNE.toIRPredicate()
	in.SetSrc(0, ir.NewCodeTarget(pc+64, false))

	code, reachable, err := a.Encode(in, pc, pc, true)
	require.NoError(t, err)
	require.True(t, reachable)

	back, n, err := a.Decode(pc, ir.ModeDefault, code)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, OpBCond, back.Opcode)
	require.Equal(t, pc+64, back.Src(0).Target())
	c, ok := fromIRPredicate(back.Predicate)
	require.True(t, ok)
	require.Equal(t, condNE, c)
}

func TestDecode_LdrStrImmediateRoundTrip(t *testing.T) {
	a := New()
	const pc = uint64(0x2000)

	str := ir.NewInstruction(OpSTRImm, 0, 2)
	str.SetSrc(0, ir.NewReg(x5))
	str.SetSrc(1, ir.NewBaseDisp(ir.RegInvalid, x6, ir.RegInvalid, ir.Scale1, 24, 8))

	code, _, err := a.Encode(str, pc, pc, true)
	require.NoError(t, err)

	back, n, err := a.Decode(pc, ir.ModeDefault, code)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, OpSTRImm, back.Opcode)
	require.Equal(t, x5, back.Src(0).Reg())
	_, base, _, _, disp := back.Src(1).BaseDisp()
	require.Equal(t, x6, base)
	require.EqualValues(t, 24, disp)
}

func TestDecode_InvalidOpcodeOnUnallocatedEncoding(t *testing.T) {
	a := New()
	// All-ones word: not a defined instruction in this port's slice.
	_, n, err := a.Decode(0, ir.ModeDefault, []byte{0xFF, 0xFF, 0xFF, 0xFF})
	require.Error(t, err)
	require.Equal(t, 4, n)
}

func TestDecodeCTI_SkipsNonControlTransferInstructions(t *testing.T) {
	a := New()
	nopCode := make([]byte, 4)
	putWord(nopCode, 0xD503201F)

	in, n, err := a.DecodeCTI(0, ir.ModeDefault, nopCode)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, ir.OpInvalid, in.Opcode)
	require.True(t, in.RawValid)
}

func TestDecodeCTI_FullyDecodesBranches(t *testing.T) {
	a := New()
	const pc = uint64(0x8000)
	b := ir.NewInstruction(OpB, 0, 1)
	b.SetSrc(0, ir.NewCodeTarget(pc+16, false))
	code, _, err := a.Encode(b, pc, pc, true)
	require.NoError(t, err)

	in, n, err := a.DecodeCTI(pc, ir.ModeDefault, code)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, OpB, in.Opcode)
	require.Equal(t, pc+16, in.Src(0).Target())
}
