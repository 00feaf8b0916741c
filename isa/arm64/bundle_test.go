package arm64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecachelabs/dbtcore/ir"
)

func ldxrStxrPair(t *testing.T) (*Arch, *ir.InstrList, *ir.Instruction, *ir.Instruction) {
	t.Helper()
	a := New()

	ldxr, n, err := a.Decode(0x1000, ir.ModeDefault, encodeWordBytes(t, a, OpLDXR, 0 /* x0 */, 1 /* x1 */, 0, 8))
	require.NoError(t, err)
	require.Equal(t, 4, n)

	stxr, n, err := a.Decode(0x1004, ir.ModeDefault, encodeWordBytes(t, a, OpSTXR, 2 /* w2 */, 1 /* x1 */, 0 /* x0 */, 8))
	require.NoError(t, err)
	require.Equal(t, 4, n)

	list := ir.NewInstrList()
	list.Append(ldxr)
	list.Append(stxr)
	return a, list, ldxr, stxr
}

// encodeWordBytes builds an LDXR/STXR Instruction from raw register
// numbers (rd, rn, rs arguments) and encodes it through Encode, so tests
// can name the operands by number instead of building the Instruction.
func encodeWordBytes(t *testing.T, a *Arch, op ir.Opcode, rd, rn, rsOrRt uint32, size int) []byte {
	t.Helper()
	in := ir.NewInstruction(op, 1, 1)
	mem := ir.NewBaseDisp(ir.RegInvalid, gpr(rn, true), ir.RegInvalid, ir.Scale1, 0, size)
	switch op {
	case OpLDXR:
		in.SetDst(0, ir.NewReg(gpr(rd, size == 8)))
		in.SetSrc(0, mem)
	case OpSTXR:
		in2 := ir.NewInstruction(op, 1, 2)
		in2.SetDst(0, ir.NewReg(gpr(rd, false)))
		in2.SetSrc(0, ir.NewReg(gpr(rsOrRt, size == 8)))
		in2.SetSrc(1, mem)
		code, _, err := a.Encode(in2, 0, 0, true)
		require.NoError(t, err)
		return code
	}
	code, _, err := a.Encode(in, 0, 0, true)
	require.NoError(t, err)
	return code
}

func TestBundleLoadStoreExclusive_MergesContiguousLdexStex(t *testing.T) {
	a, list, ldxr, stxr := ldxrStxrPair(t)

	ok := a.BundleLoadStoreExclusive(list)
	require.True(t, ok)
	require.Equal(t, 1, list.Len())

	bundle := list.First()
	require.Equal(t, OpLdStEx, bundle.Opcode)
	require.Equal(t, append(append([]byte{}, ldxr.RawBytes...), stxr.RawBytes...), bundle.RawBytes)
	require.Equal(t, ldxr.NumDsts()+stxr.NumDsts(), bundle.NumDsts())
	require.Equal(t, ldxr.NumSrcs()+stxr.NumSrcs(), bundle.NumSrcs())
}

func TestBundleLoadStoreExclusive_NoOpWithoutAMatchingStore(t *testing.T) {
	a := New()
	list := ir.NewInstrList()
	ldxr, _, err := a.Decode(0x1000, ir.ModeDefault, encodeWordBytes(t, a, OpLDXR, 0, 1, 0, 8))
	require.NoError(t, err)
	list.Append(ldxr)
	nop := ir.NewInstruction(OpNop, 0, 0)
	list.Append(nop)

	ok := a.BundleLoadStoreExclusive(list)
	require.False(t, ok)
	require.Equal(t, 2, list.Len())
}

func TestBundleLoadStoreExclusive_StopsAtAnInterveningBranch(t *testing.T) {
	a := New()
	list := ir.NewInstrList()
	ldxr, _, err := a.Decode(0x1000, ir.ModeDefault, encodeWordBytes(t, a, OpLDXR, 0, 1, 0, 8))
	require.NoError(t, err)
	list.Append(ldxr)

	ret := ir.NewInstruction(OpRet, 0, 1)
	ret.SetSrc(0, ir.NewReg(gpr(30, true)))
	list.Append(ret)

	stxr, _, err := a.Decode(0x1008, ir.ModeDefault, encodeWordBytes(t, a, OpSTXR, 2, 1, 0, 8))
	require.NoError(t, err)
	list.Append(stxr)

	ok := a.BundleLoadStoreExclusive(list)
	require.False(t, ok, "a branch between ldxr and stxr must not be swallowed into the bundle")
	require.Equal(t, 3, list.Len())
}
