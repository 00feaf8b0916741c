package encode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecachelabs/dbtcore/encode"
	"github.com/codecachelabs/dbtcore/ir"
	"github.com/codecachelabs/dbtcore/isa/arm64"
)

func TestAssemble_ResolvesInstrRefLabelBackwards(t *testing.T) {
	a := arm64.New()
	list := ir.NewInstrList()

	target := ir.NewInstruction(arm64.OpNop, 0, 0)
	list.Append(target)

	loop := ir.NewInstruction(arm64.OpB, 0, 1)
	loop.SetSrc(0, ir.NewInstrRef(target))
	list.Append(loop)

	const startPC = 0x4000
	code, err := encode.Assemble(a, list, startPC, true)
	require.NoError(t, err)
	require.Len(t, code, 8)

	back, n, err := a.Decode(startPC+4, ir.ModeDefault, code[4:])
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, arm64.OpB, back.Opcode)
	require.Equal(t, uint64(startPC), back.Src(0).Target())
}

func TestAssemble_ResolvesInstrRefLabelForwards(t *testing.T) {
	a := arm64.New()
	list := ir.NewInstrList()

	skip := ir.NewInstruction(arm64.OpB, 0, 1)
	list.Append(skip)

	target := ir.NewInstruction(arm64.OpNop, 0, 0)
	list.Append(target)
	skip.SetSrc(0, ir.NewInstrRef(target))

	const startPC = 0x8000
	code, err := encode.Assemble(a, list, startPC, true)
	require.NoError(t, err)
	require.Len(t, code, 8)

	back, _, err := a.Decode(startPC, ir.ModeDefault, code)
	require.NoError(t, err)
	require.Equal(t, arm64.OpB, back.Opcode)
	require.Equal(t, uint64(startPC+4), back.Src(0).Target())
}

func TestAssemble_UnreachableBranchReportsError(t *testing.T) {
	a := arm64.New()
	list := ir.NewInstrList()
	br := ir.NewInstruction(arm64.OpB, 0, 1)
	br.SetSrc(0, ir.NewCodeTarget(0, false))
	list.Append(br)

	_, err := encode.Assemble(a, list, 0x20_0000_0000, true)
	require.ErrorIs(t, err, encode.ErrUnreachable)
}
