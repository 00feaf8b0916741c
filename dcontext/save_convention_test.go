package dcontext_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecachelabs/dbtcore/dcontext"
	"github.com/codecachelabs/dbtcore/ir"
)

const (
	rA ir.RegID = iota + 1
	rB
	rC
)

func TestRegistersToSave_DropsRegisterOverwrittenBeforeRead(t *testing.T) {
	// callee: rA = rB + 0 (writes rA without ever reading it); rC untouched.
	callee := ir.NewInstrList()
	mov := ir.NewInstruction(1, 1, 1)
	mov.SetDst(0, ir.NewReg(rA))
	mov.SetSrc(0, ir.NewReg(rB))
	callee.Append(mov)

	sc := dcontext.NewSaveConvention()
	got := sc.RegistersToSave([]ir.RegID{rA, rB, rC}, callee)

	require.Equal(t, []ir.RegID{rB, rC}, got, "rA is dead on entry to callee, rB is read and rC is never touched so both must still be saved")
}

func TestRegistersToSave_KeepsRegisterReadBeforeWritten(t *testing.T) {
	// callee: rB = rA + rA (reads rA before any write), then rA = 0.
	callee := ir.NewInstrList()
	add := ir.NewInstruction(1, 1, 2)
	add.SetDst(0, ir.NewReg(rB))
	add.SetSrc(0, ir.NewReg(rA))
	add.SetSrc(1, ir.NewReg(rA))
	callee.Append(add)

	zero := ir.NewInstruction(1, 1, 0)
	zero.SetDst(0, ir.NewReg(rA))
	callee.Append(zero)

	sc := dcontext.NewSaveConvention()
	got := sc.RegistersToSave([]ir.RegID{rA, rB}, callee)

	require.Equal(t, []ir.RegID{rA}, got, "rA's first use is a read, so the caller's value must be saved despite the later overwrite; rB is written before any read, so it is dead on entry and dropped")
}

func TestRegistersToSave_EmptyCalleeSavesEverything(t *testing.T) {
	sc := dcontext.NewSaveConvention()
	got := sc.RegistersToSave([]ir.RegID{rA, rB}, ir.NewInstrList())
	require.Equal(t, []ir.RegID{rA, rB}, got)
}
