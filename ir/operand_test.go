package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOperandConstructorsAndPredicates(t *testing.T) {
	t.Run("null", func(t *testing.T) {
		o := NullOperand()
		require.True(t, o.IsNull())
		require.False(t, o.IsMemoryReference())
	})

	t.Run("immed int", func(t *testing.T) {
		o := NewImmedInt(-128, true, 1)
		require.True(t, o.IsImmedInt())
		v, signed := o.ImmedInt()
		require.Equal(t, int64(-128), v)
		require.True(t, signed)
		require.Equal(t, 1, o.Size())
	})

	t.Run("immed float", func(t *testing.T) {
		o := NewImmedFloat(0x3f800000, 4)
		require.True(t, o.IsImmedFloat())
		require.Equal(t, uint64(0x3f800000), o.ImmedFloatBits())
	})

	t.Run("reg", func(t *testing.T) {
		o := NewReg(RegID(5))
		require.True(t, o.IsReg())
		require.Equal(t, RegID(5), o.Reg())
	})

	t.Run("base disp defaults", func(t *testing.T) {
		o := NewBaseDisp(RegInvalid, RegID(1), RegID(2), Scale4, 0x10, 8)
		require.True(t, o.IsBaseDisp())
		require.True(t, o.IsMemoryReference())
		seg, base, index, scale, disp := o.BaseDisp()
		require.Equal(t, RegInvalid, seg)
		require.Equal(t, RegID(1), base)
		require.Equal(t, RegID(2), index)
		require.Equal(t, Scale4, scale)
		require.Equal(t, int32(0x10), disp)
		require.False(t, o.ShortAddrRequested())
		require.False(t, o.ForceFullDispRequested())
	})

	t.Run("base disp opts", func(t *testing.T) {
		o := NewBaseDisp(RegInvalid, RegID(1), RegInvalid, Scale1, 1, 4, ShortAddr(), ForceFullDisp())
		require.True(t, o.ShortAddrRequested())
		require.True(t, o.ForceFullDispRequested())
	})

	t.Run("pc rel and abs addr are memory references, code target is not", func(t *testing.T) {
		pcrel := NewPCRel(0x1000, 8)
		abs := NewAbsAddr(0x2000, 4)
		code := NewCodeTarget(0x3000, false)
		require.True(t, pcrel.IsMemoryReference())
		require.True(t, abs.IsMemoryReference())
		require.False(t, code.IsMemoryReference())
		require.True(t, code.IsCodeTarget())
		require.False(t, code.IsFarTarget())
		far := NewCodeTarget(0x4000, true)
		require.True(t, far.IsFarTarget())
	})

	t.Run("instr ref", func(t *testing.T) {
		target := NewInstruction(OpInvalid, 0, 0)
		o := NewInstrRef(target)
		require.True(t, o.IsInstrRef())
		require.Same(t, target, o.InstrRef())
	})

	t.Run("reg list copies", func(t *testing.T) {
		regs := []RegID{1, 2, 3}
		o := NewRegList(regs)
		require.True(t, o.IsRegList())
		got := o.RegListElems()
		require.Equal(t, regs, got)
		regs[0] = 99
		require.Equal(t, RegID(1), o.RegListElems()[0], "constructor must copy, not alias")
		got[1] = 77
		require.Equal(t, RegID(2), o.RegListElems()[1], "accessor must copy, not alias internal state")
	})

	t.Run("kinds are mutually exclusive except memory-reference union", func(t *testing.T) {
		ops := []Operand{
			NullOperand(),
			NewImmedInt(1, false, 1),
			NewImmedFloat(0, 4),
			NewReg(1),
			NewBaseDisp(RegInvalid, 1, RegInvalid, Scale1, 0, 4),
			NewPCRel(0, 4),
			NewAbsAddr(0, 4),
			NewCodeTarget(0, false),
			NewInstrRef(NewInstruction(OpInvalid, 0, 0)),
			NewRegList(nil),
		}
		for _, o := range ops {
			count := 0
			for _, b := range []bool{
				o.IsNull(), o.IsImmedInt(), o.IsImmedFloat(), o.IsReg(),
				o.IsBaseDisp(), o.IsPCRel(), o.IsAbsAddr(), o.IsCodeTarget(),
				o.IsInstrRef(), o.IsRegList(),
			} {
				if b {
					count++
				}
			}
			require.Equal(t, 1, count, "exactly one predicate must hold for kind %v", o.Kind())
		}
	})
}
