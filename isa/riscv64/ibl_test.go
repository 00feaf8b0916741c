package riscv64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecachelabs/dbtcore/xfer"
)

func TestEmitIBLRoutine_FixedLengthAndMissBranchResolves(t *testing.T) {
	a := New()
	const entryPC = 0x5000_0000
	const fcacheReturnPC = 0x5000_1000

	for _, kind := range xfer.AllTableKinds() {
		dst := make([]byte, 128)
		n := a.EmitIBLRoutine(dst, entryPC, fcacheReturnPC, kind)
		require.Equal(t, 72, n)

		// Every emitted word must be a recognizable instruction in this
		// port's opcode slice; a zero/garbage word would indicate an
		// offset bug in the hand-assembled layout.
		for off := 0; off+4 <= n; off += 4 {
			_, length, err := a.Decode(entryPC+uint64(off), 0, dst[off:off+4])
			require.NoError(t, err, "offset %d", off)
			require.Equal(t, 4, length)
		}

		// The final instruction is the jump to fcache_return; confirm its
		// displacement resolves to the requested address.
		final, _, err := a.Decode(entryPC+68, 0, dst[68:72])
		require.NoError(t, err)
		require.Equal(t, OpJAL, final.Opcode)
		require.Equal(t, uint64(fcacheReturnPC), final.Src(0).Target())
	}
}

func TestEmitIBLRoutine_DistinctTableKindsUseDistinctOffsets(t *testing.T) {
	a := New()
	bbRet := make([]byte, 128)
	traceIndCall := make([]byte, 128)
	a.EmitIBLRoutine(bbRet, 0x1000, 0x9000, xfer.TableKind{Fragment: xfer.FragmentBB, Branch: xfer.BranchReturn})
	a.EmitIBLRoutine(traceIndCall, 0x1000, 0x9000, xfer.TableKind{Fragment: xfer.FragmentTrace, Branch: xfer.BranchIndCall})

	// The leading two LDs read the table's base/mask slot, which differs
	// per TableKind; the routines must not be byte-identical.
	require.NotEqual(t, bbRet[0:8], traceIndCall[0:8])
}
