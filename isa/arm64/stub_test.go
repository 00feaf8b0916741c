package arm64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecachelabs/dbtcore/fragment"
)

// scenario 3 (spec.md §8): patch an exit stub at 0x3000_0000 to target
// 0x3000_1000, a near (in-range) link.
func TestStub_NearLink(t *testing.T) {
	a := New()
	dst := make([]byte, a.StubSize())

	ls := &fragment.LinkStub{TargetTag: 0x3000_1000, Flags: fragment.LinkDirect}
	a.EmitStubUnlinked(dst, ls)
	require.False(t, a.StubIsPatched(dst))

	const stubPC = 0x3000_0000
	const targetPC = 0x3000_1000
	n := a.EmitStubNearLinked(dst[:4], stubPC, targetPC)
	require.Equal(t, 4, n)
	require.True(t, a.StubIsPatched(dst))
	require.True(t, a.ExitCTIReaches(stubPC, targetPC))

	decoded, _, err := a.Decode(stubPC, 0, dst[0:4])
	require.NoError(t, err)
	require.Equal(t, OpB, decoded.Opcode)
	require.Equal(t, uint64(targetPC), decoded.Src(0).Target())
}

// scenario 4 (spec.md §8): patch to 0x3800_0000, far enough that a direct
// B cannot reach, requiring the data-slot form.
func TestStub_FarLink(t *testing.T) {
	a := New()
	dst := make([]byte, a.StubSize())
	ls := &fragment.LinkStub{TargetTag: 0x3800_0000, Flags: fragment.LinkDirect | fragment.LinkFar}
	a.EmitStubUnlinked(dst, ls)

	const stubPC = 0x3000_0000
	const targetPC = 0x3800_0000 // exactly 128MiB away: one word past B's +128MiB-4 forward reach.
	require.False(t, a.ExitCTIReaches(stubPC, targetPC))

	n, dataSlotOff := a.EmitStubFarLinked(dst, stubPC)
	require.Equal(t, 8, n)
	require.Equal(t, 8, dataSlotOff)

	// Atomic patching contract: data slot must be written before the head
	// instruction becomes visible; here we just verify the final state.
	putWordLE(dst[dataSlotOff:dataSlotOff+8], targetPC)
	require.True(t, a.StubIsPatched(dst))
}

func TestStub_FillWithNopsProducesValidNops(t *testing.T) {
	a := New()
	buf := make([]byte, 16)
	a.FillWithNops(buf)
	for off := 0; off < len(buf); off += 4 {
		in, n, err := a.Decode(0, 0, buf[off:off+4])
		require.NoError(t, err)
		require.Equal(t, 4, n)
		require.Equal(t, OpNop, in.Opcode)
	}
}

func TestStub_PatchBranchRewritesTarget(t *testing.T) {
	a := New()
	dst := make([]byte, a.StubSize())
	ls := &fragment.LinkStub{}
	a.EmitStubUnlinked(dst, ls)
	a.EmitStubNearLinked(dst[:4], 0x1000, 0x2000)

	require.NoError(t, a.PatchBranch(dst[0:4], 0x1000, 0x3000, true))
	decoded, _, err := a.Decode(0x1000, 0, dst[0:4])
	require.NoError(t, err)
	require.Equal(t, uint64(0x3000), decoded.Src(0).Target())
}

func putWordLE(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}
