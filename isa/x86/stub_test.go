package x86

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecachelabs/dbtcore/fragment"
)

func TestStub_NearLink(t *testing.T) {
	a := New()
	dst := make([]byte, a.StubSize())

	ls := &fragment.LinkStub{TargetTag: 0x40_1000, Flags: fragment.LinkDirect}
	a.EmitStubUnlinked(dst, ls)
	require.False(t, a.StubIsPatched(dst))

	const stubPC = 0x40_0000
	const targetPC = 0x40_1000
	n := a.EmitStubNearLinked(dst[:5], stubPC, targetPC)
	require.Equal(t, 5, n)
	require.True(t, a.StubIsPatched(dst))
	require.True(t, a.ExitCTIReaches(stubPC, targetPC))

	decoded, consumed, err := a.Decode(stubPC, 0, dst[0:5])
	require.NoError(t, err)
	require.Equal(t, 5, consumed)
	require.Equal(t, OpJmpRel, decoded.Opcode)
	require.Equal(t, uint64(targetPC), decoded.Src(0).Target())
}

func TestStub_FarLink(t *testing.T) {
	a := New()
	dst := make([]byte, a.StubSize())
	ls := &fragment.LinkStub{TargetTag: 0x1_4000_0000, Flags: fragment.LinkDirect | fragment.LinkFar}
	a.EmitStubUnlinked(dst, ls)

	const stubPC = 0x40_0000
	const targetPC = 0x1_4000_0000 // about 5GiB past stubPC, beyond rel32 reach, so a caller picks the far form.
	n, dataSlotOff := a.EmitStubFarLinked(dst, stubPC)
	require.Equal(t, 6, n)
	require.Equal(t, 16, dataSlotOff)

	binary.LittleEndian.PutUint64(dst[dataSlotOff:dataSlotOff+8], targetPC)
	require.True(t, a.StubIsPatched(dst))
}

func TestStub_FillWithNopsProducesValidNops(t *testing.T) {
	a := New()
	buf := make([]byte, 16)
	a.FillWithNops(buf)
	for _, b := range buf {
		require.Equal(t, byte(0x90), b)
	}
}

func TestStub_PatchBranchRewritesTarget(t *testing.T) {
	a := New()
	dst := make([]byte, a.StubSize())
	ls := &fragment.LinkStub{}
	a.EmitStubUnlinked(dst, ls)
	a.EmitStubNearLinked(dst[:5], 0x1000, 0x2000)

	require.NoError(t, a.PatchBranch(dst[0:5], 0x1000, 0x3000, true))
	decoded, _, err := a.Decode(0x1000, 0, dst[0:5])
	require.NoError(t, err)
	require.Equal(t, uint64(0x3000), decoded.Src(0).Target())
}

func TestStub_ExitCTIReachesIsBoundedBySignedRel32(t *testing.T) {
	a := New()
	require.True(t, a.ExitCTIReaches(0, 0x7FFF_FF00))
	require.False(t, a.ExitCTIReaches(0, 0x1_0000_0000))
}
