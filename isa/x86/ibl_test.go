package x86

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecachelabs/dbtcore/xfer"
)

// Unlike arm64's fixed 4-byte instruction width, several of this routine's
// instructions (the %fs-relative SIB-addressed loads/stores) fall outside
// decode.go's supported slice by design, so these tests check the
// hand-assembled bytes directly rather than round-tripping through Decode.
func TestEmitIBLRoutine_FixedLength(t *testing.T) {
	a := New()
	const entryPC = 0x5000_0000
	const fcacheReturnPC = 0x5000_1000

	for _, kind := range xfer.AllTableKinds() {
		dst := make([]byte, 128)
		n := a.EmitIBLRoutine(dst, entryPC, fcacheReturnPC, kind)
		require.Equal(t, 81, n)
	}
}

func TestEmitIBLRoutine_MissBranchResolvesToFcacheReturn(t *testing.T) {
	a := New()
	const entryPC = 0x5000_0000
	const fcacheReturnPC = 0x5000_1000
	dst := make([]byte, 128)
	a.EmitIBLRoutine(dst, entryPC, fcacheReturnPC, xfer.TableKind{Fragment: xfer.FragmentBB, Branch: xfer.BranchReturn})

	const offJmpRet = 76
	require.Equal(t, byte(0xE9), dst[offJmpRet])
	disp := int32(getU32(dst[offJmpRet+1 : offJmpRet+5]))
	require.Equal(t, uint64(fcacheReturnPC), uint64(int64(entryPC+offJmpRet+5)+int64(disp)))
}

func TestEmitIBLRoutine_HitPathReadsTargetAndJumpsIndirect(t *testing.T) {
	a := New()
	dst := make([]byte, 128)
	a.EmitIBLRoutine(dst, 0x1000, 0x9000, xfer.TableKind{Fragment: xfer.FragmentBB, Branch: xfer.BranchReturn})

	const offHit = 61
	// MOV rax, [rcx+8]: REX.W, 0x8B, ModRM(mod=01,reg=rax,rm=rcx), disp8=8.
	require.Equal(t, []byte{0x48, 0x8B, 0x41, 0x08}, dst[offHit:offHit+4])

	const offJmpRax = 65
	require.Equal(t, []byte{0xFF, 0xE0}, dst[offJmpRax:offJmpRax+2]) // JMP rax
}

func TestEmitIBLRoutine_DistinctTableKindsUseDistinctOffsets(t *testing.T) {
	a := New()
	bbRet := make([]byte, 128)
	traceIndCall := make([]byte, 128)
	a.EmitIBLRoutine(bbRet, 0x1000, 0x9000, xfer.TableKind{Fragment: xfer.FragmentBB, Branch: xfer.BranchReturn})
	a.EmitIBLRoutine(traceIndCall, 0x1000, 0x9000, xfer.TableKind{Fragment: xfer.FragmentTrace, Branch: xfer.BranchIndCall})

	// The leading two loads read the table's base/mask slot, which differs
	// per TableKind; the routines must not be byte-identical.
	require.NotEqual(t, bbRet[0:18], traceIndCall[0:18])
}
