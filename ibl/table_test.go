package ibl_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecachelabs/dbtcore/ibl"
	"github.com/codecachelabs/dbtcore/isa"
	"github.com/codecachelabs/dbtcore/isa/arm64"
	"github.com/codecachelabs/dbtcore/isa/x86"
	"github.com/codecachelabs/dbtcore/xfer"
)

var bbReturn = xfer.TableKind{Fragment: xfer.FragmentBB, Branch: xfer.BranchReturn}

func TestLookup_MissReachesSentinelPath(t *testing.T) {
	tbl := ibl.NewTable(bbReturn, 8)
	_, hit := tbl.Lookup(0x4000)
	require.False(t, hit)
}

func TestInsertThenLookup_Hit(t *testing.T) {
	tbl := ibl.NewTable(bbReturn, 8)
	require.NoError(t, tbl.Insert(0x1000, 0xA))
	target, hit := tbl.Lookup(0x1000)
	require.True(t, hit)
	require.Equal(t, uint64(0xA), target)
}

// TestLookup_CollisionForcesLinearProbing is spec.md §8 scenario 5
// verbatim: a capacity-8 table holding (0x1000→0xA), (0x2000→0xB),
// (0x3000→0xC) where 0x1000 and 0x2000 collide; looking up 0x2000 must
// succeed via the second probe, and looking up an absent tag must reach
// the sentinel/miss path.
func TestLookup_CollisionForcesLinearProbing(t *testing.T) {
	tbl := ibl.NewTable(bbReturn, 8)
	// Capacity 8 means mask=7; 0x1000&7 == 0 and 0x2000&7 == 0, a genuine
	// collision on this table's hash function (tag&mask).
	require.NoError(t, tbl.Insert(0x1000, 0xA))
	require.NoError(t, tbl.Insert(0x2000, 0xB))
	require.NoError(t, tbl.Insert(0x3000, 0xC))

	target, hit := tbl.Lookup(0x2000)
	require.True(t, hit)
	require.Equal(t, uint64(0xB), target)

	_, hit = tbl.Lookup(0x4000)
	require.False(t, hit)
}

// TestDelete_RewritesTargetSoLookupMisses is spec.md §8 scenario 6: a
// thread's cached hit for a fragment about to be deleted must miss (not
// return the stale prefix) once the collaborator rewrites that entry.
func TestDelete_RewritesTargetSoLookupMisses(t *testing.T) {
	tbl := ibl.NewTable(bbReturn, 8)
	require.NoError(t, tbl.Insert(0x3000, 0xC))

	target, hit := tbl.Lookup(0x3000)
	require.True(t, hit)
	require.Equal(t, uint64(0xC), target)

	require.True(t, tbl.Delete(0x3000))

	_, hit = tbl.Lookup(0x3000)
	require.False(t, hit, "lookup of a deleted tag must reach the miss path, not the stale prefix")
}

func TestInsert_UpdatesExistingTagInPlace(t *testing.T) {
	tbl := ibl.NewTable(bbReturn, 8)
	require.NoError(t, tbl.Insert(0x1000, 0xA))
	require.NoError(t, tbl.Insert(0x1000, 0xAA))
	target, hit := tbl.Lookup(0x1000)
	require.True(t, hit)
	require.Equal(t, uint64(0xAA), target)
}

func TestInsert_ReturnsErrTableFullWhenExhausted(t *testing.T) {
	tbl := ibl.NewTable(bbReturn, 4)
	for i := uint64(0); i < 4; i++ {
		require.NoError(t, tbl.Insert(i+1, i+100))
	}
	require.ErrorIs(t, tbl.Insert(999, 1), ibl.ErrTableFull)
}

func TestNewTable_RoundsCapacityUpToPowerOfTwo(t *testing.T) {
	tbl := ibl.NewTable(bbReturn, 5)
	require.Equal(t, 8, tbl.Capacity())
}

func TestEmitRoutine_WrapsArchEmitIBLRoutine(t *testing.T) {
	for _, a := range []isa.Arch{arm64.New(), x86.New()} {
		buf := make([]byte, 128)
		r := ibl.EmitRoutine(a, buf, 0x1000, 0x9000, bbReturn)
		require.Equal(t, bbReturn, r.Kind)
		require.NotEmpty(t, r.Code)
	}
}
