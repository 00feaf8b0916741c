package codecache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecachelabs/dbtcore/codecache"
	"github.com/codecachelabs/dbtcore/ir"
	"github.com/codecachelabs/dbtcore/isa/arm64"
)

func TestAllocate_RegionIsWritableThenExecutable(t *testing.T) {
	region, err := codecache.Allocate(4096)
	require.NoError(t, err)
	defer region.Free()

	a := arm64.New()
	nop := ir.NewInstruction(arm64.OpNop, 0, 0)
	code, _, err := a.Encode(nop, 0, 0, true)
	require.NoError(t, err)

	copy(region.Bytes(), code)
	require.NoError(t, region.MakeExecutable())
	require.Equal(t, code, region.Bytes()[:len(code)])
}

func TestAllocate_RoundsUpToPageSize(t *testing.T) {
	region, err := codecache.Allocate(1)
	require.NoError(t, err)
	defer region.Free()
	require.GreaterOrEqual(t, len(region.Bytes()), 4096)
}

func TestAllocate_RejectsNonPositiveSize(t *testing.T) {
	_, err := codecache.Allocate(0)
	require.Error(t, err)
}
