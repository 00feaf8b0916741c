// Package codecache stands in for the external code-cache allocator
// collaborator spec.md §1 names as out of scope for the core itself
// (allocation *policy* is a Non-goal; SPEC_FULL.md §C.1 still wires a real
// mmap/mprotect-backed allocator so stub/ibl have somewhere genuine to
// write and execute generated code in an integration test). It is built
// directly on golang.org/x/sys/unix, matching the ecosystem's own mmap/
// mprotect wrapper usage rather than hand-rolling syscall numbers.
package codecache

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Region is a single mmap'd range used to stage and then execute generated
// code: writable while fragments/stubs/IBL routines are emitted into it,
// and switched to executable once emission is done, matching W^X practice
// (a real deployment would split write and execute mappings of the same
// physical pages via a second mmap against a memfd; this single-mapping
// toggle is the honest simplification documented here rather than hidden).
type Region struct {
	mem []byte
}

// Allocate reserves size bytes (rounded up to a page) of anonymous,
// initially read-write memory.
func Allocate(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("codecache: invalid size %d", size)
	}
	pageSize := unix.Getpagesize()
	size = (size + pageSize - 1) / pageSize * pageSize

	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("codecache: mmap %d bytes: %w", size, err)
	}
	return &Region{mem: mem}, nil
}

// Bytes returns the region's backing slice. While the region is writable
// (before MakeExecutable), callers write fragment bodies, stubs, and IBL
// routines directly into it via stub.InsertExitStub/encode.Assemble/
// ibl.EmitRoutine.
func (r *Region) Bytes() []byte { return r.mem }

// MakeExecutable switches the region from read-write to read-execute,
// matching the W^X discipline a real code cache allocator enforces (the
// spec leaves allocator policy as an external collaborator, but emitted
// code still has to become runnable to exercise stub/ibl end to end).
func (r *Region) MakeExecutable() error {
	if err := unix.Mprotect(r.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("codecache: mprotect RX: %w", err)
	}
	return nil
}

// MakeWritable switches the region back to read-write, for a subsequent
// patch (spec.md §4.4's link/unlink). Most ISAs covered here patch through
// a single aligned store and never need the region to be simultaneously
// writable and executable; deployments with a hardened W^X code cache call
// MakeWritable/MakeExecutable around each patch.
func (r *Region) MakeWritable() error {
	if err := unix.Mprotect(r.mem, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("codecache: mprotect RW: %w", err)
	}
	return nil
}

// Free unmaps the region.
func (r *Region) Free() error {
	if r.mem == nil {
		return nil
	}
	err := unix.Munmap(r.mem)
	r.mem = nil
	return err
}

// InvalidateICache is the hook for invalidating the instruction cache for
// byte range [lo,hi) of the region after a hot patch (spec.md §4.4). It is
// a no-op on every architecture. On amd64 none is needed: x86's icache is
// kept coherent with data writes by hardware. On arm64 it issues no flush
// either: Go's standard library and golang.org/x/sys expose no portable
// arm64 cache-flush call outside runtime-internal assembly, and this
// method contains no cgo shim around __builtin___clear_cache or the
// cacheflush(2) syscall. arm64 stub patching in this repo is tested at the
// byte level (isa/arm64/stub_test.go), not against a real non-coherent
// cache.
func (r *Region) InvalidateICache(lo, hi int) {
	if runtime.GOARCH != "arm64" {
		return
	}
	_ = lo
	_ = hi
}
