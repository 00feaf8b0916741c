package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codecachelabs/dbtcore/fragment"
	"github.com/codecachelabs/dbtcore/ibl"
	"github.com/codecachelabs/dbtcore/ir"
	"github.com/codecachelabs/dbtcore/isa/arm64"
	"github.com/codecachelabs/dbtcore/isa/x86"
	"github.com/codecachelabs/dbtcore/stub"
	"github.com/codecachelabs/dbtcore/xfer"
)

// scenario is one of spec.md §8's "Concrete scenarios", run against the
// real decode/encode/stub/ibl packages rather than re-describing their
// semantics in prose.
type scenario struct {
	name string
	run  func() error
}

// newDemoCmd runs every concrete scenario spec.md §8 names end to end and
// reports pass/fail, the thin integration surface SPEC_FULL.md §B.5 asks
// the CLI to provide. It exits non-zero if any scenario fails.
func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the spec's round-trip, patching, and IBL scenarios end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			scenarios := []scenario{
				{"1. x86-64 decode/encode round trip (mov %rax, %rbx)", scenarioX86RoundTrip},
				{"2. x86-64 rip-relative LEA relocation", scenarioX86RipRelocation},
				{"3. AArch64 near-linked stub patch", scenarioARM64NearPatch},
				{"4. AArch64 far-linked stub patch", scenarioARM64FarPatch},
				{"5. IBL lookup with linear-probing collision", scenarioIBLCollision},
				{"6. IBL lookup after logical delete", scenarioIBLDelete},
			}

			failed := 0
			for _, s := range scenarios {
				if err := s.run(); err != nil {
					fmt.Fprintf(out, "FAIL  %s: %v\n", s.name, err)
					failed++
					continue
				}
				fmt.Fprintf(out, "PASS  %s\n", s.name)
			}
			if failed > 0 {
				return fmt.Errorf("dbtcore: %d/%d scenarios failed", failed, len(scenarios))
			}
			return nil
		},
	}
	return cmd
}

func scenarioX86RoundTrip() error {
	a := x86.New()
	orig := []byte{0x48, 0x89, 0xC3}

	in, n, err := a.Decode(0x400000, ir.ModeDefault, orig)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if n != len(orig) {
		return fmt.Errorf("decode consumed %d bytes, want %d", n, len(orig))
	}

	code, _, err := a.Encode(in, 0x400000, 0x400000, true)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if hex.EncodeToString(code) != hex.EncodeToString(orig) {
		return fmt.Errorf("re-encoded to %x, want %x", code, orig)
	}
	return nil
}

func scenarioX86RipRelocation() error {
	a := x86.New()
	const origPC = uint64(0x1000)
	b := []byte{0x48, 0x8D, 0x05, 0x11, 0x22, 0x33, 0x44}

	in, n, err := a.Decode(origPC, ir.ModeDefault, b)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	wantTarget := origPC + uint64(n) + 0x44332211
	if got := in.Src(0).Target(); got != wantTarget {
		return fmt.Errorf("rip-relative target %#x, want %#x", got, wantTarget)
	}

	const dstPC = uint64(0x2000)
	code, _, err := a.Encode(in, dstPC, dstPC, true)
	if err != nil {
		return fmt.Errorf("encode at new pc: %w", err)
	}
	wantDisp := int32(wantTarget - (dstPC + uint64(len(code))))
	gotDisp := int32(code[3]) | int32(code[4])<<8 | int32(code[5])<<16 | int32(code[6])<<24
	if gotDisp != wantDisp {
		return fmt.Errorf("re-encoded displacement %#x, want %#x", gotDisp, wantDisp)
	}
	return nil
}

// newDirectExit builds a fresh unlinked AArch64 exit stub in a byte slice
// sized exactly to a.StubSize(), the shape scenarios 3 and 4 both patch.
func newDirectExit(a *arm64.Arch, stubPC uint64) ([]byte, *fragment.LinkStub) {
	ls := &fragment.LinkStub{Flags: fragment.LinkDirect, Branch: xfer.BranchIndJmp}
	dst := make([]byte, a.StubSize())
	stub.InsertExitStub(a, dst, stubPC, ls)
	return dst, ls
}

func scenarioARM64NearPatch() error {
	a := arm64.New()
	const stubPC = uint64(0x30000000)
	const targetPC = uint64(0x30001000)

	dst, ls := newDirectExit(a, stubPC)
	stub.PatchStub(a, dst, stubPC, targetPC, ls, false, nil)

	if !stub.StubIsPatched(a, dst) {
		return fmt.Errorf("stub_is_patched false after patching")
	}
	if ls.Flags.IsFar() {
		return fmt.Errorf("expected a near link, got a far link")
	}
	wantHead := []byte{0x00, 0x04, 0x00, 0x14} // B #+0x1000 (imm26=0x400)
	if hex.EncodeToString(dst[0:4]) != hex.EncodeToString(wantHead) {
		return fmt.Errorf("head word %x, want %x", dst[0:4], wantHead)
	}
	return nil
}

func scenarioARM64FarPatch() error {
	a := arm64.New()
	const stubPC = uint64(0x30000000)
	const targetPC = uint64(0x38000000) // exactly at the B-immediate's ±128MiB edge

	if a.ExitCTIReaches(stubPC, targetPC) {
		return fmt.Errorf("expected target to exceed near-branch range")
	}

	dst, ls := newDirectExit(a, stubPC)
	stub.PatchStub(a, dst, stubPC, targetPC, ls, false, nil)

	if !ls.Flags.IsFar() {
		return fmt.Errorf("expected a far link, got a near link")
	}
	gotTarget := getU64LE(dst[8:16])
	if gotTarget != targetPC {
		return fmt.Errorf("data slot holds %#x, want %#x", gotTarget, targetPC)
	}
	return nil
}

func getU64LE(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func scenarioIBLCollision() error {
	const capacity = 8
	t := ibl.NewTable(xfer.TableKind{Fragment: xfer.FragmentBB, Branch: xfer.BranchIndJmp}, capacity)

	// 0x1000, 0x2000, 0x3000 all reduce to the same bucket mod 8, forcing
	// 0x2000 and 0x3000 to probe past 0x1000's slot.
	entries := []struct{ tag, target uint64 }{
		{0x1000, 0xA},
		{0x2000, 0xB},
		{0x3000, 0xC},
	}
	for _, e := range entries {
		if e.tag&uint64(capacity-1) != entries[0].tag&uint64(capacity-1) {
			return fmt.Errorf("fixture bug: tag %#x does not collide with %#x", e.tag, entries[0].tag)
		}
		if err := t.Insert(e.tag, e.target); err != nil {
			return fmt.Errorf("insert %#x: %w", e.tag, err)
		}
	}

	if target, hit := t.Lookup(0x2000); !hit || target != 0xB {
		return fmt.Errorf("lookup 0x2000 = (%#x, %v), want (0xB, true)", target, hit)
	}
	if _, hit := t.Lookup(0x4000); hit {
		return fmt.Errorf("lookup 0x4000 unexpectedly hit")
	}
	return nil
}

func scenarioIBLDelete() error {
	t := ibl.NewTable(xfer.TableKind{Fragment: xfer.FragmentBB, Branch: xfer.BranchIndJmp}, 8)
	if err := t.Insert(0x3000, 0xC); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if target, hit := t.Lookup(0x3000); !hit || target != 0xC {
		return fmt.Errorf("lookup before delete = (%#x, %v), want (0xC, true)", target, hit)
	}

	if ok := t.Delete(0x3000); !ok {
		return fmt.Errorf("delete reported tag not found")
	}
	if _, hit := t.Lookup(0x3000); hit {
		return fmt.Errorf("lookup after delete still hits")
	}
	return nil
}
