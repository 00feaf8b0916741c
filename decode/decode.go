// Package decode is the generic driver over one isa.Arch port's Decode/
// DecodeCTI (spec.md §4.2): it adds the one behavior no single port should
// duplicate, logging an undecodable byte sequence, and block-at-a-time
// decoding that stops at the first control transfer instruction the way a
// translator building one basic block's IR needs.
package decode

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/codecachelabs/dbtcore/ir"
	"github.com/codecachelabs/dbtcore/isa"
)

// ErrInvalidOpcode re-exports isa.ErrInvalidOpcode under this package's
// name, per SPEC_FULL.md §B.2's error-naming convention (decode.*,
// encode.*, ibl.* sentinels even though the underlying classification is
// shared across every port via the isa package).
var ErrInvalidOpcode = isa.ErrInvalidOpcode

// Decode wraps a.Decode, logging at warn level when the byte sequence at pc
// does not decode (spec.md §7: "not a fatal error — callers decide whether
// to treat as a guest-visible trap", but always worth a log line since it's
// the one unconditional-failure path in the whole pipeline). log must not
// be nil; pass logging.Nop() to discard.
func Decode(a isa.Arch, log *zap.Logger, pc uint64, mode ir.Mode, b []byte) (*ir.Instruction, int, error) {
	in, n, err := a.Decode(pc, mode, b)
	if err != nil && (errors.Is(err, isa.ErrInvalidOpcode) || errors.Is(err, isa.ErrUndefinedEncoding)) {
		log.Warn("decode: undecodable byte sequence",
			zap.Uint64("pc", pc), zap.String("arch", a.Name()), zap.Error(err))
	}
	return in, n, err
}

// exclusiveBundler is implemented by ports that need to fuse a
// load/store-exclusive pair into one macro-instruction before handing the
// block to a mangler (spec.md §4.2.1; isa/arm64.Arch is the only
// implementer today). Block stays isa-agnostic: it type-asserts for this
// rather than importing any one port.
type exclusiveBundler interface {
	BundleLoadStoreExclusive(list *ir.InstrList) bool
}

// Block decodes instructions from b starting at pc until a control
// transfer instruction is consumed (inclusive) or maxBytes bytes have been
// read, whichever comes first, matching the translator's "decode a guest
// basic block" data flow (spec.md §2). It uses DecodeCTI purely to
// classify each instruction's kind cheaply before doing the full Decode
// every instruction needs for mangling; see DecodeCTI's doc comment in
// isa/arch.go for why that classification alone is fast. On ports
// implementing exclusiveBundler, any load/store-exclusive run within the
// block is fused into a single macro-instruction before Block returns, so
// a later mangling pass can never split it.
func Block(a isa.Arch, log *zap.Logger, pc uint64, mode ir.Mode, b []byte, maxBytes int) (*ir.InstrList, int, error) {
	list := ir.NewInstrList()
	consumed := 0
	for consumed < maxBytes && consumed < len(b) {
		cur := pc + uint64(consumed)
		window := b[consumed:]

		cti, _, ctiErr := a.DecodeCTI(cur, mode, window)
		isCTI := ctiErr == nil && cti.Opcode != ir.OpInvalid

		in, n, err := Decode(a, log, cur, mode, window)
		if err != nil {
			return list, consumed, fmt.Errorf("decode: block at pc %#x: %w", pc, err)
		}
		list.Append(in)
		consumed += n
		if isCTI {
			break
		}
	}
	if bundler, ok := a.(exclusiveBundler); ok {
		for bundler.BundleLoadStoreExclusive(list) {
		}
	}
	return list, consumed, nil
}
