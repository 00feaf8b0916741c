// Package logging constructs the zap.Logger instances the rest of the core
// threads through as an explicit value (spec.md §1 and SPEC_FULL.md §B.1:
// no core package reads a process-global logger). The only core package
// that logs is decode, when it hits an undecodable byte sequence; ibl and
// stub do not log.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-style JSON logger at the given level. Callers
// that don't want logging at all (most tests) use Nop instead.
func New(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

// Nop returns a logger that discards everything, the default for test code
// and for any caller that has not configured an explicit sink.
func Nop() *zap.Logger { return zap.NewNop() }

// Fields are shared structured zap.Field helpers. No package in this
// repository calls them; decode builds its zap fields directly.
func TagField(tag uint64) zap.Field       { return zap.Uint64("guest_tag", tag) }
func TargetField(target uint64) zap.Field { return zap.Uint64("target", target) }
func StubPCField(pc uint64) zap.Field     { return zap.Uint64("stub_pc", pc) }
func OpcodeField(name string) zap.Field   { return zap.String("opcode", name) }
