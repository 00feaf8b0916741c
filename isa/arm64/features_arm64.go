//go:build arm64

package arm64

// arm64Features is this port's feature table when actually built for
// AArch64: the conservative ARMv8.0 baseline, nothing probed. A real MRS
// read of ID_AA64ISAR0_EL1/ID_AA64ISAR1_EL1 (original_source/core/arch/
// aarch64/proc.c's read_feature_regs) would refine this per-process; this
// port doesn't, so it never claims a feature it can't verify.
const arm64Features Features = 0
