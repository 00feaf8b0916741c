package arm64

// Feature names an optional AArch64 ISA extension this port is aware of,
// grounded on the feature bits original_source/core/arch/aarch64/proc.c
// reads out of ID_AA64ISAR0_EL1/ID_AA64ISAR1_EL1. None of this port's
// encoders currently branch on Features; it exists so a caller building a
// clean-call sequence (see dcontext.SaveConvention) can at least ask
// before emitting an LSE atomic or CRC32 instruction this port doesn't
// implement yet.
type Feature int

const (
	// FeatureLSE is ARMv8.1's Large System Extensions: single-instruction
	// atomic read-modify-write (CAS, swap, LDADD) in place of the
	// load/store-exclusive retry loop bundle.go fuses into one OpLdStEx.
	FeatureLSE Feature = iota
	// FeatureCRC32 is the CRC32/CRC32C instruction family.
	FeatureCRC32
	// FeaturePAuth is pointer authentication (PACIASP/AUTIASP).
	FeaturePAuth
)

// Features is a bitset of probed Feature values.
type Features uint32

// Has reports whether feat is set.
func (f Features) Has(feat Feature) bool { return f&(1<<uint(feat)) != 0 }

// ProbeFeatures returns this process's AArch64 feature set.
//
// original_source/core/arch/aarch64/proc.c's real probe reads the
// ID_AA64ISAR0_EL1/ID_AA64ISAR1_EL1/... MRS feature registers directly,
// with its own XXX i#5474 comment noting the fallback for when MRS
// itself traps (a SIGILL-guarded trial read) is still unimplemented
// upstream. Go has no inline MRS and cannot install a handler that
// resumes execution past a mid-function SIGILL the way that fallback
// would need to, so ProbeFeatures instead returns a conservative,
// build-tag-selected constant table (features_arm64.go/features_other.go)
// rather than attempting either kind of probe. This is a documented
// divergence, not a bug: this port never claims a feature it can't
// independently verify.
func ProbeFeatures() Features {
	return arm64Features
}
