//go:build !arm64

package arm64

// arm64Features is this port's feature table when cross-built or tested
// on a non-AArch64 host: no MRS exists to probe here at all, so the
// table is always empty. EmitIBLRoutine and the encoders in this package
// never branch on Features, so this has no effect on cross-host test
// correctness — it exists so ProbeFeatures has something honest to
// return rather than panicking off-target.
const arm64Features Features = 0
