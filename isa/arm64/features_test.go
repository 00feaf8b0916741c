package arm64

import "testing"

func TestProbeFeatures_NeverClaimsAFeatureItCannotVerify(t *testing.T) {
	f := ProbeFeatures()
	for _, feat := range []Feature{FeatureLSE, FeatureCRC32, FeaturePAuth} {
		if f.Has(feat) {
			t.Fatalf("ProbeFeatures claimed feature %d without a real MRS read", feat)
		}
	}
}

func TestFeatures_Has(t *testing.T) {
	f := Features(1<<FeatureLSE | 1<<FeaturePAuth)
	if !f.Has(FeatureLSE) || !f.Has(FeaturePAuth) {
		t.Fatal("Has must report bits that are set")
	}
	if f.Has(FeatureCRC32) {
		t.Fatal("Has must not report a bit that isn't set")
	}
}
