// Package xfer names the small enumerations shared by the isa, stub, and
// ibl packages that describe a control transfer's shape: which kind of
// fragment it exits from and which kind of indirect branch it is. It is
// deliberately tiny and dependency-free so that isa (which emits code for
// a transfer), fragment and ibl (which looks up a transfer's target) can
// all name these types without an import cycle (isa imports fragment, and
// ibl imports isa).
package xfer

// FragmentKind distinguishes a basic-block translation from a trace
// (a larger, hot-path translation spanning multiple original blocks).
type FragmentKind uint8

const (
	FragmentBB FragmentKind = iota
	FragmentTrace
)

func (k FragmentKind) String() string {
	if k == FragmentTrace {
		return "trace"
	}
	return "bb"
}

// BranchType distinguishes the three indirect branch shapes the IBL
// subsystem services.
type BranchType uint8

const (
	BranchReturn BranchType = iota
	BranchIndCall
	BranchIndJmp
)

func (b BranchType) String() string {
	switch b {
	case BranchReturn:
		return "ret"
	case BranchIndCall:
		return "indcall"
	case BranchIndJmp:
		return "indjmp"
	default:
		return "unknown"
	}
}

// TableKind names one of the (FragmentKind x BranchType) IBL tables —
// typically six per process: {bb,trace} x {ret,indcall,indjmp}.
type TableKind struct {
	Fragment FragmentKind
	Branch   BranchType
}

// AllTableKinds enumerates the standard six-table configuration.
func AllTableKinds() []TableKind {
	var out []TableKind
	for _, f := range []FragmentKind{FragmentBB, FragmentTrace} {
		for _, b := range []BranchType{BranchReturn, BranchIndCall, BranchIndJmp} {
			out = append(out, TableKind{Fragment: f, Branch: b})
		}
	}
	return out
}

func (k TableKind) String() string {
	return k.Fragment.String() + "_" + k.Branch.String()
}
