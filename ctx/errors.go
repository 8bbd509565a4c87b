package ctx

import "github.com/pkg/errors"

// ErrInvariant marks a context model invariant violation: a cumulative
// frequency overflow, an impossible promotion, or an empty probe chain.
// These indicate a bug in this package, never bad input, so they are
// wrapped with a stack via github.com/pkg/errors for diagnosis.
var ErrInvariant = errors.New("ctx: invariant violation")

// ErrAlloc marks a failure to grow a context's backing storage (kind-6
// table growth from 32 to 64 slots, or kind-6 to kind-7 promotion).
var ErrAlloc = errors.New("ctx: allocation failure")

func invariantf(format string, args ...interface{}) error {
	return errors.WithStack(errors.Wrapf(ErrInvariant, format, args...))
}

func allocFailuref(format string, args ...interface{}) error {
	return errors.WithStack(errors.Wrapf(ErrAlloc, format, args...))
}
