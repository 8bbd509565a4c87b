package logging

import "go.uber.org/multierr"

// CombineFatal aggregates the fatal errors collected across a batch of
// independent encode/decode jobs (e.g. one per file in cmd/sclcenc, or one
// per squad.Squad a caller is juggling) into a single error that reports
// every failure instead of only the first.
func CombineFatal(errs ...error) error {
	return multierr.Combine(errs...)
}
