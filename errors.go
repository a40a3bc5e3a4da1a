package ampliseq

import (
	"errors"
	"fmt"
)

// FormatError indicates malformed input or identifiers that are inconsistent
// across the feature table, metadata, taxonomy, or tree.
type FormatError struct {
	File    string
	Problem string
	Cause   error
}

func (e *FormatError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("format error in %s: %s", e.File, e.Problem)
	}
	return "format error: " + e.Problem
}

func (e *FormatError) Unwrap() error { return e.Cause }

// PreconditionError indicates that a computation was invoked on data that
// violates one of its preconditions (non-binary tree, zero-sum sample,
// sample shallower than a rarefaction target, empty filter result). These
// are raised eagerly: silently producing plausible-looking but wrong numbers
// is the failure mode this library exists to avoid.
type PreconditionError struct {
	Op      string
	Problem string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition violated: %s", e.Op, e.Problem)
}

// StatisticalFitError indicates that a model fit failed to converge.
type StatisticalFitError struct {
	Feature string
	Problem string
}

func (e *StatisticalFitError) Error() string {
	return fmt.Sprintf("model fit failed for feature %s: %s", e.Feature, e.Problem)
}

func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

func IsPreconditionError(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

func IsStatisticalFitError(err error) bool {
	var se *StatisticalFitError
	return errors.As(err, &se)
}
