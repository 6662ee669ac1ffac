package log

import (
	cerrors "github.com/cockroachdb/errors"
)

// extractStacktrace returns the first safe detail recorded by
// cockroachdb/errors, which holds the formatted stack of the innermost
// WithStack call.
func extractStacktrace(err error) string {
	details := cerrors.GetSafeDetails(err).SafeDetails
	if len(details) > 0 {
		return details[0]
	}
	return ""
}
