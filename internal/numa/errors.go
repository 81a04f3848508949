package numa

import "errors"

// unsupportedPlatformError signals that topology discovery was attempted
// on an OS without the required introspection utilities.
type unsupportedPlatformError struct{ goos string }

func (e unsupportedPlatformError) Error() string {
	return "cpu topology discovery requires linux, running on " + e.goos
}

// IsUnsupportedPlatform reports whether err indicates a non-Linux host.
func IsUnsupportedPlatform(err error) bool {
	var e unsupportedPlatformError
	return errors.As(err, &e)
}

// queryFailedError signals that the OS topology query errored or returned
// output we could not parse.
type queryFailedError struct {
	op  string
	err error
}

func (e queryFailedError) Error() string { return "topology query failed: " + e.op + ": " + e.err.Error() }
func (e queryFailedError) Unwrap() error { return e.err }

// IsQueryFailed reports whether err indicates a failed topology query.
func IsQueryFailed(err error) bool {
	var e queryFailedError
	return errors.As(err, &e)
}
