package platform

import "errors"

// unsupportedConfigError signals a user-specified value this backend
// cannot honor at all.
type unsupportedConfigError struct{ msg string }

func (e unsupportedConfigError) Error() string { return e.msg }

// IsUnsupportedConfig reports whether err rejects an unsupported value.
func IsUnsupportedConfig(err error) bool {
	var e unsupportedConfigError
	return errors.As(err, &e)
}

// incompatibleConfigError signals a combination of individually valid
// fields that cannot be used together on this backend.
type incompatibleConfigError struct{ msg string }

func (e incompatibleConfigError) Error() string { return e.msg }

// IsIncompatibleConfig reports whether err rejects a field combination.
func IsIncompatibleConfig(err error) bool {
	var e incompatibleConfigError
	return errors.As(err, &e)
}

// unsupportedFeatureError signals a requested capability this backend
// does not provide.
type unsupportedFeatureError struct{ feature string }

func (e unsupportedFeatureError) Error() string {
	return e.feature + " is not supported on the cpu backend"
}

// IsUnsupportedFeature reports whether err rejects a missing capability.
func IsUnsupportedFeature(err error) bool {
	var e unsupportedFeatureError
	return errors.As(err, &e)
}
