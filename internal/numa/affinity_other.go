//go:build !linux

package numa

// affinity is only reachable when tests force the Linux path on another
// OS; real discovery rejects non-Linux before consulting it.
var affinity = func() (map[int]bool, error) {
	return nil, unsupportedPlatformError{goos: goos}
}
