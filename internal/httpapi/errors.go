package httpapi

import (
	"net/http"

	"cpuplatd/internal/numa"
	"cpuplatd/internal/platform"
)

// statusForError maps platform and discovery errors to HTTP status codes.
// Rejected configurations are client errors; discovery failures are not.
func statusForError(err error) int {
	switch {
	case platform.IsUnsupportedConfig(err),
		platform.IsIncompatibleConfig(err),
		platform.IsUnsupportedFeature(err):
		return http.StatusUnprocessableEntity
	case numa.IsUnsupportedPlatform(err):
		return http.StatusNotImplemented
	case numa.IsQueryFailed(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
