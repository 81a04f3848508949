package platform

import "os"

// The accelerated cache extension ships as a shared object and enables
// the 128-token cache block layout. CPUPLAT_EXT_PATH overrides the
// default search locations.
const extPathEnv = "CPUPLAT_EXT_PATH"

var extSearchPaths = []string{
	"/usr/local/lib/libcpuplat_ext.so",
	"/usr/lib/libcpuplat_ext.so",
}

// ExtensionAvailable reports whether the accelerated cache extension is
// installed. Swapped out in tests.
var ExtensionAvailable = func() bool {
	if p := os.Getenv(extPathEnv); p != "" {
		return fileExists(p)
	}
	for _, p := range extSearchPaths {
		if fileExists(p) {
			return true
		}
	}
	return false
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}
