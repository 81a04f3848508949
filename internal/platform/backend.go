package platform

import (
	"fmt"

	"cpuplatd/internal/registry"
)

// SelectAttentionBackend picks the attention kernel identifier for this
// platform. requested may be empty for "no preference"; any non-default
// request is downgraded to the scaled-dot-product kernel with a notice,
// since that is the only kernel this backend implements.
func SelectAttentionBackend(requested string, useMLA, useV1 bool) (string, error) {
	if useMLA {
		return "", unsupportedFeatureError{feature: "MLA attention"}
	}
	if !useV1 {
		return "", unsupportedFeatureError{feature: "non-V1 execution mode"}
	}
	if requested != "" && requested != registry.BackendSDPA {
		logInfo(fmt.Sprintf("attention backend %q is not available on cpu, using %s", requested, registry.BackendSDPA))
	}
	return registry.MustLookup(registry.KindAttention, registry.BackendSDPA), nil
}
