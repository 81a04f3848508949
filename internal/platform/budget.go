package platform

import (
	"fmt"
	"os"
	"strconv"
	"sync"
)

// KVCacheSpaceEnv overrides the KV-cache memory budget, in GiB.
const KVCacheSpaceEnv = "VLLM_CPU_KVCACHE_SPACE"

const gib = int64(1) << 30

const defaultKVCacheGiB = 4

var warnDefaultBudget sync.Once

// KVCacheBytes returns the KV-cache memory budget in bytes. It reads the
// environment on every call; the unset-default warning is emitted once
// per process.
func KVCacheBytes() (int64, error) {
	v := os.Getenv(KVCacheSpaceEnv)
	if v == "" {
		warnDefaultBudget.Do(func() {
			logWarn(fmt.Sprintf("%s (GiB) is not set, using %d by default", KVCacheSpaceEnv, defaultKVCacheGiB))
		})
		return defaultKVCacheGiB * gib, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, unsupportedConfigError{msg: fmt.Sprintf("%s=%q is not a non-negative integer", KVCacheSpaceEnv, v)}
	}
	return n * gib, nil
}
